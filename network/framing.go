package network

import (
	"fmt"

	"github.com/sarchlab/trafficapp/envelope"
)

// Framing tells how the network wraps the frames of a packet before
// delivering it, imitating the chunk layouts produced by real protocol
// stacks.
type Framing int

// Framing modes.
const (
	// FramingDirect delivers the frames as they were sent.
	FramingDirect Framing = iota

	// FramingSlice wraps every frame into a slice.
	FramingSlice

	// FramingSequence wraps the frames into slices inside a sequence,
	// preceded by decoy slices.
	FramingSequence

	// FramingMixed rotates through the other modes, one packet after
	// another.
	FramingMixed
)

var framingNames = map[string]Framing{
	"direct":   FramingDirect,
	"slice":    FramingSlice,
	"sequence": FramingSequence,
	"mixed":    FramingMixed,
}

// ParseFraming converts a framing name into a Framing.
func ParseFraming(name string) (Framing, error) {
	f, ok := framingNames[name]
	if !ok {
		return FramingDirect, fmt.Errorf("unknown framing %q", name)
	}

	return f, nil
}

func (f Framing) String() string {
	for name, v := range framingNames {
		if v == f {
			return name
		}
	}

	return fmt.Sprintf("framing(%d)", int(f))
}

const decoyBytes = 16

type framer struct {
	mode        Framing
	decoyFrames int
	headerBytes int
	rotation    int
}

func (f *framer) frame(pkt *envelope.Packet) *envelope.Packet {
	mode := f.mode
	if mode == FramingMixed {
		mode = Framing(f.rotation % 3)
		f.rotation++
	}

	var frames []*envelope.Envelope

	if f.headerBytes > 0 {
		frames = append(frames, envelope.Opaque(f.headerBytes))
	}

	switch mode {
	case FramingSlice:
		for _, e := range pkt.Frames() {
			frames = append(frames, envelope.Slice(e))
		}
	case FramingSequence:
		items := make([]*envelope.Envelope, 0, f.decoyFrames+len(pkt.Frames()))
		for i := 0; i < f.decoyFrames; i++ {
			items = append(items, envelope.Slice(envelope.Opaque(decoyBytes)))
		}

		for _, e := range pkt.Frames() {
			items = append(items, envelope.Slice(e))
		}

		frames = append(frames, envelope.Sequence(items...))
	default:
		frames = append(frames, pkt.Frames()...)
	}

	return envelope.NewPacket(frames...)
}
