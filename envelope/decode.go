package envelope

import (
	"fmt"

	"github.com/sarchlab/trafficapp/message"
)

// MaxNestingDepth limits how many wrapper frames the decoder descends into.
const MaxNestingDepth = 8

// Reason tells why a packet could not be decoded.
type Reason int

// The reasons of decode failures.
const (
	FrameNotFound Reason = iota
	MalformedFrame
	NestingTooDeep
)

func (r Reason) String() string {
	switch r {
	case FrameNotFound:
		return "frame not found"
	case MalformedFrame:
		return "malformed frame"
	case NestingTooDeep:
		return "nesting too deep"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// DecodeError reports a packet that does not contain a usable application
// frame. It is never fatal; the packet is simply dropped.
type DecodeError struct {
	Reason Reason
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("envelope: %s at offset %d", e.Reason, e.Offset)
}

// Decode finds the application frame in a packet and returns the message it
// carries.
//
// Starting from offset zero, the frame at the offset is either the application
// frame itself, a slice wrapping one frame, or a sequence of wrapped frames.
// Wrappers are unwrapped and the first application frame found inside wins.
// Frames that are none of these are skipped by their length.
func Decode(pkt *Packet) (message.Message, error) {
	if pkt == nil {
		return message.Message{}, &DecodeError{Reason: FrameNotFound}
	}

	tooDeep := false
	offset := 0
	total := pkt.TotalLength()

	for offset < total {
		frame := pkt.PeekAt(offset)
		if frame == nil {
			break
		}

		app, deep := unwrap(frame, 0)
		if app != nil {
			return app.Message(), nil
		}

		tooDeep = tooDeep || deep

		if frame.Length <= 0 {
			return message.Message{}, &DecodeError{
				Reason: MalformedFrame,
				Offset: offset,
			}
		}

		offset += frame.Length
	}

	if tooDeep {
		return message.Message{}, &DecodeError{
			Reason: NestingTooDeep,
			Offset: offset,
		}
	}

	return message.Message{}, &DecodeError{Reason: FrameNotFound, Offset: offset}
}

// unwrap returns the first application frame found in f. The second return
// value reports that some branch was abandoned for being nested too deep.
func unwrap(f *Envelope, depth int) (*AppFrame, bool) {
	if f == nil {
		return nil, false
	}

	if depth > MaxNestingDepth {
		return nil, true
	}

	switch f.Kind {
	case KindApplication:
		return f.App, false
	case KindSlice:
		return unwrap(f.Inner, depth+1)
	case KindSequence:
		tooDeep := false
		for _, item := range f.Items {
			app, deep := unwrap(item, depth+1)
			if app != nil {
				return app, false
			}

			tooDeep = tooDeep || deep
		}

		return nil, tooDeep
	default:
		return nil, false
	}
}
