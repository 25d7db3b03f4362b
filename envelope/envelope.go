// Package envelope converts scheduled messages to and from the frames that
// travel through the transport. A received packet may carry the application
// frame directly or wrapped in slice and sequence frames added by lower
// layers.
package envelope

import (
	"fmt"
	"strings"

	"github.com/sarchlab/trafficapp/message"
	"github.com/sarchlab/trafficapp/sim"
)

// Kind tells what an Envelope carries. The kind is fixed by the constructor
// that creates the envelope.
type Kind int

// The kinds of envelopes.
const (
	KindOpaque Kind = iota
	KindApplication
	KindSlice
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindOpaque:
		return "opaque"
	case KindApplication:
		return "app"
	case KindSlice:
		return "slice"
	case KindSequence:
		return "sequence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AppFrame holds the application fields of a message as they appear on the
// wire.
type AppFrame struct {
	MsgID        int    `json:"msgId"`
	TimeSendMs   int64  `json:"timeSend_ms"`
	Sender       string `json:"sender"`
	SenderPort   int    `json:"senderPort"`
	Receiver     string `json:"receiver"`
	ReceiverPort int    `json:"receiverPort"`
	PacketSizeB  int    `json:"packetSize_B"`
	Reply        bool   `json:"reply,omitempty"`
	ReplyAfterMs int64  `json:"replyAfter_ms,omitempty"`
}

// Message converts the frame back to a scheduled message.
func (f *AppFrame) Message() message.Message {
	return message.Message{
		ID:             f.MsgID,
		SendTime:       sim.VTimeInMs(f.TimeSendMs),
		Sender:         f.Sender,
		SenderPort:     f.SenderPort,
		Receiver:       f.Receiver,
		ReceiverPort:   f.ReceiverPort,
		PayloadSize:    f.PacketSizeB,
		ReplyRequested: f.Reply,
		ReplyDelay:     sim.VTimeInMs(f.ReplyAfterMs),
	}
}

// Envelope is one frame. Only the fields that belong to its Kind are set:
// App for application frames, Inner for slices and Items for sequences.
// Length is the number of bytes the frame occupies in its packet.
type Envelope struct {
	Kind   Kind
	App    *AppFrame
	Inner  *Envelope
	Items  []*Envelope
	Length int
}

// Encode creates the application frame of a message. The frame is as long as
// the payload size of the message.
func Encode(msg message.Message) *Envelope {
	return &Envelope{
		Kind: KindApplication,
		App: &AppFrame{
			MsgID:        msg.ID,
			TimeSendMs:   int64(msg.SendTime),
			Sender:       msg.Sender,
			SenderPort:   msg.SenderPort,
			Receiver:     msg.Receiver,
			ReceiverPort: msg.ReceiverPort,
			PacketSizeB:  msg.PayloadSize,
			Reply:        msg.ReplyRequested,
			ReplyAfterMs: int64(msg.ReplyDelay),
		},
		Length: msg.PayloadSize,
	}
}

// Slice wraps exactly one frame. A slice of nothing is empty.
func Slice(inner *Envelope) *Envelope {
	length := 0
	if inner != nil {
		length = inner.Length
	}

	return &Envelope{
		Kind:   KindSlice,
		Inner:  inner,
		Length: length,
	}
}

// Sequence wraps an ordered list of frames.
func Sequence(items ...*Envelope) *Envelope {
	length := 0
	for _, item := range items {
		length += item.Length
	}

	return &Envelope{
		Kind:   KindSequence,
		Items:  items,
		Length: length,
	}
}

// Opaque creates a frame of the given length whose content is not understood
// by the application, such as a lower layer header.
func Opaque(length int) *Envelope {
	return &Envelope{
		Kind:   KindOpaque,
		Length: length,
	}
}

func (e *Envelope) String() string {
	switch e.Kind {
	case KindApplication:
		if e.App == nil {
			return "app(?)"
		}

		return fmt.Sprintf("app(msg-%d)", e.App.MsgID)
	case KindSlice:
		if e.Inner == nil {
			return "slice()"
		}

		return "slice(" + e.Inner.String() + ")"
	case KindSequence:
		parts := make([]string, 0, len(e.Items))
		for _, item := range e.Items {
			parts = append(parts, item.String())
		}

		return "sequence(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("%s(%dB)", e.Kind, e.Length)
	}
}

// Packet is the unit handed over by the transport: frames laid one after
// another.
type Packet struct {
	frames      []*Envelope
	totalLength int
}

// NewPacket puts frames one after another into a packet.
func NewPacket(frames ...*Envelope) *Packet {
	p := &Packet{frames: frames}
	for _, f := range frames {
		p.totalLength += f.Length
	}

	return p
}

// TotalLength returns the number of bytes in the packet.
func (p *Packet) TotalLength() int {
	return p.totalLength
}

// Frames returns the top-level frames of the packet.
func (p *Packet) Frames() []*Envelope {
	return p.frames
}

// PeekAt returns the frame that starts at the given byte offset, or nil if no
// frame starts there.
func (p *Packet) PeekAt(offset int) *Envelope {
	pos := 0
	for _, f := range p.frames {
		if pos == offset {
			return f
		}

		if pos > offset {
			return nil
		}

		pos += f.Length
	}

	return nil
}

func (p *Packet) String() string {
	parts := make([]string, 0, len(p.frames))
	for _, f := range p.frames {
		parts = append(parts, f.String())
	}

	return fmt.Sprintf("packet[%dB]{%s}", p.totalLength, strings.Join(parts, ", "))
}
