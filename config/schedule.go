// Package config loads schedule documents and scenario files.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/sarchlab/trafficapp/message"
	"github.com/sarchlab/trafficapp/sim"
)

// Errors wrapped by ConfigError.
var (
	ErrMissingField = errors.New("missing field")
	ErrInvalidValue = errors.New("invalid value")
)

// MessageSpec is one entry of the message list of a schedule document.
// Pointers tell missing fields apart from zero values.
type MessageSpec struct {
	MsgID        *int    `json:"msgId"`
	TimeSendMs   *int64  `json:"timeSend_ms"`
	Receiver     *string `json:"receiver"`
	ReceiverPort *int    `json:"receiverPort"`
	PacketSizeB  *int    `json:"packetSize_B"`
	Reply        *bool   `json:"reply,omitempty"`
	ReplyAfterMs *int64  `json:"replyAfter_ms,omitempty"`
}

// ScheduleDocument lists the messages an endpoint sends.
type ScheduleDocument struct {
	Sender      string        `json:"sender"`
	MessageList []MessageSpec `json:"messageList"`
}

// ParseSchedule decodes and validates a schedule document.
func ParseSchedule(data []byte) (*ScheduleDocument, error) {
	doc := new(ScheduleDocument)

	err := json.Unmarshal(data, doc)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	err = doc.Validate()
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// LoadScheduleFile reads and validates the schedule document at path.
func LoadScheduleFile(path string) (*ScheduleDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	doc, err := ParseSchedule(data)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}

		return nil, err
	}

	return doc, nil
}

// Validate checks that every required field is present and usable.
func (d *ScheduleDocument) Validate() error {
	if d.Sender == "" {
		return &ConfigError{Field: "sender", Err: ErrMissingField}
	}

	if d.MessageList == nil {
		return &ConfigError{Field: "messageList", Err: ErrMissingField}
	}

	for i, m := range d.MessageList {
		err := m.validate()
		if err != nil {
			err.Field = fmt.Sprintf("messageList[%d].%s", i, err.Field)
			return err
		}
	}

	return nil
}

func (m MessageSpec) validate() *ConfigError {
	switch {
	case m.MsgID == nil:
		return &ConfigError{Field: "msgId", Err: ErrMissingField}
	case m.TimeSendMs == nil:
		return &ConfigError{Field: "timeSend_ms", Err: ErrMissingField}
	case *m.TimeSendMs < 0:
		return invalid("timeSend_ms", *m.TimeSendMs)
	case m.Receiver == nil:
		return &ConfigError{Field: "receiver", Err: ErrMissingField}
	case *m.Receiver == "":
		return invalid("receiver", "")
	case m.ReceiverPort == nil:
		return &ConfigError{Field: "receiverPort", Err: ErrMissingField}
	case *m.ReceiverPort <= 0 || *m.ReceiverPort > 65535:
		return invalid("receiverPort", *m.ReceiverPort)
	case m.PacketSizeB == nil:
		return &ConfigError{Field: "packetSize_B", Err: ErrMissingField}
	case *m.PacketSizeB <= 0:
		return invalid("packetSize_B", *m.PacketSizeB)
	case m.ReplyAfterMs != nil && *m.ReplyAfterMs < 0:
		return invalid("replyAfter_ms", *m.ReplyAfterMs)
	}

	return nil
}

func invalid(field string, value any) *ConfigError {
	return &ConfigError{
		Field: field,
		Err:   fmt.Errorf("%w %v", ErrInvalidValue, value),
	}
}

// Messages converts the document into messages sent by the named endpoint
// listening on port. A missing replyAfter_ms means an immediate reply.
func (d *ScheduleDocument) Messages(sender string, port int) []message.Message {
	msgs := make([]message.Message, 0, len(d.MessageList))

	for _, m := range d.MessageList {
		b := message.Builder{}.
			WithID(*m.MsgID).
			WithSendTime(sim.VTimeInMs(*m.TimeSendMs)).
			WithSender(sender, port).
			WithReceiver(*m.Receiver, *m.ReceiverPort).
			WithPayloadSize(*m.PacketSizeB)

		if m.Reply != nil && *m.Reply {
			var delay sim.VTimeInMs
			if m.ReplyAfterMs != nil {
				delay = sim.VTimeInMs(*m.ReplyAfterMs)
			}

			b = b.WithReply(delay)
		}

		msgs = append(msgs, b.Build())
	}

	return msgs
}
