// Package message defines the scheduled application message exchanged by
// traffic endpoints.
package message

import (
	"fmt"

	"github.com/sarchlab/trafficapp/sim"
)

// Message is an outbound application message waiting for its send time. A
// Message is a value and is never modified after it is built.
type Message struct {
	ID             int
	SendTime       sim.VTimeInMs
	Sender         string
	SenderPort     int
	Receiver       string
	ReceiverPort   int
	PayloadSize    int
	ReplyRequested bool
	ReplyDelay     sim.VTimeInMs
}

func (m Message) String() string {
	return fmt.Sprintf("msg-%d(%s:%d -> %s:%d @%d, %dB)",
		m.ID, m.Sender, m.SenderPort, m.Receiver, m.ReceiverPort,
		m.SendTime, m.PayloadSize)
}

// Builder builds messages.
type Builder struct {
	id             int
	sendTime       sim.VTimeInMs
	sender         string
	senderPort     int
	receiver       string
	receiverPort   int
	payloadSize    int
	replyRequested bool
	replyDelay     sim.VTimeInMs
}

// WithID sets the message ID.
func (b Builder) WithID(id int) Builder {
	b.id = id
	return b
}

// WithSendTime sets the time at which the message becomes due.
func (b Builder) WithSendTime(t sim.VTimeInMs) Builder {
	b.sendTime = t
	return b
}

// WithSender sets the name and the listening port of the sending endpoint.
func (b Builder) WithSender(name string, port int) Builder {
	b.sender = name
	b.senderPort = port

	return b
}

// WithReceiver sets the name and the port of the receiving endpoint.
func (b Builder) WithReceiver(name string, port int) Builder {
	b.receiver = name
	b.receiverPort = port

	return b
}

// WithPayloadSize sets the number of bytes the message occupies on the wire.
func (b Builder) WithPayloadSize(size int) Builder {
	b.payloadSize = size
	return b
}

// WithReply asks the receiver to answer after the given delay.
func (b Builder) WithReply(delay sim.VTimeInMs) Builder {
	b.replyRequested = true
	b.replyDelay = delay

	return b
}

// Build creates the message.
func (b Builder) Build() Message {
	return Message{
		ID:             b.id,
		SendTime:       b.sendTime,
		Sender:         b.sender,
		SenderPort:     b.senderPort,
		Receiver:       b.receiver,
		ReceiverPort:   b.receiverPort,
		PayloadSize:    b.payloadSize,
		ReplyRequested: b.replyRequested,
		ReplyDelay:     b.replyDelay,
	}
}
