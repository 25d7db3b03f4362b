package trafficapp

import (
	"errors"
	"fmt"

	"github.com/sarchlab/trafficapp/message"
	"github.com/sarchlab/trafficapp/schedule"
	"github.com/sarchlab/trafficapp/sim"
	"github.com/sarchlab/trafficapp/stats"
)

// ErrScheduleInPast is returned when a message would have to be sent before
// the current time.
var ErrScheduleInPast = errors.New("send time is in the past")

// ReplyGenerator turns received messages that ask for a reply into new
// scheduled messages back to their senders.
type ReplyGenerator struct {
	name       string
	localPort  int
	counter    int
	schedule   *schedule.Schedule
	stats      *stats.Log
	portToName map[int]string
}

// NewReplyGenerator creates a reply generator for the endpoint listening on
// localPort. Replies are enqueued into sched and recorded into log. The peer
// name of every reply is remembered in portToName.
func NewReplyGenerator(
	name string,
	localPort int,
	sched *schedule.Schedule,
	log *stats.Log,
	portToName map[int]string,
) *ReplyGenerator {
	return &ReplyGenerator{
		name:       name,
		localPort:  localPort,
		schedule:   sched,
		stats:      log,
		portToName: portToName,
	}
}

// Generate schedules the reply to a message received at receivedAt. It does
// not arm any timer.
func (g *ReplyGenerator) Generate(
	received message.Message,
	receivedAt, now sim.VTimeInMs,
) (message.Message, error) {
	sendTime := receivedAt + received.ReplyDelay
	if sendTime < now {
		return message.Message{}, fmt.Errorf("%w: reply to msg-%d at %d, now %d",
			ErrScheduleInPast, received.ID, sendTime, now)
	}

	reply := message.Builder{}.
		WithID(g.counter + g.localPort*100).
		WithSendTime(sendTime).
		WithSender(g.name, g.localPort).
		WithReceiver(received.Sender, received.SenderPort).
		WithPayloadSize(received.PayloadSize).
		Build()
	g.counter++

	g.schedule.Enqueue(reply)
	g.portToName[reply.ReceiverPort] = reply.Receiver

	g.stats.RecordReply(stats.ReplyRecord{
		MsgID:              reply.ID,
		PacketSizeB:        reply.PayloadSize,
		SendingTimeMs:      int64(sendTime),
		CalculationStartMs: int64(receivedAt),
		Sender:             g.name,
		Receiver:           reply.Receiver,
	})

	return reply, nil
}

// Generated returns how many replies have been scheduled.
func (g *ReplyGenerator) Generated() int {
	return g.counter
}
