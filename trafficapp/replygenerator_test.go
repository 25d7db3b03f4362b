package trafficapp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/trafficapp/message"
	"github.com/sarchlab/trafficapp/schedule"
	"github.com/sarchlab/trafficapp/sim"
	"github.com/sarchlab/trafficapp/stats"
	"github.com/sarchlab/trafficapp/trafficapp"
)

var _ = Describe("ReplyGenerator", func() {
	var (
		sched *schedule.Schedule
		log   *stats.Log
		names map[int]string
		gen   *trafficapp.ReplyGenerator
		req   message.Message
	)

	BeforeEach(func() {
		sched = schedule.New()
		log = stats.NewLog()
		names = make(map[int]string)
		gen = trafficapp.NewReplyGenerator("B", 5000, sched, log, names)

		req = message.Builder{}.
			WithID(1).
			WithSendTime(100).
			WithSender("A", 4000).
			WithReceiver("B", 5000).
			WithPayloadSize(512).
			WithReply(50).
			Build()
	})

	It("should schedule a reply back to the sender", func() {
		reply, err := gen.Generate(req, 120, 120)

		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal(message.Message{
			ID:           500000,
			SendTime:     170,
			Sender:       "B",
			SenderPort:   5000,
			Receiver:     "A",
			ReceiverPort: 4000,
			PayloadSize:  512,
		}))

		t, ok := sched.NextDueTime()
		Expect(ok).To(BeTrue())
		Expect(t).To(Equal(sim.VTimeInMs(170)))
		Expect(sched.Pending(4000)).To(Equal(1))
		Expect(names).To(HaveKeyWithValue(4000, "A"))

		Expect(log.Replies()).To(Equal([]stats.ReplyRecord{{
			MsgID:              500000,
			PacketSizeB:        512,
			SendingTimeMs:      170,
			CalculationStartMs: 120,
			Sender:             "B",
			Receiver:           "A",
		}}))
	})

	It("should number replies with a counter", func() {
		first, _ := gen.Generate(req, 120, 120)
		second, _ := gen.Generate(req, 130, 130)

		Expect(first.ID).To(Equal(500000))
		Expect(second.ID).To(Equal(500001))
		Expect(gen.Generated()).To(Equal(2))
	})

	It("should refuse replies in the past without consuming an id", func() {
		req.ReplyDelay = -30

		_, err := gen.Generate(req, 120, 120)

		Expect(err).To(MatchError(trafficapp.ErrScheduleInPast))
		Expect(sched.Len()).To(Equal(0))
		Expect(log.Replies()).To(BeEmpty())
		Expect(gen.Generated()).To(Equal(0))

		req.ReplyDelay = 0
		reply, err := gen.Generate(req, 120, 120)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.ID).To(Equal(500000))
	})
})
