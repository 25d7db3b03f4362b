package envelope_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/trafficapp/envelope"
	"github.com/sarchlab/trafficapp/message"
)

func sampleMsg() message.Message {
	return message.Builder{}.
		WithID(7).
		WithSendTime(120).
		WithSender("alice", 1000).
		WithReceiver("bob", 2000).
		WithPayloadSize(512).
		WithReply(30).
		Build()
}

func expectReason(err error, reason envelope.Reason) {
	var decodeErr *envelope.DecodeError
	Expect(errors.As(err, &decodeErr)).To(BeTrue())
	Expect(decodeErr.Reason).To(Equal(reason))
}

var _ = Describe("Envelope", func() {
	var msg message.Message

	BeforeEach(func() {
		msg = sampleMsg()
	})

	It("should encode every field into the application frame", func() {
		e := envelope.Encode(msg)

		Expect(e.Kind).To(Equal(envelope.KindApplication))
		Expect(e.Length).To(Equal(512))
		Expect(*e.App).To(Equal(envelope.AppFrame{
			MsgID:        7,
			TimeSendMs:   120,
			Sender:       "alice",
			SenderPort:   1000,
			Receiver:     "bob",
			ReceiverPort: 2000,
			PacketSizeB:  512,
			Reply:        true,
			ReplyAfterMs: 30,
		}))
	})

	It("should compute lengths of wrappers and packets", func() {
		seq := envelope.Sequence(
			envelope.Slice(envelope.Opaque(20)),
			envelope.Slice(envelope.Encode(msg)),
		)
		pkt := envelope.NewPacket(envelope.Opaque(8), seq)

		Expect(seq.Length).To(Equal(532))
		Expect(pkt.TotalLength()).To(Equal(540))
		Expect(pkt.PeekAt(0).Kind).To(Equal(envelope.KindOpaque))
		Expect(pkt.PeekAt(8)).To(BeIdenticalTo(seq))
		Expect(pkt.PeekAt(4)).To(BeNil())
		Expect(pkt.PeekAt(540)).To(BeNil())
	})

	It("should describe nested frames", func() {
		pkt := envelope.NewPacket(
			envelope.Opaque(4),
			envelope.Slice(envelope.Encode(msg)),
		)

		Expect(pkt.String()).To(Equal("packet[516B]{opaque(4B), slice(app(msg-7))}"))
	})

	DescribeTable("should decode the same message regardless of the wrapping",
		func(build func(app *envelope.Envelope) *envelope.Packet) {
			decoded, err := envelope.Decode(build(envelope.Encode(msg)))

			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(msg))
		},
		Entry("direct", func(app *envelope.Envelope) *envelope.Packet {
			return envelope.NewPacket(app)
		}),
		Entry("single slice", func(app *envelope.Envelope) *envelope.Packet {
			return envelope.NewPacket(envelope.Slice(app))
		}),
		Entry("sequence without decoys", func(app *envelope.Envelope) *envelope.Packet {
			return envelope.NewPacket(envelope.Sequence(envelope.Slice(app)))
		}),
		Entry("sequence with one decoy", func(app *envelope.Envelope) *envelope.Packet {
			return envelope.NewPacket(envelope.Sequence(
				envelope.Slice(envelope.Opaque(16)),
				envelope.Slice(app),
			))
		}),
		Entry("sequence with three decoys", func(app *envelope.Envelope) *envelope.Packet {
			return envelope.NewPacket(envelope.Sequence(
				envelope.Slice(envelope.Opaque(16)),
				envelope.Opaque(4),
				envelope.Slice(envelope.Opaque(32)),
				envelope.Slice(app),
			))
		}),
		Entry("leading opaque header", func(app *envelope.Envelope) *envelope.Packet {
			return envelope.NewPacket(envelope.Opaque(20), app)
		}),
		Entry("header and nested slices", func(app *envelope.Envelope) *envelope.Packet {
			return envelope.NewPacket(
				envelope.Opaque(20),
				envelope.Opaque(8),
				envelope.Slice(envelope.Slice(app)),
			)
		}),
	)

	It("should return the first application frame of a sequence", func() {
		other := msg
		other.ID = 8

		decoded, err := envelope.Decode(envelope.NewPacket(envelope.Sequence(
			envelope.Slice(envelope.Encode(msg)),
			envelope.Slice(envelope.Encode(other)),
		)))

		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.ID).To(Equal(7))
	})

	It("should report a packet without an application frame", func() {
		_, err := envelope.Decode(envelope.NewPacket(
			envelope.Opaque(20),
			envelope.Sequence(envelope.Slice(envelope.Opaque(10))),
		))

		expectReason(err, envelope.FrameNotFound)
	})

	It("should report an empty packet", func() {
		_, err := envelope.Decode(envelope.NewPacket())
		expectReason(err, envelope.FrameNotFound)

		_, err = envelope.Decode(nil)
		expectReason(err, envelope.FrameNotFound)
	})

	It("should report a zero length frame instead of looping", func() {
		_, err := envelope.Decode(envelope.NewPacket(
			envelope.Opaque(0),
			envelope.Opaque(10),
		))

		expectReason(err, envelope.MalformedFrame)
	})

	It("should build an empty slice around nothing", func() {
		var e *envelope.Envelope
		Expect(func() { e = envelope.Slice(nil) }).NotTo(Panic())

		Expect(e.Kind).To(Equal(envelope.KindSlice))
		Expect(e.Length).To(BeZero())
		Expect(e.String()).To(Equal("slice()"))

		_, err := envelope.Decode(envelope.NewPacket(e, envelope.Encode(msg)))
		expectReason(err, envelope.MalformedFrame)
	})

	It("should report a negative length frame", func() {
		_, err := envelope.Decode(envelope.NewPacket(
			&envelope.Envelope{Kind: envelope.KindOpaque, Length: -4},
			envelope.Opaque(10),
		))

		expectReason(err, envelope.MalformedFrame)
	})

	It("should stop descending into deep nesting", func() {
		e := envelope.Encode(msg)
		for i := 0; i < envelope.MaxNestingDepth+2; i++ {
			e = envelope.Slice(e)
		}

		_, err := envelope.Decode(envelope.NewPacket(e))

		expectReason(err, envelope.NestingTooDeep)
	})

	It("should not loop on a self referencing slice", func() {
		e := &envelope.Envelope{Kind: envelope.KindSlice, Length: 10}
		e.Inner = e

		_, err := envelope.Decode(envelope.NewPacket(e))

		expectReason(err, envelope.NestingTooDeep)
	})

	It("should decode at the maximum nesting depth", func() {
		e := envelope.Encode(msg)
		for i := 0; i < envelope.MaxNestingDepth; i++ {
			e = envelope.Slice(e)
		}

		decoded, err := envelope.Decode(envelope.NewPacket(e))

		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.ID).To(Equal(7))
	})
})
