package stats

import (
	"slices"

	"github.com/sarchlab/trafficapp/datarecording"
)

// Tables written by the RecorderSink.
const (
	DeliveryTable = "delivery"
	ReplyTable    = "reply"
)

// DeliveryRow is a delivery record stored in the database.
type DeliveryRow struct {
	Endpoint        string
	MsgID           int
	DelayMs         int64
	PacketSizeB     int
	ReceivingTimeMs int64
}

// ReplyRow is a reply record stored in the database.
type ReplyRow struct {
	Endpoint           string
	MsgID              int
	PacketSizeB        int
	SendingTimeMs      int64
	CalculationStartMs int64
	Sender             string
	Receiver           string
}

// RecorderSink stores records into a DataRecorder. Several endpoints can share
// one recorder. Each record is stored once, however many times the log is
// exported.
type RecorderSink struct {
	recorder          datarecording.DataRecorder
	endpoint          string
	writtenDeliveries int
	writtenReplies    int
}

// NewRecorderSink creates a sink for the records of one endpoint.
func NewRecorderSink(
	recorder datarecording.DataRecorder,
	endpoint string,
) *RecorderSink {
	tables := recorder.ListTables()

	if !slices.Contains(tables, DeliveryTable) {
		recorder.CreateTable(DeliveryTable, DeliveryRow{})
	}

	if !slices.Contains(tables, ReplyTable) {
		recorder.CreateTable(ReplyTable, ReplyRow{})
	}

	return &RecorderSink{
		recorder: recorder,
		endpoint: endpoint,
	}
}

func (s *RecorderSink) Write(deliveries []DeliveryRecord, replies []ReplyRecord) error {
	for _, d := range deliveries[min(s.writtenDeliveries, len(deliveries)):] {
		s.recorder.InsertData(DeliveryTable, DeliveryRow{
			Endpoint:        s.endpoint,
			MsgID:           d.MsgID,
			DelayMs:         d.DelayMs,
			PacketSizeB:     d.PacketSizeB,
			ReceivingTimeMs: d.ReceivingTimeMs,
		})
	}

	for _, r := range replies[min(s.writtenReplies, len(replies)):] {
		s.recorder.InsertData(ReplyTable, ReplyRow{
			Endpoint:           s.endpoint,
			MsgID:              r.MsgID,
			PacketSizeB:        r.PacketSizeB,
			SendingTimeMs:      r.SendingTimeMs,
			CalculationStartMs: r.CalculationStartMs,
			Sender:             r.Sender,
			Receiver:           r.Receiver,
		})
	}

	s.writtenDeliveries = max(s.writtenDeliveries, len(deliveries))
	s.writtenReplies = max(s.writtenReplies, len(replies))

	s.recorder.Flush()

	return nil
}
