// Package stats keeps the per-message latency records of an endpoint and
// exports them.
package stats

import "fmt"

// DeliveryRecord describes a message that arrived at the endpoint.
type DeliveryRecord struct {
	DelayMs         int64 `json:"delay_ms"`
	MsgID           int   `json:"msgId"`
	PacketSizeB     int   `json:"packetSize_B"`
	ReceivingTimeMs int64 `json:"receivingTime_ms"`
}

// ReplyRecord describes a reply that the endpoint scheduled.
type ReplyRecord struct {
	CalculationStartMs int64  `json:"calculationStart_ms"`
	MsgID              int    `json:"msgId"`
	PacketSizeB        int    `json:"packetSize_B"`
	Receiver           string `json:"receiver"`
	Sender             string `json:"sender"`
	SendingTimeMs      int64  `json:"sendingTime_ms"`
}

// Counters summarize the traffic of an endpoint.
type Counters struct {
	PacketsSent     int `json:"packetsSent"`
	BytesSent       int `json:"bytesSent"`
	PacketsReceived int `json:"packetsRcvd"`
	BytesReceived   int `json:"bytesRcvd"`
	Sessions        int `json:"numSessions"`
}

func (c Counters) String() string {
	return fmt.Sprintf(
		"packetsSent=%d bytesSent=%d packetsRcvd=%d bytesRcvd=%d numSessions=%d",
		c.PacketsSent, c.BytesSent, c.PacketsReceived, c.BytesReceived,
		c.Sessions)
}

// A Sink receives the complete content of a Log.
type Sink interface {
	Write(deliveries []DeliveryRecord, replies []ReplyRecord) error
}

// Log is an append-only list of delivery and reply records.
type Log struct {
	deliveries []DeliveryRecord
	replies    []ReplyRecord
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// RecordDelivery appends a delivery record.
func (l *Log) RecordDelivery(r DeliveryRecord) {
	l.deliveries = append(l.deliveries, r)
}

// RecordReply appends a reply record.
func (l *Log) RecordReply(r ReplyRecord) {
	l.replies = append(l.replies, r)
}

// Deliveries returns a copy of the delivery records in recording order.
func (l *Log) Deliveries() []DeliveryRecord {
	return append([]DeliveryRecord(nil), l.deliveries...)
}

// Replies returns a copy of the reply records in recording order.
func (l *Log) Replies() []ReplyRecord {
	return append([]ReplyRecord(nil), l.replies...)
}

// Len returns the total number of records.
func (l *Log) Len() int {
	return len(l.deliveries) + len(l.replies)
}

// Export hands all the records to every sink. It stops at the first sink that
// fails.
func (l *Log) Export(sinks ...Sink) error {
	for _, s := range sinks {
		err := s.Write(l.Deliveries(), l.Replies())
		if err != nil {
			return err
		}
	}

	return nil
}
