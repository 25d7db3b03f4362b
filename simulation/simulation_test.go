package simulation_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/trafficapp/config"
	"github.com/sarchlab/trafficapp/connection"
	"github.com/sarchlab/trafficapp/datarecording"
	"github.com/sarchlab/trafficapp/simulation"
	"github.com/sarchlab/trafficapp/stats"
	"github.com/sarchlab/trafficapp/tracing"
)

const endpointTables = `
[[endpoint]]
name = "A"
port = 4000
schedule = "a.json"

[[endpoint]]
name = "B"
port = 5000
`

const twoEndpoints = "name = \"acceptance\"\n" + endpointTables

var _ = Describe("Simulation", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	writeSchedule := func(content string) {
		err := os.WriteFile(filepath.Join(dir, "a.json"), []byte(content), 0o644)
		Expect(err).NotTo(HaveOccurred())
	}

	build := func(scenario string) *simulation.Simulation {
		sc, err := config.ParseScenario(scenario, dir)
		Expect(err).NotTo(HaveOccurred())

		return simulation.MakeBuilder().
			WithScenario(sc).
			WithOutputDir(filepath.Join(dir, "results")).
			WithoutMonitoring().
			Build()
	}

	run := func(scenario string) *simulation.Simulation {
		s := build(scenario)
		Expect(s.Run()).To(Succeed())
		s.Terminate()

		return s
	}

	It("should panic if no scenario is given", func() {
		Expect(func() { simulation.MakeBuilder().Build() }).To(Panic())
	})

	It("should create one endpoint per scenario entry", func() {
		writeSchedule(`{"sender": "A", "messageList": []}`)

		s := build(twoEndpoints)

		Expect(s.Endpoints()).To(HaveLen(2))
		Expect(s.GetEndpointByName("B").LocalPort()).To(Equal(5000))
		Expect(s.DataRecorder()).To(BeNil())
		Expect(s.Monitor()).To(BeNil())
		Expect(func() { s.GetEndpointByName("C") }).To(Panic())
	})

	It("should deliver a single message", func() {
		writeSchedule(`{"sender": "A", "messageList": [
			{"msgId": 1, "timeSend_ms": 100, "receiver": "B",
			 "receiverPort": 5000, "packetSize_B": 512}]}`)

		s := run(twoEndpoints)

		b := s.GetEndpointByName("B")
		Expect(b.Stats().Deliveries()).To(Equal([]stats.DeliveryRecord{
			{MsgID: 1, DelayMs: 20, PacketSizeB: 512, ReceivingTimeMs: 120},
		}))
		Expect(b.Stats().Replies()).To(BeEmpty())

		a := s.GetEndpointByName("A")
		Expect(a.Counters()).To(Equal(stats.Counters{
			PacketsSent: 1,
			BytesSent:   512,
			Sessions:    1,
		}))
		Expect(b.Counters().PacketsReceived).To(Equal(1))
		Expect(b.Counters().BytesReceived).To(Equal(512))
		Expect(s.Transit().TotalCount()).To(Equal(uint64(1)))
		Expect(s.Transit().AverageTime()).To(BeNumerically("~", 10.0))

		_, err := os.Stat(
			filepath.Join(dir, "results", "simulation_results_B.json"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should send a reply back", func() {
		writeSchedule(`{"sender": "A", "messageList": [
			{"msgId": 1, "timeSend_ms": 100, "receiver": "B",
			 "receiverPort": 5000, "packetSize_B": 512,
			 "reply": true, "replyAfter_ms": 50}]}`)

		s := run(twoEndpoints)

		b := s.GetEndpointByName("B")
		Expect(b.Stats().Replies()).To(Equal([]stats.ReplyRecord{{
			MsgID:              500000,
			PacketSizeB:        512,
			SendingTimeMs:      170,
			CalculationStartMs: 120,
			Sender:             "B",
			Receiver:           "A",
		}}))

		a := s.GetEndpointByName("A")
		Expect(a.Stats().Deliveries()).To(Equal([]stats.DeliveryRecord{
			{MsgID: 500000, DelayMs: 20, PacketSizeB: 512, ReceivingTimeMs: 190},
		}))
		Expect(a.Stats().Replies()).To(BeEmpty())
	})

	It("should not retry an unresolvable receiver", func() {
		writeSchedule(`{"sender": "A", "messageList": [
			{"msgId": 1, "timeSend_ms": 100, "receiver": "Z",
			 "receiverPort": 6000, "packetSize_B": 64},
			{"msgId": 2, "timeSend_ms": 200, "receiver": "B",
			 "receiverPort": 5000, "packetSize_B": 64}]}`)

		s := run(twoEndpoints)

		Expect(s.Network().Stats().Connects).To(Equal(1))
		Expect(s.Network().Stats().Refused).To(BeZero())

		a := s.GetEndpointByName("A").Snapshot()
		Expect(a.Pending).To(Equal(1))
		Expect(a.Connections).To(HaveLen(2))
		Expect(a.Connections[0].PeerPort).To(Equal(5000))
		Expect(a.Connections[0].State).To(Equal(connection.Established))
		Expect(a.Connections[1].PeerPort).To(Equal(6000))
		Expect(a.Connections[1].State).To(Equal(connection.Bound))

		deliveries := s.GetEndpointByName("B").Stats().Deliveries()
		Expect(deliveries).To(HaveLen(1))
		Expect(deliveries[0].MsgID).To(Equal(2))
	})

	It("should reuse the connection for the same peer", func() {
		writeSchedule(`{"sender": "A", "messageList": [
			{"msgId": 1, "timeSend_ms": 100, "receiver": "B",
			 "receiverPort": 5000, "packetSize_B": 100},
			{"msgId": 2, "timeSend_ms": 300, "receiver": "B",
			 "receiverPort": 5000, "packetSize_B": 200}]}`)

		s := run(twoEndpoints)

		Expect(s.Network().Stats().Connects).To(Equal(1))

		a := s.GetEndpointByName("A")
		Expect(a.Counters().Sessions).To(Equal(1))
		Expect(a.Counters().PacketsSent).To(Equal(2))

		Expect(s.GetEndpointByName("B").Stats().Deliveries()).To(Equal(
			[]stats.DeliveryRecord{
				{MsgID: 1, DelayMs: 20, PacketSizeB: 100, ReceivingTimeMs: 120},
				{MsgID: 2, DelayMs: 10, PacketSizeB: 200, ReceivingTimeMs: 310},
			}))
	})

	It("should decode messages in sequence framing", func() {
		writeSchedule(`{"sender": "A", "messageList": [
			{"msgId": 1, "timeSend_ms": 100, "receiver": "B",
			 "receiverPort": 5000, "packetSize_B": 512}]}`)

		s := run(`
name = "framed"

[network]
framing = "sequence"
decoy_frames = 3
header_bytes = 20
` + endpointTables)

		deliveries := s.GetEndpointByName("B").Stats().Deliveries()
		Expect(deliveries).To(HaveLen(1))
		Expect(deliveries[0].MsgID).To(Equal(1))
		Expect(deliveries[0].PacketSizeB).To(BeNumerically(">", 512))
	})

	It("should stop all endpoints at the stop time", func() {
		writeSchedule(`{"sender": "A", "messageList": [
			{"msgId": 1, "timeSend_ms": 100, "receiver": "B",
			 "receiverPort": 5000, "packetSize_B": 100},
			{"msgId": 2, "timeSend_ms": 300, "receiver": "B",
			 "receiverPort": 5000, "packetSize_B": 200}]}`)

		s := run("stop_at_ms = 150\n" + twoEndpoints)

		a := s.GetEndpointByName("A")
		Expect(a.State().String()).To(Equal("stopped"))
		Expect(a.Counters().PacketsSent).To(Equal(1))
		Expect(s.GetEndpointByName("B").Stats().Deliveries()).To(HaveLen(1))
	})

	It("should start with an empty schedule if the file is missing", func() {
		s := run(twoEndpoints)

		Expect(s.GetEndpointByName("A").Counters().PacketsSent).To(BeZero())
		Expect(s.GetEndpointByName("A").State().String()).To(Equal("running"))
	})

	It("should record the results into SQLite", func() {
		writeSchedule(`{"sender": "A", "messageList": [
			{"msgId": 1, "timeSend_ms": 100, "receiver": "B",
			 "receiverPort": 5000, "packetSize_B": 512,
			 "reply": true, "replyAfter_ms": 50}]}`)

		s := run("record_sqlite = \"records\"\n" + twoEndpoints)
		Expect(s.DataRecorder()).NotTo(BeNil())

		reader := datarecording.NewReader(
			filepath.Join(dir, "results", "records.sqlite3"))
		defer reader.Close()

		reader.MapTable(stats.DeliveryTable, stats.DeliveryRow{})
		reader.MapTable(stats.ReplyTable, stats.ReplyRow{})

		rows, total, err := reader.Query(context.Background(),
			stats.DeliveryTable, datarecording.QueryParams{OrderBy: "MsgID"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(2))
		Expect(rows[0].(*stats.DeliveryRow).Endpoint).To(Equal("B"))
		Expect(rows[1].(*stats.DeliveryRow).Endpoint).To(Equal("A"))

		rows, total, err = reader.Query(context.Background(),
			stats.ReplyTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))
		Expect(rows[0].(*stats.ReplyRow).MsgID).To(Equal(500000))

		reader.MapTable(tracing.TraceTable, tracing.TaskEntry{})
		rows, total, err = reader.Query(context.Background(),
			tracing.TraceTable, datarecording.QueryParams{OrderBy: "StartTime"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(2))
		Expect(*rows[0].(*tracing.TaskEntry)).To(Equal(tracing.TaskEntry{
			ID:        "A.msg-1",
			Kind:      tracing.TaskKindMsg,
			What:      "A->B:5000",
			Location:  "A",
			StartTime: 110,
			EndTime:   120,
		}))
		Expect(rows[1].(*tracing.TaskEntry).ID).To(Equal("B.msg-500000"))
	})
})
