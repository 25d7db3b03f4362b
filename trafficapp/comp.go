// Package trafficapp implements a traffic endpoint that sends scheduled
// messages to its peers, answers requests for replies and records the
// latency of every message it receives.
package trafficapp

import (
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/sarchlab/trafficapp/config"
	"github.com/sarchlab/trafficapp/connection"
	"github.com/sarchlab/trafficapp/envelope"
	"github.com/sarchlab/trafficapp/message"
	"github.com/sarchlab/trafficapp/schedule"
	"github.com/sarchlab/trafficapp/sim"
	"github.com/sarchlab/trafficapp/stats"
)

// OperationalState is the life-cycle stage of an endpoint.
type OperationalState int

// The operational states of an endpoint.
const (
	Starting OperationalState = iota
	Running
	Stopping
	Stopped
	Crashed
)

func (s OperationalState) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Crashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Hook positions of the endpoint. The item is the message involved.
var (
	// HookPosMsgSent triggers after a message is handed to the transport.
	HookPosMsgSent = &sim.HookPos{Name: "MsgSent"}

	// HookPosMsgDelivered triggers after a message is decoded. The detail is
	// the delay of the message.
	HookPosMsgDelivered = &sim.HookPos{Name: "MsgDelivered"}

	// HookPosReplyScheduled triggers after a reply is enqueued.
	HookPosReplyScheduled = &sim.HookPos{Name: "ReplyScheduled"}
)

// Comp is a traffic endpoint.
type Comp struct {
	*sim.HookableBase
	sync.Mutex

	name      string
	engine    sim.Engine
	log       *logging.Logger
	localPort int

	schedule   *schedule.Schedule
	conns      *connection.Table
	replies    *ReplyGenerator
	stats      *stats.Log
	sinks      []stats.Sink
	portToName map[int]string
	armed      map[sim.VTimeInMs]bool

	state    OperationalState
	counters stats.Counters
}

// Name returns the name of the endpoint.
func (c *Comp) Name() string {
	return c.name
}

// LocalPort returns the port the endpoint listens on.
func (c *Comp) LocalPort() int {
	return c.localPort
}

// State returns the operational state of the endpoint.
func (c *Comp) State() OperationalState {
	c.Lock()
	defer c.Unlock()

	return c.state
}

// Stats returns the delivery and reply records of the endpoint.
func (c *Comp) Stats() *stats.Log {
	return c.stats
}

// Counters returns the traffic counters of the endpoint.
func (c *Comp) Counters() stats.Counters {
	c.Lock()
	defer c.Unlock()

	return c.currentCounters()
}

func (c *Comp) currentCounters() stats.Counters {
	counters := c.counters
	counters.Sessions = c.conns.Sessions()

	return counters
}

// LoadSchedule enqueues the messages of a schedule document. An invalid
// document is rejected as a whole and the schedule stays unchanged.
func (c *Comp) LoadSchedule(doc *config.ScheduleDocument) error {
	c.Lock()
	defer c.Unlock()

	err := doc.Validate()
	if err != nil {
		c.log.WithError(err).Errorf("%s: schedule not loaded", c.name)
		return err
	}

	if doc.Sender != c.name {
		c.log.Warnf("%s: schedule document is for sender %q", c.name, doc.Sender)
	}

	for _, msg := range doc.Messages(c.name, c.localPort) {
		c.enqueue(msg)
	}

	c.log.Infof("%s: loaded %d messages", c.name, len(doc.MessageList))

	if c.state == Running {
		c.rearm(c.engine.CurrentTime())
	}

	return nil
}

// Enqueue adds a single message to the schedule.
func (c *Comp) Enqueue(msg message.Message) {
	c.Lock()
	defer c.Unlock()

	c.enqueue(msg)

	if c.state == Running {
		c.rearm(c.engine.CurrentTime())
	}
}

func (c *Comp) enqueue(msg message.Message) {
	c.schedule.Enqueue(msg)
	c.portToName[msg.ReceiverPort] = msg.Receiver
}

// PeerName returns the name of the endpoint known to listen on port.
func (c *Comp) PeerName(port int) (string, bool) {
	c.Lock()
	defer c.Unlock()

	name, ok := c.portToName[port]

	return name, ok
}

// OnStart binds and listens on the local port and arms the first connect
// timer.
func (c *Comp) OnStart() error {
	c.Lock()
	defer c.Unlock()

	err := c.conns.Listen()
	if err != nil {
		c.state = Crashed
		return fmt.Errorf("%s: listen on port %d: %w", c.name, c.localPort, err)
	}

	c.state = Running
	c.log.Infof("%s: listening on port %d", c.name, c.localPort)

	c.rearm(c.engine.CurrentTime())

	return nil
}

// OnStop closes every connection. The endpoint stops once all of them are
// closed.
func (c *Comp) OnStop() {
	c.Lock()
	defer c.Unlock()

	if c.state != Running && c.state != Starting {
		return
	}

	c.state = Stopping
	c.conns.CloseAll()
	c.finalizeIfDrained()
}

// OnCrash drops every connection without closing it.
func (c *Comp) OnCrash() {
	c.Lock()
	defer c.Unlock()

	c.state = Crashed
	c.conns.DropAll()
}

// OnFinish reports the counters and exports the records.
func (c *Comp) OnFinish() {
	c.Lock()
	defer c.Unlock()

	c.log.Infof("%s: %s", c.name, c.currentCounters())
	c.export()
}

func (c *Comp) finalizeIfDrained() {
	if c.state != Stopping || c.conns.OpenCount() > 0 {
		return
	}

	c.state = Stopped
	c.log.Infof("%s: stopped", c.name)
	c.export()
}

func (c *Comp) export() {
	err := c.stats.Export(c.sinks...)
	if err != nil {
		c.log.WithError(err).Errorf("%s: exporting results failed", c.name)
	}
}

// Handle processes the events of the endpoint.
func (c *Comp) Handle(e sim.Event) error {
	c.Lock()
	defer c.Unlock()

	if c.state == Stopped || c.state == Crashed {
		return nil
	}

	switch evt := e.(type) {
	case *ConnectDueEvent:
		c.handleConnectDue(evt)
	case *ConnectionEstablishedEvent:
		c.handleEstablished(evt)
	case *SendDueEvent:
		return c.handleSendDue(evt)
	case *DataArrivedEvent:
		c.handleDataArrived(evt)
	case *ConnectionClosedEvent:
		c.conns.OnClosed(evt.PeerPort, evt.ConnID)
		c.finalizeIfDrained()
	case *ConnectionFailedEvent:
		c.conns.OnFailure(evt.PeerPort, evt.ConnID, evt.Reason)
		c.finalizeIfDrained()
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (c *Comp) handleConnectDue(evt *ConnectDueEvent) {
	now := evt.Time()
	delete(c.armed, now)

	if c.state != Running {
		return
	}

	for _, port := range c.schedule.DrainDue(now) {
		conn, err := c.conns.EnsureConnection(port, c.portToName[port])
		if err != nil {
			c.log.WithError(err).Errorf("%s: no connection to port %d", c.name, port)
			continue
		}

		if conn.State == connection.Established {
			c.armSend(port, now)
		}
	}

	c.rearm(now)
}

func (c *Comp) handleEstablished(evt *ConnectionEstablishedEvent) {
	_, ok := c.conns.OnEstablished(evt.PeerPort)
	if !ok || c.state != Running {
		return
	}

	c.armSend(evt.PeerPort, evt.Time())
}

func (c *Comp) handleSendDue(evt *SendDueEvent) error {
	if c.state != Running {
		return nil
	}

	now := evt.Time()
	port := evt.PeerPort

	conn, found := c.conns.Get(port)
	if !found || conn.State != connection.Established {
		c.log.Debugf("%s: no established connection to port %d, send skipped",
			c.name, port)

		return nil
	}

	msg, ok := c.schedule.PeekEarliest(port)
	if !ok || msg.SendTime > now {
		c.log.Debugf("%s: nothing to send to port %d at %d", c.name, port, now)
		return nil
	}

	pkt := envelope.NewPacket(envelope.Encode(msg))

	// The message stays scheduled until the transport has taken it.
	err := c.conns.Send(port, pkt)
	if err != nil {
		return fmt.Errorf("%s: sending %s: %w", c.name, msg, err)
	}

	_, err = c.schedule.TakeEarliest(port, now)
	if err != nil {
		log.Panicf("%s: %s vanished from the schedule: %v", c.name, msg, err)
	}

	c.counters.PacketsSent++
	c.counters.BytesSent += pkt.TotalLength()

	c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosMsgSent, Item: msg})

	next, ok := c.schedule.PeekEarliest(port)
	if ok && next.SendTime <= now {
		c.armSend(port, now)
	}

	return nil
}

func (c *Comp) handleDataArrived(evt *DataArrivedEvent) {
	now := evt.Time()

	msg, err := envelope.Decode(evt.Packet)
	if err != nil {
		c.log.WithError(err).Warnf("%s: dropping packet from port %d",
			c.name, evt.PeerPort)

		return
	}

	delay := now - msg.SendTime
	if delay < 0 {
		c.log.Warnf("%s: %s arrived at %d, before it was sent", c.name, msg, now)
	}

	size := evt.Packet.TotalLength()

	c.stats.RecordDelivery(stats.DeliveryRecord{
		MsgID:           msg.ID,
		DelayMs:         int64(delay),
		PacketSizeB:     size,
		ReceivingTimeMs: int64(now),
	})
	c.counters.PacketsReceived++
	c.counters.BytesReceived += size

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosMsgDelivered,
		Item:   msg,
		Detail: delay,
	})

	if !msg.ReplyRequested || c.state != Running {
		return
	}

	reply, err := c.replies.Generate(msg, now, now)
	if err != nil {
		c.log.WithError(err).Errorf("%s: reply dropped", c.name)
		return
	}

	c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosReplyScheduled, Item: reply})

	c.rearm(now)
}

func (c *Comp) armSend(port int, now sim.VTimeInMs) {
	c.engine.Schedule(NewSendDueEvent(now, c, port))
}

// rearm makes sure a connect timer is pending for the earliest due time.
func (c *Comp) rearm(now sim.VTimeInMs) {
	if c.state != Running {
		return
	}

	for {
		t, ok := c.schedule.NextDueTime()
		if !ok {
			return
		}

		if t < now {
			ports := c.schedule.DrainDue(t)
			c.log.WithError(ErrScheduleInPast).Errorf(
				"%s: connect timer for %d (now %d) dropped, ports %v",
				c.name, t, now, ports)

			continue
		}

		if c.armed[t] {
			return
		}

		c.armed[t] = true
		c.engine.Schedule(NewConnectDueEvent(t, c))

		return
	}
}

// Snapshot is a consistent view of an endpoint.
type Snapshot struct {
	Name        string            `json:"name"`
	State       string            `json:"state"`
	LocalPort   int               `json:"localPort"`
	Now         sim.VTimeInMs     `json:"now"`
	Pending     int               `json:"pending"`
	Counters    stats.Counters    `json:"counters"`
	Deliveries  int               `json:"deliveries"`
	Replies     int               `json:"replies"`
	Connections []connection.Conn `json:"connections"`
}

// Snapshot returns the current view of the endpoint.
func (c *Comp) Snapshot() Snapshot {
	c.Lock()
	defer c.Unlock()

	return Snapshot{
		Name:        c.name,
		State:       c.state.String(),
		LocalPort:   c.localPort,
		Now:         c.engine.CurrentTime(),
		Pending:     c.schedule.Len(),
		Counters:    c.currentCounters(),
		Deliveries:  len(c.stats.Deliveries()),
		Replies:     len(c.stats.Replies()),
		Connections: c.conns.Snapshot(),
	}
}

type finishHandler struct {
	comp *Comp
}

func (h finishHandler) Handle(sim.VTimeInMs) {
	h.comp.OnFinish()
}
