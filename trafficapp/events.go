package trafficapp

import (
	"github.com/sarchlab/trafficapp/envelope"
	"github.com/sarchlab/trafficapp/sim"
)

// ConnectDueEvent fires when the schedule has messages due. The endpoint
// connects to every peer that is due at the time of the event.
type ConnectDueEvent struct {
	*sim.EventBase
}

// NewConnectDueEvent creates a new ConnectDueEvent.
func NewConnectDueEvent(t sim.VTimeInMs, handler sim.Handler) *ConnectDueEvent {
	return &ConnectDueEvent{EventBase: sim.NewEventBase(t, handler)}
}

// ConnectionEstablishedEvent tells that the connection to the peer port is
// ready for sending.
type ConnectionEstablishedEvent struct {
	*sim.EventBase
	PeerPort int
}

// NewConnectionEstablishedEvent creates a new ConnectionEstablishedEvent.
func NewConnectionEstablishedEvent(
	t sim.VTimeInMs,
	handler sim.Handler,
	peerPort int,
) *ConnectionEstablishedEvent {
	return &ConnectionEstablishedEvent{
		EventBase: sim.NewEventBase(t, handler),
		PeerPort:  peerPort,
	}
}

// SendDueEvent asks the endpoint to send the earliest due message of a peer.
type SendDueEvent struct {
	*sim.EventBase
	PeerPort int
}

// NewSendDueEvent creates a new SendDueEvent.
func NewSendDueEvent(
	t sim.VTimeInMs,
	handler sim.Handler,
	peerPort int,
) *SendDueEvent {
	return &SendDueEvent{
		EventBase: sim.NewEventBase(t, handler),
		PeerPort:  peerPort,
	}
}

// DataArrivedEvent delivers a packet received from the connection with the
// remote port.
type DataArrivedEvent struct {
	*sim.EventBase
	PeerPort int
	Packet   *envelope.Packet
}

// NewDataArrivedEvent creates a new DataArrivedEvent.
func NewDataArrivedEvent(
	t sim.VTimeInMs,
	handler sim.Handler,
	peerPort int,
	pkt *envelope.Packet,
) *DataArrivedEvent {
	return &DataArrivedEvent{
		EventBase: sim.NewEventBase(t, handler),
		PeerPort:  peerPort,
		Packet:    pkt,
	}
}

// ConnectionClosedEvent tells that the connection ConnID to the peer port is
// closed.
type ConnectionClosedEvent struct {
	*sim.EventBase
	PeerPort int
	ConnID   string
}

// NewConnectionClosedEvent creates a new ConnectionClosedEvent.
func NewConnectionClosedEvent(
	t sim.VTimeInMs,
	handler sim.Handler,
	peerPort int,
	connID string,
) *ConnectionClosedEvent {
	return &ConnectionClosedEvent{
		EventBase: sim.NewEventBase(t, handler),
		PeerPort:  peerPort,
		ConnID:    connID,
	}
}

// ConnectionFailedEvent tells that the connection ConnID to the peer port
// could not be established or broke.
type ConnectionFailedEvent struct {
	*sim.EventBase
	PeerPort int
	ConnID   string
	Reason   string
}

// NewConnectionFailedEvent creates a new ConnectionFailedEvent.
func NewConnectionFailedEvent(
	t sim.VTimeInMs,
	handler sim.Handler,
	peerPort int,
	connID string,
	reason string,
) *ConnectionFailedEvent {
	return &ConnectionFailedEvent{
		EventBase: sim.NewEventBase(t, handler),
		PeerPort:  peerPort,
		ConnID:    connID,
		Reason:    reason,
	}
}
