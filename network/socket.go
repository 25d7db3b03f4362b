package network

import (
	"fmt"

	"github.com/sarchlab/trafficapp/connection"
	"github.com/sarchlab/trafficapp/envelope"
	"github.com/sarchlab/trafficapp/sim"
	"github.com/sarchlab/trafficapp/trafficapp"
)

// Socket is the transport of one endpoint.
type Socket struct {
	name    string
	addr    connection.Address
	network *Network
	handler sim.Handler

	port int
}

// SetHandler sets the component that receives the events of the socket.
func (s *Socket) SetHandler(h sim.Handler) {
	s.handler = h
}

// Address returns the address of the socket.
func (s *Socket) Address() connection.Address {
	return s.addr
}

func (s *Socket) key(port int) endpointKey {
	return endpointKey{addr: s.addr, port: port}
}

// Bind reserves the local port.
func (s *Socket) Bind(addr string, port int) error {
	a := connection.Address(addr)
	if !a.IsUnspecified() && a != s.addr {
		return fmt.Errorf("%s cannot bind foreign address %s", s.name, addr)
	}

	n := s.network
	n.Lock()
	defer n.Unlock()

	if _, taken := n.bindings[s.key(port)]; taken {
		return fmt.Errorf("%w: %s:%d", connection.ErrAlreadyBound, s.addr, port)
	}

	n.bindings[s.key(port)] = s
	s.port = port

	return nil
}

// Listen accepts connections on a bound port.
func (s *Socket) Listen(port int) error {
	n := s.network
	n.Lock()
	defer n.Unlock()

	if n.bindings[s.key(port)] != s {
		return fmt.Errorf("%s: port %d is not bound", s.name, port)
	}

	n.listeners[s.key(port)] = s

	return nil
}

// Connect opens a connection to a listening port. The outcome is reported to
// the handler after the connect latency.
func (s *Socket) Connect(connID string, addr connection.Address, port int) error {
	n := s.network
	n.Lock()
	defer n.Unlock()

	if _, exists := n.links[connID]; exists {
		return fmt.Errorf("connection %s already exists", connID)
	}

	now := n.engine.CurrentTime()
	at := now + n.connectLatency

	dst, listening := n.listeners[endpointKey{addr: addr, port: port}]
	if !listening {
		n.stats.Refused++
		n.engine.Schedule(trafficapp.NewConnectionFailedEvent(
			at, s.handler, port, connID, "connection refused"))

		return nil
	}

	n.links[connID] = &link{
		src:     s,
		dst:     dst,
		dstPort: port,
	}
	n.stats.Connects++

	n.engine.Schedule(trafficapp.NewConnectionEstablishedEvent(at, s.handler, port))

	return nil
}

// Send delivers a packet to the other end of the connection after the
// transfer time. Packets of one connection arrive in order.
func (s *Socket) Send(connID string, pkt *envelope.Packet) error {
	n := s.network
	n.Lock()
	defer n.Unlock()

	l, ok := n.links[connID]
	if !ok || l.src != s {
		return fmt.Errorf("%s: unknown connection %s", s.name, connID)
	}

	framed := n.framer.frame(pkt)

	now := n.engine.CurrentTime()
	arrival := now + n.transferTime(framed.TotalLength())
	if arrival < l.lastArrival {
		arrival = l.lastArrival
	}

	l.lastArrival = arrival

	n.stats.PacketsCarried++
	n.stats.BytesCarried += framed.TotalLength()

	n.log.Debugf("%s -> %s:%d %s arrives at %d",
		s.name, l.dst.addr, l.dstPort, framed, arrival)

	n.engine.Schedule(trafficapp.NewDataArrivedEvent(
		arrival, l.dst.handler, s.port, framed))

	return nil
}

// Close closes the connection. The handler is told after the latency.
func (s *Socket) Close(connID string) error {
	n := s.network
	n.Lock()
	defer n.Unlock()

	l, ok := n.links[connID]
	if !ok || l.src != s {
		return fmt.Errorf("%s: unknown connection %s", s.name, connID)
	}

	delete(n.links, connID)

	at := n.engine.CurrentTime() + n.latency
	if at < l.lastArrival {
		at = l.lastArrival
	}

	n.engine.Schedule(trafficapp.NewConnectionClosedEvent(
		at, s.handler, l.dstPort, connID))

	return nil
}
