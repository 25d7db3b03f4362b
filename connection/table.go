// Package connection keeps track of the transport connections that an
// endpoint holds, one per peer port.
package connection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/sarchlab/trafficapp/envelope"
)

// State is the life-cycle stage of a connection.
type State int

// The states of a connection.
const (
	Unbound State = iota
	Bound
	Connecting
	Established
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Connecting:
		return "connecting"
	case Established:
		return "established"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsOpen tells if the connection still occupies the transport.
func (s State) IsOpen() bool {
	return s == Connecting || s == Established || s == Closing
}

// Conn is the connection to one peer port.
type Conn struct {
	ID       string  `json:"id"`
	PeerPort int     `json:"peerPort"`
	PeerName string  `json:"peerName"`
	Address  Address `json:"address"`
	State    State   `json:"state"`
}

// Table owns the connections of one endpoint.
type Table struct {
	name      string
	log       *logging.Logger
	transport Transport
	resolver  Resolver
	localAddr string
	localPort int

	bound    bool
	conns    map[int]*Conn
	sessions int
}

// Name returns the name of the table.
func (t *Table) Name() string {
	return t.name
}

// LocalPort returns the port that the endpoint listens on.
func (t *Table) LocalPort() int {
	return t.localPort
}

// Listen binds the local port and starts accepting connections on it.
func (t *Table) Listen() error {
	err := t.bind()
	if err != nil {
		return err
	}

	return t.transport.Listen(t.localPort)
}

func (t *Table) bind() error {
	if t.bound {
		return nil
	}

	err := t.transport.Bind(t.localAddr, t.localPort)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyBound):
		t.log.WithError(err).Warnf("%s reuses binding of port %d", t.name, t.localPort)
	default:
		return err
	}

	t.bound = true

	return nil
}

// EnsureConnection returns a usable connection to the peer. A connection that
// is established or still connecting is reused. Otherwise a new connection is
// started and the returned connection is in the Connecting state.
func (t *Table) EnsureConnection(peerPort int, peerName string) (*Conn, error) {
	c, found := t.conns[peerPort]
	if found && (c.State == Established || c.State == Connecting) {
		return c, nil
	}

	if !found {
		c = &Conn{PeerPort: peerPort, State: Unbound}
		t.conns[peerPort] = c
	}

	if peerName != "" {
		c.PeerName = peerName
	}

	err := t.bind()
	if err != nil {
		return nil, fmt.Errorf("%w: bind: %w", ErrNoConnection, err)
	}

	c.State = Bound

	addr, err := t.resolver.Resolve(c.PeerName)
	if err == nil && addr.IsUnspecified() {
		err = fmt.Errorf("address %q is unspecified", addr)
	}

	if err != nil {
		t.log.WithError(err).Errorf(
			"%s cannot resolve peer %q on port %d", t.name, c.PeerName, peerPort)

		return nil, fmt.Errorf("%w: %w: %q: %v",
			ErrNoConnection, ErrUnresolved, c.PeerName, err)
	}

	c.Address = addr
	c.ID = fmt.Sprintf("%s.conn[%d].%d", t.name, peerPort, t.sessions)

	err = t.transport.Connect(c.ID, addr, peerPort)
	if err != nil {
		c.State = Closed
		return nil, fmt.Errorf("%w: connect: %w", ErrNoConnection, err)
	}

	c.State = Connecting
	t.sessions++

	t.log.Infof("%s connecting to %s (%s:%d)", t.name, c.PeerName, addr, peerPort)

	return c, nil
}

// OnEstablished marks a connecting connection as established. It returns false
// if there is no such connection.
func (t *Table) OnEstablished(peerPort int) (*Conn, bool) {
	c, found := t.conns[peerPort]
	if !found {
		t.log.Warnf("%s: established notice for unknown port %d", t.name, peerPort)
		return nil, false
	}

	switch c.State {
	case Connecting:
		c.State = Established
		return c, true
	case Established:
		return c, true
	default:
		t.log.Warnf("%s: established notice for %s connection on port %d",
			t.name, c.State, peerPort)

		return c, false
	}
}

// Send hands a packet to the established connection of the peer.
func (t *Table) Send(peerPort int, pkt *envelope.Packet) error {
	c, found := t.conns[peerPort]
	if !found || c.State != Established {
		return fmt.Errorf("%w: port %d", ErrNoConnection, peerPort)
	}

	return t.transport.Send(c.ID, pkt)
}

// Close starts closing the connection to the peer.
func (t *Table) Close(peerPort int) {
	c, found := t.conns[peerPort]
	if !found || (c.State != Established && c.State != Connecting) {
		return
	}

	c.State = Closing

	err := t.transport.Close(c.ID)
	if err != nil {
		t.log.WithError(err).Warnf("%s: closing %s failed", t.name, c.ID)
		c.State = Closed
	}
}

// OnClosed marks the connection as closed. A notice about an earlier
// connection to the same port is ignored and false is returned.
func (t *Table) OnClosed(peerPort int, connID string) bool {
	c, ok := t.current(peerPort, connID)
	if !ok {
		return false
	}

	c.State = Closed

	return true
}

// OnFailure marks the connection as closed after a transport failure. A
// notice about an earlier connection to the same port is ignored and false is
// returned.
func (t *Table) OnFailure(peerPort int, connID, reason string) bool {
	c, ok := t.current(peerPort, connID)
	if !ok {
		return false
	}

	t.log.Warnf("%s: connection %s to port %d failed: %s",
		t.name, c.ID, peerPort, reason)

	c.State = Closed

	return true
}

func (t *Table) current(peerPort int, connID string) (*Conn, bool) {
	c, found := t.conns[peerPort]
	if !found {
		return nil, false
	}

	if c.ID != connID {
		t.log.Debugf("%s: stale notice for %s, port %d is now on %q",
			t.name, connID, peerPort, c.ID)

		return nil, false
	}

	return c, true
}

// CloseAll starts closing every connection that is connecting or
// established.
func (t *Table) CloseAll() {
	for _, port := range t.ports() {
		t.Close(port)
	}
}

// DropAll forgets every connection without notifying the transport.
func (t *Table) DropAll() {
	for _, c := range t.conns {
		c.State = Closed
	}
}

// OpenCount returns the number of connections that are not closed yet.
func (t *Table) OpenCount() int {
	n := 0

	for _, c := range t.conns {
		if c.State.IsOpen() {
			n++
		}
	}

	return n
}

// Get returns the connection to the peer port.
func (t *Table) Get(peerPort int) (*Conn, bool) {
	c, found := t.conns[peerPort]
	return c, found
}

// Sessions returns how many connections have been started.
func (t *Table) Sessions() int {
	return t.sessions
}

// Snapshot returns copies of all the connections ordered by peer port.
func (t *Table) Snapshot() []Conn {
	out := make([]Conn, 0, len(t.conns))
	for _, port := range t.ports() {
		out = append(out, *t.conns[port])
	}

	return out
}

func (t *Table) ports() []int {
	ports := make([]int, 0, len(t.conns))
	for port := range t.conns {
		ports = append(ports, port)
	}

	sort.Ints(ports)

	return ports
}
