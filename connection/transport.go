package connection

import (
	"errors"

	"github.com/sarchlab/trafficapp/envelope"
)

// Errors returned by the table and its collaborators.
var (
	// ErrAlreadyBound is returned by a Transport when the local port is
	// already bound. The existing binding is reused.
	ErrAlreadyBound = errors.New("local port already bound")

	// ErrUnresolved is returned when a peer name does not map to a usable
	// address.
	ErrUnresolved = errors.New("peer address not resolved")

	// ErrNoConnection is returned when no connection to the peer can be
	// opened.
	ErrNoConnection = errors.New("no connection to peer")
)

// Address is the network address of an endpoint.
type Address string

// IsUnspecified tells if the address cannot be connected to.
func (a Address) IsUnspecified() bool {
	switch a {
	case "", "0.0.0.0", "::":
		return true
	default:
		return false
	}
}

// A Resolver maps endpoint names to addresses.
type Resolver interface {
	Resolve(name string) (Address, error)
}

// A Transport opens and uses connections on behalf of one endpoint.
//
// Connect and Close only start the operation. The outcome is reported later
// through events scheduled on the simulation engine.
type Transport interface {
	Bind(addr string, port int) error
	Listen(port int) error
	Connect(connID string, addr Address, port int) error
	Send(connID string, pkt *envelope.Packet) error
	Close(connID string) error
}
