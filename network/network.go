// Package network provides an in-memory network that carries the traffic of
// simulated endpoints. It resolves endpoint names and delivers packets after a
// fixed latency.
package network

import (
	"fmt"
	"sync"

	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/sarchlab/trafficapp/connection"
	"github.com/sarchlab/trafficapp/sim"
)

type endpointKey struct {
	addr connection.Address
	port int
}

type link struct {
	src         *Socket
	dst         *Socket
	dstPort     int
	lastArrival sim.VTimeInMs
}

// Stats counts what the network has carried.
type Stats struct {
	Connects       int `json:"connects"`
	Refused        int `json:"refused"`
	PacketsCarried int `json:"packetsCarried"`
	BytesCarried   int `json:"bytesCarried"`
	OpenLinks      int `json:"openLinks"`
}

// Network connects sockets.
type Network struct {
	sync.Mutex

	name   string
	engine sim.Engine
	log    *logging.Logger

	latency        sim.VTimeInMs
	connectLatency sim.VTimeInMs
	bandwidth      int
	framer         *framer

	names     map[string]connection.Address
	bindings  map[endpointKey]*Socket
	listeners map[endpointKey]*Socket
	links     map[string]*link
	stats     Stats
}

// Name returns the name of the network.
func (n *Network) Name() string {
	return n.name
}

// Resolve returns the address of the named endpoint.
func (n *Network) Resolve(name string) (connection.Address, error) {
	n.Lock()
	defer n.Unlock()

	addr, ok := n.names[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", connection.ErrUnresolved, name)
	}

	return addr, nil
}

// Register makes a name resolvable without attaching a socket.
func (n *Network) Register(name string, addr connection.Address) {
	n.Lock()
	defer n.Unlock()

	n.names[name] = addr
}

// NewSocket attaches a socket for the named endpoint at addr. The name becomes
// resolvable. Events are delivered to the handler set with SetHandler.
func (n *Network) NewSocket(name string, addr connection.Address) *Socket {
	n.Lock()
	defer n.Unlock()

	n.names[name] = addr

	return &Socket{
		name:    name,
		addr:    addr,
		network: n,
	}
}

// Stats returns what the network has carried so far.
func (n *Network) Stats() Stats {
	n.Lock()
	defer n.Unlock()

	s := n.stats
	s.OpenLinks = len(n.links)

	return s
}

func (n *Network) transferTime(size int) sim.VTimeInMs {
	t := n.latency
	if n.bandwidth > 0 {
		t += sim.VTimeInMs((size + n.bandwidth - 1) / n.bandwidth)
	}

	return t
}
