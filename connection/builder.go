package connection

import "github.com/skycoin/skycoin/src/util/logging"

// Builder can build connection tables.
type Builder struct {
	transport Transport
	resolver  Resolver
	localAddr string
	localPort int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		localAddr: "0.0.0.0",
	}
}

// WithTransport sets the transport that carries the connections.
func (b Builder) WithTransport(t Transport) Builder {
	b.transport = t
	return b
}

// WithResolver sets the resolver that maps peer names to addresses.
func (b Builder) WithResolver(r Resolver) Builder {
	b.resolver = r
	return b
}

// WithLocalAddress sets the address to bind.
func (b Builder) WithLocalAddress(addr string) Builder {
	b.localAddr = addr
	return b
}

// WithLocalPort sets the port to bind and listen on.
func (b Builder) WithLocalPort(port int) Builder {
	b.localPort = port
	return b
}

// Build creates a new table.
func (b Builder) Build(name string) *Table {
	b.transportMustBeGiven()
	b.resolverMustBeGiven()

	return &Table{
		name:      name,
		log:       logging.MustGetLogger("connection:" + name),
		transport: b.transport,
		resolver:  b.resolver,
		localAddr: b.localAddr,
		localPort: b.localPort,
		conns:     make(map[int]*Conn),
	}
}

func (b Builder) transportMustBeGiven() {
	if b.transport == nil {
		panic("transport is not given")
	}
}

func (b Builder) resolverMustBeGiven() {
	if b.resolver == nil {
		panic("resolver is not given")
	}
}
