package trafficapp

import (
	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/sarchlab/trafficapp/connection"
	"github.com/sarchlab/trafficapp/schedule"
	"github.com/sarchlab/trafficapp/sim"
	"github.com/sarchlab/trafficapp/stats"
)

// Builder can build traffic endpoints.
type Builder struct {
	engine    sim.Engine
	transport connection.Transport
	resolver  connection.Resolver
	localAddr string
	localPort int
	sinks     []stats.Sink
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		localAddr: "0.0.0.0",
	}
}

// WithEngine sets the engine that drives the endpoint.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithTransport sets the transport that carries the traffic.
func (b Builder) WithTransport(t connection.Transport) Builder {
	b.transport = t
	return b
}

// WithResolver sets the resolver that maps peer names to addresses.
func (b Builder) WithResolver(r connection.Resolver) Builder {
	b.resolver = r
	return b
}

// WithLocalAddress sets the address to bind.
func (b Builder) WithLocalAddress(addr string) Builder {
	b.localAddr = addr
	return b
}

// WithLocalPort sets the port to listen on.
func (b Builder) WithLocalPort(port int) Builder {
	b.localPort = port
	return b
}

// WithSinks sets where the records are exported to.
func (b Builder) WithSinks(sinks ...stats.Sink) Builder {
	b.sinks = sinks
	return b
}

// Build creates a new endpoint. The endpoint exports its records when the
// engine finishes.
func (b Builder) Build(name string) *Comp {
	b.engineMustBeGiven()
	b.localPortMustBeGiven()

	c := &Comp{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		engine:       b.engine,
		log:          logging.MustGetLogger("trafficapp:" + name),
		localPort:    b.localPort,
		schedule:     schedule.New(),
		stats:        stats.NewLog(),
		sinks:        b.sinks,
		portToName:   make(map[int]string),
		armed:        make(map[sim.VTimeInMs]bool),
	}

	c.conns = connection.MakeBuilder().
		WithTransport(b.transport).
		WithResolver(b.resolver).
		WithLocalAddress(b.localAddr).
		WithLocalPort(b.localPort).
		Build(name)

	c.replies = NewReplyGenerator(
		name, b.localPort, c.schedule, c.stats, c.portToName)

	b.engine.RegisterSimulationEndHandler(finishHandler{comp: c})

	return c
}

func (b Builder) engineMustBeGiven() {
	if b.engine == nil {
		panic("engine is not given")
	}
}

func (b Builder) localPortMustBeGiven() {
	if b.localPort <= 0 {
		panic("local port is not given")
	}
}
