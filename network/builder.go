package network

import (
	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/sarchlab/trafficapp/connection"
	"github.com/sarchlab/trafficapp/sim"
)

// Builder can build networks.
type Builder struct {
	engine         sim.Engine
	latency        sim.VTimeInMs
	connectLatency sim.VTimeInMs
	bandwidth      int
	framing        Framing
	decoyFrames    int
	headerBytes    int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		latency:        10,
		connectLatency: 10,
	}
}

// WithEngine sets the engine that the network schedules events on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithLatency sets the time a packet takes to reach the other end.
func (b Builder) WithLatency(latency sim.VTimeInMs) Builder {
	b.latency = latency
	return b
}

// WithConnectLatency sets the time a connection takes to be established.
func (b Builder) WithConnectLatency(latency sim.VTimeInMs) Builder {
	b.connectLatency = latency
	return b
}

// WithBandwidth sets how many bytes the network carries per millisecond. Zero
// means unlimited.
func (b Builder) WithBandwidth(bytesPerMs int) Builder {
	b.bandwidth = bytesPerMs
	return b
}

// WithFraming sets how packets are wrapped on the way.
func (b Builder) WithFraming(f Framing) Builder {
	b.framing = f
	return b
}

// WithDecoyFrames sets the number of decoy slices in sequence framing.
func (b Builder) WithDecoyFrames(n int) Builder {
	b.decoyFrames = n
	return b
}

// WithHeaderBytes adds an opaque header of the given size to every packet.
func (b Builder) WithHeaderBytes(n int) Builder {
	b.headerBytes = n
	return b
}

// Build creates a new network.
func (b Builder) Build(name string) *Network {
	b.engineMustBeGiven()

	return &Network{
		name:           name,
		engine:         b.engine,
		log:            logging.MustGetLogger("network:" + name),
		latency:        b.latency,
		connectLatency: b.connectLatency,
		bandwidth:      b.bandwidth,
		framer: &framer{
			mode:        b.framing,
			decoyFrames: b.decoyFrames,
			headerBytes: b.headerBytes,
		},
		names:     make(map[string]connection.Address),
		bindings:  make(map[endpointKey]*Socket),
		listeners: make(map[endpointKey]*Socket),
		links:     make(map[string]*link),
	}
}

func (b Builder) engineMustBeGiven() {
	if b.engine == nil {
		panic("engine is not given")
	}
}
