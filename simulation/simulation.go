// Package simulation wires a scenario into a runnable simulation: one engine,
// one network, and one traffic endpoint per configured endpoint.
package simulation

import (
	"log"

	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/sarchlab/trafficapp/datarecording"
	"github.com/sarchlab/trafficapp/monitoring"
	"github.com/sarchlab/trafficapp/network"
	"github.com/sarchlab/trafficapp/sim"
	"github.com/sarchlab/trafficapp/tracing"
	"github.com/sarchlab/trafficapp/trafficapp"
)

// StopEvent asks every endpoint to stop.
type StopEvent struct {
	*sim.EventBase
}

// NewStopEvent creates a new StopEvent.
func NewStopEvent(t sim.VTimeInMs, handler sim.Handler) *StopEvent {
	return &StopEvent{EventBase: sim.NewEventBase(t, handler)}
}

// A Simulation owns the engine, the network and the endpoints of a scenario.
type Simulation struct {
	id   string
	name string
	log  *logging.Logger

	engine  *sim.SerialEngine
	network *network.Network
	stopAt  sim.VTimeInMs

	endpoints     []*trafficapp.Comp
	endpointIndex map[string]int

	dataRecorder datarecording.DataRecorder
	dbTracer     *tracing.DBTracer
	transit      *tracing.AverageTimeTracer
	monitor      *monitoring.Monitor
	progress     *monitoring.ProgressBar
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Name returns the name of the scenario.
func (s *Simulation) Name() string {
	return s.name
}

// Engine returns the engine used in the simulation.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// Network returns the network that connects the endpoints.
func (s *Simulation) Network() *network.Network {
	return s.network
}

// DataRecorder returns the recorder of the simulation. It is nil when SQLite
// recording is not enabled.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor of the simulation. It is nil when monitoring is
// disabled.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Transit returns the tracer that measures how long messages spend between
// the sender's transport and the receiver's decoder.
func (s *Simulation) Transit() *tracing.AverageTimeTracer {
	return s.transit
}

// Endpoints returns all endpoints in the order of the scenario.
func (s *Simulation) Endpoints() []*trafficapp.Comp {
	return s.endpoints
}

// GetEndpointByName returns the endpoint with the given name.
func (s *Simulation) GetEndpointByName(name string) *trafficapp.Comp {
	i, ok := s.endpointIndex[name]
	if !ok {
		log.Panicf("endpoint %s not found", name)
	}

	return s.endpoints[i]
}

func (s *Simulation) registerEndpoint(c *trafficapp.Comp) {
	if _, exists := s.endpointIndex[c.Name()]; exists {
		panic("endpoint " + c.Name() + " already registered")
	}

	s.endpoints = append(s.endpoints, c)
	s.endpointIndex[c.Name()] = len(s.endpoints) - 1
}

// Run starts every endpoint and runs the engine until no event is left. The
// end-of-simulation handlers run before Run returns.
func (s *Simulation) Run() error {
	for _, c := range s.endpoints {
		err := c.OnStart()
		if err != nil {
			s.log.WithError(err).Errorf("endpoint %s did not start", c.Name())
		}
	}

	if s.stopAt > 0 {
		s.engine.Schedule(NewStopEvent(s.stopAt, s))
	}

	err := s.engine.Run()

	s.engine.Finished()

	if s.progress != nil {
		s.monitor.CompleteProgressBar(s.progress)
	}

	return err
}

// Handle stops all endpoints when the stop time is reached.
func (s *Simulation) Handle(e sim.Event) error {
	switch e.(type) {
	case *StopEvent:
		s.log.Infof("stopping all endpoints at %d", e.Time())

		for _, c := range s.endpoints {
			c.OnStop()
		}
	default:
		log.Panicf("cannot handle event of type %T", e)
	}

	return nil
}

// Terminate releases the resources of the simulation.
func (s *Simulation) Terminate() {
	if s.dataRecorder == nil {
		return
	}

	s.dbTracer.Terminate()

	err := s.dataRecorder.Close()
	if err != nil {
		s.log.WithError(err).Error("closing data recorder")
	}
}
