package simulation

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/xid"
	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/sarchlab/trafficapp/config"
	"github.com/sarchlab/trafficapp/connection"
	"github.com/sarchlab/trafficapp/datarecording"
	"github.com/sarchlab/trafficapp/monitoring"
	"github.com/sarchlab/trafficapp/network"
	"github.com/sarchlab/trafficapp/sim"
	"github.com/sarchlab/trafficapp/stats"
	"github.com/sarchlab/trafficapp/tracing"
	"github.com/sarchlab/trafficapp/trafficapp"
)

// Builder can be used to build a simulation.
type Builder struct {
	scenario    *config.Scenario
	outputDir   string
	monitorOn   bool
	openBrowser bool
	logEvents   bool
}

// MakeBuilder creates a new builder. Monitoring follows the scenario unless
// it is turned off explicitly.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: true,
	}
}

// WithScenario sets the scenario to simulate.
func (b Builder) WithScenario(s *config.Scenario) Builder {
	b.scenario = s
	return b
}

// WithOutputDir overrides the output directory of the scenario.
func (b Builder) WithOutputDir(dir string) Builder {
	b.outputDir = dir
	return b
}

// WithoutMonitoring disables the monitoring server even if the scenario
// enables it.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithBrowser opens the monitoring page in a browser once the server starts.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithEventLogging logs every event at debug level.
func (b Builder) WithEventLogging() Builder {
	b.logEvents = true
	return b
}

// Build builds the simulation. Endpoints whose schedule cannot be loaded start
// with an empty schedule.
func (b Builder) Build() *Simulation {
	b.scenarioMustBeGiven()

	sc := b.scenario

	outputDir := sc.OutputDir
	if b.outputDir != "" {
		outputDir = b.outputDir
	}

	s := &Simulation{
		id:            xid.New().String(),
		name:          sc.Name,
		log:           logging.MustGetLogger("simulation:" + sc.Name),
		engine:        sim.NewSerialEngine(),
		stopAt:        sim.VTimeInMs(sc.StopAtMs),
		endpointIndex: make(map[string]int),
	}

	if b.logEvents {
		s.engine.AcceptHook(
			sim.NewEventLogger(logging.MustGetLogger("sim:" + sc.Name)))
	}

	s.network = b.buildNetwork(s.engine)

	if sc.RecordSQLite != "" {
		s.dataRecorder = b.buildRecorder(outputDir, sc.RecordSQLite)
	}

	s.transit = tracing.NewAverageTimeTracer(s.engine,
		func(t tracing.Task) bool { return t.Kind == tracing.TaskKindMsg })
	if s.dataRecorder != nil {
		s.dbTracer = tracing.NewDBTracer(s.engine, s.dataRecorder)
	}

	for _, ep := range sc.Endpoints {
		c := b.buildEndpoint(s, ep, outputDir)
		s.registerEndpoint(c)

		tracing.CollectTrace(c, s.transit)
		if s.dbTracer != nil {
			tracing.CollectTrace(c, s.dbTracer)
		}
	}

	if b.monitorOn && sc.Monitor.Enabled {
		b.startMonitor(s, sc.Monitor.Port)
	}

	return s
}

func (b Builder) buildNetwork(engine sim.Engine) *network.Network {
	cfg := b.scenario.Network

	framing, err := network.ParseFraming(cfg.Framing)
	if err != nil {
		log.Panic(err)
	}

	return network.MakeBuilder().
		WithEngine(engine).
		WithLatency(sim.VTimeInMs(cfg.LatencyMs)).
		WithConnectLatency(sim.VTimeInMs(cfg.ConnectLatencyMs)).
		WithBandwidth(cfg.BandwidthBytesPerMs).
		WithFraming(framing).
		WithDecoyFrames(cfg.DecoyFrames).
		WithHeaderBytes(cfg.HeaderBytes).
		Build(b.scenario.Name + ".Network")
}

func (b Builder) buildRecorder(
	outputDir, name string,
) datarecording.DataRecorder {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(outputDir, name)
	}

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		log.Panic(err)
	}

	return datarecording.New(path)
}

func (b Builder) buildEndpoint(
	s *Simulation,
	ep config.EndpointConfig,
	outputDir string,
) *trafficapp.Comp {
	sinks := []stats.Sink{stats.JSONFileSink(outputDir, ep.Name)}
	if s.dataRecorder != nil {
		sinks = append(sinks, stats.NewRecorderSink(s.dataRecorder, ep.Name))
	}

	socket := s.network.NewSocket(ep.Name, connection.Address(ep.Address))

	c := trafficapp.MakeBuilder().
		WithEngine(s.engine).
		WithTransport(socket).
		WithResolver(s.network).
		WithLocalAddress(ep.Address).
		WithLocalPort(ep.Port).
		WithSinks(sinks...).
		Build(ep.Name)

	socket.SetHandler(c)

	if ep.Schedule == "" {
		return c
	}

	doc, err := config.LoadScheduleFile(ep.Schedule)
	if err == nil {
		err = c.LoadSchedule(doc)
	}

	if err != nil {
		s.log.WithError(err).
			Errorf("endpoint %s starts with an empty schedule", ep.Name)
	}

	return c
}

func (b Builder) startMonitor(s *Simulation, port int) {
	s.monitor = monitoring.NewMonitor().
		WithPortNumber(port).
		WithBrowser(b.openBrowser)
	s.monitor.RegisterEngine(s.engine)
	s.monitor.RegisterNetwork(s.network)

	total := 0
	for _, c := range s.endpoints {
		s.monitor.RegisterEndpoint(c)
		total += c.Snapshot().Pending
	}

	bar := s.monitor.CreateProgressBar("Messages", uint64(total))
	s.progress = bar

	for _, c := range s.endpoints {
		c.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			switch ctx.Pos {
			case trafficapp.HookPosMsgSent:
				bar.IncrementFinished(1)
			case trafficapp.HookPosReplyScheduled:
				bar.IncrementTotal(1)
			}
		}))
	}

	s.monitor.StartServer()
}

func (b Builder) scenarioMustBeGiven() {
	if b.scenario == nil {
		panic("scenario is not given")
	}
}
