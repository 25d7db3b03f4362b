package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Framing modes understood by the in-memory network.
var FramingModes = []string{"direct", "slice", "sequence", "mixed"}

// NetworkConfig describes the in-memory network that connects the endpoints.
type NetworkConfig struct {
	LatencyMs           int64  `toml:"latency_ms"`
	ConnectLatencyMs    int64  `toml:"connect_latency_ms"`
	BandwidthBytesPerMs int    `toml:"bandwidth_bytes_per_ms"`
	Framing             string `toml:"framing"`
	DecoyFrames         int    `toml:"decoy_frames"`
	HeaderBytes         int    `toml:"header_bytes"`
}

// MonitorConfig controls the monitoring server.
type MonitorConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// EndpointConfig describes one traffic endpoint.
type EndpointConfig struct {
	Name     string `toml:"name"`
	Address  string `toml:"address"`
	Port     int    `toml:"port"`
	Schedule string `toml:"schedule"`
}

// Scenario is a complete simulation setup.
type Scenario struct {
	Name         string           `toml:"name"`
	OutputDir    string           `toml:"output_dir"`
	StopAtMs     int64            `toml:"stop_at_ms"`
	RecordSQLite string           `toml:"record_sqlite"`
	Network      NetworkConfig    `toml:"network"`
	Monitor      MonitorConfig    `toml:"monitor"`
	Endpoints    []EndpointConfig `toml:"endpoint"`
}

// DefaultScenario returns a scenario without endpoints and with default
// network parameters.
func DefaultScenario() Scenario {
	return Scenario{
		Name:      "trafficsim",
		OutputDir: "results",
		Network: NetworkConfig{
			LatencyMs:        10,
			ConnectLatencyMs: 10,
			Framing:          "direct",
		},
	}
}

// ParseScenario decodes a TOML scenario. Relative schedule paths are resolved
// against baseDir.
func ParseScenario(data string, baseDir string) (*Scenario, error) {
	s := DefaultScenario()

	meta, err := toml.Decode(data, &s)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	undecoded := meta.Undecoded()
	if len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, &ConfigError{
			Field: strings.Join(keys, ", "),
			Err:   errors.New("unknown keys"),
		}
	}

	for i := range s.Endpoints {
		e := &s.Endpoints[i]
		if e.Address == "" {
			e.Address = fmt.Sprintf("10.0.0.%d", i+1)
		}

		if e.Schedule != "" && !filepath.IsAbs(e.Schedule) {
			e.Schedule = filepath.Join(baseDir, e.Schedule)
		}
	}

	err = s.Validate()
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// LoadScenarioFile reads the scenario at path.
func LoadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	s, err := ParseScenario(string(data), filepath.Dir(path))
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}

		return nil, err
	}

	return s, nil
}

// Validate checks the scenario for values the simulation cannot run with.
func (s *Scenario) Validate() error {
	if len(s.Endpoints) == 0 {
		return &ConfigError{Field: "endpoint", Err: ErrMissingField}
	}

	if s.StopAtMs < 0 {
		return invalid("stop_at_ms", s.StopAtMs)
	}

	err := s.Network.validate()
	if err != nil {
		return err
	}

	if s.Monitor.Port < 0 || s.Monitor.Port > 65535 {
		return invalid("monitor.port", s.Monitor.Port)
	}

	names := make(map[string]bool)
	ports := make(map[int]bool)

	for i, e := range s.Endpoints {
		field := func(name string) string {
			return fmt.Sprintf("endpoint[%d].%s", i, name)
		}

		switch {
		case e.Name == "":
			return &ConfigError{Field: field("name"), Err: ErrMissingField}
		case names[e.Name]:
			return &ConfigError{Field: field("name"),
				Err: fmt.Errorf("%w: duplicate name %q", ErrInvalidValue, e.Name)}
		case e.Port <= 0 || e.Port > 65535:
			return &ConfigError{Field: field("port"),
				Err: fmt.Errorf("%w %d", ErrInvalidValue, e.Port)}
		case ports[e.Port]:
			return &ConfigError{Field: field("port"),
				Err: fmt.Errorf("%w: duplicate port %d", ErrInvalidValue, e.Port)}
		}

		names[e.Name] = true
		ports[e.Port] = true
	}

	return nil
}

func (n NetworkConfig) validate() error {
	switch {
	case n.LatencyMs < 0:
		return invalid("network.latency_ms", n.LatencyMs)
	case n.ConnectLatencyMs < 0:
		return invalid("network.connect_latency_ms", n.ConnectLatencyMs)
	case n.BandwidthBytesPerMs < 0:
		return invalid("network.bandwidth_bytes_per_ms", n.BandwidthBytesPerMs)
	case n.DecoyFrames < 0:
		return invalid("network.decoy_frames", n.DecoyFrames)
	case n.HeaderBytes < 0:
		return invalid("network.header_bytes", n.HeaderBytes)
	}

	for _, m := range FramingModes {
		if m == n.Framing {
			return nil
		}
	}

	return invalid("network.framing", n.Framing)
}
