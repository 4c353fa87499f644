package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/temscript/temscript-go/pkg/dispatch"
	"github.com/temscript/temscript-go/pkg/transport"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "90s" or "2m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the instrument server configuration.
type Config struct {
	// Address the server listens on, host:port.
	Address string `yaml:"address"`

	// MaxMessageSize caps the size of a single protocol frame in bytes.
	MaxMessageSize int `yaml:"maxMessageSize"`

	// OperationTimeout bounds a single driver operation.
	OperationTimeout Duration `yaml:"operationTimeout"`

	// ProtocolLog is the path of the protocol event log file. Empty
	// disables protocol logging.
	ProtocolLog string `yaml:"protocolLog"`

	// Simulator configures the built-in simulated instrument.
	Simulator SimulatorConfig `yaml:"simulator"`
}

// SimulatorConfig tunes the simulated instrument driver.
type SimulatorConfig struct {
	// StartupDelay keeps the server answering BUSY for non-startup
	// capabilities for this long after launch, mimicking instrument
	// initialization.
	StartupDelay Duration `yaml:"startupDelay"`
}

// Default returns a configuration with all fields set to their
// built-in defaults.
func Default() *Config {
	return &Config{
		Address:          fmt.Sprintf(":%d", transport.DefaultPort),
		MaxMessageSize:   transport.DefaultMaxMessageSize,
		OperationTimeout: Duration(dispatch.DefaultOperationTimeout),
	}
}

// Parse parses a configuration from YAML bytes. Fields absent from the
// document keep their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Address == "" {
		return fmt.Errorf("config: address must not be empty")
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("config: maxMessageSize must be positive, got %d", c.MaxMessageSize)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("config: operationTimeout must be positive, got %s", c.OperationTimeout.Std())
	}
	if c.Simulator.StartupDelay < 0 {
		return fmt.Errorf("config: simulator.startupDelay must not be negative, got %s", c.Simulator.StartupDelay.Std())
	}
	return nil
}
