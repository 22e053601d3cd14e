// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Station defaults. The address points at the spacecraft or a simulator.
const (
	DefaultAddress      = "192.168.1.10"
	DefaultPort         = 5000
	DefaultBufferSize   = 1024
	DefaultPollInterval = 10 * time.Second
	DefaultCommand      = "SET_ORBIT_POSITION"
	DefaultFraming      = "line"
	DefaultHistorySize  = 60
)

// Spacecraft configures the simulated spacecraft server.
type Spacecraft struct {
	Listen            string        `yaml:"listen"`
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
	PayloadFormat     string        `yaml:"payload_format"`
	Seed              int64         `yaml:"seed"`
}

// Config is the root configuration passed into the ground station loop.
type Config struct {
	Address      string        `yaml:"address"`
	Port         int           `yaml:"port"`
	BufferSize   int           `yaml:"buffer_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Command      string        `yaml:"command"`
	Framing      string        `yaml:"framing"`
	Simulate     bool          `yaml:"simulate"`
	Reconnect    bool          `yaml:"reconnect"`
	HistorySize  int           `yaml:"history_size"`
	LogLevel     string        `yaml:"log_level"`
	Spacecraft   Spacecraft    `yaml:"spacecraft"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Address:      DefaultAddress,
		Port:         DefaultPort,
		BufferSize:   DefaultBufferSize,
		PollInterval: DefaultPollInterval,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Command:      DefaultCommand,
		Framing:      DefaultFraming,
		HistorySize:  DefaultHistorySize,
		LogLevel:     "info",
		Spacecraft: Spacecraft{
			Listen:            ":5000",
			TelemetryInterval: 2 * time.Second,
			PayloadFormat:     "json",
		},
	}
}

// Endpoint returns address:port.
func (c *Config) Endpoint() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// Load reads the YAML config at configPath over the defaults, validates it
// against the CUE schema and applies environment overrides. An empty
// configPath yields the defaults; an empty cueSchemaPath uses the embedded
// schema.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from GROUNDSTATION_ADDRESS, GROUNDSTATION_PORT,
// POLL_INTERVAL and LOG_LEVEL.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("GROUNDSTATION_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("GROUNDSTATION_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GROUNDSTATION_PORT: %w", err)
		}
		cfg.Port = p
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Address == "" {
		errs = append(errs, errors.New("address must not be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.Command == "" {
		errs = append(errs, errors.New("command must not be empty"))
	}
	switch c.Framing {
	case "line", "length", "raw":
	default:
		errs = append(errs, fmt.Errorf("unknown framing %q", c.Framing))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("history_size must be positive, got %d", c.HistorySize))
	}
	switch c.Spacecraft.PayloadFormat {
	case "json", "literal":
	default:
		errs = append(errs, fmt.Errorf("unknown spacecraft payload_format %q", c.Spacecraft.PayloadFormat))
	}
	if c.Spacecraft.TelemetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("spacecraft telemetry_interval must be positive, got %s", c.Spacecraft.TelemetryInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
