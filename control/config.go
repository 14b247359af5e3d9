// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Host configuration: YAML file, LINUXSERVER_* environment overrides and
// built-in defaults, decoded with mapstructure and checked by validator.

package control

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. LINUXSERVER_LISTENER_PORT.
const EnvPrefix = "LINUXSERVER"

// Config is the complete host configuration.
//
// Sources, highest precedence first:
//  1. Environment variables (LINUXSERVER_*)
//  2. Configuration file
//  3. Default values
type Config struct {
	Listener   ListenerConfig   `mapstructure:"listener"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Server     ServerConfig     `mapstructure:"server"`
}

// ListenerConfig configures the connection acceptor.
type ListenerConfig struct {
	// Address is the IPv4 address to bind.
	Address string `mapstructure:"address" validate:"required,ipv4"`

	// Port 0 binds an ephemeral port.
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`

	Backlog   int `mapstructure:"backlog" validate:"gt=0"`
	MaxEvents int `mapstructure:"max_events" validate:"gt=0"`

	// AcceptRate caps accepted connections per second; 0 means unlimited.
	AcceptRate  float64 `mapstructure:"accept_rate" validate:"gte=0"`
	AcceptBurst int     `mapstructure:"accept_burst" validate:"gte=0"`
}

// DispatcherConfig configures the worker pool.
type DispatcherConfig struct {
	// Workers of 0 selects the default; negative counts clamp to 1.
	Workers      int           `mapstructure:"workers" validate:"gte=1"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`

	// Strategy is notify (condition variable) or poll (bounded sleeps).
	Strategy string `mapstructure:"strategy" validate:"required,oneof=notify poll"`

	// Status is the requested run state; changing it in a watched file
	// suspends or resumes dispatch without a restart.
	Status string `mapstructure:"status" validate:"required,oneof=running suspended suspend"`
}

// LoggingConfig controls the log sink.
type LoggingConfig struct {
	// Level: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output is "console" or a file path.
	Output string `mapstructure:"output" validate:"required"`

	// Mode applies to file output: w+ truncates, a appends.
	Mode string `mapstructure:"mode" validate:"required,oneof=w w+ a a+"`
}

// MetricsConfig controls the metrics and debug HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address" validate:"required"`
	Port    int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// ServerConfig contains host-wide settings.
type ServerConfig struct {
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Listener: ListenerConfig{
			Address:   "0.0.0.0",
			Port:      6001,
			Backlog:   200,
			MaxEvents: 200,
		},
		Dispatcher: DispatcherConfig{
			Workers:      16,
			PollInterval: 100 * time.Millisecond,
			Strategy:     "notify",
			Status:       "running",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Output: "console",
			Mode:   "w+",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    9090,
		},
		Server: ServerConfig{
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

// Load reads configuration from path (empty: ./linuxserver.yaml if
// present), the environment and the defaults, then validates it. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := readConfigFile(v); err != nil {
		return nil, err
	}
	return decode(v)
}

// ApplyDefaults fills fields whose zero value is not meaningful and
// normalizes the log level. Ports are left alone since 0 is valid.
func ApplyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Listener.Address == "" {
		cfg.Listener.Address = def.Listener.Address
	}
	if cfg.Listener.Backlog == 0 {
		cfg.Listener.Backlog = def.Listener.Backlog
	}
	if cfg.Listener.MaxEvents == 0 {
		cfg.Listener.MaxEvents = def.Listener.MaxEvents
	}

	switch {
	case cfg.Dispatcher.Workers == 0:
		cfg.Dispatcher.Workers = def.Dispatcher.Workers
	case cfg.Dispatcher.Workers < 0:
		cfg.Dispatcher.Workers = 1
	}
	if cfg.Dispatcher.PollInterval == 0 {
		cfg.Dispatcher.PollInterval = def.Dispatcher.PollInterval
	}
	if cfg.Dispatcher.Strategy == "" {
		cfg.Dispatcher.Strategy = def.Dispatcher.Strategy
	}
	cfg.Dispatcher.Strategy = strings.ToLower(cfg.Dispatcher.Strategy)
	if cfg.Dispatcher.Status == "" {
		cfg.Dispatcher.Status = def.Dispatcher.Status
	}
	cfg.Dispatcher.Status = strings.ToLower(cfg.Dispatcher.Status)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = def.Logging.Output
	}
	if cfg.Logging.Mode == "" {
		cfg.Logging.Mode = def.Logging.Mode
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = def.Metrics.Address
	}

	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
}

// DefaultYAML renders the default configuration as a YAML document.
func DefaultYAML() ([]byte, error) {
	out, err := yaml.Marshal(DefaultConfig().Settings())
	if err != nil {
		return nil, fmt.Errorf("render default config: %w", err)
	}
	return out, nil
}

// Settings returns cfg as nested maps keyed like the YAML file, with
// durations rendered as strings.
func (c *Config) Settings() map[string]any {
	return map[string]any{
		"listener": map[string]any{
			"address":      c.Listener.Address,
			"port":         c.Listener.Port,
			"backlog":      c.Listener.Backlog,
			"max_events":   c.Listener.MaxEvents,
			"accept_rate":  c.Listener.AcceptRate,
			"accept_burst": c.Listener.AcceptBurst,
		},
		"dispatcher": map[string]any{
			"workers":       c.Dispatcher.Workers,
			"poll_interval": c.Dispatcher.PollInterval.String(),
			"strategy":      c.Dispatcher.Strategy,
			"status":        c.Dispatcher.Status,
		},
		"logging": map[string]any{
			"level":  c.Logging.Level,
			"output": c.Logging.Output,
			"mode":   c.Logging.Mode,
		},
		"metrics": map[string]any{
			"enabled": c.Metrics.Enabled,
			"address": c.Metrics.Address,
			"port":    c.Metrics.Port,
		},
		"server": map[string]any{
			"shutdown_timeout": c.Server.ShutdownTimeout.String(),
		},
	}
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// every key needs a default for AutomaticEnv to see it
	for section, values := range DefaultConfig().Settings() {
		for key, value := range values.(map[string]any) {
			v.SetDefault(section+"."+key, value)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("linuxserver")
		v.SetConfigType("yaml")
	}
	return v
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}
