package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
)

// Default values.
const (
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultLogOutput      = "stderr"
	DefaultListen         = "127.0.0.1:4711"
	DefaultMaxMessageSize = 10 * 1024 * 1024
	DefaultCallStackSize  = 120
	DefaultMaxVariables   = 1000
	DefaultErrorCategory  = "stderr"
	DefaultMetricsPeriod  = 30 * time.Second
)

// Config is the complete proxy configuration.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Proxy   ProxyConfig   `toml:"proxy"`
	Script  ScriptConfig  `toml:"script"`
	Metrics MetricsConfig `toml:"metrics"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// Output is "stderr", "stdout" or a file path.
	Output string `toml:"output"`
}

// ProxyConfig configures the listener and the upstream debug adapter.
type ProxyConfig struct {
	Listen         string `toml:"listen"`
	AdapterAddress string `toml:"adapter_address"`
	AdapterCommand string `toml:"adapter_command"`
	MaxMessageSize int    `toml:"max_message_size"`
}

// ScriptConfig configures scriptpoint execution.
type ScriptConfig struct {
	// Timeout bounds one script execution. Zero disables the bound.
	Timeout       Duration `toml:"timeout"`
	CallStackSize int      `toml:"call_stack_size"`
	MaxVariables  int      `toml:"max_variables"`
	// ErrorCategory is the output category used for script failures.
	ErrorCategory string `toml:"error_category"`
}

// MetricsConfig configures the tally reporter.
type MetricsConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
		Proxy: ProxyConfig{
			Listen:         DefaultListen,
			MaxMessageSize: DefaultMaxMessageSize,
		},
		Script: ScriptConfig{
			CallStackSize: DefaultCallStackSize,
			MaxVariables:  DefaultMaxVariables,
			ErrorCategory: DefaultErrorCategory,
		},
		Metrics: MetricsConfig{
			Interval: Duration{DefaultMetricsPeriod},
		},
	}
}

// Load builds a configuration from the defaults, the TOML file at path and
// the SCRIPTPOINT_* environment. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a configuration from r over the defaults. The
// environment is not consulted.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := decode("<reader>", data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(source string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return newParseError(source, err)
	}
	return nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
)

// Validate checks every section and returns all failures combined.
func (c *Config) Validate() error {
	var err error

	if !slices.Contains(logLevels, c.Log.Level) {
		err = multierr.Append(err, &ValidationError{
			Path: "log.level", Message: "must be one of debug, info, warn, error",
			Value: c.Log.Level, Code: ErrCodeInvalidEnum,
		})
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		err = multierr.Append(err, &ValidationError{
			Path: "log.format", Message: "must be console or json",
			Value: c.Log.Format, Code: ErrCodeInvalidEnum,
		})
	}
	if c.Log.Output == "" {
		err = multierr.Append(err, &ValidationError{
			Path: "log.output", Message: "must not be empty",
			Value: c.Log.Output, Code: ErrCodeRequiredMissing,
		})
	}

	if c.Proxy.AdapterAddress != "" && c.Proxy.AdapterCommand != "" {
		err = multierr.Append(err, &ValidationError{
			Path: "proxy.adapter_command", Message: "cannot be combined with proxy.adapter_address",
			Value: c.Proxy.AdapterCommand, Code: ErrCodeConflict,
		})
	}
	if c.Proxy.MaxMessageSize <= 0 {
		err = multierr.Append(err, &ValidationError{
			Path: "proxy.max_message_size", Message: "must be positive",
			Value: c.Proxy.MaxMessageSize, Code: ErrCodeOutOfRange,
		})
	}

	if c.Script.Timeout.Duration < 0 {
		err = multierr.Append(err, &ValidationError{
			Path: "script.timeout", Message: "must not be negative",
			Value: c.Script.Timeout, Code: ErrCodeOutOfRange,
		})
	}
	if c.Script.CallStackSize <= 0 {
		err = multierr.Append(err, &ValidationError{
			Path: "script.call_stack_size", Message: "must be positive",
			Value: c.Script.CallStackSize, Code: ErrCodeOutOfRange,
		})
	}
	if c.Script.MaxVariables <= 0 {
		err = multierr.Append(err, &ValidationError{
			Path: "script.max_variables", Message: "must be positive",
			Value: c.Script.MaxVariables, Code: ErrCodeOutOfRange,
		})
	}
	if c.Script.ErrorCategory == "" {
		err = multierr.Append(err, &ValidationError{
			Path: "script.error_category", Message: "must not be empty",
			Value: c.Script.ErrorCategory, Code: ErrCodeRequiredMissing,
		})
	}

	if c.Metrics.Enabled && c.Metrics.Interval.Duration <= 0 {
		err = multierr.Append(err, &ValidationError{
			Path: "metrics.interval", Message: "must be positive when metrics are enabled",
			Value: c.Metrics.Interval, Code: ErrCodeOutOfRange,
		})
	}

	return err
}
