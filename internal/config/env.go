package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envSetter func(cfg *Config, value string) error

// envMapping maps environment variables to the setting they override.
var envMapping = map[string]envSetter{
	"SCRIPTPOINT_LOG_LEVEL":              setString(func(c *Config) *string { return &c.Log.Level }),
	"SCRIPTPOINT_LOG_FORMAT":             setString(func(c *Config) *string { return &c.Log.Format }),
	"SCRIPTPOINT_LOG_OUTPUT":             setString(func(c *Config) *string { return &c.Log.Output }),
	"SCRIPTPOINT_PROXY_LISTEN":           setString(func(c *Config) *string { return &c.Proxy.Listen }),
	"SCRIPTPOINT_PROXY_ADAPTER_ADDRESS":  setString(func(c *Config) *string { return &c.Proxy.AdapterAddress }),
	"SCRIPTPOINT_PROXY_ADAPTER_COMMAND":  setString(func(c *Config) *string { return &c.Proxy.AdapterCommand }),
	"SCRIPTPOINT_PROXY_MAX_MESSAGE_SIZE": setInt(func(c *Config) *int { return &c.Proxy.MaxMessageSize }),
	"SCRIPTPOINT_SCRIPT_TIMEOUT":         setDuration(func(c *Config) *Duration { return &c.Script.Timeout }),
	"SCRIPTPOINT_SCRIPT_CALL_STACK_SIZE": setInt(func(c *Config) *int { return &c.Script.CallStackSize }),
	"SCRIPTPOINT_SCRIPT_MAX_VARIABLES":   setInt(func(c *Config) *int { return &c.Script.MaxVariables }),
	"SCRIPTPOINT_SCRIPT_ERROR_CATEGORY":  setString(func(c *Config) *string { return &c.Script.ErrorCategory }),
	"SCRIPTPOINT_METRICS_ENABLED":        setBool(func(c *Config) *bool { return &c.Metrics.Enabled }),
	"SCRIPTPOINT_METRICS_INTERVAL":       setDuration(func(c *Config) *Duration { return &c.Metrics.Interval }),
}

// applyEnv overrides cfg with every mapped variable lookup reports as set.
// Empty values are treated as set.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	for name, set := range envMapping {
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := set(cfg, value); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidEnv, name, value, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from lookup and revalidates it.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if err := applyEnv(c, lookup); err != nil {
		return err
	}
	return c.Validate()
}

func setString(field func(*Config) *string) envSetter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setDuration(field func(*Config) *Duration) envSetter {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		field(c).Duration = d
		return nil
	}
}

func setBool(field func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}
