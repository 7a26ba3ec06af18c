// Package config provides the configuration system for the scriptpoint proxy.
//
// Configuration is resolved in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← Highest priority
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← SCRIPTPOINT_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← scriptpoint.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Flags are applied by the command line layer after Load returns.
//
// # Usage
//
//	cfg, err := config.Load("scriptpoint.toml")
//	if err != nil {
//	    return err
//	}
//
//	w, err := config.Watch(path, func(cfg *config.Config) {
//	    _ = level.UnmarshalText([]byte(cfg.Log.Level))
//	})
//
// The file is decoded strictly: unknown keys are reported as a ParseError.
package config
