// Package main is the entry point for the scriptpoint DAP proxy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "scriptpoint",
	Short: "DAP proxy that runs Lua scripts at log breakpoints",
	Long: `scriptpoint sits between a debugger front end and a debug adapter.
Log breakpoints whose message starts with "!" run the rest of the message as
a Lua script each time they are hit, then resume the thread. Messages that
start with "!!" leave the thread stopped after the script.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("adapter-addr", "", "Address of a debug adapter listening for DAP connections")
	rootCmd.PersistentFlags().String("adapter-cmd", "", "Command that starts a debug adapter speaking DAP on stdio")
}

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
