package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/scriptpoint/internal/integration/debug/wire"
	"github.com/dshills/scriptpoint/internal/logging"
)

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve one front end over stdin and stdout",
	Long: `stdio speaks DAP on the process's standard streams, for front ends that
launch their debug adapter as a child process. Logs cannot go to stdout in
this mode.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, logging.WithStdio())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := wire.NewStreamTransport(os.Stdin, os.Stdout, a.transportOptions()...)
		return a.runSession(ctx, uuid.NewString(), client)
	},
}

func init() {
	rootCmd.AddCommand(stdioCmd)
}
