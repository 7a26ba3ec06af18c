package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/scriptpoint/internal/config"
	"github.com/dshills/scriptpoint/internal/integration/debug/wire"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept front-end connections on a TCP address",
	Long: `serve listens for debugger front ends. Every accepted connection gets its
own debug adapter connection and its own scriptpoint state.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", config.DefaultListen, "Address to accept front-end connections on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.configPath != "" {
		w, err := config.Watch(a.configPath, a.reload, config.WithErrorHandler(func(err error) {
			a.sugar.Warnw("config reload failed", "path", a.configPath, "error", err)
		}))
		if err != nil {
			a.sugar.Warnw("config watch unavailable", "path", a.configPath, "error", err)
		} else {
			defer w.Close()
		}
	}

	ln, err := net.Listen("tcp", a.cfg.Proxy.Listen)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListen, err)
	}
	a.sugar.Infow("listening", "address", ln.Addr().String())

	return a.serve(ctx, ln)
}

// serve accepts connections until ctx is done and waits for the open
// sessions to finish.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrAccept, err)
		}

		id := uuid.NewString()
		client := wire.NewSocketTransportFromConn(conn, a.transportOptions()...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.runSession(ctx, id, client)
		}()
	}
}

// reload applies the parts of a changed config file that take effect on a
// running process. Only the log level is live; other settings apply to the
// next start.
func (a *app) reload(cfg *config.Config) {
	if err := a.logger.SetLevel(cfg.Log.Level); err != nil {
		a.sugar.Warnw("config reload failed", "path", a.configPath, "error", err)
		return
	}
	a.sugar.Infow("config reloaded", "path", a.configPath, "level", cfg.Log.Level)
}
