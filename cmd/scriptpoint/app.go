package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/scriptpoint/internal/config"
	"github.com/dshills/scriptpoint/internal/integration/debug/proxy"
	"github.com/dshills/scriptpoint/internal/integration/debug/wire"
	"github.com/dshills/scriptpoint/internal/logging"
	"github.com/dshills/scriptpoint/internal/metrics"
	"github.com/dshills/scriptpoint/internal/notify"
	"github.com/dshills/scriptpoint/internal/script"
)

// app holds what every session of one process shares.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *logging.Logger
	sugar      *zap.SugaredLogger
	scope      tally.Scope
	closer     io.Closer
	executor   *script.Executor
	notifier   *notify.Notifier
}

// loadConfig resolves defaults, file, environment and then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// applyFlags overrides cfg with the flags set on the command line. An
// adapter flag replaces whichever adapter the config file named.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	addrSet := flags.Changed("adapter-addr")
	cmdSet := flags.Changed("adapter-cmd")
	if addrSet && cmdSet {
		return ErrTwoAdapters
	}
	if addrSet {
		cfg.Proxy.AdapterAddress, _ = flags.GetString("adapter-addr")
		cfg.Proxy.AdapterCommand = ""
	}
	if cmdSet {
		cfg.Proxy.AdapterCommand, _ = flags.GetString("adapter-cmd")
		cfg.Proxy.AdapterAddress = ""
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("listen") {
		cfg.Proxy.Listen, _ = flags.GetString("listen")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	return nil
}

func newApp(cmd *cobra.Command, logOpts ...logging.Option) (*app, error) {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitLogger, err)
	}
	sugar := logger.Sugar()

	scope, closer := metrics.NewRootScope(cfg.Metrics.Enabled, cfg.Metrics.Interval.Duration, sugar)

	notifier := notify.New()
	notifier.Subscribe(func(c notify.Change) {
		sugar.Debugw("scriptpoint changed",
			"path", c.Path,
			"change", c.Type.String(),
			"index", c.Index,
			"script", c.Script,
		)
	})

	return &app{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		sugar:      sugar,
		scope:      scope,
		closer:     closer,
		executor: script.NewExecutor(
			script.WithTimeout(cfg.Script.Timeout.Duration),
			script.WithCallStackSize(cfg.Script.CallStackSize),
			script.WithLogger(sugar.Named("script")),
		),
		notifier: notifier,
	}, nil
}

// transportOptions returns the framing options for both sides of a session.
func (r *app) transportOptions() []wire.Option {
	return []wire.Option{wire.WithMaxContentLength(r.cfg.Proxy.MaxMessageSize)}
}

// runSession connects an adapter for client and relays until either side
// goes away.
func (r *app) runSession(ctx context.Context, id string, client wire.Transport) error {
	adapter, desc, err := connectAdapter(ctx, r.cfg.Proxy, r.transportOptions()...)
	if err != nil {
		return multierr.Append(err, client.Close())
	}

	logger := r.sugar.With("session", id, "adapter", desc)
	logger.Infow("session started")

	session := proxy.NewSession(proxy.Config{
		Client:        client,
		Adapter:       adapter,
		Executor:      r.executor,
		Notifier:      r.notifier,
		Logger:        logger,
		Scope:         r.scope,
		MaxVariables:  r.cfg.Script.MaxVariables,
		ErrorCategory: r.cfg.Script.ErrorCategory,
	})

	err = session.Serve(ctx)
	err = multierr.Append(err, session.Close())
	if err != nil {
		logger.Warnw("session ended", "error", err)
	} else {
		logger.Infow("session ended")
	}
	return err
}

func (r *app) Close() error {
	r.notifier.Close()
	err := r.closer.Close()
	_ = r.logger.Sync()
	return err
}
