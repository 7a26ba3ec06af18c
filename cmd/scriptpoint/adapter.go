package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"

	"github.com/dshills/scriptpoint/internal/config"
	"github.com/dshills/scriptpoint/internal/integration/debug/wire"
)

// connectAdapter starts or dials the configured debug adapter. The returned
// string describes the adapter for logs.
func connectAdapter(ctx context.Context, cfg config.ProxyConfig, opts ...wire.Option) (wire.Transport, string, error) {
	switch {
	case cfg.AdapterCommand != "":
		args, err := shellquote.Split(cfg.AdapterCommand)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrParseAdapterCmd, err)
		}
		if len(args) == 0 {
			return nil, "", fmt.Errorf("%w: empty command", ErrParseAdapterCmd)
		}
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Stderr = os.Stderr
		t, err := wire.NewStdioTransport(cmd, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrStartAdapter, err)
		}
		return t, args[0], nil

	case cfg.AdapterAddress != "":
		t, err := wire.NewSocketTransport(cfg.AdapterAddress, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrDialAdapter, err)
		}
		return t, cfg.AdapterAddress, nil
	}
	return nil, "", ErrNoAdapter
}
