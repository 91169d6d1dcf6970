package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/retrohost/retrohost/internal/backend"
	"github.com/retrohost/retrohost/internal/config"
	"github.com/retrohost/retrohost/internal/core"
	"github.com/retrohost/retrohost/internal/protocol"
)

var backendFlags config.BackendConfig

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Load a libretro core and connect to a frontend process",
	RunE: func(cmd *cobra.Command, args []string) error {
		backendFlags.LogLevel = logLevel
		if err := backendFlags.Validate(); err != nil {
			return err
		}
		return runBackend(cmd.Context(), backendFlags)
	},
}

func init() {
	backendCmd.Flags().StringVar(&backendFlags.CorePath, "core", "", "path to the libretro core shared object")
	backendCmd.Flags().StringVar(&backendFlags.Address, "address", "", "frontend address to connect to (host:port or unix:/path)")
	backendCmd.Flags().StringVar(&backendFlags.DataDir, "data-dir", "", "base directory for the core's save and system directories (default: working directory)")
}

func runBackend(ctx context.Context, cfg config.BackendConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dialFrontend(ctx, cfg.Address)
	if err != nil {
		return fmt.Errorf("backend: connect to frontend at %s: %w", cfg.Address, err)
	}
	defer conn.Close()
	log.Info("connected to frontend", "address", cfg.Address)

	adapter, events := protocol.New("backend", conn, conn, log)
	defer adapter.Close()

	session := backend.New(log, adapter, events, core.PuregoLoader{}, cfg.CorePath, cfg.DataDir)
	return session.Serve(ctx)
}

// dialFrontend retries with backoff because the frontend (which binds
// and listens first) may still be between bind and accept, or may not
// have started yet if the backend was launched independently of a
// spawning frontend.
func dialFrontend(ctx context.Context, address string) (net.Conn, error) {
	network, addr := splitNetworkAddress(address)

	var conn net.Conn
	op := func() error {
		var err error
		conn, err = net.Dial(network, addr)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	policy := backoff.WithContext(bo, ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return conn, nil
}

// splitNetworkAddress supports both TCP (host:port) and Unix domain
// sockets (unix:/path/to.sock) in the --address flag.
func splitNetworkAddress(addr string) (network, address string) {
	const unixPrefix = "unix:"
	if len(addr) > len(unixPrefix) && addr[:len(unixPrefix)] == unixPrefix {
		return "unix", addr[len(unixPrefix):]
	}
	return "tcp", addr
}
