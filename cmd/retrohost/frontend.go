package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/retrohost/retrohost/internal/audio"
	"github.com/retrohost/retrohost/internal/config"
	"github.com/retrohost/retrohost/internal/frontend"
	"github.com/retrohost/retrohost/internal/hostproc"
	"github.com/retrohost/retrohost/internal/protocol"
)

var (
	frontendFlags config.FrontendConfig
	variableFlags []string
	noBackend     bool
)

var frontendCmd = &cobra.Command{
	Use:   "frontend",
	Short: "Drive a core over its backend connection and play a ROM",
	RunE: func(cmd *cobra.Command, args []string) error {
		frontendFlags.LogLevel = logLevel
		frontendFlags.SpawnBackend = !noBackend
		frontendFlags.Variables = parseVariableFlags(variableFlags)
		if err := frontendFlags.Validate(); err != nil {
			return err
		}
		if frontendFlags.MetricsAddr != "" {
			startMetricsServer(frontendFlags.MetricsAddr)
		}
		return runFrontend(cmd.Context(), frontendFlags)
	},
}

func init() {
	frontendCmd.Flags().StringVar(&frontendFlags.ROMPath, "rom", "", "path to the ROM to load")
	frontendCmd.Flags().StringVar(&frontendFlags.Address, "address", "", "address to listen on for the backend connection (host:port or unix:/path; empty binds an ephemeral port on 127.0.0.1)")
	frontendCmd.Flags().StringVar(&frontendFlags.CorePath, "core", "", "path to the libretro core, required unless --no-backend is set")
	frontendCmd.Flags().BoolVar(&noBackend, "no-backend", false, "connect to an already-running backend instead of spawning one")
	frontendCmd.Flags().StringVar(&frontendFlags.MetricsAddr, "metrics-addr", "", "address to serve /metrics on for this process specifically")
	frontendCmd.Flags().StringArrayVar(&variableFlags, "var", nil, "override a core variable, key=value (repeatable)")
}

func parseVariableFlags(raw []string) map[string]string {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}

func runFrontend(ctx context.Context, cfg config.FrontendConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bindAddr := cfg.Address
	if bindAddr == "" {
		bindAddr = "127.0.0.1:0"
	}
	network, addr := splitNetworkAddress(bindAddr)
	listener, err := net.Listen(network, addr)
	if err != nil {
		return fmt.Errorf("frontend: listen on %s: %w", bindAddr, err)
	}
	defer listener.Close()
	log.Info("frontend listening", "network", network, "address", listener.Addr().String())

	var backendProc *hostproc.Backend
	if cfg.SpawnBackend {
		backendProc, err = hostproc.Spawn(ctx, log, hostproc.BackendSpec{
			CorePath: cfg.CorePath,
			Address:  listener.Addr().String(),
			LogLevel: cfg.LogLevel,
		})
		if err != nil {
			return fmt.Errorf("frontend: spawn backend: %w", err)
		}
	}

	conn, err := listener.Accept()
	if err != nil {
		return fmt.Errorf("frontend: accept backend connection: %w", err)
	}
	defer conn.Close()
	log.Info("backend connected", "remote", conn.RemoteAddr())

	adapter, events := protocol.New("frontend", conn, conn, log)
	defer adapter.Close()

	sink := audio.NewRingSink(4096)
	fe := frontend.New(log, adapter, events, sink, nil, nil)
	for k, v := range cfg.Variables {
		fe.SetVariable(k, v)
	}

	adapter.Send(protocol.Init{})
	adapter.Send(protocol.Load{Path: cfg.ROMPath})

	avResp, err := protocol.Expect[protocol.AVInfoResponse](adapter.Send(protocol.AVInfoRequest{}))
	if err != nil {
		return fmt.Errorf("frontend: query av info: %w", err)
	}

	pacer := frontend.NewPacer(log, adapter, sink, avResp.Info.SampleRate, avResp.Info.FPS)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return fe.Serve(groupCtx) })
	group.Go(func() error { return pacer.Run(groupCtx) })
	if backendProc != nil {
		group.Go(func() error { return backendProc.Wait() })
	}

	err = group.Wait()
	if groupCtx.Err() != nil && err == context.Canceled {
		return nil
	}
	return err
}
