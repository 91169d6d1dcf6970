// Command retrohost runs either side of the two-process libretro host:
// a backend that loads a core shared object, or a frontend that drives
// one, spawning a backend child process unless told to connect to an
// already-running one.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/retrohost/retrohost/internal/metrics"
)

var (
	logLevel    string
	metricsAddr string

	version = "dev"
	commit  = "none"
	date    = "unknown"

	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "retrohost",
	Short: "Two-process libretro core host",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		opts := &slog.HandlerOptions{}
		switch logLevel {
		case "debug":
			opts.Level = slog.LevelDebug
		case "warn":
			opts.Level = slog.LevelWarn
		case "error":
			opts.Level = slog.LevelError
		}
		log = slog.New(slog.NewJSONHandler(os.Stdout, opts))
		slog.SetDefault(log)

		if metricsAddr != "" {
			startMetricsServer(metricsAddr)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("retrohost %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func startMetricsServer(addr string) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("failed to start prometheus metrics listener", "error", err)
		os.Exit(1)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info("prometheus metrics server started", "address", listener.Addr().String())
		if err := http.Serve(listener, mux); err != nil {
			log.Error("prometheus metrics server stopped", "error", err)
		}
	}()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on, empty disables it")

	rootCmd.AddCommand(backendCmd)
	rootCmd.AddCommand(frontendCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	metrics.BuildInfo.WithLabelValues(version, commit, "unset").Set(1)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
