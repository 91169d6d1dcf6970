// Package config holds the validated settings for the frontend and
// backend subcommands, populated from cobra flags in cmd/retrohost.
package config

import (
	"errors"
	"fmt"
	"os"
)

var (
	ErrCorePathRequired = errors.New("config: core path is required")
	ErrAddressRequired  = errors.New("config: address is required")
	ErrROMPathRequired  = errors.New("config: rom path is required")
)

// BackendConfig configures a backend process: which core to load and
// the frontend address to connect to.
type BackendConfig struct {
	CorePath string
	Address  string
	LogLevel string
	DataDir  string // base for the core's ./saves and ./system directories; empty means the working directory
}

func (c BackendConfig) Validate() error {
	if c.CorePath == "" {
		return ErrCorePathRequired
	}
	if _, err := os.Stat(c.CorePath); err != nil {
		return fmt.Errorf("config: core path %q: %w", c.CorePath, err)
	}
	if c.Address == "" {
		return ErrAddressRequired
	}
	return nil
}

// FrontendConfig configures a frontend process: the ROM to load, the
// address it listens for the backend's connection on (empty means an
// ephemeral port on 127.0.0.1), whether to spawn a backend, and any core
// variable overrides.
type FrontendConfig struct {
	ROMPath      string
	Address      string // empty binds 127.0.0.1:0, an ephemeral port
	CorePath     string // only used when spawning the backend locally
	SpawnBackend bool
	LogLevel     string
	MetricsAddr  string
	Variables    map[string]string
}

func (c FrontendConfig) Validate() error {
	if c.ROMPath == "" {
		return ErrROMPathRequired
	}
	if _, err := os.Stat(c.ROMPath); err != nil {
		return fmt.Errorf("config: rom path %q: %w", c.ROMPath, err)
	}
	if c.SpawnBackend && c.CorePath == "" {
		return ErrCorePathRequired
	}
	return nil
}
