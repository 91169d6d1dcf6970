package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestBackendConfig_ValidateRequiresExistingCorePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	core := touch(t, dir, "core.so")

	valid := BackendConfig{CorePath: core, Address: "localhost:9999"}
	assert.NoError(t, valid.Validate())

	missing := BackendConfig{CorePath: filepath.Join(dir, "nope.so"), Address: "localhost:9999"}
	assert.Error(t, missing.Validate())

	noAddr := BackendConfig{CorePath: core}
	assert.ErrorIs(t, noAddr.Validate(), ErrAddressRequired)
}

func TestFrontendConfig_ValidateRequiresROM(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rom := touch(t, dir, "game.gba")

	assert.ErrorIs(t, FrontendConfig{}.Validate(), ErrROMPathRequired)

	// Address is optional: an empty value means bind an ephemeral port.
	noAddr := FrontendConfig{ROMPath: rom}
	assert.NoError(t, noAddr.Validate())

	ok := FrontendConfig{ROMPath: rom, Address: "localhost:9999"}
	assert.NoError(t, ok.Validate())
}

func TestFrontendConfig_ValidateRequiresCorePathWhenSpawning(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rom := touch(t, dir, "game.gba")

	cfg := FrontendConfig{ROMPath: rom, Address: "localhost:9999", SpawnBackend: true}
	assert.ErrorIs(t, cfg.Validate(), ErrCorePathRequired)

	cfg.CorePath = "/cores/fake.so"
	assert.NoError(t, cfg.Validate())
}
