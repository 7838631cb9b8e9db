package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[world]
max_entities = 2048

[loop]
tick_rate = "20ms"
max_ticks = 100

[logging]
level = "debug"
format = "json"

[demo]
entity_count = 10
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2048, cfg.World.MaxEntities)
	assert.Equal(t, 20*time.Millisecond, cfg.Loop.TickRate)
	assert.Equal(t, 100, cfg.Loop.MaxTicks)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10, cfg.Demo.EntityCount)

	// untouched sections keep their defaults
	assert.Equal(t, "scripts", cfg.Scripting.ScriptsDir)
	assert.Equal(t, 4, cfg.Demo.Materials)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad toml", "[world\nmax_entities = 1"},
		{"zero entities", "[world]\nmax_entities = 0"},
		{"zero tick", "[loop]\ntick_rate = \"0s\""},
		{"demo too large", "[world]\nmax_entities = 5\n[demo]\nentity_count = 6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv(EnvPath, "/etc/world.toml")
	assert.Equal(t, "/etc/world.toml", Path())
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", DefaultPath))
	require.NoError(t, err)
	assert.Positive(t, cfg.World.MaxEntities)
}
