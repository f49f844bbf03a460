package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	LogConfig
	Name  string        `kdl:"name"`
	Inner *sampleInner  `kdl:"inner"`
	Wait  time.Duration `kdl:"wait"`
}

type sampleInner struct {
	Size int `kdl:"size"`
}

func defaultSample() sampleConfig {
	return sampleConfig{
		LogConfig: LogConfig{LogLevel: "warn"},
		Name:      "default",
		Inner:     &sampleInner{Size: 1},
	}
}

func TestInitializeConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.kdl")
	require.NoError(t, os.WriteFile(path, []byte("name \"lab\"\ninner {\n    size 4\n}\n"), 0o644))

	cfg, err := InitializeConfig(path, defaultSample())
	require.NoError(t, err)
	assert.Equal(t, "lab", cfg.Name)
	assert.Equal(t, 4, cfg.Inner.Size)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestInitializeConfig_MissingFiles(t *testing.T) {
	cfg, err := InitializeConfig("", defaultSample())
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Name)

	_, err = InitializeConfig(filepath.Join(t.TempDir(), "absent.kdl"), defaultSample())
	assert.Error(t, err)
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("name {"), defaultSample())
	assert.Error(t, err)
}

func TestLogConfigIsFoundThroughEmbedding(t *testing.T) {
	cfg := defaultSample()
	var v any = &cfg
	lc, ok := v.(withLogConfig)
	require.True(t, ok)
	assert.Equal(t, "warn", lc.logConfig().LogLevel)
}
