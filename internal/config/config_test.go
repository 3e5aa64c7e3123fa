package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
channel:
  port: 1234
limits:
  max_time_limit_ms: 5000
seccomp:
  execute_profile: strict
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.Channel.Port)
	assert.Equal(t, uint64(5000), cfg.Limits.MaxTimeLimitMs)
	assert.Equal(t, "strict", cfg.Seccomp.ExecuteProfile)
}

func TestLoadConfigMissingFileReturnsError(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 9999, cfg.Channel.Port)
	assert.Equal(t, uint64(60_000), cfg.Limits.CompileTimeLimitMs)
	assert.Equal(t, uint64(256*1024), cfg.Limits.CompileMemoryLimitKi)
	assert.Equal(t, 128*1024, cfg.Limits.StderrLimitBytes)
	assert.Equal(t, "basic", cfg.Seccomp.ExecuteProfile)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestApplyEnvOverridesTakesPrecedenceOverFile(t *testing.T) {
	t.Setenv("JUDGE_CHANNEL_PORT", "4242")
	t.Setenv("JUDGE_SECCOMP_PROFILE", "strict")

	cfg := &Config{Channel: ChannelConfig{Port: 9999}, Seccomp: SeccompConfig{ExecuteProfile: "basic"}}
	cfg.applyEnvOverrides()

	assert.Equal(t, 4242, cfg.Channel.Port)
	assert.Equal(t, "strict", cfg.Seccomp.ExecuteProfile)
}
