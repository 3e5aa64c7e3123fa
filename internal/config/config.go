// Package config loads the judge agent's settings from a YAML file with
// environment-variable overrides, the way the teacher's backend config
// layer does: a singleton loaded once via Get, a typed struct per concern,
// defaults applied last so a missing file or a partially-filled one still
// yields a runnable configuration.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Channel ChannelConfig `yaml:"channel"`
	Limits  LimitsConfig  `yaml:"limits"`
	Seccomp SeccompConfig `yaml:"seccomp"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ChannelConfig configures the guest-to-host vsock-like channel the agent
// connects to at startup (§4.8).
type ChannelConfig struct {
	Port int `yaml:"port"`
}

// LimitsConfig holds compile and run limit settings. They are loaded and
// defaulted but not read by the engine or the handlers: compile limits and
// the stderr limit come from internal/constants, and a submission's own time
// and memory limits are not capped by MaxTimeLimitMs or MaxMemoryLimitKiB.
type LimitsConfig struct {
	CompileTimeLimitMs   uint64 `yaml:"compile_time_limit_ms"`
	CompileMemoryLimitKi uint64 `yaml:"compile_memory_limit_kib"`
	StderrLimitBytes     int    `yaml:"stderr_limit_bytes"`
	MaxTimeLimitMs       uint64 `yaml:"max_time_limit_ms"`
	MaxMemoryLimitKiB    uint64 `yaml:"max_memory_limit_kib"`
}

// SeccompConfig selects which syscall profile the execute step installs.
// "basic" is the spec's default (§4.4); "strict" switches the C++ handler's
// execute step to the tighter allowlist.
type SeccompConfig struct {
	ExecuteProfile string `yaml:"execute_profile"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide singleton, loading it from CONFIG_PATH (or
// ./config.yaml) on first call. A missing or unreadable file is not fatal —
// the agent still starts with defaults, the same tolerance the teacher's
// config singleton has for a missing config.yaml.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		cfg.applyDefaults()
		instance = cfg
	})
	return instance
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := getEnvInt("JUDGE_CHANNEL_PORT", 0); v > 0 {
		c.Channel.Port = v
	}
	if v := getEnvInt("JUDGE_COMPILE_TIME_LIMIT_MS", 0); v > 0 {
		c.Limits.CompileTimeLimitMs = uint64(v)
	}
	if v := getEnvInt("JUDGE_COMPILE_MEMORY_LIMIT_KIB", 0); v > 0 {
		c.Limits.CompileMemoryLimitKi = uint64(v)
	}
	if v := getEnvInt("JUDGE_STDERR_LIMIT_BYTES", 0); v > 0 {
		c.Limits.StderrLimitBytes = v
	}
	if v := getEnvInt("JUDGE_MAX_TIME_LIMIT_MS", 0); v > 0 {
		c.Limits.MaxTimeLimitMs = uint64(v)
	}
	if v := getEnvInt("JUDGE_MAX_MEMORY_LIMIT_KIB", 0); v > 0 {
		c.Limits.MaxMemoryLimitKiB = uint64(v)
	}
	c.Seccomp.ExecuteProfile = getEnv("JUDGE_SECCOMP_PROFILE", c.Seccomp.ExecuteProfile)
	c.Logging.Level = getEnv("JUDGE_LOG_LEVEL", c.Logging.Level)
	c.Metrics.Enabled = getEnvBool("JUDGE_METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Addr = getEnv("JUDGE_METRICS_ADDR", c.Metrics.Addr)
}

func (c *Config) applyDefaults() {
	if c.Channel.Port == 0 {
		c.Channel.Port = 9999
	}
	if c.Limits.CompileTimeLimitMs == 0 {
		c.Limits.CompileTimeLimitMs = 60_000
	}
	if c.Limits.CompileMemoryLimitKi == 0 {
		c.Limits.CompileMemoryLimitKi = 256 * 1024
	}
	if c.Limits.StderrLimitBytes == 0 {
		c.Limits.StderrLimitBytes = 128 * 1024
	}
	if c.Limits.MaxTimeLimitMs == 0 {
		c.Limits.MaxTimeLimitMs = 30_000
	}
	if c.Limits.MaxMemoryLimitKiB == 0 {
		c.Limits.MaxMemoryLimitKiB = 1024 * 1024
	}
	if c.Seccomp.ExecuteProfile == "" {
		c.Seccomp.ExecuteProfile = "basic"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
