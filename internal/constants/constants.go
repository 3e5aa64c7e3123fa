// Package constants holds the judge agent's compiled-in defaults.
package constants

// DefaultVsockPort is the guest-to-host channel port the agent connects to
// at startup.
const DefaultVsockPort = 9999

// DefaultCompileTimeLimitMs bounds a compile step's wall-clock time.
const DefaultCompileTimeLimitMs = 60_000

// DefaultCompileMemoryLimitKiB bounds a compile step's cgroup memory (256 MiB).
const DefaultCompileMemoryLimitKiB = 256 * 1024

// StderrLimitBytes is the fixed captured-stderr ceiling for every test case;
// unlike the stdout limit it does not scale with expected output size.
const StderrLimitBytes = 128 * 1024
