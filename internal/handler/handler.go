// Package handler defines the polymorphic Handler contract (spec §4.5):
// prepare, optional compile, execute, cleanup. CppHandler is the one
// concrete variant wired up today; additional languages are added as new
// variants implementing the same interface and dispatched by rpc.Language.
package handler

import "context"

// ExecutionContext is the private working directory and file paths for one
// in-flight submission. Owned exclusively by that judgment: created by
// Prepare, destroyed by Cleanup, and must survive across every Execute call
// for the submission.
type ExecutionContext struct {
	WorkDir        string
	SourceFile     string
	ExecutableFile string
}

// CompileInfo is the result of a compile step. The Engine inspects Success
// to decide between proceeding and emitting CompilationError; it never
// fails the submission just because the compiler exited non-zero.
type CompileInfo struct {
	ExitCode int
	Signaled bool
	Signal   int
	Stdout   string
	Stderr   string
}

// Success reports whether the compiler exited normally with code 0.
func (c CompileInfo) Success() bool { return !c.Signaled && c.ExitCode == 0 }

// ResourceUsage is the peak resource consumption observed for one execute
// call.
type ResourceUsage struct {
	MemoryKiB  uint64
	RealTimeMs uint64
	// CPUTimeMs is in milliseconds: cpu.stat's usage_usec divided by 1000,
	// not the raw microsecond count.
	CPUTimeMs uint64
}

// ExecuteInfo is the result of running the compiled program once against a
// single test case's input.
type ExecuteInfo struct {
	ExitCode int
	Signaled bool
	Signal   int
	Stdout   string
	Stderr   string
	Usage    ResourceUsage
}

// Success reports whether the program exited normally with code 0.
func (e ExecuteInfo) Success() bool { return !e.Signaled && e.ExitCode == 0 }

// Handler is the per-language capability set the Engine drives a submission
// through. Execute must enforce the full isolation envelope of spec §4.6 on
// its own: seccomp, cgroup creation/attach/teardown, the wall-clock
// deadline, and the output-length checks. Returned errors are judgeerr
// sentinels (ErrTimeLimitExceeded, ErrMemoryLimitExceeded,
// ErrOutputLimitExceeded) or a wrapped judgeerr.InternalError; the Engine
// never inspects Handler internals to classify a failure.
type Handler interface {
	// NeedsCompile reports whether Compile must be called before Execute.
	NeedsCompile() bool

	// Prepare creates a private working directory (mode 0700), writes
	// sourceCode to a fixed filename inside it, and returns the resulting
	// paths. Ownership of the directory transfers to the caller; it is
	// released by Cleanup.
	Prepare(ctx context.Context, sourceCode string) (*ExecutionContext, error)

	// Compile runs the compiler with stdin closed and stdout/stderr
	// captured, under a memory-capped, CPU-unlimited cgroup, with
	// timeLimitMs enforced as a wall-clock timeout. Only called when
	// NeedsCompile is true.
	Compile(ctx context.Context, ec *ExecutionContext, timeLimitMs uint64) (*CompileInfo, error)

	// Execute runs the compiled program once against inputData under the
	// full isolation envelope and returns its resource usage.
	Execute(ctx context.Context, ec *ExecutionContext, inputData string, timeLimitMs, memoryLimitKiB uint64, stdoutLimitBytes, stderrLimitBytes int) (*ExecuteInfo, error)

	// Cleanup removes the executable, source file, and working directory.
	Cleanup(ctx context.Context, ec *ExecutionContext) error
}
