package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Bryasxin/judge-core/internal/cgroup"
	"github.com/Bryasxin/judge-core/internal/constants"
	"github.com/Bryasxin/judge-core/internal/judgeerr"
)

const (
	sourceFilename     = "input.cpp"
	executableFilename = "output.executable"
)

// CppHandler compiles with g++ and runs the resulting binary under the
// cgroup + seccomp isolation envelope of spec §4.6.
type CppHandler struct {
	// WorkRoot is the parent directory new per-submission working
	// directories are created under. Defaults to os.TempDir() when empty.
	WorkRoot string
	// SeccompProfile is the name passed to the exec-guard re-exec wrapper
	// ("basic" or "strict"); see internal/config's Seccomp.ExecuteProfile.
	// Defaults to "basic" when empty.
	SeccompProfile string
}

func (h CppHandler) NeedsCompile() bool { return true }

func (h CppHandler) Prepare(ctx context.Context, sourceCode string) (*ExecutionContext, error) {
	root := h.WorkRoot
	if root == "" {
		root = os.TempDir()
	}

	workDir, err := os.MkdirTemp(root, "judge-cpp-*")
	if err != nil {
		return nil, judgeerr.Internal("prepare: mkdir", err)
	}
	if err := os.Chmod(workDir, 0700); err != nil {
		os.RemoveAll(workDir)
		return nil, judgeerr.Internal("prepare: chmod", err)
	}

	sourcePath := filepath.Join(workDir, sourceFilename)
	if err := os.WriteFile(sourcePath, []byte(sourceCode), 0600); err != nil {
		os.RemoveAll(workDir)
		return nil, judgeerr.Internal("prepare: write source", err)
	}

	return &ExecutionContext{
		WorkDir:        workDir,
		SourceFile:     sourcePath,
		ExecutableFile: filepath.Join(workDir, executableFilename),
	}, nil
}

func (h CppHandler) Compile(ctx context.Context, ec *ExecutionContext, timeLimitMs uint64) (*CompileInfo, error) {
	cmd := exec.Command("g++", "-w", "-O2", ec.SourceFile, "-o", ec.ExecutableFile)
	cmd.Stdin = nil
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, judgeerr.Internal("compile: spawn g++", err)
	}

	cg, err := cgroup.Create(fmt.Sprintf("judge-cpp-compile-%d", cmd.Process.Pid), constants.DefaultCompileMemoryLimitKiB, false)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, judgeerr.Internal("compile: create cgroup", err)
	}
	defer cg.Destroy()

	if err := cg.AddPID(cmd.Process.Pid); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, judgeerr.Internal("compile: attach cgroup", err)
	}

	waitErr := waitWithDeadline(cmd, time.Duration(timeLimitMs)*time.Millisecond)
	if waitErr == errDeadlineExceeded {
		return nil, judgeerr.ErrTimeLimitExceeded
	}

	failed, _, memErr := cg.MemoryUsage()
	if memErr == nil && failed {
		return nil, judgeerr.ErrMemoryLimitExceeded
	}

	exitCode, signaled, signal := exitStatusOf(cmd, waitErr)

	return &CompileInfo{
		ExitCode: exitCode,
		Signaled: signaled,
		Signal:   signal,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

func (h CppHandler) Execute(ctx context.Context, ec *ExecutionContext, inputData string, timeLimitMs, memoryLimitKiB uint64, stdoutLimitBytes, stderrLimitBytes int) (*ExecuteInfo, error) {
	start := time.Now()

	selfPath, err := os.Executable()
	if err != nil {
		return nil, judgeerr.Internal("execute: resolve self path", err)
	}
	profile := h.SeccompProfile
	if profile == "" {
		profile = "basic"
	}
	argv := guardArgv(selfPath, profile, ec.ExecutableFile, nil)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = ec.WorkDir

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, judgeerr.Internal("execute: stdin pipe", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, judgeerr.Internal("execute: stdout pipe", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, judgeerr.Internal("execute: stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, judgeerr.Internal("execute: spawn", err)
	}

	cg, err := cgroup.Create(fmt.Sprintf("judge-cpp-execute-%d", cmd.Process.Pid), memoryLimitKiB, true)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, judgeerr.Internal("execute: create cgroup", err)
	}
	// The cgroup is destroyed on every exit path from here on — success,
	// timeout, OOM, OLE, or I/O error — via this single deferred guard
	// rather than a destroy call duplicated at each branch.
	defer cg.Destroy()

	if err := cg.AddPID(cmd.Process.Pid); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, judgeerr.Internal("execute: attach cgroup", err)
	}

	// The wall-clock deadline starts before stdin is fed and output is
	// drained: killing the child on expiry closes its pipe ends, which
	// unblocks the stdin write and both drains below.
	deadline := time.AfterFunc(time.Duration(timeLimitMs)*time.Millisecond, func() {
		cmd.Process.Kill()
	})

	if _, err := io.WriteString(stdinPipe, inputData); err != nil && err != io.ErrClosedPipe {
		slog.Warn("execute: stdin write failed", "error", err)
	}
	stdinPipe.Close()

	var stdout, stderr []byte
	var stdoutOverflow, stderrOverflow bool
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		stdout, stdoutOverflow, _ = drainLimited(stdoutPipe, stdoutLimitBytes)
	}()
	stderr, stderrOverflow, _ = drainLimited(stderrPipe, stderrLimitBytes)
	<-readDone

	waitErr := cmd.Wait()
	if !deadline.Stop() {
		return nil, judgeerr.ErrTimeLimitExceeded
	}
	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return nil, judgeerr.Internal("execute: wait", waitErr)
		}
	}

	if stdoutOverflow || stderrOverflow {
		return nil, judgeerr.ErrOutputLimitExceeded
	}

	failed, peakBytes, err := cg.MemoryUsage()
	if err != nil {
		return nil, judgeerr.Internal("execute: read memory usage", err)
	}
	if failed || peakBytes > memoryLimitKiB*1024 {
		return nil, judgeerr.ErrMemoryLimitExceeded
	}

	cpuStats, err := cg.CPUStats()
	if err != nil {
		return nil, judgeerr.Internal("execute: read cpu stats", err)
	}

	exitCode, signaled, signal := exitStatusOf(cmd, waitErr)

	return &ExecuteInfo{
		ExitCode: exitCode,
		Signaled: signaled,
		Signal:   signal,
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		Usage: ResourceUsage{
			MemoryKiB:  (peakBytes + 1023) / 1024, // ceil
			RealTimeMs: uint64(time.Since(start).Milliseconds()),
			CPUTimeMs:  cpuStats.UsageUsec / 1000, // usec -> ms; see ResourceUsage.CPUTimeMs
		},
	}, nil
}

func (h CppHandler) Cleanup(ctx context.Context, ec *ExecutionContext) error {
	remove := func(path string) error {
		return retryWithBackoff(func() error {
			err := os.Remove(path)
			if os.IsNotExist(err) {
				return nil
			}
			return err
		})
	}

	if err := remove(ec.ExecutableFile); err != nil {
		return judgeerr.Internal("cleanup: remove executable", err)
	}
	if err := remove(ec.SourceFile); err != nil {
		return judgeerr.Internal("cleanup: remove source", err)
	}
	if err := remove(ec.WorkDir); err != nil {
		return judgeerr.Internal("cleanup: remove work dir", err)
	}
	return nil
}

// retryWithBackoff retries op up to 3 times with exponential backoff
// starting at 100ms, jittered, to tolerate transient filesystem races
// (e.g. an antivirus scanner or the kernel still flushing a just-killed
// child's file descriptors).
func retryWithBackoff(op func() error) error {
	const maxAttempts = 3
	const base = 100 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == maxAttempts-1 {
			break
		}
		backoff := base * time.Duration(1<<attempt)
		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		time.Sleep(backoff + jitter)
	}
	return err
}

var errDeadlineExceeded = fmt.Errorf("deadline exceeded")

// waitWithDeadline waits for cmd to exit, killing it and returning
// errDeadlineExceeded if deadline elapses first.
func waitWithDeadline(cmd *exec.Cmd, deadline time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(deadline):
		cmd.Process.Kill()
		<-done
		return errDeadlineExceeded
	}
}

// exitStatusOf extracts the exit code / signal pair the Engine needs from a
// reaped child, given the error waitWithDeadline returned (nil, *exec.ExitError,
// or something already handled by the caller).
func exitStatusOf(cmd *exec.Cmd, waitErr error) (exitCode int, signaled bool, signal int) {
	state := cmd.ProcessState
	if state == nil {
		return -1, false, 0
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -1, true, int(ws.Signal())
	}
	return state.ExitCode(), false, 0
}
