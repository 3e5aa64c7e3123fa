// Package judgeerr defines the error taxonomy shared by the handler, engine,
// and agent loop. Handler-level failures are mapped to a Verdict exactly
// once, at the boundary where the Engine receives them (see internal/engine).
package judgeerr

import "errors"

// Sentinel errors returned by a Handler, unwrapped. The Engine compares the
// returned error against these directly to pick the matching Verdict;
// anything else becomes InternalError.
var (
	// ErrTimeLimitExceeded is returned when a wall-clock deadline fires
	// while waiting for compile or execute to finish.
	ErrTimeLimitExceeded = errors.New("time limit exceeded")

	// ErrMemoryLimitExceeded is returned when a cgroup's failure counter is
	// non-zero or its peak usage exceeds the configured ceiling.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

	// ErrOutputLimitExceeded is returned when captured stdout or stderr
	// exceeds its configured byte limit.
	ErrOutputLimitExceeded = errors.New("output limit exceeded")
)

// InternalError wraps any failure that has no dedicated Verdict: I/O
// failures, cgroup operation failures, and cpu.stat parse failures all
// surface as InternalError per spec. The wrapped error is preserved so the
// agent can log it before reporting the fatal verdict.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error { return e.Err }

// Internal wraps err as an InternalError tagged with the operation that
// failed, unless err is already nil.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &InternalError{Op: op, Err: err}
}
