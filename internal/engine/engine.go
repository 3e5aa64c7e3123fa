// Package engine drives one submission through a Handler and produces a
// terminal Verdict, per the state machine: prepare, optional compile, then
// each test case in order until a non-Accepted verdict or the list is
// exhausted, then cleanup.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Bryasxin/judge-core/internal/constants"
	"github.com/Bryasxin/judge-core/internal/handler"
	"github.com/Bryasxin/judge-core/internal/judgeerr"
	"github.com/Bryasxin/judge-core/internal/metrics"
	"github.com/Bryasxin/judge-core/internal/rpc"
)

// verdictLabel maps a VerdictKind to the low-cardinality label value
// recorded in judge_verdicts_total.
func verdictLabel(k rpc.VerdictKind) string {
	switch k {
	case rpc.VerdictAccepted:
		return "accepted"
	case rpc.VerdictWrongAnswer:
		return "wrong_answer"
	case rpc.VerdictTimeLimitExceeded:
		return "time_limit_exceeded"
	case rpc.VerdictMemoryLimitExceeded:
		return "memory_limit_exceeded"
	case rpc.VerdictOutputLimitExceeded:
		return "output_limit_exceeded"
	case rpc.VerdictRuntimeError:
		return "runtime_error"
	case rpc.VerdictCompilationError:
		return "compilation_error"
	case rpc.VerdictPresentationError:
		return "presentation_error"
	default:
		return "internal_error"
	}
}

// Judge runs submission through h and returns the terminal verdict. It never
// returns a Go error: every failure mode, including a Handler-reported
// internal error, is folded into a VerdictInternalError so the caller always
// has a Verdict to encode and send back.
func Judge(ctx context.Context, h handler.Handler, sub *rpc.Submission) rpc.Verdict {
	start := time.Now()
	verdict := judge(ctx, h, sub)

	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())
	metrics.VerdictsTotal.WithLabelValues(verdictLabel(verdict.Kind)).Inc()
	return verdict
}

func judge(ctx context.Context, h handler.Handler, sub *rpc.Submission) rpc.Verdict {
	ec, err := h.Prepare(ctx, sub.SourceCode)
	if err != nil {
		return internalVerdict(err)
	}

	if h.NeedsCompile() {
		compileInfo, err := h.Compile(ctx, ec, constants.DefaultCompileTimeLimitMs)
		if err != nil {
			cleanupOrLog(ctx, h, ec)
			return classifyHandlerError(err)
		}
		if !compileInfo.Success() {
			cleanupOrLog(ctx, h, ec)
			return rpc.Verdict{
				Kind:            rpc.VerdictCompilationError,
				CompilerMessage: compileInfo.Stderr,
			}
		}
	}

	var maxCPUMs, maxRealMs, maxMemKiB uint64

	for _, tc := range sub.TestCases {
		stdoutLimit := 2 * len(tc.ExpectedOutput)
		execInfo, err := h.Execute(ctx, ec, tc.InputData, sub.Limits.TimeMs, sub.Limits.MemoryKiB, stdoutLimit, constants.StderrLimitBytes)
		if err != nil {
			cleanupOrLog(ctx, h, ec)
			return classifyHandlerError(err)
		}

		if verdict, ok := checkTestCase(execInfo, sub.Limits, tc); !ok {
			cleanupOrLog(ctx, h, ec)
			return verdict
		}

		maxCPUMs = max(maxCPUMs, execInfo.Usage.CPUTimeMs)
		maxRealMs = max(maxRealMs, execInfo.Usage.RealTimeMs)
		maxMemKiB = max(maxMemKiB, execInfo.Usage.MemoryKiB)
	}

	if err := h.Cleanup(ctx, ec); err != nil {
		// A cleanup failure supersedes an otherwise-Accepted verdict: the
		// caller cannot be told a submission succeeded if the agent failed
		// to release the resources it used.
		return internalVerdict(err)
	}

	return rpc.Verdict{
		Kind:       rpc.VerdictAccepted,
		CPUTimeMs:  maxCPUMs,
		RealTimeMs: maxRealMs,
		MemoryKiB:  maxMemKiB,
	}
}

// checkTestCase applies the verdict precedence of §4.7 to one test result:
// time, then memory, then exit status, then output comparison. ok is false
// iff a non-Accepted verdict was produced, in which case the caller must
// stop iterating test cases.
func checkTestCase(info *handler.ExecuteInfo, limits rpc.ResourceLimits, tc rpc.TestCase) (rpc.Verdict, bool) {
	if info.Usage.CPUTimeMs > limits.TimeMs {
		return rpc.Verdict{Kind: rpc.VerdictTimeLimitExceeded}, false
	}
	if info.Usage.MemoryKiB > limits.MemoryKiB {
		return rpc.Verdict{Kind: rpc.VerdictMemoryLimitExceeded}, false
	}
	if !info.Success() {
		return rpc.Verdict{
			Kind:         rpc.VerdictRuntimeError,
			ActualOutput: "Stdout:\n" + info.Stdout + "\nStderr:\n" + info.Stderr,
			ErrorMessage: "Non-zero exit code",
		}, false
	}

	actual := strings.TrimSpace(info.Stdout)
	expected := strings.TrimSpace(tc.ExpectedOutput)
	if actual != expected {
		return rpc.Verdict{
			Kind:           rpc.VerdictWrongAnswer,
			ExpectedOutput: expected,
			ActualOutput:   actual,
		}, false
	}

	return rpc.Verdict{}, true
}

// classifyHandlerError maps a Handler's returned error to the matching
// terminal verdict. The judgeerr sentinels carry no additional context by
// design — the Handler already enforced the limit, so the Engine only needs
// to know which one.
func classifyHandlerError(err error) rpc.Verdict {
	switch err {
	case judgeerr.ErrTimeLimitExceeded:
		return rpc.Verdict{Kind: rpc.VerdictTimeLimitExceeded}
	case judgeerr.ErrMemoryLimitExceeded:
		return rpc.Verdict{Kind: rpc.VerdictMemoryLimitExceeded}
	case judgeerr.ErrOutputLimitExceeded:
		return rpc.Verdict{Kind: rpc.VerdictOutputLimitExceeded}
	default:
		return internalVerdict(err)
	}
}

func internalVerdict(err error) rpc.Verdict {
	op := "unknown"
	if ie, ok := err.(*judgeerr.InternalError); ok && ie.Op != "" {
		op = ie.Op
	}
	metrics.HandlerErrorsTotal.WithLabelValues(op).Inc()

	return rpc.Verdict{
		Kind:         rpc.VerdictInternalError,
		ErrorMessage: err.Error(),
	}
}

// cleanupOrLog runs Cleanup on a path where the Engine is already returning
// a non-Accepted verdict; a cleanup error here must not override that
// verdict — the cleanup-supersedes-Accepted rule applies only to the
// otherwise-Accepted path — so it's logged rather than propagated.
func cleanupOrLog(ctx context.Context, h handler.Handler, ec *handler.ExecutionContext) {
	if err := h.Cleanup(ctx, ec); err != nil {
		slog.Warn("engine: cleanup failed after non-accepted verdict", "work_dir", ec.WorkDir, "error", err)
	}
}
