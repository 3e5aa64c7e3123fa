package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bryasxin/judge-core/internal/handler"
	"github.com/Bryasxin/judge-core/internal/judgeerr"
	"github.com/Bryasxin/judge-core/internal/rpc"
)

// fakeHandler is a scripted handler.Handler: each field is consulted in
// call order so tests can assert the Engine drives Prepare/Compile/Execute/
// Cleanup in the documented sequence without needing a real compiler or
// cgroups.
type fakeHandler struct {
	needsCompile bool

	prepareErr error

	compileInfo *handler.CompileInfo
	compileErr  error

	// execResults is consumed one per Execute call, in order.
	execResults []execResult

	cleanupErr   error
	cleanupCalls int
}

type execResult struct {
	info *handler.ExecuteInfo
	err  error
}

func (f *fakeHandler) NeedsCompile() bool { return f.needsCompile }

func (f *fakeHandler) Prepare(ctx context.Context, sourceCode string) (*handler.ExecutionContext, error) {
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	return &handler.ExecutionContext{WorkDir: "/fake"}, nil
}

func (f *fakeHandler) Compile(ctx context.Context, ec *handler.ExecutionContext, timeLimitMs uint64) (*handler.CompileInfo, error) {
	return f.compileInfo, f.compileErr
}

func (f *fakeHandler) Execute(ctx context.Context, ec *handler.ExecutionContext, inputData string, timeLimitMs, memoryLimitKiB uint64, stdoutLimitBytes, stderrLimitBytes int) (*handler.ExecuteInfo, error) {
	r := f.execResults[0]
	f.execResults = f.execResults[1:]
	return r.info, r.err
}

func (f *fakeHandler) Cleanup(ctx context.Context, ec *handler.ExecutionContext) error {
	f.cleanupCalls++
	return f.cleanupErr
}

func baseSubmission(tests ...rpc.TestCase) *rpc.Submission {
	return &rpc.Submission{
		ID:         []byte("sub-1"),
		Language:   rpc.LanguageCpp,
		SourceCode: "int main(){}",
		TestCases:  tests,
		Limits:     rpc.ResourceLimits{TimeMs: 1000, MemoryKiB: 65536},
	}
}

func TestJudgeEmptyTestCasesIsAcceptedWithZeroMaxima(t *testing.T) {
	h := &fakeHandler{needsCompile: false}
	v := Judge(context.Background(), h, baseSubmission())

	assert.Equal(t, rpc.VerdictAccepted, v.Kind)
	assert.Equal(t, uint64(0), v.CPUTimeMs)
	assert.Equal(t, uint64(0), v.RealTimeMs)
	assert.Equal(t, uint64(0), v.MemoryKiB)
	assert.Equal(t, 1, h.cleanupCalls)
}

func TestJudgePrepareErrorIsInternal(t *testing.T) {
	h := &fakeHandler{prepareErr: errors.New("disk full")}
	v := Judge(context.Background(), h, baseSubmission())

	assert.Equal(t, rpc.VerdictInternalError, v.Kind)
	assert.Contains(t, v.ErrorMessage, "disk full")
}

func TestJudgeCompilationFailureDoesNotCallExecute(t *testing.T) {
	h := &fakeHandler{
		needsCompile: true,
		compileInfo:  &handler.CompileInfo{ExitCode: 1, Stderr: "syntax error"},
	}
	v := Judge(context.Background(), h, baseSubmission(rpc.TestCase{InputData: "1", ExpectedOutput: "1"}))

	assert.Equal(t, rpc.VerdictCompilationError, v.Kind)
	assert.Equal(t, "syntax error", v.CompilerMessage)
	assert.Equal(t, 1, h.cleanupCalls)
}

func TestJudgeCompileHandlerErrorIsClassified(t *testing.T) {
	h := &fakeHandler{needsCompile: true, compileErr: judgeerr.ErrTimeLimitExceeded}
	v := Judge(context.Background(), h, baseSubmission(rpc.TestCase{}))

	assert.Equal(t, rpc.VerdictTimeLimitExceeded, v.Kind)
}

func TestJudgeAcceptedTracksPerSubmissionMaxima(t *testing.T) {
	h := &fakeHandler{
		execResults: []execResult{
			{info: &handler.ExecuteInfo{Stdout: "4", Usage: handler.ResourceUsage{CPUTimeMs: 10, RealTimeMs: 20, MemoryKiB: 1000}}},
			{info: &handler.ExecuteInfo{Stdout: "9", Usage: handler.ResourceUsage{CPUTimeMs: 50, RealTimeMs: 5, MemoryKiB: 2000}}},
		},
	}
	sub := baseSubmission(
		rpc.TestCase{InputData: "2", ExpectedOutput: "4"},
		rpc.TestCase{InputData: "3", ExpectedOutput: "9"},
	)
	v := Judge(context.Background(), h, sub)

	require.Equal(t, rpc.VerdictAccepted, v.Kind)
	assert.Equal(t, uint64(50), v.CPUTimeMs)
	assert.Equal(t, uint64(20), v.RealTimeMs)
	assert.Equal(t, uint64(2000), v.MemoryKiB)
}

func TestJudgeStopsAtFirstTimeLimitExceeded(t *testing.T) {
	h := &fakeHandler{
		execResults: []execResult{
			{info: &handler.ExecuteInfo{Usage: handler.ResourceUsage{CPUTimeMs: 5000}}},
			{info: &handler.ExecuteInfo{Stdout: "ok"}},
		},
	}
	sub := baseSubmission(
		rpc.TestCase{},
		rpc.TestCase{ExpectedOutput: "ok"},
	)
	sub.Limits.TimeMs = 1000

	v := Judge(context.Background(), h, sub)

	assert.Equal(t, rpc.VerdictTimeLimitExceeded, v.Kind)
	assert.Equal(t, 1, len(h.execResults), "second test case must not have been consumed")
}

func TestJudgeMemoryLimitPrecedesExitStatus(t *testing.T) {
	h := &fakeHandler{
		execResults: []execResult{
			{info: &handler.ExecuteInfo{ExitCode: 1, Usage: handler.ResourceUsage{MemoryKiB: 999_999}}},
		},
	}
	sub := baseSubmission(rpc.TestCase{})
	sub.Limits.MemoryKiB = 1000

	v := Judge(context.Background(), h, sub)
	assert.Equal(t, rpc.VerdictMemoryLimitExceeded, v.Kind)
}

func TestJudgeNonZeroExitIsRuntimeErrorBeforeOutputCompare(t *testing.T) {
	h := &fakeHandler{
		execResults: []execResult{
			{info: &handler.ExecuteInfo{ExitCode: 139, Signaled: true, Signal: 11, Stdout: "partial", Stderr: "segfault"}},
		},
	}
	sub := baseSubmission(rpc.TestCase{ExpectedOutput: "partial"})

	v := Judge(context.Background(), h, sub)
	assert.Equal(t, rpc.VerdictRuntimeError, v.Kind)
	assert.Contains(t, v.ActualOutput, "segfault")
}

func TestJudgeWrongAnswerTrimsBothSidesButKeepsInteriorWhitespace(t *testing.T) {
	h := &fakeHandler{
		execResults: []execResult{
			{info: &handler.ExecuteInfo{Stdout: "  1  2\n"}},
		},
	}
	sub := baseSubmission(rpc.TestCase{ExpectedOutput: "1 3"})

	v := Judge(context.Background(), h, sub)
	assert.Equal(t, rpc.VerdictWrongAnswer, v.Kind)
	assert.Equal(t, "1  2", v.ActualOutput)
	assert.Equal(t, "1 3", v.ExpectedOutput)
}

func TestJudgeCleanupErrorSupersedesAccepted(t *testing.T) {
	h := &fakeHandler{cleanupErr: errors.New("rmdir busy")}
	v := Judge(context.Background(), h, baseSubmission())

	assert.Equal(t, rpc.VerdictInternalError, v.Kind)
	assert.Contains(t, v.ErrorMessage, "rmdir busy")
}
