package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionRoundTrip(t *testing.T) {
	sub := &Submission{
		ID:         []byte("sub-1234"),
		Language:   LanguageCpp,
		SourceCode: "int main(){return 0;}",
		TestCases: []TestCase{
			{InputData: "1 2", ExpectedOutput: "3"},
			{InputData: "", ExpectedOutput: ""},
		},
		Limits: ResourceLimits{TimeMs: 1000, MemoryKiB: 65536},
	}

	data, err := sub.Encode()
	require.NoError(t, err)

	got, err := DecodeSubmission(data)
	require.NoError(t, err)
	assert.Equal(t, sub, got)
}

func TestSubmissionEmptyTestCases(t *testing.T) {
	sub := &Submission{
		ID:         []byte("x"),
		Language:   LanguageCpp,
		SourceCode: "int main(){}",
		TestCases:  nil,
		Limits:     ResourceLimits{TimeMs: 1, MemoryKiB: 1},
	}

	data, err := sub.Encode()
	require.NoError(t, err)

	got, err := DecodeSubmission(data)
	require.NoError(t, err)
	assert.Empty(t, got.TestCases)
}

func TestDecodeSubmissionRejectsTrailingGarbage(t *testing.T) {
	sub := &Submission{ID: []byte("a"), SourceCode: "s", Limits: ResourceLimits{TimeMs: 1, MemoryKiB: 1}}
	data, err := sub.Encode()
	require.NoError(t, err)

	_, err = DecodeSubmission(append(data, 0xFF))
	require.Error(t, err)
}

func TestResponseRoundTripEachVerdictKind(t *testing.T) {
	verdicts := []Verdict{
		{Kind: VerdictAccepted, CPUTimeMs: 10, RealTimeMs: 20, MemoryKiB: 30},
		{Kind: VerdictWrongAnswer, ExpectedOutput: "hello", ActualOutput: "world"},
		{Kind: VerdictTimeLimitExceeded},
		{Kind: VerdictMemoryLimitExceeded},
		{Kind: VerdictOutputLimitExceeded},
		{Kind: VerdictRuntimeError, ActualOutput: "Stdout:\n\nStderr:\n", ErrorMessage: "Non-zero exit code"},
		{Kind: VerdictCompilationError, CompilerMessage: "error: ..."},
		{Kind: VerdictPresentationError},
		{Kind: VerdictInternalError, ErrorMessage: "cgroup create failed"},
	}

	for _, v := range verdicts {
		resp := &Response{
			ID:           []byte("id"),
			IsFatalError: v.Kind == VerdictInternalError,
			Result:       v,
		}
		data, err := resp.Encode()
		require.NoError(t, err)

		got, err := DecodeResponse(data)
		require.NoError(t, err)
		assert.Equal(t, resp, got)
	}
}

func TestDecodeResponseRejectsTrailingGarbage(t *testing.T) {
	resp := &Response{ID: []byte("a"), Result: Verdict{Kind: VerdictTimeLimitExceeded}}
	data, err := resp.Encode()
	require.NoError(t, err)

	_, err = DecodeResponse(append(data, 0x01))
	require.Error(t, err)
}

func TestDecodeRejectsOversizedLengthPrefix(t *testing.T) {
	// A length prefix larger than the remaining buffer must fail cleanly
	// rather than panic or over-read.
	_, err := DecodeSubmission([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	require.Error(t, err)
}
