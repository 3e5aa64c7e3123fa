// Package rpc defines the request/response records exchanged with the host
// and their binary encoding. The encoder is deterministic (same input always
// produces the same bytes) and the decoder rejects any trailing bytes left
// after a record is fully parsed.
package rpc

// Language identifies which Handler a submission should be dispatched to.
// Cpp is the only member of the closed set at launch; the tag is an
// extension point for future handlers.
type Language uint8

const (
	LanguageCpp Language = iota
)

func (l Language) String() string {
	switch l {
	case LanguageCpp:
		return "cpp"
	default:
		return "unknown"
	}
}

// TestCase is one input/expected-output pair.
type TestCase struct {
	InputData      string
	ExpectedOutput string
}

// ResourceLimits bounds a single test case's execution.
type ResourceLimits struct {
	TimeMs    uint64
	MemoryKiB uint64
}

// Submission is the decoded request record.
type Submission struct {
	ID         []byte
	Language   Language
	SourceCode string
	TestCases  []TestCase
	Limits     ResourceLimits
}

// VerdictKind tags the Verdict union.
type VerdictKind uint8

const (
	VerdictAccepted VerdictKind = iota
	VerdictWrongAnswer
	VerdictTimeLimitExceeded
	VerdictMemoryLimitExceeded
	VerdictOutputLimitExceeded
	VerdictRuntimeError
	VerdictCompilationError
	// VerdictPresentationError is reserved for future diffing logic beyond
	// whitespace-trim comparison. The current comparator never emits it.
	VerdictPresentationError
	VerdictInternalError
)

// Verdict is the tagged-union terminal judgment for a submission. Only the
// fields relevant to Kind are populated; all others are zero-valued.
type Verdict struct {
	Kind VerdictKind

	// VerdictAccepted
	CPUTimeMs  uint64
	RealTimeMs uint64
	MemoryKiB  uint64

	// VerdictWrongAnswer
	ExpectedOutput string
	ActualOutput   string

	// VerdictRuntimeError (reuses ActualOutput above)
	ErrorMessage string

	// VerdictCompilationError
	CompilerMessage string
}

// Response is the encoded reply: the echoed submission id, a fatal flag,
// and the verdict. IsFatalError is true iff Result.Kind is
// VerdictInternalError (§3 invariant).
type Response struct {
	ID           []byte
	IsFatalError bool
	Result       Verdict
}
