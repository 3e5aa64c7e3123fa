package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Encode serializes a Submission deterministically: field order matches the
// struct declaration, strings and byte slices are length-prefixed with a
// big-endian u32, exactly like the teacher's AOCS header fields are written
// in a fixed order with binary.Write.
func (s *Submission) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := writeBytes(buf, s.ID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, uint8(s.Language)); err != nil {
		return nil, err
	}
	if err := writeString(buf, s.SourceCode); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(s.TestCases))); err != nil {
		return nil, err
	}
	for _, tc := range s.TestCases {
		if err := writeString(buf, tc.InputData); err != nil {
			return nil, err
		}
		if err := writeString(buf, tc.ExpectedOutput); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(buf, binary.BigEndian, s.Limits.TimeMs); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, s.Limits.MemoryKiB); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeSubmission parses a Submission and fails if any bytes remain
// unconsumed after the record is fully read.
func DecodeSubmission(data []byte) (*Submission, error) {
	r := bytes.NewReader(data)
	s := &Submission{}

	id, err := readBytes(r)
	if err != nil {
		return nil, fmt.Errorf("rpc: decode submission id: %w", err)
	}
	s.ID = id

	var lang uint8
	if err := binary.Read(r, binary.BigEndian, &lang); err != nil {
		return nil, fmt.Errorf("rpc: decode language: %w", err)
	}
	s.Language = Language(lang)

	src, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("rpc: decode source_code: %w", err)
	}
	s.SourceCode = src

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("rpc: decode test_cases length: %w", err)
	}
	s.TestCases = make([]TestCase, 0, count)
	for i := uint32(0); i < count; i++ {
		input, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("rpc: decode test_case[%d].input_data: %w", i, err)
		}
		expected, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("rpc: decode test_case[%d].expected_output: %w", i, err)
		}
		s.TestCases = append(s.TestCases, TestCase{InputData: input, ExpectedOutput: expected})
	}

	if err := binary.Read(r, binary.BigEndian, &s.Limits.TimeMs); err != nil {
		return nil, fmt.Errorf("rpc: decode limits.time_ms: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &s.Limits.MemoryKiB); err != nil {
		return nil, fmt.Errorf("rpc: decode limits.memory_kib: %w", err)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("rpc: decode submission: %d trailing bytes", r.Len())
	}

	return s, nil
}

// Encode serializes a Response. The verdict is encoded as a one-byte kind
// tag followed by only the fields that kind uses.
func (resp *Response) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := writeBytes(buf, resp.ID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, boolToByte(resp.IsFatalError)); err != nil {
		return nil, err
	}
	if err := encodeVerdict(buf, &resp.Result); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeResponse parses a Response and fails on trailing bytes.
func DecodeResponse(data []byte) (*Response, error) {
	r := bytes.NewReader(data)
	resp := &Response{}

	id, err := readBytes(r)
	if err != nil {
		return nil, fmt.Errorf("rpc: decode response id: %w", err)
	}
	resp.ID = id

	var fatal uint8
	if err := binary.Read(r, binary.BigEndian, &fatal); err != nil {
		return nil, fmt.Errorf("rpc: decode is_fatal_error: %w", err)
	}
	resp.IsFatalError = fatal != 0

	verdict, err := decodeVerdict(r)
	if err != nil {
		return nil, fmt.Errorf("rpc: decode result: %w", err)
	}
	resp.Result = *verdict

	if r.Len() != 0 {
		return nil, fmt.Errorf("rpc: decode response: %d trailing bytes", r.Len())
	}

	return resp, nil
}

func encodeVerdict(buf *bytes.Buffer, v *Verdict) error {
	if err := binary.Write(buf, binary.BigEndian, uint8(v.Kind)); err != nil {
		return err
	}

	switch v.Kind {
	case VerdictAccepted:
		if err := binary.Write(buf, binary.BigEndian, v.CPUTimeMs); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.BigEndian, v.RealTimeMs); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.BigEndian, v.MemoryKiB); err != nil {
			return err
		}
	case VerdictWrongAnswer:
		if err := writeString(buf, v.ExpectedOutput); err != nil {
			return err
		}
		if err := writeString(buf, v.ActualOutput); err != nil {
			return err
		}
	case VerdictTimeLimitExceeded, VerdictMemoryLimitExceeded,
		VerdictOutputLimitExceeded, VerdictPresentationError:
		// No payload fields.
	case VerdictRuntimeError:
		if err := writeString(buf, v.ActualOutput); err != nil {
			return err
		}
		if err := writeString(buf, v.ErrorMessage); err != nil {
			return err
		}
	case VerdictCompilationError:
		if err := writeString(buf, v.CompilerMessage); err != nil {
			return err
		}
	case VerdictInternalError:
		if err := writeString(buf, v.ErrorMessage); err != nil {
			return err
		}
	default:
		return fmt.Errorf("rpc: encode verdict: unknown kind %d", v.Kind)
	}

	return nil
}

func decodeVerdict(r *bytes.Reader) (*Verdict, error) {
	var kind uint8
	if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
		return nil, err
	}

	v := &Verdict{Kind: VerdictKind(kind)}

	switch v.Kind {
	case VerdictAccepted:
		if err := binary.Read(r, binary.BigEndian, &v.CPUTimeMs); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &v.RealTimeMs); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &v.MemoryKiB); err != nil {
			return nil, err
		}
	case VerdictWrongAnswer:
		expected, err := readString(r)
		if err != nil {
			return nil, err
		}
		actual, err := readString(r)
		if err != nil {
			return nil, err
		}
		v.ExpectedOutput, v.ActualOutput = expected, actual
	case VerdictTimeLimitExceeded, VerdictMemoryLimitExceeded,
		VerdictOutputLimitExceeded, VerdictPresentationError:
		// No payload fields.
	case VerdictRuntimeError:
		actual, err := readString(r)
		if err != nil {
			return nil, err
		}
		msg, err := readString(r)
		if err != nil {
			return nil, err
		}
		v.ActualOutput, v.ErrorMessage = actual, msg
	case VerdictCompilationError:
		msg, err := readString(r)
		if err != nil {
			return nil, err
		}
		v.CompilerMessage = msg
	case VerdictInternalError:
		msg, err := readString(r)
		if err != nil {
			return nil, err
		}
		v.ErrorMessage = msg
	default:
		return nil, fmt.Errorf("unknown verdict kind %d", kind)
	}

	return v, nil
}

func writeBytes(buf *bytes.Buffer, data []byte) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := buf.Write(data)
	return err
}

func writeString(buf *bytes.Buffer, s string) error {
	return writeBytes(buf, []byte(s))
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if int64(length) > int64(r.Len()) {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", length, r.Len())
	}
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
