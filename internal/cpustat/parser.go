// Package cpustat parses the kernel cgroup cpu.stat key/value format:
// whitespace-separated "key value" pairs, one per line.
package cpustat

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Stats holds the three fields the judge agent cares about out of cpu.stat.
// Extra keys present in the input are ignored.
type Stats struct {
	UsageUsec  uint64
	UserUsec   uint64
	SystemUsec uint64
}

// ParseError reports why a cpu.stat blob failed to parse. Kind lets callers
// distinguish failure classes without string matching.
type ParseError struct {
	Kind string
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cpustat: %s: %q", e.Kind, e.Text)
}

const (
	kindInvalidRow            = "invalid row"
	kindInvalidNumber         = "invalid number"
	kindMissingImportantField = "missing important field"
)

// Parse reads cpu.stat-formatted text and returns the three required
// fields. A line with anything other than exactly two whitespace-separated
// tokens is InvalidRow (blank lines with no tokens at all are skipped, but
// a line with whitespace and no tokens is, by definition, also skipped: it
// produces zero tokens, not one). A second token that isn't a base-10
// non-negative integer is InvalidNumber. Absence of usage_usec, user_usec,
// or system_usec after a full scan is MissingImportantField.
func Parse(text string) (*Stats, error) {
	values := make(map[string]uint64)

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, &ParseError{Kind: kindInvalidRow, Text: line}
		}

		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, &ParseError{Kind: kindInvalidNumber, Text: fields[1]}
		}
		values[fields[0]] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Kind: kindInvalidRow, Text: err.Error()}
	}

	usage, ok := values["usage_usec"]
	if !ok {
		return nil, &ParseError{Kind: kindMissingImportantField, Text: "usage_usec"}
	}
	user, ok := values["user_usec"]
	if !ok {
		return nil, &ParseError{Kind: kindMissingImportantField, Text: "user_usec"}
	}
	system, ok := values["system_usec"]
	if !ok {
		return nil, &ParseError{Kind: kindMissingImportantField, Text: "system_usec"}
	}

	return &Stats{UsageUsec: usage, UserUsec: user, SystemUsec: system}, nil
}
