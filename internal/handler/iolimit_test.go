package handler

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainLimitedUnderLimit(t *testing.T) {
	captured, overflowed, err := drainLimited(strings.NewReader("hello"), 100)
	require.NoError(t, err)
	assert.False(t, overflowed)
	assert.Equal(t, "hello", string(captured))
}

func TestDrainLimitedExactlyAtLimit(t *testing.T) {
	captured, overflowed, err := drainLimited(strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.False(t, overflowed)
	assert.Equal(t, "hello", string(captured))
}

func TestDrainLimitedOverLimitStillDrainsReader(t *testing.T) {
	data := strings.Repeat("x", 1<<20)
	captured, overflowed, err := drainLimited(strings.NewReader(data), 10)
	require.NoError(t, err)
	assert.True(t, overflowed)
	assert.LessOrEqual(t, len(captured), 11)
}

// slowPipeReader mimics a chatty child: it never returns EOF until fully
// drained, so drainLimited must keep reading past the limit rather than
// stopping, or a caller using a real OS pipe would block forever on write.
type slowPipeReader struct {
	buf *bytes.Buffer
}

func (s *slowPipeReader) Read(p []byte) (int, error) {
	if s.buf.Len() == 0 {
		return 0, io.EOF
	}
	return s.buf.Read(p)
}

func TestDrainLimitedConsumesEntireStreamPastLimit(t *testing.T) {
	payload := strings.Repeat("y", 1<<16)
	r := &slowPipeReader{buf: bytes.NewBufferString(payload)}

	captured, overflowed, err := drainLimited(r, 16)
	require.NoError(t, err)
	assert.True(t, overflowed)
	assert.Equal(t, 0, r.buf.Len(), "reader must be fully drained even past the limit")
	assert.LessOrEqual(t, len(captured), 17)
}
