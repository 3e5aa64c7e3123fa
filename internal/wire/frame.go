// Package wire implements the length-prefixed frame protocol used on the
// host<->guest channel: a little-endian u32 payload length followed by that
// many bytes of payload. One direction at a time; callers serialize their
// own reads and writes on a stream.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPayloadLen bounds a single frame to protect the agent from a
// malformed or hostile length prefix forcing an unbounded allocation.
const MaxPayloadLen = 64 * 1024 * 1024

// Send writes one frame to w: a little-endian u32 length followed by data.
// The write is atomic in the sense that length and payload are written as
// one buffer, so a short write can't leave a dangling partial length.
func Send(w io.Writer, data []byte) error {
	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(data)))
	copy(buf[4:], data)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wire: send: %w", err)
	}
	return nil
}

// Receive reads one frame from r. It fails with an error wrapping io.EOF or
// io.ErrUnexpectedEOF if the stream ends before a full frame is read.
func Receive(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: receive length: %w", err)
	}

	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length > MaxPayloadLen {
		return nil, fmt.Errorf("wire: receive: payload length %d exceeds max %d", length, MaxPayloadLen)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("wire: receive payload: %w", err)
		}
	}
	return payload, nil
}
