package handler

import "io"

// drainLimited reads from r, keeping at most limit+1 bytes (one extra so
// the caller can distinguish "exactly at the limit" from "over") while
// continuing to read and discard anything beyond that. Continuing to drain
// matters: if nobody keeps reading a pipe past the captured prefix, a
// chatty child can fill the OS pipe buffer and block forever on write,
// turning an output-limit violation into a spurious time-limit one.
func drainLimited(r io.Reader, limit int) (captured []byte, overflowed bool, err error) {
	buf := make([]byte, 32*1024)
	captured = make([]byte, 0, min(limit+1, 64*1024))

	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if len(captured) <= limit {
				room := limit + 1 - len(captured)
				take := n
				if take > room {
					take = room
				}
				captured = append(captured, buf[:take]...)
			}
		}
		if len(captured) > limit {
			overflowed = true
		}
		if rerr == io.EOF {
			return captured, overflowed, nil
		}
		if rerr != nil {
			return captured, overflowed, rerr
		}
	}
}
