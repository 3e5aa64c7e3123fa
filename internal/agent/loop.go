// Package agent runs the guest-side request/response loop: read one frame
// from the host channel, decode it, dispatch to the matching Handler, run
// the Engine, encode the response, write the frame. See §4.8.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Bryasxin/judge-core/internal/engine"
	"github.com/Bryasxin/judge-core/internal/handler"
	"github.com/Bryasxin/judge-core/internal/rpc"
	"github.com/Bryasxin/judge-core/internal/wire"
)

// Dispatcher resolves a Language to the Handler that serves it. A missing
// entry is an InternalError, never a silently-ignored request.
type Dispatcher map[rpc.Language]handler.Handler

// Loop serves requests on conn until the stream ends or a fatal response is
// produced, in which case it returns a non-nil error so the caller can exit
// the process (the guest is disposable; there is no recovery path for a
// fatal InternalError other than restarting the whole VM).
func Loop(ctx context.Context, conn io.ReadWriter, handlers Dispatcher) error {
	for {
		reqBytes, err := wire.Receive(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("agent: receive request: %w", err)
		}

		resp := handleOne(ctx, handlers, reqBytes)

		respBytes, err := resp.Encode()
		if err != nil {
			return fmt.Errorf("agent: encode response: %w", err)
		}
		if err := wire.Send(conn, respBytes); err != nil {
			return fmt.Errorf("agent: send response: %w", err)
		}

		if resp.IsFatalError {
			return fmt.Errorf("agent: fatal verdict for submission %x: %s", resp.ID, resp.Result.ErrorMessage)
		}
	}
}

// handleOne decodes and judges a single request, translating any decode
// failure into a fatal InternalError response of its own — a malformed
// request is as unrecoverable as a Handler failure, since the agent has no
// way to tell the host which submission it was.
func handleOne(ctx context.Context, handlers Dispatcher, reqBytes []byte) *rpc.Response {
	sub, err := rpc.DecodeSubmission(reqBytes)
	if err != nil {
		slog.Error("agent: failed to decode submission", "error", err)
		return &rpc.Response{
			IsFatalError: true,
			Result: rpc.Verdict{
				Kind:         rpc.VerdictInternalError,
				ErrorMessage: fmt.Sprintf("decode submission: %v", err),
			},
		}
	}

	h, ok := handlers[sub.Language]
	if !ok {
		slog.Error("agent: no handler for language", "language", sub.Language.String())
		return &rpc.Response{
			ID:           sub.ID,
			IsFatalError: true,
			Result: rpc.Verdict{
				Kind:         rpc.VerdictInternalError,
				ErrorMessage: fmt.Sprintf("no handler registered for language %s", sub.Language),
			},
		}
	}

	verdict := engine.Judge(ctx, h, sub)
	return &rpc.Response{
		ID:           sub.ID,
		IsFatalError: verdict.Kind == rpc.VerdictInternalError,
		Result:       verdict,
	}
}
