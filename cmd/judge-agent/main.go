// Command judge-agent is the guest-side binary: it serves submissions over
// the host channel (§4.8) and, when re-exec'd with the hidden
// "_exec_guard" subcommand, installs a seccomp filter and execs the user's
// program in its place (see internal/handler.RunExecGuard).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/Bryasxin/judge-core/internal/agent"
	"github.com/Bryasxin/judge-core/internal/circuitbreaker"
	"github.com/Bryasxin/judge-core/internal/config"
	"github.com/Bryasxin/judge-core/internal/handler"
	"github.com/Bryasxin/judge-core/internal/metrics"
	"github.com/Bryasxin/judge-core/internal/rpc"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "_exec_guard" {
		if err := handler.RunExecGuard(os.Args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg := config.Get()
	configureLogging(cfg.Logging.Level)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
				slog.Error("judge-agent: metrics server exited", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dialHostChannel(ctx, cfg.Channel.Port)
	if err != nil {
		slog.Error("judge-agent: failed to connect to host channel", "port", cfg.Channel.Port, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	handlers := agent.Dispatcher{
		rpc.LanguageCpp: handler.CppHandler{SeccompProfile: cfg.Seccomp.ExecuteProfile},
	}

	slog.Info("judge-agent: serving submissions", "port", cfg.Channel.Port)
	if err := agent.Loop(ctx, conn, handlers); err != nil {
		slog.Error("judge-agent: loop terminated", "error", err)
		// The guest is disposable: a fatal error here means something in
		// the isolation envelope or wire protocol is broken beyond repair
		// for this VM instance, so exit non-zero and let the host recycle it.
		os.Exit(1)
	}
}

// dialHostChannel retries the initial vsock dial behind a circuit breaker:
// the host may still be finishing guest setup when the agent starts, so a
// handful of quick retries are expected, but a host that never comes up
// shouldn't be hammered with a dial attempt every loop iteration forever.
func dialHostChannel(ctx context.Context, port int) (net.Conn, error) {
	breaker := circuitbreaker.New(circuitbreaker.HostChannelConfig())

	for {
		result, err := breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
			return vsock.Dial(vsock.Host, uint32(port), nil)
		})
		if err == nil {
			return result.(net.Conn), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		slog.Warn("judge-agent: host channel dial failed, retrying", "error", err, "breaker_state", breaker.State().String())
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func configureLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
