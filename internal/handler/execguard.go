package handler

import (
	"fmt"
	"os"
	"syscall"

	"github.com/Bryasxin/judge-core/internal/seccomp"
)

// execGuardSubcommand is the hidden argv[1] the agent binary re-execs
// itself with. Go's os/exec has no fork-without-exec hook, so — the way
// ehrlich-b/wingthing's _deny_init wrapper re-execs itself to apply mount
// and seccomp isolation before running the real command — the judge agent
// re-execs itself as this wrapper, installs the seccomp filter in that
// freshly forked child, and then syscall.Exec's the user's program in
// place. The filter is inherited across that final exec, so it ends up
// applied to the user program and never to the agent.
const execGuardSubcommand = "_exec_guard"

// RunExecGuard is the entry point cmd/judge-agent dispatches to when
// invoked as the re-exec wrapper: argv is
// ["_exec_guard", profile, "--", path, args...]. It never returns on
// success — syscall.Exec replaces the current process image.
func RunExecGuard(argv []string) error {
	if len(argv) < 4 || argv[2] != "--" {
		return fmt.Errorf("exec guard: usage: %s <profile> -- <path> [args...]", execGuardSubcommand)
	}
	profileName := argv[1]
	path := argv[3]
	args := argv[3:]

	var profile seccomp.Profile
	switch profileName {
	case "basic":
		profile = seccomp.Basic
	case "strict":
		profile = seccomp.Strict
	default:
		return fmt.Errorf("exec guard: unknown profile %q", profileName)
	}

	if err := seccomp.Apply(profile); err != nil {
		return fmt.Errorf("exec guard: apply %s filter: %w", profileName, err)
	}

	return syscall.Exec(path, args, os.Environ())
}

// guardArgv builds the argv the agent re-execs itself with for a given
// seccomp profile and target executable.
func guardArgv(selfPath, profileName, targetPath string, targetArgs []string) []string {
	argv := []string{selfPath, execGuardSubcommand, profileName, "--", targetPath}
	return append(argv, targetArgs...)
}
