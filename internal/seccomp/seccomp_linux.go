//go:build linux

// Package seccomp installs the Basic-deny and Strict-allow syscall filters
// described in spec §4.4. Both are raw classic-BPF programs built and
// loaded the way ehrlich-b/wingthing's internal/sandbox package does it
// (golang.org/x/sys/unix SockFilter/SockFprog, no cgo seccomp library): a
// program that loads the syscall number at offset 0 of seccomp_data, then
// one comparison per listed syscall, falling through to a default action.
//
// Apply must be called in the child process after fork and
// before exec, never in the agent itself — the filter is inherited across
// exec and applies to the user's program, not the judge.
package seccomp

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	retAllow = 0x7fff0000 // SECCOMP_RET_ALLOW
	retErrno = 0x00050000 // SECCOMP_RET_ERRNO
)

// Profile identifies which filter to install.
type Profile int

const (
	// Basic denies a fixed list of dangerous syscalls and allows everything
	// else. Used for §4.6 test-case execution.
	Basic Profile = iota
	// Strict denies everything except a small essential allowlist. The C++
	// handler installs it only when its configured profile is "strict".
	Strict
)

// Apply installs the named profile's filter in the calling process. It must
// run after fork, before exec, in the child only.
func Apply(p Profile) error {
	var prog []unix.SockFilter
	switch p {
	case Basic:
		prog = buildDenylistFilter(basicDenylist)
	case Strict:
		prog = buildAllowlistFilter(strictAllowlist)
	default:
		return fmt.Errorf("seccomp: unknown profile %d", p)
	}

	// PR_SET_NO_NEW_PRIVS is required before installing a filter as a
	// non-root process.
	if _, _, errno := unix.RawSyscall(unix.SYS_PRCTL, unix.PR_SET_NO_NEW_PRIVS, 1, 0); errno != 0 {
		return fmt.Errorf("seccomp: prctl(NO_NEW_PRIVS): %w", errno)
	}

	fprog := unix.SockFprog{
		Len:    uint16(len(prog)),
		Filter: &prog[0],
	}

	// SECCOMP_SET_MODE_FILTER = 1
	if _, _, errno := unix.RawSyscall(unix.SYS_SECCOMP, 1, 0, uintptr(unsafe.Pointer(&fprog))); errno != 0 {
		return fmt.Errorf("seccomp: seccomp(SET_MODE_FILTER): %w", errno)
	}

	return nil
}

// buildDenylistFilter builds a "default allow, deny these" program: the
// Basic profile.
func buildDenylistFilter(denied []uint32) []unix.SockFilter {
	return buildFilter(retAllow, retErrno|uint32(unix.EPERM), denied)
}

// buildAllowlistFilter builds a "default deny, allow these" program: the
// Strict profile.
func buildAllowlistFilter(allowed []uint32) []unix.SockFilter {
	return buildFilter(retErrno|uint32(unix.EPERM), retAllow, allowed)
}

// buildFilter constructs a classic-BPF program: load the syscall number,
// then for each entry in matched jump to the matchedAction return if equal,
// otherwise fall through; the final instruction returns defaultAction.
func buildFilter(defaultAction, matchedAction uint32, syscalls []uint32) []unix.SockFilter {
	n := len(syscalls)
	prog := make([]unix.SockFilter, 0, n+2)

	// Load syscall number: BPF_LD+BPF_W+BPF_ABS, offsetof(seccomp_data, nr) == 0.
	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_LD | unix.BPF_W | unix.BPF_ABS,
		K:    0,
	})

	for i, nr := range syscalls {
		// Jump forward over the remaining comparisons plus the default-return
		// instruction to land on the matched-return instruction.
		jt := uint8(n - i)
		prog = append(prog, unix.SockFilter{
			Code: unix.BPF_JMP | unix.BPF_JEQ | unix.BPF_K,
			Jt:   jt,
			Jf:   0,
			K:    nr,
		})
	}

	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_RET | unix.BPF_K,
		K:    defaultAction,
	})
	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_RET | unix.BPF_K,
		K:    matchedAction,
	})

	return prog
}
