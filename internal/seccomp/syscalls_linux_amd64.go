//go:build linux && amd64

package seccomp

import "golang.org/x/sys/unix"

// basicDenylist is the Basic profile's fixed denylist (spec §4.4): default
// allow, EPERM for these. Grouped by the categories the spec names.
var basicDenylist = []uint32{
	// Filesystem mutation.
	unix.SYS_OPEN,
	unix.SYS_OPENAT,
	unix.SYS_CREAT,
	unix.SYS_UNLINK,
	unix.SYS_UNLINKAT,
	unix.SYS_MKDIR,
	unix.SYS_MKDIRAT,
	unix.SYS_RMDIR,

	// Permission and identity changes.
	unix.SYS_CHMOD,
	unix.SYS_FCHMOD,
	unix.SYS_FCHMODAT,
	unix.SYS_CHOWN,
	unix.SYS_FCHOWN,
	unix.SYS_LCHOWN,
	unix.SYS_FCHOWNAT,
	unix.SYS_SETUID,
	unix.SYS_SETGID,
	unix.SYS_SETREUID,
	unix.SYS_SETREGID,
	unix.SYS_SETRESUID,
	unix.SYS_SETRESGID,
	unix.SYS_SETGROUPS,
	unix.SYS_CAPSET,

	// System-level operations.
	unix.SYS_MOUNT,
	unix.SYS_UMOUNT2,
	unix.SYS_PIVOT_ROOT,
	unix.SYS_SWAPON,
	unix.SYS_SWAPOFF,
	unix.SYS_REBOOT,
	unix.SYS_KEXEC_LOAD,
	unix.SYS_KEXEC_FILE_LOAD,
	unix.SYS_PERF_EVENT_OPEN,
	unix.SYS_BPF,

	// Debugging and memory intrusion.
	unix.SYS_PTRACE,
	unix.SYS_PROCESS_VM_WRITEV,

	// Networking.
	unix.SYS_SOCKET,
	unix.SYS_SOCKETPAIR,
	unix.SYS_CONNECT,
	unix.SYS_ACCEPT,
	unix.SYS_ACCEPT4,
	unix.SYS_BIND,
	unix.SYS_LISTEN,
}

// strictAllowlist is the Strict profile's allowlist (spec §4.4): default
// deny (EPERM), allow only these.
var strictAllowlist = []uint32{
	// Basic I/O on already-open descriptors.
	unix.SYS_READ,
	unix.SYS_WRITE,
	unix.SYS_CLOSE,
	unix.SYS_PREAD64,
	unix.SYS_PWRITE64,
	unix.SYS_LSEEK,
	unix.SYS_FSTAT,
	unix.SYS_IOCTL,

	// Process exit.
	unix.SYS_EXIT,
	unix.SYS_EXIT_GROUP,

	// Memory management.
	unix.SYS_BRK,
	unix.SYS_MMAP,
	unix.SYS_MPROTECT,
	unix.SYS_MUNMAP,

	// Identity queries.
	unix.SYS_GETPID,
	unix.SYS_GETPPID,
	unix.SYS_GETUID,
	unix.SYS_GETGID,
	unix.SYS_GETEUID,
	unix.SYS_GETEGID,

	// Thread/runtime bookkeeping.
	unix.SYS_ARCH_PRCTL,
	unix.SYS_SET_TID_ADDRESS,
	unix.SYS_SET_ROBUST_LIST,
	unix.SYS_FUTEX,
	unix.SYS_RT_SIGACTION,
	unix.SYS_RT_SIGPROCMASK,
	unix.SYS_RT_SIGRETURN,

	// Clocks and randomness.
	unix.SYS_CLOCK_GETTIME,
	unix.SYS_CLOCK_NANOSLEEP,
	unix.SYS_NANOSLEEP,
	unix.SYS_GETTIMEOFDAY,
	unix.SYS_TIME,
	unix.SYS_GETRANDOM,
}
