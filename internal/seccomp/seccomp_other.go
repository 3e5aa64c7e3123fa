//go:build !linux

package seccomp

import "fmt"

// Profile identifies which filter to install (non-Linux stub).
type Profile int

const (
	Basic Profile = iota
	Strict
)

// Apply always fails on non-Linux platforms: classic-BPF seccomp filtering
// is a Linux-only kernel facility, and the judge agent only ever runs
// inside a Linux microVM guest.
func Apply(Profile) error {
	return fmt.Errorf("seccomp: not supported on this platform")
}
