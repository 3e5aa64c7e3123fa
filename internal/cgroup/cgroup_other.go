//go:build !linux

package cgroup

import (
	"fmt"

	"github.com/Bryasxin/judge-core/internal/cpustat"
)

// Cgroup is a non-Linux stub: cgroups are a Linux kernel facility and the
// judge agent only ever runs inside a Linux microVM guest.
type Cgroup struct{}

func Create(name string, memoryLimitKiB uint64, withCPU bool) (*Cgroup, error) {
	return nil, fmt.Errorf("cgroup: not supported on this platform")
}

func (c *Cgroup) AddPID(pid int) error { return fmt.Errorf("cgroup: not supported on this platform") }

func (c *Cgroup) MemoryUsage() (bool, uint64, error) {
	return false, 0, fmt.Errorf("cgroup: not supported on this platform")
}

func (c *Cgroup) CPUStats() (*cpustat.Stats, error) {
	return nil, fmt.Errorf("cgroup: not supported on this platform")
}

func (c *Cgroup) Destroy() error { return fmt.Errorf("cgroup: not supported on this platform") }
