//go:build linux

// Package cgroup manages per-execution cgroup v2 sub-groups: create with a
// memory ceiling, attach a pid, read back cpu/memory accounting, destroy.
// Adapted from ehrlich-b/wingthing's internal/sandbox cgroupManager (which
// manages a single sub-cgroup under the caller's own cgroup via direct
// filesystem writes) and generalized to the judge's two call sites: a
// compile cgroup (memory-only, no CPU quota) and a per-test execute cgroup
// (memory + cpu accounting).
package cgroup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Bryasxin/judge-core/internal/cpustat"
)

const cgroupRoot = "/sys/fs/cgroup"

// Cgroup is a single cgroup v2 sub-directory created for one compile or
// execute call. It owns no process; the caller attaches and reaps the
// child itself.
type Cgroup struct {
	path string
}

// Create makes a new cgroup named name under the caller's own cgroup v2
// subtree, enables the memory (and, if requested, cpu) controllers, and
// sets memory.max. The cgroup must be destroyed by the caller via Destroy
// on every exit path — success, timeout, OOM, or I/O error — per spec §4.6.
func Create(name string, memoryLimitKiB uint64, withCPU bool) (*Cgroup, error) {
	if _, err := os.Stat(filepath.Join(cgroupRoot, "cgroup.controllers")); err != nil {
		return nil, fmt.Errorf("cgroup: cgroups v2 not available: %w", err)
	}

	ownPath, err := readOwnCgroup()
	if err != nil {
		return nil, fmt.Errorf("cgroup: read own cgroup: %w", err)
	}

	parentPath := filepath.Join(cgroupRoot, ownPath)
	cgPath := filepath.Join(parentPath, name)

	if err := os.MkdirAll(cgPath, 0755); err != nil {
		return nil, fmt.Errorf("cgroup: mkdir %s: %w", cgPath, err)
	}

	controllers := []string{"+memory"}
	if withCPU {
		controllers = append(controllers, "+cpu")
	}
	if err := enableControllers(parentPath, controllers); err != nil {
		os.Remove(cgPath)
		return nil, fmt.Errorf("cgroup: enable controllers: %w", err)
	}

	memPath := filepath.Join(cgPath, "memory.max")
	if err := os.WriteFile(memPath, []byte(strconv.FormatUint(memoryLimitKiB*1024, 10)), 0644); err != nil {
		os.Remove(cgPath)
		return nil, fmt.Errorf("cgroup: set memory.max: %w", err)
	}

	return &Cgroup{path: cgPath}, nil
}

// AddPID attaches pid to the cgroup.
func (c *Cgroup) AddPID(pid int) error {
	procsPath := filepath.Join(c.path, "cgroup.procs")
	if err := os.WriteFile(procsPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("cgroup: attach pid %d: %w", pid, err)
	}
	return nil
}

// MemoryUsage reports whether the cgroup's memory.max was ever hit (the
// "fail_cnt > 0" check from spec §4.6, read from memory.events' max/oom
// counters) and the peak RSS observed, in bytes.
func (c *Cgroup) MemoryUsage() (failed bool, peakBytes uint64, err error) {
	events, err := c.readKeyValueFile("memory.events")
	if err != nil {
		return false, 0, err
	}
	failed = events["max"] > 0 || events["oom"] > 0 || events["oom_kill"] > 0

	peakBytes, err = c.readUintFile("memory.peak")
	if err != nil {
		// memory.peak was added in Linux 5.19; fall back to memory.current,
		// which under-reports peak usage but keeps older kernels working.
		peakBytes, err = c.readUintFile("memory.current")
		if err != nil {
			return failed, 0, err
		}
	}

	return failed, peakBytes, nil
}

// CPUStats reads and parses cpu.stat.
func (c *Cgroup) CPUStats() (*cpustat.Stats, error) {
	data, err := os.ReadFile(filepath.Join(c.path, "cpu.stat"))
	if err != nil {
		return nil, fmt.Errorf("cgroup: read cpu.stat: %w", err)
	}
	stats, err := cpustat.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("cgroup: parse cpu.stat: %w", err)
	}
	return stats, nil
}

// Destroy removes the cgroup directory. All processes must have exited
// (or been moved out) first, or the kernel refuses the rmdir.
func (c *Cgroup) Destroy() error {
	if err := os.Remove(c.path); err != nil {
		return fmt.Errorf("cgroup: destroy %s: %w", c.path, err)
	}
	return nil
}

func (c *Cgroup) readUintFile(name string) (uint64, error) {
	data, err := os.ReadFile(filepath.Join(c.path, name))
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}

func (c *Cgroup) readKeyValueFile(name string) (map[string]uint64, error) {
	data, err := os.ReadFile(filepath.Join(c.path, name))
	if err != nil {
		return nil, fmt.Errorf("cgroup: read %s: %w", name, err)
	}
	out := make(map[string]uint64)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		out[fields[0]] = v
	}
	return out, nil
}

// parseCgroupV2Path extracts the cgroup v2 path from /proc/self/cgroup
// content. v2 entries have the format "0::<path>".
func parseCgroupV2Path(content string) (string, error) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "0::") {
			return line[3:], nil
		}
	}
	return "", fmt.Errorf("no cgroup v2 entry found")
}

func readOwnCgroup() (string, error) {
	data, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return "", fmt.Errorf("read /proc/self/cgroup: %w", err)
	}
	return parseCgroupV2Path(string(data))
}

// enableControllers writes to cgroup.subtree_control to enable controllers
// in the parent. Handles EBUSY the way wingthing's cgroup manager does: if
// the parent has direct member processes, cgroups v2's "no internal
// processes" rule forbids enabling controllers there, so the current
// process is moved to a leaf sub-cgroup first and the write is retried.
func enableControllers(parentPath string, controllers []string) error {
	payload := strings.Join(controllers, " ")
	controlPath := filepath.Join(parentPath, "cgroup.subtree_control")

	err := os.WriteFile(controlPath, []byte(payload), 0644)
	if err == nil {
		return nil
	}
	if !strings.Contains(err.Error(), "device or resource busy") {
		return err
	}

	leafPath := filepath.Join(parentPath, "judge-agent-daemon")
	if err := os.MkdirAll(leafPath, 0755); err != nil {
		return fmt.Errorf("create leaf cgroup: %w", err)
	}
	procsPath := filepath.Join(leafPath, "cgroup.procs")
	if err := os.WriteFile(procsPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("move self to leaf cgroup: %w", err)
	}

	return os.WriteFile(controlPath, []byte(payload), 0644)
}
