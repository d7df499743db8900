package system

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Resources is a snapshot of what the host can give the page workers.
type Resources struct {
	LogicalCPUs    int
	AvailableBytes uint64
}

// Probe reads CPU and memory figures. Failed probes fall back to
// runtime.NumCPU and an unknown (zero) memory figure.
func Probe() Resources {
	res := Resources{LogicalCPUs: runtime.NumCPU()}

	if n, err := cpu.Counts(true); err == nil && n > 0 {
		res.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		res.AvailableBytes = vm.Available
	}
	return res
}

func (r Resources) String() string {
	return fmt.Sprintf("cpus=%d mem_available=%dMiB", r.LogicalCPUs, r.AvailableBytes/(1<<20))
}

// Workers returns how many pages may be processed at once. A positive
// requested value wins. Otherwise the CPU count is capped by how many
// pages of perPageBytes fit into available memory.
func (r Resources) Workers(requested int, perPageBytes uint64) int {
	if requested > 0 {
		return requested
	}

	n := r.LogicalCPUs
	if perPageBytes > 0 && r.AvailableBytes > 0 {
		byMemory := int(r.AvailableBytes / perPageBytes)
		if byMemory < n {
			n = byMemory
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// PageBytes estimates the working set of one page: the NRGBA page, its
// grayscale and binary copies, and crops handed to collaborators.
func PageBytes(width, height int) uint64 {
	px := uint64(width) * uint64(height)
	return px*4 + px*2 + px*4
}
