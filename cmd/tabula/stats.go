package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// resourceMonitor samples the CPU and memory use of this process.
type resourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
}

func newResourceMonitor() *resourceMonitor {
	rm := &resourceMonitor{startTime: time.Now()}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return rm
	}
	rm.process = proc
	if cpuTime, err := proc.Times(); err == nil {
		rm.startCPUTime = cpuTime.Total()
	}
	return rm
}

type resourceUsage struct {
	CPUPercent            float64
	MemoryRSS             uint64
	HeapAlloc             uint64
	SystemMemoryPercent   float64
	SystemMemoryAvailable uint64
	GoroutineCount        int
}

func (rm *resourceMonitor) usage() resourceUsage {
	var u resourceUsage

	if rm.process != nil {
		if cpuTime, err := rm.process.Times(); err == nil {
			if elapsed := time.Since(rm.startTime).Seconds(); elapsed > 0 {
				u.CPUPercent = (cpuTime.Total() - rm.startCPUTime) / elapsed * 100
			}
		}
		if memInfo, err := rm.process.MemoryInfo(); err == nil {
			u.MemoryRSS = memInfo.RSS
		}
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		u.SystemMemoryPercent = vmStat.UsedPercent
		u.SystemMemoryAvailable = vmStat.Available
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	u.HeapAlloc = memStats.HeapAlloc
	u.GoroutineCount = runtime.NumGoroutine()
	return u
}

func (u resourceUsage) write(w io.Writer) {
	const mb = 1024 * 1024
	fmt.Fprintln(w, title("resources"))
	fmt.Fprintf(w, "  cpu:        %.1f%%\n", u.CPUPercent)
	fmt.Fprintf(w, "  rss:        %d MB\n", u.MemoryRSS/mb)
	fmt.Fprintf(w, "  heap:       %d MB\n", u.HeapAlloc/mb)
	fmt.Fprintf(w, "  system:     %.1f%% used, %d MB available\n", u.SystemMemoryPercent, u.SystemMemoryAvailable/mb)
	fmt.Fprintf(w, "  goroutines: %d\n", u.GoroutineCount)
}
