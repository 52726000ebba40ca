// Package health reports host level figures for the inspection API.
package health

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

type Status struct {
	Load1          float64 `json:"load1"`
	Load5          float64 `json:"load5"`
	MemoryUsed     float64 `json:"memory_used_percent"`
	HostUptime     string  `json:"host_uptime"`
	ServiceStarted string  `json:"service_started"`
}

// Check collects the current status. started is when the service came up.
func Check(started time.Time) (Status, error) {
	avg, err := load.Avg()
	if err != nil {
		return Status{}, fmt.Errorf("reading load average: %w", err)
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Status{}, fmt.Errorf("reading memory usage: %w", err)
	}
	up, err := host.Uptime()
	if err != nil {
		return Status{}, fmt.Errorf("reading host uptime: %w", err)
	}
	now := time.Now()
	return Status{
		Load1:          avg.Load1,
		Load5:          avg.Load5,
		MemoryUsed:     vm.UsedPercent,
		HostUptime:     strings.TrimSpace(humanize.RelTime(now.Add(-time.Duration(up)*time.Second), now, "", "")),
		ServiceStarted: humanize.Time(started),
	}, nil
}
