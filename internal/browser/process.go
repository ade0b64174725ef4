package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Processes returns every running process whose name contains nameFilter
// (case-insensitive). Processes that disappear or deny access mid-scan are
// skipped silently, matching the tolerant behavior expected of a probe.
func (t *Telemetry) Processes(ctx context.Context, nameFilter string) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	filter := strings.ToLower(nameFilter)
	var out []ProcessInfo
	for _, p := range procs {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}

		info := ProcessInfo{PID: p.Pid, Name: name}
		if memInfo, err := p.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			info.RSSBytes = memInfo.RSS
		}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			info.CPUPercent = cpu
		}
		if created, err := p.CreateTimeWithContext(ctx); err == nil && created > 0 {
			info.StartedAt = time.UnixMilli(created)
		}
		if threads, err := p.NumThreadsWithContext(ctx); err == nil {
			info.Threads = threads
		}
		out = append(out, info)
	}
	return out, nil
}

// IsRunning reports whether any process matching nameFilter exists.
func (t *Telemetry) IsRunning(ctx context.Context, nameFilter string) (bool, error) {
	procs, err := t.Processes(ctx, nameFilter)
	if err != nil {
		return false, err
	}
	return len(procs) > 0, nil
}

// KillAll terminates every process matching nameFilter and returns the
// number killed. Used only by the emergency rescue path.
func (t *Telemetry) KillAll(ctx context.Context, nameFilter string) (int, error) {
	procs, err := t.Processes(ctx, nameFilter)
	if err != nil {
		return 0, err
	}

	killed := 0
	var firstErr error
	for _, info := range procs {
		p, err := process.NewProcessWithContext(ctx, info.PID)
		if err != nil {
			continue // already gone
		}
		if err := p.KillWithContext(ctx); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("kill pid %d (%s): %w", info.PID, info.Name, err)
			}
			continue
		}
		killed++
	}
	return killed, firstErr
}
