package reclaim

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/speedwagon-io/multisensor/internal/lib/logger/sl"
)

// Pruner drops entries older than maxAge and reports how many went.
type Pruner interface {
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
}

type Stats struct {
	HeapAllocMB  float64
	ProcessRSSMB float64
	HostUsedPct  float64
	HostAvailMB  float64
}

// Reclaimer runs the periodic memory reclamation cycle: prune the journal,
// force a collection and return freed pages to the OS.
type Reclaimer struct {
	log    *slog.Logger
	pruner Pruner
	maxAge time.Duration
	proc   *process.Process
	gc     func()
}

func New(log *slog.Logger, pruner Pruner, maxAge time.Duration) *Reclaimer {
	r := &Reclaimer{
		log:    log,
		pruner: pruner,
		maxAge: maxAge,
		gc:     collect,
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("process stats unavailable", sl.Err(err))
	} else {
		r.proc = proc
	}

	return r
}

func collect() {
	runtime.GC()
	debug.FreeOSMemory()
}

func (r *Reclaimer) Reclaim(ctx context.Context) error {
	var pruneErr error
	var pruned int64
	if r.pruner != nil && r.maxAge > 0 {
		pruned, pruneErr = r.pruner.Cleanup(ctx, r.maxAge)
		if pruneErr != nil {
			pruneErr = fmt.Errorf("failed to prune journal: %w", pruneErr)
		}
	}

	before := r.Snapshot(ctx)
	r.gc()
	after := r.Snapshot(ctx)

	r.log.Debug("memory reclaimed",
		slog.Int64("journal_pruned", pruned),
		slog.Float64("heap_before_mb", before.HeapAllocMB),
		slog.Float64("heap_after_mb", after.HeapAllocMB),
		slog.Float64("rss_after_mb", after.ProcessRSSMB),
		slog.Float64("host_used_pct", after.HostUsedPct),
	)

	return pruneErr
}

// Snapshot gathers heap, process and host memory figures. Missing figures
// are left at zero.
func (r *Reclaimer) Snapshot(ctx context.Context) Stats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := Stats{HeapAllocMB: toMB(ms.HeapAlloc)}

	if r.proc != nil {
		if info, err := r.proc.MemoryInfoWithContext(ctx); err == nil {
			s.ProcessRSSMB = toMB(info.RSS)
		}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.HostUsedPct = vm.UsedPercent
		s.HostAvailMB = toMB(vm.Available)
	}

	return s
}

func toMB(b uint64) float64 {
	return float64(b) / 1024.0 / 1024.0
}
