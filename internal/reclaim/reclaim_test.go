package reclaim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/speedwagon-io/multisensor/internal/lib/logger/sl"
)

type fakePruner struct {
	calls  int
	maxAge time.Duration
	err    error
}

func (f *fakePruner) Cleanup(_ context.Context, maxAge time.Duration) (int64, error) {
	f.calls++
	f.maxAge = maxAge
	return 3, f.err
}

func TestReclaim_PrunesAndCollects(t *testing.T) {
	p := &fakePruner{}
	r := New(sl.Discard(), p, time.Hour)

	collected := 0
	r.gc = func() { collected++ }

	if err := r.Reclaim(context.Background()); err != nil {
		t.Fatalf("Reclaim() error = %v", err)
	}
	if p.calls != 1 || p.maxAge != time.Hour {
		t.Errorf("pruner calls=%d maxAge=%s, want 1 and 1h", p.calls, p.maxAge)
	}
	if collected != 1 {
		t.Errorf("gc ran %d times, want 1", collected)
	}
}

func TestReclaim_PruneErrorStillCollects(t *testing.T) {
	boom := errors.New("disk I/O error")
	r := New(sl.Discard(), &fakePruner{err: boom}, time.Hour)

	collected := 0
	r.gc = func() { collected++ }

	err := r.Reclaim(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Reclaim() error = %v, want wrapped prune error", err)
	}
	if collected != 1 {
		t.Errorf("gc ran %d times, want 1 even after prune failure", collected)
	}
}

func TestReclaim_NoPruner(t *testing.T) {
	r := New(sl.Discard(), nil, time.Hour)
	if err := r.Reclaim(context.Background()); err != nil {
		t.Errorf("Reclaim() without pruner error = %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	r := New(sl.Discard(), nil, 0)
	s := r.Snapshot(context.Background())
	if s.HeapAllocMB <= 0 {
		t.Errorf("HeapAllocMB = %v, want > 0", s.HeapAllocMB)
	}
}
