package health

import (
	"context"
	"fmt"
	"time"

	"github.com/speedwagon-io/multisensor/internal/reclaim"
)

// BrokerHealthChecker reports the MQTT session. A lost session only
// degrades the device: readings keep flowing to the display.
type BrokerHealthChecker struct {
	healthFunc func(ctx context.Context) error
}

func NewBrokerHealthChecker(healthFunc func(ctx context.Context) error) *BrokerHealthChecker {
	return &BrokerHealthChecker{healthFunc: healthFunc}
}

func (c *BrokerHealthChecker) Name() string {
	return "broker"
}

func (c *BrokerHealthChecker) Check(ctx context.Context) (Status, string) {
	if err := c.healthFunc(ctx); err != nil {
		return StatusDegraded, err.Error()
	}
	return StatusHealthy, ""
}

// LoopHealthChecker flags the sensor loop as unhealthy when no iteration
// completed within staleAfter.
type LoopHealthChecker struct {
	lastFunc   func() time.Time
	staleAfter time.Duration
	nowFunc    func() time.Time
}

func NewLoopHealthChecker(lastFunc func() time.Time, staleAfter time.Duration) *LoopHealthChecker {
	return &LoopHealthChecker{
		lastFunc:   lastFunc,
		staleAfter: staleAfter,
		nowFunc:    time.Now,
	}
}

func (c *LoopHealthChecker) Name() string {
	return "loop"
}

func (c *LoopHealthChecker) Check(ctx context.Context) (Status, string) {
	last := c.lastFunc()
	if last.IsZero() {
		return StatusDegraded, "no iteration yet"
	}

	if age := c.nowFunc().Sub(last); age > c.staleAfter {
		return StatusUnhealthy, fmt.Sprintf("last iteration %s ago", age.Round(time.Millisecond))
	}
	return StatusHealthy, ""
}

// JournalHealthChecker degrades when publishes failed within the window.
type JournalHealthChecker struct {
	failuresFunc func(ctx context.Context, since time.Time) (int64, error)
	window       time.Duration
}

func NewJournalHealthChecker(failuresFunc func(ctx context.Context, since time.Time) (int64, error), window time.Duration) *JournalHealthChecker {
	return &JournalHealthChecker{failuresFunc: failuresFunc, window: window}
}

func (c *JournalHealthChecker) Name() string {
	return "journal"
}

func (c *JournalHealthChecker) Check(ctx context.Context) (Status, string) {
	failures, err := c.failuresFunc(ctx, time.Now().Add(-c.window))
	if err != nil {
		return StatusUnhealthy, err.Error()
	}

	if failures > 0 {
		return StatusDegraded, fmt.Sprintf("%d failed publishes in last %s", failures, c.window)
	}

	return StatusHealthy, ""
}

const memoryDegradedPct = 90

type MemoryHealthChecker struct {
	statsFunc func(ctx context.Context) reclaim.Stats
}

func NewMemoryHealthChecker(statsFunc func(ctx context.Context) reclaim.Stats) *MemoryHealthChecker {
	return &MemoryHealthChecker{statsFunc: statsFunc}
}

func (c *MemoryHealthChecker) Name() string {
	return "memory"
}

func (c *MemoryHealthChecker) Check(ctx context.Context) (Status, string) {
	st := c.statsFunc(ctx)
	msg := fmt.Sprintf("heap %.1fMB, rss %.1fMB, host %.0f%% used", st.HeapAllocMB, st.ProcessRSSMB, st.HostUsedPct)

	if st.HostUsedPct > memoryDegradedPct {
		return StatusDegraded, msg
	}
	return StatusHealthy, msg
}
