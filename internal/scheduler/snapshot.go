package scheduler

import (
	"time"

	"github.com/speedwagon-io/multisensor/internal/model"
)

// Snapshot is the read-only view of the loop published after every
// iteration for other goroutines.
type Snapshot struct {
	Readings       model.Readings `json:"readings"`
	Timers         Timers         `json:"timers"`
	LastIteration  time.Time      `json:"last_iteration"`
	Iterations     uint64         `json:"iterations"`
	LastError      string         `json:"last_error,omitempty"`
	LastErrorClass string         `json:"last_error_class,omitempty"`
	LastErrorAt    time.Time      `json:"last_error_at"`
}

func (s *Scheduler) storeSnapshot(rep Report, iterErr error) {
	snap := Snapshot{
		Readings:      s.state.Readings,
		Timers:        s.state.Timers,
		LastIteration: rep.Now,
		Iterations:    s.iterations,
	}

	if prev := s.snapshot.Load(); prev != nil {
		snap.LastError = prev.LastError
		snap.LastErrorClass = prev.LastErrorClass
		snap.LastErrorAt = prev.LastErrorAt
	}
	if iterErr != nil {
		snap.LastError = iterErr.Error()
		snap.LastErrorClass = Classify(iterErr)
		snap.LastErrorAt = rep.Now
	}

	s.snapshot.Store(&snap)
}

// Snapshot is safe to call from any goroutine.
func (s *Scheduler) Snapshot() Snapshot {
	if snap := s.snapshot.Load(); snap != nil {
		return *snap
	}
	return Snapshot{}
}
