package scheduler

import "time"

type Task int

const (
	TaskSample Task = iota
	TaskHumidity
	TaskPublish
	TaskDisplay
	TaskReclaim
)

func (t Task) String() string {
	switch t {
	case TaskSample:
		return "sample"
	case TaskHumidity:
		return "humidity"
	case TaskPublish:
		return "publish"
	case TaskDisplay:
		return "display"
	case TaskReclaim:
		return "reclaim"
	default:
		return "unknown"
	}
}

// Outcome is the result of one task within an iteration.
type Outcome struct {
	Task Task
	Err  error
}

// Report describes one iteration. Outcomes lists the tasks that ran, in
// order. Err is set when the iteration was cut short.
type Report struct {
	Now      time.Time
	Outcomes []Outcome
	Err      error
}

func (r *Report) add(t Task, err error) {
	r.Outcomes = append(r.Outcomes, Outcome{Task: t, Err: err})
}

func (r Report) Fired(t Task) bool {
	for _, o := range r.Outcomes {
		if o.Task == t {
			return true
		}
	}
	return false
}

func (r Report) Failure(t Task) error {
	for _, o := range r.Outcomes {
		if o.Task == t {
			return o.Err
		}
	}
	return nil
}
