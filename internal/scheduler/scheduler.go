package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/speedwagon-io/multisensor/internal/config"
	"github.com/speedwagon-io/multisensor/internal/display"
	"github.com/speedwagon-io/multisensor/internal/lib/logger/sl"
	"github.com/speedwagon-io/multisensor/internal/model"
	"github.com/speedwagon-io/multisensor/internal/sensor"
)

// Publisher sends one field to one topic.
type Publisher interface {
	Publish(ctx context.Context, topic, field string, value float64) error
}

type Reclaimer interface {
	Reclaim(ctx context.Context) error
}

// Deps are the collaborators driven by the loop. Reclaimer may be nil.
type Deps struct {
	Thermistor    sensor.AnalogInput
	Photoresistor sensor.AnalogInput
	Hygrometer    sensor.Hygrometer
	Publisher     Publisher
	Display       display.Display
	Reclaimer     Reclaimer
}

type Timers struct {
	LastHumidity time.Time `json:"last_humidity"`
	LastPublish  time.Time `json:"last_publish"`
	LastDisplay  time.Time `json:"last_display"`
	LastReclaim  time.Time `json:"last_reclaim"`
}

type State struct {
	Readings model.Readings
	Timers   Timers
}

// Scheduler is a single-threaded cooperative loop. State is only touched
// from the goroutine calling Run or Step.
type Scheduler struct {
	log    *slog.Logger
	cfg    config.ScheduleConfig
	topics config.TopicsConfig
	deps   Deps

	state      State
	iterations uint64

	nowFunc func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error

	snapshot atomic.Pointer[Snapshot]
}

func New(log *slog.Logger, cfg config.ScheduleConfig, topics config.TopicsConfig, deps Deps) *Scheduler {
	s := &Scheduler{
		log:     log,
		cfg:     cfg,
		topics:  topics,
		deps:    deps,
		nowFunc: time.Now,
		sleep:   sleepCtx,
	}
	s.reset()
	s.storeSnapshot(Report{}, nil)
	return s
}

func (s *Scheduler) reset() {
	now := s.nowFunc()
	s.state.Timers = Timers{
		LastHumidity: now,
		LastPublish:  now,
		LastDisplay:  now,
		LastReclaim:  now,
	}
}

// State returns a copy of the loop state.
func (s *Scheduler) State() State {
	return s.state
}

// Run drives Step until ctx is cancelled. Iteration failures are logged and
// never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.reset()

	s.log.Info("scheduler started",
		slog.Duration("tick", s.cfg.Tick),
		slog.Duration("humidity", s.cfg.Humidity),
		slog.Duration("publish", s.cfg.Publish),
		slog.Duration("display", s.cfg.Display),
		slog.Duration("reclaim", s.cfg.Reclaim),
	)

	for {
		if ctx.Err() != nil {
			s.log.Info("interrupt received, scheduler stopped", slog.Uint64("iterations", s.iterations))
			return nil
		}

		rep := s.Step(ctx)
		if rep.Err != nil {
			class := Classify(rep.Err)
			if class == ClassInterrupt {
				s.log.Info("interrupt received, scheduler stopped", slog.Uint64("iterations", s.iterations))
				return nil
			}
			s.log.Error("iteration failed",
				slog.String("class", class),
				sl.Err(rep.Err),
			)
		}

		if err := s.sleep(ctx, s.cfg.Tick); err != nil {
			s.log.Info("interrupt received, scheduler stopped", slog.Uint64("iterations", s.iterations))
			return nil
		}
	}
}

// Step runs one iteration: sample, then each task that is due, in fixed
// order. Panics from collaborators are turned into the iteration error.
func (s *Scheduler) Step(ctx context.Context) (rep Report) {
	now := s.nowFunc()
	rep.Now = now
	s.iterations++

	defer func() {
		if r := recover(); r != nil {
			rep.Err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		s.storeSnapshot(rep, rep.Err)
	}()

	if err := s.sample(); err != nil {
		rep.add(TaskSample, err)
		rep.Err = err
		return rep
	}
	rep.add(TaskSample, nil)

	if due(now, s.state.Timers.LastHumidity, s.cfg.Humidity) {
		res := s.measureHumidity()
		if res.err == nil {
			s.state.Readings.Humidity = res.value
		} else {
			s.log.Warn("humidity measurement failed, keeping last value",
				slog.String("class", Classify(res.err)),
				slog.Float64("humidity", s.state.Readings.Humidity),
				sl.Err(res.err),
			)
		}
		s.state.Timers.LastHumidity = now
		rep.add(TaskHumidity, res.err)
	}

	if due(now, s.state.Timers.LastPublish, s.cfg.Publish) {
		err := s.publish(ctx)
		s.state.Timers.LastPublish = now
		rep.add(TaskPublish, err)
	}

	if due(now, s.state.Timers.LastDisplay, s.cfg.Display) {
		if err := display.Render(s.deps.Display, s.state.Readings); err != nil {
			rep.add(TaskDisplay, err)
			rep.Err = fmt.Errorf("%w: %w", ErrRender, err)
			return rep
		}
		s.state.Timers.LastDisplay = now
		rep.add(TaskDisplay, nil)
	}

	if due(now, s.state.Timers.LastReclaim, s.cfg.Reclaim) {
		var err error
		if s.deps.Reclaimer != nil {
			err = s.deps.Reclaimer.Reclaim(ctx)
		}
		if err != nil {
			s.log.Warn("memory reclamation failed",
				slog.String("class", Classify(err)),
				sl.Err(err),
			)
		}
		s.state.Timers.LastReclaim = now
		rep.add(TaskReclaim, err)
	}

	return rep
}

func due(now, last time.Time, interval time.Duration) bool {
	return now.Sub(last) >= interval
}

func (s *Scheduler) sample() error {
	temp, err := sensor.ReadTemperature(s.deps.Thermistor)
	if err != nil {
		return fmt.Errorf("failed to sample temperature: %w", err)
	}
	light, err := sensor.ReadLight(s.deps.Photoresistor)
	if err != nil {
		return fmt.Errorf("failed to sample light: %w", err)
	}

	s.state.Readings.Temperature = temp
	s.state.Readings.Light = light
	return nil
}

type result[T any] struct {
	value T
	err   error
}

func (s *Scheduler) measureHumidity() result[float64] {
	v, err := sensor.MeasureHumidity(s.deps.Hygrometer)
	return result[float64]{value: v, err: err}
}

// publish sends the three readings independently; one failure does not
// stop the others.
func (s *Scheduler) publish(ctx context.Context) error {
	r := s.state.Readings
	fields := []struct {
		topic string
		field string
		value float64
	}{
		{s.topics.Temperature, model.FieldTemperature, r.Temperature},
		{s.topics.Light, model.FieldLight, r.Light},
		{s.topics.Humidity, model.FieldHumidity, r.Humidity},
	}

	var errs []error
	for _, f := range fields {
		err := s.deps.Publisher.Publish(ctx, f.topic, f.field, f.value)
		if err != nil {
			s.log.Warn("publish skipped",
				slog.String("topic", f.topic),
				slog.String("class", Classify(err)),
				sl.Err(err),
			)
			errs = append(errs, err)
			continue
		}
		s.log.Debug("published",
			slog.String("topic", f.topic),
			slog.Float64(f.field, f.value),
		)
	}
	return errors.Join(errs...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	case <-timer.C:
		return nil
	}
}
