package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/speedwagon-io/multisensor/internal/config"
	"github.com/speedwagon-io/multisensor/internal/display"
	"github.com/speedwagon-io/multisensor/internal/hardware/iio"
	"github.com/speedwagon-io/multisensor/internal/hardware/sim"
	"github.com/speedwagon-io/multisensor/internal/health"
	"github.com/speedwagon-io/multisensor/internal/journal"
	"github.com/speedwagon-io/multisensor/internal/lib/logger/sl"
	"github.com/speedwagon-io/multisensor/internal/model"
	"github.com/speedwagon-io/multisensor/internal/network"
	"github.com/speedwagon-io/multisensor/internal/reclaim"
	"github.com/speedwagon-io/multisensor/internal/scheduler"
	"github.com/speedwagon-io/multisensor/internal/sensor"
	"github.com/speedwagon-io/multisensor/internal/telemetry"
	"github.com/speedwagon-io/multisensor/internal/transport/mqtt"
)

type transport interface {
	telemetry.Transport
	Health(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log payloads instead of publishing")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format).With(
		slog.String("session", uuid.NewString()),
	)

	log.Info("starting multisensor",
		slog.String("env", cfg.Env),
		slog.String("device", cfg.Device.Name),
		slog.String("backend", cfg.Hardware.Backend),
		slog.Bool("dry_run", *dryRun),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	thermistor, photoresistor, hygrometer := newSensors(cfg.Hardware)

	screen := newDisplay(log, cfg.Display)
	if err := warmup(ctx, cfg.Display.Warmup); err != nil {
		log.Info("interrupted during display warmup")
		return
	}

	var link network.Associator = network.NewHostLink(log, cfg.Network)
	addr, err := link.Connect(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("interrupted during network association")
			return
		}
		log.Error("network association failed", slog.String("class", scheduler.Classify(err)), sl.Err(err))
		os.Exit(1)
	}
	log.Info("network associated", slog.String("address", addr))

	var tr transport
	var client *mqtt.Client
	if *dryRun {
		tr = mqtt.NewLogTransport(log)
		log.Info("dry-run mode: payloads will be logged instead of published")
	} else {
		client = mqtt.NewClient(log, cfg.Broker)
		if err := client.Connect(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("interrupted during broker connection")
				if derr := link.Disconnect(); derr != nil {
					log.Error("failed to disconnect network", sl.Err(derr))
				}
				return
			}
			log.Error("broker connection failed", slog.String("class", scheduler.Classify(err)), sl.Err(err))
			if derr := link.Disconnect(); derr != nil {
				log.Error("failed to disconnect network", sl.Err(derr))
			}
			os.Exit(1)
		}
		tr = client
	}

	var jrnl journal.Journal
	var recorder telemetry.Recorder
	var pruner reclaim.Pruner
	if cfg.Journal.Enabled {
		sqliteJournal, err := journal.NewSQLiteJournal(log, cfg.Journal.Path)
		if err != nil {
			log.Error("failed to open journal", sl.Err(err))
			os.Exit(1)
		}
		jrnl = sqliteJournal
		recorder = jrnl
		pruner = jrnl
		log.Info("journal enabled", slog.String("path", cfg.Journal.Path))
	}

	reclaimer := reclaim.New(log, pruner, cfg.Journal.MaxAge)

	sched := scheduler.New(log, cfg.Schedule, cfg.Topics, scheduler.Deps{
		Thermistor:    thermistor,
		Photoresistor: photoresistor,
		Hygrometer:    hygrometer,
		Publisher:     telemetry.NewPublisher(log, tr, recorder),
		Display:       screen,
		Reclaimer:     reclaimer,
	})

	var healthServer *health.Server
	if cfg.Health.Enabled {
		healthServer = health.NewServer(log, cfg.Health.Address, func() any {
			return deviceStatus(context.Background(), cfg.Device.Name, sched, jrnl)
		})
		healthServer.AddChecker(health.NewBrokerHealthChecker(tr.Health))
		healthServer.AddChecker(health.NewLoopHealthChecker(func() time.Time {
			return sched.Snapshot().LastIteration
		}, cfg.Health.StaleAfter))
		healthServer.AddChecker(health.NewMemoryHealthChecker(reclaimer.Snapshot))
		if jrnl != nil {
			healthServer.AddChecker(health.NewJournalHealthChecker(jrnl.FailuresSince, cfg.Schedule.Publish*6))
		}

		if err := healthServer.Start(); err != nil {
			log.Error("failed to start health server", sl.Err(err))
			os.Exit(1)
		}
	}

	if err := sched.Run(ctx); err != nil {
		log.Error("scheduler stopped with error", sl.Err(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if client != nil {
		client.Disconnect()
	}
	if err := link.Disconnect(); err != nil {
		log.Error("failed to disconnect network", sl.Err(err))
	}

	if healthServer != nil {
		if err := healthServer.Stop(shutdownCtx); err != nil {
			log.Error("failed to stop health server", sl.Err(err))
		}
	}

	if jrnl != nil {
		if err := jrnl.Close(); err != nil {
			log.Error("failed to close journal", sl.Err(err))
		}
	}

	log.Info("multisensor stopped")
}

type statusResponse struct {
	Device         string                  `json:"device"`
	Loop           scheduler.Snapshot      `json:"loop"`
	JournalEntries int64                   `json:"journal_entries"`
	RecentPublish  []*model.PublishAttempt `json:"recent_publish,omitempty"`
}

func deviceStatus(ctx context.Context, device string, sched *scheduler.Scheduler, jrnl journal.Journal) statusResponse {
	resp := statusResponse{
		Device: device,
		Loop:   sched.Snapshot(),
	}
	if jrnl == nil {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if n, err := jrnl.Count(ctx); err == nil {
		resp.JournalEntries = n
	}
	if recent, err := jrnl.Recent(ctx, 3); err == nil {
		resp.RecentPublish = recent
	}
	return resp
}

func newSensors(cfg config.HardwareConfig) (sensor.AnalogInput, sensor.AnalogInput, sensor.Hygrometer) {
	if cfg.Backend == config.BackendIIO {
		return iio.NewADC(cfg.Thermistor), iio.NewADC(cfg.Photoresistor), iio.NewHygrometer(cfg.Hygrometer)
	}

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return sim.NewADC(seed, cfg.Sim.ThermistorRaw, cfg.Sim.Jitter),
		sim.NewADC(seed+1, cfg.Sim.PhotoresistorRaw, cfg.Sim.Jitter),
		sim.NewHygrometer(seed+2, cfg.Sim.Humidity, cfg.Sim.HumidityFailure)
}

func newDisplay(log *slog.Logger, cfg config.DisplayConfig) *display.Grid {
	switch cfg.Sink {
	case config.DisplaySinkStdout:
		return display.NewGrid(display.WithSink(os.Stdout))
	case config.DisplaySinkNone:
		return display.NewGrid()
	default:
		return display.NewGrid(display.WithLogger(log))
	}
}

func warmup(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
