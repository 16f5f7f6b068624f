package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "env: test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env != "test" {
		t.Errorf("Env = %q, want test", cfg.Env)
	}
	if cfg.Broker.Port != 1883 {
		t.Errorf("Broker.Port = %d, want 1883", cfg.Broker.Port)
	}
	if cfg.Broker.ClientID != "id-123" {
		t.Errorf("Broker.ClientID = %q, want id-123", cfg.Broker.ClientID)
	}
	if cfg.Topics.Temperature != "devices/temp" || cfg.Topics.Humidity != "devices/hum" || cfg.Topics.Light != "devices/light" {
		t.Errorf("Topics = %+v, want devices/{temp,hum,light}", cfg.Topics)
	}

	want := ScheduleConfig{
		Tick:     200 * time.Millisecond,
		Humidity: 3 * time.Second,
		Publish:  10 * time.Second,
		Display:  time.Second,
		Reclaim:  60 * time.Second,
	}
	if cfg.Schedule != want {
		t.Errorf("Schedule = %+v, want %+v", cfg.Schedule, want)
	}

	if cfg.Journal.Path != ":memory:" {
		t.Errorf("Journal.Path = %q, want :memory:", cfg.Journal.Path)
	}
	if cfg.Hardware.Backend != BackendSim {
		t.Errorf("Hardware.Backend = %q, want sim", cfg.Hardware.Backend)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
broker:
  server: broker.local
  port: 8883
  tls: true
  user: sensor
  password: secret
topics:
  temperature: home/temp
schedule:
  publish: 30s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Broker.Server != "broker.local" || cfg.Broker.Port != 8883 || !cfg.Broker.TLS {
		t.Errorf("Broker = %+v", cfg.Broker)
	}
	if cfg.Topics.Temperature != "home/temp" {
		t.Errorf("Topics.Temperature = %q, want home/temp", cfg.Topics.Temperature)
	}
	if cfg.Topics.Light != "devices/light" {
		t.Errorf("Topics.Light = %q, want default devices/light", cfg.Topics.Light)
	}
	if cfg.Schedule.Publish != 30*time.Second {
		t.Errorf("Schedule.Publish = %s, want 30s", cfg.Schedule.Publish)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "broker:\n  server: from-file\n")
	t.Setenv("MQTT_SERVER", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Broker.Server != "from-env" {
		t.Errorf("Broker.Server = %q, want from-env", cfg.Broker.Server)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error = %v, want config file not found", err)
	}
}

func TestLoad_EnvOnlyWhenDefaultMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("MQTT_CLIENT_ID", "id-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Broker.ClientID != "id-env" {
		t.Errorf("Broker.ClientID = %q, want id-env", cfg.Broker.ClientID)
	}
}

func TestLoad_InvalidInterval(t *testing.T) {
	path := writeConfig(t, "schedule:\n  display: -1s\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for negative interval")
	}
	if !strings.Contains(err.Error(), "schedule.display") {
		t.Errorf("error = %v, want mention of schedule.display", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		path := writeConfig(t, "env: test\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server", func(c *Config) { c.Broker.Server = "" }},
		{"port zero", func(c *Config) { c.Broker.Port = 0 }},
		{"port too big", func(c *Config) { c.Broker.Port = 70000 }},
		{"empty client id", func(c *Config) { c.Broker.ClientID = "" }},
		{"empty topic", func(c *Config) { c.Topics.Humidity = "" }},
		{"zero tick", func(c *Config) { c.Schedule.Tick = 0 }},
		{"unknown backend", func(c *Config) { c.Hardware.Backend = "gpio" }},
		{"bad failure rate", func(c *Config) { c.Hardware.Sim.HumidityFailure = 2 }},
		{"iio bits", func(c *Config) {
			c.Hardware.Backend = BackendIIO
			c.Hardware.Thermistor.Bits = 24
		}},
		{"unknown sink", func(c *Config) { c.Display.Sink = "hdmi" }},
		{"file journal", func(c *Config) { c.Journal.Path = "/var/lib/multisensor/journal.db" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v, want nil", err)
	}
}

func TestMustLoad_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLoad() did not panic on missing file")
		}
	}()
	MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
}
