package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "config/config.yaml"

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"prod"`
	Device   DeviceConfig   `yaml:"device"`
	Network  NetworkConfig  `yaml:"network"`
	Broker   BrokerConfig   `yaml:"broker"`
	Topics   TopicsConfig   `yaml:"topics"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Hardware HardwareConfig `yaml:"hardware"`
	Display  DisplayConfig  `yaml:"display"`
	Journal  JournalConfig  `yaml:"journal"`
	Health   HealthConfig   `yaml:"health"`
	Log      LogConfig      `yaml:"log"`
}

type DeviceConfig struct {
	Name string `yaml:"name" env:"DEVICE_NAME" env-default:"multisensor"`
}

type NetworkConfig struct {
	SSID           string        `yaml:"ssid" env:"WIFI_SSID"`
	Password       string        `yaml:"password" env:"WIFI_PASS"`
	Interface      string        `yaml:"interface" env:"NETWORK_INTERFACE"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"NETWORK_CONNECT_TIMEOUT" env-default:"30s"`
	PollInterval   time.Duration `yaml:"poll_interval" env-default:"500ms"`
}

type BrokerConfig struct {
	Server         string        `yaml:"server" env:"MQTT_SERVER" env-default:"localhost"`
	Port           int           `yaml:"port" env:"MQTT_PORT" env-default:"1883"`
	User           string        `yaml:"user" env:"MQTT_USER"`
	Password       string        `yaml:"password" env:"MQTT_KEY"`
	ClientID       string        `yaml:"client_id" env:"MQTT_CLIENT_ID" env-default:"id-123"`
	TLS            bool          `yaml:"tls" env:"MQTT_TLS" env-default:"false"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MQTT_CONNECT_TIMEOUT" env-default:"10s"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"MQTT_PUBLISH_TIMEOUT" env-default:"5s"`
	KeepAlive      time.Duration `yaml:"keep_alive" env-default:"60s"`
	AutoReconnect  bool          `yaml:"auto_reconnect" env-default:"true"`
}

type TopicsConfig struct {
	Temperature string `yaml:"temperature" env:"MQTT_TEMPERATURE_FEED" env-default:"devices/temp"`
	Humidity    string `yaml:"humidity" env:"MQTT_HUMIDITY_FEED" env-default:"devices/hum"`
	Light       string `yaml:"light" env:"MQTT_BRIGHTNESS_FEED" env-default:"devices/light"`
}

type ScheduleConfig struct {
	Tick     time.Duration `yaml:"tick" env:"SCHEDULE_TICK" env-default:"200ms"`
	Humidity time.Duration `yaml:"humidity" env:"SCHEDULE_HUMIDITY" env-default:"3s"`
	Publish  time.Duration `yaml:"publish" env:"SCHEDULE_PUBLISH" env-default:"10s"`
	Display  time.Duration `yaml:"display" env:"SCHEDULE_DISPLAY" env-default:"1s"`
	Reclaim  time.Duration `yaml:"reclaim" env:"SCHEDULE_RECLAIM" env-default:"60s"`
}

type DisplayConfig struct {
	Sink   string        `yaml:"sink" env:"DISPLAY_SINK" env-default:"log"`
	Warmup time.Duration `yaml:"warmup" env-default:"1s"`
}

type JournalConfig struct {
	Enabled bool          `yaml:"enabled" env:"JOURNAL_ENABLED" env-default:"true"`
	Path    string        `yaml:"path" env:"JOURNAL_PATH" env-default:":memory:"`
	MaxAge  time.Duration `yaml:"max_age" env-default:"1h"`
}

type HealthConfig struct {
	Enabled    bool          `yaml:"enabled" env:"HEALTH_ENABLED" env-default:"true"`
	Address    string        `yaml:"address" env:"HEALTH_ADDRESS" env-default:":8080"`
	StaleAfter time.Duration `yaml:"stale_after" env-default:"5s"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// Load reads the YAML file at configPath (falling back to CONFIG_PATH and
// then config/config.yaml) with environment overrides. When no path was
// given and the default file is absent, only the environment is read.
func Load(configPath string) (*Config, error) {
	explicit := true
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = defaultConfigPath
		explicit = false
	}

	var cfg Config
	if _, err := os.Stat(configPath); err != nil {
		if !os.IsNotExist(err) || explicit {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from env: %w", err)
		}
	} else if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Broker.Server == "" {
		errs = append(errs, errors.New("broker.server is required"))
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		errs = append(errs, fmt.Errorf("broker.port %d out of range", c.Broker.Port))
	}
	if c.Broker.ClientID == "" {
		errs = append(errs, errors.New("broker.client_id is required"))
	}

	if c.Topics.Temperature == "" || c.Topics.Humidity == "" || c.Topics.Light == "" {
		errs = append(errs, errors.New("all three topics must be set"))
	}

	intervals := []struct {
		name string
		d    time.Duration
	}{
		{"schedule.tick", c.Schedule.Tick},
		{"schedule.humidity", c.Schedule.Humidity},
		{"schedule.publish", c.Schedule.Publish},
		{"schedule.display", c.Schedule.Display},
		{"schedule.reclaim", c.Schedule.Reclaim},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", iv.name, iv.d))
		}
	}

	if err := c.Hardware.validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Journal.Enabled && c.Journal.Path != "" && !strings.EqualFold(c.Journal.Path, ":memory:") {
		errs = append(errs, fmt.Errorf("journal.path must be :memory:, got %q", c.Journal.Path))
	}

	switch c.Display.Sink {
	case DisplaySinkLog, DisplaySinkStdout, DisplaySinkNone:
	default:
		errs = append(errs, fmt.Errorf("unknown display.sink %q", c.Display.Sink))
	}

	return errors.Join(errs...)
}

const (
	DisplaySinkLog    = "log"
	DisplaySinkStdout = "stdout"
	DisplaySinkNone   = "none"
)
