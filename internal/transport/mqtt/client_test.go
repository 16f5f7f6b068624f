package mqtt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/speedwagon-io/multisensor/internal/config"
	"github.com/speedwagon-io/multisensor/internal/lib/logger/sl"
	"github.com/speedwagon-io/multisensor/internal/telemetry"
)

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		cfg  config.BrokerConfig
		want string
	}{
		{config.BrokerConfig{Server: "192.168.1.10", Port: 1883}, "tcp://192.168.1.10:1883"},
		{config.BrokerConfig{Server: "broker.local", Port: 8883, TLS: true}, "ssl://broker.local:8883"},
	}
	for _, tt := range tests {
		if got := BrokerURL(tt.cfg); got != tt.want {
			t.Errorf("BrokerURL(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestClient_OptionsCarryCredentials(t *testing.T) {
	c := NewClient(sl.Discard(), config.BrokerConfig{
		Server:   "broker.local",
		Port:     1883,
		ClientID: "id-123",
		User:     "sensor",
		Password: "secret",
	})

	opts := c.options()
	if opts.ClientID != "id-123" {
		t.Errorf("ClientID = %q, want id-123", opts.ClientID)
	}
	if opts.Username != "sensor" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want sensor/secret", opts.Username, opts.Password)
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://broker.local:1883" {
		t.Errorf("Servers = %v, want [tcp://broker.local:1883]", opts.Servers)
	}
}

func TestClient_PublishWhenDisconnected(t *testing.T) {
	c := NewClient(sl.Discard(), config.BrokerConfig{Server: "127.0.0.1", Port: 1, ClientID: "t"})

	err := c.Publish(context.Background(), "devices/temp", []byte(`{"temperature":1}`))

	var te *telemetry.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Publish() error = %v, want *TransportError", err)
	}
	if !errors.Is(err, ErrNotConnected) || te.Topic != "devices/temp" {
		t.Errorf("TransportError = %+v", te)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	if err := c.Health(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Health() = %v, want ErrNotConnected", err)
	}
}

func TestClient_ConnectFailureIsTransportError(t *testing.T) {
	// Port 1 on loopback refuses connections.
	c := NewClient(sl.Discard(), config.BrokerConfig{
		Server:         "127.0.0.1",
		Port:           1,
		ClientID:       "t",
		ConnectTimeout: 2 * time.Second,
	})

	err := c.Connect(context.Background())

	var te *telemetry.TransportError
	if !errors.As(err, &te) || te.Op != "connect" {
		t.Fatalf("Connect() error = %v, want connect TransportError", err)
	}
}

func TestLogTransport(t *testing.T) {
	var buf bytes.Buffer
	tr := NewLogTransport(sl.NewLogger(&buf, "info", "json"))

	if err := tr.Publish(context.Background(), "devices/hum", []byte(`{"humidity":45}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !strings.Contains(buf.String(), "devices/hum") {
		t.Errorf("log output = %q, want topic", buf.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Publish(ctx, "devices/hum", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() on cancelled ctx = %v, want context.Canceled", err)
	}
}
