package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/speedwagon-io/multisensor/internal/config"
	"github.com/speedwagon-io/multisensor/internal/lib/logger/sl"
	"github.com/speedwagon-io/multisensor/internal/telemetry"
)

const disconnectQuiesce = 250 // ms

var (
	ErrNotConnected = errors.New("not connected")
	ErrTimeout      = errors.New("timed out")
)

// Client is the broker transport. Messages are sent with QoS 0 and are
// never retained, retried or queued.
type Client struct {
	log            *slog.Logger
	cfg            config.BrokerConfig
	client         paho.Client
	publishTimeout time.Duration
}

func NewClient(log *slog.Logger, cfg config.BrokerConfig) *Client {
	c := &Client{
		log:            log,
		cfg:            cfg,
		publishTimeout: cfg.PublishTimeout,
	}
	c.client = paho.NewClient(c.options())
	return c
}

func BrokerURL(cfg config.BrokerConfig) string {
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Server, cfg.Port)
}

func (c *Client) options() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(BrokerURL(c.cfg))
	opts.SetClientID(c.cfg.ClientID)
	opts.SetUsername(c.cfg.User)
	opts.SetPassword(c.cfg.Password)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(c.cfg.AutoReconnect)
	opts.SetConnectRetry(false)

	if c.cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(c.cfg.ConnectTimeout)
	}
	if c.cfg.PublishTimeout > 0 {
		opts.SetWriteTimeout(c.cfg.PublishTimeout)
	}
	if c.cfg.KeepAlive > 0 {
		opts.SetKeepAlive(c.cfg.KeepAlive)
	}
	if c.cfg.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
	}

	opts.SetOnConnectHandler(func(paho.Client) {
		c.log.Info("connected to broker", slog.String("broker", BrokerURL(c.cfg)))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("broker connection lost", sl.Err(err))
	})
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		c.log.Info("reconnecting to broker")
	})

	return opts
}

func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()
	if err := c.wait(ctx, token, c.cfg.ConnectTimeout); err != nil {
		return &telemetry.TransportError{Op: "connect", Err: err}
	}
	return nil
}

func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.client.IsConnectionOpen() {
		return &telemetry.TransportError{Op: "publish", Topic: topic, Err: ErrNotConnected}
	}

	token := c.client.Publish(topic, 0, false, payload)
	if err := c.wait(ctx, token, c.publishTimeout); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &telemetry.TransportError{Op: "publish", Topic: topic, Err: err}
	}
	return nil
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

func (c *Client) Health(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(disconnectQuiesce)
		c.log.Info("disconnected from broker")
	}
}

func (c *Client) wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return ErrTimeout
	}
}
