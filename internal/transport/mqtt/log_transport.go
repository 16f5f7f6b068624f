package mqtt

import (
	"context"
	"log/slog"
)

// LogTransport logs payloads instead of sending them (dry-run mode).
type LogTransport struct {
	log *slog.Logger
}

func NewLogTransport(log *slog.Logger) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.log.Info("SEND",
		slog.String("topic", topic),
		slog.String("payload", string(payload)),
	)
	return nil
}

func (t *LogTransport) Health(ctx context.Context) error {
	return nil
}
