package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/speedwagon-io/multisensor/internal/lib/logger/sl"
	"github.com/speedwagon-io/multisensor/internal/model"
)

// Transport delivers a payload to a broker topic. Implementations send at
// most once and do not queue.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Recorder receives every publish attempt, whatever its outcome.
type Recorder interface {
	Record(ctx context.Context, attempt *model.PublishAttempt) error
}

var ErrSerialization = errors.New("serialization failure")

type TransportError struct {
	Op    string
	Topic string
	Err   error
}

func (e *TransportError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Topic, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Encode builds the single-key payload {"<field>": value}.
func Encode(field string, value float64) ([]byte, error) {
	if field == "" {
		return nil, fmt.Errorf("%w: empty field name", ErrSerialization)
	}

	data, err := json.Marshal(map[string]float64{field: value})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSerialization, field, err)
	}
	return data, nil
}

type Publisher struct {
	log       *slog.Logger
	transport Transport
	recorder  Recorder
}

// NewPublisher returns a Publisher sending through transport. recorder may
// be nil.
func NewPublisher(log *slog.Logger, transport Transport, recorder Recorder) *Publisher {
	return &Publisher{
		log:       log,
		transport: transport,
		recorder:  recorder,
	}
}

// Publish encodes one field and sends it once. A serialization failure
// skips the send; a transport failure is returned as *TransportError.
func (p *Publisher) Publish(ctx context.Context, topic, field string, value float64) error {
	attempt := model.NewPublishAttempt(topic, field, value)
	defer p.record(ctx, attempt)

	payload, err := Encode(field, value)
	if err != nil {
		attempt.Skipped(err)
		return err
	}

	p.log.Debug("publishing",
		slog.String("topic", topic),
		slog.String("payload", string(payload)),
	)

	if err := p.transport.Publish(ctx, topic, payload); err != nil {
		attempt.Failed(payload, err)
		if errors.Is(err, context.Canceled) {
			return err
		}

		var te *TransportError
		if !errors.As(err, &te) {
			err = &TransportError{Op: "publish", Topic: topic, Err: err}
		}
		p.log.Debug("publish failed",
			slog.String("topic", topic),
			sl.Err(err),
		)
		return err
	}

	attempt.Succeeded(payload)
	p.log.Debug("publish done", slog.String("topic", topic))
	return nil
}

func (p *Publisher) record(ctx context.Context, attempt *model.PublishAttempt) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(context.WithoutCancel(ctx), attempt); err != nil {
		p.log.Error("failed to record publish attempt",
			slog.String("id", attempt.ID),
			sl.Err(err),
		)
	}
}
