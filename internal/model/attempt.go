package model

import (
	"time"

	"github.com/google/uuid"
)

type AttemptStatus string

const (
	StatusSent    AttemptStatus = "sent"
	StatusFailed  AttemptStatus = "failed"
	StatusSkipped AttemptStatus = "skipped"
)

// PublishAttempt is one try at sending a single field to its topic.
type PublishAttempt struct {
	ID        string        `json:"id"`
	Topic     string        `json:"topic"`
	Field     string        `json:"field"`
	Value     float64       `json:"value"`
	Payload   string        `json:"payload,omitempty"`
	Status    AttemptStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewPublishAttempt(topic, field string, value float64) *PublishAttempt {
	return &PublishAttempt{
		ID:        uuid.New().String(),
		Topic:     topic,
		Field:     field,
		Value:     value,
		Timestamp: time.Now().UTC(),
	}
}

func (a *PublishAttempt) Succeeded(payload []byte) {
	a.Payload = string(payload)
	a.Status = StatusSent
	a.Error = ""
}

func (a *PublishAttempt) Failed(payload []byte, err error) {
	a.Payload = string(payload)
	a.Status = StatusFailed
	if err != nil {
		a.Error = err.Error()
	}
}

func (a *PublishAttempt) Skipped(err error) {
	a.Status = StatusSkipped
	if err != nil {
		a.Error = err.Error()
	}
}
