package scheduler

import (
	"context"
	"errors"

	"github.com/speedwagon-io/multisensor/internal/network"
	"github.com/speedwagon-io/multisensor/internal/sensor"
	"github.com/speedwagon-io/multisensor/internal/telemetry"
)

var (
	ErrInterrupted = errors.New("interrupted")
	ErrRender      = errors.New("display render failed")
	ErrPanic       = errors.New("collaborator panicked")
)

const (
	ClassInterrupt     = "interrupt"
	ClassAssociation   = "association"
	ClassTransport     = "transport"
	ClassSensor        = "sensor"
	ClassSerialization = "serialization"
	ClassRender        = "render"
	ClassPanic         = "panic"
	ClassUnknown       = "unknown"
)

// Classify names the failure class of err for logging. An interrupt wins
// over any other class found in the chain.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled) {
		return ClassInterrupt
	}

	var ae *network.AssociationError
	if errors.As(err, &ae) {
		return ClassAssociation
	}

	var te *telemetry.TransportError
	if errors.As(err, &te) {
		return ClassTransport
	}

	if errors.Is(err, telemetry.ErrSerialization) {
		return ClassSerialization
	}

	var sf *sensor.Fault
	if errors.As(err, &sf) {
		return ClassSensor
	}

	switch {
	case errors.Is(err, ErrRender):
		return ClassRender
	case errors.Is(err, ErrPanic):
		return ClassPanic
	}

	return ClassUnknown
}
