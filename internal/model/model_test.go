package model

import (
	"errors"
	"testing"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{23.4, "23.4"},
		{45, "45"},
		{0, "0"},
		{-0.5, "-0.5"},
		{100, "100"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPublishAttempt_Lifecycle(t *testing.T) {
	a := NewPublishAttempt("devices/temp", FieldTemperature, 21.5)
	if a.ID == "" {
		t.Fatal("NewPublishAttempt() returned empty ID")
	}
	if a.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}

	a.Failed([]byte(`{"temperature":21.5}`), errors.New("broker down"))
	if a.Status != StatusFailed || a.Error != "broker down" {
		t.Errorf("after Failed: status=%q error=%q", a.Status, a.Error)
	}

	a.Succeeded([]byte(`{"temperature":21.5}`))
	if a.Status != StatusSent || a.Error != "" {
		t.Errorf("after Succeeded: status=%q error=%q", a.Status, a.Error)
	}

	b := NewPublishAttempt("devices/hum", FieldHumidity, 0)
	if b.ID == a.ID {
		t.Error("attempt IDs must be unique")
	}
	b.Skipped(errors.New("encode"))
	if b.Status != StatusSkipped || b.Payload != "" {
		t.Errorf("after Skipped: status=%q payload=%q", b.Status, b.Payload)
	}
}
