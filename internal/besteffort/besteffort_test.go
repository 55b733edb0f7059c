package besteffort

import (
	"context"
	"errors"
	"testing"
)

func TestDo_SwallowsErrors(t *testing.T) {
	Do("failing call", func() error { return errors.New("boom") })
	// Reaching here is the assertion: the error did not propagate.
}

func TestDo_SwallowsPanics(t *testing.T) {
	Do("panicking call", func() error { panic("boom") })
}

func TestValue_FallbackOnError(t *testing.T) {
	got := Value(context.Background(), "lookup", "fallback", func(ctx context.Context) (string, error) {
		return "", errors.New("unreachable service")
	})
	if got != "fallback" {
		t.Errorf("Value() = %q, want fallback", got)
	}

	got = Value(context.Background(), "lookup", "fallback", func(ctx context.Context) (string, error) {
		return "real", nil
	})
	if got != "real" {
		t.Errorf("Value() = %q, want real", got)
	}
}
