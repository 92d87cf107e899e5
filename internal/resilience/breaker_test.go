package resilience

import (
	"errors"
	"testing"
	"time"
)

var errVerify = errors.New("validator unavailable")

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Second)

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errVerify })
	}

	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestHalfOpenProbeAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	// Trip the breaker.
	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errVerify })
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	// After the cooldown a probe is let through; success closes the circuit.
	now = now.Add(2 * time.Second)
	b.now = func() time.Time { return now }
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected probe to succeed, got %v", err)
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected circuit to be closed, got %v", err)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errVerify })
	}

	now = now.Add(2 * time.Second)
	b.now = func() time.Time { return now }
	_ = b.Execute(func() error { return errVerify })

	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after failed probe, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)

	_ = b.Execute(func() error { return errVerify })
	_ = b.Execute(func() error { return errVerify })

	// A success resets the consecutive failure count.
	_ = b.Execute(func() error { return nil })

	_ = b.Execute(func() error { return errVerify })
	_ = b.Execute(func() error { return errVerify })

	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}
