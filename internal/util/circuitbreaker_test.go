package util

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker("test", 2, time.Minute, zap.NewNop())
	cb.now = func() time.Time { return *now }
	return cb
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)

	cb.RecordFailure(0)
	if !cb.CanExecute() {
		t.Fatalf("expected circuit closed after one failure")
	}

	cb.RecordFailure(0)
	if cb.CanExecute() {
		t.Fatalf("expected circuit open after threshold")
	}
	if got := cb.RetryAfter(); got != time.Minute {
		t.Fatalf("expected 1m retry after, got %s", got)
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)

	cb.RecordFailure(0)
	cb.RecordFailure(0)

	now = now.Add(2 * time.Minute)
	if state := cb.GetState(); state != CircuitStateHalfOpen {
		t.Fatalf("expected HALF_OPEN, got %s", state)
	}

	cb.RecordSuccess()
	if state := cb.GetState(); state != CircuitStateClosed {
		t.Fatalf("expected CLOSED after success, got %s", state)
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)

	cb.RecordFailure(0)
	cb.RecordFailure(0)
	now = now.Add(2 * time.Minute)
	cb.GetState()

	cb.RecordFailure(10 * time.Second)
	if cb.CanExecute() {
		t.Fatalf("expected failure in HALF_OPEN to reopen the circuit")
	}
	if got := cb.RetryAfter(); got != 10*time.Second {
		t.Fatalf("expected custom timeout, got %s", got)
	}
}

func TestCircuitBreakerStatus(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)

	cb.RecordFailure(0)
	status := cb.GetStatus()
	if status.State != CircuitStateClosed || status.FailureCount != 1 || status.NextRetryTime != nil {
		t.Fatalf("expected closed status with one failure, got %+v", status)
	}

	cb.RecordFailure(0)
	status = cb.GetStatus()
	if status.State != CircuitStateOpen || status.NextRetryTime == nil {
		t.Fatalf("expected open status with retry time, got %+v", status)
	}
	if !status.NextRetryTime.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected retry time %s", status.NextRetryTime)
	}
}
