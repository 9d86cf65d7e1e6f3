package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCircuitBreaker_ClosedPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	var calls int
	_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (struct{}, error) {
		calls++
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if cb.Open() {
		t.Error("expected closed circuit")
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var opened int
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		OnOpen:           func(n int) { opened = n },
	})

	for i := 0; i < 3; i++ {
		_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
			return 0, errors.New("fail")
		})
	}

	if !cb.Open() {
		t.Fatal("expected open circuit after 3 failures")
	}
	if opened != 3 {
		t.Errorf("expected OnOpen with 3 failures, got %d", opened)
	}

	_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
		t.Error("should not be called when circuit is open")
		return 0, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	cb.Record(errors.New("fail"))
	cb.Record(errors.New("fail"))
	cb.Record(nil)
	cb.Record(errors.New("fail"))

	if cb.Open() {
		t.Error("non-consecutive failures should not open the circuit")
	}
	cb.Record(errors.New("fail"))
	if cb.Open() {
		t.Error("streak of 2 should not open the circuit")
	}
	cb.Record(errors.New("fail"))
	if !cb.Open() {
		t.Error("expected open circuit after 3 consecutive failures")
	}
}

func TestCircuitBreaker_ShouldTrip(t *testing.T) {
	ignored := errors.New("ignored")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       func(err error) bool { return !errors.Is(err, ignored) },
	})

	cb.Record(ignored)
	if cb.Open() {
		t.Error("ignored error should not trip the circuit")
	}
	cb.Record(errors.New("real"))
	if !cb.Open() {
		t.Error("expected open circuit")
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	var opened int
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 50,
		OnOpen:           func(int) { opened++ },
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.Record(errors.New("fail"))
		}()
	}
	wg.Wait()

	if !cb.Open() {
		t.Error("expected open circuit after 50 concurrent failures")
	}
	if opened != 1 {
		t.Errorf("expected OnOpen once, got %d", opened)
	}
}

func TestExecuteVal_CircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	val, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || val != "ok" {
		t.Fatalf("expected (ok, nil), got (%q, %v)", val, err)
	}

	_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		return "", errors.New("fail")
	})
	val, err = ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		return "unreachable", nil
	})
	if !errors.Is(err, ErrCircuitOpen) || val != "" {
		t.Errorf("expected zero value and ErrCircuitOpen, got (%q, %v)", val, err)
	}
}

func TestFromBreakerThreshold(t *testing.T) {
	if got := FromBreakerThreshold(0).FailureThreshold; got != 5 {
		t.Errorf("expected default threshold 5, got %d", got)
	}
	if got := FromBreakerThreshold(2).FailureThreshold; got != 2 {
		t.Errorf("expected threshold 2, got %d", got)
	}
}
