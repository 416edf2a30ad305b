package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestOptimistic_Success(t *testing.T) {
	ok, err := Optimistic(context.Background(), time.Second, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Error("expected ok=true when fn succeeds")
	}
}

func TestOptimistic_OwnDeadlineIsSwallowed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ok, err := Optimistic(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected exhausted patience to be swallowed, got %v", err)
	}
	if ok {
		t.Error("expected ok=false after timeout")
	}
}

func TestOptimistic_WrappedDeadlineIsSwallowed(t *testing.T) {
	ok, err := Optimistic(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return errors.Join(errors.New("waiting for selector"), ctx.Err())
	})
	if err != nil || ok {
		t.Errorf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestOptimistic_ParentCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := Optimistic(ctx, time.Second, func(ctx context.Context) error {
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if ok {
		t.Error("expected ok=false on cancellation")
	}
}

func TestOptimistic_ParentDeadlinePropagates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Optimistic(ctx, time.Minute, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the caller's deadline to surface, got %v", err)
	}
}

func TestOptimistic_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("websocket closed")
	ok, err := Optimistic(context.Background(), time.Second, func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
	if ok {
		t.Error("expected ok=false on failure")
	}
}

func TestSleep_ZeroReturnsImmediately(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("zero sleep should not block")
	}
}

func TestSleep_Elapses(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("sleep returned early")
	}
}

func TestSleep_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("sleep ignored cancellation")
	}
	// let the cancelling goroutine exit before the leak check
	time.Sleep(5 * time.Millisecond)
}
