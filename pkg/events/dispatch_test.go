package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ghuser/campusreserve/pkg/config"
	"github.com/ghuser/campusreserve/pkg/logger"
)

func newTestLogger() logger.Logger {
	return logger.New(&config.Config{LogLevel: "error"})
}

func TestKeyedDispatcherPreservesPerKeyOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := newKeyedDispatcher(ctx, 4)

	const perKey = 50
	keys := []string{"res-a", "res-b", "res-c", "res-d", "res-e"}

	var mu sync.Mutex
	seen := make(map[string][]int)
	var wg sync.WaitGroup
	wg.Add(len(keys) * perKey)

	for i := 0; i < perKey; i++ {
		for _, key := range keys {
			k, n := key, i
			d.dispatch(ctx, k, func() {
				mu.Lock()
				seen[k] = append(seen[k], n)
				mu.Unlock()
				wg.Done()
			})
		}
	}
	wg.Wait()
	cancel()
	d.wait()

	for _, key := range keys {
		got := seen[key]
		if len(got) != perKey {
			t.Fatalf("key %s: handled %d items, want %d", key, len(got), perKey)
		}
		for i, n := range got {
			if n != i {
				t.Fatalf("key %s: out of order at %d: got %d", key, i, n)
			}
		}
	}
}

func TestRetryWithBackoffSucceedsAfterTransientFailure(t *testing.T) {
	env, err := NewEnvelope("x", "y", "z", struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}

	calls := 0
	handler := func(ctx context.Context, env *Envelope) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}

	if err := retryWithBackoff(context.Background(), env, handler, 3, time.Millisecond, newTestLogger()); err != nil {
		t.Fatalf("retryWithBackoff: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	env, err := NewEnvelope("x", "y", "z", struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}

	sentinel := errors.New("poison")
	calls := 0
	handler := func(ctx context.Context, env *Envelope) error {
		calls++
		return sentinel
	}

	err = retryWithBackoff(context.Background(), env, handler, 3, time.Millisecond, newTestLogger())
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped %v", err, sentinel)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffStopsOnCancelledContext(t *testing.T) {
	env, err := NewEnvelope("x", "y", "z", struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	handler := func(ctx context.Context, env *Envelope) error {
		calls++
		cancel()
		return errors.New("failing")
	}

	err = retryWithBackoff(ctx, env, handler, 5, time.Minute, newTestLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
