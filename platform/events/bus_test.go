package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type testEvent struct{ name string }

func (e testEvent) Name() string { return e.name }

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handlers")
	}
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var calls int64
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		bus.Subscribe("test.event", func(ctx context.Context, ev Event) {
			atomic.AddInt64(&calls, 1)
			wg.Done()
		})
	}

	bus.Publish(context.Background(), testEvent{name: "test.event"})
	waitOrFail(t, &wg)

	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("expected 2 handler invocations, got %d", got)
	}
}

func TestPublishIgnoresUnrelatedEvents(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var calls int64
	bus.Subscribe("test.event", func(ctx context.Context, ev Event) {
		atomic.AddInt64(&calls, 1)
	})

	bus.Publish(context.Background(), testEvent{name: "other.event"})
	time.Sleep(20 * time.Millisecond)

	if got := atomic.LoadInt64(&calls); got != 0 {
		t.Errorf("expected no handler invocations, got %d", got)
	}
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe("test.event", func(ctx context.Context, ev Event) {
		defer wg.Done()
		panic("boom")
	})

	// Must not crash the publisher or the process.
	bus.Publish(context.Background(), testEvent{name: "test.event"})
	waitOrFail(t, &wg)
}

func TestPublishOutlivesCallerContext(t *testing.T) {
	bus := NewInMemoryBus(nil)

	callerGone := make(chan struct{})
	handlerErr := make(chan error, 1)
	bus.Subscribe("test.event", func(ctx context.Context, ev Event) {
		// Simulate slow work that finishes after the publisher returned
		// and its context was cancelled, like an SMTP dial.
		<-callerGone
		handlerErr <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{name: "test.event"})
	cancel()
	close(callerGone)

	select {
	case err := <-handlerErr:
		if err != nil {
			t.Errorf("handler context must survive the caller's cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handler")
	}
}

func TestPublishPreservesContextValues(t *testing.T) {
	bus := NewInMemoryBus(nil)

	type ctxKey string
	got := make(chan string, 1)
	bus.Subscribe("test.event", func(ctx context.Context, ev Event) {
		value, _ := ctx.Value(ctxKey("request_id")).(string)
		got <- value
	})

	ctx := context.WithValue(context.Background(), ctxKey("request_id"), "req-1")
	bus.Publish(ctx, testEvent{name: "test.event"})

	select {
	case value := <-got:
		if value != "req-1" {
			t.Errorf("expected context value to flow through, got %q", value)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handler")
	}
}
