package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

func TestHandler_ReverseOrder(t *testing.T) {
	h := NewHandler(time.Second, logger.Discard())

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"storage", "cache", "listener"} {
		name := name
		h.OnShutdown(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	h.Trigger()
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	want := []string{"listener", "cache", "storage"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done not closed after Wait")
	}
}

func TestHandler_HookErrorsJoined(t *testing.T) {
	h := NewHandler(time.Second, logger.Discard())
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ran := 0
	h.OnShutdown("a", func(context.Context) error { ran++; return errA })
	h.OnShutdown("ok", func(context.Context) error { ran++; return nil })
	h.OnShutdown("b", func(context.Context) error { ran++; return errB })

	h.Trigger()
	err := h.Wait(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("err = %v, want both hook errors", err)
	}
	if ran != 3 {
		t.Errorf("ran %d hooks, want 3", ran)
	}
}

func TestHandler_ContextCancel(t *testing.T) {
	h := NewHandler(time.Second, logger.Discard())
	var deadline bool
	h.OnShutdown("check", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !deadline {
		t.Error("hook context has no deadline")
	}
}

func TestHandler_TriggerTwice(t *testing.T) {
	h := NewHandler(time.Second, nil)
	h.Trigger()
	h.Trigger()
	if err := h.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}
