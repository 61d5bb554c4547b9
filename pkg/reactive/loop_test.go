package reactive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func startLoop(t *testing.T, opts ...LoopOption) *Loop {
	t.Helper()
	base := []LoopOption{WithLoopLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	loop := NewLoop(append(base, opts...)...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

func TestLoopRunsInOrder(t *testing.T) {
	loop := startLoop(t)
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		if err := loop.Dispatch(func() { order = append(order, i) }); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
	}

	var got []int
	if err := loop.Call(context.Background(), func() { got = append(got, order...) }); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, got); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopRecoversPanic(t *testing.T) {
	var recovered any
	loop := startLoop(t, WithPanicHandler(func(r any) { recovered = r }))

	if err := loop.Call(context.Background(), func() { panic("bad callback") }); err != nil {
		t.Fatalf("call should return after a panic, got %v", err)
	}

	ran := false
	if err := loop.Call(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if !ran {
		t.Error("loop should keep running after a panic")
	}
	if recovered != "bad callback" {
		t.Errorf("expected panic handler to see the panic, got %v", recovered)
	}
}

func TestLoopDispatchAfterClose(t *testing.T) {
	loop := NewLoop()
	loop.Close()
	loop.Close()

	if err := loop.Dispatch(func() {}); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("expected ErrLoopClosed, got %v", err)
	}
	if err := loop.Call(context.Background(), func() {}); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("expected ErrLoopClosed from Call, got %v", err)
	}
}

func TestLoopRunStops(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}

	closed := NewLoop()
	go func() { errCh <- closed.Run(context.Background()) }()
	closed.Close()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected nil after Close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to return after Close")
	}
}

func TestLoopCallHonorsContext(t *testing.T) {
	loop := startLoop(t)
	release := make(chan struct{})
	defer close(release)

	if err := loop.Dispatch(func() { <-release }); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := loop.Call(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
