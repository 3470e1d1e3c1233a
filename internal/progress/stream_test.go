package progress_test

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"
	"time"

	"tracksync/internal/progress"
)

func countTo(n int) func(context.Context, func(int)) (string, error) {
	return func(ctx context.Context, emit func(int)) (string, error) {
		for i := 1; i <= n; i++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			emit(i)
		}
		return "done", nil
	}
}

func TestStreamDeliversEveryEventInOrder(t *testing.T) {
	stream := progress.Start(context.Background(), countTo(50))

	got := slices.Collect(stream.Events())
	result, err := stream.Wait()
	if err != nil || result != "done" {
		t.Fatalf("Wait = %q, %v", result, err)
	}
	if len(got) != 50 {
		t.Fatalf("expected 50 events, got %d", len(got))
	}
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("event %d = %d, out of order", i, v)
		}
	}
}

func TestStreamProducerWaitsForConsumer(t *testing.T) {
	advanced := make(chan int, 10)
	stream := progress.Start(context.Background(), func(ctx context.Context, emit func(int)) (struct{}, error) {
		for i := 1; i <= 3; i++ {
			emit(i)
			advanced <- i
		}
		return struct{}{}, nil
	})

	next, stop := iter.Pull(stream.Events())
	defer stop()

	first, ok := next()
	if !ok || first != 1 {
		t.Fatalf("expected first event, got %d ok=%v", first, ok)
	}
	select {
	case v := <-advanced:
		if v != 1 {
			t.Fatalf("unexpected progress %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("producer should advance after the event was taken")
	}
	select {
	case v := <-advanced:
		t.Fatalf("producer advanced to %d before the next event was pulled", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamBreakDetachesConsumer(t *testing.T) {
	stream := progress.Start(context.Background(), countTo(100))
	for v := range stream.Events() {
		if v == 3 {
			break
		}
	}
	if _, err := stream.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if extra := slices.Collect(stream.Events()); len(extra) != 0 {
		t.Fatalf("expected single-use sequence, got %d more events", len(extra))
	}
}

func TestStreamWaitWithoutConsumer(t *testing.T) {
	stream := progress.Start(context.Background(), countTo(10))
	select {
	case <-stream.Done():
		t.Fatal("operation should block on its first event until pulled or waited")
	case <-time.After(50 * time.Millisecond):
	}
	result, err := stream.Wait()
	if err != nil || result != "done" {
		t.Fatalf("Wait = %q, %v", result, err)
	}
}

func TestStreamPropagatesError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stream := progress.Start(ctx, countTo(5))
	for range stream.Events() {
	}
	if _, err := stream.Wait(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
