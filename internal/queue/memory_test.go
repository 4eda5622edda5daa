package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEnqueueDelivers(t *testing.T) {
	m := NewMemory()
	defer m.Stop()

	var got atomic.Int64
	m.Handle("greet", func(ctx context.Context, task Task) error {
		if task.Payload.(string) != "hello" {
			t.Errorf("payload = %v", task.Payload)
		}
		got.Add(1)
		return nil
	})

	if err := m.Enqueue("greet", "hello", "default"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, func() bool { return got.Load() == 1 })
}

func TestRetryOnce(t *testing.T) {
	m := NewMemory()
	defer m.Stop()

	var attempts atomic.Int64
	m.Handle("flaky", func(ctx context.Context, task Task) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	})

	if err := m.Enqueue("flaky", nil, "default"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, func() bool { return attempts.Load() == 2 })
}

func TestEnqueueAfterStop(t *testing.T) {
	m := NewMemory()
	m.Stop()
	if err := m.Enqueue("x", nil, "default"); !errors.Is(err, ErrStopped) {
		t.Fatalf("enqueue after stop = %v, want ErrStopped", err)
	}
}

func TestQueuesAreIsolated(t *testing.T) {
	m := NewMemory()
	defer m.Stop()

	var a, b atomic.Int64
	m.Handle("count-a", func(ctx context.Context, task Task) error { a.Add(1); return nil })
	m.Handle("count-b", func(ctx context.Context, task Task) error { b.Add(1); return nil })

	_ = m.Enqueue("count-a", nil, "qa")
	_ = m.Enqueue("count-b", nil, "qb")
	waitFor(t, func() bool { return a.Load() == 1 && b.Load() == 1 })
}
