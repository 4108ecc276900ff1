package pools

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Basic(t *testing.T) {
	pool := NewWorkerPool(4, 16)

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		if err := pool.Submit(func() { counter.Add(1) }); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	// Close drains the queue before returning
	pool.Close()

	if counter.Load() != 100 {
		t.Errorf("Expected 100 tasks completed, got %d", counter.Load())
	}
	stats := pool.Stats()
	if stats.TasksCompleted != 100 || stats.TasksPending != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

// TestWorkerPool_FIFO checks that a single worker runs tasks in submission order.
func TestWorkerPool_FIFO(t *testing.T) {
	pool := NewWorkerPool(1, 10)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		pool.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	pool.Close()

	for i, v := range order {
		if v != i {
			t.Fatalf("Expected FIFO order, got %v", order)
		}
	}
}

// TestWorkerPool_Concurrency checks that N workers run N tasks at once.
func TestWorkerPool_Concurrency(t *testing.T) {
	const workers = 4
	pool := NewWorkerPool(workers, 0)
	defer pool.Close()

	var started sync.WaitGroup
	started.Add(workers)
	release := make(chan struct{})

	for i := 0; i < workers; i++ {
		go pool.Submit(func() {
			started.Done()
			<-release
		})
	}

	done := make(chan struct{})
	go func() {
		started.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected all workers busy at once")
	}
	if busy := pool.Stats().BusyWorkers; busy != workers {
		t.Errorf("Expected %d busy workers, got %d", workers, busy)
	}
	close(release)
}

func TestWorkerPool_PanicKeepsWorker(t *testing.T) {
	var recovered atomic.Value
	pool := NewWorkerPool(1, 4, WithPanicHandler(func(r any) {
		recovered.Store(r)
	}))

	var ran atomic.Bool
	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { ran.Store(true) })
	pool.Close()

	if !ran.Load() {
		t.Error("Expected worker to survive the panic")
	}
	if recovered.Load() != "boom" {
		t.Errorf("Expected recovered value boom, got %v", recovered.Load())
	}
	if pool.Stats().TasksPanicked != 1 {
		t.Errorf("Expected 1 panicked task, got %d", pool.Stats().TasksPanicked)
	}
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(2, 2)
	pool.Close()
	pool.Close() // second close is a no-op

	if err := pool.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
}

func TestWorkerPool_SubmitContext(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	defer pool.Close()

	release := make(chan struct{})
	pool.Submit(func() { <-release })
	defer close(release)

	// The only worker is busy and the queue has no room.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := pool.SubmitContext(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func BenchmarkWorkerPool_Submit(b *testing.B) {
	pool := NewWorkerPool(8, 1024)
	defer pool.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Submit(func() {})
	}
}
