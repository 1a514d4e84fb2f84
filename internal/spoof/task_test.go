package spoof

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTask_FiresUntilCancelled(t *testing.T) {
	var ticks atomic.Int32
	task := NewTask(5*time.Millisecond, 0, func(ctx context.Context) {
		ticks.Add(1)
	})
	task.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 ticks, got %d", ticks.Load())
		}
		time.Sleep(time.Millisecond)
	}

	task.Cancel()
	task.Wait()

	if task.Armed() {
		t.Error("cancelled task still armed")
	}

	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if got := ticks.Load(); got != after {
		t.Errorf("task ticked after cancel: %d -> %d", after, got)
	}
	if task.Fired() != int64(after) {
		t.Errorf("Fired() = %d, want %d", task.Fired(), after)
	}
}

func TestTask_CancelIsIdempotent(t *testing.T) {
	task := NewTask(time.Hour, 0, func(ctx context.Context) {})
	task.Start(context.Background())

	task.Cancel()
	task.Cancel()
	task.Wait()

	if task.Armed() {
		t.Error("expected task to be disarmed")
	}
}

func TestTask_InFlightTickCompletes(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var completed atomic.Bool
	var ctxErr atomic.Value

	var once atomic.Bool
	task := NewTask(5*time.Millisecond, 0, func(ctx context.Context) {
		if !once.CompareAndSwap(false, true) {
			return
		}
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		completed.Store(true)
	})
	task.Start(context.Background())

	<-started
	task.Cancel()
	close(release)
	task.Wait()

	if !completed.Load() {
		t.Error("in-flight tick did not complete")
	}
	if err := ctxErr.Load(); err != nil {
		t.Errorf("tick context was cancelled: %v", err)
	}
}

func TestTask_SlowTicksOverlap(t *testing.T) {
	var running, peak atomic.Int32
	task := NewTask(5*time.Millisecond, 0, func(ctx context.Context) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		running.Add(-1)
	})
	task.Start(context.Background())

	time.Sleep(100 * time.Millisecond)
	task.Cancel()
	task.Wait()

	if peak.Load() < 2 {
		t.Errorf("expected overlapping ticks, peak concurrency %d", peak.Load())
	}
}

func TestTask_Timeout(t *testing.T) {
	done := make(chan error, 1)
	var once atomic.Bool
	task := NewTask(5*time.Millisecond, 10*time.Millisecond, func(ctx context.Context) {
		if !once.CompareAndSwap(false, true) {
			return
		}
		<-ctx.Done()
		done <- ctx.Err()
	})
	task.Start(context.Background())
	defer func() {
		task.Cancel()
		task.Wait()
	}()

	select {
	case err := <-done:
		if err != context.DeadlineExceeded {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tick was not bounded by the timeout")
	}
}
