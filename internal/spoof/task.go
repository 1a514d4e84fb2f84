package spoof

import (
	"context"
	"sync"
	"time"
)

// TickFunc is one unit of periodic work.
type TickFunc func(ctx context.Context)

// Task fires a TickFunc at a fixed interval until cancelled.
//
// Each fire runs in its own goroutine, so a slow tick never delays the
// next one and ticks may overlap. Ticks receive a context that is not
// cancelled by Cancel: a tick already in flight finishes its round-trip.
type Task struct {
	interval time.Duration
	tick     TickFunc
	timeout  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	driver   chan struct{}
	inflight sync.WaitGroup

	mu      sync.Mutex
	started time.Time
	fired   int64
}

// NewTask creates a task; it does nothing until Start.
// A positive timeout bounds each tick.
func NewTask(interval time.Duration, timeout time.Duration, tick TickFunc) *Task {
	return &Task{
		interval: interval,
		tick:     tick,
		timeout:  timeout,
		stop:     make(chan struct{}),
		driver:   make(chan struct{}),
	}
}

// Start launches the driver goroutine. ctx supplies values to ticks but its
// cancellation does not reach them.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	t.started = time.Now()
	t.mu.Unlock()

	base := context.WithoutCancel(ctx)
	go t.run(base)
}

func (t *Task) run(base context.Context) {
	defer close(t.driver)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			// A fire that races with Cancel is dropped.
			select {
			case <-t.stop:
				return
			default:
			}

			t.mu.Lock()
			t.fired++
			t.mu.Unlock()

			t.inflight.Add(1)
			go func() {
				defer t.inflight.Done()
				ctx := base
				if t.timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(base, t.timeout)
					defer cancel()
				}
				t.tick(ctx)
			}()
		}
	}
}

// Cancel stops further ticks. Safe to call more than once.
func (t *Task) Cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Armed reports whether the task has not been cancelled.
func (t *Task) Armed() bool {
	select {
	case <-t.stop:
		return false
	default:
		return true
	}
}

// Wait blocks until the driver has exited and in-flight ticks have
// returned. Only meaningful after Cancel.
func (t *Task) Wait() {
	<-t.driver
	t.inflight.Wait()
}

// Since returns when the task was started.
func (t *Task) Since() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

// Fired returns how many ticks have been launched.
func (t *Task) Fired() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}
