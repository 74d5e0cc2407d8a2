// Package schedule wraps timers and tickers as tasks that are started by an
// owner and stopped when the owner goes away, so no handle outlives it.
package schedule

import (
	"sync"
	"time"
)

// Task is one scheduled unit of work. Stop is idempotent and safe to call
// after the work already ran. Stop does not interrupt a callback that is
// already executing.
type Task struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newTask() *Task {
	return &Task{stop: make(chan struct{}), done: make(chan struct{})}
}

// After runs fn once when d elapses unless the task is stopped first.
func After(d time.Duration, fn func()) *Task {
	t := newTask()
	go func() {
		defer close(t.done)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			fn()
		case <-t.stop:
		}
	}()
	return t
}

// Every runs fn on each tick of d until the task is stopped.
func Every(d time.Duration, fn func()) *Task {
	t := newTask()
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.stop) })
}

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Group ties tasks to one owner's lifetime: Start on mount, Close on unmount.
type Group struct {
	mu     sync.Mutex
	tasks  []*Task
	closed bool
}

// Start registers t with the group. A closed group stops t immediately.
func (g *Group) Start(t *Task) *Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		t.Stop()
		return t
	}
	kept := g.tasks[:0]
	for _, old := range g.tasks {
		select {
		case <-old.Done():
		default:
			kept = append(kept, old)
		}
	}
	g.tasks = append(kept, t)
	return t
}

// Close stops every task and waits for their goroutines to exit.
func (g *Group) Close() {
	g.mu.Lock()
	g.closed = true
	tasks := g.tasks
	g.tasks = nil
	g.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
	for _, t := range tasks {
		<-t.Done()
	}
}

// Len reports how many tasks are still tracked.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}
