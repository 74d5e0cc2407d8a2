// Package notify keeps short-lived user-facing notifications. Each toast
// dismisses itself after a fixed TTL through a scheduled task owned by the
// Center, and Close cancels whatever is still pending.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/schedule"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

type Toast struct {
	ID        uint64    `json:"id"`
	Key       string    `json:"key,omitempty"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Center struct {
	ttl time.Duration
	log *slog.Logger

	mu     sync.Mutex
	next   uint64
	toasts []Toast
	timers map[uint64]*schedule.Task
	tasks  schedule.Group
}

func NewCenter(ttl time.Duration, log *slog.Logger) *Center {
	if log == nil {
		log = slog.Default()
	}
	return &Center{ttl: ttl, log: log, timers: map[uint64]*schedule.Task{}}
}

func (c *Center) Success(msg string) Toast { return c.Push("", KindSuccess, msg) }
func (c *Center) Error(msg string) Toast   { return c.Push("", KindError, msg) }
func (c *Center) Info(msg string) Toast    { return c.Push("", KindInfo, msg) }

// Push shows msg. A non-empty key replaces the live toast with the same key
// and restarts its timer instead of stacking a second one.
func (c *Center) Push(key string, kind Kind, msg string) Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key != "" {
		for i, t := range c.toasts {
			if t.Key == key {
				c.timers[t.ID].Stop()
				c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
				delete(c.timers, t.ID)
				break
			}
		}
	}

	c.next++
	t := Toast{ID: c.next, Key: key, Kind: kind, Message: msg, CreatedAt: time.Now()}
	c.toasts = append(c.toasts, t)
	id := t.ID
	c.timers[id] = c.tasks.Start(schedule.After(c.ttl, func() { c.Dismiss(id) }))

	if kind == KindError {
		c.log.Warn("toast", "message", msg)
	}
	return t
}

func (c *Center) Dismiss(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			break
		}
	}
	if task, ok := c.timers[id]; ok {
		task.Stop()
		delete(c.timers, id)
	}
}

// Active returns the live toasts, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// Close cancels every pending dismissal. Live toasts stay readable.
func (c *Center) Close() { c.tasks.Close() }
