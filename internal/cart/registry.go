package cart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/schedule"
	"github.com/ariefcatur/go-storefront/internal/session"
)

type entry struct {
	h      *Holder
	center *notify.Center

	loadMu sync.Mutex
	loaded bool

	used time.Time
}

// Registry hands out one Holder per signed-in token or anonymous session.
// A user's holder is bound to the bearer token it was loaded with, so a
// caller presenting someone else's id with a different token never sees or
// shares that holder.
type Registry struct {
	base Options
	now  func() time.Time

	mu      sync.Mutex
	holders map[string]*entry
}

// NewRegistry uses base for every holder it creates. base.LocalKey and
// base.Notify are ignored; each holder gets its registry key as its
// session-store key and a toast center of its own.
func NewRegistry(base Options) *Registry {
	if base.ToastTTL <= 0 {
		base.ToastTTL = 3 * time.Second
	}
	return &Registry{base: base, now: time.Now, holders: map[string]*entry{}}
}

// Key is "user:<id>" for a signed-in user and "anon:<session>" otherwise.
func Key(userID, sessionID string) string {
	if userID != "" {
		return "user:" + userID
	}
	return "anon:" + sessionID
}

// holderKey extends Key with a fingerprint of the caller's user token.
func holderKey(ctx context.Context, userID, sessionID string) string {
	key := Key(userID, sessionID)
	if userID == "" {
		return key
	}
	sum := sha256.Sum256([]byte(session.From(ctx).Token(session.AudienceUser)))
	return key + ":" + hex.EncodeToString(sum[:8])
}

// Get returns the holder for the caller, creating it on first use. The
// holder is loaded once; a load the backend rejected for the token is tried
// again on the next Get.
func (r *Registry) Get(ctx context.Context, userID, sessionID string) *Holder {
	key := holderKey(ctx, userID, sessionID)

	r.mu.Lock()
	e, ok := r.holders[key]
	if !ok {
		opts := r.base
		opts.LocalKey = key
		opts.Notify = notify.NewCenter(r.base.ToastTTL, r.base.Log)
		e = &entry{h: NewHolder(userID, opts), center: opts.Notify}
		r.holders[key] = e
	}
	e.used = r.now()
	r.mu.Unlock()

	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if !e.loaded {
		e.h.Load(ctx)
		e.loaded = e.h.Loaded()
	}
	return e.h
}

// Drop forgets the caller's holder after clearing it locally. The remote
// record is left alone.
func (r *Registry) Drop(ctx context.Context, userID, sessionID string) {
	key := holderKey(ctx, userID, sessionID)
	r.mu.Lock()
	e, ok := r.holders[key]
	delete(r.holders, key)
	r.mu.Unlock()
	if ok {
		e.h.ClearLocal(ctx)
		e.center.Close()
		return
	}
	if r.base.Local != nil {
		_ = r.base.Local.Delete(ctx, key)
	}
}

// Sweep evicts holders nobody asked for within IdleTTL. Their session copies
// stay in the local store and are picked up again by the next Get.
func (r *Registry) Sweep() int {
	if r.base.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.base.IdleTTL)

	r.mu.Lock()
	var idle []*entry
	for key, e := range r.holders {
		if e.used.Before(cutoff) {
			idle = append(idle, e)
			delete(r.holders, key)
		}
	}
	r.mu.Unlock()

	for _, e := range idle {
		e.center.Close()
	}
	return len(idle)
}

// Janitor runs Sweep on every tick of every until the task is stopped.
func (r *Registry) Janitor(every time.Duration) *schedule.Task {
	return schedule.Every(every, func() { r.Sweep() })
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.holders)
}
