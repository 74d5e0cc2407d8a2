package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/logkey"
	"github.com/ariefcatur/go-storefront/internal/notify"
)

type Options struct {
	Remote   Remote
	Local    LocalStore
	LocalKey string
	Notify   *notify.Center
	Events   events.Publisher
	Producer string
	Log      *slog.Logger

	// Read by Registry only. Every holder it creates gets its own toast
	// center with ToastTTL, and Sweep evicts holders idle past IdleTTL.
	ToastTTL time.Duration
	IdleTTL  time.Duration
}

// Holder is the cart of one user or one anonymous session. All methods are
// safe for concurrent use. Remote and local persistence failures are logged
// and swallowed; the in-memory rows stay authoritative for the session.
type Holder struct {
	userID string
	opts   Options
	log    *slog.Logger

	mu            sync.Mutex
	items         []LineItem
	loaded        bool
	version       uint64
	recentlyAdded string

	saveMu       sync.Mutex
	savedVersion uint64
}

// NewHolder builds an empty holder. An empty userID means the cart is never
// written to the backend.
func NewHolder(userID string, opts Options) *Holder {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = events.Discard
	}
	return &Holder{userID: userID, opts: opts, log: log.With(logkey.UserID, userID)}
}

func (h *Holder) UserID() string { return h.userID }

func (h *Holder) authenticated() bool { return h.userID != "" && h.opts.Remote != nil }

// Load fills the holder from the session copy and then, for a signed-in
// user, overwrites it with the remote record. Saves are suppressed until a
// Load has finished. A remote failure still counts as finished, except a
// rejected token: the holder then stays unloaded so nothing it holds can be
// written over the user's record, and the caller may Load again.
func (h *Holder) Load(ctx context.Context) error {
	var items []LineItem
	if h.opts.Local != nil && h.opts.LocalKey != "" {
		stored, err := h.opts.Local.Load(ctx, h.opts.LocalKey)
		if err != nil {
			h.log.Error("load session cart", logkey.ERROR, err)
		}
		items = stored
	}

	var err error
	rejected := false
	if h.authenticated() {
		var raw []RawItem
		raw, err = h.opts.Remote.LoadCart(ctx, h.userID)
		switch {
		case err == nil:
			items = mergeRows(raw, h.log)
		case backend.IsUnauthorized(err):
			h.log.Warn("remote cart rejected token", logkey.ERROR, err)
			rejected = true
		default:
			h.log.Error("load remote cart", logkey.ERROR, err)
		}
	}

	h.mu.Lock()
	h.items = items
	h.loaded = !rejected
	h.mu.Unlock()
	return err
}

// mergeRows normalizes remote rows. Rows that resolve to the same id are
// folded into one so the no-duplicate rule holds even for a messy record.
func mergeRows(raw []RawItem, log *slog.Logger) []LineItem {
	out := make([]LineItem, 0, len(raw))
	index := map[string]int{}
	for _, r := range raw {
		li, degenerate := normalize(r)
		if degenerate {
			log.Warn("cart row without id", "key", li.ProductID)
		}
		if i, ok := index[li.ProductID]; ok {
			out[i].Quantity += li.Quantity
			continue
		}
		index[li.ProductID] = len(out)
		out = append(out, li)
	}
	return out
}

// Loaded reports whether a load has completed.
func (h *Holder) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded
}

// Add increments the row for r's id or appends a new row with quantity 1.
// It reports whether a new row was created.
func (h *Holder) Add(ctx context.Context, r RawItem) (LineItem, bool) {
	id, degenerate := ResolveID(r)
	if degenerate {
		h.log.Warn("adding item without id", "key", id)
	}

	h.mu.Lock()
	var row LineItem
	created := true
	for i := range h.items {
		if h.items[i].ProductID == id {
			h.items[i].Quantity++
			row = h.items[i]
			created = false
			break
		}
	}
	if created {
		row = LineItem{ProductID: id, Name: r.Name, Price: r.Price, Image: r.Image, Quantity: 1}
		h.items = append(h.items, row)
		h.recentlyAdded = id
	}
	snap, version := h.snapshotLocked()
	h.mu.Unlock()

	if created && h.opts.Notify != nil {
		h.opts.Notify.Push("added:"+r.Name, notify.KindSuccess, r.Name+" added to cart")
	}
	h.persist(ctx, snap, version)
	return row, created
}

// RemoveOne takes one unit off the row, dropping the row when it hits zero.
func (h *Holder) RemoveOne(ctx context.Context, id string) error {
	h.mu.Lock()
	i := h.indexLocked(id)
	if i < 0 {
		h.mu.Unlock()
		return ErrUnknownItem
	}
	h.items[i].Quantity--
	if h.items[i].Quantity <= 0 {
		h.items = append(h.items[:i], h.items[i+1:]...)
	}
	snap, version := h.snapshotLocked()
	h.mu.Unlock()

	h.persist(ctx, snap, version)
	return nil
}

// Delete drops the row whatever its quantity.
func (h *Holder) Delete(ctx context.Context, id string) error {
	h.mu.Lock()
	i := h.indexLocked(id)
	if i < 0 {
		h.mu.Unlock()
		return ErrUnknownItem
	}
	h.items = append(h.items[:i], h.items[i+1:]...)
	snap, version := h.snapshotLocked()
	h.mu.Unlock()

	h.persist(ctx, snap, version)
	return nil
}

// Clear empties the cart and, for a signed-in user, writes an empty record
// remotely even if the first load has not finished.
func (h *Holder) Clear(ctx context.Context) {
	h.mu.Lock()
	h.items = nil
	h.recentlyAdded = ""
	h.version++
	version := h.version
	h.mu.Unlock()

	h.saveMu.Lock()
	defer h.saveMu.Unlock()
	if version > h.savedVersion {
		h.savedVersion = version
	}
	h.saveLocal(ctx, nil)
	if h.authenticated() {
		if err := h.opts.Remote.SaveCart(ctx, h.userID, []LineItem{}); err != nil {
			h.log.Error("clear remote cart", logkey.ERROR, err)
			return
		}
		h.publishSaved(ctx, nil)
	}
}

// ClearLocal empties the cart without touching the remote record, for use
// on logout where the token is about to go away.
func (h *Holder) ClearLocal(ctx context.Context) {
	h.mu.Lock()
	h.items = nil
	h.recentlyAdded = ""
	h.version++
	h.mu.Unlock()

	if h.opts.Local != nil && h.opts.LocalKey != "" {
		if err := h.opts.Local.Delete(ctx, h.opts.LocalKey); err != nil {
			h.log.Error("drop session cart", logkey.ERROR, err)
		}
	}
}

// Items returns a copy of the rows in insertion order.
func (h *Holder) Items() []LineItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LineItem, len(h.items))
	copy(out, h.items)
	return out
}

// Total is recomputed from the rows on every call.
func (h *Holder) Total() decimal.Decimal {
	return Total(h.Items())
}

func (h *Holder) Contains(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.indexLocked(id) >= 0
}

func (h *Holder) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Toasts lists this cart's live notifications, oldest first.
func (h *Holder) Toasts() []notify.Toast {
	if h.opts.Notify == nil {
		return []notify.Toast{}
	}
	return h.opts.Notify.Active()
}

// RecentlyAdded is the id of the last newly created row.
func (h *Holder) RecentlyAdded() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recentlyAdded
}

func (h *Holder) indexLocked(id string) int {
	for i := range h.items {
		if h.items[i].ProductID == id {
			return i
		}
	}
	return -1
}

func (h *Holder) snapshotLocked() ([]LineItem, uint64) {
	h.version++
	snap := make([]LineItem, len(h.items))
	copy(snap, h.items)
	if !h.loaded {
		// the first load has not finished; mark the snapshot unsaveable
		return snap, 0
	}
	return snap, h.version
}

// persist writes snap to the session store and the backend. Saves run one at
// a time and a snapshot older than the last one written is skipped, so the
// remote record always ends on the newest state.
func (h *Holder) persist(ctx context.Context, snap []LineItem, version uint64) {
	if version == 0 {
		h.saveLocal(ctx, snap)
		return
	}
	h.saveMu.Lock()
	defer h.saveMu.Unlock()
	if version <= h.savedVersion {
		return
	}
	h.savedVersion = version

	h.saveLocal(ctx, snap)
	if !h.authenticated() {
		return
	}
	if err := h.opts.Remote.SaveCart(ctx, h.userID, snap); err != nil {
		h.log.Error("save remote cart", logkey.ERROR, err)
		return
	}
	h.publishSaved(ctx, snap)
}

func (h *Holder) saveLocal(ctx context.Context, snap []LineItem) {
	if h.opts.Local == nil || h.opts.LocalKey == "" {
		return
	}
	if err := h.opts.Local.Save(ctx, h.opts.LocalKey, snap); err != nil {
		h.log.Error("save session cart", logkey.ERROR, err)
	}
}

func (h *Holder) publishSaved(ctx context.Context, snap []LineItem) {
	items := make([]events.CartItem, 0, len(snap))
	for _, it := range snap {
		items = append(items, events.CartItem{ProductID: it.ProductID, Qty: it.Quantity, Price: it.Price})
	}
	env, err := events.New(events.EventCartSaved, h.opts.Producer, logkey.TraceFrom(ctx), h.userID,
		events.CartSavedPayload{UserID: h.userID, Items: items, Total: Total(snap).StringFixed(2)})
	if err != nil {
		h.log.Error("build cart event", logkey.ERROR, err)
		return
	}
	if err := h.opts.Events.Publish(ctx, env); err != nil {
		h.log.Error("publish cart event", logkey.ERROR, err)
	}
}
