package objecturl

import (
	"strings"
	"sync"

	"media-hub/internal/logging"
	"media-hub/internal/metrics"

	"github.com/google/uuid"
)

// Scheme prefixes every transient handle.
const Scheme = "blob:"

// Handle is a transient, process-lifetime reference to in-memory content.
type Handle string

// ID returns the handle without its scheme.
func (h Handle) ID() string {
	return strings.TrimPrefix(string(h), Scheme)
}

// IsTransient reports whether ref is a transient handle rather than a
// durable reference (data URL or remote path).
func IsTransient(ref string) bool {
	return strings.HasPrefix(ref, Scheme)
}

// FromID rebuilds a handle from its ID.
func FromID(id string) Handle {
	return Handle(Scheme + id)
}

type entry struct {
	data        []byte
	contentType string
	owner       slotKey
	owned       bool
}

type slotKey struct {
	scope string
	slot  string
}

// Registry tracks live handles and the UI slots that own them. Every
// handle is released at most once; releasing an unknown or already
// released handle is a no-op.
type Registry struct {
	mu      sync.Mutex
	handles map[Handle]*entry
	slots   map[slotKey]Handle
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[Handle]*entry),
		slots:   make(map[slotKey]Handle),
	}
}

// Create registers content under a new unowned handle.
func (r *Registry) Create(data []byte, contentType string) Handle {
	h := Handle(Scheme + uuid.NewString())

	r.mu.Lock()
	r.handles[h] = &entry{data: data, contentType: contentType}
	r.mu.Unlock()

	metrics.ObjectURLsCreated.Inc()
	metrics.ObjectURLsLive.Inc()
	logging.Debug("objecturl: created %s (%d bytes, %s)", h, len(data), contentType)
	return h
}

// Set makes (scope, slot) the owner of h. The handle previously held by
// that slot is released first. Setting the handle a slot already holds is
// a no-op. It returns false when h is not live.
func (r *Registry) Set(scope, slot string, h Handle) bool {
	key := slotKey{scope: scope, slot: slot}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.handles[h]
	if !ok {
		return false
	}
	if prev, held := r.slots[key]; held {
		if prev == h {
			return true
		}
		r.releaseLocked(prev, metrics.ReleaseReplaced)
	}
	if e.owned && e.owner != key {
		delete(r.slots, e.owner)
	}

	e.owner = key
	e.owned = true
	r.slots[key] = h
	return true
}

// Put creates a handle for data and assigns it to (scope, slot).
func (r *Registry) Put(scope, slot string, data []byte, contentType string) Handle {
	h := r.Create(data, contentType)
	r.Set(scope, slot, h)
	return h
}

// Get returns the handle currently owned by (scope, slot).
func (r *Registry) Get(scope, slot string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.slots[slotKey{scope: scope, slot: slot}]
	return h, ok
}

// Release frees h. It returns true only for the call that actually
// released it.
func (r *Registry) Release(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseLocked(h, metrics.ReleaseExplicit)
}

// ReleaseSlot frees the handle held by (scope, slot), if any.
func (r *Registry) ReleaseSlot(scope, slot string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.slots[slotKey{scope: scope, slot: slot}]
	if !ok {
		return false
	}
	return r.releaseLocked(h, metrics.ReleaseExplicit)
}

// ReleaseScope frees every handle owned by scope and returns how many
// were released. It is called when the owning scope is torn down.
func (r *Registry) ReleaseScope(scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for key, h := range r.slots {
		if key.scope != scope {
			continue
		}
		if r.releaseLocked(h, metrics.ReleaseScope) {
			released++
		}
	}
	if released > 0 {
		logging.Debug("objecturl: released %d handle(s) for scope %q", released, scope)
	}
	return released
}

// ReleaseRecord frees the transient references of a deleted media record.
// Durable references are ignored, and a handle used as both url and
// thumbnail is released once.
func (r *Registry) ReleaseRecord(url, thumbnail string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for _, ref := range []string{url, thumbnail} {
		if !IsTransient(ref) {
			continue
		}
		if r.releaseLocked(Handle(ref), metrics.ReleaseRecord) {
			released++
		}
	}
	return released
}

// Open returns the content behind a live handle.
func (r *Registry) Open(h Handle) (data []byte, contentType string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.handles[h]
	if !ok {
		return nil, "", false
	}
	return e.data, e.contentType, true
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Close releases every live handle.
func (r *Registry) Close() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for h := range r.handles {
		if r.releaseLocked(h, metrics.ReleaseScope) {
			released++
		}
	}
	return released
}

func (r *Registry) releaseLocked(h Handle, reason string) bool {
	e, ok := r.handles[h]
	if !ok {
		return false
	}
	if e.owned && r.slots[e.owner] == h {
		delete(r.slots, e.owner)
	}
	delete(r.handles, h)

	metrics.ObjectURLsLive.Dec()
	metrics.ObjectURLsReleased.WithLabelValues(reason).Inc()
	logging.Debug("objecturl: released %s (%s)", h, reason)
	return true
}
