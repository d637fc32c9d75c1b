// Package handle implements the typed handle table that owns every surface,
// device and queue object. Callers never hold object pointers across calls:
// they resolve a Handle with Get, use the object, and Release it.
package handle

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned when a handle does not resolve
	ErrNotFound = errors.New("handle not found")
	// ErrWrongType is returned when a handle resolves to another object type
	ErrWrongType = errors.New("handle has wrong type")
	// ErrBusy is returned when destroying an object that still has references
	ErrBusy = errors.New("handle still referenced")
	// ErrExhausted is returned when the table is full
	ErrExhausted = errors.New("handle table exhausted")
)

// Type tags the kind of object behind a handle.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeDevice
	TypeVideoSurface
	TypeOutputSurface
	TypeDisplaySurface
	TypePresentationTarget
	TypePresentationQueue
)

func (t Type) String() string {
	switch t {
	case TypeDevice:
		return "device"
	case TypeVideoSurface:
		return "video-surface"
	case TypeOutputSurface:
		return "output-surface"
	case TypeDisplaySurface:
		return "display-surface"
	case TypePresentationTarget:
		return "presentation-target"
	case TypePresentationQueue:
		return "presentation-queue"
	default:
		return "invalid"
	}
}

// Handle layout: [type:4][generation:12][index:16]. Index 0 is never used so
// the zero Handle never resolves.
type Handle uint32

const (
	indexBits = 16
	genBits   = 12
	indexMask = 1<<indexBits - 1
	genMask   = 1<<genBits - 1

	// MaxCapacity is the largest table a Registry can address.
	MaxCapacity = indexMask
)

func makeHandle(t Type, gen uint16, index int) Handle {
	return Handle(uint32(t)<<(indexBits+genBits) | uint32(gen&genMask)<<indexBits | uint32(index))
}

func (h Handle) index() int { return int(h & indexMask) }
func (h Handle) generation() uint16 { return uint16(h>>indexBits) & genMask }

// Type returns the type tag encoded in the handle itself.
func (h Handle) Type() Type { return Type(h >> (indexBits + genBits)) }

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d.%d", h.Type(), h.index(), h.generation())
}

type slot struct {
	obj  any
	typ  Type
	gen  uint16
	refs int
	live bool
}

// Stats counts reference traffic, mostly for leak checks in tests.
type Stats struct {
	Acquired int
	Released int
	Live     int
}

// Registry is a bounded table of typed, reference counted objects.
type Registry struct {
	mu       sync.Mutex
	slots    []slot
	free     []int
	retired  int
	capacity int
	stats    Stats
}

// NewRegistry creates a registry holding at most capacity live objects.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 || capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	return &Registry{
		// slot 0 is reserved
		slots:    make([]slot, 1, 64),
		capacity: capacity,
	}
}

// Create stores obj and returns a fresh handle for it.
func (r *Registry) Create(obj any, typ Type) (Handle, error) {
	if typ == TypeInvalid {
		return 0, fmt.Errorf("create: %w", ErrWrongType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stats.Live >= r.capacity {
		return 0, ErrExhausted
	}

	// Oldest free slot first, so a slot's generations are spread over time
	var idx int
	if len(r.free) > 0 {
		idx = r.free[0]
		r.free = r.free[1:]
	} else {
		if len(r.slots) > MaxCapacity {
			return 0, ErrExhausted
		}
		r.slots = append(r.slots, slot{})
		idx = len(r.slots) - 1
	}

	s := &r.slots[idx]
	s.obj = obj
	s.typ = typ
	s.refs = 0
	s.live = true
	r.stats.Live++

	return makeHandle(typ, s.gen, idx), nil
}

// lookup must be called with r.mu held.
func (r *Registry) lookup(h Handle) (*slot, error) {
	idx := h.index()
	if idx == 0 || idx >= len(r.slots) {
		return nil, ErrNotFound
	}
	s := &r.slots[idx]
	if !s.live || s.gen != h.generation() || s.typ != h.Type() {
		return nil, ErrNotFound
	}
	return s, nil
}

// Get resolves h, checks it is of type typ and takes a reference.
func (r *Registry) Get(h Handle, typ Type) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return nil, err
	}
	if s.typ != typ {
		return nil, fmt.Errorf("%s is not a %s: %w", h, typ, ErrWrongType)
	}
	s.refs++
	r.stats.Acquired++
	return s.obj, nil
}

// Type reports the type of a live handle.
func (r *Registry) Type(h Handle) (Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return TypeInvalid, err
	}
	return s.typ, nil
}

// Release drops one reference taken by Get. Releasing a dead handle or one
// without outstanding references is a no-op.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil || s.refs == 0 {
		return
	}
	s.refs--
	r.stats.Released++
}

// Destroy removes the object. All references must have been released.
func (r *Registry) Destroy(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return err
	}
	if s.refs > 0 {
		return fmt.Errorf("destroy %s with %d references: %w", h, s.refs, ErrBusy)
	}

	s.obj = nil
	s.live = false
	r.stats.Live--
	// A slot whose generation would wrap is retired, or stale handles
	// would resolve again.
	if s.gen == genMask {
		r.retired++
		return nil
	}
	s.gen++
	r.free = append(r.free, h.index())
	return nil
}

// Refs returns the outstanding reference count of a live handle.
func (r *Registry) Refs(h Handle) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return 0
	}
	return s.refs
}

// Stats returns a snapshot of the reference counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Get resolves h as a *T object.
func Get[T any](r *Registry, h Handle, typ Type) (*T, error) {
	obj, err := r.Get(h, typ)
	if err != nil {
		return nil, err
	}
	v, ok := obj.(*T)
	if !ok {
		r.Release(h)
		return nil, fmt.Errorf("%s holds %T: %w", h, obj, ErrWrongType)
	}
	return v, nil
}
