// Package dedupe tracks idempotency keys so a retried request replays the
// first result instead of repeating its side effects.
package dedupe

import (
	"container/list"
	"sync"

	"github.com/okian/evaldash/pkg/metrics"
)

// DefaultMaxSize bounds how many completed keys are remembered.
const DefaultMaxSize = 10000

// State is the outcome of Begin.
type State int

// Begin outcomes.
const (
	// StateNew means the caller now owns the key and must Complete or Release it.
	StateNew State = iota
	// StateInFlight means another caller owns the key and has not finished.
	StateInFlight
	// StateDone means the key completed earlier; the stored value is returned.
	StateDone
)

type entry[V any] struct {
	key string
	val V
}

// Guard remembers idempotency keys and their results. Completed keys are
// evicted oldest first once maxSize is exceeded; in-flight keys are never
// evicted. A zero or negative maxSize means unbounded.
type Guard[V any] struct {
	name    string
	maxSize int

	mu      sync.Mutex
	order   *list.List // completed entries, oldest at the front
	entries map[string]*list.Element
	pending map[string]struct{}
}

// New returns an empty guard. name labels its metrics.
func New[V any](name string, opts ...Option) *Guard[V] {
	o := options{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Guard[V]{
		name:    name,
		maxSize: o.maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		pending: make(map[string]struct{}),
	}
}

// Begin claims key. On StateDone the stored value is returned.
func (g *Guard[V]) Begin(key string) (V, State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var zero V
	if el, ok := g.entries[key]; ok {
		metrics.RecordIdempotentReplay(g.name)
		return el.Value.(*entry[V]).val, StateDone
	}
	if _, ok := g.pending[key]; ok {
		return zero, StateInFlight
	}
	g.pending[key] = struct{}{}
	return zero, StateNew
}

// Complete stores the result for a key claimed with Begin.
func (g *Guard[V]) Complete(key string, val V) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.pending[key]; !ok {
		return
	}
	delete(g.pending, key)
	g.entries[key] = g.order.PushBack(&entry[V]{key: key, val: val})

	for g.maxSize > 0 && g.order.Len() > g.maxSize {
		oldest := g.order.Front()
		g.order.Remove(oldest)
		delete(g.entries, oldest.Value.(*entry[V]).key)
	}
}

// Release drops a claimed key without a result so it can be retried.
func (g *Guard[V]) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, key)
}

// Reset forgets every completed key. Keys in flight stay claimed.
func (g *Guard[V]) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.order.Init()
	clear(g.entries)
}

// Size returns the number of completed keys held.
func (g *Guard[V]) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}

// Do runs fn at most once per key. An empty key always runs fn. The bool
// reports whether the result was replayed. A failed or panicking fn releases
// the key.
func Do[V any](g *Guard[V], key string, fn func() (V, error)) (V, bool, error) {
	if key == "" || g == nil {
		v, err := fn()
		return v, false, err
	}

	v, st := g.Begin(key)
	switch st {
	case StateDone:
		return v, true, nil
	case StateInFlight:
		return v, false, ErrInFlight
	}

	completed := false
	defer func() {
		if !completed {
			g.Release(key)
		}
	}()

	v, err := fn()
	if err != nil {
		return v, false, err
	}
	g.Complete(key, v)
	completed = true
	return v, false, nil
}
