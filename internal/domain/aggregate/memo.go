package aggregate

import (
	"math"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/pkg/metrics"
)

// Memo caches the most recent result of one aggregation, keyed by a
// fingerprint of its logical input. Results are cloned on the way in and out,
// so callers may mutate what they get back.
type Memo[T any] struct {
	op    string
	clone func(T) T

	mu    sync.Mutex
	key   uint64
	val   T
	valid bool
}

// NewMemo returns an empty memo. clone may be nil for value types without
// shared references.
func NewMemo[T any](op string, clone func(T) T) *Memo[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Memo[T]{op: op, clone: clone}
}

// Get returns the cached value for key or computes and stores it.
func (m *Memo[T]) Get(key uint64, compute func() T) T {
	m.mu.Lock()
	if m.valid && m.key == key {
		v := m.clone(m.val)
		m.mu.Unlock()
		metrics.RecordMemoLookup(m.op, true)
		return v
	}
	m.mu.Unlock()

	metrics.RecordMemoLookup(m.op, false)
	v := compute()

	m.mu.Lock()
	m.key, m.val, m.valid = key, m.clone(v), true
	m.mu.Unlock()
	return v
}

// Reset drops the cached entry.
func (m *Memo[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	m.val, m.valid = zero, false
}

// Fingerprint hashes the fields of evs that aggregation reads, plus any
// extra parameters such as search text or selected school.
func Fingerprint(evs []model.EvaluationSummary, params ...string) uint64 {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}

	write(strconv.Itoa(len(evs)))
	for _, ev := range evs {
		write(ev.ID)
		write(ev.CreatedAt)
		write(ev.CandidateName())
		write(ev.School())
		write(ev.Program())
		write(ev.Verdict())
		write(string(ev.CoordinatorDecisionStatus))
		if ev.AITeachingSuitabilityScore == nil {
			write("-")
		} else {
			write(strconv.FormatUint(math.Float64bits(*ev.AITeachingSuitabilityScore), 16))
		}
	}
	for _, p := range params {
		write(p)
	}
	return d.Sum64()
}

// CloneSummaries deep-copies evs.
func CloneSummaries(evs []model.EvaluationSummary) []model.EvaluationSummary {
	if evs == nil {
		return nil
	}
	out := make([]model.EvaluationSummary, len(evs))
	for i, ev := range evs {
		out[i] = ev.Clone()
	}
	return out
}
