package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// MemoryStore keeps snapshots in memory (for dry runs and tests).
type MemoryStore struct {
	table string
	now   func() time.Time

	mu   sync.RWMutex
	rows []observation.AwardObservation
}

// NewMemory creates an empty in-memory store.
func NewMemory(table string) *MemoryStore {
	if table == "" {
		table = DefaultTable
	}
	return &MemoryStore{
		table: table,
		now:   time.Now,
	}
}

func (m *MemoryStore) Name() string  { return "memory" }
func (m *MemoryStore) Table() string { return m.table }

func (m *MemoryStore) Insert(ctx context.Context, obs observation.AwardObservation) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.FromRequest("insert", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obs.CapturedAt = m.now().UTC()
	m.rows = append(m.rows, obs)
	return 1, nil
}

func (m *MemoryStore) Latest(ctx context.Context) (observation.AwardObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.rows) == 0 {
		return observation.AwardObservation{}, errors.NotFoundError("snapshot")
	}

	latest := m.rows[0]
	for _, r := range m.rows[1:] {
		if !r.CapturedAt.Before(latest.CapturedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (m *MemoryStore) Since(ctx context.Context, t time.Time) ([]observation.AwardObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]observation.AwardObservation, 0, len(m.rows))
	for _, r := range m.rows {
		if !r.CapturedAt.Before(t) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CapturedAt.Before(out[j].CapturedAt)
	})
	return out, nil
}

// Rows returns a copy of every stored snapshot in insertion order.
func (m *MemoryStore) Rows() []observation.AwardObservation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]observation.AwardObservation(nil), m.rows...)
}

func (m *MemoryStore) Close() error { return nil }
