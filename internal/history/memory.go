package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a process-local Recorder.
type Memory struct {
	mu     sync.RWMutex
	points map[string][]Point
	window time.Duration
	now    func() time.Time
}

// NewMemory creates an in-memory recorder keeping points for window.
func NewMemory(window time.Duration) *Memory {
	return &Memory{
		points: make(map[string][]Point),
		window: window,
		now:    time.Now,
	}
}

func (m *Memory) Record(_ context.Context, p Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pts := append(m.points[p.Program], p)
	sort.SliceStable(pts, func(i, j int) bool {
		return pts[i].CapturedAt.Before(pts[j].CapturedAt)
	})

	cutoff := m.now().Add(-m.window)
	first := sort.Search(len(pts), func(i int) bool {
		return !pts[i].CapturedAt.Before(cutoff)
	})
	m.points[p.Program] = pts[first:]
	return nil
}

func (m *Memory) Load(_ context.Context, program string, since time.Time) ([]Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Point{}
	for _, p := range m.points[program] {
		if !p.CapturedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
