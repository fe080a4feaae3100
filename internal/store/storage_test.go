package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awardintel/award-engine/internal/config"
	"github.com/awardintel/award-engine/internal/pkg/errors"
)

func TestNew_Backends(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, config.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())
	assert.Equal(t, DefaultTable, s.Table())

	s, err = New(ctx, config.StoreConfig{Backend: "postgrest", URL: "https://x.supabase.co", Key: "k", Table: "snapshots_v2"})
	require.NoError(t, err)
	assert.Equal(t, "postgrest", s.Name())
	assert.Equal(t, "snapshots_v2", s.Table())

	_, err = New(ctx, config.StoreConfig{Backend: "mongo"})
	assert.True(t, errors.IsConfiguration(err))

	_, err = New(ctx, config.StoreConfig{Backend: "postgres"})
	assert.True(t, errors.IsConfiguration(err))

	_, err = New(ctx, config.StoreConfig{Backend: "memory", Table: "award snapshots"})
	assert.True(t, errors.IsConfiguration(err))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("")

	_, err := m.Latest(ctx)
	assert.True(t, errors.IsNotFound(err))

	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	for i, miles := range []int{110000, 90000, 85000} {
		at := base.Add(time.Duration(i) * time.Hour)
		m.now = func() time.Time { return at }

		obs := sampleObservation()
		obs.MilesRequired = miles
		n, err := m.Insert(ctx, obs)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	latest, err := m.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 85000, latest.MilesRequired)

	rows, err := m.Since(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 90000, rows[0].MilesRequired)

	assert.Len(t, m.Rows(), 3)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory("").Insert(ctx, sampleObservation())
	require.Error(t, err)
	assert.Equal(t, errors.CodeTransport, errors.CodeOf(err))
}

func TestSQLBuilder(t *testing.T) {
	b := newSQLBuilder("postgres", DefaultTable)

	query, args, err := b.insert(sampleObservation(), time.Time{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(query, `INSERT INTO "award_snapshots"`), query)
	assert.NotContains(t, query, "captured_at")
	assert.Contains(t, query, "$4")
	assert.Len(t, args, 4)

	query, args, err = b.insert(sampleObservation(), time.Now())
	require.NoError(t, err)
	assert.Contains(t, query, `"captured_at"`)
	assert.Len(t, args, 5)

	query, _, err = b.latest()
	require.NoError(t, err)
	assert.Contains(t, query, `ORDER BY "captured_at" DESC`)
	assert.Contains(t, query, "LIMIT")

	query, args, err = b.since(time.Now())
	require.NoError(t, err)
	assert.Contains(t, query, `"captured_at" >= $1`)
	assert.Len(t, args, 1)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "awards.db"), "")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Latest(ctx)
	assert.True(t, errors.IsNotFound(err))

	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	for i, miles := range []int{120000, 80000} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }

		obs := sampleObservation()
		obs.MilesRequired = miles
		n, err := s.Insert(ctx, obs)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80000, latest.MilesRequired)
	assert.Equal(t, "Aeroplan", latest.Program)
	assert.True(t, latest.CapturedAt.Equal(base.Add(time.Minute)))

	rows, err := s.Since(ctx, base)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 120000, rows[0].MilesRequired)
}

func TestSQLiteStore_RejectsInvalidRow(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "awards.db"), "")
	require.NoError(t, err)
	defer s.Close()

	obs := sampleObservation()
	obs.MilesRequired = 0
	_, err = s.Insert(ctx, obs)
	require.Error(t, err)
	assert.Equal(t, errors.CodeRejected, errors.CodeOf(err))
}

func TestNewSQLite_BadTable(t *testing.T) {
	_, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "x.db"), "snap; DROP")
	assert.True(t, errors.IsConfiguration(err))
}
