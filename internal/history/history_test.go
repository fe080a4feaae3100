package history

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awardintel/award-engine/internal/config"
	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func point(miles int, daysAgo int) Point {
	return Point{
		Program:       "Aeroplan",
		Airline:       "Air India",
		MilesRequired: miles,
		TaxUSD:        300,
		CapturedAt:    base.Add(-time.Duration(daysAgo) * 24 * time.Hour),
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   Summary
	}{
		{
			name:   "empty",
			points: nil,
			want:   Summary{},
		},
		{
			name:   "single point",
			points: []Point{point(90000, 0)},
			want:   Summary{Count: 1, Low: 90000, High: 90000, Latest: 90000, LatestAt: base},
		},
		{
			name:   "latest above low",
			points: []Point{point(120000, 3), point(80000, 2), point(85000, 0)},
			want:   Summary{Count: 3, Low: 80000, High: 120000, Latest: 85000, LatestAt: base, PctAboveLow: 6.3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.points))
		})
	}
}

func TestPointFrom(t *testing.T) {
	obs := observation.AwardObservation{Airline: "Air India", Program: "Aeroplan", MilesRequired: 90000, TaxUSD: 350}

	p := PointFrom(obs, base)
	assert.Equal(t, base, p.CapturedAt)
	assert.Equal(t, 90000, p.MilesRequired)

	obs.CapturedAt = base.Add(-time.Hour)
	assert.Equal(t, base.Add(-time.Hour), PointFrom(obs, base).CapturedAt)
}

func exerciseRecorder(t *testing.T, r Recorder) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, point(110000, 2)))
	require.NoError(t, r.Record(ctx, point(85000, 1)))
	require.NoError(t, r.Record(ctx, point(90000, 0)))
	require.NoError(t, r.Record(ctx, Point{Program: "Avianca LifeMiles", MilesRequired: 70000, CapturedAt: base}))

	// Outside the window, trimmed on write.
	require.NoError(t, r.Record(ctx, point(60000, 9)))

	all, err := r.Load(ctx, "Aeroplan", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 110000, all[0].MilesRequired)
	assert.Equal(t, 90000, all[2].MilesRequired)

	recent, err := r.Load(ctx, "Aeroplan", base.Add(-36*time.Hour))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	none, err := r.Load(ctx, "United MileagePlus", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory(t *testing.T) {
	m := NewMemory(DefaultWindow)
	m.now = func() time.Time { return base }
	exerciseRecorder(t, m)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis("redis://"+mr.Addr(), DefaultWindow)
	require.NoError(t, err)
	defer r.Close()

	r.now = func() time.Time { return base }
	exerciseRecorder(t, r)

	assert.True(t, mr.Exists(keyPrefix+"Aeroplan"))
}

func TestNewRedis_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis("redis://"+addr, DefaultWindow)
	assert.Equal(t, errors.CodeUnavailable, errors.CodeOf(err))
}

func TestNew(t *testing.T) {
	r, err := New(config.HistoryConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = New(config.HistoryConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, r)

	_, err = New(config.HistoryConfig{Type: "sqlite"})
	assert.True(t, errors.IsConfiguration(err))
}
