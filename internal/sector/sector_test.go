package sector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/cache"
	"github.com/industryrunners/pulse/internal/core"
	"github.com/industryrunners/pulse/internal/metrics"
)

type fakeMarket struct {
	ready     error
	snapshots map[string]core.Quote
	grouped   map[string]map[string]core.Bar // date -> symbol -> bar
	ranges    map[string][]core.Bar          // symbol -> trailing bars
}

func (f *fakeMarket) Ready() error { return f.ready }

func (f *fakeMarket) FetchSnapshots(_ context.Context, _ []string) (map[string]core.Quote, error) {
	return f.snapshots, nil
}

func (f *fakeMarket) FetchGroupedDaily(_ context.Context, date string) (map[string]core.Bar, error) {
	return f.grouped[date], nil
}

// FetchRangeBars mirrors the real client's contract: at most limit
// bars, the most recent ones in the span, oldest first.
func (f *fakeMarket) FetchRangeBars(_ context.Context, symbol, _, _ string, limit int) ([]core.Bar, error) {
	bars := f.ranges[symbol]
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// testSectors is a two-sector miniature of the canonical table.
var testSectors = []core.Sector{
	{Name: "Technology", ShortName: "Tech", Stocks: []string{"AAA", "BBB"}},
	{Name: "Energy", ShortName: "Energy", Stocks: []string{"CCC"}},
}

func newTestService(market *fakeMarket, store cache.Store) *Service {
	s := New(market, store, zap.NewNop(), metrics.NewRegistry())
	s.sectors = testSectors
	s.now = func() time.Time {
		return time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestRotation(t *testing.T) {
	ctx := context.Background()
	market := &fakeMarket{
		snapshots: map[string]core.Quote{
			"AAA": {Symbol: "AAA", Last: 100, ChangePercent: 2, Volume: 1000},
			"BBB": {Symbol: "BBB", Last: 50, ChangePercent: -1, Volume: 2000},
			"CCC": {Symbol: "CCC", Last: 80, ChangePercent: 3.456, Volume: 500},
		},
	}
	s := newTestService(market, cache.NewMemory())

	snap, err := s.Rotation(ctx, false)
	require.NoError(t, err)
	require.Len(t, snap.Sectors, 2)

	tech := snap.Sectors[0]
	assert.Equal(t, "Tech", tech.ShortName)
	assert.Len(t, tech.Stocks, 2)
	assert.Equal(t, 0.5, tech.AvgChange)

	energy := snap.Sectors[1]
	assert.Equal(t, 3.46, energy.AvgChange)
	assert.Equal(t, 3.46, energy.Stocks[0].ChangePercent)

	// Second call is served from cache.
	cached, err := s.Rotation(ctx, false)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, snap.Timestamp, cached.Timestamp)
}

func TestRotationSkipsQuotelessStocks(t *testing.T) {
	ctx := context.Background()
	market := &fakeMarket{
		snapshots: map[string]core.Quote{
			"AAA": {Symbol: "AAA", Last: 100, ChangePercent: 4},
		},
	}
	s := newTestService(market, cache.NewMemory())

	snap, err := s.Rotation(ctx, false)
	require.NoError(t, err)
	assert.Len(t, snap.Sectors[0].Stocks, 1)
	assert.Equal(t, 4.0, snap.Sectors[0].AvgChange)
	assert.Empty(t, snap.Sectors[1].Stocks)
	assert.Equal(t, 0.0, snap.Sectors[1].AvgChange)
}

func TestRotationNotReady(t *testing.T) {
	s := newTestService(&fakeMarket{ready: core.ErrConfigMissing}, cache.NewMemory())
	_, err := s.Rotation(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

// trailing returns 15 flat bars with the given high and low.
func trailing(high, low float64) []core.Bar {
	bars := make([]core.Bar, 15)
	for i := range bars {
		bars[i] = core.Bar{High: high, Low: low, Close: (high + low) / 2}
	}
	return bars
}

func TestRecompute(t *testing.T) {
	ctx := context.Background()
	market := &fakeMarket{
		grouped: map[string]map[string]core.Bar{
			"2025-06-20": {
				"AAA": {High: 110, Low: 100},  // breaks 15d high of 105
				"BBB": {High: 100, Low: 88},   // breaks 15d low of 90
				"CCC": {High: 100, Low: 95},   // inside the range
			},
		},
		ranges: map[string][]core.Bar{
			"AAA": trailing(105, 95),
			"BBB": trailing(104, 90),
			"CCC": trailing(105, 90),
		},
	}
	s := newTestService(market, cache.NewMemory())

	day, err := s.Recompute(ctx, "2025-06-20")
	require.NoError(t, err)
	assert.Equal(t, core.NHNL{NewHighs: 1, NewLows: 1}, day.Sectors["Tech"])
	assert.Equal(t, core.NHNL{}, day.Sectors["Energy"])

	history := s.History(ctx)
	require.Len(t, history.Days, 1)
	assert.Equal(t, "2025-06-20", history.Days[0].Date)
}

func TestRecomputeTrailingWindowUsesMostRecentSessions(t *testing.T) {
	// Twenty sessions of history where the last five run far above the
	// older ones. A day high of 150 beats the stale sessions but not the
	// recent ones, so it must not count as a new high.
	bars := make([]core.Bar, 20)
	for i := range bars {
		bars[i] = core.Bar{High: 100, Low: 90, Close: 95}
	}
	for i := 15; i < 20; i++ {
		bars[i] = core.Bar{High: 200, Low: 90, Close: 195}
	}
	market := &fakeMarket{
		grouped: map[string]map[string]core.Bar{
			"2025-06-20": {"AAA": {High: 150, Low: 95}},
		},
		ranges: map[string][]core.Bar{"AAA": bars},
	}
	s := newTestService(market, cache.NewMemory())

	day, err := s.Recompute(context.Background(), "2025-06-20")
	require.NoError(t, err)
	assert.Equal(t, core.NHNL{}, day.Sectors["Tech"])
}

func TestRecomputeRejectsNonTradingDay(t *testing.T) {
	s := newTestService(&fakeMarket{}, cache.NewMemory())

	_, err := s.Recompute(context.Background(), "2025-06-21") // Saturday
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	_, err = s.Recompute(context.Background(), "2025-06-19") // Juneteenth
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	_, err = s.Recompute(context.Background(), "junk")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestRecomputeZeroNeverClobbers(t *testing.T) {
	ctx := context.Background()
	market := &fakeMarket{
		grouped: map[string]map[string]core.Bar{
			"2025-06-20": {"AAA": {High: 110, Low: 100}},
		},
		ranges: map[string][]core.Bar{"AAA": trailing(105, 95)},
	}
	s := newTestService(market, cache.NewMemory())

	_, err := s.Recompute(ctx, "2025-06-20")
	require.NoError(t, err)

	// Upstream goes dark: recompute produces all zeros.
	market.grouped = nil
	market.ranges = nil
	_, err = s.Recompute(ctx, "2025-06-20")
	require.NoError(t, err)

	history := s.History(ctx)
	require.Len(t, history.Days, 1)
	assert.False(t, history.Days[0].IsZero(), "zero recompute replaced non-zero entry")
}

func TestHistorySortedNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	s := newTestService(&fakeMarket{}, store)

	for _, date := range []string{"2025-06-16", "2025-06-18", "2025-06-17"} {
		s.updateHistory(ctx, &core.NHNLDay{
			Date:    date,
			Sectors: map[string]core.NHNL{"Tech": {NewHighs: 1}},
		})
	}

	history := s.History(ctx)
	require.Len(t, history.Days, 3)
	assert.Equal(t, "2025-06-18", history.Days[0].Date)
	assert.Equal(t, "2025-06-16", history.Days[2].Date)
}

func TestHistoryKeepsTwentyDays(t *testing.T) {
	ctx := context.Background()
	s := newTestService(&fakeMarket{}, cache.NewMemory())

	d := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		s.updateHistory(ctx, &core.NHNLDay{
			Date:    d.Format("2006-01-02"),
			Sectors: map[string]core.NHNL{"Tech": {NewHighs: 1}},
		})
		d = d.AddDate(0, 0, 1)
	}

	history := s.History(ctx)
	require.Len(t, history.Days, 20)
	assert.Equal(t, "2025-03-27", history.Days[0].Date)
	assert.Equal(t, "2025-03-08", history.Days[19].Date)
}

func TestCleanupRemovesNonTradingDays(t *testing.T) {
	ctx := context.Background()
	s := newTestService(&fakeMarket{}, cache.NewMemory())

	for _, date := range []string{"2025-06-20", "2025-06-21", "2025-06-19"} {
		s.updateHistory(ctx, &core.NHNLDay{
			Date:    date,
			Sectors: map[string]core.NHNL{"Tech": {NewHighs: 2}},
		})
	}

	removed, err := s.Cleanup(ctx)
	require.NoError(t, err)
	// Saturday and Juneteenth go, Friday stays.
	assert.ElementsMatch(t, []string{"2025-06-21", "2025-06-19"}, removed)

	history := s.History(ctx)
	require.Len(t, history.Days, 1)
	assert.Equal(t, "2025-06-20", history.Days[0].Date)
}
