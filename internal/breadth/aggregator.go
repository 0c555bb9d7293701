// Package breadth computes market breadth: how many stocks in the
// tracked universe are moving, and by how much, over several windows.
package breadth

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/cache"
	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
	"github.com/industryrunners/pulse/internal/metrics"
	"github.com/industryrunners/pulse/internal/universe"
)

// SeriesRealtime is the cache key and history series for computed
// breadth snapshots.
const SeriesRealtime = "breadth:realtime"

// Mover thresholds, in percent.
const (
	dailyMoverPct   = 4
	quarterMoverPct = 25
	monthMoverPct   = 25
	monthBigPct     = 50
	mover34Pct      = 13
)

// MarketData is the slice of the market data client the aggregator
// needs.
type MarketData interface {
	Ready() error
	FetchSnapshots(ctx context.Context, symbols []string) (map[string]core.Quote, error)
	HistoricalCloses(ctx context.Context, tradingDaysAgo int) (map[string]float64, string, error)
	GroupedDailyCloses(ctx context.Context, date string) (map[string]float64, error)
}

// Aggregator computes breadth snapshots and manages their caching and
// daily history.
type Aggregator struct {
	market  MarketData
	store   cache.Store
	log     *zap.Logger
	metrics *metrics.Registry
	symbols []string
	now     func() time.Time
}

// New creates a breadth aggregator over the canonical universe.
func New(market MarketData, store cache.Store, log *zap.Logger, reg *metrics.Registry) *Aggregator {
	return &Aggregator{
		market:  market,
		store:   store,
		log:     log,
		metrics: reg,
		symbols: universe.Symbols(),
		now:     time.Now,
	}
}

// ComputeOrCached returns the current breadth snapshot, serving from
// cache unless force is set. A computed snapshot is cached with a TTL
// matched to the market state and, on trading days, written once to the
// daily history.
func (a *Aggregator) ComputeOrCached(ctx context.Context, force bool) (*core.BreadthSnapshot, error) {
	if !force {
		if data, ok := a.store.Get(ctx, SeriesRealtime); ok {
			var snap core.BreadthSnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				a.log.Warn("discarding undecodable cached breadth", zap.Error(err))
			} else {
				snap.Cached = true
				a.metrics.RecordCacheOp(SeriesRealtime, "hit")
				return &snap, nil
			}
		}
		a.metrics.RecordCacheOp(SeriesRealtime, "miss")
	}

	start := a.now()
	snap, err := a.compute(ctx)
	if err != nil {
		a.metrics.RecordBreadthComputation(SeriesRealtime, "failed", time.Since(start).Seconds())
		return nil, err
	}
	a.metrics.RecordBreadthComputation(SeriesRealtime, "computed", time.Since(start).Seconds())

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}

	ttl := cache.TTLDaily
	if calendar.IsMarketOpen(snap.Date) {
		ttl = cache.TTLRealtime
	}
	if !a.store.Set(ctx, SeriesRealtime, data, ttl) {
		a.metrics.RecordCacheOp(SeriesRealtime, "write_failed")
	} else {
		a.metrics.RecordCacheOp(SeriesRealtime, "write")
	}

	a.persistDaily(ctx, snap, data)
	return snap, nil
}

// persistDaily writes the snapshot to the daily history when today is a
// trading day, no snapshot exists yet, and the data is not all zeros.
// An all-zero snapshot means the upstream gave us nothing; it is still
// served, but it must never become the historical record for the day.
func (a *Aggregator) persistDaily(ctx context.Context, snap *core.BreadthSnapshot, data []byte) {
	if !calendar.IsMarketOpen(snap.Date) {
		a.log.Debug("skipping daily snapshot, market closed",
			zap.String("date", snap.Date),
			zap.String("reason", calendar.ClosureReason(snap.Date)))
		a.metrics.RecordSnapshotWrite(SeriesRealtime, "skipped_closed")
		return
	}
	if snap.IsZero() {
		a.log.Warn("skipping daily snapshot, all counts zero",
			zap.String("date", snap.Date))
		a.metrics.RecordSnapshotWrite(SeriesRealtime, "skipped_zero")
		return
	}
	if !a.store.ShouldSaveDailySnapshot(ctx, SeriesRealtime) {
		a.metrics.RecordSnapshotWrite(SeriesRealtime, "skipped_exists")
		return
	}
	if a.store.SaveDailySnapshot(ctx, SeriesRealtime, data, snap.Date) {
		a.log.Info("saved daily breadth snapshot", zap.String("date", snap.Date))
		a.metrics.RecordSnapshotWrite(SeriesRealtime, "saved")
	}
}

// History returns up to days stored daily snapshots, newest first.
func (a *Aggregator) History(ctx context.Context, days int) []core.HistoryEntry {
	return a.store.GetHistory(ctx, SeriesRealtime, days)
}

func (a *Aggregator) compute(ctx context.Context) (*core.BreadthSnapshot, error) {
	if err := a.market.Ready(); err != nil {
		return nil, err
	}
	now := a.now()

	snaps, err := a.market.FetchSnapshots(ctx, append(append([]string(nil), a.symbols...), universe.MarketETF))
	if err != nil {
		return nil, err
	}
	a.log.Info("fetched breadth snapshots",
		zap.Int("requested", len(a.symbols)+1), zap.Int("received", len(snaps)))

	// Historical closes for the period buckets. A failed window is an
	// empty map: those buckets read zero rather than failing the whole
	// computation.
	hist21 := a.historical(ctx, 21)
	hist34 := a.historical(ctx, 34)
	hist63 := a.historical(ctx, 63)

	ratio5, ratio10 := a.rollingRatios(ctx, now)
	t2108 := a.t2108(ctx, snaps, now)

	snap := &core.BreadthSnapshot{
		Date:          now.In(calendar.ExchangeTZ).Format("2006-01-02"),
		Timestamp:     now.UnixMilli(),
		UniverseCount: len(a.symbols),
		T2108:         t2108,
	}
	snap.Primary.Ratio5Day = ratio5
	snap.Primary.Ratio10Day = ratio10

	for _, sym := range a.symbols {
		q, ok := snaps[sym]
		if !ok || q.Last <= 0 {
			continue
		}
		changePct := q.ChangePercent

		switch {
		case changePct >= dailyMoverPct:
			snap.Primary.Up4PlusToday++
		case changePct <= -dailyMoverPct:
			snap.Primary.Down4PlusToday++
		}

		if base := hist63[sym]; base > 0 {
			switch chg := pctChange(q.Last, base); {
			case chg >= quarterMoverPct:
				snap.Primary.Up25PlusQuarter++
			case chg <= -quarterMoverPct:
				snap.Primary.Down25PlusQuarter++
			}
		}
		if base := hist21[sym]; base > 0 {
			chg := pctChange(q.Last, base)
			switch {
			case chg >= monthMoverPct:
				snap.Secondary.Up25PlusMonth++
			case chg <= -monthMoverPct:
				snap.Secondary.Down25PlusMonth++
			}
			switch {
			case chg >= monthBigPct:
				snap.Secondary.Up50PlusMonth++
			case chg <= -monthBigPct:
				snap.Secondary.Down50PlusMonth++
			}
		}
		if base := hist34[sym]; base > 0 {
			switch chg := pctChange(q.Last, base); {
			case chg >= mover34Pct:
				snap.Secondary.Up13Plus34Days++
			case chg <= -mover34Pct:
				snap.Secondary.Down13Plus34Days++
			}
		}
	}

	if spy, ok := snaps[universe.MarketETF]; ok && spy.Last > 0 {
		snap.Market = core.MarketGauge{
			SpyValue:         round2(spy.Last),
			SpyChange:        round2(spy.Change),
			SpyChangePercent: round2(spy.ChangePercent),
		}
	}

	return snap, nil
}

func (a *Aggregator) historical(ctx context.Context, tradingDaysAgo int) map[string]float64 {
	closes, date, err := a.market.HistoricalCloses(ctx, tradingDaysAgo)
	if err != nil {
		a.log.Warn("historical closes unavailable",
			zap.Int("tradingDaysAgo", tradingDaysAgo), zap.Error(err))
		return nil
	}
	a.log.Debug("historical closes",
		zap.Int("tradingDaysAgo", tradingDaysAgo),
		zap.String("date", date), zap.Int("symbols", len(closes)))
	return closes
}

// rollingRatios computes the 5- and 10-day up/down ratios from the
// daily 4% mover counts of the last 10 trading days.
func (a *Aggregator) rollingRatios(ctx context.Context, now time.Time) (*float64, *float64) {
	dates := calendar.TradingDaysBack(now.In(calendar.ExchangeTZ), 11)

	closesByDate := make([]map[string]float64, len(dates))
	for i, date := range dates {
		closes, err := a.market.GroupedDailyCloses(ctx, date)
		if err != nil {
			a.log.Warn("grouped daily unavailable", zap.String("date", date), zap.Error(err))
			continue
		}
		closesByDate[i] = closes
	}

	type dayCount struct{ up, down int }
	var counts []dayCount
	for i := 0; i+1 < len(dates) && len(counts) < 10; i++ {
		cur, prev := closesByDate[i], closesByDate[i+1]
		if len(cur) == 0 || len(prev) == 0 {
			continue
		}
		var c dayCount
		for _, sym := range a.symbols {
			curClose, prevClose := cur[sym], prev[sym]
			if curClose <= 0 || prevClose <= 0 {
				continue
			}
			switch chg := pctChange(curClose, prevClose); {
			case chg >= dailyMoverPct:
				c.up++
			case chg <= -dailyMoverPct:
				c.down++
			}
		}
		counts = append(counts, c)
	}

	sum := func(n int) (up, down int) {
		for _, c := range counts[:n] {
			up += c.up
			down += c.down
		}
		return
	}

	var ratio5, ratio10 *float64
	if len(counts) >= 5 {
		ratio5 = Ratio(sum(5))
	}
	if len(counts) >= 10 {
		ratio10 = Ratio(sum(10))
	}
	return ratio5, ratio10
}

// t2108 computes the percentage of the universe trading above its own
// 40-day moving average. Nil when fewer than 40 days of history exist
// for every symbol.
func (a *Aggregator) t2108(ctx context.Context, snaps map[string]core.Quote, now time.Time) *float64 {
	const maDays = 40
	dates := calendar.TradingDaysBack(now.In(calendar.ExchangeTZ), maDays)

	history := make(map[string][]float64, len(a.symbols))
	for i := len(dates) - 1; i >= 0; i-- { // oldest first
		closes, err := a.market.GroupedDailyCloses(ctx, dates[i])
		if err != nil {
			a.log.Warn("grouped daily unavailable", zap.String("date", dates[i]), zap.Error(err))
			continue
		}
		for _, sym := range a.symbols {
			if c, ok := closes[sym]; ok && c > 0 {
				history[sym] = append(history[sym], c)
			}
		}
	}

	var above, valid int
	for _, sym := range a.symbols {
		q, ok := snaps[sym]
		if !ok || q.Last <= 0 {
			continue
		}
		closes := history[sym]
		if len(closes) < maDays {
			continue
		}
		var total float64
		for _, c := range closes[len(closes)-maDays:] {
			total += c
		}
		valid++
		if q.Last > total/maDays {
			above++
		}
	}
	if valid == 0 {
		return nil
	}
	pct := round1(float64(above) / float64(valid) * 100)
	return &pct
}

func pctChange(current, base float64) float64 {
	return (current - base) / base * 100
}
