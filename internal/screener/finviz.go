// Package screener derives daily market breadth from a public stock
// screener: 52-week high/low counts, RSI extremes, moving-average
// position, and crossovers over the whole US exchange universe.
package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/breadth"
	"github.com/industryrunners/pulse/internal/cache"
	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
	"github.com/industryrunners/pulse/internal/metrics"
)

// SeriesDaily is the cache key and history series for screener breadth.
const SeriesDaily = "breadth:daily"

const defaultBaseURL = "https://finviz.com"

// baseFilter restricts results to the main US exchanges.
const baseFilter = "exch_nasd,nyse,amex"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// filters maps each breadth measure to its screener filter code.
var filters = map[string]string{
	"new52WeekHigh": "ta_highlow52w_nh",
	"new52WeekLow":  "ta_highlow52w_nl",

	"rsiAbove70": "ta_rsi_ob70",
	"rsiBelow30": "ta_rsi_os30",

	"aboveSMA20":  "ta_sma20_pa",
	"belowSMA20":  "ta_sma20_pb",
	"aboveSMA50":  "ta_sma50_pa",
	"belowSMA50":  "ta_sma50_pb",
	"aboveSMA200": "ta_sma200_pa",
	"belowSMA200": "ta_sma200_pb",

	"sma50AboveSMA200": "ta_sma50_cross200a",
	"sma50BelowSMA200": "ta_sma50_cross200b",
}

// Screener scrapes the screener site and maintains the daily breadth
// series.
type Screener struct {
	baseURL    string
	httpClient *http.Client
	store      cache.Store
	log        *zap.Logger
	metrics    *metrics.Registry
	now        func() time.Time
}

// Option configures a Screener.
type Option func(*Screener)

// WithBaseURL points the scraper at a different host (tests).
func WithBaseURL(u string) Option {
	return func(s *Screener) { s.baseURL = u }
}

// New creates a screener service.
func New(store cache.Store, log *zap.Logger, reg *metrics.Registry, opts ...Option) *Screener {
	s := &Screener{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		log:        log,
		metrics:    reg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fetchCount fetches one screener page and extracts the match count.
// Any zero is logged with its cause so a broken scrape is not mistaken
// for a quiet market.
func (s *Screener) fetchCount(ctx context.Context, name, filterCode string) int {
	u := fmt.Sprintf("%s/screener.ashx?v=111&f=%s", s.baseURL, baseFilter)
	if filterCode != "" {
		u += "," + filterCode
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		s.log.Error("building screener request", zap.String("filter", name), zap.Error(err))
		s.metrics.RecordScrapeExtraction("fetch_error")
		return 0
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Error("screener fetch failed", zap.String("filter", name), zap.Error(err))
		s.metrics.RecordScrapeExtraction("fetch_error")
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Error("screener fetch failed",
			zap.String("filter", name), zap.Int("status", resp.StatusCode))
		s.metrics.RecordScrapeExtraction("fetch_error")
		return 0
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.log.Error("reading screener page", zap.String("filter", name), zap.Error(err))
		s.metrics.RecordScrapeExtraction("fetch_error")
		return 0
	}

	ext := ExtractCount(string(body))
	switch ext.Kind {
	case Matched:
		s.metrics.RecordScrapeExtraction(ext.Pattern)
		return ext.Count
	case NoResultsConfirmed:
		s.log.Info("screener confirmed empty result", zap.String("filter", name))
		s.metrics.RecordScrapeExtraction("no_results")
		return 0
	default:
		s.log.Warn("screener page unparseable, possible layout change",
			zap.String("filter", name))
		s.metrics.RecordScrapeExtraction("unmatched")
		return 0
	}
}

// Daily returns the screener breadth snapshot, serving from cache
// unless force is set.
func (s *Screener) Daily(ctx context.Context, force bool) (*core.ScreenerBreadth, error) {
	if !force {
		if data, ok := s.store.Get(ctx, SeriesDaily); ok {
			var snap core.ScreenerBreadth
			if err := json.Unmarshal(data, &snap); err != nil {
				s.log.Warn("discarding undecodable cached screener breadth", zap.Error(err))
			} else {
				snap.Cached = true
				s.metrics.RecordCacheOp(SeriesDaily, "hit")
				return &snap, nil
			}
		}
		s.metrics.RecordCacheOp(SeriesDaily, "miss")
	}

	start := s.now()
	snap := s.scrape(ctx)
	s.metrics.RecordBreadthComputation(SeriesDaily, "computed", time.Since(start).Seconds())

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	if s.store.Set(ctx, SeriesDaily, data, cache.TTLDaily) {
		s.metrics.RecordCacheOp(SeriesDaily, "write")
	} else {
		s.metrics.RecordCacheOp(SeriesDaily, "write_failed")
	}

	s.persistDaily(ctx, snap, data, false)
	return snap, nil
}

// scrape pulls all filter counts and assembles a snapshot.
func (s *Screener) scrape(ctx context.Context) *core.ScreenerBreadth {
	now := s.now()
	counts := make(map[string]int, len(filters))
	for name, code := range filters {
		counts[name] = s.fetchCount(ctx, name, code)
	}

	snap := &core.ScreenerBreadth{
		Date:          now.In(calendar.ExchangeTZ).Format("2006-01-02"),
		Timestamp:     now.UnixMilli(),
		UniverseCount: s.fetchCount(ctx, "universe", ""),
		Highs: core.HighLowCounts{
			New52WeekHigh: counts["new52WeekHigh"],
			New52WeekLow:  counts["new52WeekLow"],
			HighLowRatio:  breadth.Ratio(counts["new52WeekHigh"], counts["new52WeekLow"]),
		},
		RSI: core.RSICounts{
			Above70:  counts["rsiAbove70"],
			Below30:  counts["rsiBelow30"],
			RSIRatio: breadth.Ratio(counts["rsiAbove70"], counts["rsiBelow30"]),
		},
		SMA: core.SMACounts{
			AboveSMA20:  counts["aboveSMA20"],
			BelowSMA20:  counts["belowSMA20"],
			AboveSMA50:  counts["aboveSMA50"],
			BelowSMA50:  counts["belowSMA50"],
			AboveSMA200: counts["aboveSMA200"],
			BelowSMA200: counts["belowSMA200"],
		},
		Trend: core.TrendCounts{
			GoldenCross: counts["sma50AboveSMA200"],
			DeathCross:  counts["sma50BelowSMA200"],
		},
	}
	return snap
}

// persistDaily applies the daily history gating. With force set the
// snapshot replaces today's entry, but an all-zero result still never
// clobbers existing non-zero data.
func (s *Screener) persistDaily(ctx context.Context, snap *core.ScreenerBreadth, data []byte, force bool) {
	if !calendar.IsMarketOpen(snap.Date) {
		s.metrics.RecordSnapshotWrite(SeriesDaily, "skipped_closed")
		return
	}
	if snap.IsZero() {
		s.log.Warn("skipping daily screener snapshot, all counts zero",
			zap.String("date", snap.Date))
		s.metrics.RecordSnapshotWrite(SeriesDaily, "skipped_zero")
		return
	}
	if !force && !s.store.ShouldSaveDailySnapshot(ctx, SeriesDaily) {
		s.metrics.RecordSnapshotWrite(SeriesDaily, "skipped_exists")
		return
	}
	if s.store.SaveDailySnapshot(ctx, SeriesDaily, data, snap.Date) {
		s.log.Info("saved daily screener snapshot", zap.String("date", snap.Date))
		s.metrics.RecordSnapshotWrite(SeriesDaily, "saved")
	}
}

// Refresh recomputes today's data and force-saves the daily snapshot,
// overwriting an existing entry. Maintenance operation.
func (s *Screener) Refresh(ctx context.Context) (*core.ScreenerBreadth, error) {
	snap := s.scrape(ctx)
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	s.store.Set(ctx, SeriesDaily, data, cache.TTLDaily)
	s.persistDaily(ctx, snap, data, true)
	return snap, nil
}

// DeleteSnapshot drops the daily entry for one date. Maintenance
// operation for removing bad data.
func (s *Screener) DeleteSnapshot(ctx context.Context, date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid date %q", date))
	}
	if !s.store.DeleteDailySnapshot(ctx, SeriesDaily, date) {
		return core.ErrCacheUnavailable
	}
	s.log.Info("deleted daily screener snapshot", zap.String("date", date))
	return nil
}

// History returns up to days stored screener snapshots, newest first.
func (s *Screener) History(ctx context.Context, days int) []core.HistoryEntry {
	return s.store.GetHistory(ctx, SeriesDaily, days)
}
