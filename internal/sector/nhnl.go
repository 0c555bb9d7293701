package sector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
)

// SeriesNHNL is the cache key for the rolling NH/NL history.
const SeriesNHNL = "sector-rotation:nh-nl-history"

const (
	// nhnlWindow is the trailing session count a "new" high or low is
	// measured against.
	nhnlWindow = 15
	// nhnlKeepDays bounds the stored history.
	nhnlKeepDays = 20
	// nhnlTTL is the cache expiry on the history blob.
	nhnlTTL = 30 * 24 * time.Hour
	// nhnlConcurrency bounds the per-symbol range-bar fan-out.
	nhnlConcurrency = 12
)

// History returns the stored NH/NL history, newest first. A missing or
// undecodable blob is an empty history.
func (s *Service) History(ctx context.Context) core.NHNLHistory {
	var history core.NHNLHistory
	data, ok := s.store.Get(ctx, SeriesNHNL)
	if !ok {
		return history
	}
	if err := json.Unmarshal(data, &history); err != nil {
		s.log.Warn("discarding undecodable NH/NL history", zap.Error(err))
		return core.NHNLHistory{}
	}
	return history
}

// Recompute calculates NH/NL counts for one trading day and updates the
// stored history, replacing an existing entry for that date. The date
// must be a trading day.
func (s *Service) Recompute(ctx context.Context, date string) (*core.NHNLDay, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid date %q", date))
	}
	if !calendar.IsMarketOpen(date) {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("%s is not a trading day: %s", date, calendar.ClosureReason(date)))
	}
	if err := s.market.Ready(); err != nil {
		return nil, err
	}

	day, err := s.compute(ctx, date)
	if err != nil {
		return nil, err
	}
	s.updateHistory(ctx, day)
	return day, nil
}

type symbolRange struct {
	symbol string
	high   float64
	low    float64
}

// compute builds one day's per-sector NH/NL counts: a stock makes a new
// high when its day high exceeds the highest high of the previous 15
// sessions, and a new low when its day low undercuts the lowest low.
// The target date itself is excluded from the trailing window.
func (s *Service) compute(ctx context.Context, date string) (*core.NHNLDay, error) {
	target := mustParseDate(date)
	from := target.AddDate(0, 0, -30).Format("2006-01-02")
	to := target.AddDate(0, 0, -1).Format("2006-01-02")

	dayBars, err := s.market.FetchGroupedDaily(ctx, date)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(s.sectors)*15)
	seen := make(map[string]bool)
	for _, sec := range s.sectors {
		for _, sym := range sec.Stocks {
			if !seen[sym] {
				seen[sym] = true
				symbols = append(symbols, sym)
			}
		}
	}

	p := pool.NewWithResults[symbolRange]().WithMaxGoroutines(nhnlConcurrency)
	for _, sym := range symbols {
		p.Go(func() symbolRange {
			bars, err := s.market.FetchRangeBars(ctx, sym, from, to, nhnlWindow)
			if err != nil {
				s.log.Warn("range bars unavailable", zap.String("symbol", sym), zap.Error(err))
				return symbolRange{symbol: sym}
			}
			if len(bars) > nhnlWindow {
				bars = bars[len(bars)-nhnlWindow:]
			}
			r := symbolRange{symbol: sym}
			for _, b := range bars {
				if b.High > r.high {
					r.high = b.High
				}
				if b.Low > 0 && (r.low == 0 || b.Low < r.low) {
					r.low = b.Low
				}
			}
			return r
		})
	}

	trailing := make(map[string]symbolRange, len(symbols))
	for _, r := range p.Wait() {
		trailing[r.symbol] = r
	}

	day := &core.NHNLDay{
		Date:    date,
		Sectors: make(map[string]core.NHNL, len(s.sectors)),
	}
	for _, sec := range s.sectors {
		var counts core.NHNL
		for _, sym := range sec.Stocks {
			tr, ok := trailing[sym]
			if !ok {
				continue
			}
			bar, ok := dayBars[sym]
			if !ok {
				continue
			}
			if bar.High > 0 && tr.high > 0 && bar.High > tr.high {
				counts.NewHighs++
			}
			if bar.Low > 0 && tr.low > 0 && bar.Low < tr.low {
				counts.NewLows++
			}
		}
		day.Sectors[sec.ShortName] = counts
	}
	return day, nil
}

// updateHistory replaces or appends the day's entry, keeping the
// newest entries only. An all-zero day never replaces an existing
// non-zero entry for the same date.
func (s *Service) updateHistory(ctx context.Context, day *core.NHNLDay) {
	history := s.History(ctx)

	replaced := false
	for i, d := range history.Days {
		if d.Date != day.Date {
			continue
		}
		if day.IsZero() && !d.IsZero() {
			s.log.Warn("refusing to overwrite non-zero NH/NL entry with zeros",
				zap.String("date", day.Date))
			s.metrics.RecordSnapshotWrite(SeriesNHNL, "skipped_zero")
			return
		}
		history.Days[i] = *day
		replaced = true
		break
	}
	if !replaced {
		if day.IsZero() {
			s.log.Warn("skipping all-zero NH/NL entry", zap.String("date", day.Date))
			s.metrics.RecordSnapshotWrite(SeriesNHNL, "skipped_zero")
			return
		}
		history.Days = append(history.Days, *day)
	}

	sort.Slice(history.Days, func(i, j int) bool {
		return history.Days[i].Date > history.Days[j].Date
	})
	if len(history.Days) > nhnlKeepDays {
		history.Days = history.Days[:nhnlKeepDays]
	}

	data, err := json.Marshal(history)
	if err != nil {
		s.log.Error("marshaling NH/NL history", zap.Error(err))
		return
	}
	if s.store.Set(ctx, SeriesNHNL, data, nhnlTTL) {
		s.metrics.RecordSnapshotWrite(SeriesNHNL, "saved")
	}
}

// Cleanup removes weekend and holiday entries from the stored history.
// Returns the removed dates.
func (s *Service) Cleanup(ctx context.Context) ([]string, error) {
	history := s.History(ctx)

	var removed []string
	kept := history.Days[:0]
	for _, d := range history.Days {
		if _, err := time.Parse("2006-01-02", d.Date); err != nil {
			removed = append(removed, d.Date)
			continue
		}
		if calendar.IsMarketOpen(d.Date) {
			kept = append(kept, d)
		} else {
			removed = append(removed, d.Date)
		}
	}
	history.Days = kept

	data, err := json.Marshal(history)
	if err != nil {
		return nil, err
	}
	if !s.store.Set(ctx, SeriesNHNL, data, nhnlTTL) {
		return nil, core.ErrCacheUnavailable
	}
	if len(removed) > 0 {
		s.log.Info("removed non-trading NH/NL entries", zap.Strings("dates", removed))
	}
	return removed, nil
}

func mustParseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(fmt.Sprintf("sector: malformed date %q", s))
	}
	return t
}
