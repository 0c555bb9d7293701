// Package sector aggregates per-sector views over the canonical
// universe: intraday rotation (average percent change per sector) and
// 15-session new-high/new-low counts.
package sector

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/cache"
	"github.com/industryrunners/pulse/internal/core"
	"github.com/industryrunners/pulse/internal/metrics"
	"github.com/industryrunners/pulse/internal/universe"
)

// SeriesRotation is the cache key for the rotation view.
const SeriesRotation = "sector-rotation:daily"

// TTLRotation keeps rotation data fresh enough to feel real-time.
const TTLRotation = time.Minute

// MarketData is the slice of the market data client this package needs.
type MarketData interface {
	Ready() error
	FetchSnapshots(ctx context.Context, symbols []string) (map[string]core.Quote, error)
	FetchGroupedDaily(ctx context.Context, date string) (map[string]core.Bar, error)
	FetchRangeBars(ctx context.Context, symbol, from, to string, limit int) ([]core.Bar, error)
}

// Service computes sector rotation and NH/NL data.
type Service struct {
	market  MarketData
	store   cache.Store
	log     *zap.Logger
	metrics *metrics.Registry
	sectors []core.Sector
	now     func() time.Time
}

// New creates a sector service over the canonical sector table.
func New(market MarketData, store cache.Store, log *zap.Logger, reg *metrics.Registry) *Service {
	return &Service{
		market:  market,
		store:   store,
		log:     log,
		metrics: reg,
		sectors: universe.Sectors,
		now:     time.Now,
	}
}

// Rotation returns the per-sector rotation view, serving from cache
// unless force is set.
func (s *Service) Rotation(ctx context.Context, force bool) (*core.RotationSnapshot, error) {
	if !force {
		if data, ok := s.store.Get(ctx, SeriesRotation); ok {
			var snap core.RotationSnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				s.log.Warn("discarding undecodable cached rotation", zap.Error(err))
			} else {
				snap.Cached = true
				s.metrics.RecordCacheOp(SeriesRotation, "hit")
				return &snap, nil
			}
		}
		s.metrics.RecordCacheOp(SeriesRotation, "miss")
	}

	if err := s.market.Ready(); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(s.sectors)*15)
	for _, sec := range s.sectors {
		symbols = append(symbols, sec.Stocks...)
	}
	quotes, err := s.market.FetchSnapshots(ctx, symbols)
	if err != nil {
		return nil, err
	}

	snap := &core.RotationSnapshot{
		Timestamp: s.now().UnixMilli(),
		Sectors:   make([]core.SectorRotation, 0, len(s.sectors)),
	}
	for _, sec := range s.sectors {
		rot := core.SectorRotation{
			Name:      sec.Name,
			ShortName: sec.ShortName,
			Stocks:    make([]core.SectorStock, 0, len(sec.Stocks)),
		}
		var total float64
		for _, sym := range sec.Stocks {
			q, ok := quotes[sym]
			if !ok || q.Last <= 0 {
				continue
			}
			rot.Stocks = append(rot.Stocks, core.SectorStock{
				Symbol:        sym,
				ChangePercent: round2(q.ChangePercent),
				Price:         round2(q.Last),
				Volume:        q.Volume,
			})
			total += q.ChangePercent
		}
		if len(rot.Stocks) > 0 {
			rot.AvgChange = round2(total / float64(len(rot.Stocks)))
		}
		snap.Sectors = append(snap.Sectors, rot)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	if s.store.Set(ctx, SeriesRotation, data, TTLRotation) {
		s.metrics.RecordCacheOp(SeriesRotation, "write")
	} else {
		s.metrics.RecordCacheOp(SeriesRotation, "write_failed")
	}
	return snap, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
