// Package warmer refreshes cached market data on a cron schedule so
// request paths mostly hit warm caches.
package warmer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
	"github.com/industryrunners/pulse/internal/metrics"
)

// runTimeout bounds one warming pass per target.
const runTimeout = 2 * time.Minute

// Breadth is the slice of the breadth aggregator the warmer drives.
type Breadth interface {
	ComputeOrCached(ctx context.Context, force bool) (*core.BreadthSnapshot, error)
}

// Sectors is the slice of the sector service the warmer drives.
type Sectors interface {
	Rotation(ctx context.Context, force bool) (*core.RotationSnapshot, error)
}

// Screener is the slice of the screener the warmer drives.
type Screener interface {
	Daily(ctx context.Context, force bool) (*core.ScreenerBreadth, error)
}

// Warmer schedules periodic cache refreshes. Intraday targets run
// often during market hours; the screener is a daily scrape and runs
// on its own slower schedule.
type Warmer struct {
	cron     *cron.Cron
	breadth  Breadth
	sectors  Sectors
	screener Screener
	log      *zap.Logger
	metrics  *metrics.Registry
	now      func() time.Time
}

// New builds a Warmer. Any nil target is skipped.
func New(breadth Breadth, sectors Sectors, screener Screener, log *zap.Logger, reg *metrics.Registry) *Warmer {
	return &Warmer{
		cron:     cron.New(),
		breadth:  breadth,
		sectors:  sectors,
		screener: screener,
		log:      log,
		metrics:  reg,
		now:      time.Now,
	}
}

// Register wires the schedules. intradaySpec drives breadth and
// rotation, dailySpec drives the screener scrape. Standard 5-field
// cron specs.
func (w *Warmer) Register(intradaySpec, dailySpec string) error {
	if _, err := w.cron.AddFunc(intradaySpec, w.intraday); err != nil {
		return fmt.Errorf("registering intraday warm: %w", err)
	}
	if _, err := w.cron.AddFunc(dailySpec, w.daily); err != nil {
		return fmt.Errorf("registering daily warm: %w", err)
	}
	return nil
}

// Start begins running the registered schedules.
func (w *Warmer) Start() {
	w.cron.Start()
	w.log.Info("cache warmer started")
}

// Stop halts scheduling and waits for in-flight runs.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
	w.log.Info("cache warmer stopped")
}

// intraday refreshes breadth and rotation. Outside trading days the
// pass is skipped; there is nothing fresh to warm.
func (w *Warmer) intraday() {
	today := w.now().In(calendar.ExchangeTZ).Format("2006-01-02")
	if !calendar.IsMarketOpen(today) {
		w.metrics.RecordWarmerRun("intraday", "skipped_closed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if w.breadth != nil {
		w.runTarget(ctx, "breadth", func(ctx context.Context) error {
			_, err := w.breadth.ComputeOrCached(ctx, true)
			return err
		})
	}
	if w.sectors != nil {
		w.runTarget(ctx, "rotation", func(ctx context.Context) error {
			_, err := w.sectors.Rotation(ctx, true)
			return err
		})
	}
}

// daily runs the screener scrape. force stays false so an existing
// snapshot for the day is reused.
func (w *Warmer) daily() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if w.screener != nil {
		w.runTarget(ctx, "screener", func(ctx context.Context) error {
			_, err := w.screener.Daily(ctx, false)
			return err
		})
	}
}

func (w *Warmer) runTarget(ctx context.Context, target string, fn func(context.Context) error) {
	start := w.now()
	if err := fn(ctx); err != nil {
		w.metrics.RecordWarmerRun(target, "error")
		w.log.Warn("warming failed", zap.String("target", target), zap.Error(err))
		return
	}
	w.metrics.RecordWarmerRun(target, "ok")
	w.log.Debug("warmed", zap.String("target", target),
		zap.Duration("took", time.Since(start)))
}
