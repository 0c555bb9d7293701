package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/cache"
)

// putTimeout bounds a single archive write triggered from a cache
// prune, which runs on a request path.
const putTimeout = 10 * time.Second

// Archiver copies pruned daily snapshots into a Backend. Archival is
// best-effort: failures are logged and the prune proceeds.
type Archiver struct {
	backend Backend
	log     *zap.Logger
}

// New creates an Archiver over the given backend.
func New(backend Backend, log *zap.Logger) *Archiver {
	return &Archiver{backend: backend, log: log}
}

// EvictHook adapts the archiver to the cache's eviction callback.
func (a *Archiver) EvictHook() cache.EvictFunc {
	return func(series, date string, data []byte) {
		ctx, cancel := context.WithTimeout(context.Background(), putTimeout)
		defer cancel()
		if err := a.Archive(ctx, series, date, data); err != nil {
			a.log.Warn("archiving evicted snapshot",
				zap.String("series", series),
				zap.String("date", date),
				zap.Error(err))
		}
	}
}

// Archive stores one daily snapshot under {series}/{date}.json.
func (a *Archiver) Archive(ctx context.Context, series, date string, data []byte) error {
	if err := a.backend.Put(ctx, objectName(series, date), data); err != nil {
		return fmt.Errorf("archiving %s/%s: %w", series, date, err)
	}
	a.log.Debug("archived snapshot",
		zap.String("series", series),
		zap.String("date", date),
		zap.Int("bytes", len(data)))
	return nil
}

// Restore returns the archived snapshot for series and date.
func (a *Archiver) Restore(ctx context.Context, series, date string) ([]byte, error) {
	return a.backend.Get(ctx, objectName(series, date))
}

// Dates lists archived dates for a series, newest first.
func (a *Archiver) Dates(ctx context.Context, series string) ([]string, error) {
	keys, err := a.backend.List(ctx, series+"/")
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, series+"/")
		date := strings.TrimSuffix(name, ".json")
		if _, err := time.Parse("2006-01-02", date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func objectName(series, date string) string {
	return series + "/" + date + ".json"
}
