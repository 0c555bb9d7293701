// Package cache provides the caching layer for computed market data.
//
// Every implementation is failure-tolerant: a backend problem degrades
// to no-cache behavior (reads miss, writes report false) instead of
// surfacing errors to callers. Callers always keep a live-computation
// path.
package cache

import (
	"context"
	"time"

	"github.com/industryrunners/pulse/internal/core"
)

// TTLs for the two snapshot classes, matching the refresh cadence of
// the data they hold.
const (
	TTLRealtime = 5 * time.Minute
	TTLDaily    = time.Hour
)

// HistoryRetentionDays bounds the daily-snapshot date index. Entries
// older than this are pruned on every snapshot save.
const HistoryRetentionDays = 30

// entryTTL is the expiry on individual daily history entries, kept
// longer than the index retention so pruning controls visibility.
const entryTTL = 35 * 24 * time.Hour

// Store is the cache contract shared by all backends.
//
// Key layout for a series (e.g. "breadth:realtime" caches under its own
// name, "market-breadth" keeps history):
//
//	{series}                     current value
//	{series}:history:{date}      daily snapshot for a YYYY-MM-DD date
//	{series}:history:dates       date index, scored by date timestamp
type Store interface {
	// Get returns the cached value for key, or ok=false on a miss or
	// backend failure.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key with the given TTL. Returns false
	// when the write did not happen.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool

	// Delete removes key. Returns false on backend failure.
	Delete(ctx context.Context, key string) bool

	// SaveDailySnapshot stores value as the daily entry for date
	// (YYYY-MM-DD) under series, updates the date index, and prunes
	// entries beyond the retention window.
	SaveDailySnapshot(ctx context.Context, series string, value []byte, date string) bool

	// DeleteDailySnapshot removes one daily entry and its index
	// membership. Used by maintenance operations to drop bad data.
	DeleteDailySnapshot(ctx context.Context, series, date string) bool

	// GetHistory returns up to days stored daily entries for series,
	// newest first. Dates in the index whose values have expired are
	// skipped.
	GetHistory(ctx context.Context, series string, days int) []core.HistoryEntry

	// ShouldSaveDailySnapshot reports whether no snapshot exists yet
	// for series on today's date (exchange time).
	ShouldSaveDailySnapshot(ctx context.Context, series string) bool
}

// EvictFunc receives daily entries as they age out of the retention
// window, before they are deleted.
type EvictFunc func(series, date string, data []byte)

// HistoryKey returns the storage key for one daily entry.
func HistoryKey(series, date string) string {
	return series + ":history:" + date
}

// DatesKey returns the storage key for a series' date index.
func DatesKey(series string) string {
	return series + ":history:dates"
}

// dateScore converts a YYYY-MM-DD date into its index score. Returns
// 0 for malformed dates, which sorts them into the pruned range.
func dateScore(date string) float64 {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	return float64(t.Unix())
}

