package cache

import (
	"context"
	"time"

	"github.com/industryrunners/pulse/internal/core"
)

// Noop is the Store used when caching is disabled. Every read misses
// and every write reports failure, which callers already treat as
// "compute live, skip persistence".
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool)                    { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration) bool       { return false }
func (Noop) Delete(context.Context, string) bool                           { return false }
func (Noop) SaveDailySnapshot(context.Context, string, []byte, string) bool { return false }
func (Noop) DeleteDailySnapshot(context.Context, string, string) bool       { return false }
func (Noop) GetHistory(context.Context, string, int) []core.HistoryEntry   { return nil }
func (Noop) ShouldSaveDailySnapshot(context.Context, string) bool          { return false }
