package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is an in-process Store with the same semantics as the Redis
// backend. Used in development and tests, and as the fallback when no
// cache backend is configured but caching is still wanted.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	index   map[string]map[string]float64 // series -> date -> score
	onEvict EvictFunc
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		index:   make(map[string]map[string]float64),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMemoryEvict registers a hook for entries pruned out of the
// retention window.
func WithMemoryEvict(fn EvictFunc) MemoryOption {
	return func(m *Memory) { m.onEvict = fn }
}

// get returns a live entry. Caller holds the lock.
func (m *Memory) get(key string) ([]byte, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.data, true
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(key)
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return true
}

func (m *Memory) Delete(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return true
}

func (m *Memory) SaveDailySnapshot(_ context.Context, series string, value []byte, date string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[HistoryKey(series, date)] = memoryEntry{
		data:      append([]byte(nil), value...),
		expiresAt: m.now().Add(entryTTL),
	}
	idx := m.index[series]
	if idx == nil {
		idx = make(map[string]float64)
		m.index[series] = idx
	}
	idx[date] = dateScore(date)

	m.prune(series)
	return true
}

func (m *Memory) DeleteDailySnapshot(_ context.Context, series, date string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, HistoryKey(series, date))
	delete(m.index[series], date)
	return true
}

// prune drops index entries older than the retention window, handing
// each to the evict hook first. Caller holds the lock.
func (m *Memory) prune(series string) {
	cutoff := float64(m.now().AddDate(0, 0, -HistoryRetentionDays).Unix())
	for date, score := range m.index[series] {
		if score >= cutoff {
			continue
		}
		if m.onEvict != nil {
			if data, ok := m.get(HistoryKey(series, date)); ok {
				m.onEvict(series, date, data)
			}
		}
		delete(m.entries, HistoryKey(series, date))
		delete(m.index[series], date)
	}
}

func (m *Memory) GetHistory(_ context.Context, series string, days int) []core.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	dates := make([]string, 0, len(m.index[series]))
	for date := range m.index[series] {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	entries := make([]core.HistoryEntry, 0, days)
	for _, date := range dates {
		if len(entries) == days {
			break
		}
		data, ok := m.get(HistoryKey(series, date))
		if !ok {
			continue
		}
		entries = append(entries, core.HistoryEntry{Date: date, Data: data})
	}
	return entries
}

func (m *Memory) ShouldSaveDailySnapshot(_ context.Context, series string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	today := m.now().In(calendar.ExchangeTZ).Format("2006-01-02")
	_, exists := m.get(HistoryKey(series, today))
	return !exists
}
