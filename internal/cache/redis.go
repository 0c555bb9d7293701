package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
)

// Redis is the production Store backed by a Redis server. All
// operations swallow backend errors after logging them, so an
// unreachable server behaves like an empty cache.
type Redis struct {
	client  *redis.Client
	log     *zap.Logger
	onEvict EvictFunc
	now     func() time.Time
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithRedisEvict registers a hook for entries pruned out of the
// retention window.
func WithRedisEvict(fn EvictFunc) RedisOption {
	return func(r *Redis) { r.onEvict = fn }
}

// NewRedis connects to a Redis server. A failed initial ping is logged
// but not fatal: the store is returned and every operation degrades to
// a miss until the server comes back.
func NewRedis(addr, password string, db int, log *zap.Logger, opts ...RedisOption) *Redis {
	r := &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		}),
		log: log,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, caching disabled until it recovers",
			zap.String("addr", addr), zap.Error(err))
	} else {
		log.Info("redis connected", zap.String("addr", addr), zap.Int("db", db))
	}
	return r
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (r *Redis) Delete(ctx context.Context, key string) bool {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (r *Redis) SaveDailySnapshot(ctx context.Context, series string, value []byte, date string) bool {
	if err := r.client.Set(ctx, HistoryKey(series, date), value, entryTTL).Err(); err != nil {
		r.log.Warn("snapshot write failed",
			zap.String("series", series), zap.String("date", date), zap.Error(err))
		return false
	}
	if err := r.client.ZAdd(ctx, DatesKey(series), redis.Z{
		Score:  dateScore(date),
		Member: date,
	}).Err(); err != nil {
		r.log.Warn("snapshot index update failed",
			zap.String("series", series), zap.String("date", date), zap.Error(err))
		return false
	}
	r.prune(ctx, series)
	return true
}

func (r *Redis) DeleteDailySnapshot(ctx context.Context, series, date string) bool {
	if err := r.client.Del(ctx, HistoryKey(series, date)).Err(); err != nil {
		r.log.Warn("snapshot delete failed",
			zap.String("series", series), zap.String("date", date), zap.Error(err))
		return false
	}
	if err := r.client.ZRem(ctx, DatesKey(series), date).Err(); err != nil {
		r.log.Warn("snapshot index removal failed",
			zap.String("series", series), zap.String("date", date), zap.Error(err))
		return false
	}
	return true
}

// prune removes index entries older than the retention window. Stale
// entries are offered to the evict hook before deletion.
func (r *Redis) prune(ctx context.Context, series string) {
	cutoff := fmt.Sprintf("%d", r.now().AddDate(0, 0, -HistoryRetentionDays).Unix())
	stale, err := r.client.ZRangeByScore(ctx, DatesKey(series), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + cutoff,
	}).Result()
	if err != nil {
		r.log.Warn("history prune scan failed", zap.String("series", series), zap.Error(err))
		return
	}
	for _, date := range stale {
		if r.onEvict != nil {
			if data, ok := r.Get(ctx, HistoryKey(series, date)); ok {
				r.onEvict(series, date, data)
			}
		}
		r.client.Del(ctx, HistoryKey(series, date))
	}
	if len(stale) > 0 {
		if err := r.client.ZRemRangeByScore(ctx, DatesKey(series), "-inf", "("+cutoff).Err(); err != nil {
			r.log.Warn("history prune failed", zap.String("series", series), zap.Error(err))
			return
		}
		r.log.Info("pruned daily history",
			zap.String("series", series), zap.Int("entries", len(stale)))
	}
}

func (r *Redis) GetHistory(ctx context.Context, series string, days int) []core.HistoryEntry {
	dates, err := r.client.ZRevRange(ctx, DatesKey(series), 0, int64(days)-1).Result()
	if err != nil {
		r.log.Warn("history index read failed", zap.String("series", series), zap.Error(err))
		return nil
	}
	entries := make([]core.HistoryEntry, 0, len(dates))
	for _, date := range dates {
		data, ok := r.Get(ctx, HistoryKey(series, date))
		if !ok {
			continue
		}
		entries = append(entries, core.HistoryEntry{Date: date, Data: data})
	}
	return entries
}

func (r *Redis) ShouldSaveDailySnapshot(ctx context.Context, series string) bool {
	today := r.now().In(calendar.ExchangeTZ).Format("2006-01-02")
	n, err := r.client.Exists(ctx, HistoryKey(series, today)).Result()
	if err != nil {
		r.log.Warn("snapshot existence check failed",
			zap.String("series", series), zap.Error(err))
		return false
	}
	return n == 0
}
