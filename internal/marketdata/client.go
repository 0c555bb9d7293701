// Package marketdata wraps the upstream market data API: batched ticker
// snapshots, grouped daily bars for the whole market, and per-symbol
// range bars.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/industryrunners/pulse/internal/core"
	"github.com/industryrunners/pulse/internal/metrics"
)

const defaultBaseURL = "https://api.polygon.io"

// snapshotBatchLimit caps symbols per snapshot request.
const snapshotBatchLimit = 100

// Client talks to the upstream market data API. Construction never
// fails; a missing API key is reported by Ready so the server can come
// up degraded.
type Client struct {
	baseURL    string
	apiKey     string
	batchLimit int
	httpClient *http.Client
	log        *zap.Logger
	metrics    *metrics.Registry
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithBatchLimit overrides the snapshot batch size.
func WithBatchLimit(n int) Option {
	return func(c *Client) { c.batchLimit = n }
}

// New creates a market data client.
func New(apiKey string, log *zap.Logger, reg *metrics.Registry, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		batchLimit: snapshotBatchLimit,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
		metrics:    reg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports whether the client is usable. A missing API key yields
// CONFIG_MISSING; endpoints check this once up front.
func (c *Client) Ready() error {
	if c.apiKey == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("market data API key not set"))
	}
	return nil
}

// getJSON performs one authenticated GET and decodes the body into
// out, recording the call under the given endpoint label.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamCall(endpoint, "transport_error")
		return core.WrapError(core.ErrUpstreamFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamCall(endpoint, fmt.Sprintf("http_%d", resp.StatusCode))
		return core.WrapError(core.ErrUpstreamFailed,
			fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.RecordUpstreamCall(endpoint, "decode_error")
		return core.WrapError(core.ErrUpstreamFailed, fmt.Errorf("decoding response: %w", err))
	}
	c.metrics.RecordUpstreamCall(endpoint, "ok")
	return nil
}

// FetchSnapshots fetches current snapshots for the given symbols in
// batches, merging the results. A failed batch is logged and skipped;
// callers get whatever arrived.
func (c *Client) FetchSnapshots(ctx context.Context, symbols []string) (map[string]core.Quote, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	quotes := make(map[string]core.Quote, len(symbols))
	for start := 0; start < len(symbols); start += c.batchLimit {
		end := start + c.batchLimit
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		var out snapshotResponse
		q := url.Values{"tickers": {strings.Join(batch, ",")}}
		if err := c.getJSON(ctx, "snapshot", "/v2/snapshot/locale/us/markets/stocks/tickers", q, &out); err != nil {
			c.log.Warn("snapshot batch failed",
				zap.Int("batchStart", start), zap.Int("batchSize", len(batch)), zap.Error(err))
			continue
		}
		for _, t := range out.Tickers {
			quotes[t.Ticker] = toQuote(t)
		}
	}
	return quotes, nil
}

// toQuote converts an upstream snapshot ticker into a Quote. The day
// aggregate can be empty outside market hours; the minute bar and
// previous day fill the gaps.
func toQuote(t snapshotTicker) core.Quote {
	last := t.Day.Close
	if last == 0 {
		last = t.Min.Close
	}
	if last == 0 {
		last = t.PrevDay.Close
	}
	open := t.Day.Open
	if open == 0 {
		open = t.PrevDay.Close
	}
	changePerc := t.TodaysChangePerc
	if changePerc == 0 && t.PrevDay.Close > 0 && last > 0 {
		changePerc = (last - t.PrevDay.Close) / t.PrevDay.Close * 100
	}
	q := core.Quote{
		Symbol:        t.Ticker,
		Last:          last,
		Change:        t.TodaysChange,
		ChangePercent: changePerc,
		Open:          open,
		PreviousClose: t.PrevDay.Close,
		High:          t.Day.High,
		Low:           t.Day.Low,
		Volume:        t.Day.Volume,
		Updated:       t.Updated / int64(time.Millisecond),
	}
	if open > 0 && last > 0 {
		q.ChangeFromOpen = last - open
		q.ChangeFromOpenPercent = (last - open) / open * 100
	}
	return q
}

// FetchGroupedDaily fetches the whole market's daily bars for one date
// (YYYY-MM-DD). An empty result is not an error: the date may be a
// holiday.
func (c *Client) FetchGroupedDaily(ctx context.Context, date string) (map[string]core.Bar, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	var out aggsResponse
	q := url.Values{"adjusted": {"true"}}
	if err := c.getJSON(ctx, "grouped_daily", "/v2/aggs/grouped/locale/us/market/stocks/"+date, q, &out); err != nil {
		return nil, err
	}
	bars := make(map[string]core.Bar, len(out.Results))
	for _, r := range out.Results {
		bars[r.Ticker] = core.Bar{
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close,
			Volume: r.Volume, Time: r.Time,
		}
	}
	return bars, nil
}

// GroupedDailyCloses is FetchGroupedDaily reduced to closing prices.
func (c *Client) GroupedDailyCloses(ctx context.Context, date string) (map[string]float64, error) {
	bars, err := c.FetchGroupedDaily(ctx, date)
	if err != nil {
		return nil, err
	}
	closes := make(map[string]float64, len(bars))
	for sym, b := range bars {
		closes[sym] = b.Close
	}
	return closes, nil
}

// HistoricalCloses returns market-wide closing prices from roughly
// tradingDaysAgo trading days back. The target calendar date is
// approximated as tradingDays*1.45 calendar days; if that lands on a
// holiday the previous dates are tried, up to five, before giving up.
// Returns the closes and the date actually used.
func (c *Client) HistoricalCloses(ctx context.Context, tradingDaysAgo int) (map[string]float64, string, error) {
	if err := c.Ready(); err != nil {
		return nil, "", err
	}
	calendarDays := int(float64(tradingDaysAgo) * 1.45)
	target := c.now().AddDate(0, 0, -calendarDays)

	for attempt := 0; attempt < 5; attempt++ {
		date := target.AddDate(0, 0, -attempt).Format("2006-01-02")
		closes, err := c.GroupedDailyCloses(ctx, date)
		if err != nil {
			return nil, "", err
		}
		if len(closes) > 0 {
			return closes, date, nil
		}
		c.log.Debug("no grouped data for date, walking back", zap.String("date", date))
	}
	return nil, "", core.WrapError(core.ErrNoData,
		fmt.Errorf("no grouped daily data near %d trading days back", tradingDaysAgo))
}

// FetchRangeBars fetches up to limit daily bars for one symbol between
// two dates (YYYY-MM-DD, inclusive), returned oldest first. The upstream
// applies limit to the head of the sort order, so the request asks for
// descending bars to get the most recent ones, then reverses.
func (c *Client) FetchRangeBars(ctx context.Context, symbol, from, to string, limit int) ([]core.Bar, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	var out aggsResponse
	q := url.Values{
		"adjusted": {"true"},
		"sort":     {"desc"},
		"limit":    {fmt.Sprintf("%d", limit)},
	}
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s", symbol, from, to)
	if err := c.getJSON(ctx, "range_bars", path, q, &out); err != nil {
		return nil, err
	}
	bars := make([]core.Bar, len(out.Results))
	for i, r := range out.Results {
		bars[len(out.Results)-1-i] = core.Bar{
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close,
			Volume: r.Volume, Time: r.Time,
		}
	}
	return bars, nil
}
