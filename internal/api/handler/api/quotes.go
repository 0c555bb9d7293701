package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/industryrunners/pulse/internal/api/response"
	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
	"github.com/industryrunners/pulse/internal/universe"
)

// fiveDayLookback is the calendar window fetched to find the close
// five sessions back.
const fiveDayLookback = 15

// MarketData is the market data client surface the quotes handler uses.
type MarketData interface {
	Ready() error
	FetchSnapshots(ctx context.Context, symbols []string) (map[string]core.Quote, error)
	FetchRangeBars(ctx context.Context, symbol, from, to string, limit int) ([]core.Bar, error)
}

// QuotesHandler serves on-demand quotes for arbitrary symbols.
type QuotesHandler struct {
	market MarketData
	now    func() time.Time
}

// NewQuotesHandler creates a quotes handler.
func NewQuotesHandler(market MarketData) *QuotesHandler {
	return &QuotesHandler{market: market, now: time.Now}
}

// Get serves GET /api/v1/quotes?symbols=SPY,QQQ. Index ETFs also carry
// a five-session change so dashboards can show the short trend.
func (h *QuotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	symbols := splitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		err := core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("symbols query parameter is required"))
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	if err := h.market.Ready(); err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	quotes, err := h.market.FetchSnapshots(r.Context(), symbols)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	out := make([]core.Quote, 0, len(symbols))
	for _, sym := range symbols {
		q, ok := quotes[sym]
		if !ok {
			continue
		}
		if isIndexETF(sym) {
			if change := h.fiveDayChange(r.Context(), q); change != nil {
				q.Change5Day = change
			}
		}
		out = append(out, q)
	}
	response.JSON(w, http.StatusOK, map[string]any{"quotes": out})
}

// fiveDayChange compares the latest price against the close five
// sessions back. Nil when not enough history came back.
func (h *QuotesHandler) fiveDayChange(ctx context.Context, q core.Quote) *float64 {
	now := h.now().In(calendar.ExchangeTZ)
	from := now.AddDate(0, 0, -fiveDayLookback).Format("2006-01-02")
	to := now.AddDate(0, 0, -1).Format("2006-01-02")

	bars, err := h.market.FetchRangeBars(ctx, q.Symbol, from, to, fiveDayLookback)
	if err != nil || len(bars) < 5 {
		return nil
	}
	ref := bars[len(bars)-5].Close
	if ref <= 0 || q.Last <= 0 {
		return nil
	}
	change := math.Round((q.Last-ref)/ref*100*100) / 100
	return &change
}

func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isIndexETF(symbol string) bool {
	for _, etf := range universe.IndexETFs {
		if symbol == etf {
			return true
		}
	}
	return false
}
