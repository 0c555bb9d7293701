package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
)

type fakeBreadth struct {
	snap      *core.BreadthSnapshot
	err       error
	lastForce bool
	history   []core.HistoryEntry
	histDays  int
}

func (f *fakeBreadth) ComputeOrCached(_ context.Context, force bool) (*core.BreadthSnapshot, error) {
	f.lastForce = force
	return f.snap, f.err
}

func (f *fakeBreadth) History(_ context.Context, days int) []core.HistoryEntry {
	f.histDays = days
	return f.history
}

type fakeScreener struct {
	snap        *core.ScreenerBreadth
	err         error
	refreshed   bool
	deletedDate string
	deleteErr   error
}

func (f *fakeScreener) Daily(_ context.Context, _ bool) (*core.ScreenerBreadth, error) {
	return f.snap, f.err
}

func (f *fakeScreener) Refresh(_ context.Context) (*core.ScreenerBreadth, error) {
	f.refreshed = true
	return f.snap, f.err
}

func (f *fakeScreener) DeleteSnapshot(_ context.Context, date string) error {
	f.deletedDate = date
	return f.deleteErr
}

func (f *fakeScreener) History(_ context.Context, days int) []core.HistoryEntry {
	return nil
}

func TestBreadthRealtime(t *testing.T) {
	b := &fakeBreadth{snap: &core.BreadthSnapshot{Date: "2025-06-20"}}
	h := NewBreadthHandler(b, &fakeScreener{})

	req := httptest.NewRequest("GET", "/api/v1/breadth?refresh=true", nil)
	w := httptest.NewRecorder()
	h.Realtime(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !b.lastForce {
		t.Error("refresh=true should force recomputation")
	}
}

func TestBreadthRealtimeUpstreamError(t *testing.T) {
	b := &fakeBreadth{err: core.WrapError(core.ErrUpstreamFailed, nil)}
	h := NewBreadthHandler(b, &fakeScreener{})

	req := httptest.NewRequest("GET", "/api/v1/breadth", nil)
	w := httptest.NewRecorder()
	h.Realtime(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestBreadthRealtimeMethodNotAllowed(t *testing.T) {
	h := NewBreadthHandler(&fakeBreadth{}, &fakeScreener{})

	req := httptest.NewRequest("POST", "/api/v1/breadth", nil)
	w := httptest.NewRecorder()
	h.Realtime(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestBreadthDailyActions(t *testing.T) {
	sc := &fakeScreener{snap: &core.ScreenerBreadth{Date: "2025-06-20"}}
	h := NewBreadthHandler(&fakeBreadth{}, sc)

	req := httptest.NewRequest("GET", "/api/v1/breadth/daily?action=refresh", nil)
	w := httptest.NewRecorder()
	h.Daily(w, req)
	if w.Code != http.StatusOK || !sc.refreshed {
		t.Errorf("expected refresh to run, code=%d refreshed=%v", w.Code, sc.refreshed)
	}

	req = httptest.NewRequest("GET", "/api/v1/breadth/daily?action=delete&date=2025-06-18", nil)
	w = httptest.NewRecorder()
	h.Daily(w, req)
	if w.Code != http.StatusOK || sc.deletedDate != "2025-06-18" {
		t.Errorf("expected delete to run, code=%d date=%q", w.Code, sc.deletedDate)
	}

	req = httptest.NewRequest("GET", "/api/v1/breadth/daily?action=delete", nil)
	w = httptest.NewRecorder()
	h.Daily(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for delete without date, got %d", w.Code)
	}
}

func TestBreadthHistoryDaysCapped(t *testing.T) {
	b := &fakeBreadth{}
	h := NewBreadthHandler(b, &fakeScreener{})

	req := httptest.NewRequest("GET", "/api/v1/breadth/history?days=90", nil)
	w := httptest.NewRecorder()
	h.History(w, req)

	if b.histDays != maxHistoryDays {
		t.Errorf("expected days capped at %d, got %d", maxHistoryDays, b.histDays)
	}

	req = httptest.NewRequest("GET", "/api/v1/breadth/history?days=7", nil)
	w = httptest.NewRecorder()
	h.History(w, req)

	if b.histDays != 7 {
		t.Errorf("expected 7 days, got %d", b.histDays)
	}
}

type fakeSectors struct {
	rotation  *core.RotationSnapshot
	history   core.NHNLHistory
	recompute *core.NHNLDay
	err       error
	cleaned   []string
}

func (f *fakeSectors) Rotation(_ context.Context, _ bool) (*core.RotationSnapshot, error) {
	return f.rotation, f.err
}

func (f *fakeSectors) History(_ context.Context) core.NHNLHistory { return f.history }

func (f *fakeSectors) Recompute(_ context.Context, date string) (*core.NHNLDay, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recompute, nil
}

func (f *fakeSectors) Cleanup(_ context.Context) ([]string, error) { return f.cleaned, f.err }

func TestSectorsRotation(t *testing.T) {
	h := NewSectorsHandler(&fakeSectors{rotation: &core.RotationSnapshot{Timestamp: 1}})

	req := httptest.NewRequest("GET", "/api/v1/sectors", nil)
	w := httptest.NewRecorder()
	h.Rotation(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestSectorsHighsLowsRecomputeRejected(t *testing.T) {
	h := NewSectorsHandler(&fakeSectors{err: core.WrapError(core.ErrInvalidInput, nil)})

	req := httptest.NewRequest("GET", "/api/v1/sectors/highs-lows?date=2025-06-21", nil)
	w := httptest.NewRecorder()
	h.HighsLows(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-trading day, got %d", w.Code)
	}
}

func TestSectorsHighsLowsCleanup(t *testing.T) {
	f := &fakeSectors{cleaned: []string{"2025-06-21"}}
	h := NewSectorsHandler(f)

	req := httptest.NewRequest("GET", "/api/v1/sectors/highs-lows?action=cleanup", nil)
	w := httptest.NewRecorder()
	h.HighsLows(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

type fakeQuoteMarket struct {
	ready error
	snaps map[string]core.Quote
	bars  map[string][]core.Bar
}

func (f *fakeQuoteMarket) Ready() error { return f.ready }

func (f *fakeQuoteMarket) FetchSnapshots(_ context.Context, _ []string) (map[string]core.Quote, error) {
	return f.snaps, nil
}

func (f *fakeQuoteMarket) FetchRangeBars(_ context.Context, symbol, _, _ string, _ int) ([]core.Bar, error) {
	return f.bars[symbol], nil
}

func TestQuotesRequiresSymbols(t *testing.T) {
	h := NewQuotesHandler(&fakeQuoteMarket{})

	req := httptest.NewRequest("GET", "/api/v1/quotes", nil)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestQuotesFiveDayChangeForIndexETF(t *testing.T) {
	bars := make([]core.Bar, 10)
	for i := range bars {
		bars[i] = core.Bar{Close: 100}
	}
	market := &fakeQuoteMarket{
		snaps: map[string]core.Quote{
			"SPY":  {Symbol: "SPY", Last: 105},
			"AAPL": {Symbol: "AAPL", Last: 200},
		},
		bars: map[string][]core.Bar{"SPY": bars},
	}
	h := NewQuotesHandler(market)
	h.now = func() time.Time {
		return time.Date(2025, 6, 20, 12, 0, 0, 0, calendar.ExchangeTZ)
	}

	req := httptest.NewRequest("GET", "/api/v1/quotes?symbols=spy,AAPL", nil)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data struct {
			Quotes []core.Quote `json:"quotes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data.Quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(resp.Data.Quotes))
	}
	spy := resp.Data.Quotes[0]
	if spy.Change5Day == nil || *spy.Change5Day != 5.0 {
		t.Errorf("expected SPY change5Day 5.0, got %v", spy.Change5Day)
	}
	if resp.Data.Quotes[1].Change5Day != nil {
		t.Error("expected no change5Day for non-index symbol")
	}
}

func TestQuotesNotReady(t *testing.T) {
	h := NewQuotesHandler(&fakeQuoteMarket{ready: core.ErrConfigMissing})

	req := httptest.NewRequest("GET", "/api/v1/quotes?symbols=SPY", nil)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

type fakeSummary struct {
	latest   []core.MarketSummary
	sum      *core.MarketSummary
	created  bool
	err      error
	lastDate string
	force    bool
}

func (f *fakeSummary) Latest(_ context.Context) ([]core.MarketSummary, error) {
	return f.latest, f.err
}

func (f *fakeSummary) Generate(_ context.Context, date string, force bool) (*core.MarketSummary, bool, error) {
	f.lastDate = date
	f.force = force
	return f.sum, f.created, f.err
}

func TestSummaryGet(t *testing.T) {
	h := NewSummaryHandler(&fakeSummary{
		latest: []core.MarketSummary{{SummaryDate: "2025-06-20"}},
	}, "gen-key")

	req := httptest.NewRequest("GET", "/api/v1/summary", nil)
	w := httptest.NewRecorder()
	h.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestSummaryPostWrongKey(t *testing.T) {
	h := NewSummaryHandler(&fakeSummary{}, "gen-key")

	req := httptest.NewRequest("POST", "/api/v1/summary?key=wrong", nil)
	w := httptest.NewRecorder()
	h.Handle(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestSummaryPostNoKeyConfigured(t *testing.T) {
	h := NewSummaryHandler(&fakeSummary{}, "")

	req := httptest.NewRequest("POST", "/api/v1/summary?key=anything", nil)
	w := httptest.NewRecorder()
	h.Handle(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestSummaryPostCreated(t *testing.T) {
	f := &fakeSummary{sum: &core.MarketSummary{SummaryDate: "2025-06-13"}, created: true}
	h := NewSummaryHandler(f, "gen-key")

	req := httptest.NewRequest("POST", "/api/v1/summary?key=gen-key&date=2025-06-13&force=true", nil)
	w := httptest.NewRecorder()
	h.Handle(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if f.lastDate != "2025-06-13" || !f.force {
		t.Errorf("expected date and force forwarded, got %q force=%v", f.lastDate, f.force)
	}
}

func TestSummaryPostExistingReturnsOK(t *testing.T) {
	f := &fakeSummary{sum: &core.MarketSummary{SummaryDate: "2025-06-20"}, created: false}
	h := NewSummaryHandler(f, "gen-key")

	req := httptest.NewRequest("POST", "/api/v1/summary?key=gen-key", nil)
	w := httptest.NewRecorder()
	h.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for existing summary, got %d", w.Code)
	}
}

func TestSummaryPostInvalidDate(t *testing.T) {
	f := &fakeSummary{err: core.WrapError(core.ErrInvalidInput, nil)}
	h := NewSummaryHandler(f, "gen-key")

	req := httptest.NewRequest("POST", "/api/v1/summary?key=gen-key&date=junk", nil)
	w := httptest.NewRecorder()
	h.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCalendarOpenDay(t *testing.T) {
	h := NewCalendarHandler()

	req := httptest.NewRequest("GET", "/api/v1/calendar?date=2025-06-20", nil)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data calendarStatus `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Data.Open || resp.Data.Reason != "" {
		t.Errorf("expected open day, got %+v", resp.Data)
	}
}

func TestCalendarHoliday(t *testing.T) {
	h := NewCalendarHandler()

	req := httptest.NewRequest("GET", "/api/v1/calendar?date=2025-06-19", nil)
	w := httptest.NewRecorder()
	h.Get(w, req)

	var resp struct {
		Data calendarStatus `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Open || resp.Data.Reason != "Juneteenth" {
		t.Errorf("expected Juneteenth closure, got %+v", resp.Data)
	}
	if resp.Data.LastTradingDay != "2025-06-18" {
		t.Errorf("expected last trading day 2025-06-18, got %s", resp.Data.LastTradingDay)
	}
}

func TestCalendarMalformedDate(t *testing.T) {
	h := NewCalendarHandler()

	req := httptest.NewRequest("GET", "/api/v1/calendar?date=junk", nil)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
