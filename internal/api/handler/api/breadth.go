// Package api holds the JSON API handlers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/industryrunners/pulse/internal/api/response"
	"github.com/industryrunners/pulse/internal/core"
)

// maxHistoryDays caps the history query window at the cache's
// retention horizon.
const maxHistoryDays = 30

// BreadthService is the breadth aggregator surface the handler uses.
type BreadthService interface {
	ComputeOrCached(ctx context.Context, force bool) (*core.BreadthSnapshot, error)
	History(ctx context.Context, days int) []core.HistoryEntry
}

// ScreenerService is the screener surface the handler uses.
type ScreenerService interface {
	Daily(ctx context.Context, force bool) (*core.ScreenerBreadth, error)
	Refresh(ctx context.Context) (*core.ScreenerBreadth, error)
	DeleteSnapshot(ctx context.Context, date string) error
	History(ctx context.Context, days int) []core.HistoryEntry
}

// BreadthHandler serves the market breadth endpoints.
type BreadthHandler struct {
	breadth  BreadthService
	screener ScreenerService
}

// NewBreadthHandler creates a breadth handler.
func NewBreadthHandler(breadth BreadthService, screener ScreenerService) *BreadthHandler {
	return &BreadthHandler{breadth: breadth, screener: screener}
}

// Realtime serves GET /api/v1/breadth. ?refresh=true bypasses the
// cache.
func (h *BreadthHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap, err := h.breadth.ComputeOrCached(r.Context(), refreshRequested(r))
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

// Daily serves GET /api/v1/breadth/daily, the screener-derived
// snapshot. ?refresh=true forces a rescrape; ?action=refresh
// additionally overwrites today's history entry, and ?action=delete
// with ?date drops one entry.
func (h *BreadthHandler) Daily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Query().Get("action") {
	case "refresh":
		snap, err := h.screener.Refresh(r.Context())
		if err != nil {
			response.Error(w, response.StatusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, snap)
		return
	case "delete":
		date := r.URL.Query().Get("date")
		if date == "" {
			err := core.WrapError(core.ErrInvalidInput, nil)
			response.Error(w, http.StatusBadRequest, err)
			return
		}
		if err := h.screener.DeleteSnapshot(r.Context(), date); err != nil {
			response.Error(w, response.StatusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]string{"deleted": date})
		return
	}

	snap, err := h.screener.Daily(r.Context(), refreshRequested(r))
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

// History serves GET /api/v1/breadth/history?days=N, returning both
// the aggregated and screener-derived daily series, newest first.
func (h *BreadthHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	days := historyDays(r)
	response.JSON(w, http.StatusOK, map[string]any{
		"days":     days,
		"realtime": h.breadth.History(r.Context(), days),
		"daily":    h.screener.History(r.Context(), days),
	})
}

func refreshRequested(r *http.Request) bool {
	return r.URL.Query().Get("refresh") == "true"
}

func historyDays(r *http.Request) int {
	days := maxHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}
	return days
}
