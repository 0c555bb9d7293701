package api

import (
	"context"
	"net/http"

	"github.com/industryrunners/pulse/internal/api/response"
	"github.com/industryrunners/pulse/internal/core"
)

// SectorService is the sector service surface the handler uses.
type SectorService interface {
	Rotation(ctx context.Context, force bool) (*core.RotationSnapshot, error)
	History(ctx context.Context) core.NHNLHistory
	Recompute(ctx context.Context, date string) (*core.NHNLDay, error)
	Cleanup(ctx context.Context) ([]string, error)
}

// SectorsHandler serves the sector rotation and NH/NL endpoints.
type SectorsHandler struct {
	svc SectorService
}

// NewSectorsHandler creates a sectors handler.
func NewSectorsHandler(svc SectorService) *SectorsHandler {
	return &SectorsHandler{svc: svc}
}

// Rotation serves GET /api/v1/sectors. ?refresh=true bypasses the
// cache.
func (h *SectorsHandler) Rotation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap, err := h.svc.Rotation(r.Context(), refreshRequested(r))
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

// HighsLows serves GET /api/v1/sectors/highs-lows. The bare endpoint
// returns the stored history. ?date=YYYY-MM-DD recomputes that trading
// day; ?action=cleanup removes weekend and holiday entries.
func (h *SectorsHandler) HighsLows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Query().Get("action") == "cleanup" {
		removed, err := h.svc.Cleanup(r.Context())
		if err != nil {
			response.Error(w, response.StatusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]any{"removed": removed})
		return
	}

	if date := r.URL.Query().Get("date"); date != "" {
		day, err := h.svc.Recompute(r.Context(), date)
		if err != nil {
			response.Error(w, response.StatusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, day)
		return
	}

	response.JSON(w, http.StatusOK, h.svc.History(r.Context()))
}
