package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/industryrunners/pulse/internal/api/response"
	"github.com/industryrunners/pulse/internal/core"
)

// SummaryService is the summary service surface the handler uses.
type SummaryService interface {
	Latest(ctx context.Context) ([]core.MarketSummary, error)
	Generate(ctx context.Context, date string, force bool) (*core.MarketSummary, bool, error)
}

// SummaryHandler serves the AI market summary endpoints. Reads go
// through the normal API-key middleware; generation is gated by a
// dedicated key so the expensive LLM path can be shared with trusted
// automation only.
type SummaryHandler struct {
	svc           SummaryService
	generationKey string
}

// NewSummaryHandler creates a summary handler.
func NewSummaryHandler(svc SummaryService, generationKey string) *SummaryHandler {
	return &SummaryHandler{svc: svc, generationKey: generationKey}
}

// Handle serves /api/v1/summary: GET lists the latest summaries, POST
// generates one.
func (h *SummaryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.post(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *SummaryHandler) get(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.Latest(r.Context())
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

// post generates the summary for ?date (default today). ?force=true
// regenerates an existing one. The ?key parameter must match the
// configured generation key.
func (h *SummaryHandler) post(w http.ResponseWriter, r *http.Request) {
	if h.generationKey == "" {
		err := core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("summary generation key not configured"))
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	provided := r.URL.Query().Get("key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.generationKey)) != 1 {
		response.Error(w, http.StatusForbidden, core.ErrForbidden)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	sum, created, err := h.svc.Generate(r.Context(), r.URL.Query().Get("date"), force)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(w, status, sum)
}
