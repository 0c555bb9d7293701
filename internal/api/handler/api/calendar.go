package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/industryrunners/pulse/internal/api/response"
	"github.com/industryrunners/pulse/internal/calendar"
	"github.com/industryrunners/pulse/internal/core"
)

// CalendarHandler answers trading-calendar questions.
type CalendarHandler struct {
	now func() time.Time
}

// NewCalendarHandler creates a calendar handler.
func NewCalendarHandler() *CalendarHandler {
	return &CalendarHandler{now: time.Now}
}

type calendarStatus struct {
	Date           string `json:"date"`
	Open           bool   `json:"open"`
	Reason         string `json:"reason,omitempty"`
	LastTradingDay string `json:"lastTradingDay"`
}

// Get serves GET /api/v1/calendar?date=YYYY-MM-DD (default today in
// exchange time).
func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	date := r.URL.Query().Get("date")
	var day time.Time
	if date == "" {
		day = h.now().In(calendar.ExchangeTZ)
		date = day.Format("2006-01-02")
	} else {
		var err error
		day, err = time.Parse("2006-01-02", date)
		if err != nil {
			wrapped := core.WrapError(core.ErrInvalidInput,
				fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date))
			response.Error(w, http.StatusBadRequest, wrapped)
			return
		}
	}

	status := calendarStatus{
		Date:           date,
		Open:           calendar.IsMarketOpen(date),
		LastTradingDay: calendar.LastTradingDay(day),
	}
	if !status.Open {
		status.Reason = calendar.ClosureReason(date)
	}
	response.JSON(w, http.StatusOK, status)
}
