package handlers

import (
	"net/http"
	"time"

	"github.com/ctukiosk/backend/internal/db"
	apperrors "github.com/ctukiosk/backend/internal/errors"
)

// StatsHandler serves revenue reporting.
type StatsHandler struct {
	repo *db.Repository
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(repo *db.Repository) *StatsHandler {
	return &StatsHandler{repo: repo}
}

// Revenue handles GET /api/stats. Without start/end it aggregates the
// whole store; with both it aggregates the calendar-day window.
func (h *StatsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var start, end *time.Time
	if q.Get("start") != "" || q.Get("end") != "" {
		s, err := time.ParseInLocation("2006-01-02", q.Get("start"), time.Local)
		if err != nil {
			writeError(w, apperrors.New(apperrors.ErrInvalid, "start must be YYYY-MM-DD"))
			return
		}
		e, err := time.ParseInLocation("2006-01-02", q.Get("end"), time.Local)
		if err != nil {
			writeError(w, apperrors.New(apperrors.ErrInvalid, "end must be YYYY-MM-DD"))
			return
		}
		start, end = &s, &e
	}

	totals, breakdown, err := h.repo.RevenueStats(start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	if breakdown == nil {
		breakdown = []*db.FacilityStat{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totals":    totals,
		"breakdown": breakdown,
	})
}
