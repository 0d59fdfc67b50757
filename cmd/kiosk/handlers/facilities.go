package handlers

import (
	"net/http"
	"strconv"

	"github.com/ctukiosk/backend/internal/db"
	apperrors "github.com/ctukiosk/backend/internal/errors"
)

// FacilityHandler serves the facility catalog and price quotes.
type FacilityHandler struct {
	repo *db.Repository
}

// NewFacilityHandler creates a FacilityHandler.
func NewFacilityHandler(repo *db.Repository) *FacilityHandler {
	return &FacilityHandler{repo: repo}
}

// List handles GET /api/facilities. Inactive facilities are included
// only with ?all=true.
func (h *FacilityHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	facilities, err := h.repo.ListFacilities(activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"facilities": facilities,
		"count":      len(facilities),
	})
}

// Quote handles GET /api/facilities/quote?facility=...&age=... and
// returns the price the visitor will pay, with the discount applied
// when eligible.
func (h *FacilityHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("facility")
	if name == "" {
		writeError(w, apperrors.New(apperrors.ErrInvalid, "facility is required"))
		return
	}

	var age *int
	if raw := q.Get("age"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, apperrors.New(apperrors.ErrInvalid, "age must be a non-negative integer"))
			return
		}
		age = &parsed
	}

	facility, err := h.repo.GetFacilityByName(name)
	if err != nil {
		writeError(w, err)
		return
	}
	price, discounted := facility.PriceFor(age)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"facility":     facility.Name,
		"base_price":   facility.BasePrice,
		"price":        price,
		"has_discount": discounted,
	})
}
