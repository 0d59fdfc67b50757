package db

import (
	"time"

	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/models"
)

// TotalStats aggregates revenue over a set of tickets.
type TotalStats struct {
	TotalTickets       int     `json:"total_tickets"`
	TotalRevenue       float64 `json:"total_revenue"`
	AverageTicketPrice float64 `json:"average_ticket_price"`
}

// FacilityStat is one row of the per-facility revenue breakdown.
type FacilityStat struct {
	Facility     string  `json:"facility"`
	Count        int     `json:"facility_count"`
	TotalRevenue float64 `json:"total_revenue"`
}

// RevenueStats aggregates ticket count, revenue and the per-facility
// breakdown over an optional date window (calendar-day inclusive).
// The breakdown is sorted by descending ticket count.
func (r *Repository) RevenueStats(start, end *time.Time) (*TotalStats, []*FacilityStat, error) {
	if err := r.ready(); err != nil {
		return nil, nil, err
	}

	where := ""
	var args []interface{}
	if start != nil && end != nil {
		where = ` WHERE date_created BETWEEN ? AND ?`
		args = append(args, startOfDay(*start).Unix(), models.EndOfDay(*end).Unix())
	}

	totals := &TotalStats{}
	err := r.db.QueryRow(`
	SELECT COUNT(*), COALESCE(SUM(payment_amount), 0), COALESCE(AVG(payment_amount), 0)
	FROM tickets`+where, args...,
	).Scan(&totals.TotalTickets, &totals.TotalRevenue, &totals.AverageTicketPrice)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to aggregate totals", err)
	}

	rows, err := r.db.Query(`
	SELECT facility, COUNT(*), COALESCE(SUM(payment_amount), 0)
	FROM tickets`+where+`
	GROUP BY facility
	ORDER BY COUNT(*) DESC, facility`, args...)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to aggregate facility stats", err)
	}
	defer rows.Close()

	var breakdown []*FacilityStat
	for rows.Next() {
		var s FacilityStat
		if err := rows.Scan(&s.Facility, &s.Count, &s.TotalRevenue); err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to scan facility stat", err)
		}
		breakdown = append(breakdown, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to iterate facility stats", err)
	}

	return totals, breakdown, nil
}
