// Package export produces offline data exports of the local ticket
// store for record keeping and manual transfer.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ctukiosk/backend/internal/db"
	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/logging"
	"github.com/ctukiosk/backend/internal/models"
)

// BundleVersion identifies the JSON export format.
const BundleVersion = "1.0"

// csvHeader is the fixed column order of CSV exports. Spreadsheet
// imports at the city office depend on it.
var csvHeader = []string{
	"Reference Number", "Name", "Age", "Facility", "Payment Amount",
	"Original Price", "Has Discount", "Payment Method", "Amount Inserted",
	"Change Given", "Date Created", "Date Expiry", "Status",
}

// Bundle is the JSON export envelope.
type Bundle struct {
	Tickets    []*models.Ticket   `json:"tickets"`
	Facilities []*models.Facility `json:"facilities"`
	ExportDate string             `json:"exportDate"`
	Version    string             `json:"version"`
}

// Service builds export artifacts from the local store. Exports are
// capped at the most recent db.ExportCap tickets.
type Service struct {
	repo *db.Repository
}

// NewService creates an export service over the local store.
func NewService(repo *db.Repository) *Service {
	return &Service{repo: repo}
}

// JSON renders the full store snapshot as an indented JSON bundle.
func (s *Service) JSON() ([]byte, error) {
	tickets, err := s.repo.ListTickets(db.ExportCap, 0)
	if err != nil {
		return nil, err
	}
	facilities, err := s.repo.ListFacilities(false)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Tickets:    tickets,
		Facilities: facilities,
		ExportDate: time.Now().Format(time.RFC3339),
		Version:    BundleVersion,
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode export bundle", err)
	}

	logging.Info("export bundle generated", logging.Fields{
		"tickets": len(tickets),
		"format":  "json",
	})
	return data, nil
}

// CSV renders all tickets as a spreadsheet with the fixed header row.
func (s *Service) CSV() ([]byte, error) {
	tickets, err := s.repo.ListTickets(db.ExportCap, 0)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to write CSV header", err)
	}
	for _, t := range tickets {
		if err := w.Write(csvRow(t)); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to write CSV row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to flush CSV", err)
	}

	logging.Info("export bundle generated", logging.Fields{
		"tickets": len(tickets),
		"format":  "csv",
	})
	return buf.Bytes(), nil
}

// csvRow formats one ticket in the csvHeader column order.
func csvRow(t *models.Ticket) []string {
	age := ""
	if t.Age != nil {
		age = strconv.Itoa(*t.Age)
	}
	return []string{
		t.ReferenceNumber,
		t.Name,
		age,
		t.Facility,
		formatAmount(t.PaymentAmount),
		formatAmount(t.OriginalPrice),
		strconv.FormatBool(t.HasDiscount),
		t.MethodType,
		formatAmount(t.AmountInserted),
		formatAmount(t.ChangeGiven),
		t.DateCreatedTime().Format(time.RFC3339),
		t.DateExpiryTime().Format(time.RFC3339),
		t.TransactionStatus,
	}
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Filename builds a timestamped download name for an export artifact.
func Filename(format string, now time.Time) string {
	return fmt.Sprintf("kiosk-export-%s.%s", now.Format("2006-01-02-150405"), format)
}
