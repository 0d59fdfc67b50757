package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ctukiosk/backend/internal/capture"
	"github.com/ctukiosk/backend/internal/db"
	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/logging"
	"github.com/ctukiosk/backend/internal/models"
	"github.com/ctukiosk/backend/internal/refnum"
	"github.com/ctukiosk/backend/internal/render"
)

// TicketHandler serves ticket creation, lookup and artifact endpoints.
type TicketHandler struct {
	repo   *db.Repository
	header string
}

// NewTicketHandler creates a TicketHandler. header is the venue name
// printed on receipts.
func NewTicketHandler(repo *db.Repository, header string) *TicketHandler {
	return &TicketHandler{repo: repo, header: header}
}

// CreateRequest is the body of POST /api/tickets. Pricing is computed
// server-side from the facility catalog and the visitor's age.
type CreateRequest struct {
	Name           string  `json:"name"`
	Age            *int    `json:"age,omitempty"`
	Facility       string  `json:"facility"`
	CapturedImage  string  `json:"captured_image,omitempty"`
	PaymentMethod  string  `json:"payment_method,omitempty"`
	AmountInserted float64 `json:"amount_inserted,omitempty"`
}

// Create handles POST /api/tickets.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}
	if req.Name == "" || req.Facility == "" {
		writeError(w, apperrors.New(apperrors.ErrInvalid, "name and facility are required"))
		return
	}

	facility, err := h.repo.GetFacilityByName(req.Facility)
	if err != nil {
		writeError(w, err)
		return
	}
	price, discounted := facility.PriceFor(req.Age)

	image := ""
	if req.CapturedImage != "" {
		snap, err := capture.Decode(req.CapturedImage)
		if err != nil {
			writeError(w, err)
			return
		}
		image = snap.DataURI()
	}

	now := time.Now()
	in := &models.TicketInput{
		ReferenceNumber: refnum.New(now),
		Name:            req.Name,
		Age:             req.Age,
		CapturedImage:   image,
		Facility:        facility.Name,
		PaymentAmount:   price,
		OriginalPrice:   facility.BasePrice,
		HasDiscount:     discounted,
		PaymentMethod:   req.PaymentMethod,
		AmountInserted:  req.AmountInserted,
	}
	if in.HasPayment() {
		in.ChangeGiven = req.AmountInserted - price
	}
	in.Normalize(now)

	if err := attachQRPayload(in); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.repo.InsertTicket(in); apperrors.Is(err, apperrors.ErrDuplicateReference) {
		// Two transactions on the same millisecond; retry once with a
		// disambiguated reference. The QR payload embeds the
		// reference, so it is rebuilt.
		in.ReferenceNumber = refnum.NewUnique(now)
		if err := attachQRPayload(in); err != nil {
			writeError(w, err)
			return
		}
		if _, err := h.repo.InsertTicket(in); err != nil {
			writeError(w, err)
			return
		}
	} else if err != nil {
		writeError(w, err)
		return
	}

	ticket, err := h.repo.GetTicketByReference(in.ReferenceNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Info("ticket issued", logging.Fields{
		"reference": ticket.ReferenceNumber,
		"facility":  ticket.Facility,
		"amount":    ticket.PaymentAmount,
	})
	writeJSON(w, http.StatusCreated, ticket)
}

// attachQRPayload builds the scanner-facing QR document from the
// normalized input and stores it on the ticket.
func attachQRPayload(in *models.TicketInput) error {
	payload, err := render.BuildQRPayload(&models.Ticket{
		ReferenceNumber: in.ReferenceNumber,
		Name:            in.Name,
		Facility:        in.Facility,
		PaymentAmount:   in.PaymentAmount,
		DateCreated:     in.DateCreated,
		DateExpiry:      in.DateExpiry,
	})
	if err != nil {
		return err
	}
	in.QRCodeData = payload
	return nil
}

// List handles GET /api/tickets. Accepts limit/offset for paging, or
// start/end (YYYY-MM-DD) for a calendar-day window.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("start") != "" || q.Get("end") != "" {
		start, err := time.ParseInLocation("2006-01-02", q.Get("start"), time.Local)
		if err != nil {
			writeError(w, apperrors.New(apperrors.ErrInvalid, "start must be YYYY-MM-DD"))
			return
		}
		end, err := time.ParseInLocation("2006-01-02", q.Get("end"), time.Local)
		if err != nil {
			writeError(w, apperrors.New(apperrors.ErrInvalid, "end must be YYYY-MM-DD"))
			return
		}
		tickets, err := h.repo.ListTicketsByDateRange(start, end)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ticketPage(tickets))
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	tickets, err := h.repo.ListTickets(limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticketPage(tickets))
}

// ticketPage wraps a ticket list so the frontend always receives an
// array, never null.
func ticketPage(tickets []*models.Ticket) map[string]interface{} {
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return map[string]interface{}{
		"tickets": tickets,
		"count":   len(tickets),
	}
}

// Get handles GET /api/tickets/{ref}.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.repo.GetTicketByReference(r.PathValue("ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// StatusRequest is the body of POST /api/tickets/{ref}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /api/tickets/{ref}/status.
func (h *TicketHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}

	ref := r.PathValue("ref")
	if err := h.repo.UpdateTicketStatus(ref, req.Status); err != nil {
		writeError(w, err)
		return
	}

	ticket, err := h.repo.GetTicketByReference(ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// QRCode handles GET /api/tickets/{ref}/qr and returns the QR PNG.
func (h *TicketHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.repo.GetTicketByReference(r.PathValue("ref"))
	if err != nil {
		writeError(w, err)
		return
	}

	png, err := render.TicketQRCodePNG(ticket)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Receipt handles GET /api/tickets/{ref}/receipt and returns the PDF.
func (h *TicketHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.repo.GetTicketByReference(r.PathValue("ref"))
	if err != nil {
		writeError(w, err)
		return
	}

	pdf, err := render.ReceiptPDF(ticket, h.header)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+ticket.ReferenceNumber+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// PrintJob handles GET /api/tickets/{ref}/print and returns the raw
// ESC/POS byte stream for the thermal printer.
func (h *TicketHandler) PrintJob(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.repo.GetTicketByReference(r.PathValue("ref"))
	if err != nil {
		writeError(w, err)
		return
	}

	job := render.ESCPOSJob(ticket, h.header)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(job)
}
