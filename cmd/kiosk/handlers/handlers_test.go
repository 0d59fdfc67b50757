package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ctukiosk/backend/internal/db"
	"github.com/ctukiosk/backend/internal/export"
	"github.com/ctukiosk/backend/internal/models"
	"github.com/ctukiosk/backend/internal/refnum"
	"github.com/ctukiosk/backend/internal/sync"
)

// setupAPI builds the full route table over a fresh in-memory store.
func setupAPI(t *testing.T) (*http.ServeMux, *db.Repository, *db.DB) {
	t.Helper()

	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.NewMigrator(database).Up(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	repo := db.NewRepository(database)
	t.Cleanup(func() { repo.Close() })

	if err := repo.SeedFacilities(); err != nil {
		t.Fatalf("failed to seed facilities: %v", err)
	}

	tickets := NewTicketHandler(repo, "TEST VENUE")
	facilities := NewFacilityHandler(repo)
	stats := NewStatsHandler(repo)
	exports := NewExportHandler(export.NewService(repo), NopNotifier{})
	syncAPI := NewSyncHandler(sync.NewEngine(repo, nil), NopNotifier{})
	system := NewSystemHandler(repo)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tickets", tickets.Create)
	mux.HandleFunc("GET /api/tickets", tickets.List)
	mux.HandleFunc("GET /api/tickets/{ref}", tickets.Get)
	mux.HandleFunc("POST /api/tickets/{ref}/status", tickets.UpdateStatus)
	mux.HandleFunc("GET /api/tickets/{ref}/qr", tickets.QRCode)
	mux.HandleFunc("GET /api/tickets/{ref}/print", tickets.PrintJob)
	mux.HandleFunc("GET /api/facilities", facilities.List)
	mux.HandleFunc("GET /api/facilities/quote", facilities.Quote)
	mux.HandleFunc("GET /api/stats", stats.Revenue)
	mux.HandleFunc("GET /api/export/{format}", exports.Download)
	mux.HandleFunc("POST /api/sync/credentials", syncAPI.Configure)
	mux.HandleFunc("GET /api/sync/stats", syncAPI.Stats)
	mux.HandleFunc("POST /api/sync/auto", syncAPI.SetAutoSync)
	mux.HandleFunc("GET /api/health", system.Health)
	mux.HandleFunc("POST /api/maintenance/cleanup", system.Cleanup)

	return mux, repo, database
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createTicket(t *testing.T, mux *http.ServeMux, req CreateRequest) *models.Ticket {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/api/tickets", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}

	var ticket models.Ticket
	if err := json.Unmarshal(rec.Body.Bytes(), &ticket); err != nil {
		t.Fatalf("create response is not a ticket: %v", err)
	}
	return &ticket
}

func TestCreateTicketFullPrice(t *testing.T) {
	mux, _, _ := setupAPI(t)

	ticket := createTicket(t, mux, CreateRequest{
		Name:           "Ana Cruz",
		Facility:       "Swimming Pool",
		PaymentMethod:  "Cash",
		AmountInserted: 100,
	})

	if !refnum.IsValid(ticket.ReferenceNumber) {
		t.Errorf("reference %q is not well formed", ticket.ReferenceNumber)
	}
	if ticket.PaymentAmount != 100 || ticket.HasDiscount {
		t.Errorf("pricing wrong: amount=%v discount=%v", ticket.PaymentAmount, ticket.HasDiscount)
	}
	if ticket.ChangeGiven != 0 || ticket.MethodType != "Cash" {
		t.Errorf("payment fields wrong: %+v", ticket)
	}
	if ticket.QRCodeData == "" {
		t.Error("QR payload not generated")
	}

	// Expiry is end of day of issuance.
	expiry := time.Unix(ticket.DateExpiry, 0)
	if expiry.Hour() != 23 || expiry.Minute() != 59 || expiry.Second() != 59 {
		t.Errorf("expiry = %v, want end of day", expiry)
	}
}

func TestCreateTicketChildDiscount(t *testing.T) {
	mux, _, _ := setupAPI(t)

	age := 9
	ticket := createTicket(t, mux, CreateRequest{
		Name:           "Liam Cruz",
		Age:            &age,
		Facility:       "Swimming Pool",
		PaymentMethod:  "Cash",
		AmountInserted: 60,
	})

	if ticket.PaymentAmount != 50 || !ticket.HasDiscount || ticket.OriginalPrice != 100 {
		t.Errorf("discount pricing wrong: %+v", ticket)
	}
	if ticket.ChangeGiven != 10 {
		t.Errorf("change = %v, want 10", ticket.ChangeGiven)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	mux, _, _ := setupAPI(t)

	cases := []struct {
		name string
		req  CreateRequest
		code int
	}{
		{"missing name", CreateRequest{Facility: "Oval"}, http.StatusBadRequest},
		{"missing facility", CreateRequest{Name: "Ana"}, http.StatusBadRequest},
		{"unknown facility", CreateRequest{Name: "Ana", Facility: "Ice Rink"}, http.StatusNotFound},
		{"underpaid", CreateRequest{
			Name: "Ana", Facility: "Oval", PaymentMethod: "Cash", AmountInserted: 5,
		}, http.StatusBadRequest},
		{"bad image", CreateRequest{
			Name: "Ana", Facility: "Oval", CapturedImage: "not-a-data-uri",
		}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/api/tickets", tc.req)
			if rec.Code != tc.code {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.code, rec.Body.String())
			}
		})
	}
}

func TestGetAndListTickets(t *testing.T) {
	mux, _, _ := setupAPI(t)

	created := createTicket(t, mux, CreateRequest{Name: "Ana Cruz", Facility: "Oval"})

	rec := doJSON(t, mux, http.MethodGet, "/api/tickets/"+created.ReferenceNumber, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get returned %d", rec.Code)
	}
	var got models.Ticket
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ReferenceNumber != created.ReferenceNumber {
		t.Errorf("got %s, want %s", got.ReferenceNumber, created.ReferenceNumber)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/tickets?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var page struct {
		Tickets []*models.Ticket `json:"tickets"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Count != 1 || len(page.Tickets) != 1 {
		t.Errorf("page = %+v", page)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/tickets/TKT-0000000000", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown ticket returned %d, want 404", rec.Code)
	}
}

func TestListTicketsEmptyStoreReturnsArray(t *testing.T) {
	mux, _, _ := setupAPI(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/tickets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"tickets":[]`) {
		t.Errorf("empty list is not an array: %s", rec.Body.String())
	}
}

func TestUpdateTicketStatus(t *testing.T) {
	mux, _, _ := setupAPI(t)
	created := createTicket(t, mux, CreateRequest{Name: "Ana Cruz", Facility: "Oval"})

	rec := doJSON(t, mux, http.MethodPost, "/api/tickets/"+created.ReferenceNumber+"/status",
		StatusRequest{Status: models.StatusVoided})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update returned %d: %s", rec.Code, rec.Body.String())
	}

	var got models.Ticket
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.TransactionStatus != models.StatusVoided {
		t.Errorf("status = %q, want voided", got.TransactionStatus)
	}
}

func TestTicketArtifacts(t *testing.T) {
	mux, _, _ := setupAPI(t)
	created := createTicket(t, mux, CreateRequest{Name: "Ana Cruz", Facility: "Oval"})

	rec := doJSON(t, mux, http.MethodGet, "/api/tickets/"+created.ReferenceNumber+"/qr", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("qr returned %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("qr content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("qr body is not a PNG")
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/tickets/"+created.ReferenceNumber+"/print", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("print returned %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte{0x1B, 0x40}) {
		t.Error("print job missing printer init")
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("TEST VENUE")) {
		t.Error("print job missing receipt header")
	}
}

func TestFacilitiesAndQuote(t *testing.T) {
	mux, _, _ := setupAPI(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/facilities", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("facilities returned %d", rec.Code)
	}
	var list struct {
		Facilities []*models.Facility `json:"facilities"`
		Count      int                `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 6 {
		t.Errorf("facility count = %d, want 6", list.Count)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/facilities/quote?facility=Swimming+Pool&age=9", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quote returned %d: %s", rec.Code, rec.Body.String())
	}
	var quote struct {
		Facility    string  `json:"facility"`
		BasePrice   float64 `json:"base_price"`
		Price       float64 `json:"price"`
		HasDiscount bool    `json:"has_discount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &quote); err != nil {
		t.Fatal(err)
	}
	if quote.Price != 50 || !quote.HasDiscount || quote.BasePrice != 100 {
		t.Errorf("quote = %+v", quote)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/facilities/quote?facility=Ice+Rink", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown facility quote returned %d, want 404", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/facilities/quote", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing facility quote returned %d, want 400", rec.Code)
	}
}

func TestRevenueStatsEndpoint(t *testing.T) {
	mux, _, _ := setupAPI(t)
	createTicket(t, mux, CreateRequest{Name: "A", Facility: "Swimming Pool"})
	createTicket(t, mux, CreateRequest{Name: "B", Facility: "Oval"})

	rec := doJSON(t, mux, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats returned %d", rec.Code)
	}
	var resp struct {
		Totals struct {
			TotalTickets int     `json:"total_tickets"`
			TotalRevenue float64 `json:"total_revenue"`
		} `json:"totals"`
		Breakdown []struct {
			Facility string `json:"facility"`
			Count    int    `json:"facility_count"`
		} `json:"breakdown"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Totals.TotalTickets != 2 || resp.Totals.TotalRevenue != 120 {
		t.Errorf("totals = %+v", resp.Totals)
	}
	if len(resp.Breakdown) != 2 {
		t.Errorf("breakdown rows = %d, want 2", len(resp.Breakdown))
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/stats?start=2020-01-01&end=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad window returned %d, want 400", rec.Code)
	}
}

func TestExportEndpoints(t *testing.T) {
	mux, _, _ := setupAPI(t)
	createTicket(t, mux, CreateRequest{Name: "Ana Cruz", Facility: "Oval"})

	rec := doJSON(t, mux, http.MethodGet, "/api/export/json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("json export returned %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "kiosk-export-") {
		t.Errorf("missing download disposition: %q", rec.Header().Get("Content-Disposition"))
	}
	var bundle export.Bundle
	if err := json.Unmarshal(rec.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("export body is not a bundle: %v", err)
	}
	if len(bundle.Tickets) != 1 {
		t.Errorf("bundle tickets = %d", len(bundle.Tickets))
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/export/csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv export returned %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "Reference Number,Name,Age,") {
		t.Errorf("csv header wrong: %.60s", rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/export/xml", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported format returned %d, want 400", rec.Code)
	}
}

func TestHealthAndCleanup(t *testing.T) {
	mux, repo, database := setupAPI(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}

	// Backdate a ticket so cleanup has something to purge.
	createTicket(t, mux, CreateRequest{Name: "Old Guest", Facility: "Oval"})
	tickets, err := repo.ListTickets(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().AddDate(0, 0, -40).Unix()
	if _, err := database.Exec(
		`UPDATE tickets SET created_at = ? WHERE reference_number = ?`, old, tickets[0].ReferenceNumber,
	); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/maintenance/cleanup", CleanupRequest{MaxAgeDays: 30})
	if rec.Code != http.StatusOK {
		t.Fatalf("cleanup returned %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"deleted":1`) {
		t.Errorf("cleanup body = %s", rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/maintenance/cleanup", CleanupRequest{MaxAgeDays: 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero retention returned %d, want 400", rec.Code)
	}
}
