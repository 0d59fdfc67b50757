package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ctukiosk/backend/internal/sync"
)

func TestSyncConfigureEndpoint(t *testing.T) {
	mux, _, _ := setupAPI(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/sync/credentials",
		CredentialsRequest{URL: "https://remote.example", Key: "service-key"})
	if rec.Code != http.StatusOK {
		t.Fatalf("configure returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/sync/credentials",
		CredentialsRequest{URL: "not-a-url", Key: "k"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad url returned %d, want 400", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/sync/credentials",
		CredentialsRequest{URL: "https://remote.example", Key: ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty key returned %d, want 400", rec.Code)
	}
}

func TestSyncStatsEndpoint(t *testing.T) {
	mux, _, _ := setupAPI(t)
	createTicket(t, mux, CreateRequest{Name: "Ana Cruz", Facility: "Oval"})

	rec := doJSON(t, mux, http.MethodGet, "/api/sync/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync stats returned %d", rec.Code)
	}

	var stats sync.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalTickets != 1 || stats.UnsyncedTickets != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Configured {
		t.Error("reported configured before credentials were set")
	}
}

func TestSyncAutoToggleEndpoint(t *testing.T) {
	mux, _, _ := setupAPI(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/sync/auto", AutoSyncRequest{Enabled: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("auto toggle returned %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/sync/stats", nil)
	var stats sync.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if !stats.AutoSyncEnabled {
		t.Error("auto-sync not reported enabled")
	}
}
