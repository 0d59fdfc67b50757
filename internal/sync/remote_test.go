package sync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRestClientUpsertTicket(t *testing.T) {
	var gotPath, gotQuery, gotPrefer, gotKey string
	var gotRecord TicketRecord

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotPrefer = r.Header.Get("Prefer")
		gotKey = r.Header.Get("apikey")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotRecord)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := newRestClient(RemoteConfig{BaseURL: server.URL, APIKey: "k"})
	err := client.UpsertTicket(context.Background(), &TicketRecord{
		ReferenceNumber: "TKT-1",
		Name:            "Ana Cruz",
		Facility:        "Oval",
		PaymentAmount:   20,
	})
	if err != nil {
		t.Fatalf("UpsertTicket failed: %v", err)
	}

	if gotPath != "/rest/v1/tickets" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "on_conflict=reference_number" {
		t.Errorf("query = %q, want upsert keyed on reference_number", gotQuery)
	}
	if gotPrefer != "resolution=merge-duplicates" {
		t.Errorf("Prefer = %q", gotPrefer)
	}
	if gotKey != "k" {
		t.Errorf("apikey = %q", gotKey)
	}
	if gotRecord.ReferenceNumber != "TKT-1" || gotRecord.PaymentAmount != 20 {
		t.Errorf("record = %+v", gotRecord)
	}
}

func TestRestClientUpsertError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := newRestClient(RemoteConfig{BaseURL: server.URL, APIKey: "k"})
	err := client.UpsertTicket(context.Background(), &TicketRecord{ReferenceNumber: "TKT-1"})
	if err == nil {
		t.Fatal("expected error on 403 response")
	}
}

func TestRestClientUploadImage(t *testing.T) {
	var gotPath, gotContentType, gotUpsert string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newRestClient(RemoteConfig{BaseURL: server.URL + "/", APIKey: "k"})
	url, err := client.UploadImage(context.Background(), "TKT-1_123.jpg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("UploadImage failed: %v", err)
	}

	if gotPath != "/storage/v1/object/ticket-images/TKT-1_123.jpg" {
		t.Errorf("path = %q", gotPath)
	}
	if gotContentType != "image/jpeg" || gotUpsert != "true" {
		t.Errorf("headers = %q / %q", gotContentType, gotUpsert)
	}
	if string(gotBody) != "jpeg-bytes" {
		t.Errorf("body = %q", gotBody)
	}
	want := server.URL + "/storage/v1/object/public/ticket-images/TKT-1_123.jpg"
	if url != want {
		t.Errorf("public url = %q, want %q", url, want)
	}
}

func TestRestClientPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	good := newRestClient(RemoteConfig{BaseURL: server.URL, APIKey: "k"})
	if err := good.Ping(context.Background()); err != nil {
		t.Errorf("Ping with valid key failed: %v", err)
	}

	bad := newRestClient(RemoteConfig{BaseURL: server.URL, APIKey: "wrong"})
	if err := bad.Ping(context.Background()); err == nil {
		t.Error("Ping with invalid key succeeded")
	}
}

func TestImageKey(t *testing.T) {
	at := time.UnixMilli(1718000000000)
	key := imageKey("TKT-42", at)
	if key != "TKT-42_1718000000000.jpg" {
		t.Errorf("key = %q", key)
	}
}
