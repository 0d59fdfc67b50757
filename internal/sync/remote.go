// Package sync replicates locally stored tickets to a remote cloud
// store. Replication is best effort; the kiosk keeps operating when the
// remote side is unreachable.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TicketRecord is the wire form of one ticket pushed to the remote
// store. CapturedImage carries either an uploaded blob URL or the
// original data URI when the upload failed.
type TicketRecord struct {
	ReferenceNumber   string  `json:"reference_number"`
	Name              string  `json:"name"`
	Age               *int    `json:"age,omitempty"`
	CapturedImage     string  `json:"captured_image,omitempty"`
	Facility          string  `json:"facility"`
	PaymentAmount     float64 `json:"payment_amount"`
	OriginalPrice     float64 `json:"original_price"`
	HasDiscount       bool    `json:"has_discount"`
	DateCreated       int64   `json:"date_created"`
	DateExpiry        int64   `json:"date_expiry"`
	QRCodeData        string  `json:"qr_code_data,omitempty"`
	TransactionStatus string  `json:"transaction_status"`
	PaymentMethod     string  `json:"payment_method,omitempty"`
	AmountInserted    float64 `json:"amount_inserted,omitempty"`
	ChangeGiven       float64 `json:"change_given,omitempty"`
	KioskID           string  `json:"kiosk_id,omitempty"`
	SyncedAt          int64   `json:"synced_at"`
}

// RemoteStore is the remote side of replication. Implementations must
// make UpsertTicket idempotent on the reference number so retries never
// create duplicate rows.
type RemoteStore interface {
	// Ping verifies the remote store is reachable and the credentials
	// are accepted.
	Ping(ctx context.Context) error

	// UpsertTicket inserts or replaces one ticket keyed by its
	// reference number.
	UpsertTicket(ctx context.Context, record *TicketRecord) error

	// UploadImage stores a snapshot blob under key and returns its
	// public URL.
	UploadImage(ctx context.Context, key string, data []byte) (string, error)
}

// RemoteConfig holds the remote store connection settings.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
}

const (
	ticketsTable = "tickets"
	imageBucket  = "ticket-images"
)

// restClient implements RemoteStore against a PostgREST-style API with
// an object storage endpoint alongside it.
type restClient struct {
	config     RemoteConfig
	httpClient *http.Client
}

// newRestClient creates a RemoteStore for the given remote endpoint.
func newRestClient(config RemoteConfig) RemoteStore {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &restClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// Ping verifies reachability and credentials with a cheap read.
func (c *restClient) Ping(ctx context.Context) error {
	req, err := c.createRequest(ctx, http.MethodGet, "/rest/v1/"+ticketsTable+"?select=reference_number&limit=1", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ping failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// UpsertTicket pushes one ticket, merging on the reference number.
func (c *restClient) UpsertTicket(ctx context.Context, record *TicketRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode ticket: %w", err)
	}

	path := "/rest/v1/" + ticketsTable + "?on_conflict=reference_number"
	req, err := c.createRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upsert failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// UploadImage stores a JPEG snapshot and returns its public URL.
func (c *restClient) UploadImage(ctx context.Context, key string, data []byte) (string, error) {
	path := "/storage/v1/object/" + imageBucket + "/" + key
	req, err := c.createRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Content-Length", fmt.Sprintf("%d", len(data)))
	// Re-uploading the same key replaces the blob instead of failing.
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return c.config.BaseURL + "/storage/v1/object/public/" + imageBucket + "/" + key, nil
}

// createRequest creates an authenticated remote store request.
func (c *restClient) createRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	return req, nil
}

// imageKey builds the storage key for a ticket snapshot.
func imageKey(reference string, now time.Time) string {
	return fmt.Sprintf("%s_%d.jpg", reference, now.UnixMilli())
}
