package sync

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ctukiosk/backend/internal/capture"
	"github.com/ctukiosk/backend/internal/crypto"
	"github.com/ctukiosk/backend/internal/db"
	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/logging"
	"github.com/ctukiosk/backend/internal/models"
)

// Progress reports per-ticket advancement during a sync pass.
type Progress struct {
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	Reference string `json:"reference"`
}

// Failure records one ticket that could not be replicated.
type Failure struct {
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

// Result summarizes a completed sync pass.
type Result struct {
	Total    int       `json:"total"`
	Synced   int       `json:"synced"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

// Stats is the sync state snapshot exposed to the UI.
type Stats struct {
	TotalTickets    int    `json:"total_tickets"`
	SyncedTickets   int    `json:"synced_tickets"`
	UnsyncedTickets int    `json:"unsynced_tickets"`
	LastSyncTime    int64  `json:"last_sync_time,omitempty"`
	Configured      bool   `json:"configured"`
	AutoSyncEnabled bool   `json:"auto_sync_enabled"`
	Syncing         bool   `json:"syncing"`
	KioskID         string `json:"kiosk_id"`
}

// Reachability reports whether the network path to the remote store is
// currently usable. Injected so tests and the auto-sync loop can share
// one answer.
type Reachability func(ctx context.Context) bool

// Engine replicates unsynced tickets to a RemoteStore. At most one sync
// pass runs at a time; concurrent triggers are rejected rather than
// queued.
type Engine struct {
	repo      *db.Repository
	machineID string
	reachable Reachability

	// clientFactory builds the RemoteStore from stored credentials.
	// Swapped out in tests.
	clientFactory func(RemoteConfig) RemoteStore

	mu      sync.Mutex
	syncing bool
}

// NewEngine creates a sync engine over the local store. A nil
// reachable falls back to probing the remote store directly.
func NewEngine(repo *db.Repository, reachable Reachability) *Engine {
	return &Engine{
		repo:          repo,
		machineID:     crypto.MachineID(),
		reachable:     reachable,
		clientFactory: newRestClient,
	}
}

// Configure validates and persists remote credentials. The key is
// encrypted with a machine-bound key before it touches the settings
// table.
func (e *Engine) Configure(remoteURL, remoteKey string) error {
	parsed, err := url.Parse(remoteURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return apperrors.New(apperrors.ErrInvalidConfiguration, "remote URL must be absolute")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return apperrors.New(apperrors.ErrInvalidConfiguration, "remote URL must use http or https")
	}
	if remoteKey == "" {
		return apperrors.New(apperrors.ErrInvalidConfiguration, "remote key is required")
	}

	encrypted, err := crypto.EncryptRemoteKey(remoteKey, e.machineID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidConfiguration, "failed to protect remote key", err)
	}

	if err := e.repo.SetSetting(models.SettingRemoteURL, remoteURL); err != nil {
		return err
	}
	if err := e.repo.SetSetting(models.SettingRemoteKey, encrypted); err != nil {
		return err
	}

	logging.Info("remote store configured", logging.Fields{"url": remoteURL})
	return nil
}

// config loads and decrypts the stored remote credentials. Returns an
// INVALID_CONFIGURATION error when either half is missing.
func (e *Engine) config() (RemoteConfig, error) {
	remoteURL, err := e.repo.GetSetting(models.SettingRemoteURL)
	if err != nil {
		return RemoteConfig{}, err
	}
	encrypted, err := e.repo.GetSetting(models.SettingRemoteKey)
	if err != nil {
		return RemoteConfig{}, err
	}
	if remoteURL == "" || encrypted == "" {
		return RemoteConfig{}, apperrors.New(apperrors.ErrInvalidConfiguration, "remote store is not configured")
	}

	key, err := crypto.DecryptRemoteKey(encrypted, e.machineID)
	if err != nil {
		return RemoteConfig{}, apperrors.Wrap(apperrors.ErrInvalidConfiguration, "failed to decrypt remote key", err)
	}
	return RemoteConfig{BaseURL: remoteURL, APIKey: key}, nil
}

// Configured reports whether remote credentials are stored.
func (e *Engine) Configured() bool {
	_, err := e.config()
	return err == nil
}

// Syncing reports whether a sync pass is currently running.
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// TestConnection verifies the stored credentials against the live
// remote store.
func (e *Engine) TestConnection(ctx context.Context) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	if err := e.clientFactory(cfg).Ping(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrOffline, "remote store is not reachable", err)
	}
	return nil
}

// online answers the reachability question for one sync pass.
func (e *Engine) online(ctx context.Context, remote RemoteStore) bool {
	if e.reachable != nil {
		return e.reachable(ctx)
	}
	return remote.Ping(ctx) == nil
}

// SyncAll replicates every unsynced ticket to the remote store. One
// ticket failing does not abort the pass; failures are collected in the
// result. progress may be nil.
func (e *Engine) SyncAll(ctx context.Context, progress func(Progress)) (*Result, error) {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrSyncInProgress, "a sync pass is already running")
	}
	e.syncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	remote := e.clientFactory(cfg)

	if !e.online(ctx, remote) {
		return nil, apperrors.New(apperrors.ErrOffline, "remote store is not reachable")
	}

	tickets, err := e.repo.ListUnsyncedTickets()
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(tickets)}
	logging.Info("sync pass started", logging.Fields{"pending": len(tickets)})

	for i, ticket := range tickets {
		if err := ctx.Err(); err != nil {
			return result, apperrors.Wrap(apperrors.ErrSyncFailed, "sync pass cancelled", err)
		}
		if progress != nil {
			progress(Progress{Current: i + 1, Total: len(tickets), Reference: ticket.ReferenceNumber})
		}

		if err := e.syncTicket(ctx, remote, ticket); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{
				Reference: ticket.ReferenceNumber,
				Error:     err.Error(),
			})
			logging.Error("failed to sync ticket", err, logging.Fields{
				"reference": ticket.ReferenceNumber,
			})
			continue
		}
		result.Synced++
	}

	if err := e.repo.SetSetting(models.SettingLastSyncTime, strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		logging.Error("failed to record sync time", err)
	}

	logging.Info("sync pass finished", logging.Fields{
		"synced": result.Synced,
		"failed": result.Failed,
	})
	return result, nil
}

// syncTicket replicates a single ticket. The snapshot upload is best
// effort; on failure the ticket is pushed with the embedded data URI so
// no data is lost.
func (e *Engine) syncTicket(ctx context.Context, remote RemoteStore, ticket *models.Ticket) error {
	now := time.Now()
	image := ticket.CapturedImage

	if capture.IsDataURI(image) {
		if snap, err := capture.Decode(image); err == nil {
			key := imageKey(ticket.ReferenceNumber, now)
			if url, err := remote.UploadImage(ctx, key, snap.JPEG); err == nil {
				image = url
			} else {
				logging.Warn("snapshot upload failed, embedding image inline", logging.Fields{
					"reference": ticket.ReferenceNumber,
				})
			}
		}
	}

	record := &TicketRecord{
		ReferenceNumber:   ticket.ReferenceNumber,
		Name:              ticket.Name,
		Age:               ticket.Age,
		CapturedImage:     image,
		Facility:          ticket.Facility,
		PaymentAmount:     ticket.PaymentAmount,
		OriginalPrice:     ticket.OriginalPrice,
		HasDiscount:       ticket.HasDiscount,
		DateCreated:       ticket.DateCreated,
		DateExpiry:        ticket.DateExpiry,
		QRCodeData:        ticket.QRCodeData,
		TransactionStatus: ticket.TransactionStatus,
		PaymentMethod:     ticket.MethodType,
		AmountInserted:    ticket.AmountInserted,
		ChangeGiven:       ticket.ChangeGiven,
		KioskID:           e.machineID,
		SyncedAt:          now.Unix(),
	}

	if err := remote.UpsertTicket(ctx, record); err != nil {
		return apperrors.Wrap(apperrors.ErrSyncFailed, "failed to push ticket", err)
	}

	return e.repo.MarkTicketSynced(ticket.ReferenceNumber, now)
}

// Stats returns the current sync state snapshot.
func (e *Engine) Stats() (*Stats, error) {
	total, synced, err := e.repo.SyncCounts()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalTickets:    total,
		SyncedTickets:   synced,
		UnsyncedTickets: total - synced,
		Configured:      e.Configured(),
		Syncing:         e.Syncing(),
		KioskID:         e.machineID,
	}

	if raw, err := e.repo.GetSetting(models.SettingLastSyncTime); err == nil && raw != "" {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			stats.LastSyncTime = ts
		}
	}
	if raw, err := e.repo.GetSetting(models.SettingAutoSyncEnabled); err == nil {
		stats.AutoSyncEnabled = raw == "true"
	}
	return stats, nil
}

// SetAutoSync persists the auto-sync toggle.
func (e *Engine) SetAutoSync(enabled bool) error {
	return e.repo.SetSetting(models.SettingAutoSyncEnabled, strconv.FormatBool(enabled))
}
