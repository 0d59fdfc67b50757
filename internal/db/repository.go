// Package db provides repository operations for the local ticket store.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/models"
)

// ExportCap bounds the number of tickets included in a full export.
const ExportCap = 1000

// Repository provides all local ticket store operations. It must be
// constructed over an opened DB; operations on a nil repository or a
// closed database fail rather than silently re-initializing.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *DB) *Repository {
	if db == nil {
		return &Repository{}
	}
	return &Repository{db: db.DB}
}

// ready returns an error when the repository has no usable database.
func (r *Repository) ready() error {
	if r == nil || r.db == nil {
		return apperrors.New(apperrors.ErrNotInitialized, "ticket store is not initialized")
	}
	return nil
}

// prepareStmt gets or creates a prepared statement from the cache.
func (r *Repository) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const ticketColumns = `t.id, t.reference_number, t.name, t.age, t.captured_image, t.facility,
	t.payment_amount, t.original_price, t.has_discount, t.date_created, t.date_expiry,
	t.qr_code_data, t.transaction_status, t.synced_to_cloud, t.synced_at,
	t.created_at, t.updated_at, p.method_type, p.amount_inserted, p.change_given`

const ticketJoin = ` FROM tickets t LEFT JOIN payment_methods p ON p.ticket_id = t.id`

// scanTicket scans one joined ticket row.
func scanTicket(row interface{ Scan(...interface{}) error }) (*models.Ticket, error) {
	var t models.Ticket
	var age sql.NullInt64
	var capturedImage, qrCodeData, methodType sql.NullString
	var syncedAt sql.NullInt64
	var amountInserted, changeGiven sql.NullFloat64

	err := row.Scan(
		&t.ID, &t.ReferenceNumber, &t.Name, &age, &capturedImage, &t.Facility,
		&t.PaymentAmount, &t.OriginalPrice, &t.HasDiscount, &t.DateCreated, &t.DateExpiry,
		&qrCodeData, &t.TransactionStatus, &t.SyncedToCloud, &syncedAt,
		&t.CreatedAt, &t.UpdatedAt, &methodType, &amountInserted, &changeGiven,
	)
	if err != nil {
		return nil, err
	}

	if age.Valid {
		v := int(age.Int64)
		t.Age = &v
	}
	if capturedImage.Valid {
		t.CapturedImage = capturedImage.String
	}
	if qrCodeData.Valid {
		t.QRCodeData = qrCodeData.String
	}
	if syncedAt.Valid {
		v := syncedAt.Int64
		t.SyncedAt = &v
	}
	if methodType.Valid {
		t.MethodType = methodType.String
	}
	if amountInserted.Valid {
		t.AmountInserted = amountInserted.Float64
	}
	if changeGiven.Valid {
		t.ChangeGiven = changeGiven.Float64
	}
	return &t, nil
}

// validateInput checks the ticket-creation contract before touching the
// database.
func validateInput(in *models.TicketInput) error {
	switch {
	case in == nil:
		return apperrors.New(apperrors.ErrInvalid, "ticket input is required")
	case in.ReferenceNumber == "":
		return apperrors.New(apperrors.ErrInvalid, "reference number is required")
	case in.Name == "":
		return apperrors.New(apperrors.ErrInvalid, "visitor name is required")
	case in.Facility == "":
		return apperrors.New(apperrors.ErrInvalid, "facility is required")
	case in.PaymentAmount < 0:
		return apperrors.New(apperrors.ErrInvalid, "payment amount cannot be negative")
	case in.DateExpiry <= in.DateCreated:
		return apperrors.New(apperrors.ErrInvalid, "expiry must be later than creation time")
	case in.HasPayment() && in.AmountInserted < in.PaymentAmount:
		return apperrors.New(apperrors.ErrInvalid, "amount inserted is less than the payment amount")
	}
	return nil
}

// InsertTicket persists a ticket and, when payment fields are present,
// its payment-method row, in a single transaction. Returns the assigned
// surrogate id.
func (r *Repository) InsertTicket(in *models.TicketInput) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	now := time.Now()
	in.Normalize(now)
	if err := validateInput(in); err != nil {
		return 0, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
	INSERT INTO tickets (reference_number, name, age, captured_image, facility,
		payment_amount, original_price, has_discount, date_created, date_expiry,
		qr_code_data, transaction_status, synced_to_cloud, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`,
		in.ReferenceNumber, in.Name, nullableInt(in.Age), nullableString(in.CapturedImage), in.Facility,
		in.PaymentAmount, in.OriginalPrice, in.HasDiscount, in.DateCreated, in.DateExpiry,
		nullableString(in.QRCodeData), models.StatusCompleted, now.Unix(), now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperrors.Newf(apperrors.ErrDuplicateReference, "reference number %s already exists", in.ReferenceNumber)
		}
		return 0, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to insert ticket", err)
	}

	ticketID, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to read ticket id", err)
	}

	if in.HasPayment() {
		_, err := tx.Exec(`
		INSERT INTO payment_methods (ticket_id, method_type, amount_inserted, change_given, created_at)
		VALUES (?, ?, ?, ?, ?)
		`, ticketID, in.PaymentMethod, in.AmountInserted, in.ChangeGiven, now.Unix())
		if err != nil {
			return 0, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to insert payment method", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to commit ticket", err)
	}
	return ticketID, nil
}

// GetTicketByReference looks up one ticket by its unique reference
// number, merged with its payment-method row.
func (r *Repository) GetTicketByReference(ref string) (*models.Ticket, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	query := "SELECT " + ticketColumns + ticketJoin + " WHERE t.reference_number = ?"
	stmt, err := r.prepareStmt(query)
	if err != nil {
		return nil, err
	}

	t, err := scanTicket(stmt.QueryRow(ref))
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "ticket %s not found", ref)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to read ticket", err)
	}
	return t, nil
}

// ListTickets returns tickets ordered by creation time descending, most
// recent first, windowed by limit/offset. Ties on the creation
// timestamp are broken by insertion order.
func (r *Repository) ListTickets(limit, offset int) ([]*models.Ticket, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + ticketColumns + ticketJoin +
		" ORDER BY t.date_created DESC, t.id DESC LIMIT ? OFFSET ?"
	return r.queryTickets(query, limit, offset)
}

// ListTicketsByDateRange returns tickets whose creation date falls
// within [start, end], calendar-day inclusive, most recent first.
func (r *Repository) ListTicketsByDateRange(start, end time.Time) ([]*models.Ticket, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	from := startOfDay(start).Unix()
	to := models.EndOfDay(end).Unix()

	query := "SELECT " + ticketColumns + ticketJoin +
		" WHERE t.date_created BETWEEN ? AND ? ORDER BY t.date_created DESC, t.id DESC"
	return r.queryTickets(query, from, to)
}

// ListUnsyncedTickets returns all tickets not yet replicated to the
// remote store, in ascending creation order. Consumed by the sync
// engine.
func (r *Repository) ListUnsyncedTickets() ([]*models.Ticket, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	query := "SELECT " + ticketColumns + ticketJoin +
		" WHERE t.synced_to_cloud = 0 ORDER BY t.date_created ASC, t.id ASC"
	return r.queryTickets(query)
}

func (r *Repository) queryTickets(query string, args ...interface{}) ([]*models.Ticket, error) {
	stmt, err := r.prepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to query tickets", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to scan ticket", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to iterate tickets", err)
	}
	return tickets, nil
}

// UpdateTicketStatus mutates the transaction status of the ticket with
// the given reference number.
func (r *Repository) UpdateTicketStatus(ref, status string) error {
	if err := r.ready(); err != nil {
		return err
	}
	if status == "" {
		return apperrors.New(apperrors.ErrInvalid, "status is required")
	}

	res, err := r.db.Exec(
		`UPDATE tickets SET transaction_status = ?, updated_at = ? WHERE reference_number = ?`,
		status, time.Now().Unix(), ref,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to update ticket status", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return apperrors.Newf(apperrors.ErrNotFound, "ticket %s not found", ref)
	}
	return nil
}

// MarkTicketSynced flags a ticket as replicated to the remote store.
// Only the sync engine calls this.
func (r *Repository) MarkTicketSynced(ref string, syncedAt time.Time) error {
	if err := r.ready(); err != nil {
		return err
	}

	res, err := r.db.Exec(
		`UPDATE tickets SET synced_to_cloud = 1, synced_at = ?, updated_at = ? WHERE reference_number = ?`,
		syncedAt.Unix(), time.Now().Unix(), ref,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to mark ticket synced", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return apperrors.Newf(apperrors.ErrNotFound, "ticket %s not found", ref)
	}
	return nil
}

// SyncCounts returns the total and synced ticket counts.
func (r *Repository) SyncCounts() (total, synced int, err error) {
	if err := r.ready(); err != nil {
		return 0, 0, err
	}
	err = r.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(synced_to_cloud), 0) FROM tickets`,
	).Scan(&total, &synced)
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to count tickets", err)
	}
	return total, synced, nil
}

// DeleteOldTickets purges tickets created more than maxAgeDays ago and
// returns the number removed. Associated payment rows are removed by
// the foreign-key cascade. Irreversible.
func (r *Repository) DeleteOldTickets(maxAgeDays int) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}
	if maxAgeDays <= 0 {
		return 0, apperrors.New(apperrors.ErrInvalid, "retention threshold must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays).Unix()
	res, err := r.db.Exec(`DELETE FROM tickets WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to delete old tickets", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
