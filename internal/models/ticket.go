// Package models provides data model definitions for the kiosk backend.
package models

import "time"

// Transaction status values. Operators may set other values through the
// status update endpoint; these are the ones the kiosk itself writes.
const (
	StatusCompleted = "completed"
	StatusVoided    = "voided"
)

// Ticket represents one completed facility-access transaction.
// MethodType, AmountInserted and ChangeGiven are populated from the
// associated payment_methods row when the ticket is read back.
type Ticket struct {
	ID                int64   `db:"id" json:"id"`
	ReferenceNumber   string  `db:"reference_number" json:"reference_number"`
	Name              string  `db:"name" json:"name"`
	Age               *int    `db:"age" json:"age,omitempty"`
	CapturedImage     string  `db:"captured_image" json:"captured_image,omitempty"`
	Facility          string  `db:"facility" json:"facility"`
	PaymentAmount     float64 `db:"payment_amount" json:"payment_amount"`
	OriginalPrice     float64 `db:"original_price" json:"original_price"`
	HasDiscount       bool    `db:"has_discount" json:"has_discount"`
	DateCreated       int64   `db:"date_created" json:"date_created"`
	DateExpiry        int64   `db:"date_expiry" json:"date_expiry"`
	QRCodeData        string  `db:"qr_code_data" json:"qr_code_data,omitempty"`
	TransactionStatus string  `db:"transaction_status" json:"transaction_status"`
	SyncedToCloud     bool    `db:"synced_to_cloud" json:"synced_to_cloud"`
	SyncedAt          *int64  `db:"synced_at" json:"synced_at,omitempty"`
	CreatedAt         int64   `db:"created_at" json:"created_at"`
	UpdatedAt         int64   `db:"updated_at" json:"updated_at"`

	// Merged from payment_methods.
	MethodType     string  `db:"method_type" json:"method_type,omitempty"`
	AmountInserted float64 `db:"amount_inserted" json:"amount_inserted,omitempty"`
	ChangeGiven    float64 `db:"change_given" json:"change_given,omitempty"`
}

// TableName returns the table name for Ticket.
func (Ticket) TableName() string {
	return "tickets"
}

// DateCreatedTime returns DateCreated as time.Time.
func (t *Ticket) DateCreatedTime() time.Time {
	return time.Unix(t.DateCreated, 0)
}

// DateExpiryTime returns DateExpiry as time.Time.
func (t *Ticket) DateExpiryTime() time.Time {
	return time.Unix(t.DateExpiry, 0)
}

// Expired reports whether the ticket's validity window has passed.
func (t *Ticket) Expired(now time.Time) bool {
	return now.Unix() > t.DateExpiry
}

// TicketInput is the caller-facing creation contract supplied by the UI
// layer at payment confirmation. DateCreated defaults to now and
// DateExpiry to end-of-day of DateCreated when left zero.
type TicketInput struct {
	ReferenceNumber string  `json:"reference_number"`
	Name            string  `json:"name"`
	Age             *int    `json:"age,omitempty"`
	CapturedImage   string  `json:"captured_image,omitempty"`
	Facility        string  `json:"facility"`
	PaymentAmount   float64 `json:"payment_amount"`
	OriginalPrice   float64 `json:"original_price,omitempty"`
	HasDiscount     bool    `json:"has_discount"`
	DateCreated     int64   `json:"date_created,omitempty"`
	DateExpiry      int64   `json:"date_expiry,omitempty"`
	QRCodeData      string  `json:"qr_code_data,omitempty"`
	PaymentMethod   string  `json:"payment_method,omitempty"`
	AmountInserted  float64 `json:"amount_inserted,omitempty"`
	ChangeGiven     float64 `json:"change_given,omitempty"`
}

// Normalize fills derived fields: OriginalPrice defaults to
// PaymentAmount, DateCreated to now, DateExpiry to end-of-day of
// DateCreated.
func (in *TicketInput) Normalize(now time.Time) {
	if in.OriginalPrice == 0 {
		in.OriginalPrice = in.PaymentAmount
	}
	if in.DateCreated == 0 {
		in.DateCreated = now.Unix()
	}
	if in.DateExpiry == 0 {
		in.DateExpiry = EndOfDay(time.Unix(in.DateCreated, 0)).Unix()
	}
}

// EndOfDay returns 23:59:59 local time of the given day. A ticket is
// valid until end of the day it was issued.
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 0, t.Location())
}

// HasPayment reports whether a payment-method row should be recorded.
func (in *TicketInput) HasPayment() bool {
	return in.PaymentMethod != "" && in.AmountInserted > 0
}
