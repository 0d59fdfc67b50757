package models

// PaymentMethod is the payment record associated with a ticket.
// At most one row exists per ticket.
type PaymentMethod struct {
	ID             int64   `db:"id" json:"id"`
	TicketID       int64   `db:"ticket_id" json:"ticket_id"`
	MethodType     string  `db:"method_type" json:"method_type"`
	AmountInserted float64 `db:"amount_inserted" json:"amount_inserted"`
	ChangeGiven    float64 `db:"change_given" json:"change_given"`
	CreatedAt      int64   `db:"created_at" json:"created_at"`
}

// TableName returns the table name for PaymentMethod.
func (PaymentMethod) TableName() string {
	return "payment_methods"
}
