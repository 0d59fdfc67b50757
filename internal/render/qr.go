// Package render produces the printable artifacts for a ticket: the QR
// code, the receipt PDF and the raw ESC/POS job for the thermal
// printer.
package render

import (
	"encoding/json"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/models"
)

// QRSize is the pixel edge of generated QR images.
const QRSize = 150

// QRPayload is the JSON document encoded into a ticket QR code. Gate
// scanners parse this, so the key names are fixed.
type QRPayload struct {
	TransactionID string  `json:"transactionId"`
	Name          string  `json:"name"`
	Facility      string  `json:"facility"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	ValidUntil    string  `json:"validUntil"`
}

// BuildQRPayload renders the QR document for a ticket as a JSON string.
func BuildQRPayload(t *models.Ticket) (string, error) {
	payload := QRPayload{
		TransactionID: t.ReferenceNumber,
		Name:          t.Name,
		Facility:      t.Facility,
		Amount:        t.PaymentAmount,
		Date:          t.DateCreatedTime().Format(time.RFC3339),
		ValidUntil:    t.DateExpiryTime().Format(time.RFC3339),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrRenderFailed, "failed to encode QR payload", err)
	}
	return string(data), nil
}

// QRCodePNG renders the payload as a PNG image with medium error
// correction.
func QRCodePNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, apperrors.New(apperrors.ErrInvalid, "QR payload is empty")
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, QRSize)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRenderFailed, "failed to render QR code", err)
	}
	return png, nil
}

// TicketQRCodePNG builds the payload for a ticket and renders it in one
// step.
func TicketQRCodePNG(t *models.Ticket) ([]byte, error) {
	payload, err := BuildQRPayload(t)
	if err != nil {
		return nil, err
	}
	return QRCodePNG(payload)
}
