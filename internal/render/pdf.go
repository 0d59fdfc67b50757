package render

import (
	"bytes"
	"os"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/creator"

	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/models"
)

var licenseOnce sync.Once

// loadLicense applies the UniDoc license key from the environment. A
// missing key leaves the library in evaluation mode.
func loadLicense() {
	licenseOnce.Do(func() {
		if key := os.Getenv("UNIDOC_LICENSE_API_KEY"); key != "" {
			_ = license.SetMeteredKey(key)
		}
	})
}

// ReceiptPDF renders a printable A5 receipt for a ticket, with the QR
// code embedded when the ticket carries one.
func ReceiptPDF(t *models.Ticket, header string) ([]byte, error) {
	loadLicense()

	c := creator.New()
	// A5 in points; receipt-sized but large enough for the QR code.
	c.SetPageSize(creator.PageSize{420, 595})
	c.SetPageMargins(36, 36, 36, 36)
	c.NewPage()

	title := c.NewParagraph(header)
	title.SetFontSize(16)
	title.SetTextAlignment(creator.TextAlignmentCenter)
	if err := c.Draw(title); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRenderFailed, "failed to draw receipt header", err)
	}

	sub := c.NewParagraph("Facility Access Ticket")
	sub.SetFontSize(11)
	sub.SetTextAlignment(creator.TextAlignmentCenter)
	sub.SetMargins(0, 0, 4, 16)
	if err := c.Draw(sub); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRenderFailed, "failed to draw receipt subtitle", err)
	}

	for _, line := range receiptLines(t) {
		p := c.NewParagraph(line)
		p.SetFontSize(10)
		p.SetMargins(0, 0, 2, 2)
		if err := c.Draw(p); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrRenderFailed, "failed to draw receipt line", err)
		}
	}

	if t.QRCodeData != "" {
		png, err := QRCodePNG(t.QRCodeData)
		if err != nil {
			return nil, err
		}
		img, err := c.NewImageFromData(png)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrRenderFailed, "failed to embed QR image", err)
		}
		img.ScaleToWidth(120)
		img.SetMargins(0, 0, 16, 0)
		if err := c.Draw(img); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrRenderFailed, "failed to draw QR image", err)
		}
	}

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRenderFailed, "failed to write receipt PDF", err)
	}
	return buf.Bytes(), nil
}

// receiptLines builds the textual body shared between the PDF receipt
// and any future print formats.
func receiptLines(t *models.Ticket) []string {
	lines := []string{
		"Reference: " + t.ReferenceNumber,
		"Name: " + t.Name,
		"Facility: " + t.Facility,
	}
	if t.HasDiscount {
		lines = append(lines,
			"Regular price: "+peso(t.OriginalPrice),
			"Discount: "+peso(t.OriginalPrice-t.PaymentAmount),
		)
	}
	lines = append(lines, "Amount paid: "+peso(t.PaymentAmount))
	if t.MethodType != "" {
		lines = append(lines,
			"Payment method: "+t.MethodType,
			"Amount inserted: "+peso(t.AmountInserted),
			"Change: "+peso(t.ChangeGiven),
		)
	}
	lines = append(lines,
		"Issued: "+t.DateCreatedTime().Format("Jan 2 2006 3:04 PM"),
		"Valid until: "+t.DateExpiryTime().Format("Jan 2 2006 3:04 PM"),
		"Status: "+t.TransactionStatus,
	)
	return lines
}
