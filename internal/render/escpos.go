package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ctukiosk/backend/internal/models"
)

// ReceiptWidth is the character width of the 58mm thermal printer.
const ReceiptWidth = 32

// ESC/POS command sequences.
var (
	escInit      = []byte{0x1B, 0x40}
	escAlignLeft = []byte{0x1B, 0x61, 0x00}
	escAlignMid  = []byte{0x1B, 0x61, 0x01}
	escBoldOn    = []byte{0x1B, 0x45, 0x01}
	escBoldOff   = []byte{0x1B, 0x45, 0x00}
	escFeed3     = []byte{0x1B, 0x64, 0x03}
	escCut       = []byte{0x1D, 0x56, 0x42, 0x00}
)

// ESCPOSJob encodes a ticket receipt as a raw byte stream for a 58mm
// ESC/POS thermal printer.
func ESCPOSJob(t *models.Ticket, header string) []byte {
	var buf bytes.Buffer

	buf.Write(escInit)

	buf.Write(escAlignMid)
	buf.Write(escBoldOn)
	writeLine(&buf, header)
	buf.Write(escBoldOff)
	writeLine(&buf, "FACILITY ACCESS TICKET")
	writeLine(&buf, separator())

	buf.Write(escAlignLeft)
	writeKV(&buf, "Ref", t.ReferenceNumber)
	writeKV(&buf, "Name", t.Name)
	if t.Age != nil {
		writeKV(&buf, "Age", fmt.Sprintf("%d", *t.Age))
	}
	writeKV(&buf, "Facility", t.Facility)
	if t.HasDiscount {
		writeKV(&buf, "Regular", peso(t.OriginalPrice))
		writeKV(&buf, "Discount", peso(t.OriginalPrice-t.PaymentAmount))
	}
	writeKV(&buf, "Amount", peso(t.PaymentAmount))
	if t.MethodType != "" {
		writeKV(&buf, "Paid via", t.MethodType)
		writeKV(&buf, "Inserted", peso(t.AmountInserted))
		writeKV(&buf, "Change", peso(t.ChangeGiven))
	}
	writeKV(&buf, "Issued", t.DateCreatedTime().Format("Jan 2 2006 3:04 PM"))
	writeKV(&buf, "Valid to", t.DateExpiryTime().Format("Jan 2 2006 3:04 PM"))
	writeLine(&buf, separator())

	if t.QRCodeData != "" {
		buf.Write(escAlignMid)
		buf.Write(qrBlock(t.QRCodeData))
	}

	buf.Write(escAlignMid)
	writeLine(&buf, "Valid until end of day only")
	writeLine(&buf, "Thank you!")

	buf.Write(escFeed3)
	buf.Write(escCut)
	return buf.Bytes()
}

// qrBlock emits the GS ( k model-2 QR sequence: model, module size,
// error correction, data store and print.
func qrBlock(data string) []byte {
	var buf bytes.Buffer

	// Select model 2.
	buf.Write([]byte{0x1D, 0x28, 0x6B, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00})
	// Module size 4 dots.
	buf.Write([]byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43, 0x04})
	// Error correction level M.
	buf.Write([]byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, 0x31})

	// Store data. Payload length plus 3 header bytes, little endian.
	n := len(data) + 3
	buf.Write([]byte{0x1D, 0x28, 0x6B, byte(n & 0xFF), byte(n >> 8), 0x31, 0x50, 0x30})
	buf.WriteString(data)

	// Print the stored symbol.
	buf.Write([]byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30})
	return buf.Bytes()
}

// writeKV emits a left-aligned key with a right-aligned value padded to
// the receipt width.
func writeKV(buf *bytes.Buffer, key, value string) {
	pad := ReceiptWidth - len(key) - len(value) - 1
	if pad < 1 {
		writeLine(buf, key+" "+value)
		return
	}
	writeLine(buf, key+":"+strings.Repeat(" ", pad)+value)
}

func writeLine(buf *bytes.Buffer, line string) {
	if len(line) > ReceiptWidth {
		line = line[:ReceiptWidth]
	}
	buf.WriteString(line)
	buf.WriteByte('\n')
}

func separator() string {
	return strings.Repeat("-", ReceiptWidth)
}

// peso formats an amount for the receipt. The printer code page has no
// peso sign, so the ASCII form is used.
func peso(v float64) string {
	return fmt.Sprintf("PHP %.2f", v)
}
