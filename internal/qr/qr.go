// Package qr renders ticket ids as QR codes for printed or emailed
// tickets. The scanned payload is the bare ticket id.
package qr

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/models"
)

const imageSize = 256

// TicketQR pairs a ticket with its rendered code for the admin UI.
type TicketQR struct {
	TicketID string `json:"ticket_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	QRCode   string `json:"qr_code"` // base64 PNG
}

// Generate renders one ticket id as a PNG QR code.
func Generate(ticketID string) ([]byte, error) {
	return qrcode.Encode(ticketID, qrcode.Medium, imageSize)
}

// GenerateBatch renders codes for every ticket in the snapshot.
func GenerateBatch(tickets []models.Ticket) ([]TicketQR, error) {
	codes := make([]TicketQR, 0, len(tickets))
	for _, t := range tickets {
		png, err := Generate(t.ID)
		if err != nil {
			return nil, err
		}
		codes = append(codes, TicketQR{
			TicketID: t.ID,
			Name:     t.HolderName,
			Email:    t.HolderEmail,
			QRCode:   base64.StdEncoding.EncodeToString(png),
		})
	}
	return codes, nil
}
