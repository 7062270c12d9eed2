package models

import "time"

// TicketOffer is a purchasable offer as listed by GET /api/ticket-offers/.
type TicketOffer struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	OfferType   string  `json:"offer_type"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
}

// Ticket is one of the current user's tickets from GET /api/tickets/.
type Ticket struct {
	ID           int64       `json:"id"`
	Offer        TicketOffer `json:"offer"`
	PurchaseDate time.Time   `json:"purchase_date"`
	FinalKey     string      `json:"final_key"`
	QRCodeURL    string      `json:"qr_code_url,omitempty"`
	IsUsed       bool        `json:"is_used"`
}

// MaskedKey returns a truncated final key safe to show on the tickets page.
func (t Ticket) MaskedKey() string {
	if len(t.FinalKey) <= 8 {
		return t.FinalKey
	}
	return t.FinalKey[:8] + "..."
}

// PurchaseResult is the response of POST /api/tickets/purchase/.
type PurchaseResult struct {
	Status    string `json:"status"`
	TicketID  int64  `json:"ticket_id"`
	FinalKey  string `json:"final_key"`
	QRCodeURL string `json:"qr_code_url,omitempty"`
	Offer     string `json:"offer"`
}

// OfferStats is one row of the admin dashboard: sales per offer.
type OfferStats struct {
	Offer       TicketOffer `json:"offer"`
	SalesCount  int         `json:"sales_count"`
	LastUpdated time.Time   `json:"last_updated"`
}

// VerifiedTicket is the response of POST /api/admin/verify-ticket/.
type VerifiedTicket struct {
	TicketID     int64     `json:"ticket_id"`
	User         User      `json:"user"`
	Offer        OfferInfo `json:"offer"`
	PurchaseDate time.Time `json:"purchase_date"`
	IsUsed       bool      `json:"is_used"`
}

// OfferInfo is the offer summary embedded in a verified ticket.
type OfferInfo struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Price float64 `json:"price"`
}
