package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"olympics-frontend/internal/models"
)

type verifyTicketRequest struct {
	FinalKey string `json:"final_key"`
}

type validateTicketResponse struct {
	Message string `json:"message"`
}

// Dashboard returns per-offer sales statistics (admin only).
func (c *Client) Dashboard(ctx context.Context, ts TokenSource) ([]models.OfferStats, error) {
	var stats []models.OfferStats
	if err := c.do(ctx, ts, http.MethodGet, "/api/admin/dashboard/", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// VerifyTicket looks up a ticket by its final key (admin only). A miss
// surfaces as ErrNotFound.
func (c *Client) VerifyTicket(ctx context.Context, ts TokenSource, finalKey string) (*models.VerifiedTicket, error) {
	ticket := &models.VerifiedTicket{}
	if err := c.do(ctx, ts, http.MethodPost, "/api/admin/verify-ticket/", verifyTicketRequest{FinalKey: finalKey}, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ValidateTicket marks a verified ticket as used (admin only).
func (c *Client) ValidateTicket(ctx context.Context, ts TokenSource, ticketID int64) (string, error) {
	var resp validateTicketResponse
	path := fmt.Sprintf("/api/admin/tickets/%d/validate/", ticketID)
	if err := c.do(ctx, ts, http.MethodPost, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
