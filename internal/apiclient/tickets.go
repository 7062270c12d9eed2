package apiclient

import (
	"context"
	"net/http"

	"olympics-frontend/internal/models"
)

type purchaseRequest struct {
	OfferID int64 `json:"offer_id"`
}

// Purchase buys a ticket for the given offer on behalf of the current user.
func (c *Client) Purchase(ctx context.Context, ts TokenSource, offerID int64) (*models.PurchaseResult, error) {
	result := &models.PurchaseResult{}
	if err := c.do(ctx, ts, http.MethodPost, "/api/tickets/purchase/", purchaseRequest{OfferID: offerID}, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListTickets returns the current user's tickets.
func (c *Client) ListTickets(ctx context.Context, ts TokenSource) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := c.do(ctx, ts, http.MethodGet, "/api/tickets/", nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}
