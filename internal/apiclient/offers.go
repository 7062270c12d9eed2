package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"olympics-frontend/internal/models"
)

// OfferRequest is the body for creating or updating a ticket offer.
type OfferRequest struct {
	Name        string  `json:"name"`
	OfferType   string  `json:"offer_type"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
}

// ListOffers returns the available ticket offers. The listing is public,
// but the bearer credential is attached when present so the server can
// tailor availability.
func (c *Client) ListOffers(ctx context.Context, ts TokenSource) ([]models.TicketOffer, error) {
	var offers []models.TicketOffer
	if err := c.do(ctx, ts, http.MethodGet, "/api/ticket-offers/", nil, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

// CreateOffer adds a new ticket offer (admin only).
func (c *Client) CreateOffer(ctx context.Context, ts TokenSource, req OfferRequest) (*models.TicketOffer, error) {
	offer := &models.TicketOffer{}
	if err := c.do(ctx, ts, http.MethodPost, "/api/admin/offers/", req, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// UpdateOffer replaces an existing ticket offer (admin only).
func (c *Client) UpdateOffer(ctx context.Context, ts TokenSource, id int64, req OfferRequest) (*models.TicketOffer, error) {
	offer := &models.TicketOffer{}
	path := fmt.Sprintf("/api/admin/offers/%d/", id)
	if err := c.do(ctx, ts, http.MethodPut, path, req, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// DeleteOffer removes a ticket offer (admin only).
func (c *Client) DeleteOffer(ctx context.Context, ts TokenSource, id int64) error {
	path := fmt.Sprintf("/api/admin/offers/%d/", id)
	return c.do(ctx, ts, http.MethodDelete, path, nil, nil)
}
