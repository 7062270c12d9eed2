package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"olympics-frontend/internal/apiclient"
	"olympics-frontend/internal/models"
	"olympics-frontend/internal/qr"
)

// adminDashboardData feeds the dashboard template: sales stats plus the
// offer list for the management forms.
type adminDashboardData struct {
	Stats  []models.OfferStats
	Offers []models.TicketOffer
}

// validatePageData feeds the ticket validation template.
type validatePageData struct {
	FinalKey string
	Ticket   *models.VerifiedTicket
	Error    string
	Success  string
}

// adminDashboard handles GET /admin
func (s *Server) adminDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	ts := s.tokenSource(c)

	stats, err := s.api.Dashboard(ctx, ts)
	if err != nil {
		if redirect, handled := s.redirectAPIError(c, err); handled {
			return redirect
		}
		return s.renderError(c, err, "Failed to load dashboard statistics.")
	}

	offers, err := s.api.ListOffers(ctx, ts)
	if err != nil {
		if redirect, handled := s.redirectAPIError(c, err); handled {
			return redirect
		}
		return s.renderError(c, err, "Failed to load offers.")
	}

	data := adminDashboardData{Stats: stats, Offers: offers}
	return c.Render(http.StatusOK, "admin_dashboard.html", s.newPageData(c, "Admin Dashboard", data))
}

// offerFromForm binds the offer management form fields.
func offerFromForm(c echo.Context) (apiclient.OfferRequest, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(c.FormValue("price")), 64)
	if err != nil || price < 0 {
		return apiclient.OfferRequest{}, errors.New("price must be a non-negative number")
	}
	req := apiclient.OfferRequest{
		Name:        strings.TrimSpace(c.FormValue("name")),
		OfferType:   c.FormValue("offer_type"),
		Description: strings.TrimSpace(c.FormValue("description")),
		Price:       price,
		Available:   c.FormValue("available") == "on",
	}
	if req.Name == "" {
		return apiclient.OfferRequest{}, errors.New("offer name is required")
	}
	return req, nil
}

// handleCreateOffer handles POST /admin/offers
func (s *Server) handleCreateOffer(c echo.Context) error {
	req, err := offerFromForm(c)
	if err != nil {
		setFlash(c, err.Error())
		return c.Redirect(http.StatusSeeOther, "/admin")
	}

	if _, err := s.api.CreateOffer(c.Request().Context(), s.tokenSource(c), req); err != nil {
		return s.offerActionError(c, err, "create")
	}
	setFlash(c, "Offer created")
	return c.Redirect(http.StatusSeeOther, "/admin")
}

// handleUpdateOffer handles POST /admin/offers/:id
func (s *Server) handleUpdateOffer(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		setFlash(c, "Unknown offer")
		return c.Redirect(http.StatusSeeOther, "/admin")
	}
	req, err := offerFromForm(c)
	if err != nil {
		setFlash(c, err.Error())
		return c.Redirect(http.StatusSeeOther, "/admin")
	}

	if _, err := s.api.UpdateOffer(c.Request().Context(), s.tokenSource(c), id, req); err != nil {
		return s.offerActionError(c, err, "update")
	}
	setFlash(c, "Offer updated")
	return c.Redirect(http.StatusSeeOther, "/admin")
}

// handleDeleteOffer handles POST /admin/offers/:id/delete
func (s *Server) handleDeleteOffer(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		setFlash(c, "Unknown offer")
		return c.Redirect(http.StatusSeeOther, "/admin")
	}

	if err := s.api.DeleteOffer(c.Request().Context(), s.tokenSource(c), id); err != nil {
		return s.offerActionError(c, err, "delete")
	}
	setFlash(c, "Offer deleted")
	return c.Redirect(http.StatusSeeOther, "/admin")
}

func (s *Server) offerActionError(c echo.Context, err error, action string) error {
	if redirect, handled := s.redirectAPIError(c, err); handled {
		return redirect
	}
	var vErr *apiclient.ValidationError
	if errors.As(err, &vErr) {
		setFlash(c, "Offer rejected: "+vErr.Error())
		return c.Redirect(http.StatusSeeOther, "/admin")
	}
	c.Logger().Error("offer "+action+" error: ", err)
	setFlash(c, "Failed to "+action+" offer, please try again")
	return c.Redirect(http.StatusSeeOther, "/admin")
}

// validatePage handles GET /admin/validate
func (s *Server) validatePage(c echo.Context) error {
	return c.Render(http.StatusOK, "admin_validate.html",
		s.newPageData(c, "Ticket Validation", validatePageData{}))
}

// handleVerifyTicket handles POST /admin/validate. The ticket key comes
// either from the text field or from an uploaded QR-code image, which is
// decoded server-side.
func (s *Server) handleVerifyTicket(c echo.Context) error {
	data := validatePageData{FinalKey: strings.TrimSpace(c.FormValue("final_key"))}

	if file, err := c.FormFile("qr_image"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			data.Error = "Could not read the uploaded image"
			return c.Render(http.StatusBadRequest, "admin_validate.html",
				s.newPageData(c, "Ticket Validation", data))
		}
		defer src.Close()

		key, err := qr.Decode(src)
		if err != nil {
			switch {
			case errors.Is(err, qr.ErrNoCode):
				data.Error = "No QR code was found in the uploaded image"
			default:
				data.Error = "The uploaded file is not a readable image"
			}
			return c.Render(http.StatusBadRequest, "admin_validate.html",
				s.newPageData(c, "Ticket Validation", data))
		}
		data.FinalKey = key
	}

	if data.FinalKey == "" {
		data.Error = "Enter a ticket key or upload a QR-code image"
		return c.Render(http.StatusBadRequest, "admin_validate.html",
			s.newPageData(c, "Ticket Validation", data))
	}

	ticket, err := s.api.VerifyTicket(c.Request().Context(), s.tokenSource(c), data.FinalKey)
	if err != nil {
		if redirect, handled := s.redirectAPIError(c, err); handled {
			return redirect
		}
		switch {
		case errors.Is(err, apiclient.ErrNotFound):
			data.Error = "No ticket matches this key"
		case errors.Is(err, apiclient.ErrNetwork):
			data.Error = "Could not reach the ticket service, please try again"
		default:
			c.Logger().Error("verify ticket error: ", err)
			data.Error = "Ticket verification failed, please try again"
		}
		return c.Render(http.StatusOK, "admin_validate.html",
			s.newPageData(c, "Ticket Validation", data))
	}

	data.Ticket = ticket
	return c.Render(http.StatusOK, "admin_validate.html",
		s.newPageData(c, "Ticket Validation", data))
}

// handleValidateTicket handles POST /admin/validate/:id/confirm, marking a
// verified ticket as used.
func (s *Server) handleValidateTicket(c echo.Context) error {
	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		setFlash(c, "Unknown ticket")
		return c.Redirect(http.StatusSeeOther, "/admin/validate")
	}

	message, err := s.api.ValidateTicket(c.Request().Context(), s.tokenSource(c), ticketID)
	if err != nil {
		if redirect, handled := s.redirectAPIError(c, err); handled {
			return redirect
		}
		switch {
		case errors.Is(err, apiclient.ErrNotFound):
			setFlash(c, "Ticket not found")
		default:
			c.Logger().Error("validate ticket error: ", err)
			setFlash(c, "Failed to validate ticket, please try again")
		}
		return c.Redirect(http.StatusSeeOther, "/admin/validate")
	}

	if message == "" {
		message = "Ticket validated"
	}
	setFlash(c, message)
	return c.Redirect(http.StatusSeeOther, "/admin/validate")
}
