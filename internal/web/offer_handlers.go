package web

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// homePage handles GET /
func (s *Server) homePage(c echo.Context) error {
	return c.Render(http.StatusOK, "home.html", s.newPageData(c, "Olympic Games Tickets", nil))
}

// offersPage handles GET /offers
func (s *Server) offersPage(c echo.Context) error {
	offers, err := s.api.ListOffers(c.Request().Context(), s.tokenSource(c))
	if err != nil {
		if redirect, handled := s.redirectAPIError(c, err); handled {
			return redirect
		}
		return s.renderError(c, err, "Failed to load offers. Please try again later.")
	}
	return c.Render(http.StatusOK, "offers.html", s.newPageData(c, "Ticket Offers", offers))
}

// handlePurchase handles POST /offers/:id/purchase. Anonymous visitors are
// turned away before any call to the API goes out.
func (s *Server) handlePurchase(c echo.Context) error {
	sess := sessionFromContext(c)
	if !sess.IsAuthenticated() {
		setFlash(c, "Please log in to purchase tickets")
		return c.Redirect(http.StatusSeeOther, "/login?next=%2Foffers")
	}

	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		setFlash(c, "Unknown offer")
		return c.Redirect(http.StatusSeeOther, "/offers")
	}

	result, err := s.api.Purchase(c.Request().Context(), s.sessions.TokenSource(sess), offerID)
	if err != nil {
		if redirect, handled := s.redirectAPIError(c, err); handled {
			return redirect
		}
		c.Logger().Error("purchase error: ", err)
		setFlash(c, "Failed to purchase ticket. Please try again.")
		return c.Redirect(http.StatusSeeOther, "/offers")
	}

	s.tickets.invalidate(sess.ID)
	setFlash(c, "Ticket purchased successfully: "+result.Offer)
	return c.Redirect(http.StatusSeeOther, "/my-tickets")
}
