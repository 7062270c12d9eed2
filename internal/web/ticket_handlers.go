package web

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"olympics-frontend/internal/qr"
)

// ticketsPage handles GET /my-tickets. The page always fetches a fresh
// listing and primes the cache for the QR image requests it fans out.
func (s *Server) ticketsPage(c echo.Context) error {
	sess := sessionFromContext(c)
	tickets, err := s.api.ListTickets(c.Request().Context(), s.sessions.TokenSource(sess))
	if err != nil {
		if redirect, handled := s.redirectAPIError(c, err); handled {
			return redirect
		}
		return s.renderError(c, err, "Failed to load your tickets. Please try again later.")
	}
	s.tickets.put(sess.ID, tickets)
	return c.Render(http.StatusOK, "tickets.html", s.newPageData(c, "My Tickets", tickets))
}

// ticketQRCode handles GET /my-tickets/:id/qr.png. The code is rendered
// locally from the ticket's final key, so it works even when the backend's
// stored image is unreachable from the browser.
func (s *Server) ticketQRCode(c echo.Context) error {
	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	sess := sessionFromContext(c)
	tickets, ok := s.tickets.get(sess.ID)
	if !ok {
		tickets, err = s.api.ListTickets(c.Request().Context(), s.sessions.TokenSource(sess))
		if err != nil {
			if redirect, handled := s.redirectAPIError(c, err); handled {
				return redirect
			}
			return echo.NewHTTPError(http.StatusBadGateway, "failed to load tickets")
		}
		s.tickets.put(sess.ID, tickets)
	}

	// Ownership check is implicit: the listing only contains the current
	// user's tickets.
	for _, t := range tickets {
		if t.ID == ticketID {
			png, err := qr.Encode(t.FinalKey, 256)
			if err != nil {
				c.Logger().Error("render ticket QR: ", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to render QR code")
			}
			return c.Blob(http.StatusOK, "image/png", png)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
}
