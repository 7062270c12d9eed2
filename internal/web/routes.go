package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"olympics-frontend/internal/apiclient"
	"olympics-frontend/internal/session"
)

// Server holds the handlers' shared dependencies.
type Server struct {
	api           *apiclient.Client
	sessions      *session.Manager
	logger        *slog.Logger
	limiter       *loginLimiter
	tickets       *ticketCache
	secureCookies bool
}

// NewServer creates the web front-end server.
func NewServer(api *apiclient.Client, sessions *session.Manager, logger *slog.Logger, secureCookies bool) *Server {
	return &Server{
		api:           api,
		sessions:      sessions,
		logger:        logger,
		limiter:       defaultLoginLimiter(),
		tickets:       newTicketCache(30 * time.Second),
		secureCookies: secureCookies,
	}
}

// RegisterRoutes sets up all page routes.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.Use(s.LoadSession())

	e.GET("/health", healthCheck)

	// Public pages
	e.GET("/", s.homePage)
	e.GET("/offers", s.offersPage)
	e.GET("/login", s.loginPage)
	e.POST("/login", s.handleLogin, s.limiter.middleware())
	e.GET("/register", s.registerPage)
	e.POST("/register", s.handleRegister)
	e.POST("/logout", s.handleLogout)

	// Purchasing checks authentication itself so anonymous visitors get a
	// notice on the offers page instead of a bare redirect.
	e.POST("/offers/:id/purchase", s.handlePurchase)

	// Ticket pages (authenticated)
	tickets := e.Group("/my-tickets")
	tickets.Use(s.RequireAuth())
	tickets.GET("", s.ticketsPage)
	tickets.GET("/:id/qr.png", s.ticketQRCode)

	// Admin console
	admin := e.Group("/admin")
	admin.Use(s.RequireAdmin())
	admin.GET("", s.adminDashboard)
	admin.POST("/offers", s.handleCreateOffer)
	admin.POST("/offers/:id", s.handleUpdateOffer)
	admin.POST("/offers/:id/delete", s.handleDeleteOffer)
	admin.GET("/validate", s.validatePage)
	admin.POST("/validate", s.handleVerifyTicket)
	admin.POST("/validate/:id/confirm", s.handleValidateTicket)
}

func healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// redirectAPIError converts session-level API failures into redirects, and
// returns false when the error needs page-specific handling instead.
func (s *Server) redirectAPIError(c echo.Context, err error) (error, bool) {
	switch {
	case errors.Is(err, apiclient.ErrSessionExpired), errors.Is(err, apiclient.ErrUnauthorized):
		clearSessionCookie(c)
		setFlash(c, "Your session has expired, please log in again")
		return c.Redirect(http.StatusSeeOther, "/login"), true
	case errors.Is(err, apiclient.ErrForbidden):
		setFlash(c, "You do not have permission to do that")
		return c.Redirect(http.StatusSeeOther, "/"), true
	default:
		return nil, false
	}
}

// renderError shows the generic failure page for errors the user cannot
// act on beyond retrying.
func (s *Server) renderError(c echo.Context, err error, message string) error {
	s.logger.Error("page error",
		slog.String("path", c.Request().URL.Path),
		slog.String("error", err.Error()))

	status := http.StatusInternalServerError
	if errors.Is(err, apiclient.ErrNetwork) {
		status = http.StatusBadGateway
	}
	data := s.newPageData(c, "Something went wrong", nil)
	data.Error = message
	return c.Render(status, "error.html", data)
}
