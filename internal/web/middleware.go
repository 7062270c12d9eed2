package web

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"olympics-frontend/internal/apiclient"
	"olympics-frontend/internal/models"
	"olympics-frontend/internal/session"
)

// Context keys for request-scoped session state
const (
	ContextKeySession = "session"

	sessionCookieName = "session_token"
	flashCookieName   = "flash"
)

// LoadSession resolves the session cookie into a session, if one exists.
// It never rejects the request; guards that require authentication build
// on top of it.
func (s *Server) LoadSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := sessionToken(c)
			if token != "" {
				sess, err := s.sessions.Load(c.Request().Context(), token)
				switch {
				case err == nil:
					c.Set(ContextKeySession, sess)
				case errors.Is(err, session.ErrNotAuthenticated):
					clearSessionCookie(c)
				default:
					c.Logger().Error("load session: ", err)
				}
			}
			return next(c)
		}
	}
}

// RequireAuth redirects unauthenticated visitors to the login page,
// remembering where they were headed.
func (s *Server) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := sessionFromContext(c)
			if !sess.IsAuthenticated() {
				setFlash(c, "Please log in to continue")
				return c.Redirect(http.StatusSeeOther, loginURL(c))
			}
			return next(c)
		}
	}
}

// RequireAdmin gates the admin console. Must be used after RequireAuth.
func (s *Server) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := sessionFromContext(c)
			if !sess.IsAuthenticated() {
				setFlash(c, "Please log in to continue")
				return c.Redirect(http.StatusSeeOther, loginURL(c))
			}
			if !sess.IsAdmin() {
				setFlash(c, "You do not have access to the admin console")
				return c.Redirect(http.StatusSeeOther, "/")
			}
			return next(c)
		}
	}
}

// sessionFromContext retrieves the session loaded by LoadSession, or nil.
func sessionFromContext(c echo.Context) *models.Session {
	sess, ok := c.Get(ContextKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return sess
}

// tokenSource returns the API credential source for the current session,
// or nil when the visitor is anonymous.
func (s *Server) tokenSource(c echo.Context) apiclient.TokenSource {
	sess := sessionFromContext(c)
	if sess == nil {
		return nil
	}
	return s.sessions.TokenSource(sess)
}

func sessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

func (s *Server) setSessionCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// setFlash stores a one-shot notice shown on the next rendered page.
func setFlash(c echo.Context, message string) {
	c.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(message),
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60,
	})
}

// popFlash reads and clears the pending flash message.
func popFlash(c echo.Context) string {
	cookie, err := c.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}

// loginURL builds the login redirect preserving the requested page.
func loginURL(c echo.Context) string {
	next := c.Request().URL.Path
	if next == "" || next == "/login" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// safeNext validates a post-login redirect target. Only local paths are
// honored.
func safeNext(next string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && next[1] == '/') {
		return "/"
	}
	return next
}
