package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"olympics-frontend/internal/apiclient"
)

// loginForm carries login page state back into the template on failure.
type loginForm struct {
	Email string
	Error string
	Next  string
}

// registerForm carries register page state, including per-field errors.
type registerForm struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Errors    map[string]string
	Error     string
}

// loginPage handles GET /login
func (s *Server) loginPage(c echo.Context) error {
	if sessionFromContext(c).IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	form := loginForm{Next: safeNext(c.QueryParam("next"))}
	return c.Render(http.StatusOK, "login.html", s.newPageData(c, "Log in", form))
}

// handleLogin handles POST /login
func (s *Server) handleLogin(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	password := c.FormValue("password")
	next := safeNext(c.FormValue("next"))

	form := loginForm{Email: email, Next: next}
	if email == "" || password == "" {
		form.Error = "Email and password are required"
		return c.Render(http.StatusBadRequest, "login.html", s.newPageData(c, "Log in", form))
	}

	token, sess, err := s.sessions.Login(c.Request().Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, apiclient.ErrInvalidCredentials):
			form.Error = "Invalid email or password"
			return c.Render(http.StatusUnauthorized, "login.html", s.newPageData(c, "Log in", form))
		case errors.Is(err, apiclient.ErrNetwork):
			form.Error = "Could not reach the ticket service, please try again"
			return c.Render(http.StatusBadGateway, "login.html", s.newPageData(c, "Log in", form))
		default:
			form.Error = "Login failed, please try again"
			c.Logger().Error("login error: ", err)
			return c.Render(http.StatusInternalServerError, "login.html", s.newPageData(c, "Log in", form))
		}
	}

	s.limiter.recordSuccess(c.RealIP())
	s.setSessionCookie(c, token, sess.ExpiresAt)
	return c.Redirect(http.StatusSeeOther, next)
}

// registerPage handles GET /register
func (s *Server) registerPage(c echo.Context) error {
	if sessionFromContext(c).IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.Render(http.StatusOK, "register.html", s.newPageData(c, "Register", registerForm{}))
}

// handleRegister handles POST /register. On success the new account is
// logged in immediately.
func (s *Server) handleRegister(c echo.Context) error {
	form := registerForm{
		Username:  strings.TrimSpace(c.FormValue("username")),
		Email:     strings.ToLower(strings.TrimSpace(c.FormValue("email"))),
		FirstName: strings.TrimSpace(c.FormValue("first_name")),
		LastName:  strings.TrimSpace(c.FormValue("last_name")),
		Errors:    map[string]string{},
	}
	password := c.FormValue("password")
	confirm := c.FormValue("confirm_password")

	if password != confirm {
		form.Errors["confirm_password"] = "Passwords do not match"
		return c.Render(http.StatusBadRequest, "register.html", s.newPageData(c, "Register", form))
	}

	req := apiclient.RegisterRequest{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  password,
		Password2: confirm,
	}

	token, sess, err := s.sessions.Register(c.Request().Context(), req)
	if err != nil {
		var vErr *apiclient.ValidationError
		switch {
		case errors.As(err, &vErr):
			form.Errors = vErr.Fields
			return c.Render(http.StatusBadRequest, "register.html", s.newPageData(c, "Register", form))
		case errors.Is(err, apiclient.ErrNetwork):
			form.Error = "Could not reach the ticket service, please try again"
			return c.Render(http.StatusBadGateway, "register.html", s.newPageData(c, "Register", form))
		default:
			form.Error = "Registration failed, please try again"
			c.Logger().Error("register error: ", err)
			return c.Render(http.StatusInternalServerError, "register.html", s.newPageData(c, "Register", form))
		}
	}

	s.setSessionCookie(c, token, sess.ExpiresAt)
	setFlash(c, "Welcome! Your account has been created")
	return c.Redirect(http.StatusSeeOther, "/")
}

// handleLogout handles POST /logout. Logging out twice is a no-op.
func (s *Server) handleLogout(c echo.Context) error {
	if err := s.sessions.Logout(sessionToken(c)); err != nil {
		c.Logger().Error("logout error: ", err)
	}
	clearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}
