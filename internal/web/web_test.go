package web

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olympics-frontend/internal/apiclient"
	"olympics-frontend/internal/database"
	"olympics-frontend/internal/models"
	"olympics-frontend/internal/qr"
	"olympics-frontend/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// newTestApp wires the full front end against a fake reservation API. Any
// opts run on the server before routes are registered.
func newTestApp(t *testing.T, backend http.Handler, opts ...func(*Server)) (*echo.Echo, *Server, *database.SessionRepo) {
	t.Helper()
	require.NoError(t, database.Open(database.Config{Path: filepath.Join(t.TempDir(), "sessions.db")}))
	t.Cleanup(func() { _ = database.Close() })

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	repo := database.NewSessionRepo()
	api := apiclient.New(srv.URL, 5*time.Second, testLogger())
	sessions := session.NewManager(repo, api, time.Hour, testLogger())

	renderer, err := NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	s := NewServer(api, sessions, testLogger(), false)
	for _, opt := range opts {
		opt(s)
	}
	s.RegisterRoutes(e)
	return e, s, repo
}

// loggedInCookie persists an authenticated session and returns its cookie.
func loggedInCookie(t *testing.T, repo *database.SessionRepo, user *models.User) *http.Cookie {
	t.Helper()
	pair := models.TokenPair{Access: "access-1", Refresh: "refresh-1"}
	token, _, err := repo.Create(pair, user, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookieName, Value: token}
}

func flashMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flashCookieName && cookie.Value != "" {
			msg, err := url.QueryUnescape(cookie.Value)
			require.NoError(t, err)
			return msg
		}
	}
	return ""
}

func regularUser() *models.User {
	return &models.User{ID: 7, Email: "jo@example.org", FirstName: "Jo", LastName: "Martin"}
}

func adminUser() *models.User {
	u := regularUser()
	u.IsStaff = true
	return u
}

func TestHealthCheck(t *testing.T) {
	e, _, _ := newTestApp(t, http.NewServeMux())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestPurchaseRequiresLoginBeforeAnyAPICall(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected API call from anonymous purchase: %s %s", r.Method, r.URL.Path)
	})
	e, _, _ := newTestApp(t, backend)

	req := httptest.NewRequest(http.MethodPost, "/offers/1/purchase", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Foffers", rec.Header().Get("Location"))
	assert.Contains(t, flashMessage(t, rec), "log in to purchase")
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	e, _, _ := newTestApp(t, http.NewServeMux())

	req := httptest.NewRequest(http.MethodGet, "/my-tickets", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fmy-tickets", rec.Header().Get("Location"))
}

func TestRequireAdminRejectsRegularUser(t *testing.T) {
	e, _, repo := newTestApp(t, http.NewServeMux())
	cookie := loggedInCookie(t, repo, regularUser())

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, flashMessage(t, rec), "admin")
}

func TestAdminDashboardForStaff(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/dashboard/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK,
			`[{"offer": {"id": 1, "name": "Duo Pass"}, "sales_count": 12, "last_updated": "2024-07-01T10:00:00Z"}]`)
	})
	mux.HandleFunc("/api/ticket-offers/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK,
			`[{"id": 1, "name": "Duo Pass", "offer_type": "DUO", "price": 120, "available": true}]`)
	})
	e, _, repo := newTestApp(t, mux)
	cookie := loggedInCookie(t, repo, adminUser())

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Duo Pass")
	assert.Contains(t, rec.Body.String(), "12")
}

func TestLoginFlowSetsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"access": "access-1", "refresh": "refresh-1"}`)
	})
	mux.HandleFunc("/api/user/me/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id": 7, "email": "jo@example.org", "first_name": "Jo", "last_name": "Martin"}`)
	})
	e, _, _ := newTestApp(t, mux)

	form := url.Values{"email": {"jo@example.org"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	assert.NotEmpty(t, sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)

	// The cookie now opens authenticated pages.
	mux.HandleFunc("/api/tickets/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	req = httptest.NewRequest(http.MethodGet, "/my-tickets", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error": "Invalid email or password"}`)
	})
	e, _, _ := newTestApp(t, mux)

	form := url.Values{"email": {"jo@example.org"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
}

func TestLoginRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error": "Invalid email or password"}`)
	})
	e, _, _ := newTestApp(t, mux, func(s *Server) {
		s.limiter = newLoginLimiter(1, time.Minute, time.Minute)
	})

	form := url.Values{"email": {"jo@example.org"}, "password": {"wrong"}}
	submit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, submit().Code)

	rec := submit()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Contains(t, flashMessage(t, rec), "Too many login attempts")
}

func TestRegisterShowsFieldErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"email": ["A user with this email already exists."]}`)
	})
	e, _, _ := newTestApp(t, mux)

	form := url.Values{
		"username": {"jo"}, "email": {"jo@example.org"},
		"first_name": {"Jo"}, "last_name": {"Martin"},
		"password": {"Secret1!"}, "confirm_password": {"Secret1!"},
	}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "A user with this email already exists.")
}

func TestRegisterPasswordMismatchSkipsAPI(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected API call on mismatched passwords: %s %s", r.Method, r.URL.Path)
	})
	e, _, _ := newTestApp(t, backend)

	form := url.Values{
		"username": {"jo"}, "email": {"jo@example.org"},
		"first_name": {"Jo"}, "last_name": {"Martin"},
		"password": {"Secret1!"}, "confirm_password": {"Different1!"},
	}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")
}

func TestLogoutIsIdempotent(t *testing.T) {
	e, _, repo := newTestApp(t, http.NewServeMux())
	cookie := loggedInCookie(t, repo, regularUser())

	logout := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := logout()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// A second logout with the stale cookie behaves the same.
	rec = logout()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestExpiredSessionRedirectsToLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tickets/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail": "token expired"}`)
	})
	mux.HandleFunc("/api/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail": "refresh token expired"}`)
	})
	e, _, repo := newTestApp(t, mux)
	cookie := loggedInCookie(t, repo, regularUser())

	req := httptest.NewRequest(http.MethodGet, "/my-tickets", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Contains(t, flashMessage(t, rec), "session has expired")
}

func TestTicketQRCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tickets/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK,
			`[{"id": 3, "final_key": "user-abc:offer-def", "offer": {"name": "Solo Pass"}, "purchase_date": "2024-07-01T10:00:00Z"}]`)
	})
	e, _, repo := newTestApp(t, mux)
	cookie := loggedInCookie(t, repo, regularUser())

	req := httptest.NewRequest(http.MethodGet, "/my-tickets/3/qr.png", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	decoded, err := qr.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "user-abc:offer-def", decoded)

	// Tickets not in the user's listing are unreachable.
	req = httptest.NewRequest(http.MethodGet, "/my-tickets/99/qr.png", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicketQRCodeServedFromCachedListing(t *testing.T) {
	var listCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tickets/", func(w http.ResponseWriter, r *http.Request) {
		listCalls.Add(1)
		writeJSON(w, http.StatusOK,
			`[{"id": 3, "final_key": "user-abc:offer-def", "offer": {"name": "Solo Pass"}, "purchase_date": "2024-07-01T10:00:00Z"},
			  {"id": 4, "final_key": "user-abc:offer-ghi", "offer": {"name": "Duo Pass"}, "purchase_date": "2024-07-02T10:00:00Z"}]`)
	})
	e, _, repo := newTestApp(t, mux)
	cookie := loggedInCookie(t, repo, regularUser())

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, get("/my-tickets").Code)
	require.Equal(t, http.StatusOK, get("/my-tickets/3/qr.png").Code)
	require.Equal(t, http.StatusOK, get("/my-tickets/4/qr.png").Code)

	assert.Equal(t, int64(1), listCalls.Load(),
		"QR images reuse the listing the tickets page fetched")
}

func TestOffersPageListsOffers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ticket-offers/", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK,
			`[{"id": 1, "name": "Family Pack", "offer_type": "FAMILY", "description": "Four seats", "price": 240, "available": true}]`)
	})
	e, _, _ := newTestApp(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/offers", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Family Pack")
	assert.Contains(t, rec.Body.String(), "€240.00")
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/offers", "/offers"},
		{"/my-tickets", "/my-tickets"},
		{"https://evil.example.org", "/"},
		{"//evil.example.org", "/"},
		{"offers", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.in), "safeNext(%q)", tt.in)
	}
}
