package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"olympics-frontend/internal/apiclient"
	"olympics-frontend/internal/database"
	"olympics-frontend/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Manager owns the authentication lifecycle for browser sessions. It is the
// only component that mutates the token pair or user snapshot; everything
// else reads through the Session it hands out.
type Manager struct {
	repo   *database.SessionRepo
	api    *apiclient.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewManager creates a session manager.
func NewManager(repo *database.SessionRepo, api *apiclient.Client, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{repo: repo, api: api, ttl: ttl, logger: logger}
}

// Login authenticates against the API, fetches the user snapshot, and
// persists a new session. On failure the caller's prior state is untouched.
// Returns the plain cookie token for the browser.
func (m *Manager) Login(ctx context.Context, email, password string) (string, *models.Session, error) {
	pair, err := m.api.Login(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	// The user snapshot is fetched with the just-obtained pair before any
	// row exists, so a failed fetch leaves nothing behind.
	user, err := m.api.CurrentUser(ctx, newMemorySource(pair))
	if err != nil {
		return "", nil, fmt.Errorf("fetch current user after login: %w", err)
	}

	token, sess, err := m.repo.Create(pair, user, m.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("persist session: %w", err)
	}

	m.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.Bool("is_admin", user.IsAdmin()))
	return token, sess, nil
}

// Register creates an account then logs it in, mirroring the registration
// flow's automatic sign-in.
func (m *Manager) Register(ctx context.Context, req apiclient.RegisterRequest) (string, *models.Session, error) {
	if err := m.api.Register(ctx, req); err != nil {
		return "", nil, err
	}
	return m.Login(ctx, req.Email, req.Password)
}

// Logout discards the session. Calling it twice leaves the same cleared
// state as calling it once.
func (m *Manager) Logout(token string) error {
	if token == "" {
		return nil
	}
	return m.repo.DeleteByToken(token)
}

// Load restores the session for a cookie token. A session whose snapshot
// has not been revalidated yet is verified against the API; any failure
// there discards the stored tokens and reports ErrNotAuthenticated.
func (m *Manager) Load(ctx context.Context, token string) (*models.Session, error) {
	sess, err := m.repo.GetByToken(token)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) || errors.Is(err, database.ErrSessionExpired) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	if sess.Status == models.StatusAuthenticating {
		if err := m.revalidate(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// RefreshUser refetches the user snapshot on demand.
func (m *Manager) RefreshUser(ctx context.Context, sess *models.Session) error {
	user, err := m.api.CurrentUser(ctx, m.TokenSource(sess))
	if err != nil {
		return err
	}
	if err := m.repo.UpdateUser(sess.ID, user); err != nil {
		return err
	}
	sess.User = user
	sess.Status = models.StatusAuthenticated
	return nil
}

// revalidate performs the authenticating step: fetch the current user with
// the persisted access token. Any failure clears the stored tokens.
func (m *Manager) revalidate(ctx context.Context, sess *models.Session) error {
	if err := m.RefreshUser(ctx, sess); err != nil {
		if delErr := m.repo.Delete(sess.ID); delErr != nil {
			m.logger.Error("failed to discard stale session", slog.String("error", delErr.Error()))
		}
		m.logger.Info("session revalidation failed, tokens discarded", slog.String("error", err.Error()))
		return ErrNotAuthenticated
	}
	return nil
}

// TokenSource returns the write-through credential source for a session,
// suitable for passing to the API client.
func (m *Manager) TokenSource(sess *models.Session) apiclient.TokenSource {
	return &repoSource{repo: m.repo, sess: sess}
}

// repoSource adapts a persisted session row to apiclient.TokenSource.
// Token mutations write through to the database immediately.
type repoSource struct {
	repo *database.SessionRepo
	sess *models.Session
}

func (s *repoSource) Key() string {
	return fmt.Sprintf("session-%d", s.sess.ID)
}

func (s *repoSource) Tokens() (string, string) {
	return s.sess.AccessToken, s.sess.RefreshToken
}

func (s *repoSource) StoreAccessToken(access string) error {
	if err := s.repo.UpdateAccessToken(s.sess.ID, access); err != nil {
		return err
	}
	s.sess.AccessToken = access
	return nil
}

func (s *repoSource) Invalidate() error {
	s.sess.AccessToken = ""
	s.sess.RefreshToken = ""
	s.sess.User = nil
	s.sess.Status = models.StatusUnauthenticated
	return s.repo.Delete(s.sess.ID)
}

// memorySource holds a token pair that is not persisted yet. Used for the
// fetch-current-user step between login and session creation.
type memorySource struct {
	key  string
	pair models.TokenPair
}

func newMemorySource(pair models.TokenPair) *memorySource {
	return &memorySource{key: "login-" + uuid.NewString(), pair: pair}
}

func (s *memorySource) Key() string              { return s.key }
func (s *memorySource) Tokens() (string, string) { return s.pair.Access, s.pair.Refresh }
func (s *memorySource) StoreAccessToken(access string) error {
	s.pair.Access = access
	return nil
}
func (s *memorySource) Invalidate() error {
	s.pair = models.TokenPair{}
	return nil
}
