package database

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"olympics-frontend/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionRepo handles session database operations. Each row stores the
// bearer token pair for one browser session plus a cached user snapshot.
type SessionRepo struct{}

// NewSessionRepo creates a new session repository
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{}
}

// Create creates a new session holding the given token pair and user
// snapshot, and returns the plain cookie token.
func (r *SessionRepo) Create(pair models.TokenPair, user *models.User, duration time.Duration) (string, *models.Session, error) {
	// Generate random cookie token
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, err
	}
	token := hex.EncodeToString(tokenBytes)
	tokenHash := hashToken(token)

	userJSON, err := marshalUser(user)
	if err != nil {
		return "", nil, err
	}

	session := &models.Session{
		TokenHash:    tokenHash,
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		User:         user,
		Status:       models.StatusAuthenticated,
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(duration),
	}

	result, err := DB.Exec(`
		INSERT INTO sessions (token_hash, access_token, refresh_token, user_json, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.TokenHash, session.AccessToken, session.RefreshToken, userJSON, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return "", nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, err
	}
	session.ID = id

	return token, session, nil
}

// GetByToken retrieves a session by its plain cookie token
func (r *SessionRepo) GetByToken(token string) (*models.Session, error) {
	session := &models.Session{}
	var userJSON sql.NullString

	err := DB.QueryRow(`
		SELECT id, token_hash, access_token, refresh_token, user_json, created_at, expires_at
		FROM sessions WHERE token_hash = ?
	`, hashToken(token)).Scan(
		&session.ID, &session.TokenHash, &session.AccessToken, &session.RefreshToken,
		&userJSON, &session.CreatedAt, &session.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	// Check if expired
	if time.Now().After(session.ExpiresAt) {
		r.Delete(session.ID)
		return nil, ErrSessionExpired
	}

	if userJSON.Valid && userJSON.String != "" {
		user := &models.User{}
		if err := json.Unmarshal([]byte(userJSON.String), user); err != nil {
			return nil, err
		}
		session.User = user
	}

	switch {
	case session.AccessToken == "":
		session.Status = models.StatusUnauthenticated
	case session.User == nil:
		// Token restored but not yet revalidated against the API.
		session.Status = models.StatusAuthenticating
	default:
		session.Status = models.StatusAuthenticated
	}

	return session, nil
}

// UpdateAccessToken persists a refreshed access token. The refresh token is
// left untouched; the API's refresh endpoint only rotates the access half.
func (r *SessionRepo) UpdateAccessToken(id int64, access string) error {
	result, err := DB.Exec("UPDATE sessions SET access_token = ? WHERE id = ?", access, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// UpdateUser replaces the cached user snapshot.
func (r *SessionRepo) UpdateUser(id int64, user *models.User) error {
	userJSON, err := marshalUser(user)
	if err != nil {
		return err
	}
	result, err := DB.Exec("UPDATE sessions SET user_json = ? WHERE id = ?", userJSON, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete deletes a session by ID
func (r *SessionRepo) Delete(id int64) error {
	_, err := DB.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteByToken deletes a session by its plain cookie token. Deleting an
// already-removed session is not an error, which keeps logout idempotent.
func (r *SessionRepo) DeleteByToken(token string) error {
	_, err := DB.Exec("DELETE FROM sessions WHERE token_hash = ?", hashToken(token))
	return err
}

// DeleteExpired removes all expired sessions
func (r *SessionRepo) DeleteExpired() (int64, error) {
	result, err := DB.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func marshalUser(user *models.User) (sql.NullString, error) {
	if user == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(user)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// hashToken creates a SHA-256 hash of the token
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
