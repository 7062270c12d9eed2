package models

import "time"

// SessionStatus tracks where a session is in the authentication lifecycle.
type SessionStatus string

const (
	StatusUnauthenticated SessionStatus = "unauthenticated"
	StatusAuthenticating  SessionStatus = "authenticating"
	StatusAuthenticated   SessionStatus = "authenticated"
)

// Session holds a browser session's token pair and cached user snapshot.
// Invariants: User is only ever set alongside a non-empty AccessToken, and
// an empty AccessToken forces StatusUnauthenticated.
type Session struct {
	ID           int64         `json:"id"`
	TokenHash    string        `json:"-"`
	AccessToken  string        `json:"-"`
	RefreshToken string        `json:"-"`
	User         *User         `json:"user,omitempty"`
	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// IsAuthenticated reports whether the session carries a verified user.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Status == StatusAuthenticated && s.User != nil && s.AccessToken != ""
}

// IsAdmin reports whether the session's user may access admin routes.
func (s *Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.User.IsAdmin()
}

// TokenPair is the opaque credential pair returned by POST /api/auth/login/.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
