package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"olympics-frontend/internal/models"
)

// RegisterRequest is the body of POST /api/auth/register/.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// Register creates a new account. Field-level rejections come back as a
// *ValidationError so the form can annotate each input.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, nil, http.MethodPost, "/api/auth/register/", req, nil)
}

// Login exchanges credentials for a token pair. A 401 means the credentials
// were rejected, not that a session expired, so it maps to
// ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	var pair models.TokenPair
	err := c.do(ctx, nil, http.MethodPost, "/api/auth/login/", loginRequest{Email: email, Password: password}, &pair)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return models.TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return models.TokenPair{}, err
	}
	if pair.Access == "" || pair.Refresh == "" {
		return models.TokenPair{}, fmt.Errorf("%w: login response missing tokens", ErrServer)
	}
	return pair, nil
}

// Refresh exchanges the refresh token for a new access token. It goes out
// without a bearer header and without the interceptor, so a failed refresh
// can never recurse into another refresh.
func (c *Client) Refresh(ctx context.Context, refresh string) (string, error) {
	var resp refreshResponse
	err := c.do(ctx, nil, http.MethodPost, "/api/auth/refresh/", refreshRequest{Refresh: refresh}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Access == "" {
		return "", fmt.Errorf("%w: refresh response missing access token", ErrServer)
	}
	return resp.Access, nil
}

// CurrentUser fetches the authenticated user's snapshot.
func (c *Client) CurrentUser(ctx context.Context, ts TokenSource) (*models.User, error) {
	user := &models.User{}
	if err := c.do(ctx, ts, http.MethodGet, "/api/user/me/", nil, user); err != nil {
		return nil, err
	}
	return user, nil
}
