package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// refreshLeeway is how close to expiry an access token may get before a
// request refreshes it up front instead of waiting for a 401.
const refreshLeeway = 30 * time.Second

// TokenSource supplies the bearer credential pair for one session and
// persists mutations write-through. Only the session layer mutates tokens;
// the client goes through this narrow interface.
type TokenSource interface {
	// Key identifies the session so concurrent refreshes can be collapsed.
	Key() string
	// Tokens returns the current access and refresh tokens ("" if absent).
	Tokens() (access, refresh string)
	// StoreAccessToken persists a freshly refreshed access token.
	StoreAccessToken(access string) error
	// Invalidate discards the token pair and user state after an
	// irrecoverable refresh failure.
	Invalidate() error
}

// Client talks to the remote ticket reservation API. It attaches the bearer
// credential to outgoing requests and transparently performs the
// refresh-once-and-replay protocol on authorization failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// refreshGroup collapses concurrent refresh attempts for the same
	// session into a single in-flight call.
	refreshGroup singleflight.Group
}

// New creates an API client for the given base URL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: logger,
	}
}

// request carries one logical API call. The retried flag distinguishes a
// replay after refresh from a fresh request, so a replayed request that
// still fails authorization can never trigger a second refresh.
type request struct {
	method  string
	path    string
	body    []byte
	retried bool
}

// do executes a JSON request against the API. ts may be nil for public
// endpoints; then no Authorization header is attached and no refresh is
// attempted. out may be nil when the response body is not needed.
func (c *Client) do(ctx context.Context, ts TokenSource, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
	}

	req := request{method: method, path: path, body: body}
	resp, err := c.send(ctx, ts, req)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && ts != nil {
		_, refresh := ts.Tokens()
		drain(resp)
		if refresh == "" {
			// Nothing to refresh with, the session is beyond recovery.
			if invErr := ts.Invalidate(); invErr != nil {
				c.logger.Error("failed to clear unrefreshable session",
					slog.String("error", invErr.Error()))
			}
			return &APIError{Status: http.StatusUnauthorized, Err: ErrSessionExpired}
		}
		if err := c.refreshAccess(ctx, ts); err != nil {
			return err
		}
		req.retried = true
		resp, err = c.send(ctx, ts, req)
		if err != nil {
			return err
		}
	}

	return decode(resp, out)
}

// send performs a single HTTP round trip, attaching the current access
// token if one is present. Near-expiry tokens are refreshed up front.
func (c *Client) send(ctx context.Context, ts TokenSource, r request) (*http.Response, error) {
	if ts != nil && !r.retried {
		access, refresh := ts.Tokens()
		if access != "" && refresh != "" && expiringSoon(access) {
			if err := c.refreshAccess(ctx, ts); err != nil {
				return nil, err
			}
		}
	}

	var bodyReader io.Reader
	if r.body != nil {
		bodyReader = bytes.NewReader(r.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", r.method, r.path, err)
	}
	if r.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	if ts != nil {
		if access, _ := ts.Tokens(); access != "" {
			httpReq.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, r.method, r.path, err)
	}
	return resp, nil
}

// refreshAccess exchanges the refresh token for a new access token.
// Concurrent callers for the same session share one in-flight refresh, but
// every caller applies the result to its own TokenSource: callers may hold
// separate snapshots of the same session, and each snapshot must see the
// new access token before its replay goes out. On failure the token pair is
// discarded and the caller receives ErrSessionExpired.
func (c *Client) refreshAccess(ctx context.Context, ts TokenSource) error {
	v, err, _ := c.refreshGroup.Do(ts.Key(), func() (any, error) {
		_, refresh := ts.Tokens()
		if refresh == "" {
			return nil, fmt.Errorf("%w: no refresh token", ErrSessionExpired)
		}

		access, err := c.Refresh(ctx, refresh)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		return access, nil
	})
	if err != nil {
		if invErr := ts.Invalidate(); invErr != nil {
			c.logger.Error("failed to clear session after refresh failure",
				slog.String("error", invErr.Error()))
		}
		return err
	}

	if err := ts.StoreAccessToken(v.(string)); err != nil {
		return fmt.Errorf("persist refreshed access token: %w", err)
	}
	c.logger.Debug("access token refreshed", slog.String("session", ts.Key()))
	return nil
}

// decode consumes the response body: 2xx bodies unmarshal into out, any
// other status maps onto the error taxonomy.
func decode(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// expiringSoon reports whether the access token is a JWT that expires
// within the refresh leeway. Opaque or claimless tokens never report true;
// they fall back to the 401 path.
func expiringSoon(access string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(access, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < refreshLeeway
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
