package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// loginLimiter throttles login attempts per client IP so the form cannot
// be used to brute-force credentials against the backend.
type loginLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo

	maxAttempts int
	window      time.Duration
	blockTime   time.Duration
}

type attemptInfo struct {
	count     int
	firstTry  time.Time
	blockedAt time.Time
}

// newLoginLimiter creates a login rate limiter.
// maxAttempts: attempts allowed within the window
// blockTime: lockout duration after exceeding the limit
func newLoginLimiter(maxAttempts int, window, blockTime time.Duration) *loginLimiter {
	l := &loginLimiter{
		attempts:    make(map[string]*attemptInfo),
		maxAttempts: maxAttempts,
		window:      window,
		blockTime:   blockTime,
	}
	go l.cleanup()
	return l
}

// defaultLoginLimiter allows 5 attempts per 15 minutes, then blocks for 15.
func defaultLoginLimiter() *loginLimiter {
	return newLoginLimiter(5, 15*time.Minute, 15*time.Minute)
}

// allow reports whether the given client IP may attempt a login.
func (l *loginLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	info, exists := l.attempts[key]
	if !exists {
		l.attempts[key] = &attemptInfo{count: 1, firstTry: now}
		return true
	}

	if !info.blockedAt.IsZero() {
		if now.Sub(info.blockedAt) < l.blockTime {
			return false
		}
		info.count = 1
		info.firstTry = now
		info.blockedAt = time.Time{}
		return true
	}

	if now.Sub(info.firstTry) > l.window {
		info.count = 1
		info.firstTry = now
		return true
	}

	info.count++
	if info.count > l.maxAttempts {
		info.blockedAt = now
		return false
	}
	return true
}

// recordSuccess resets the counter after a successful login.
func (l *loginLimiter) recordSuccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

// middleware rejects over-limit login submissions before they reach the API.
func (l *loginLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(c.RealIP()) {
				setFlash(c, "Too many login attempts, please try again later")
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			return next(c)
		}
	}
}

// cleanup periodically drops stale entries.
func (l *loginLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, info := range l.attempts {
			stale := now.Sub(info.firstTry) > l.window &&
				(info.blockedAt.IsZero() || now.Sub(info.blockedAt) > l.blockTime)
			if stale {
				delete(l.attempts, key)
			}
		}
		l.mu.Unlock()
	}
}
