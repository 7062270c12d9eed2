package web

import (
	"sync"
	"time"

	"olympics-frontend/internal/models"
)

// ticketCache keeps a session's ticket listing around briefly so the QR
// image requests a tickets page fans out do not each refetch the listing
// from the backend.
type ticketCache struct {
	mu      sync.Mutex
	entries map[int64]ticketEntry
	ttl     time.Duration
}

type ticketEntry struct {
	tickets  []models.Ticket
	storedAt time.Time
}

func newTicketCache(ttl time.Duration) *ticketCache {
	return &ticketCache{
		entries: make(map[int64]ticketEntry),
		ttl:     ttl,
	}
}

// get returns the cached listing for a session, dropping stale entries.
func (c *ticketCache) get(sessionID int64) ([]models.Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[sessionID]
	if !ok {
		return nil, false
	}
	if time.Since(entry.storedAt) > c.ttl {
		delete(c.entries, sessionID)
		return nil, false
	}
	return entry.tickets, true
}

func (c *ticketCache) put(sessionID int64, tickets []models.Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = ticketEntry{tickets: tickets, storedAt: time.Now()}
}

// invalidate drops a session's entry after anything that changes its
// tickets, so the next page load refetches.
func (c *ticketCache) invalidate(sessionID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}
