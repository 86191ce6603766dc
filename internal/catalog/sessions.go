package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Sessions keeps one Page per visitor session and category, so successive
// requests from the same visitor share one generation counter: a filter
// change supersedes the load still running for the previous one, and a
// repeated request with an unchanged filter is answered from the committed
// outcome without another upstream sequence.
//
// Idle pages expire after ttl; expiry cancels whatever they were loading.
type Sessions struct {
	parent context.Context
	loader ListingLoader

	mu    sync.Mutex
	pages *gocache.Cache
}

func NewSessions(parent context.Context, loader ListingLoader, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	pages := gocache.New(ttl, ttl/2)
	pages.OnEvicted(func(_ string, v any) {
		v.(*Page).Close()
		pageSessions.Dec()
	})
	return &Sessions{parent: parent, loader: loader, pages: pages}
}

// Page returns the page of session for slug, creating it on first use.
// Every call restarts the idle timer.
func (s *Sessions) Page(session, slug string) *Page {
	key := session + "|" + strings.ToLower(slug)

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.pages.Get(key); ok {
		p := v.(*Page)
		s.pages.SetDefault(key, p)
		return p
	}

	// an expired page the janitor has not reached yet still needs closing
	s.pages.Delete(key)

	p := NewPage(s.parent, s.loader)
	s.pages.SetDefault(key, p)
	pageSessions.Inc()
	return p
}

// Len reports the number of live pages.
func (s *Sessions) Len() int {
	return s.pages.ItemCount()
}
