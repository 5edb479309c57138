package portal

import (
	"context"
	"sync"
)

// Registry hands out one scraper per user so workers of the same user
// share a logged session.
type Registry struct {
	mu       sync.Mutex
	scrapers map[string]*Scraper
	meta     BoxMetaCache
}

// NewRegistry creates a scraper registry backed by the given box
// metadata cache.
func NewRegistry(meta BoxMetaCache) *Registry {
	return &Registry{
		scrapers: make(map[string]*Scraper),
		meta:     meta,
	}
}

// Get returns the scraper for a user, creating one seeded with the
// stored cookie when none exists yet.
func (r *Registry) Get(email string, cookie []byte) *Scraper {
	r.mu.Lock()
	defer r.mu.Unlock()

	if scraper, ok := r.scrapers[email]; ok {
		return scraper
	}
	scraper := NewScraper(email, "", cookie, r.meta)
	r.scrapers[email] = scraper
	return scraper
}

// Refresh forces a fresh scraper logged in with the given password. When
// the credentials are rejected the previous scraper is kept.
func (r *Registry) Refresh(ctx context.Context, email, password string) (*Scraper, error) {
	scraper := NewScraper(email, password, nil, r.meta)
	if err := scraper.Login(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.scrapers[email] = scraper
	r.mu.Unlock()
	return scraper, nil
}
