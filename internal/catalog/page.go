package catalog

import (
	"context"
	"sync"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
)

// ListingLoader is what a Page needs from Loader.
type ListingLoader interface {
	Load(ctx context.Context, f domain.FilterState) (domain.Listing, error)
}

// RequestOutcome is the one loading/error/data triple shared by all three
// collections of a page.
type RequestOutcome struct {
	Generation uint64
	Loading    bool
	Err        error
	Listing    domain.Listing
}

// triggerKey is the part of the filter state whose change starts a new load.
// Date and unsubmitted search edits are not part of it.
type triggerKey struct {
	category string
	city     string
	country  string
	submits  uint64
}

// Page holds the state of one category page across filter changes.
//
// Every trigger bumps a generation counter and cancels the load in flight.
// A finished load is committed only if its generation is still the latest,
// so a slow earlier load can never overwrite a newer result.
type Page struct {
	parent context.Context
	loader ListingLoader

	mu        sync.Mutex
	filter    domain.FilterState
	submits   uint64
	lastKey   triggerKey
	triggered bool
	gen       uint64
	cancel    context.CancelFunc
	outcome   RequestOutcome
	changed   chan struct{}
}

// NewPage returns an idle page. Loads run under parent.
func NewPage(parent context.Context, loader ListingLoader) *Page {
	return &Page{
		parent:  parent,
		loader:  loader,
		changed: make(chan struct{}),
	}
}

// SetFilter records f and starts a load when the effective category, city or
// country changed (or nothing was loaded yet). It returns the generation the
// caller should wait for and whether a load was started.
func (p *Page) SetFilter(f domain.FilterState) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filter = f
	if p.triggered && p.keyLocked() == p.lastKey {
		return p.gen, false
	}
	return p.triggerLocked(), true
}

// SubmitSearch starts a load with the current filter, search term included.
func (p *Page) SubmitSearch() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.submits++
	return p.triggerLocked()
}

// Outcome returns the current state.
func (p *Page) Outcome() RequestOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome
}

// Wait blocks until a load of generation gen or newer has settled. If ctx
// ends first the current, still loading, outcome is returned with ctx.Err().
func (p *Page) Wait(ctx context.Context, gen uint64) (RequestOutcome, error) {
	for {
		p.mu.Lock()
		out, ch := p.outcome, p.changed
		p.mu.Unlock()

		if out.Generation >= gen && !out.Loading {
			return out, nil
		}

		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-ch:
		}
	}
}

// Close cancels the load in flight, if any.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Page) keyLocked() triggerKey {
	return triggerKey{
		category: domain.TranslateSlug(p.filter.Category),
		city:     p.filter.City,
		country:  p.filter.Country,
		submits:  p.submits,
	}
}

func (p *Page) triggerLocked() uint64 {
	p.lastKey = p.keyLocked()
	p.triggered = true

	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(p.parent)
	p.cancel = cancel

	p.gen++
	gen := p.gen
	p.outcome.Generation = gen
	p.outcome.Loading = true
	p.outcome.Err = nil
	p.notifyLocked()

	go p.run(ctx, gen, p.filter)
	return gen
}

func (p *Page) run(ctx context.Context, gen uint64, f domain.FilterState) {
	listing, err := p.loader.Load(ctx, f)
	p.commit(gen, listing, err)
}

// commit stores a finished load. A failed load only records its error; the
// listing of the last successful load stays in place so the page never mixes
// collections from two filter states.
func (p *Page) commit(gen uint64, l domain.Listing, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		staleCommitsDropped.Inc()
		return false
	}

	p.outcome.Loading = false
	p.outcome.Err = err
	if err == nil {
		p.outcome.Listing = l
	}
	p.notifyLocked()
	return true
}

func (p *Page) notifyLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}
