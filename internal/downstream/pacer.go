package downstream

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces the requests of one page load. Wait is called before every
// request with its position in the sequence (0 for the first).
type Pacer interface {
	Wait(ctx context.Context, step int) error
}

// RateStatus is what the Discovery API reports about the caller's quota.
type RateStatus struct {
	Limit      int
	Available  int
	Reset      time.Time
	RetryAfter time.Duration
	Throttled  bool
}

// RateObserver receives the quota reported on every upstream response.
type RateObserver interface {
	ObserveRate(RateStatus)
}

// FixedDelay sleeps Delay between consecutive requests of a load. The first
// request goes out immediately.
type FixedDelay struct {
	Delay time.Duration
}

func (p FixedDelay) Wait(ctx context.Context, step int) error {
	if step == 0 || p.Delay <= 0 {
		return ctx.Err()
	}
	return sleep(ctx, p.Delay)
}

// TokenBucket shares one request budget across all loads of the process and
// backs off until the reset instant whenever the remote reports the quota as
// exhausted.
type TokenBucket struct {
	limiter *rate.Limiter
	now     func() time.Time

	mu           sync.Mutex
	blockedUntil time.Time
}

func NewTokenBucket(rps float64, burst int) *TokenBucket {
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		now:     time.Now,
	}
}

func (p *TokenBucket) Wait(ctx context.Context, _ int) error {
	p.mu.Lock()
	until := p.blockedUntil
	p.mu.Unlock()

	if d := until.Sub(p.now()); d > 0 {
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}
	return p.limiter.Wait(ctx)
}

// maxBackoff caps how far a reported reset can push the next request.
const maxBackoff = 30 * time.Second

func (p *TokenBucket) ObserveRate(s RateStatus) {
	if !s.Throttled && !(s.Limit > 0 && s.Available == 0) {
		return
	}

	now := p.now()
	until := now.Add(time.Second)
	switch {
	case s.RetryAfter > 0:
		until = now.Add(s.RetryAfter)
	case s.Reset.After(now):
		until = s.Reset
	}
	if until.Sub(now) > maxBackoff {
		until = now.Add(maxBackoff)
	}

	p.mu.Lock()
	if until.After(p.blockedUntil) {
		p.blockedUntil = until
	}
	p.mu.Unlock()
}

// BlockedUntil reports the instant before which Wait will not release.
func (p *TokenBucket) BlockedUntil() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blockedUntil
}

// parseRateStatus reads the Rate-Limit-* headers. Rate-Limit-Reset is epoch
// milliseconds. ok is false when the response carries no quota information.
func parseRateStatus(h http.Header, status int) (RateStatus, bool) {
	s := RateStatus{Throttled: status == http.StatusTooManyRequests}
	found := s.Throttled

	if v, err := strconv.Atoi(h.Get("Rate-Limit")); err == nil {
		s.Limit = v
		found = true
	}
	if v, err := strconv.Atoi(h.Get("Rate-Limit-Available")); err == nil {
		s.Available = v
		found = true
	} else {
		s.Available = -1
	}
	if v, err := strconv.ParseInt(h.Get("Rate-Limit-Reset"), 10, 64); err == nil {
		s.Reset = time.UnixMilli(v)
		found = true
	}
	if v, err := strconv.Atoi(h.Get("Retry-After")); err == nil && v > 0 {
		s.RetryAfter = time.Duration(v) * time.Second
		found = true
	}
	return s, found
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
