package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
)

// Resource is one of the Discovery API collections the page shows.
type Resource string

const (
	ResourceEvents      Resource = "events"
	ResourceAttractions Resource = "attractions"
	ResourceVenues      Resource = "venues"
)

// embedded is the API's wrapper around result arrays. Both the wrapper and
// the named array may be missing.
type embedded[T any] struct {
	Embedded *T `json:"_embedded"`
}

type eventsPage struct {
	Events []domain.EventRecord `json:"events"`
}

type attractionsPage struct {
	Attractions []domain.AttractionRecord `json:"attractions"`
}

type venuesPage struct {
	Venues []domain.VenueRecord `json:"venues"`
}

// DiscoveryClient reads events, attractions and venues from the
// Ticketmaster Discovery API.
type DiscoveryClient struct {
	baseURL  string
	http     *Client
	observer RateObserver
}

// NewDiscoveryClient builds a client for baseURL. observer, if non-nil, is
// told about the quota reported on every response.
func NewDiscoveryClient(baseURL string, httpClient *Client, observer RateObserver) *DiscoveryClient {
	return &DiscoveryClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		observer: observer,
	}
}

func (c *DiscoveryClient) Events(ctx context.Context, q url.Values) ([]domain.EventRecord, error) {
	var env embedded[eventsPage]
	if err := c.get(ctx, ResourceEvents, q, &env); err != nil {
		return nil, err
	}
	if env.Embedded == nil {
		return []domain.EventRecord{}, nil
	}
	return orEmpty(env.Embedded.Events), nil
}

func (c *DiscoveryClient) Attractions(ctx context.Context, q url.Values) ([]domain.AttractionRecord, error) {
	var env embedded[attractionsPage]
	if err := c.get(ctx, ResourceAttractions, q, &env); err != nil {
		return nil, err
	}
	if env.Embedded == nil {
		return []domain.AttractionRecord{}, nil
	}
	return orEmpty(env.Embedded.Attractions), nil
}

func (c *DiscoveryClient) Venues(ctx context.Context, q url.Values) ([]domain.VenueRecord, error) {
	var env embedded[venuesPage]
	if err := c.get(ctx, ResourceVenues, q, &env); err != nil {
		return nil, err
	}
	if env.Embedded == nil {
		return []domain.VenueRecord{}, nil
	}
	return orEmpty(env.Embedded.Venues), nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return make([]T, 0)
	}
	return items
}

func (c *DiscoveryClient) get(ctx context.Context, res Resource, q url.Values, dest any) (err error) {
	start := time.Now()
	defer func() {
		upstreamRequestsTotal.WithLabelValues(string(res), Kind(err)).Inc()
		upstreamRequestDuration.WithLabelValues(string(res)).Observe(time.Since(start).Seconds())
		if err != nil {
			err = &FetchError{Resource: res, Err: err}
		}
	}()

	u := fmt.Sprintf("%s/%s.json?%s", c.baseURL, res, q.Encode())

	resp, cancel, err := c.http.Get(ctx, u, nil)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()

	if rs, ok := parseRateStatus(resp.Header, resp.StatusCode); ok {
		if rs.Available >= 0 {
			upstreamQuotaAvailable.Set(float64(rs.Available))
		}
		if c.observer != nil {
			c.observer.ObserveRate(rs)
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", res, err)
	}
	return nil
}
