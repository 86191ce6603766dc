package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
)

func TestSessions_SamePagePerSessionAndCategory(t *testing.T) {
	s := NewSessions(context.Background(), newScriptedLoader(), time.Minute)

	a := s.Page("s1", "musikk")
	assert.Same(t, a, s.Page("s1", "musikk"))
	assert.Same(t, a, s.Page("s1", "MUSIKK"))
	assert.NotSame(t, a, s.Page("s1", "sport"))
	assert.NotSame(t, a, s.Page("s2", "musikk"))
	assert.Equal(t, 3, s.Len())
}

func TestSessions_SharedPageSupersedesEarlierLoad(t *testing.T) {
	sl := newScriptedLoader()
	s := NewSessions(context.Background(), sl, time.Minute)

	// two requests of one visitor, the second with a new city
	gen1, _ := s.Page("s1", "musikk").SetFilter(domain.FilterState{Category: "musikk"})
	first := sl.next(t)
	gen2, started := s.Page("s1", "musikk").SetFilter(domain.FilterState{Category: "musikk", City: "Oslo"})
	require.True(t, started)
	second := sl.next(t)
	require.Greater(t, gen2, gen1)

	second.release <- loadResult{listing: domain.Listing{Events: events("oslo")}}
	first.release <- loadResult{listing: domain.Listing{Events: events("stale")}}

	out := waitFor(t, s.Page("s1", "musikk"), gen1)
	assert.Equal(t, gen2, out.Generation)
	assert.Equal(t, "oslo", out.Listing.Events[0].Name)
}

func TestSessions_ExpiryCancelsLoad(t *testing.T) {
	started := make(chan struct{})
	loader := loaderFunc(func(ctx context.Context, f domain.FilterState) (domain.Listing, error) {
		close(started)
		<-ctx.Done()
		return domain.Listing{}, ctx.Err()
	})
	s := NewSessions(context.Background(), loader, 20*time.Millisecond)

	p := s.Page("s1", "teater")
	gen, _ := p.SetFilter(domain.FilterState{Category: "teater"})
	<-started

	time.Sleep(40 * time.Millisecond)
	s.pages.DeleteExpired()

	out := waitFor(t, p, gen)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Zero(t, s.Len())
}

func TestSessions_ExpiredPageIsReplaced(t *testing.T) {
	s := NewSessions(context.Background(), newScriptedLoader(), 20*time.Millisecond)

	old := s.Page("s1", "sport")
	time.Sleep(40 * time.Millisecond)

	assert.NotSame(t, old, s.Page("s1", "sport"))
	assert.Equal(t, 1, s.Len())
}
