package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleListing = domain.Listing{
	Events:      []domain.EventRecord{{ID: "e1", Name: "Konsert"}},
	Attractions: []domain.AttractionRecord{},
	Venues:      []domain.VenueRecord{{ID: "v1", Name: "Spektrum", City: &domain.NamedRef{Name: "Oslo"}}},
}

func TestRedisCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "keyword=music")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "keyword=music", sampleListing))

	got, ok, err := c.Get(ctx, "keyword=music")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleListing, got)
	assert.NotNil(t, got.Attractions)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "keyword=music")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ErrorWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	c := NewRedisCache(rdb, time.Minute)

	_, ok, err := c.Get(context.Background(), "keyword=music")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestTiered_FillsLocalFromShared(t *testing.T) {
	mr := miniredis.RunT(t)
	shared := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	local := NewMemoryCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, shared.Set(ctx, "k", sampleListing))

	tc := Tiered{Local: local, Shared: shared}
	got, ok, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Konsert", got.Events[0].Name)

	_, ok, _ = local.Get(ctx, "k")
	assert.True(t, ok)
}
