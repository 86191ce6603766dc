package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/catalog"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/downstream"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/view"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context, f domain.FilterState) (domain.Listing, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(domain.Listing), args.Error(1)
}

func newTestHandler(l *mockLoader, timeout time.Duration) http.Handler {
	sessions := catalog.NewSessions(context.Background(), l, time.Minute)
	h := NewCategoryHandler(sessions, view.MustNewRenderer(), timeout)
	r := chi.NewRouter()
	r.Get("/kategori/{slug}", h.Page)
	r.Get("/api/categories/{slug}", h.JSON)
	return r
}

var fullListing = domain.Listing{
	Events:      []domain.EventRecord{{ID: "e1", Name: "Konsert"}},
	Attractions: []domain.AttractionRecord{{ID: "a1", Name: "Bandet"}},
	Venues:      []domain.VenueRecord{{ID: "v1", Name: "Spektrum", City: &domain.NamedRef{Name: "Oslo"}}},
}

func TestCategoryHandler_PageMapsQueryOntoFilter(t *testing.T) {
	l := new(mockLoader)
	want := domain.FilterState{Category: "musikk", SearchTerm: "Rock", City: "Oslo", Country: "NO", Date: "2025-06-01"}
	l.On("Load", mock.Anything, want).Return(fullListing, nil)

	req := httptest.NewRequest(http.MethodGet, "/kategori/musikk?q=Rock&city=Oslo&country=NO&date=2025-06-01", nil)
	rr := httptest.NewRecorder()
	newTestHandler(l, time.Second).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, "<h1>Musikk</h1>")
	assert.Contains(t, body, "<h3>Konsert</h3>")
	assert.Contains(t, body, "<h3>Bandet</h3>")
	assert.Contains(t, body, "<p>Oslo</p>")
	assert.NotContains(t, body, "Feil:")
	l.AssertExpectations(t)
}

func TestCategoryHandler_PageShowsErrorWithoutPartialResults(t *testing.T) {
	l := new(mockLoader)
	fail := &downstream.FetchError{Resource: downstream.ResourceAttractions, Err: downstream.ErrUnavailable}
	l.On("Load", mock.Anything, mock.Anything).Return(domain.Listing{}, fail)

	req := httptest.NewRequest(http.MethodGet, "/kategori/sport", nil)
	rr := httptest.NewRecorder()
	newTestHandler(l, time.Second).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Feil: fetch attractions: upstream_unavailable")
	assert.NotContains(t, body, "<h3>")
	assert.NotContains(t, body, "Laster inn...")
}

func TestCategoryHandler_PageStillLoadingAfterTimeout(t *testing.T) {
	l := new(mockLoader)
	l.On("Load", mock.Anything, mock.Anything).
		WaitUntil(time.After(200*time.Millisecond)).
		Return(fullListing, nil)

	req := httptest.NewRequest(http.MethodGet, "/kategori/teater", nil)
	rr := httptest.NewRecorder()
	newTestHandler(l, 20*time.Millisecond).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Laster inn...")
}

func TestCategoryHandler_JSON(t *testing.T) {
	l := new(mockLoader)
	l.On("Load", mock.Anything, domain.FilterState{Category: "musikk"}).Return(fullListing, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/categories/musikk", nil)
	rr := httptest.NewRecorder()
	newTestHandler(l, time.Second).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp CategoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "musikk", resp.Category)
	assert.Equal(t, "Musikk", resp.Heading)
	assert.Len(t, resp.Events, 1)
	assert.Len(t, resp.Attractions, 1)
	assert.Len(t, resp.Venues, 1)
	assert.Nil(t, resp.Degraded)
}

func TestCategoryHandler_JSONDegraded(t *testing.T) {
	l := new(mockLoader)
	fail := &downstream.FetchError{Resource: downstream.ResourceEvents, Err: downstream.ErrTimeout}
	l.On("Load", mock.Anything, mock.Anything).Return(domain.Listing{}, fail)

	req := httptest.NewRequest(http.MethodGet, "/api/categories/sport", nil)
	rr := httptest.NewRecorder()
	newTestHandler(l, time.Second).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.Equal(t, []any{}, raw["events"])
	assert.Equal(t, []any{}, raw["attractions"])
	assert.Equal(t, []any{}, raw["venues"])

	degraded, ok := raw["degraded"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "timeout", degraded["code"])
	assert.Equal(t, "fetch events: upstream_timeout", degraded["error"])
}

func TestCategoryHandler_ClientGoneReturnsWithoutPanic(t *testing.T) {
	l := new(mockLoader)
	l.On("Load", mock.Anything, mock.Anything).Return(domain.Listing{}, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/categories/sport", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	assert.NotPanics(t, func() { newTestHandler(l, time.Second).ServeHTTP(rr, req) })
}

func TestOrEmpty(t *testing.T) {
	assert.Equal(t, []int{}, orEmpty[int](nil))
	assert.Equal(t, []int{1}, orEmpty([]int{1}))
}

// visit issues a GET carrying the session cookie from an earlier response.
func visit(h http.Handler, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCategoryHandler_IssuesSessionCookie(t *testing.T) {
	l := new(mockLoader)
	l.On("Load", mock.Anything, mock.Anything).Return(fullListing, nil)
	h := newTestHandler(l, time.Second)

	rr := visit(h, "/kategori/musikk", nil)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rr = visit(h, "/kategori/musikk", cookies)
	assert.Empty(t, rr.Result().Cookies())
}

func TestCategoryHandler_UnchangedFilterReusesOutcome(t *testing.T) {
	l := new(mockLoader)
	l.On("Load", mock.Anything, domain.FilterState{Category: "musikk"}).Return(fullListing, nil).Once()
	h := newTestHandler(l, time.Second)

	cookies := visit(h, "/kategori/musikk", nil).Result().Cookies()
	rr := visit(h, "/kategori/musikk", cookies)

	assert.Contains(t, rr.Body.String(), "<h3>Konsert</h3>")
	l.AssertNumberOfCalls(t, "Load", 1)
}

func TestCategoryHandler_SearchLoadsOnlyWhenSubmitted(t *testing.T) {
	rock := domain.Listing{
		Events:      []domain.EventRecord{{ID: "r1", Name: "Rockekveld"}},
		Attractions: []domain.AttractionRecord{},
		Venues:      []domain.VenueRecord{},
	}

	l := new(mockLoader)
	l.On("Load", mock.Anything, domain.FilterState{Category: "musikk"}).Return(fullListing, nil).Once()
	l.On("Load", mock.Anything, domain.FilterState{Category: "musikk", SearchTerm: "Rock"}).Return(rock, nil).Once()
	h := newTestHandler(l, time.Second)

	cookies := visit(h, "/kategori/musikk", nil).Result().Cookies()

	rr := visit(h, "/kategori/musikk?q=Rock", cookies)
	assert.Contains(t, rr.Body.String(), "<h3>Konsert</h3>")
	l.AssertNumberOfCalls(t, "Load", 1)

	rr = visit(h, "/kategori/musikk?q=Rock&submit=1", cookies)
	assert.Contains(t, rr.Body.String(), "<h3>Rockekveld</h3>")
	l.AssertNumberOfCalls(t, "Load", 2)
	l.AssertExpectations(t)
}

func TestCategoryHandler_FailedReloadKeepsPreviousListing(t *testing.T) {
	fail := &downstream.FetchError{Resource: downstream.ResourceVenues, Err: downstream.ErrRateLimited}

	l := new(mockLoader)
	l.On("Load", mock.Anything, domain.FilterState{Category: "musikk"}).Return(fullListing, nil).Once()
	l.On("Load", mock.Anything, domain.FilterState{Category: "musikk", City: "Oslo"}).Return(domain.Listing{}, fail).Once()
	h := newTestHandler(l, time.Second)

	cookies := visit(h, "/api/categories/musikk", nil).Result().Cookies()
	rr := visit(h, "/api/categories/musikk?city=Oslo", cookies)

	var resp CategoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Degraded)
	assert.Equal(t, "rate_limited", resp.Degraded.Code)
	assert.Equal(t, "e1", resp.Events[0].ID)
	assert.Equal(t, "a1", resp.Attractions[0].ID)
	assert.Equal(t, "v1", resp.Venues[0].ID)
}
