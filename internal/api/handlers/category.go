package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/catalog"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/downstream"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/view"
)

// sessionCookie identifies a visitor so their requests share one page state.
const sessionCookie = "discovery_session"

type CategoryHandler struct {
	sessions *catalog.Sessions
	renderer *view.Renderer
	timeout  time.Duration
}

// NewCategoryHandler serves category pages held in sessions. timeout bounds
// how long one request waits for its load before answering with the loading
// state.
func NewCategoryHandler(sessions *catalog.Sessions, renderer *view.Renderer, timeout time.Duration) *CategoryHandler {
	return &CategoryHandler{sessions: sessions, renderer: renderer, timeout: timeout}
}

type CategoryResponse struct {
	Category    string                    `json:"category"`
	Heading     string                    `json:"heading"`
	Filter      domain.FilterState        `json:"filter"`
	Events      []domain.EventRecord      `json:"events"`
	Attractions []domain.AttractionRecord `json:"attractions"`
	Venues      []domain.VenueRecord      `json:"venues"`
	Loading     bool                      `json:"loading,omitempty"`
	Degraded    *DegradedInfo             `json:"degraded,omitempty"`
}

// DegradedInfo is set when the listing is incomplete.
type DegradedInfo struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Page renders the HTML category page.
func (h *CategoryHandler) Page(w http.ResponseWriter, r *http.Request) {
	slug, f, ok := h.filter(w, r)
	if !ok {
		return
	}

	out := h.load(w, r, slug, f)

	data := view.NewPageData(slug, f, out.Listing)
	data.Loading = out.Loading
	if out.Err != nil {
		data.Error = out.Err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.Render(w, data); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("render category page")
	}
}

// JSON returns the same load as Page without the markup.
func (h *CategoryHandler) JSON(w http.ResponseWriter, r *http.Request) {
	slug, f, ok := h.filter(w, r)
	if !ok {
		return
	}

	out := h.load(w, r, slug, f)

	resp := CategoryResponse{
		Category:    slug,
		Heading:     domain.Heading(slug),
		Filter:      f,
		Events:      orEmpty(out.Listing.Events),
		Attractions: orEmpty(out.Listing.Attractions),
		Venues:      orEmpty(out.Listing.Venues),
		Loading:     out.Loading,
	}
	if out.Err != nil {
		resp.Degraded = &DegradedInfo{Error: out.Err.Error(), Code: downstream.Kind(out.Err)}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (h *CategoryHandler) filter(w http.ResponseWriter, r *http.Request) (string, domain.FilterState, bool) {
	slug := chi.URLParam(r, "slug")
	if strings.TrimSpace(slug) == "" {
		sendError(w, r, "validation_failed", "missing category", http.StatusBadRequest)
		return "", domain.FilterState{}, false
	}

	q := r.URL.Query()
	return slug, domain.FilterState{
		Category:   slug,
		SearchTerm: q.Get("q"),
		City:       q.Get("city"),
		Country:    q.Get("country"),
		Date:       q.Get("date"),
	}, true
}

// load applies f to the visitor's page for slug and waits for the outcome.
// A change of category, city or country starts a load; a search term only
// does when the form was submitted (the submit parameter). An unchanged
// filter is answered from the committed outcome. If the wait runs out the
// outcome is still loading.
func (h *CategoryHandler) load(w http.ResponseWriter, r *http.Request, slug string, f domain.FilterState) catalog.RequestOutcome {
	page := h.sessions.Page(session(w, r), slug)

	gen, started := page.SetFilter(f)
	if r.URL.Query().Has("submit") && !started {
		gen = page.SubmitSearch()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out, err := page.Wait(ctx, gen)
	if err != nil {
		log := logger.Ctx(r.Context())
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Dur("timeout", h.timeout).Msg("category load still running")
		} else {
			log.Debug().Err(err).Msg("client went away during load")
		}
	}
	return out
}

// session returns the visitor's session ID, issuing a new one when the
// cookie is missing or not one of ours.
func session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
