package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"iter"
	"slices"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// EventCards yields one card per event. The sequence can be ranged over
// more than once.
func EventCards(events []domain.EventRecord) iter.Seq[domain.Card] {
	return func(yield func(domain.Card) bool) {
		for _, e := range events {
			if !yield(e.Card()) {
				return
			}
		}
	}
}

func AttractionCards(attractions []domain.AttractionRecord) iter.Seq[domain.Card] {
	return func(yield func(domain.Card) bool) {
		for _, a := range attractions {
			if !yield(a.Card()) {
				return
			}
		}
	}
}

func VenueCards(venues []domain.VenueRecord) iter.Seq[domain.Card] {
	return func(yield func(domain.Card) bool) {
		for _, v := range venues {
			if !yield(v.Card()) {
				return
			}
		}
	}
}

// PageData is everything the category page template reads.
type PageData struct {
	Slug      string
	Heading   string
	Filter    domain.FilterState
	Countries []domain.Option
	Cities    []domain.Option

	Loading bool
	Error   string

	Events      []domain.Card
	Attractions []domain.Card
	Venues      []domain.Card
}

// NewPageData fills the static parts of the page for slug and projects the
// listing into cards.
func NewPageData(slug string, f domain.FilterState, l domain.Listing) PageData {
	return PageData{
		Slug:        slug,
		Heading:     domain.Heading(slug),
		Filter:      f,
		Countries:   domain.Countries,
		Cities:      domain.Cities,
		Events:      collect(EventCards(l.Events)),
		Attractions: collect(AttractionCards(l.Attractions)),
		Venues:      collect(VenueCards(l.Venues)),
	}
}

// collect never returns nil so templates and JSON see an empty grid.
func collect(seq iter.Seq[domain.Card]) []domain.Card {
	if cards := slices.Collect(seq); cards != nil {
		return cards
	}
	return []domain.Card{}
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("category.html").ParseFS(templateFS, "templates/category.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// MustNewRenderer panics if the embedded template does not parse.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(w io.Writer, data PageData) error {
	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}
