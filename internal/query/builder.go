// Package query turns a category page filter into Discovery API parameters.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
)

// Precedence decides how the category keyword and the free-text search term
// share the single keyword parameter.
type Precedence int

const (
	// LastWins writes the category keyword, then overwrites it with the
	// search term when one is present.
	LastWins Precedence = iota
	// Combine sends both terms, space separated.
	Combine
)

// ParsePrecedence maps a config value onto a Precedence. Unknown values fall
// back to LastWins.
func ParsePrecedence(s string) Precedence {
	if s == "combine" {
		return Combine
	}
	return LastWins
}

const dateLayout = "2006-01-02"

type Builder struct {
	APIKey      string
	PageSize    int
	Precedence  Precedence
	DateEnabled bool
}

// Build returns the query parameters for one page load. The category in f is
// expected to be the raw slug; it is translated here. Filter values are not
// validated, the remote API rejects or ignores what it does not understand.
func (b Builder) Build(f domain.FilterState) url.Values {
	q := url.Values{}
	q.Set("apikey", b.APIKey)
	if b.PageSize > 0 {
		q.Set("size", strconv.Itoa(b.PageSize))
	}

	if kw := b.keyword(domain.TranslateSlug(f.Category), f.SearchTerm); kw != "" {
		q.Set("keyword", kw)
	}

	if f.City != "" {
		q.Set("city", f.City)
	}
	if f.Country != "" {
		q.Set("countryCode", f.Country)
	}

	if b.DateEnabled && f.Date != "" {
		if d, err := time.Parse(dateLayout, f.Date); err == nil {
			q.Set("startDateTime", d.UTC().Format(time.RFC3339))
		}
	}

	return q
}

func (b Builder) keyword(category, search string) string {
	search = strings.TrimSpace(search)
	switch b.Precedence {
	case Combine:
		return strings.TrimSpace(category + " " + search)
	default:
		kw := category
		if search != "" {
			kw = search
		}
		return kw
	}
}

// CacheKey is a stable identity for q with the credential stripped.
func CacheKey(q url.Values) string {
	c := url.Values{}
	for k, v := range q {
		if k == "apikey" {
			continue
		}
		c[k] = v
	}
	return c.Encode()
}
