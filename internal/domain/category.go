package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// categoryKeywords maps Norwegian category slugs to the English keyword the
// Discovery API understands.
var categoryKeywords = map[string]string{
	"musikk": "music",
	"teater": "theatre",
	"sport":  "sports",
}

// TranslateSlug returns the API keyword for a category slug. Lookup is
// case-insensitive; unknown slugs are returned unchanged.
func TranslateSlug(slug string) string {
	if kw, ok := categoryKeywords[strings.ToLower(slug)]; ok {
		return kw
	}
	return slug
}

// Heading upper-cases the first letter of slug for the page title.
func Heading(slug string) string {
	r, size := utf8.DecodeRuneInString(slug)
	if r == utf8.RuneError {
		return slug
	}
	return string(unicode.ToUpper(r)) + slug[size:]
}

type Option struct {
	Value string
	Label string
}

// Countries and Cities populate the filter form selects.
var (
	Countries = []Option{
		{Value: "NO", Label: "Norge"},
		{Value: "DK", Label: "Danmark"},
		{Value: "SE", Label: "Sverige"},
	}
	Cities = []Option{
		{Value: "Oslo", Label: "Oslo"},
		{Value: "København", Label: "København"},
		{Value: "Stockholm", Label: "Stockholm"},
	}
)
