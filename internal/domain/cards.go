package domain

import "strings"

func firstImageURL(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func (e EventRecord) Card() Card {
	c := Card{ID: e.ID, Title: e.Name, ImageURL: firstImageURL(e.Images)}
	if e.Dates != nil && e.Dates.Start != nil {
		c.Subtitle = e.Dates.Start.LocalDate
	}
	return c
}

func (a AttractionRecord) Card() Card {
	return Card{ID: a.ID, Title: a.Name, ImageURL: firstImageURL(a.Images)}
}

// Card renders the venue location as "city, country", skipping whichever
// part is absent.
func (v VenueRecord) Card() Card {
	var parts []string
	if v.City != nil && v.City.Name != "" {
		parts = append(parts, v.City.Name)
	}
	if v.Country != nil && v.Country.Name != "" {
		parts = append(parts, v.Country.Name)
	}
	return Card{ID: v.ID, Title: v.Name, Subtitle: strings.Join(parts, ", ")}
}
