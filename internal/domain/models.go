package domain

// FilterState is the user-editable filter of one category page.
// Date is carried from the form but only reaches the remote query when the
// date filter is enabled.
type FilterState struct {
	Category   string `json:"category"`
	SearchTerm string `json:"search_term,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	Date       string `json:"date,omitempty"`
}

// Image is one entry of a record's image list.
type Image struct {
	URL    string `json:"url"`
	Ratio  string `json:"ratio,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type EventStart struct {
	LocalDate string `json:"localDate,omitempty"`
	LocalTime string `json:"localTime,omitempty"`
	DateTime  string `json:"dateTime,omitempty"`
}

type EventDates struct {
	Start *EventStart `json:"start,omitempty"`
}

// EventRecord mirrors the subset of a Discovery API event the page shows.
type EventRecord struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	URL    string      `json:"url,omitempty"`
	Images []Image     `json:"images,omitempty"`
	Dates  *EventDates `json:"dates,omitempty"`
}

type AttractionRecord struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	URL    string  `json:"url,omitempty"`
	Images []Image `json:"images,omitempty"`
}

type NamedRef struct {
	Name        string `json:"name,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

type VenueRecord struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	URL     string    `json:"url,omitempty"`
	Images  []Image   `json:"images,omitempty"`
	City    *NamedRef `json:"city,omitempty"`
	Country *NamedRef `json:"country,omitempty"`
}

// Listing holds the three normalized collections of one page load.
// A nil slice means the collection was not fetched; an empty one means the
// remote returned nothing.
type Listing struct {
	Events      []EventRecord      `json:"events"`
	Attractions []AttractionRecord `json:"attractions"`
	Venues      []VenueRecord      `json:"venues"`
}

// Card is the display projection of any record. Absent optional fields are
// empty strings.
type Card struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
}

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}
