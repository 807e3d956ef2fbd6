package entity

import (
	"encoding/json"
	"time"
)

// BoundingBox is the geographic rectangle of a city search region.
type BoundingBox struct {
	NELat  float64 `mapstructure:"ne_lat" json:"ne_lat"`
	NELong float64 `mapstructure:"ne_long" json:"ne_long"`
	SWLat  float64 `mapstructure:"sw_lat" json:"sw_lat"`
	SWLong float64 `mapstructure:"sw_long" json:"sw_long"`
}

// City is one configured harvest target.
type City struct {
	Name string      `mapstructure:"name" json:"name"`
	Box  BoundingBox `mapstructure:"box" json:"box"`
}

// SearchFilters narrows a search. Zero values mean "no filter".
type SearchFilters struct {
	PriceMin  int
	PriceMax  int
	PlaceType string
	Amenities []int
	Zoom      int
}

// SearchParams is the input of a city-level search.
type SearchParams struct {
	CheckIn  time.Time
	CheckOut time.Time
	Box      BoundingBox
	Filters  SearchFilters
	Currency string
	Language string
}

// DetailParams is the input of a listing detail fetch.
type DetailParams struct {
	CheckIn  time.Time
	CheckOut time.Time
	Currency string
	Language string
}

// ListingSummary is one search hit.
type ListingSummary struct {
	ID    string `json:"room_id"`
	Title string `json:"title,omitempty"`
}

// DetailRecord is the full snapshot of a listing as returned by the fetch
// collaborator.
type DetailRecord struct {
	ListingID      string          `json:"room_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	RoomType       string          `json:"room_type"`
	PersonCapacity *int64          `json:"person_capacity"`
	Coordinates    Coordinates     `json:"coordinates"`
	Price          json.RawMessage `json:"price"`
	Amenities      []AmenityRecord `json:"amenities"`
	Images         []ImageRecord   `json:"images"`
	Calendar       []CalendarMonth `json:"calendar"`
}

type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// AmenityRecord is an amenity observed on the listing page.
type AmenityRecord struct {
	Title string `json:"title"`
}

type ImageRecord struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type CalendarMonth struct {
	Month int           `json:"month"`
	Year  int           `json:"year"`
	Days  []CalendarDay `json:"days"`
}

type CalendarDay struct {
	CalendarDate string           `json:"calendarDate"`
	Available    bool             `json:"available"`
	MinNights    *int64           `json:"minNights"`
	Price        CalendarDayPrice `json:"price"`
}

type CalendarDayPrice struct {
	LocalPriceFormatted string `json:"localPriceFormatted"`
}
