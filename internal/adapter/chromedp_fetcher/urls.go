package chromedp_fetcher

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/user/stay-harvester/internal/entity"
)

const (
	DefaultBaseURL = "https://www.airbnb.com"

	// calendarQueryHash identifies the persisted availability-calendar query.
	calendarQueryHash = "8f08e03c7bd16fcad3c92a3592c19a8b559a0d0855a84028d1163d4733ed9ade"
	calendarMonths    = 12
)

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SearchURL builds the map search page of a bounding box.
func SearchURL(base string, p entity.SearchParams) string {
	q := url.Values{}
	q.Set("search_by_map", "true")
	q.Set("ne_lat", formatCoord(p.Box.NELat))
	q.Set("ne_lng", formatCoord(p.Box.NELong))
	q.Set("sw_lat", formatCoord(p.Box.SWLat))
	q.Set("sw_lng", formatCoord(p.Box.SWLong))
	q.Set("checkin", formatDate(p.CheckIn))
	q.Set("checkout", formatDate(p.CheckOut))
	if p.Filters.Zoom > 0 {
		q.Set("zoom", strconv.Itoa(p.Filters.Zoom))
	}
	if p.Filters.PriceMin > 0 {
		q.Set("price_min", strconv.Itoa(p.Filters.PriceMin))
	}
	if p.Filters.PriceMax > 0 {
		q.Set("price_max", strconv.Itoa(p.Filters.PriceMax))
	}
	if p.Filters.PlaceType != "" {
		q.Add("room_types[]", p.Filters.PlaceType)
	}
	for _, a := range p.Filters.Amenities {
		q.Add("amenities[]", strconv.Itoa(a))
	}
	if p.Currency != "" {
		q.Set("currency", p.Currency)
	}
	if p.Language != "" {
		q.Set("locale", p.Language)
	}
	return base + "/s/homes?" + q.Encode()
}

// RoomURL builds the detail page of one listing.
func RoomURL(base, listingID string, p entity.DetailParams) string {
	q := url.Values{}
	q.Set("check_in", formatDate(p.CheckIn))
	q.Set("check_out", formatDate(p.CheckOut))
	if p.Currency != "" {
		q.Set("currency", p.Currency)
	}
	if p.Language != "" {
		q.Set("locale", p.Language)
	}
	return base + "/rooms/" + url.PathEscape(listingID) + "?" + q.Encode()
}

// CalendarURL builds the availability calendar request of one listing,
// covering twelve months from the check-in month.
func CalendarURL(base, listingID string, p entity.DetailParams) (string, error) {
	variables, err := json.Marshal(map[string]any{
		"request": map[string]any{
			"count":     calendarMonths,
			"listingId": listingID,
			"month":     int(p.CheckIn.Month()),
			"year":      p.CheckIn.Year(),
		},
	})
	if err != nil {
		return "", err
	}
	extensions, err := json.Marshal(map[string]any{
		"persistedQuery": map[string]any{"version": 1, "sha256Hash": calendarQueryHash},
	})
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("operationName", "PdpAvailabilityCalendar")
	if p.Language != "" {
		q.Set("locale", p.Language)
	}
	if p.Currency != "" {
		q.Set("currency", p.Currency)
	}
	q.Set("variables", string(variables))
	q.Set("extensions", string(extensions))
	return fmt.Sprintf("%s/api/v3/PdpAvailabilityCalendar/%s?%s", base, calendarQueryHash, q.Encode()), nil
}
