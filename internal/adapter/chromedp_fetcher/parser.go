package chromedp_fetcher

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/pkg/utils"
)

var (
	ErrStateNotFound    = errors.New("embedded page state not found")
	ErrNavigationFailed = errors.New("page navigation failed")
	ErrPayloadInvalid   = errors.New("unexpected payload shape")
)

const stateSelector = "script#data-deferred-state-0"

var apiKeyPattern = regexp.MustCompile(`"api_config":\{"key":"([^"]+)"`)

// deferredState is the JSON the site embeds in its pages for client-side
// hydration. Every entry is a [queryKey, payload] pair.
type deferredState struct {
	NiobeMinimalClientData [][]json.RawMessage `json:"niobeMinimalClientData"`
}

// extractState returns the payload of the first hydration entry of a page.
func extractState(html string) (json.RawMessage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	script := doc.Find(stateSelector).First()
	if script.Length() == 0 {
		return nil, ErrStateNotFound
	}

	var state deferredState
	if err := json.Unmarshal([]byte(script.Text()), &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	for _, entry := range state.NiobeMinimalClientData {
		if len(entry) == 2 {
			return entry[1], nil
		}
	}
	return nil, ErrStateNotFound
}

// ExtractAPIKey finds the public API key the page uses for its own requests.
func ExtractAPIKey(html string) (string, bool) {
	m := apiKeyPattern.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type searchPayload struct {
	Data struct {
		Presentation struct {
			StaysSearch struct {
				Results struct {
					SearchResults []searchResult `json:"searchResults"`
				} `json:"results"`
			} `json:"staysSearch"`
		} `json:"presentation"`
	} `json:"data"`
}

type searchResult struct {
	Title   string `json:"title"`
	Listing *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"listing"`
	DemandStayListing *struct {
		ID string `json:"id"`
	} `json:"demandStayListing"`
}

// ParseSearchPage reads the search hits out of a rendered search page.
// Hits whose id cannot be determined are kept with an empty id.
func ParseSearchPage(html string) ([]entity.ListingSummary, error) {
	raw, err := extractState(html)
	if err != nil {
		return nil, err
	}
	var p searchPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}

	results := p.Data.Presentation.StaysSearch.Results.SearchResults
	out := make([]entity.ListingSummary, 0, len(results))
	for _, r := range results {
		s := entity.ListingSummary{Title: r.Title}
		switch {
		case r.Listing != nil && r.Listing.ID != "":
			s.ID = r.Listing.ID
			if s.Title == "" {
				s.Title = r.Listing.Name
			}
		case r.DemandStayListing != nil:
			s.ID = decodeGlobalID(r.DemandStayListing.ID)
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeGlobalID turns a base64 "Type:123" relay id into "123".
func decodeGlobalID(id string) string {
	b, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return ""
	}
	_, local, ok := strings.Cut(string(b), ":")
	if !ok {
		return ""
	}
	return local
}

type roomPayload struct {
	Data struct {
		Presentation struct {
			StayProductDetailPage struct {
				Sections struct {
					Metadata struct {
						SharingConfig struct {
							Title          string `json:"title"`
							PropertyType   string `json:"propertyType"`
							PersonCapacity *int64 `json:"personCapacity"`
						} `json:"sharingConfig"`
					} `json:"metadata"`
					Sections []roomSection `json:"sections"`
				} `json:"sections"`
			} `json:"stayProductDetailPage"`
		} `json:"presentation"`
	} `json:"data"`
}

type roomSection struct {
	SectionComponentType string          `json:"sectionComponentType"`
	Section              json.RawMessage `json:"section"`
}

type titleSection struct {
	Title string `json:"title"`
}

type descriptionSection struct {
	HTMLDescription struct {
		HTMLText string `json:"htmlText"`
	} `json:"htmlDescription"`
}

type amenitiesSection struct {
	SeeAllAmenitiesGroups []struct {
		Amenities []struct {
			Title     string `json:"title"`
			Available bool   `json:"available"`
		} `json:"amenities"`
	} `json:"seeAllAmenitiesGroups"`
}

type photosSection struct {
	MediaItems []struct {
		BaseURL            string `json:"baseUrl"`
		AccessibilityLabel string `json:"accessibilityLabel"`
	} `json:"mediaItems"`
}

type locationSection struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type bookItSection struct {
	StructuredDisplayPrice struct {
		PrimaryLine struct {
			Price           string `json:"price"`
			DiscountedPrice string `json:"discountedPrice"`
		} `json:"primaryLine"`
	} `json:"structuredDisplayPrice"`
}

// ParseRoomPage reads a rendered listing page into a detail record without
// its calendar. Unavailable amenities are left out.
func ParseRoomPage(listingID, html string) (*entity.DetailRecord, error) {
	raw, err := extractState(html)
	if err != nil {
		return nil, err
	}
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}

	page := p.Data.Presentation.StayProductDetailPage.Sections
	if len(page.Sections) == 0 {
		return nil, fmt.Errorf("%w: listing %s has no sections", ErrPayloadInvalid, listingID)
	}
	rec := &entity.DetailRecord{
		ListingID:      listingID,
		Title:          page.Metadata.SharingConfig.Title,
		RoomType:       page.Metadata.SharingConfig.PropertyType,
		PersonCapacity: page.Metadata.SharingConfig.PersonCapacity,
	}

	for _, s := range page.Sections {
		if len(s.Section) == 0 || string(s.Section) == "null" {
			continue
		}
		if err := applySection(rec, s); err != nil {
			return nil, fmt.Errorf("%w: section %s: %v", ErrPayloadInvalid, s.SectionComponentType, err)
		}
	}
	return rec, nil
}

func applySection(rec *entity.DetailRecord, s roomSection) error {
	switch s.SectionComponentType {
	case "TITLE_DEFAULT", "PDP_TITLE":
		var t titleSection
		if err := json.Unmarshal(s.Section, &t); err != nil {
			return err
		}
		if t.Title != "" {
			rec.Title = t.Title
		}
	case "DESCRIPTION_DEFAULT", "PDP_DESCRIPTION_MODAL":
		var d descriptionSection
		if err := json.Unmarshal(s.Section, &d); err != nil {
			return err
		}
		text, err := htmlToText(d.HTMLDescription.HTMLText)
		if err != nil {
			return err
		}
		rec.Description = text
	case "AMENITIES_DEFAULT":
		var a amenitiesSection
		if err := json.Unmarshal(s.Section, &a); err != nil {
			return err
		}
		for _, g := range a.SeeAllAmenitiesGroups {
			for _, am := range g.Amenities {
				if am.Available {
					rec.Amenities = append(rec.Amenities, entity.AmenityRecord{Title: am.Title})
				}
			}
		}
	case "PHOTO_TOUR_SCROLLABLE":
		var ph photosSection
		if err := json.Unmarshal(s.Section, &ph); err != nil {
			return err
		}
		for _, m := range ph.MediaItems {
			rec.Images = append(rec.Images, entity.ImageRecord{URL: m.BaseURL, Title: m.AccessibilityLabel})
		}
	case "LOCATION_DEFAULT":
		var l locationSection
		if err := json.Unmarshal(s.Section, &l); err != nil {
			return err
		}
		rec.Coordinates = entity.Coordinates{Latitude: l.Lat, Longitude: l.Lng}
	case "BOOK_IT_SIDEBAR":
		var b bookItSection
		if err := json.Unmarshal(s.Section, &b); err != nil {
			return err
		}
		line := b.StructuredDisplayPrice.PrimaryLine
		price := line.DiscountedPrice
		if price == "" {
			price = line.Price
		}
		if price != "" {
			payload, err := pricePayload(price)
			if err != nil {
				return err
			}
			rec.Price = payload
		}
	}
	return nil
}

// resolveImageURLs makes protocol-relative and path-only image URLs absolute.
// Images whose URL cannot be parsed are dropped.
func resolveImageURLs(base *url.URL, rec *entity.DetailRecord) {
	images := rec.Images[:0]
	for _, img := range rec.Images {
		abs, err := utils.ToAbsoluteURL(base, img.URL)
		if err != nil {
			continue
		}
		img.URL = abs
		images = append(images, img)
	}
	rec.Images = images
}

// pricePayload wraps a display price in the raw/items shape the pricing
// package reads.
func pricePayload(priceString string) (json.RawMessage, error) {
	return json.Marshal(map[string]any{
		"raw": []any{
			map[string]any{"items": []any{map[string]any{"priceString": priceString}}},
		},
	})
}

func htmlToText(html string) (string, error) {
	if html == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(doc.Text()), nil
}

type calendarPayload struct {
	Data struct {
		Merlin struct {
			PdpAvailabilityCalendar struct {
				CalendarMonths []entity.CalendarMonth `json:"calendarMonths"`
			} `json:"pdpAvailabilityCalendar"`
		} `json:"merlin"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ParseCalendar reads the months of an availability calendar response.
func ParseCalendar(body []byte) ([]entity.CalendarMonth, error) {
	var p calendarPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	if len(p.Errors) > 0 {
		return nil, fmt.Errorf("%w: calendar: %s", ErrPayloadInvalid, p.Errors[0].Message)
	}
	return p.Data.Merlin.PdpAvailabilityCalendar.CalendarMonths, nil
}
