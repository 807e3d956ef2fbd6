package usecase

import (
	"errors"
	"fmt"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/pricing"
)

// ErrMalformedDetail is returned when a detail record cannot be mapped to
// store records.
var ErrMalformedDetail = errors.New("malformed listing detail")

// Snapshot is a detail record mapped to the records it reconciles into.
type Snapshot struct {
	Listing   entity.Listing
	Amenities []entity.Amenity
	Images    []entity.Image
	Days      []entity.AvailabilityDay
}

// BuildSnapshot maps the detail record of listingID, found while searching
// city, to store records. Nothing is written when mapping fails, so a
// malformed calendar never leaves half a listing behind.
func BuildSnapshot(listingID, city string, rec *entity.DetailRecord) (*Snapshot, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: listing %s: empty record", ErrMalformedDetail, listingID)
	}
	if rec.ListingID != "" && rec.ListingID != listingID {
		return nil, fmt.Errorf("%w: asked for listing %s, got %s", ErrMalformedDetail, listingID, rec.ListingID)
	}

	snap := &Snapshot{
		Listing: entity.Listing{
			ID:             listingID,
			City:           city,
			Title:          rec.Title,
			Description:    rec.Description,
			RoomType:       rec.RoomType,
			PersonCapacity: rec.PersonCapacity,
			Latitude:       rec.Coordinates.Latitude,
			Longitude:      rec.Coordinates.Longitude,
		},
	}
	if price, ok := pricing.ParsePrice(rec.Price); ok {
		amount := price.Amount
		currency := string(price.Currency)
		snap.Listing.NightlyPrice = &amount
		snap.Listing.Currency = &currency
	}

	for _, a := range rec.Amenities {
		if a.Title == "" {
			continue
		}
		snap.Amenities = append(snap.Amenities, entity.Amenity{
			ListingID:   listingID,
			Title:       a.Title,
			IsAvailable: true,
		})
	}

	for _, img := range rec.Images {
		if img.URL == "" {
			continue
		}
		snap.Images = append(snap.Images, entity.Image{
			ListingID: listingID,
			URL:       img.URL,
			Caption:   img.Title,
		})
	}

	for _, month := range rec.Calendar {
		for _, day := range month.Days {
			date, err := entity.ParseCalendarDate(day.CalendarDate)
			if err != nil {
				return nil, fmt.Errorf("%w: listing %s: calendar date %q: %v", ErrMalformedDetail, listingID, day.CalendarDate, err)
			}
			d := entity.AvailabilityDay{
				ListingID:   listingID,
				Date:        date,
				IsAvailable: day.Available,
				MinNights:   day.MinNights,
			}
			if amount, ok := pricing.ParseDigits(day.Price.LocalPriceFormatted); ok {
				d.Price = &amount
			}
			snap.Days = append(snap.Days, d)
		}
	}
	return snap, nil
}
