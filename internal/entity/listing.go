package entity

import "time"

// Collection names in the document store.
const (
	CollectionListings     = "listings"
	CollectionAmenities    = "amenities"
	CollectionImages       = "images"
	CollectionAvailability = "availability"
)

// Document field names shared by several collections.
const (
	FieldListingID = "listing_id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// NaturalKeys lists the fields that identify one document of each collection.
var NaturalKeys = map[string][]string{
	CollectionListings:     {FieldListingID},
	CollectionAmenities:    {FieldListingID, "title"},
	CollectionImages:       {FieldListingID, "url"},
	CollectionAvailability: {FieldListingID, "date"},
}

// Listing is the top-level record of a harvested stay.
type Listing struct {
	ID             string
	City           string
	Title          string
	Description    string
	RoomType       string
	PersonCapacity *int64
	Latitude       *float64
	Longitude      *float64
	NightlyPrice   *int64
	Currency       *string
}

func (l Listing) Key() Fields {
	return Fields{FieldListingID: l.ID}
}

// Tracked holds every field that is compared and rewritten on update.
// updated_at is stamped on write and never compared.
func (l Listing) Tracked() Fields {
	return Fields{
		"city":            l.City,
		"title":           l.Title,
		"description":     l.Description,
		"room_type":       l.RoomType,
		"person_capacity": Normalize(l.PersonCapacity),
		"latitude":        Normalize(l.Latitude),
		"longitude":       Normalize(l.Longitude),
		"nightly_price":   Normalize(l.NightlyPrice),
		"currency":        Normalize(l.Currency),
	}
}

// Amenity is keyed by (listing_id, title).
type Amenity struct {
	ListingID   string
	Title       string
	IsAvailable bool
}

func (a Amenity) Key() Fields {
	return Fields{FieldListingID: a.ListingID, "title": a.Title}
}

func (a Amenity) Tracked() Fields {
	return Fields{"is_available": a.IsAvailable}
}

// Image is keyed by (listing_id, url).
type Image struct {
	ListingID string
	URL       string
	Caption   string
}

func (i Image) Key() Fields {
	return Fields{FieldListingID: i.ListingID, "url": i.URL}
}

func (i Image) Tracked() Fields {
	return Fields{"caption": i.Caption}
}

// AvailabilityDay is keyed by (listing_id, date). Date is always a calendar
// date at midnight UTC.
type AvailabilityDay struct {
	ListingID   string
	Date        time.Time
	IsAvailable bool
	Price       *int64
	MinNights   *int64
}

func (d AvailabilityDay) Key() Fields {
	return Fields{FieldListingID: d.ListingID, "date": CalendarDate(d.Date)}
}

func (d AvailabilityDay) Tracked() Fields {
	return Fields{
		"is_available": d.IsAvailable,
		"price":        Normalize(d.Price),
		"min_nights":   Normalize(d.MinNights),
	}
}
