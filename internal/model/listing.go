package model

// RawListing holds the documented raw columns of one source row, untouched.
type RawListing struct {
	ID            string
	Neighbourhood string
	PropertyType  string
	RoomType      string
	Latitude      string
	Longitude     string
	Accommodates  string
	BathroomsText string
	Bedrooms      string
	Beds          string
	Amenities     string
	Price         string
}

// Listing is a cleaned listing. Pointer fields are nil while a value is missing;
// the cleaner's final pruning step guarantees none are nil on returned rows.
type Listing struct {
	ID            *int64
	Neighbourhood string
	PropertyType  string
	RoomType      string
	Latitude      *float64
	Longitude     *float64
	Accommodates  *int
	Bathrooms     *float64
	Bedrooms      *float64
	Beds          *float64
	Price         int
	Category      int
	Amenities     AmenityFlags
}

// AmenityFlags maps an amenity column name to 0 or 1.
type AmenityFlags map[string]int

// StoredListing pairs a cleaned listing with its encoded feature vector.
// Features is nil when a categorical value could not be mapped.
type StoredListing struct {
	Listing  *Listing
	Features []float64
}
