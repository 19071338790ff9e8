// Package mapping holds the fixed categorical tables shared by training and serving.
//
// Every table is a closed switch rather than a map so that a lookup can neither
// mutate nor silently extend it. Encode functions fail closed on unknown keys.
package mapping

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"pricetier/internal/model"
)

// Feature and target column names.
const (
	ColNeighbourhood = "neighbourhood"
	ColRoomType      = "room_type"
	ColAccommodates  = "accommodates"
	ColBathrooms     = "bathrooms"
	ColBedrooms      = "bedrooms"
	ColCategory      = "category"
)

// FeatureNames is the exact, ordered feature schema of the classifier.
var FeatureNames = []string{
	ColNeighbourhood,
	ColRoomType,
	ColAccommodates,
	ColBathrooms,
	ColBedrooms,
}

// NumCategories is the number of price tiers.
const NumCategories = 4

// Amenity is a tracked amenity: Match is searched for, case-sensitively, in the
// raw amenities blob and Column names the resulting 0/1 flag.
type Amenity struct {
	Match  string
	Column string
}

// TrackedAmenities is the fixed amenity list, in output column order.
var TrackedAmenities = []Amenity{
	{Match: "TV", Column: "tv"},
	{Match: "Internet", Column: "internet"},
	{Match: "Air conditioning", Column: "air_conditioning"},
	{Match: "Kitchen", Column: "kitchen"},
	{Match: "Heating", Column: "heating"},
	{Match: "Wifi", Column: "wifi"},
	{Match: "Elevator", Column: "elevator"},
	{Match: "Breakfast", Column: "breakfast"},
}

// AmenityColumns returns the flag column names in order.
func AmenityColumns() []string {
	cols := make([]string, len(TrackedAmenities))
	for i, a := range TrackedAmenities {
		cols[i] = a.Column
	}
	return cols
}

var neighbourhoods = []string{"Bronx", "Queens", "Staten Island", "Brooklyn", "Manhattan"}

var roomTypes = []string{"Shared room", "Private room", "Entire home/apt", "Hotel room"}

var categoryLabels = []string{"budget", "low", "mid", "high"}

// EncodeNeighbourhood maps a neighbourhood group to its numeric code.
func EncodeNeighbourhood(name string) (int, error) {
	switch name {
	case "Bronx":
		return 1, nil
	case "Queens":
		return 2, nil
	case "Staten Island":
		return 3, nil
	case "Brooklyn":
		return 4, nil
	case "Manhattan":
		return 5, nil
	}
	return 0, &model.UnknownCategoryError{Field: ColNeighbourhood, Value: name}
}

// EncodeRoomType maps a room type to its numeric code.
func EncodeRoomType(name string) (int, error) {
	switch name {
	case "Shared room":
		return 1, nil
	case "Private room":
		return 2, nil
	case "Entire home/apt":
		return 3, nil
	case "Hotel room":
		return 4, nil
	}
	return 0, &model.UnknownCategoryError{Field: ColRoomType, Value: name}
}

// DecodeCategory maps a predicted class back to its human label.
func DecodeCategory(code int) (string, error) {
	if code < 0 || code >= len(categoryLabels) {
		return "", &model.UnknownCategoryError{Field: ColCategory, Value: fmt.Sprint(code)}
	}
	return categoryLabels[code], nil
}

// CategoryLabels returns the labels ordered by class index.
func CategoryLabels() []string {
	return append([]string(nil), categoryLabels...)
}

// Neighbourhoods returns the known neighbourhood keys in code order.
func Neighbourhoods() []string {
	return append([]string(nil), neighbourhoods...)
}

// RoomTypes returns the known room type keys in code order.
func RoomTypes() []string {
	return append([]string(nil), roomTypes...)
}

// Version is a digest of the tables and feature schema. A model artifact records
// it at training time so a binary with different tables refuses to serve it.
func Version() string {
	var b strings.Builder
	b.WriteString("features=" + strings.Join(FeatureNames, ","))
	for _, n := range neighbourhoods {
		code, _ := EncodeNeighbourhood(n)
		fmt.Fprintf(&b, ";n:%s=%d", n, code)
	}
	for _, r := range roomTypes {
		code, _ := EncodeRoomType(r)
		fmt.Fprintf(&b, ";r:%s=%d", r, code)
	}
	for i, l := range categoryLabels {
		fmt.Fprintf(&b, ";c:%d=%s", i, l)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
