package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricetier/internal/dataset"
	"pricetier/internal/mapping"
	"pricetier/internal/model"
)

// priceRegexp captures the first numeric value of a currency string after commas are removed
var priceRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Raw column names. The neighbourhood group is also accepted under its export name.
const (
	rawID                = "id"
	rawNeighbourhood     = "neighbourhood_group"
	rawNeighbourhoodFull = "neighbourhood_group_cleansed"
	rawPropertyType      = "property_type"
	rawRoomType          = "room_type"
	rawLatitude          = "latitude"
	rawLongitude         = "longitude"
	rawAccommodates      = "accommodates"
	rawBathroomsText     = "bathrooms_text"
	rawBedrooms          = "bedrooms"
	rawBeds              = "beds"
	rawAmenities         = "amenities"
	rawPrice             = "price"
)

// minPrice is the data-quality floor; rows priced below it are malformed.
const minPrice = 10

// Cleaner turns a raw listings table into cleaned listings.
type Cleaner struct {
	logger *zap.Logger
}

// NewCleaner creates a Cleaner
func NewCleaner(logger *zap.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

type cleanRow struct {
	raw     *model.RawListing
	listing *model.Listing
}

// Clean runs the cleaning steps in order: column selection, bathrooms parsing,
// price normalisation, outlier filtering, target binning, amenity flags and
// row pruning. A price that cannot be parsed aborts the whole batch.
func (c *Cleaner) Clean(table *dataset.Table) ([]*model.Listing, error) {
	raws, err := SelectColumns(table)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Selected raw columns", zap.Int("rows", len(raws)))

	rows := make([]*cleanRow, len(raws))
	for i, r := range raws {
		rows[i] = &cleanRow{raw: r, listing: typedListing(r)}
	}

	for _, r := range rows {
		r.listing.Bathrooms = ParseBathrooms(r.raw.BathroomsText)
	}

	for i, r := range rows {
		price, err := ParsePrice(r.raw.Price)
		if err != nil {
			return nil, fmt.Errorf("row %d (id %q): %w", i+1, r.raw.ID, err)
		}
		r.listing.Price = price
	}

	kept := rows[:0]
	for _, r := range rows {
		if r.listing.Price >= minPrice {
			kept = append(kept, r)
		}
	}
	c.logger.Info("Filtered price outliers",
		zap.Int("kept", len(kept)),
		zap.Int("dropped", len(rows)-len(kept)),
		zap.Int("min_price", minPrice))
	rows = kept

	for _, r := range rows {
		r.listing.Category = PriceCategory(r.listing.Price)
	}

	for _, r := range rows {
		r.listing.Amenities = AmenityFlags(r.raw.Amenities)
	}

	out := make([]*model.Listing, 0, len(rows))
	for _, r := range rows {
		if complete(r.listing) {
			out = append(out, r.listing)
		}
	}
	c.logger.Info("Pruned incomplete rows",
		zap.Int("kept", len(out)),
		zap.Int("dropped", len(rows)-len(out)))

	return out, nil
}

// SelectColumns keeps the documented raw columns and renames the neighbourhood
// group. The unreliable numeric bathrooms column is never read.
func SelectColumns(table *dataset.Table) ([]*model.RawListing, error) {
	idx := table.Index()
	if _, ok := idx[rawNeighbourhood]; !ok {
		if pos, ok := idx[rawNeighbourhoodFull]; ok {
			idx[rawNeighbourhood] = pos
		}
	}

	required := []string{
		rawID, rawNeighbourhood, rawPropertyType, rawRoomType, rawLatitude, rawLongitude,
		rawAccommodates, rawBathroomsText, rawBedrooms, rawBeds, rawAmenities, rawPrice,
	}
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &model.MissingColumnsError{Columns: missing}
	}

	cell := func(row []string, col string) string {
		if p := idx[col]; p < len(row) {
			return strings.TrimSpace(row[p])
		}
		return ""
	}

	out := make([]*model.RawListing, len(table.Rows))
	for i, row := range table.Rows {
		out[i] = &model.RawListing{
			ID:            cell(row, rawID),
			Neighbourhood: cell(row, rawNeighbourhood),
			PropertyType:  cell(row, rawPropertyType),
			RoomType:      cell(row, rawRoomType),
			Latitude:      cell(row, rawLatitude),
			Longitude:     cell(row, rawLongitude),
			Accommodates:  cell(row, rawAccommodates),
			BathroomsText: cell(row, rawBathroomsText),
			Bedrooms:      cell(row, rawBedrooms),
			Beds:          cell(row, rawBeds),
			Amenities:     cell(row, rawAmenities),
			Price:         cell(row, rawPrice),
		}
	}
	return out, nil
}

// ParseBathrooms reads the leading token of a text like "1.5 baths".
// Empty or unparseable text yields nil.
func ParseBathrooms(text string) *float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return parseFloat(fields[0])
}

// ParsePrice returns the integer part of a currency string such as "$1,200.00".
// Fractional cents are truncated.
func ParsePrice(raw string) (int, error) {
	match := priceRegexp.FindString(strings.ReplaceAll(raw, ",", ""))
	if match == "" {
		return 0, fmt.Errorf("price %q: %w", raw, model.ErrParse)
	}
	d, err := decimal.NewFromString(match)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", raw, model.ErrParse)
	}
	whole := d.Truncate(0).BigInt()
	if !whole.IsInt64() || whole.Int64() > math.MaxInt {
		return 0, fmt.Errorf("price %q out of range: %w", raw, model.ErrParse)
	}
	return int(whole.Int64()), nil
}

// PriceCategory bins a price into [10,90), [90,180), [180,400), [400,inf).
func PriceCategory(price int) int {
	switch {
	case price >= 400:
		return 3
	case price >= 180:
		return 2
	case price >= 90:
		return 1
	default:
		return 0
	}
}

// AmenityFlags marks each tracked amenity found in the raw amenities blob.
func AmenityFlags(blob string) model.AmenityFlags {
	flags := make(model.AmenityFlags, len(mapping.TrackedAmenities))
	for _, a := range mapping.TrackedAmenities {
		if strings.Contains(blob, a.Match) {
			flags[a.Column] = 1
		} else {
			flags[a.Column] = 0
		}
	}
	return flags
}

func typedListing(r *model.RawListing) *model.Listing {
	return &model.Listing{
		ID:            parseInt64(r.ID),
		Neighbourhood: r.Neighbourhood,
		PropertyType:  r.PropertyType,
		RoomType:      r.RoomType,
		Latitude:      parseFloat(r.Latitude),
		Longitude:     parseFloat(r.Longitude),
		Accommodates:  parseInt(r.Accommodates),
		Bedrooms:      parseFloat(r.Bedrooms),
		Beds:          parseFloat(r.Beds),
	}
}

func complete(l *model.Listing) bool {
	return l.ID != nil &&
		l.Neighbourhood != "" &&
		l.PropertyType != "" &&
		l.RoomType != "" &&
		l.Latitude != nil &&
		l.Longitude != nil &&
		l.Accommodates != nil &&
		l.Bathrooms != nil &&
		l.Bedrooms != nil &&
		l.Beds != nil
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	f := parseFloat(s)
	if f == nil || *f != float64(int(*f)) {
		return nil
	}
	v := int(*f)
	return &v
}

func parseInt64(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f := parseFloat(s)
		if f == nil || *f != float64(int64(*f)) {
			return nil
		}
		v = int64(*f)
	}
	return &v
}
