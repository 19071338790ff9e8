package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricetier/internal/dataset"
	"pricetier/internal/model"
)

var rawHeader = []string{
	"id", "neighbourhood_group", "property_type", "room_type", "latitude", "longitude",
	"accommodates", "bathrooms", "bathrooms_text", "bedrooms", "beds", "amenities", "price",
	"host_name",
}

func rawRow(id, bathText, price string) []string {
	return []string{
		id, "Brooklyn", "Entire loft", "Entire home/apt", "40.68", "-73.95",
		"2", "", bathText, "1", "1", `["Wifi", "Kitchen", "TV with cable"]`, price,
		"someone",
	}
}

func TestCleaner_EndToEnd(t *testing.T) {
	table := &dataset.Table{
		Header: rawHeader,
		Rows: [][]string{
			rawRow("1", "1 bath", "$50.00"),
			rawRow("2", "1 bath", "$95.50"),
			rawRow("3", "1 bath", "$5.00"),
		},
	}

	listings, err := NewCleaner(zap.NewNop()).Clean(table)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, int64(1), *listings[0].ID)
	assert.Equal(t, 50, listings[0].Price)
	assert.Equal(t, 0, listings[0].Category)
	assert.Equal(t, int64(2), *listings[1].ID)
	assert.Equal(t, 95, listings[1].Price)
	assert.Equal(t, 1, listings[1].Category)

	assert.Equal(t, "Brooklyn", listings[0].Neighbourhood)
	assert.Equal(t, 1, listings[0].Amenities["wifi"])
	assert.Equal(t, 1, listings[0].Amenities["kitchen"])
	assert.Equal(t, 1, listings[0].Amenities["tv"])
	assert.Equal(t, 0, listings[0].Amenities["elevator"])
	assert.Len(t, listings[0].Amenities, 8)
}

func TestCleaner_Bathrooms(t *testing.T) {
	table := &dataset.Table{
		Header: rawHeader,
		Rows: [][]string{
			rawRow("1", "2 shared bath", "$100"),
			rawRow("2", "1.5 baths", "$100"),
			rawRow("3", "", "$100"),
			rawRow("4", "Half-bath", "$100"),
		},
	}

	listings, err := NewCleaner(zap.NewNop()).Clean(table)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, 2.0, *listings[0].Bathrooms)
	assert.Equal(t, 1.5, *listings[1].Bathrooms)
}

func TestCleaner_UnparseablePriceAbortsBatch(t *testing.T) {
	table := &dataset.Table{
		Header: rawHeader,
		Rows: [][]string{
			rawRow("1", "1 bath", "$100"),
			rawRow("2", "1 bath", "free"),
		},
	}

	_, err := NewCleaner(zap.NewNop()).Clean(table)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrParse)
}

func TestCleaner_MissingColumns(t *testing.T) {
	table := &dataset.Table{
		Header: []string{"id", "room_type", "price"},
		Rows:   [][]string{{"1", "Private room", "$100"}},
	}

	_, err := NewCleaner(zap.NewNop()).Clean(table)
	var mc *model.MissingColumnsError
	require.ErrorAs(t, err, &mc)
	assert.Contains(t, mc.Columns, "neighbourhood_group")
	assert.Contains(t, mc.Columns, "bathrooms_text")
	assert.NotContains(t, mc.Columns, "room_type")
}

func TestCleaner_AcceptsCleansedNeighbourhoodHeader(t *testing.T) {
	header := append([]string(nil), rawHeader...)
	header[1] = "neighbourhood_group_cleansed"
	table := &dataset.Table{Header: header, Rows: [][]string{rawRow("9", "1 bath", "$120")}}

	listings, err := NewCleaner(zap.NewNop()).Clean(table)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Brooklyn", listings[0].Neighbourhood)
}

func TestCleaner_PrunesIncompleteRows(t *testing.T) {
	noBeds := rawRow("2", "1 bath", "$100")
	noBeds[10] = ""
	badLat := rawRow("3", "1 bath", "$100")
	badLat[4] = "north"

	table := &dataset.Table{
		Header: rawHeader,
		Rows:   [][]string{rawRow("1", "1 bath", "$100"), noBeds, badLat},
	}

	listings, err := NewCleaner(zap.NewNop()).Clean(table)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, int64(1), *listings[0].ID)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "$1,200.00", want: 1200},
		{raw: "$95.99", want: 95},
		{raw: "$10", want: 10},
		{raw: "  $12,345,678.50 ", want: 12345678},
		{raw: "", wantErr: true},
		{raw: "$", wantErr: true},
		{raw: "$18446744073709551716.00", wantErr: true},
		{raw: "$99,999,999,999,999,999,999.00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePrice(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceCategory(t *testing.T) {
	tests := []struct {
		price int
		want  int
	}{
		{10, 0}, {89, 0}, {90, 1}, {179, 1}, {180, 2}, {399, 2}, {400, 3}, {10000, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriceCategory(tt.price), "price %d", tt.price)
	}
}

func TestAmenityFlags_CaseSensitive(t *testing.T) {
	flags := AmenityFlags(`["wifi", "Air conditioning", "Elevator"]`)
	assert.Equal(t, 0, flags["wifi"])
	assert.Equal(t, 1, flags["air_conditioning"])
	assert.Equal(t, 1, flags["elevator"])
	assert.Equal(t, 0, flags["breakfast"])
}
