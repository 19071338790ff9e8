package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"pricetier/internal/mapping"
	"pricetier/internal/model"
)

var baseProcessedColumns = []string{
	"id", "neighbourhood", "property_type", "room_type", "latitude", "longitude",
	"accommodates", "bathrooms", "bedrooms", "beds", "price", "category",
}

// ProcessedColumns returns the header of the processed listings file.
func ProcessedColumns() []string {
	cols := append([]string(nil), baseProcessedColumns...)
	return append(cols, mapping.AmenityColumns()...)
}

// WriteListingsFile writes cleaned listings to path, creating parent directories.
func WriteListingsFile(path string, listings []*model.Listing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	if err := WriteListings(f, listings); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteListings writes the processed header followed by one row per listing.
func WriteListings(w io.Writer, listings []*model.Listing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ProcessedColumns()); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	amenities := mapping.AmenityColumns()
	for _, l := range listings {
		row := []string{
			formatInt64(l.ID),
			l.Neighbourhood,
			l.PropertyType,
			l.RoomType,
			formatFloat(l.Latitude),
			formatFloat(l.Longitude),
			formatInt(l.Accommodates),
			formatFloat(l.Bathrooms),
			formatFloat(l.Bedrooms),
			formatFloat(l.Beds),
			strconv.Itoa(l.Price),
			strconv.Itoa(l.Category),
		}
		for _, col := range amenities {
			row = append(row, strconv.Itoa(l.Amenities[col]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
