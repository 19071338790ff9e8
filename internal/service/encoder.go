package service

import (
	"math"

	"go.uber.org/zap"

	"pricetier/internal/dataset"
	"pricetier/internal/mapping"
	"pricetier/internal/model"
)

// Encoder maps cleaned listings onto the numeric feature schema.
type Encoder struct {
	logger *zap.Logger
}

// NewEncoder creates an Encoder
func NewEncoder(logger *zap.Logger) *Encoder {
	return &Encoder{logger: logger}
}

// Encode builds a frame with the feature columns followed by the category.
// A categorical value with no mapping becomes NaN and its row is dropped,
// so the returned frame holds complete rows only. The stored listings carry
// the vector of every listing, nil where encoding failed.
func (e *Encoder) Encode(listings []*model.Listing) (*dataset.Frame, []model.StoredListing) {
	columns := append(append([]string(nil), mapping.FeatureNames...), mapping.ColCategory)
	frame := dataset.NewFrame(columns)
	stored := make([]model.StoredListing, len(listings))

	unknown := 0
	for i, l := range listings {
		vec, err := FeatureVector(l)
		stored[i] = model.StoredListing{Listing: l}
		if err != nil {
			unknown++
			e.logger.Debug("Unmapped category", zap.Error(err))
			vec = nanVector()
		} else {
			stored[i].Features = vec
		}
		row := append(append([]float64(nil), vec...), float64(l.Category))
		// Append cannot fail: the row width always matches the columns.
		_ = frame.Append(row)
	}

	frame, dropped := frame.DropMissing()
	if unknown > 0 || dropped > 0 {
		e.logger.Warn("Dropped rows with unmapped categories",
			zap.Int("unmapped", unknown),
			zap.Int("dropped", dropped))
	}
	e.logger.Info("Encoded listings",
		zap.Int("rows", frame.Len()),
		zap.Strings("features", mapping.FeatureNames))
	return frame, stored
}

// FeatureVector encodes one cleaned listing in feature order.
func FeatureVector(l *model.Listing) ([]float64, error) {
	n, err := mapping.EncodeNeighbourhood(l.Neighbourhood)
	if err != nil {
		return nil, err
	}
	r, err := mapping.EncodeRoomType(l.RoomType)
	if err != nil {
		return nil, err
	}
	return []float64{
		float64(n),
		float64(r),
		intAsFloat(l.Accommodates),
		derefFloat(l.Bathrooms),
		derefFloat(l.Bedrooms),
	}, nil
}

func nanVector() []float64 {
	vec := make([]float64, len(mapping.FeatureNames))
	for i := range vec {
		vec[i] = math.NaN()
	}
	return vec
}

func intAsFloat(v *int) float64 {
	if v == nil {
		return math.NaN()
	}
	return float64(*v)
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
