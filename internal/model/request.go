package model

import "time"

// PredictRequest represents a prediction request for a single listing
type PredictRequest struct {
	InputData ListingInput `json:"input_data"`
	ModelFile ModelToLoad  `json:"model_file"`
}

// ListingInput represents the feature values of one listing.
// Fields are pointers so that an absent field can be told apart from a zero value.
type ListingInput struct {
	ID            *int64   `json:"id"`
	Accommodates  *int     `json:"accommodates"`
	RoomType      *string  `json:"room_type"`
	Beds          *float64 `json:"beds"`
	Bedrooms      *float64 `json:"bedrooms"`
	Bathrooms     *float64 `json:"bathrooms"`
	Neighbourhood *string  `json:"neighbourhood"`
	TV            *int     `json:"tv"`
	Elevator      *int     `json:"elevator"`
	Internet      *int     `json:"internet"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

// ModelToLoad names a model artifact relative to the model folder
type ModelToLoad struct {
	ModelPath string `json:"model_path"`
}

// PredictResponse represents a successful prediction
type PredictResponse struct {
	ID            int64  `json:"id"`
	PriceCategory string `json:"price_category"`
}

// ErrorResponse is the body returned for every failed request
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a distinguishable kind alongside a client-safe message
type ErrorDetail struct {
	Kind           ErrorKind `json:"kind"`
	Message        string    `json:"message"`
	MissingColumns []string  `json:"missing_columns,omitempty"`
}

// PredictionRecord is one served prediction, kept for auditing
type PredictionRecord struct {
	RequestID     string    `db:"request_id"`
	ListingID     int64     `db:"listing_id"`
	ModelPath     string    `db:"model_path"`
	ModelRunID    string    `db:"model_run_id"`
	Category      int       `db:"category"`
	PriceCategory string    `db:"price_category"`
	Features      []float64 `db:"-"`
	CreatedAt     time.Time `db:"created_at"`
}
