package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"pricetier/internal/model"
)

// APIError is a non-2xx answer from the prediction service.
type APIError struct {
	StatusCode int
	Detail     model.ErrorDetail
}

func (e *APIError) Error() string {
	if e.Detail.Message == "" {
		return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("prediction service returned status %d (%s): %s", e.StatusCode, e.Detail.Kind, e.Detail.Message)
}

// Is maps the answer back onto the local error taxonomy so that callers can
// use model.KindOf on client errors too.
func (e *APIError) Is(target error) bool {
	switch e.Detail.Kind {
	case model.KindNotFound:
		return target == model.ErrModelNotFound
	case model.KindValidation:
		if len(e.Detail.MissingColumns) > 0 {
			return target == model.ErrMissingColumns
		}
		return target == model.ErrInvalidInput
	}
	return false
}

// Client calls the prediction service over HTTP
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// New creates a client for the service at baseURL
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Predict sends one listing to POST /api/v1/predict
func (c *Client) Predict(ctx context.Context, req *model.PredictRequest) (*model.PredictResponse, error) {
	var (
		result  model.PredictResponse
		failure model.ErrorResponse
	)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&failure).
		Post("/api/v1/predict")
	if err != nil {
		c.logger.Error("Prediction request failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call prediction service: %w", err)
	}

	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Detail: failure.Error}
		c.logger.Warn("Prediction service returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("kind", string(failure.Error.Kind)),
		)
		return nil, apiErr
	}

	return &result, nil
}

// Health calls GET /health
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.httpClient.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("failed to call prediction service: %w", err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode()}
	}
	return nil
}

// StatusCode extracts the HTTP status from a client error, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
