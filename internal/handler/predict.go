package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pricetier/internal/model"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// PricePredictor serves a single prediction
type PricePredictor interface {
	Predict(ctx context.Context, req *model.PredictRequest) (*model.PredictResponse, error)
}

// PredictionHistory lists previously served predictions
type PredictionHistory interface {
	RecentPredictions(ctx context.Context, listingID int64, limit int) ([]model.PredictionRecord, error)
}

// PredictHandler handles prediction HTTP requests
type PredictHandler struct {
	predictor PricePredictor
	history   PredictionHistory
	logger    *zap.Logger
}

// NewPredictHandler creates a new predict handler. history may be nil when
// predictions are not persisted.
func NewPredictHandler(predictor PricePredictor, history PredictionHistory, logger *zap.Logger) *PredictHandler {
	return &PredictHandler{
		predictor: predictor,
		history:   history,
		logger:    logger,
	}
}

// Predict handles POST /api/v1/predict
func (h *PredictHandler) Predict(c *gin.Context) {
	var req model.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{Error: model.ErrorDetail{
			Kind:    model.KindValidation,
			Message: "Invalid request: " + err.Error(),
		}})
		return
	}

	resp, err := h.predictor.Predict(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// History handles GET /api/v1/predictions/:listing_id
func (h *PredictHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: model.ErrorDetail{
			Kind:    model.KindNotFound,
			Message: "Prediction history is not enabled",
		}})
		return
	}

	listingID, err := strconv.ParseInt(c.Param("listing_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: model.ErrorDetail{
			Kind:    model.KindValidation,
			Message: "Invalid listing ID",
		}})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: model.ErrorDetail{
				Kind:    model.KindValidation,
				Message: "Invalid limit",
			}})
			return
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}
	}

	records, err := h.history.RecentPredictions(c.Request.Context(), listingID, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing_id":  listingID,
		"predictions": historyItems(records),
	})
}

func (h *PredictHandler) writeError(c *gin.Context, err error) {
	kind := model.KindOf(err)
	detail := model.ErrorDetail{Kind: kind, Message: err.Error()}

	status := http.StatusInternalServerError
	switch kind {
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindValidation:
		status = http.StatusBadRequest
		var mc *model.MissingColumnsError
		if errors.As(err, &mc) {
			detail.MissingColumns = mc.Columns
		}
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		detail.Message = "Internal server error"
	}

	c.JSON(status, model.ErrorResponse{Error: detail})
}

type historyItem struct {
	RequestID     string `json:"request_id"`
	ModelPath     string `json:"model_path"`
	ModelRunID    string `json:"model_run_id"`
	PriceCategory string `json:"price_category"`
	CreatedAt     string `json:"created_at"`
}

func historyItems(records []model.PredictionRecord) []historyItem {
	items := make([]historyItem, 0, len(records))
	for _, r := range records {
		items = append(items, historyItem{
			RequestID:     r.RequestID,
			ModelPath:     r.ModelPath,
			ModelRunID:    r.ModelRunID,
			PriceCategory: r.PriceCategory,
			CreatedAt:     r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return items
}
