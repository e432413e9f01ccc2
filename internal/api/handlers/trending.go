package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentradar/backend/internal/models"
	"github.com/rentradar/backend/internal/services"
	"github.com/rentradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

type TrendingHandler struct {
	trends *services.TrendService
	logger *logrus.Logger
}

func NewTrendingHandler(trends *services.TrendService, logger *logrus.Logger) *TrendingHandler {
	return &TrendingHandler{trends: trends, logger: logger}
}

// HandleTrending serves the current trending listings, optionally
// filtered by entity kind and location. The location filter only matches
// records written with that location; the recompute job currently writes
// the global rollup only, so a location filter returns an empty list until
// per-location rollups land.
func (h *TrendingHandler) HandleTrending(c *gin.Context) {
	kind, valid := parseOptionalKind(c.Query("kind"))
	if !valid {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid entity kind", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	items, err := h.trends.GetTrending(c.Request.Context(), kind, c.Query("location"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get trending listings")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get trending listings", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Trending listings retrieved", models.TrendingResponse{
		Items: items,
		Total: len(items),
	})
}

// HandleRecompute rebuilds trend aggregates for a given day. Intended
// for operators; the nightly cmd/trends job calls the same service.
func (h *TrendingHandler) HandleRecompute(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
			return
		}
		day = parsed
	}

	if err := h.trends.RecomputeTrends(c.Request.Context(), day); err != nil {
		h.logger.WithError(err).Error("Trend recompute finished with failures")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Trend recompute finished with failures", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Trends recomputed", gin.H{
		"date": day.Format("2006-01-02"),
	})
}
