package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rentradar/backend/internal/models"
	"github.com/rentradar/backend/internal/services"
	"github.com/rentradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

type RecommendationHandler struct {
	recommender *services.RecommendationService
	feedback    *services.FeedbackService
	logger      *logrus.Logger
}

func NewRecommendationHandler(
	recommender *services.RecommendationService,
	feedback *services.FeedbackService,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		feedback:    feedback,
		logger:      logger,
	}
}

// HandleGetRecommendations serves the user's ranked recommendations.
func (h *RecommendationHandler) HandleGetRecommendations(c *gin.Context) {
	userID, ok := parseUserID(c, c.Query("user_id"))
	if !ok {
		return
	}

	kind, valid := parseOptionalKind(c.Query("kind"))
	if !valid {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid entity kind", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	items, err := h.recommender.GetRecommendations(c.Request.Context(), userID, kind, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recommendations")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get recommendations", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Recommendations retrieved", models.RecommendationResponse{
		Recommendations: items,
		Total:           len(items),
	})
}

// HandleGenerate forces a fresh recommendation computation for the user.
func (h *RecommendationHandler) HandleGenerate(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	var kinds []models.EntityKind
	for _, raw := range req.EntityKinds {
		kind := models.EntityKind(raw)
		if !models.ValidEntityKind(kind) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid entity kind: "+raw, nil)
			return
		}
		kinds = append(kinds, kind)
	}

	limit := req.Limit
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	entries, err := h.recommender.Generate(c.Request.Context(), req.UserID, kinds, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate recommendations")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to generate recommendations", err)
		return
	}

	items := make([]models.RecommendationItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, models.RecommendationItem{
			ID:         entry.ID,
			EntityKind: string(entry.EntityKind),
			EntityID:   entry.EntityID,
			Strategy:   string(entry.Strategy),
			Score:      entry.Score,
			Reason:     entry.Reason,
		})
	}

	utils.SuccessResponse(c, http.StatusOK, "Recommendations generated", models.RecommendationResponse{
		Recommendations: items,
		Total:           len(items),
	})
}

// HandleMarkViewed records first exposure of a recommendation.
func (h *RecommendationHandler) HandleMarkViewed(c *gin.Context) {
	h.handleMark(c, h.feedback.MarkViewed, "Recommendation marked viewed")
}

// HandleMarkClicked records a click; a click implies a view.
func (h *RecommendationHandler) HandleMarkClicked(c *gin.Context) {
	h.handleMark(c, h.feedback.MarkClicked, "Recommendation marked clicked")
}

// HandleMarkConverted records a conversion; it implies click and view.
func (h *RecommendationHandler) HandleMarkConverted(c *gin.Context) {
	h.handleMark(c, h.feedback.MarkConverted, "Recommendation marked converted")
}

func (h *RecommendationHandler) handleMark(c *gin.Context, mark func(userID, recommendationID uint) error, message string) {
	recommendationID, ok := parseRecommendationID(c)
	if !ok {
		return
	}

	var req models.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := mark(req.UserID, recommendationID); err != nil {
		if errors.Is(err, services.ErrRecommendationNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Recommendation not found", nil)
			return
		}
		h.logger.WithError(err).Error("Failed to mark recommendation")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to mark recommendation", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, message, nil)
}

// HandleFeedback stores explicit feedback on a recommendation.
func (h *RecommendationHandler) HandleFeedback(c *gin.Context) {
	recommendationID, ok := parseRecommendationID(c)
	if !ok {
		return
	}

	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid feedback format", err)
		return
	}

	kind := models.FeedbackKind(req.FeedbackKind)
	if !models.ValidFeedbackKind(kind) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid feedback kind", nil)
		return
	}

	err := h.feedback.RecordFeedback(req.UserID, recommendationID, kind, req.Comment)
	if err != nil {
		if errors.Is(err, services.ErrRecommendationNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Recommendation not found", nil)
			return
		}
		h.logger.WithError(err).Error("Failed to record feedback")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to record feedback", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Feedback recorded", nil)
}

func parseRecommendationID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid recommendation id", err)
		return 0, false
	}
	return uint(id), true
}

func parseUserID(c *gin.Context, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Valid user_id is required", err)
		return 0, false
	}
	return uint(id), true
}
