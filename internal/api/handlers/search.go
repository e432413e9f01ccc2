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

type SearchHandler struct {
	searchService *services.SearchService
	logger        *logrus.Logger
}

func NewSearchHandler(searchService *services.SearchService, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// HandleLogSearch records a search request for suggestions and analytics.
func (h *SearchHandler) HandleLogSearch(c *gin.Context) {
	var req models.SearchLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if req.SessionID == "" {
		req.SessionID = getUserSession(c)
	}

	log, err := h.searchService.LogSearch(req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to log search")
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to log search", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Search logged", gin.H{"search_id": log.ID})
}

// HandleSearchSuccess marks a logged search as having led to a selection.
func (h *SearchHandler) HandleSearchSuccess(c *gin.Context) {
	searchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid search id", err)
		return
	}

	var req models.SearchSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	err = h.searchService.MarkSearchSuccessful(uint(searchID), models.EntityKind(req.EntityKind), req.EntityID)
	if err != nil {
		if errors.Is(err, services.ErrSearchNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Search record not found", nil)
			return
		}
		h.logger.WithError(err).Error("Failed to mark search successful")
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to mark search successful", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Search marked successful", nil)
}

// HandleSearchSuggestions returns merged, deduplicated search suggestions.
func (h *SearchHandler) HandleSearchSuggestions(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Query parameter 'q' is required", nil)
		return
	}

	kind, ok := parseOptionalKind(c.Query("kind"))
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid entity kind", nil)
		return
	}

	var userID *uint
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid user id", err)
			return
		}
		id := uint(parsed)
		userID = &id
	}

	suggestions := h.searchService.Suggestions(c.Request.Context(), query, kind, userID)

	utils.SuccessResponse(c, http.StatusOK, "Suggestions retrieved", models.SuggestionsResponse{
		Suggestions: suggestions,
	})
}

// Shared helpers

// parseOptionalKind parses an optional entity kind query parameter. Empty
// input is valid and means "all kinds".
func parseOptionalKind(raw string) (*models.EntityKind, bool) {
	if raw == "" || raw == "all" {
		return nil, true
	}
	kind := models.EntityKind(raw)
	if !models.ValidEntityKind(kind) {
		return nil, false
	}
	return &kind, true
}

// getUserSession extracts the session id from headers, falling back to a
// basic IP + user-agent fingerprint.
func getUserSession(c *gin.Context) string {
	if session := c.GetHeader("X-Session-ID"); session != "" {
		return session
	}
	return utils.GenerateSessionID(c.ClientIP() + c.GetHeader("User-Agent"))
}
