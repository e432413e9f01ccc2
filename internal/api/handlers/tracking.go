package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentradar/backend/internal/models"
	"github.com/rentradar/backend/internal/services"
	"github.com/rentradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

type TrackingHandler struct {
	tracker *services.TrackerService
	logger  *logrus.Logger
}

func NewTrackingHandler(tracker *services.TrackerService, logger *logrus.Logger) *TrackingHandler {
	return &TrackingHandler{
		tracker: tracker,
		logger:  logger,
	}
}

// HandleTrack ingests one interaction. Malformed requests are rejected, but
// a well-formed request always gets 202: recording happens off the request
// path and its failures never surface to the triggering flow.
func (h *TrackingHandler) HandleTrack(c *gin.Context) {
	var req models.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	activityKind := models.ActivityKind(req.ActivityKind)
	entityKind := models.EntityKind(req.EntityKind)
	if !models.ValidActivityKind(activityKind) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid activity kind", nil)
		return
	}
	if !models.ValidEntityKind(entityKind) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid entity kind", nil)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = getUserSession(c)
	}

	input := services.TrackInput{
		UserID:       req.UserID,
		ActivityKind: activityKind,
		EntityKind:   entityKind,
		EntityID:     req.EntityID,
		Metadata:     req.Metadata,
		SessionID:    sessionID,
		IPAddress:    c.ClientIP(),
	}

	go h.tracker.Track(input)

	utils.SuccessResponse(c, http.StatusAccepted, "Activity accepted", nil)
}
