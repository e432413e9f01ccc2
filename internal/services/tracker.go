package services

import (
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// TrackerService is the write path of the engine: one ActivityRecord per
// interaction, synchronously fed into the preference learner.
type TrackerService struct {
	activities  models.ActivityRepository
	preferences *PreferenceService
	logger      *logrus.Logger
}

// TrackInput carries the interaction context explicitly; nothing is read
// from ambient request state.
type TrackInput struct {
	UserID       uint
	ActivityKind models.ActivityKind
	EntityKind   models.EntityKind
	EntityID     uint
	Metadata     map[string]string
	SessionID    string
	IPAddress    string
}

func NewTrackerService(
	activities models.ActivityRepository,
	preferences *PreferenceService,
	logger *logrus.Logger,
) *TrackerService {
	return &TrackerService{
		activities:  activities,
		preferences: preferences,
		logger:      logger,
	}
}

// Track appends the activity and updates preferences. It never returns an
// error: a failed tracking call must not block the business action that
// triggered it, so failures are logged and swallowed.
func (s *TrackerService) Track(input TrackInput) {
	record := &models.ActivityRecord{
		UserID:       input.UserID,
		ActivityKind: input.ActivityKind,
		EntityKind:   input.EntityKind,
		EntityID:     input.EntityID,
		Metadata:     models.JSONMap(input.Metadata),
		SessionID:    input.SessionID,
		IPAddress:    input.IPAddress,
	}

	if err := record.Validate(); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":       input.UserID,
			"activity_kind": input.ActivityKind,
			"entity_kind":   input.EntityKind,
		}).Warn("Dropping invalid activity")
		return
	}

	if err := s.activities.Create(record); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":     input.UserID,
			"entity_kind": input.EntityKind,
			"entity_id":   input.EntityID,
		}).Error("Failed to record activity")
		return
	}

	s.preferences.Observe(input.UserID, input.ActivityKind, input.EntityKind, input.EntityID)
}
