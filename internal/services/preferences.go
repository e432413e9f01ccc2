package services

import (
	"errors"
	"time"

	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PreferenceService learns per-user feature weights from the activity stream.
type PreferenceService struct {
	preferences models.PreferenceRepository
	listings    models.ListingResolver
	engine      config.Engine
	logger      *logrus.Logger
}

// activityBaseWeights maps each interaction to its learning signal strength.
var activityBaseWeights = map[models.ActivityKind]float64{
	models.ActivityView:     1,
	models.ActivitySearch:   1.5,
	models.ActivityClick:    2,
	models.ActivityFavorite: 3,
	models.ActivityReview:   4,
	models.ActivityBook:     5,
}

// maxBaseWeight normalizes base weights into [0,1] before the EMA step.
const maxBaseWeight = 5.0

func NewPreferenceService(
	preferences models.PreferenceRepository,
	listings models.ListingResolver,
	engine config.Engine,
	logger *logrus.Logger,
) *PreferenceService {
	return &PreferenceService{
		preferences: preferences,
		listings:    listings,
		engine:      engine,
		logger:      logger,
	}
}

// Observe folds one interaction into the user's preference signals. It never
// returns an error: preference learning must not block the tracked action.
func (s *PreferenceService) Observe(userID uint, activityKind models.ActivityKind, entityKind models.EntityKind, entityID uint) {
	base, ok := activityBaseWeights[activityKind]
	if !ok {
		s.logger.WithField("activity_kind", activityKind).Warn("Unknown activity kind, skipping preference update")
		return
	}

	summaries, err := s.listings.Summaries(entityKind, []uint{entityID})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"entity_kind": entityKind,
			"entity_id":   entityID,
		}).Warn("Failed to resolve listing for preference update")
		return
	}
	if len(summaries) == 0 {
		s.logger.WithFields(logrus.Fields{
			"entity_kind": entityKind,
			"entity_id":   entityID,
		}).Debug("Listing not found, skipping preference update")
		return
	}

	listing := summaries[0]
	if listing.Category != "" {
		s.observeSignal(userID, models.CategoryPreferenceKind(entityKind), listing.Category, base)
	}
	if listing.City != "" {
		s.observeSignal(userID, models.PreferenceCity, listing.City, base)
	}
}

func (s *PreferenceService) observeSignal(userID uint, preferenceKind, preferenceKey string, baseWeight float64) {
	signal, err := s.preferences.Get(userID, preferenceKind, preferenceKey)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.WithError(err).Error("Failed to load preference signal")
			return
		}
		signal = &models.PreferenceSignal{
			UserID:         userID,
			PreferenceKind: preferenceKind,
			PreferenceKey:  preferenceKey,
			Weight:         0.5,
			Confidence:     0.5,
		}
	}

	applyObservation(signal, baseWeight, s.engine.LearningRate, s.engine.ConfidenceStep)

	if err := s.preferences.Upsert(signal); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":         userID,
			"preference_kind": preferenceKind,
			"preference_key":  preferenceKey,
		}).Error("Failed to upsert preference signal")
	}
}

// applyObservation is a streaming exponential moving average: O(1) per event,
// no batch recomputation. Weight and confidence stay clamped to [0,1].
func applyObservation(signal *models.PreferenceSignal, baseWeight, alpha, confidenceStep float64) {
	normalized := baseWeight / maxBaseWeight
	signal.Weight = clamp01(alpha*normalized + (1-alpha)*signal.Weight)
	signal.Confidence = clamp01(signal.Confidence + confidenceStep)
	signal.InteractionCount++
	signal.LastInteractionAt = time.Now()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PreferredCities returns the user's strongest learned city signals.
func (s *PreferenceService) PreferredCities(userID uint, limit int) []string {
	signals, err := s.preferences.TopByKind(userID, models.PreferenceCity, limit)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load city preferences")
		return nil
	}

	cities := make([]string, 0, len(signals))
	for _, signal := range signals {
		cities = append(cities, signal.PreferenceKey)
	}
	return cities
}
