package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrRecommendationNotFound covers both absent entries and entries owned by
// another user; callers cannot distinguish the two.
var ErrRecommendationNotFound = errors.New("recommendation not found")

// FeedbackService records engagement and explicit feedback on recommendations.
type FeedbackService struct {
	recommendations models.RecommendationRepository
	feedback        models.FeedbackRepository
	logger          *logrus.Logger
}

func NewFeedbackService(
	recommendations models.RecommendationRepository,
	feedback models.FeedbackRepository,
	logger *logrus.Logger,
) *FeedbackService {
	return &FeedbackService{
		recommendations: recommendations,
		feedback:        feedback,
		logger:          logger,
	}
}

// ownedEntry loads the recommendation and verifies ownership.
func (s *FeedbackService) ownedEntry(userID, recommendationID uint) (*models.RecommendationEntry, error) {
	entry, err := s.recommendations.GetByID(recommendationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecommendationNotFound
		}
		return nil, err
	}
	if entry.UserID != userID {
		return nil, ErrRecommendationNotFound
	}
	return entry, nil
}

// MarkViewed stamps first exposure. Re-marking is a no-op.
func (s *FeedbackService) MarkViewed(userID, recommendationID uint) error {
	return s.markStages(userID, recommendationID, false, false)
}

// MarkClicked stamps a click; a click implies a view.
func (s *FeedbackService) MarkClicked(userID, recommendationID uint) error {
	return s.markStages(userID, recommendationID, true, false)
}

// MarkConverted stamps a conversion; a conversion implies a click and a view.
func (s *FeedbackService) MarkConverted(userID, recommendationID uint) error {
	return s.markStages(userID, recommendationID, true, true)
}

// markStages applies the one-directional engagement cascade. Timestamps are
// only ever set once and never cleared.
func (s *FeedbackService) markStages(userID, recommendationID uint, clicked, converted bool) error {
	entry, err := s.ownedEntry(userID, recommendationID)
	if err != nil {
		return err
	}

	now := time.Now()
	changed := false
	if entry.ViewedAt == nil {
		entry.ViewedAt = &now
		changed = true
	}
	if clicked && entry.ClickedAt == nil {
		entry.ClickedAt = &now
		changed = true
	}
	if converted && entry.ConvertedAt == nil {
		entry.ConvertedAt = &now
		changed = true
	}
	if !changed {
		return nil
	}

	if err := s.recommendations.Save(entry); err != nil {
		return fmt.Errorf("failed to save recommendation engagement: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":           userID,
		"recommendation_id": recommendationID,
		"clicked":           clicked,
		"converted":         converted,
	}).Debug("Recommendation engagement recorded")

	return nil
}

// RecordFeedback upserts explicit feedback, unique per (user, recommendation).
func (s *FeedbackService) RecordFeedback(userID, recommendationID uint, kind models.FeedbackKind, comment string) error {
	if !models.ValidFeedbackKind(kind) {
		return fmt.Errorf("invalid feedback kind: %s", kind)
	}

	if _, err := s.ownedEntry(userID, recommendationID); err != nil {
		return err
	}

	feedback := &models.RecommendationFeedback{
		UserID:           userID,
		RecommendationID: recommendationID,
		FeedbackKind:     kind,
		Comment:          comment,
	}
	if err := s.feedback.Upsert(feedback); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":           userID,
		"recommendation_id": recommendationID,
		"feedback_kind":     kind,
	}).Info("Recommendation feedback recorded")

	return nil
}
