package services

import (
	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// peerActivityWeights scores what peers did with a candidate listing.
var peerActivityWeights = map[models.ActivityKind]float64{
	models.ActivityBook:     5,
	models.ActivityFavorite: 3,
	models.ActivityView:     1,
}

// CollaborativeService recommends listings engaged with by users whose
// interaction history overlaps the target user's (collaborative filtering).
type CollaborativeService struct {
	activities models.ActivityRepository
	engine     config.Engine
	logger     *logrus.Logger
}

func NewCollaborativeService(
	activities models.ActivityRepository,
	engine config.Engine,
	logger *logrus.Logger,
) *CollaborativeService {
	return &CollaborativeService{
		activities: activities,
		engine:     engine,
		logger:     logger,
	}
}

// RecommendCollaborative ranks listings the user's peers engaged with,
// excluding anything the user already touched. Peer similarity is the raw
// co-occurrence count; candidate scores are normalized by the batch maximum
// so they land in (0,1]. No history or no peers yields an empty result.
func (s *CollaborativeService) RecommendCollaborative(userID uint, kind models.EntityKind, limit int) ([]ScoredEntity, error) {
	touched, err := s.activities.TouchedEntityIDs(userID, kind)
	if err != nil {
		return nil, err
	}
	if len(touched) == 0 {
		return nil, nil
	}

	peers, err := s.activities.FindPeers(userID, kind, touched, referenceActivityKinds, s.engine.PeerLimit)
	if err != nil {
		return nil, err
	}
	if len(peers) == 0 {
		return nil, nil
	}

	peerIDs := make([]uint, 0, len(peers))
	for _, peer := range peers {
		peerIDs = append(peerIDs, peer.UserID)
	}

	activityKinds := make([]models.ActivityKind, 0, len(peerActivityWeights))
	for activityKind := range peerActivityWeights {
		activityKinds = append(activityKinds, activityKind)
	}

	peerActivities, err := s.activities.PeerActivities(peerIDs, kind, activityKinds)
	if err != nil {
		return nil, err
	}

	touchedSet := make(map[uint]bool, len(touched))
	for _, id := range touched {
		touchedSet[id] = true
	}

	rawScores := make(map[uint]float64)
	for _, activity := range peerActivities {
		if touchedSet[activity.EntityID] {
			continue
		}
		rawScores[activity.EntityID] += peerActivityWeights[activity.ActivityKind]
	}
	if len(rawScores) == 0 {
		return nil, nil
	}

	var maxScore float64
	for _, score := range rawScores {
		if score > maxScore {
			maxScore = score
		}
	}

	scored := make([]ScoredEntity, 0, len(rawScores))
	for entityID, score := range rawScores {
		scored = append(scored, ScoredEntity{EntityID: entityID, Score: score / maxScore})
	}

	sortScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"kind":    kind,
		"peers":   len(peers),
		"results": len(scored),
	}).Debug("Collaborative recommendation computed")

	return scored, nil
}
