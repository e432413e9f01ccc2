package services

import (
	"math"
	"sort"

	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// ScoredEntity is one ranked recommendation candidate.
type ScoredEntity struct {
	EntityID uint
	Score    float64
}

// referenceActivityKinds are the interactions that define a user's taste.
var referenceActivityKinds = []models.ActivityKind{
	models.ActivityView,
	models.ActivityFavorite,
	models.ActivityBook,
}

// SimilarityService recommends listings sharing features with the user's
// recently interacted listings (content-based filtering).
type SimilarityService struct {
	activities models.ActivityRepository
	listings   models.ListingResolver
	engine     config.Engine
	logger     *logrus.Logger
}

func NewSimilarityService(
	activities models.ActivityRepository,
	listings models.ListingResolver,
	engine config.Engine,
	logger *logrus.Logger,
) *SimilarityService {
	return &SimilarityService{
		activities: activities,
		listings:   listings,
		engine:     engine,
		logger:     logger,
	}
}

// featureProfile is the representative feature set of the reference window.
type featureProfile struct {
	Categories []string // top 2 by frequency
	Cities     []string // top 3 by frequency
	AvgPrice   float64
	MinPrice   float64 // AvgPrice * 0.7
	MaxPrice   float64 // AvgPrice * 1.3
}

// RecommendSimilar returns candidates ranked by feature overlap with the
// user's recent listings. An empty interaction history yields an empty
// result, never an error.
func (s *SimilarityService) RecommendSimilar(userID uint, kind models.EntityKind, limit int) ([]ScoredEntity, error) {
	recentIDs, err := s.activities.RecentEntityIDs(userID, kind, referenceActivityKinds, s.engine.ReferenceWindow)
	if err != nil {
		return nil, err
	}
	if len(recentIDs) == 0 {
		return nil, nil
	}

	references, err := s.listings.Summaries(kind, recentIDs)
	if err != nil {
		return nil, err
	}
	if len(references) == 0 {
		return nil, nil
	}

	profile := extractFeatures(references)

	touched, err := s.activities.TouchedEntityIDs(userID, kind)
	if err != nil {
		return nil, err
	}

	candidates, err := s.listings.FindCandidates(kind, models.CandidateFilter{
		Categories: profile.Categories,
		Cities:     profile.Cities,
		MinPrice:   profile.MinPrice,
		MaxPrice:   profile.MaxPrice,
		ExcludeIDs: touched,
		Limit:      s.engine.CandidateLimit,
	})
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredEntity, 0, len(candidates))
	for _, candidate := range candidates {
		score := scoreAgainstReferences(candidate, references)
		if score > 0 {
			scored = append(scored, ScoredEntity{EntityID: candidate.EntityID, Score: score})
		}
	}

	sortScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"kind":       kind,
		"references": len(references),
		"candidates": len(candidates),
		"results":    len(scored),
	}).Debug("Similarity recommendation computed")

	return scored, nil
}

// ReferencePriceBand returns the user's implied budget band, derived from the
// same reference window the similarity scoring uses.
func (s *SimilarityService) ReferencePriceBand(userID uint, kind models.EntityKind) (minPrice, maxPrice float64, ok bool) {
	recentIDs, err := s.activities.RecentEntityIDs(userID, kind, referenceActivityKinds, s.engine.ReferenceWindow)
	if err != nil || len(recentIDs) == 0 {
		return 0, 0, false
	}
	references, err := s.listings.Summaries(kind, recentIDs)
	if err != nil || len(references) == 0 {
		return 0, 0, false
	}
	profile := extractFeatures(references)
	if profile.AvgPrice <= 0 {
		return 0, 0, false
	}
	return profile.MinPrice, profile.MaxPrice, true
}

// extractFeatures reduces the reference set to its most frequent categories
// (top 2), distinct cities (top 3) and a price band around the average.
func extractFeatures(references []models.ListingSummary) featureProfile {
	categoryCounts := make(map[string]int)
	cityCounts := make(map[string]int)
	var priceSum float64

	for _, ref := range references {
		if ref.Category != "" {
			categoryCounts[ref.Category]++
		}
		if ref.City != "" {
			cityCounts[ref.City]++
		}
		priceSum += ref.DailyPrice
	}

	avgPrice := priceSum / float64(len(references))

	return featureProfile{
		Categories: topValues(categoryCounts, 2),
		Cities:     topValues(cityCounts, 3),
		AvgPrice:   avgPrice,
		MinPrice:   avgPrice * 0.7,
		MaxPrice:   avgPrice * 1.3,
	}
}

// topValues returns the n most frequent keys; ties break lexically so the
// result is deterministic.
func topValues(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// scoreAgainstReferences scores a candidate against every reference listing
// and averages: category match 0.7, city match 0.6, price proximity up to
// 0.5. The average is capped at 1.0.
func scoreAgainstReferences(candidate models.ListingSummary, references []models.ListingSummary) float64 {
	var total float64
	for _, ref := range references {
		if candidate.Category != "" && candidate.Category == ref.Category {
			total += 0.7
		}
		if candidate.City != "" && candidate.City == ref.City {
			total += 0.6
		}
		total += priceProximity(candidate.DailyPrice, ref.DailyPrice)
	}

	score := total / float64(len(references))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// priceProximity awards up to 0.5 when the candidate's price is within 20%
// of the reference price, scaled by the relative gap.
func priceProximity(candidatePrice, referencePrice float64) float64 {
	if candidatePrice <= 0 || referencePrice <= 0 {
		return 0
	}
	gap := math.Abs(candidatePrice-referencePrice) / referencePrice
	if gap > 0.2 {
		return 0
	}
	return 0.5 * (1 - gap)
}

// sortScored orders by score descending with entity id ascending as the
// deterministic tie-break.
func sortScored(scored []ScoredEntity) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].EntityID < scored[j].EntityID
	})
}
