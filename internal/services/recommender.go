package services

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/database"
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// RecommendationService blends the collaborative, similarity, location and
// price strategies into one ranked, persisted suggestion list per user.
type RecommendationService struct {
	collaborative   *CollaborativeService
	similarity      *SimilarityService
	preferences     *PreferenceService
	activities      models.ActivityRepository
	listings        models.ListingResolver
	trends          models.TrendRepository
	recommendations models.RecommendationRepository
	cache           *database.Cache
	engine          config.Engine
	logger          *logrus.Logger
}

// locationSampleSize is how many listings each auxiliary strategy samples.
const locationSampleSize = 5

func NewRecommendationService(
	collaborative *CollaborativeService,
	similarity *SimilarityService,
	preferences *PreferenceService,
	activities models.ActivityRepository,
	listings models.ListingResolver,
	trends models.TrendRepository,
	recommendations models.RecommendationRepository,
	cache *database.Cache,
	engine config.Engine,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		collaborative:   collaborative,
		similarity:      similarity,
		preferences:     preferences,
		activities:      activities,
		listings:        listings,
		trends:          trends,
		recommendations: recommendations,
		cache:           cache,
		engine:          engine,
		logger:          logger,
	}
}

// Generate recomputes and persists recommendations for the user. Each
// sub-strategy degrades independently: a failing strategy contributes
// nothing but never aborts the others. Zero candidates is a valid result.
func (s *RecommendationService) Generate(ctx context.Context, userID uint, kinds []models.EntityKind, limit int) ([]models.RecommendationEntry, error) {
	if len(kinds) == 0 {
		kinds = models.AllEntityKinds
	}
	if limit <= 0 {
		limit = 10
	}

	if err := s.recommendations.PurgeExpired(userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to purge expired recommendations")
	}

	expiresAt := time.Now().Add(s.engine.RecommendationTTL)
	half := limit / 2
	if half < 1 {
		half = 1
	}

	var merged []models.RecommendationEntry
	seen := make(map[string]bool)

	appendEntry := func(entry models.RecommendationEntry) {
		key := string(entry.EntityKind) + ":" + string(entry.Strategy) + ":" + strconv.FormatUint(uint64(entry.EntityID), 10)
		if seen[key] {
			return
		}
		seen[key] = true
		entry.UserID = userID
		entry.ExpiresAt = expiresAt
		entry.Score = clamp01(entry.Score)
		merged = append(merged, entry)
	}

	for _, kind := range kinds {
		s.collectCollaborative(userID, kind, half, appendEntry)
		s.collectSimilar(userID, kind, half, appendEntry)
		s.collectLocationBased(userID, kind, appendEntry)
		s.collectPriceBased(userID, kind, appendEntry)
	}

	for i := range merged {
		if err := s.recommendations.Upsert(&merged[i]); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":   userID,
				"entity_id": merged[i].EntityID,
				"strategy":  merged[i].Strategy,
			}).Error("Failed to persist recommendation")
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].EntityID < merged[j].EntityID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	if s.cache != nil {
		if err := s.cache.InvalidateRecommendations(ctx, userID); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate recommendation cache")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"kinds":   kinds,
		"results": len(merged),
	}).Info("Recommendations generated")

	return merged, nil
}

func (s *RecommendationService) collectCollaborative(userID uint, kind models.EntityKind, limit int, appendEntry func(models.RecommendationEntry)) {
	scored, err := s.collaborative.RecommendCollaborative(userID, kind, limit)
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("Collaborative strategy failed")
		return
	}
	for _, candidate := range scored {
		appendEntry(models.RecommendationEntry{
			EntityKind: kind,
			EntityID:   candidate.EntityID,
			Strategy:   models.StrategyPersonalized,
			Score:      candidate.Score,
			Reason:     "based on similar users",
		})
	}
}

func (s *RecommendationService) collectSimilar(userID uint, kind models.EntityKind, limit int, appendEntry func(models.RecommendationEntry)) {
	scored, err := s.similarity.RecommendSimilar(userID, kind, limit)
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("Similarity strategy failed")
		return
	}
	for _, candidate := range scored {
		appendEntry(models.RecommendationEntry{
			EntityKind: kind,
			EntityID:   candidate.EntityID,
			Strategy:   models.StrategySimilar,
			Score:      candidate.Score,
			Reason:     "matches your interests",
		})
	}
}

// collectLocationBased samples available listings in the user's preferred
// cities: 0.5 base, +0.3 on a city match, +0.2 when the listing is trending.
func (s *RecommendationService) collectLocationBased(userID uint, kind models.EntityKind, appendEntry func(models.RecommendationEntry)) {
	cities := s.preferences.PreferredCities(userID, 3)
	if len(cities) == 0 {
		return
	}

	touched, err := s.activities.TouchedEntityIDs(userID, kind)
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("Location strategy failed to load history")
		return
	}

	candidates, err := s.listings.InCities(kind, cities, touched, locationSampleSize)
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("Location strategy failed")
		return
	}
	if len(candidates) == 0 {
		return
	}

	citySet := make(map[string]bool, len(cities))
	for _, city := range cities {
		citySet[city] = true
	}

	ids := make([]uint, 0, len(candidates))
	for _, candidate := range candidates {
		ids = append(ids, candidate.EntityID)
	}
	trendScores, err := s.trends.ScoresFor(kind, ids, time.Now())
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("Location strategy failed to load trend scores")
		trendScores = map[uint]float64{}
	}

	for _, candidate := range candidates {
		score := 0.5
		if citySet[candidate.City] {
			score += 0.3
		}
		if trendScores[candidate.EntityID] > 0.5 {
			score += 0.2
		}
		appendEntry(models.RecommendationEntry{
			EntityKind: kind,
			EntityID:   candidate.EntityID,
			Strategy:   models.StrategyLocationBased,
			Score:      score,
			Reason:     "available in " + candidate.City,
		})
	}
}

// collectPriceBased samples listings inside the user's implied budget band,
// scored by proximity to the band midpoint.
func (s *RecommendationService) collectPriceBased(userID uint, kind models.EntityKind, appendEntry func(models.RecommendationEntry)) {
	minPrice, maxPrice, ok := s.similarity.ReferencePriceBand(userID, kind)
	if !ok {
		return
	}

	touched, err := s.activities.TouchedEntityIDs(userID, kind)
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("Price strategy failed to load history")
		return
	}

	candidates, err := s.listings.InPriceRange(kind, minPrice, maxPrice, touched, locationSampleSize)
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("Price strategy failed")
		return
	}

	mid := (minPrice + maxPrice) / 2
	halfWidth := (maxPrice - minPrice) / 2
	for _, candidate := range candidates {
		gap := 0.0
		if halfWidth > 0 {
			gap = math.Abs(candidate.DailyPrice-mid) / halfWidth
		}
		appendEntry(models.RecommendationEntry{
			EntityKind: kind,
			EntityID:   candidate.EntityID,
			Strategy:   models.StrategyPriceBased,
			Score:      0.4 + 0.4*(1-clamp01(gap)),
			Reason:     "fits your budget",
		})
	}
}

// GetRecommendations serves the user's live recommendations, generating a
// fresh set when none survive.
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID uint, kind *models.EntityKind, limit int) ([]models.RecommendationItem, error) {
	if limit <= 0 {
		limit = 10
	}
	kindKey := "all"
	if kind != nil {
		kindKey = string(*kind)
	}

	if s.cache != nil {
		var cached []models.RecommendationItem
		if err := s.cache.GetCachedRecommendations(ctx, userID, kindKey, limit, &cached); err == nil {
			return cached, nil
		}
	}

	entries, err := s.recommendations.GetLive(userID, kind, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		kinds := models.AllEntityKinds
		if kind != nil {
			kinds = []models.EntityKind{*kind}
		}
		if _, err := s.Generate(ctx, userID, kinds, limit); err != nil {
			return nil, err
		}
		// Re-read the persisted rows so every served item carries the
		// stored ID the feedback endpoints are keyed by.
		entries, err = s.recommendations.GetLive(userID, kind, limit)
		if err != nil {
			return nil, err
		}
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

	if s.cache != nil {
		if err := s.cache.CacheRecommendations(ctx, userID, kindKey, limit, items, s.engine.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache recommendations")
		}
	}

	return items, nil
}
