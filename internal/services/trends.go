package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/database"
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// trendWeights combine same-day activity counts into one raw popularity value.
var trendWeights = map[models.ActivityKind]int{
	models.ActivityView:     1,
	models.ActivityClick:    2,
	models.ActivityFavorite: 3,
	models.ActivityBook:     5,
}

// TrendService aggregates daily activity into normalized trend scores.
type TrendService struct {
	activities models.ActivityRepository
	trends     models.TrendRepository
	cache      *database.Cache
	engine     config.Engine
	logger     *logrus.Logger
}

func NewTrendService(
	activities models.ActivityRepository,
	trends models.TrendRepository,
	cache *database.Cache,
	engine config.Engine,
	logger *logrus.Logger,
) *TrendService {
	return &TrendService{
		activities: activities,
		trends:     trends,
		cache:      cache,
		engine:     engine,
		logger:     logger,
	}
}

// RecomputeTrends rebuilds the daily TrendRecords for the given date. The
// upsert semantics make it idempotent and safe to re-run. A failure on one
// entity or kind never aborts the rest of the batch.
func (s *TrendService) RecomputeTrends(ctx context.Context, day time.Time) error {
	day = day.Truncate(24 * time.Hour)

	var failures int
	var total int
	for _, kind := range models.AllEntityKinds {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		counts, err := s.activities.DailyCounts(kind, day)
		if err != nil {
			s.logger.WithError(err).WithField("kind", kind).Error("Failed to load daily activity counts")
			failures++
			continue
		}

		records := buildTrendRecords(kind, day, counts, s.engine.TrendDivisor)
		for i := range records {
			if err := s.trends.Upsert(&records[i]); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"kind":      kind,
					"entity_id": records[i].EntityID,
				}).Error("Failed to upsert trend record")
				failures++
				continue
			}
			total++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"date":     day.Format("2006-01-02"),
		"records":  total,
		"failures": failures,
	}).Info("Trend recomputation finished")

	if failures > 0 {
		return fmt.Errorf("trend recomputation finished with %d failures", failures)
	}
	return nil
}

// buildTrendRecords groups counts per entity and derives the normalized
// score. Output is ordered by entity id for deterministic processing.
func buildTrendRecords(kind models.EntityKind, day time.Time, counts []models.ActivityCount, divisor float64) []models.TrendRecord {
	byEntity := make(map[uint]*models.TrendRecord)
	for _, count := range counts {
		record, ok := byEntity[count.EntityID]
		if !ok {
			record = &models.TrendRecord{
				EntityKind: kind,
				EntityID:   count.EntityID,
				Period:     "daily",
				PeriodDate: day,
			}
			byEntity[count.EntityID] = record
		}
		switch count.ActivityKind {
		case models.ActivityView:
			record.ViewCount = count.Count
		case models.ActivityClick:
			record.ClickCount = count.Count
		case models.ActivityFavorite:
			record.FavoriteCount = count.Count
		case models.ActivityBook:
			record.BookingCount = count.Count
		}
	}

	records := make([]models.TrendRecord, 0, len(byEntity))
	for _, record := range byEntity {
		record.TrendScore = trendScore(record.ViewCount, record.ClickCount, record.FavoriteCount, record.BookingCount, divisor)
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].EntityID < records[j].EntityID })
	return records
}

// trendScore bounds the weighted raw count into [0,1]. The divisor is a
// tunable normalization constant, not a population baseline.
func trendScore(views, clicks, favorites, bookings int, divisor float64) float64 {
	raw := float64(trendWeights[models.ActivityView]*views +
		trendWeights[models.ActivityClick]*clicks +
		trendWeights[models.ActivityFavorite]*favorites +
		trendWeights[models.ActivityBook]*bookings)

	score := raw / divisor
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// GetTrending returns today's trending listings, falling back to yesterday
// while today's batch has not yet run. A non-empty location only matches
// records stored under that location; RecomputeTrends writes the global
// rollup (empty location) only, so location-filtered reads stay empty
// until per-location aggregation exists.
func (s *TrendService) GetTrending(ctx context.Context, kind *models.EntityKind, location string, limit int) ([]models.TrendingItem, error) {
	kindKey := "all"
	if kind != nil {
		kindKey = string(*kind)
	}

	if s.cache != nil {
		var cached []models.TrendingItem
		if err := s.cache.GetCachedTrending(ctx, kindKey, location, limit, &cached); err == nil {
			return cached, nil
		}
	}

	today := time.Now().Truncate(24 * time.Hour)
	records, err := s.trends.GetTop(kind, location, today, limit)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		records, err = s.trends.GetTop(kind, location, today.AddDate(0, 0, -1), limit)
		if err != nil {
			return nil, err
		}
	}

	items := make([]models.TrendingItem, 0, len(records))
	for _, record := range records {
		items = append(items, models.TrendingItem{
			EntityKind: string(record.EntityKind),
			EntityID:   record.EntityID,
			TrendScore: record.TrendScore,
		})
	}

	if s.cache != nil {
		if err := s.cache.CacheTrending(ctx, kindKey, location, limit, items, s.engine.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache trending list")
		}
	}

	return items, nil
}
