package repository

import (
	"time"

	"github.com/rentradar/backend/internal/listings"
	"github.com/rentradar/backend/internal/models"
	"gorm.io/gorm"
)

// ActivityRepositoryImpl implements ActivityRepository
type ActivityRepositoryImpl struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) models.ActivityRepository {
	return &ActivityRepositoryImpl{db: db}
}

func (r *ActivityRepositoryImpl) Create(record *models.ActivityRecord) error {
	return r.db.Create(record).Error
}

func (r *ActivityRepositoryImpl) RecentEntityIDs(userID uint, kind models.EntityKind, activities []models.ActivityKind, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.Raw(`
		SELECT entity_id FROM (
			SELECT entity_id, MAX(occurred_at) AS last_seen
			FROM activity_records
			WHERE user_id = ? AND entity_kind = ? AND activity_kind IN ?
			GROUP BY entity_id
		) recent
		ORDER BY last_seen DESC
		LIMIT ?
	`, userID, kind, activities, limit).Scan(&ids).Error
	return ids, err
}

func (r *ActivityRepositoryImpl) TouchedEntityIDs(userID uint, kind models.EntityKind) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ActivityRecord{}).
		Distinct("entity_id").
		Where("user_id = ? AND entity_kind = ?", userID, kind).
		Pluck("entity_id", &ids).Error
	return ids, err
}

func (r *ActivityRepositoryImpl) FindPeers(userID uint, kind models.EntityKind, entityIDs []uint, activities []models.ActivityKind, limit int) ([]models.PeerOverlap, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	var peers []models.PeerOverlap
	err := r.db.Raw(`
		SELECT user_id, COUNT(DISTINCT entity_id) AS shared_count
		FROM activity_records
		WHERE entity_kind = ? AND entity_id IN ? AND activity_kind IN ? AND user_id <> ?
		GROUP BY user_id
		ORDER BY shared_count DESC, user_id ASC
		LIMIT ?
	`, kind, entityIDs, activities, userID, limit).Scan(&peers).Error
	return peers, err
}

func (r *ActivityRepositoryImpl) PeerActivities(peerIDs []uint, kind models.EntityKind, activities []models.ActivityKind) ([]models.PeerActivity, error) {
	if len(peerIDs) == 0 {
		return nil, nil
	}
	var rows []models.PeerActivity
	err := r.db.Model(&models.ActivityRecord{}).
		Select("user_id, entity_id, activity_kind").
		Where("user_id IN ? AND entity_kind = ? AND activity_kind IN ?", peerIDs, kind, activities).
		Scan(&rows).Error
	return rows, err
}

func (r *ActivityRepositoryImpl) DailyCounts(kind models.EntityKind, day time.Time) ([]models.ActivityCount, error) {
	start := day.Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	var counts []models.ActivityCount
	err := r.db.Raw(`
		SELECT entity_id, activity_kind, COUNT(*) AS count
		FROM activity_records
		WHERE entity_kind = ? AND occurred_at >= ? AND occurred_at < ?
		GROUP BY entity_id, activity_kind
	`, kind, start, end).Scan(&counts).Error
	return counts, err
}

// PreferenceRepositoryImpl implements PreferenceRepository
type PreferenceRepositoryImpl struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) models.PreferenceRepository {
	return &PreferenceRepositoryImpl{db: db}
}

func (r *PreferenceRepositoryImpl) Get(userID uint, preferenceKind, preferenceKey string) (*models.PreferenceSignal, error) {
	var signal models.PreferenceSignal
	err := r.db.Where("user_id = ? AND preference_kind = ? AND preference_key = ?",
		userID, preferenceKind, preferenceKey).
		First(&signal).Error
	if err != nil {
		return nil, err
	}
	return &signal, nil
}

// Upsert writes the full signal; last writer wins, which is acceptable for an
// exponential moving average.
func (r *PreferenceRepositoryImpl) Upsert(signal *models.PreferenceSignal) error {
	return r.db.Exec(`
		INSERT INTO preference_signals
			(user_id, preference_kind, preference_key, weight, confidence, interaction_count, last_interaction_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (user_id, preference_kind, preference_key)
		DO UPDATE SET
			weight = EXCLUDED.weight,
			confidence = EXCLUDED.confidence,
			interaction_count = EXCLUDED.interaction_count,
			last_interaction_at = EXCLUDED.last_interaction_at,
			updated_at = NOW()
	`, signal.UserID, signal.PreferenceKind, signal.PreferenceKey,
		signal.Weight, signal.Confidence, signal.InteractionCount, signal.LastInteractionAt).Error
}

func (r *PreferenceRepositoryImpl) TopByKind(userID uint, preferenceKind string, limit int) ([]models.PreferenceSignal, error) {
	var signals []models.PreferenceSignal
	err := r.db.Where("user_id = ? AND preference_kind = ?", userID, preferenceKind).
		Order("weight DESC, confidence DESC").
		Limit(limit).
		Find(&signals).Error
	return signals, err
}

// RecommendationRepositoryImpl implements RecommendationRepository
type RecommendationRepositoryImpl struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) models.RecommendationRepository {
	return &RecommendationRepositoryImpl{db: db}
}

// Upsert overwrites score, reason and expiry on conflict so re-generation
// never duplicates a live (user, entity, strategy) row. The row's ID is
// scanned back into the entry so callers can hand it to the feedback
// endpoints.
func (r *RecommendationRepositoryImpl) Upsert(entry *models.RecommendationEntry) error {
	return r.db.Raw(`
		INSERT INTO recommendation_entries
			(user_id, entity_kind, entity_id, strategy, score, reason, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (user_id, entity_kind, entity_id, strategy)
		DO UPDATE SET
			score = EXCLUDED.score,
			reason = EXCLUDED.reason,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING id
	`, entry.UserID, entry.EntityKind, entry.EntityID, entry.Strategy,
		entry.Score, entry.Reason, entry.ExpiresAt).Scan(&entry.ID).Error
}

func (r *RecommendationRepositoryImpl) Save(entry *models.RecommendationEntry) error {
	return r.db.Save(entry).Error
}

func (r *RecommendationRepositoryImpl) GetByID(id uint) (*models.RecommendationEntry, error) {
	var entry models.RecommendationEntry
	err := r.db.First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *RecommendationRepositoryImpl) GetLive(userID uint, kind *models.EntityKind, limit int) ([]models.RecommendationEntry, error) {
	query := r.db.Where("user_id = ? AND expires_at > NOW()", userID)
	if kind != nil {
		query = query.Where("entity_kind = ?", *kind)
	}

	var entries []models.RecommendationEntry
	err := query.Order("score DESC, entity_id ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *RecommendationRepositoryImpl) PurgeExpired(userID uint) error {
	return r.db.Where("user_id = ? AND expires_at <= NOW()", userID).
		Delete(&models.RecommendationEntry{}).Error
}

// PurgeAllExpired sweeps expired rows across all users, for the batch job.
func (r *RecommendationRepositoryImpl) PurgeAllExpired() (int64, error) {
	result := r.db.Where("expires_at <= NOW()").Delete(&models.RecommendationEntry{})
	return result.RowsAffected, result.Error
}

// TrendRepositoryImpl implements TrendRepository
type TrendRepositoryImpl struct {
	db *gorm.DB
}

func NewTrendRepository(db *gorm.DB) models.TrendRepository {
	return &TrendRepositoryImpl{db: db}
}

// Upsert overwrites counts and score, keeping recomputation idempotent.
func (r *TrendRepositoryImpl) Upsert(record *models.TrendRecord) error {
	return r.db.Exec(`
		INSERT INTO trend_records
			(entity_kind, entity_id, period, period_date, location,
			 view_count, click_count, booking_count, favorite_count, trend_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (entity_kind, entity_id, period, period_date, location)
		DO UPDATE SET
			view_count = EXCLUDED.view_count,
			click_count = EXCLUDED.click_count,
			booking_count = EXCLUDED.booking_count,
			favorite_count = EXCLUDED.favorite_count,
			trend_score = EXCLUDED.trend_score,
			updated_at = NOW()
	`, record.EntityKind, record.EntityID, record.Period, record.PeriodDate, record.Location,
		record.ViewCount, record.ClickCount, record.BookingCount, record.FavoriteCount, record.TrendScore).Error
}

func (r *TrendRepositoryImpl) GetTop(kind *models.EntityKind, location string, day time.Time, limit int) ([]models.TrendRecord, error) {
	query := r.db.Where("period = ? AND period_date = ? AND location = ?",
		"daily", day.Truncate(24*time.Hour), location)
	if kind != nil {
		query = query.Where("entity_kind = ?", *kind)
	}

	var records []models.TrendRecord
	err := query.Order("trend_score DESC, entity_id ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *TrendRepositoryImpl) ScoresFor(kind models.EntityKind, entityIDs []uint, day time.Time) (map[uint]float64, error) {
	if len(entityIDs) == 0 {
		return map[uint]float64{}, nil
	}

	var rows []struct {
		EntityID   uint
		TrendScore float64
	}
	err := r.db.Model(&models.TrendRecord{}).
		Select("entity_id, trend_score").
		Where("entity_kind = ? AND entity_id IN ? AND period = ? AND period_date = ? AND location = ?",
			kind, entityIDs, "daily", day.Truncate(24*time.Hour), "").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	scores := make(map[uint]float64, len(rows))
	for _, row := range rows {
		scores[row.EntityID] = row.TrendScore
	}
	return scores, nil
}

// SearchLogRepositoryImpl implements SearchLogRepository
type SearchLogRepositoryImpl struct {
	db *gorm.DB
}

func NewSearchLogRepository(db *gorm.DB) models.SearchLogRepository {
	return &SearchLogRepositoryImpl{db: db}
}

func (r *SearchLogRepositoryImpl) Create(log *models.SearchQueryLog) error {
	return r.db.Create(log).Error
}

func (r *SearchLogRepositoryImpl) GetByID(id uint) (*models.SearchQueryLog, error) {
	var log models.SearchQueryLog
	err := r.db.First(&log, id).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *SearchLogRepositoryImpl) MarkSuccessful(id uint, kind models.EntityKind, entityID uint) error {
	return r.db.Model(&models.SearchQueryLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"had_interaction":      true,
			"selected_entity_kind": kind,
			"selected_entity_id":   entityID,
		}).Error
}

func (r *SearchLogRepositoryImpl) RecentSuccessfulQueries(userID uint, prefix string, limit int) ([]string, error) {
	var queries []string
	err := r.db.Raw(`
		SELECT query_text FROM (
			SELECT query_text, MAX(created_at) AS last_used
			FROM search_query_logs
			WHERE user_id = ? AND had_interaction = true AND query_text ILIKE ?
			GROUP BY query_text
		) recent
		ORDER BY last_used DESC
		LIMIT ?
	`, userID, prefix+"%", limit).Scan(&queries).Error
	return queries, err
}

func (r *SearchLogRepositoryImpl) PopularQueries(prefix string, limit int) ([]string, error) {
	var queries []string
	err := r.db.Raw(`
		SELECT query_text
		FROM search_query_logs
		WHERE query_text ILIKE ?
		GROUP BY query_text
		ORDER BY COUNT(*) DESC, query_text ASC
		LIMIT ?
	`, prefix+"%", limit).Scan(&queries).Error
	return queries, err
}

// FeedbackRepositoryImpl implements FeedbackRepository
type FeedbackRepositoryImpl struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) models.FeedbackRepository {
	return &FeedbackRepositoryImpl{db: db}
}

func (r *FeedbackRepositoryImpl) Upsert(feedback *models.RecommendationFeedback) error {
	return r.db.Exec(`
		INSERT INTO recommendation_feedback
			(user_id, recommendation_id, feedback_kind, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (user_id, recommendation_id)
		DO UPDATE SET
			feedback_kind = EXCLUDED.feedback_kind,
			comment = EXCLUDED.comment,
			updated_at = NOW()
	`, feedback.UserID, feedback.RecommendationID, feedback.FeedbackKind, feedback.Comment).Error
}

func (r *FeedbackRepositoryImpl) GetByRecommendation(recommendationID uint) ([]models.RecommendationFeedback, error) {
	var feedback []models.RecommendationFeedback
	err := r.db.Where("recommendation_id = ?", recommendationID).
		Find(&feedback).Error
	return feedback, err
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Exec(`
		INSERT INTO system_health (service_name, status, response_time_ms, error_message, checked_at)
		VALUES (?, ?, ?, ?, NOW())
	`, serviceName, status, responseTime, errorMsg).Error
}

func (r *SystemHealthRepositoryImpl) GetServiceHealth(serviceName string) (*models.SystemHealth, error) {
	var health models.SystemHealth
	err := r.db.Where("service_name = ?", serviceName).
		Order("checked_at DESC").
		First(&health).Error
	if err != nil {
		return nil, err
	}
	return &health, nil
}

func (r *SystemHealthRepositoryImpl) GetAllServicesHealth() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Activities      models.ActivityRepository
	Preferences     models.PreferenceRepository
	Recommendations models.RecommendationRepository
	Trends          models.TrendRepository
	SearchLogs      models.SearchLogRepository
	Feedback        models.FeedbackRepository
	Listings        models.ListingResolver
	SystemHealth    models.SystemHealthRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Activities:      NewActivityRepository(db),
		Preferences:     NewPreferenceRepository(db),
		Recommendations: NewRecommendationRepository(db),
		Trends:          NewTrendRepository(db),
		SearchLogs:      NewSearchLogRepository(db),
		Feedback:        NewFeedbackRepository(db),
		Listings:        listings.NewResolver(db),
		SystemHealth:    NewSystemHealthRepository(db),
	}
}
