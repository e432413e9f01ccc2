package models

import "time"

// Aggregation row shapes returned by the activity repository.

// PeerOverlap is another user sharing interacted entities with the target user.
type PeerOverlap struct {
	UserID      uint `json:"user_id"`
	SharedCount int  `json:"shared_count"`
}

// PeerActivity is one peer interaction considered by the collaborative engine.
type PeerActivity struct {
	UserID       uint         `json:"user_id"`
	EntityID     uint         `json:"entity_id"`
	ActivityKind ActivityKind `json:"activity_kind"`
}

// ActivityCount is a same-day per-entity count of one activity kind.
type ActivityCount struct {
	EntityID     uint         `json:"entity_id"`
	ActivityKind ActivityKind `json:"activity_kind"`
	Count        int          `json:"count"`
}

// Database interfaces for repository pattern

type ActivityRepository interface {
	Create(record *ActivityRecord) error
	// RecentEntityIDs returns the user's most recent distinct entity ids of
	// the given kind, restricted to the given activity kinds, newest first.
	RecentEntityIDs(userID uint, kind EntityKind, activities []ActivityKind, limit int) ([]uint, error)
	// TouchedEntityIDs returns every entity id of the kind the user interacted with.
	TouchedEntityIDs(userID uint, kind EntityKind) ([]uint, error)
	FindPeers(userID uint, kind EntityKind, entityIDs []uint, activities []ActivityKind, limit int) ([]PeerOverlap, error)
	PeerActivities(peerIDs []uint, kind EntityKind, activities []ActivityKind) ([]PeerActivity, error)
	DailyCounts(kind EntityKind, day time.Time) ([]ActivityCount, error)
}

type PreferenceRepository interface {
	Get(userID uint, preferenceKind, preferenceKey string) (*PreferenceSignal, error)
	Upsert(signal *PreferenceSignal) error
	TopByKind(userID uint, preferenceKind string, limit int) ([]PreferenceSignal, error)
}

type RecommendationRepository interface {
	Upsert(entry *RecommendationEntry) error
	Save(entry *RecommendationEntry) error
	GetByID(id uint) (*RecommendationEntry, error)
	GetLive(userID uint, kind *EntityKind, limit int) ([]RecommendationEntry, error)
	PurgeExpired(userID uint) error
	PurgeAllExpired() (int64, error)
}

type TrendRepository interface {
	Upsert(record *TrendRecord) error
	GetTop(kind *EntityKind, location string, day time.Time, limit int) ([]TrendRecord, error)
	// ScoresFor returns entity id -> trend score for the given day.
	ScoresFor(kind EntityKind, entityIDs []uint, day time.Time) (map[uint]float64, error)
}

type SearchLogRepository interface {
	Create(log *SearchQueryLog) error
	GetByID(id uint) (*SearchQueryLog, error)
	MarkSuccessful(id uint, kind EntityKind, entityID uint) error
	RecentSuccessfulQueries(userID uint, prefix string, limit int) ([]string, error)
	PopularQueries(prefix string, limit int) ([]string, error)
}

type FeedbackRepository interface {
	Upsert(feedback *RecommendationFeedback) error
	GetByRecommendation(recommendationID uint) ([]RecommendationFeedback, error)
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetServiceHealth(serviceName string) (*SystemHealth, error)
	GetAllServicesHealth() ([]SystemHealth, error)
}
