package models

// GORM models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JSONMap stores opaque key-value metadata as jsonb.
type JSONMap map[string]string

func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" || v == "{}" {
			*m = JSONMap{}
			return nil
		}
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return m.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActivityKind enumerates tracked user interactions.
type ActivityKind string

const (
	ActivityView     ActivityKind = "view"
	ActivitySearch   ActivityKind = "search"
	ActivityClick    ActivityKind = "click"
	ActivityBook     ActivityKind = "book"
	ActivityFavorite ActivityKind = "favorite"
	ActivityReview   ActivityKind = "review"
)

// EntityKind enumerates the rentable entity categories.
type EntityKind string

const (
	EntityVehicle   EntityKind = "vehicle"
	EntityProperty  EntityKind = "property"
	EntityEquipment EntityKind = "equipment"
)

// AllEntityKinds in a stable order, used by batch jobs and the composer.
var AllEntityKinds = []EntityKind{EntityVehicle, EntityProperty, EntityEquipment}

// Strategy enumerates recommendation generation strategies.
type Strategy string

const (
	StrategyPersonalized  Strategy = "personalized"
	StrategySimilar       Strategy = "similar"
	StrategyLocationBased Strategy = "location_based"
	StrategyTrending      Strategy = "trending"
	StrategyPriceBased    Strategy = "price_based"
)

// FeedbackKind enumerates explicit feedback on a recommendation.
type FeedbackKind string

const (
	FeedbackInterested    FeedbackKind = "interested"
	FeedbackNotInterested FeedbackKind = "not_interested"
	FeedbackAlreadyBooked FeedbackKind = "already_booked"
	FeedbackIrrelevant    FeedbackKind = "irrelevant"
)

// PreferenceCity is the shared preference namespace for location signals.
// Category preferences are namespaced per entity kind ("vehicle_category", ...).
const PreferenceCity = "city"

// CategoryPreferenceKind returns the category preference namespace for a kind.
func CategoryPreferenceKind(kind EntityKind) string {
	return string(kind) + "_category"
}

func ValidActivityKind(kind ActivityKind) bool {
	switch kind {
	case ActivityView, ActivitySearch, ActivityClick, ActivityBook, ActivityFavorite, ActivityReview:
		return true
	}
	return false
}

func ValidEntityKind(kind EntityKind) bool {
	switch kind {
	case EntityVehicle, EntityProperty, EntityEquipment:
		return true
	}
	return false
}

func ValidFeedbackKind(kind FeedbackKind) bool {
	switch kind {
	case FeedbackInterested, FeedbackNotInterested, FeedbackAlreadyBooked, FeedbackIrrelevant:
		return true
	}
	return false
}

// ActivityRecord is one immutable user interaction with an entity.
type ActivityRecord struct {
	BaseModel
	UserID       uint         `json:"user_id" gorm:"not null;index:idx_activities_user_kind"`
	ActivityKind ActivityKind `json:"activity_kind" gorm:"not null;check:activity_kind IN ('view','search','click','book','favorite','review')"`
	EntityKind   EntityKind   `json:"entity_kind" gorm:"not null;index:idx_activities_user_kind;index:idx_activities_entity"`
	EntityID     uint         `json:"entity_id" gorm:"not null;index:idx_activities_entity"`
	Metadata     JSONMap      `json:"metadata" gorm:"type:jsonb;default:'{}'"`
	SessionID    string       `json:"session_id"`
	IPAddress    string       `json:"ip_address" gorm:"type:inet"`
	OccurredAt   time.Time    `json:"occurred_at" gorm:"not null;index;default:NOW()"`
}

// PreferenceSignal is a learned per-user weight for one feature value.
type PreferenceSignal struct {
	BaseModel
	UserID            uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_pref_user_kind_key"`
	PreferenceKind    string    `json:"preference_kind" gorm:"not null;uniqueIndex:idx_pref_user_kind_key"`
	PreferenceKey     string    `json:"preference_key" gorm:"not null;uniqueIndex:idx_pref_user_kind_key"`
	Weight            float64   `json:"weight" gorm:"not null;default:0.5"`
	Confidence        float64   `json:"confidence" gorm:"not null;default:0.5"`
	InteractionCount  int       `json:"interaction_count" gorm:"not null;default:0"`
	LastInteractionAt time.Time `json:"last_interaction_at" gorm:"default:NOW()"`
}

// RecommendationEntry is one persisted, expiring suggestion for a user.
type RecommendationEntry struct {
	BaseModel
	UserID      uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_rec_user_entity_strategy"`
	EntityKind  EntityKind `json:"entity_kind" gorm:"not null;uniqueIndex:idx_rec_user_entity_strategy"`
	EntityID    uint       `json:"entity_id" gorm:"not null;uniqueIndex:idx_rec_user_entity_strategy"`
	Strategy    Strategy   `json:"strategy" gorm:"not null;uniqueIndex:idx_rec_user_entity_strategy;check:strategy IN ('personalized','similar','location_based','trending','price_based')"`
	Score       float64    `json:"score" gorm:"not null;default:0"`
	Reason      string     `json:"reason"`
	ViewedAt    *time.Time `json:"viewed_at"`
	ClickedAt   *time.Time `json:"clicked_at"`
	ConvertedAt *time.Time `json:"converted_at"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"not null;index"`
}

func (re *RecommendationEntry) IsViewed() bool    { return re.ViewedAt != nil }
func (re *RecommendationEntry) IsClicked() bool   { return re.ClickedAt != nil }
func (re *RecommendationEntry) IsConverted() bool { return re.ConvertedAt != nil }

// TrendRecord is the aggregated daily popularity of one entity.
type TrendRecord struct {
	BaseModel
	EntityKind    EntityKind `json:"entity_kind" gorm:"not null;uniqueIndex:idx_trend_entity_period"`
	EntityID      uint       `json:"entity_id" gorm:"not null;uniqueIndex:idx_trend_entity_period"`
	Period        string     `json:"period" gorm:"not null;default:'daily';uniqueIndex:idx_trend_entity_period"`
	PeriodDate    time.Time  `json:"period_date" gorm:"not null;type:date;uniqueIndex:idx_trend_entity_period"`
	Location      string     `json:"location" gorm:"not null;default:'';uniqueIndex:idx_trend_entity_period"`
	ViewCount     int        `json:"view_count" gorm:"default:0"`
	ClickCount    int        `json:"click_count" gorm:"default:0"`
	BookingCount  int        `json:"booking_count" gorm:"default:0"`
	FavoriteCount int        `json:"favorite_count" gorm:"default:0"`
	TrendScore    float64    `json:"trend_score" gorm:"not null;default:0;index"`
}

// SearchQueryLog records one search request for suggestions and analytics.
type SearchQueryLog struct {
	BaseModel
	UserID             *uint       `json:"user_id" gorm:"index"`
	QueryText          string      `json:"query_text" gorm:"not null"`
	SearchKind         string      `json:"search_kind" gorm:"default:'all'"`
	Filters            JSONMap     `json:"filters" gorm:"type:jsonb;default:'{}'"`
	ResultsCount       int         `json:"results_count" gorm:"default:0"`
	HadInteraction     bool        `json:"had_interaction" gorm:"default:false"`
	SelectedEntityKind *EntityKind `json:"selected_entity_kind"`
	SelectedEntityID   *uint       `json:"selected_entity_id"`
	SessionID          string      `json:"session_id"`
}

// RecommendationFeedback is explicit user feedback on one recommendation.
type RecommendationFeedback struct {
	BaseModel
	UserID           uint         `json:"user_id" gorm:"not null;uniqueIndex:idx_feedback_user_rec"`
	RecommendationID uint         `json:"recommendation_id" gorm:"not null;uniqueIndex:idx_feedback_user_rec"`
	FeedbackKind     FeedbackKind `json:"feedback_kind" gorm:"not null;check:feedback_kind IN ('interested','not_interested','already_booked','irrelevant')"`
	Comment          string       `json:"comment"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null;check:status IN ('healthy','degraded','unhealthy')"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at" gorm:"default:NOW()"`
}

// TableName methods for custom table names
func (ActivityRecord) TableName() string         { return "activity_records" }
func (PreferenceSignal) TableName() string       { return "preference_signals" }
func (RecommendationEntry) TableName() string    { return "recommendation_entries" }
func (TrendRecord) TableName() string            { return "trend_records" }
func (SearchQueryLog) TableName() string         { return "search_query_logs" }
func (RecommendationFeedback) TableName() string { return "recommendation_feedback" }
func (SystemHealth) TableName() string           { return "system_health" }

// Model validation methods
func (ar *ActivityRecord) Validate() error {
	if ar.UserID == 0 {
		return fmt.Errorf("user ID is required")
	}
	if !ValidActivityKind(ar.ActivityKind) {
		return fmt.Errorf("invalid activity kind: %s", ar.ActivityKind)
	}
	if !ValidEntityKind(ar.EntityKind) {
		return fmt.Errorf("invalid entity kind: %s", ar.EntityKind)
	}
	if ar.EntityID == 0 {
		return fmt.Errorf("entity ID is required")
	}
	return nil
}

func (ps *PreferenceSignal) Validate() error {
	if ps.UserID == 0 {
		return fmt.Errorf("user ID is required")
	}
	if ps.PreferenceKind == "" || ps.PreferenceKey == "" {
		return fmt.Errorf("preference kind and key are required")
	}
	if ps.Weight < 0 || ps.Weight > 1 {
		return fmt.Errorf("weight out of range: %f", ps.Weight)
	}
	if ps.Confidence < 0 || ps.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %f", ps.Confidence)
	}
	return nil
}

func (re *RecommendationEntry) Validate() error {
	if re.UserID == 0 || re.EntityID == 0 {
		return fmt.Errorf("user ID and entity ID are required")
	}
	if !ValidEntityKind(re.EntityKind) {
		return fmt.Errorf("invalid entity kind: %s", re.EntityKind)
	}
	switch re.Strategy {
	case StrategyPersonalized, StrategySimilar, StrategyLocationBased, StrategyTrending, StrategyPriceBased:
	default:
		return fmt.Errorf("invalid strategy: %s", re.Strategy)
	}
	if re.Score < 0 || re.Score > 1 {
		return fmt.Errorf("score out of range: %f", re.Score)
	}
	return nil
}

func (fb *RecommendationFeedback) Validate() error {
	if fb.UserID == 0 || fb.RecommendationID == 0 {
		return fmt.Errorf("user ID and recommendation ID are required")
	}
	if !ValidFeedbackKind(fb.FeedbackKind) {
		return fmt.Errorf("invalid feedback kind: %s", fb.FeedbackKind)
	}
	return nil
}

func (sq *SearchQueryLog) Validate() error {
	if sq.QueryText == "" {
		return fmt.Errorf("query text is required")
	}
	if sq.ResultsCount < 0 {
		return fmt.Errorf("results count cannot be negative")
	}
	return nil
}

// GORM hooks
func (ar *ActivityRecord) BeforeCreate(tx *gorm.DB) error {
	if ar.OccurredAt.IsZero() {
		ar.OccurredAt = time.Now()
	}
	return ar.Validate()
}

func (ps *PreferenceSignal) BeforeCreate(tx *gorm.DB) error {
	return ps.Validate()
}

func (re *RecommendationEntry) BeforeCreate(tx *gorm.DB) error {
	return re.Validate()
}

func (fb *RecommendationFeedback) BeforeCreate(tx *gorm.DB) error {
	return fb.Validate()
}

func (sq *SearchQueryLog) BeforeCreate(tx *gorm.DB) error {
	return sq.Validate()
}
