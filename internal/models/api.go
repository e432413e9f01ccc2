package models

type TrackRequest struct {
	UserID       uint              `json:"user_id" binding:"required"`
	ActivityKind string            `json:"activity_kind" binding:"required"`
	EntityKind   string            `json:"entity_kind" binding:"required"`
	EntityID     uint              `json:"entity_id" binding:"required"`
	Metadata     map[string]string `json:"metadata"`
	SessionID    string            `json:"session_id"`
}

type SearchLogRequest struct {
	UserID       *uint             `json:"user_id"`
	QueryText    string            `json:"query_text" binding:"required"`
	SearchKind   string            `json:"search_kind"`
	Filters      map[string]string `json:"filters"`
	ResultsCount int               `json:"results_count"`
	SessionID    string            `json:"session_id"`
}

type SearchSuccessRequest struct {
	EntityKind string `json:"entity_kind" binding:"required"`
	EntityID   uint   `json:"entity_id" binding:"required"`
}

type GenerateRequest struct {
	UserID      uint     `json:"user_id" binding:"required"`
	EntityKinds []string `json:"entity_kinds"`
	Limit       int      `json:"limit"`
}

type MarkRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

type FeedbackRequest struct {
	UserID       uint   `json:"user_id" binding:"required"`
	FeedbackKind string `json:"feedback_kind" binding:"required"`
	Comment      string `json:"comment"`
}

type RecommendationItem struct {
	ID         uint    `json:"id"`
	EntityKind string  `json:"entity_kind"`
	EntityID   uint    `json:"entity_id"`
	Strategy   string  `json:"strategy"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
}

type RecommendationResponse struct {
	Recommendations []RecommendationItem `json:"recommendations"`
	Total           int                  `json:"total"`
}

type TrendingItem struct {
	EntityKind string  `json:"entity_kind"`
	EntityID   uint    `json:"entity_id"`
	TrendScore float64 `json:"trend_score"`
}

type TrendingResponse struct {
	Items []TrendingItem `json:"items"`
	Total int            `json:"total"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
