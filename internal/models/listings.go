package models

// Listing catalog models. The marketplace CRUD owns these tables; the
// personalization core only reads the feature columns it scores on.

// VehicleListing is a rentable vehicle.
type VehicleListing struct {
	BaseModel
	Title      string  `json:"title" gorm:"not null"`
	Category   string  `json:"category" gorm:"not null;index"`
	City       string  `json:"city" gorm:"not null;index"`
	DailyPrice float64 `json:"daily_price" gorm:"not null"`
	IsActive   bool    `json:"is_active" gorm:"default:true"`
}

// PropertyListing is a rentable property.
type PropertyListing struct {
	BaseModel
	Title      string  `json:"title" gorm:"not null"`
	Category   string  `json:"category" gorm:"not null;index"`
	City       string  `json:"city" gorm:"not null;index"`
	DailyPrice float64 `json:"daily_price" gorm:"not null"`
	IsActive   bool    `json:"is_active" gorm:"default:true"`
}

// EquipmentListing is rentable equipment.
type EquipmentListing struct {
	BaseModel
	Title      string  `json:"title" gorm:"not null"`
	Category   string  `json:"category" gorm:"not null;index"`
	City       string  `json:"city" gorm:"not null;index"`
	DailyPrice float64 `json:"daily_price" gorm:"not null"`
	IsActive   bool    `json:"is_active" gorm:"default:true"`
}

func (VehicleListing) TableName() string   { return "vehicle_listings" }
func (PropertyListing) TableName() string  { return "property_listings" }
func (EquipmentListing) TableName() string { return "equipment_listings" }

// ListingSummary is the kind-independent feature view the engines score on.
type ListingSummary struct {
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   uint       `json:"entity_id"`
	Title      string     `json:"title"`
	Category   string     `json:"category"`
	City       string     `json:"city"`
	DailyPrice float64    `json:"daily_price"`
}

// CandidateFilter narrows a candidate query to listings sharing at least one
// reference feature, excluding already-seen ids.
type CandidateFilter struct {
	Categories []string
	Cities     []string
	MinPrice   float64
	MaxPrice   float64
	ExcludeIDs []uint
	Limit      int
}

// ListingResolver resolves (kind, id) lookups and feature queries against the
// per-kind listing tables.
type ListingResolver interface {
	Summaries(kind EntityKind, ids []uint) ([]ListingSummary, error)
	FindCandidates(kind EntityKind, filter CandidateFilter) ([]ListingSummary, error)
	InCities(kind EntityKind, cities []string, excludeIDs []uint, limit int) ([]ListingSummary, error)
	InPriceRange(kind EntityKind, minPrice, maxPrice float64, excludeIDs []uint, limit int) ([]ListingSummary, error)
	TitlePrefix(kind *EntityKind, prefix string, limit int) ([]string, error)
}
