package listings

import (
	"fmt"

	"github.com/rentradar/backend/internal/models"
	"gorm.io/gorm"
)

// Resolver answers (entity kind, id) lookups against the per-kind listing
// tables. Dispatch is an explicit switch on the kind enum; each variant has
// its own store rather than reflecting over a shared table.
type Resolver struct {
	vehicles   kindStore
	properties kindStore
	equipment  kindStore
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{
		vehicles:   kindStore{db: db, kind: models.EntityVehicle, table: models.VehicleListing{}.TableName()},
		properties: kindStore{db: db, kind: models.EntityProperty, table: models.PropertyListing{}.TableName()},
		equipment:  kindStore{db: db, kind: models.EntityEquipment, table: models.EquipmentListing{}.TableName()},
	}
}

func (r *Resolver) store(kind models.EntityKind) (*kindStore, error) {
	switch kind {
	case models.EntityVehicle:
		return &r.vehicles, nil
	case models.EntityProperty:
		return &r.properties, nil
	case models.EntityEquipment:
		return &r.equipment, nil
	default:
		return nil, fmt.Errorf("unknown entity kind: %s", kind)
	}
}

func (r *Resolver) Summaries(kind models.EntityKind, ids []uint) ([]models.ListingSummary, error) {
	store, err := r.store(kind)
	if err != nil {
		return nil, err
	}
	return store.summaries(ids)
}

func (r *Resolver) FindCandidates(kind models.EntityKind, filter models.CandidateFilter) ([]models.ListingSummary, error) {
	store, err := r.store(kind)
	if err != nil {
		return nil, err
	}
	return store.findCandidates(filter)
}

func (r *Resolver) InCities(kind models.EntityKind, cities []string, excludeIDs []uint, limit int) ([]models.ListingSummary, error) {
	store, err := r.store(kind)
	if err != nil {
		return nil, err
	}
	return store.inCities(cities, excludeIDs, limit)
}

func (r *Resolver) InPriceRange(kind models.EntityKind, minPrice, maxPrice float64, excludeIDs []uint, limit int) ([]models.ListingSummary, error) {
	store, err := r.store(kind)
	if err != nil {
		return nil, err
	}
	return store.inPriceRange(minPrice, maxPrice, excludeIDs, limit)
}

func (r *Resolver) TitlePrefix(kind *models.EntityKind, prefix string, limit int) ([]string, error) {
	stores := []*kindStore{&r.vehicles, &r.properties, &r.equipment}
	if kind != nil {
		store, err := r.store(*kind)
		if err != nil {
			return nil, err
		}
		stores = []*kindStore{store}
	}

	var titles []string
	for _, store := range stores {
		matches, err := store.titlePrefix(prefix, limit-len(titles))
		if err != nil {
			return nil, err
		}
		titles = append(titles, matches...)
		if len(titles) >= limit {
			break
		}
	}
	return titles, nil
}

// kindStore runs feature queries against one listing table. All listing
// tables share the scored column set, so queries are built per table name.
type kindStore struct {
	db    *gorm.DB
	kind  models.EntityKind
	table string
}

// summaryRow matches the shared feature columns.
type summaryRow struct {
	ID         uint
	Title      string
	Category   string
	City       string
	DailyPrice float64
}

func (s *kindStore) convert(rows []summaryRow) []models.ListingSummary {
	summaries := make([]models.ListingSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, models.ListingSummary{
			EntityKind: s.kind,
			EntityID:   row.ID,
			Title:      row.Title,
			Category:   row.Category,
			City:       row.City,
			DailyPrice: row.DailyPrice,
		})
	}
	return summaries
}

func (s *kindStore) summaries(ids []uint) ([]models.ListingSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []summaryRow
	err := s.db.Table(s.table).
		Select("id, title, category, city, daily_price").
		Where("id IN ? AND is_active = true", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return s.convert(rows), nil
}

func (s *kindStore) findCandidates(filter models.CandidateFilter) ([]models.ListingSummary, error) {
	query := s.db.Table(s.table).
		Select("id, title, category, city, daily_price").
		Where("is_active = true")

	// Any matching feature qualifies a candidate.
	feature := s.db.Where("1 = 0")
	if len(filter.Categories) > 0 {
		feature = feature.Or("category IN ?", filter.Categories)
	}
	if len(filter.Cities) > 0 {
		feature = feature.Or("city IN ?", filter.Cities)
	}
	if filter.MaxPrice > 0 {
		feature = feature.Or("daily_price BETWEEN ? AND ?", filter.MinPrice, filter.MaxPrice)
	}
	query = query.Where(feature)

	if len(filter.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filter.ExcludeIDs)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []summaryRow
	if err := query.Order("id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return s.convert(rows), nil
}

func (s *kindStore) inCities(cities []string, excludeIDs []uint, limit int) ([]models.ListingSummary, error) {
	if len(cities) == 0 {
		return nil, nil
	}
	query := s.db.Table(s.table).
		Select("id, title, category, city, daily_price").
		Where("is_active = true AND city IN ?", cities)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	var rows []summaryRow
	if err := query.Order("id ASC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return s.convert(rows), nil
}

func (s *kindStore) inPriceRange(minPrice, maxPrice float64, excludeIDs []uint, limit int) ([]models.ListingSummary, error) {
	if maxPrice <= 0 {
		return nil, nil
	}
	query := s.db.Table(s.table).
		Select("id, title, category, city, daily_price").
		Where("is_active = true AND daily_price BETWEEN ? AND ?", minPrice, maxPrice)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	var rows []summaryRow
	if err := query.Order("id ASC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return s.convert(rows), nil
}

func (s *kindStore) titlePrefix(prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	var titles []string
	err := s.db.Table(s.table).
		Where("is_active = true AND title ILIKE ?", prefix+"%").
		Order("title ASC").
		Limit(limit).
		Pluck("title", &titles).Error
	return titles, err
}
