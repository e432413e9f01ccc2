package services

import (
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testEngine() config.Engine {
	return config.DefaultEngine()
}

// fakeActivityRepo replays stored activity records through the same query
// shapes the SQL implementation answers.
type fakeActivityRepo struct {
	records []models.ActivityRecord
	nextID  uint

	recentErr  error
	touchedErr error
	peersErr   error
}

func (f *fakeActivityRepo) add(userID uint, activity models.ActivityKind, kind models.EntityKind, entityID uint) {
	f.nextID++
	f.records = append(f.records, models.ActivityRecord{
		BaseModel:    models.BaseModel{ID: f.nextID},
		UserID:       userID,
		ActivityKind: activity,
		EntityKind:   kind,
		EntityID:     entityID,
		OccurredAt:   time.Now(),
	})
}

func (f *fakeActivityRepo) Create(record *models.ActivityRecord) error {
	f.nextID++
	record.ID = f.nextID
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeActivityRepo) RecentEntityIDs(userID uint, kind models.EntityKind, activities []models.ActivityKind, limit int) ([]uint, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	allowed := activitySet(activities)
	seen := make(map[uint]bool)
	var ids []uint
	for i := len(f.records) - 1; i >= 0; i-- {
		r := f.records[i]
		if r.UserID != userID || r.EntityKind != kind || !allowed[r.ActivityKind] || seen[r.EntityID] {
			continue
		}
		seen[r.EntityID] = true
		ids = append(ids, r.EntityID)
		if len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func (f *fakeActivityRepo) TouchedEntityIDs(userID uint, kind models.EntityKind) ([]uint, error) {
	if f.touchedErr != nil {
		return nil, f.touchedErr
	}
	seen := make(map[uint]bool)
	var ids []uint
	for _, r := range f.records {
		if r.UserID != userID || r.EntityKind != kind || seen[r.EntityID] {
			continue
		}
		seen[r.EntityID] = true
		ids = append(ids, r.EntityID)
	}
	return ids, nil
}

func (f *fakeActivityRepo) FindPeers(userID uint, kind models.EntityKind, entityIDs []uint, activities []models.ActivityKind, limit int) ([]models.PeerOverlap, error) {
	if f.peersErr != nil {
		return nil, f.peersErr
	}
	allowed := activitySet(activities)
	targets := make(map[uint]bool, len(entityIDs))
	for _, id := range entityIDs {
		targets[id] = true
	}

	shared := make(map[uint]map[uint]bool)
	for _, r := range f.records {
		if r.UserID == userID || r.EntityKind != kind || !allowed[r.ActivityKind] || !targets[r.EntityID] {
			continue
		}
		if shared[r.UserID] == nil {
			shared[r.UserID] = make(map[uint]bool)
		}
		shared[r.UserID][r.EntityID] = true
	}

	peers := make([]models.PeerOverlap, 0, len(shared))
	for peerID, entities := range shared {
		peers = append(peers, models.PeerOverlap{UserID: peerID, SharedCount: len(entities)})
	}
	sort.Slice(peers, func(i, j int) bool {
		if peers[i].SharedCount != peers[j].SharedCount {
			return peers[i].SharedCount > peers[j].SharedCount
		}
		return peers[i].UserID < peers[j].UserID
	})
	if len(peers) > limit {
		peers = peers[:limit]
	}
	return peers, nil
}

func (f *fakeActivityRepo) PeerActivities(peerIDs []uint, kind models.EntityKind, activities []models.ActivityKind) ([]models.PeerActivity, error) {
	allowed := activitySet(activities)
	peers := make(map[uint]bool, len(peerIDs))
	for _, id := range peerIDs {
		peers[id] = true
	}

	var result []models.PeerActivity
	for _, r := range f.records {
		if !peers[r.UserID] || r.EntityKind != kind || !allowed[r.ActivityKind] {
			continue
		}
		result = append(result, models.PeerActivity{
			UserID:       r.UserID,
			EntityID:     r.EntityID,
			ActivityKind: r.ActivityKind,
		})
	}
	return result, nil
}

func (f *fakeActivityRepo) DailyCounts(kind models.EntityKind, day time.Time) ([]models.ActivityCount, error) {
	type countKey struct {
		entityID uint
		activity models.ActivityKind
	}
	counts := make(map[countKey]int)
	for _, r := range f.records {
		if r.EntityKind != kind || !sameDay(r.OccurredAt, day) {
			continue
		}
		counts[countKey{r.EntityID, r.ActivityKind}]++
	}

	result := make([]models.ActivityCount, 0, len(counts))
	for key, count := range counts {
		result = append(result, models.ActivityCount{
			EntityID:     key.entityID,
			ActivityKind: key.activity,
			Count:        count,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityID != result[j].EntityID {
			return result[i].EntityID < result[j].EntityID
		}
		return result[i].ActivityKind < result[j].ActivityKind
	})
	return result, nil
}

func activitySet(activities []models.ActivityKind) map[models.ActivityKind]bool {
	set := make(map[models.ActivityKind]bool, len(activities))
	for _, a := range activities {
		set[a] = true
	}
	return set
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// fakePreferenceRepo keys signals by (user, kind, key).
type fakePreferenceRepo struct {
	signals map[prefKey]*models.PreferenceSignal
	nextID  uint
}

type prefKey struct {
	userID         uint
	preferenceKind string
	preferenceKey  string
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{signals: make(map[prefKey]*models.PreferenceSignal)}
}

func (f *fakePreferenceRepo) Get(userID uint, preferenceKind, preferenceKey string) (*models.PreferenceSignal, error) {
	signal, ok := f.signals[prefKey{userID, preferenceKind, preferenceKey}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *signal
	return &copied, nil
}

func (f *fakePreferenceRepo) Upsert(signal *models.PreferenceSignal) error {
	key := prefKey{signal.UserID, signal.PreferenceKind, signal.PreferenceKey}
	stored, ok := f.signals[key]
	if !ok {
		f.nextID++
		copied := *signal
		copied.ID = f.nextID
		f.signals[key] = &copied
		return nil
	}
	signal.ID = stored.ID
	copied := *signal
	f.signals[key] = &copied
	return nil
}

func (f *fakePreferenceRepo) TopByKind(userID uint, preferenceKind string, limit int) ([]models.PreferenceSignal, error) {
	var result []models.PreferenceSignal
	for key, signal := range f.signals {
		if key.userID == userID && key.preferenceKind == preferenceKind {
			result = append(result, *signal)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Weight != result[j].Weight {
			return result[i].Weight > result[j].Weight
		}
		return result[i].PreferenceKey < result[j].PreferenceKey
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// fakeRecommendationRepo mirrors the upsert-on-conflict persistence.
type fakeRecommendationRepo struct {
	entries   map[uint]*models.RecommendationEntry
	nextID    uint
	saveCalls int
}

func newFakeRecommendationRepo() *fakeRecommendationRepo {
	return &fakeRecommendationRepo{entries: make(map[uint]*models.RecommendationEntry)}
}

func (f *fakeRecommendationRepo) Upsert(entry *models.RecommendationEntry) error {
	for _, stored := range f.entries {
		if stored.UserID == entry.UserID && stored.EntityKind == entry.EntityKind &&
			stored.EntityID == entry.EntityID && stored.Strategy == entry.Strategy {
			stored.Score = entry.Score
			stored.Reason = entry.Reason
			stored.ExpiresAt = entry.ExpiresAt
			entry.ID = stored.ID
			return nil
		}
	}
	f.nextID++
	entry.ID = f.nextID
	copied := *entry
	f.entries[entry.ID] = &copied
	return nil
}

func (f *fakeRecommendationRepo) Save(entry *models.RecommendationEntry) error {
	f.saveCalls++
	copied := *entry
	f.entries[entry.ID] = &copied
	return nil
}

func (f *fakeRecommendationRepo) GetByID(id uint) (*models.RecommendationEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeRecommendationRepo) GetLive(userID uint, kind *models.EntityKind, limit int) ([]models.RecommendationEntry, error) {
	var result []models.RecommendationEntry
	now := time.Now()
	for _, entry := range f.entries {
		if entry.UserID != userID || !entry.ExpiresAt.After(now) {
			continue
		}
		if kind != nil && entry.EntityKind != *kind {
			continue
		}
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].EntityID < result[j].EntityID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeRecommendationRepo) PurgeExpired(userID uint) error {
	now := time.Now()
	for id, entry := range f.entries {
		if entry.UserID == userID && !entry.ExpiresAt.After(now) {
			delete(f.entries, id)
		}
	}
	return nil
}

func (f *fakeRecommendationRepo) PurgeAllExpired() (int64, error) {
	var purged int64
	now := time.Now()
	for id, entry := range f.entries {
		if !entry.ExpiresAt.After(now) {
			delete(f.entries, id)
			purged++
		}
	}
	return purged, nil
}

// fakeTrendRepo keys records by the same unique tuple the table enforces.
type fakeTrendRepo struct {
	records []models.TrendRecord
	nextID  uint
}

func (f *fakeTrendRepo) Upsert(record *models.TrendRecord) error {
	for i := range f.records {
		stored := &f.records[i]
		if stored.EntityKind == record.EntityKind && stored.EntityID == record.EntityID &&
			stored.Period == record.Period && sameDay(stored.PeriodDate, record.PeriodDate) &&
			stored.Location == record.Location {
			record.ID = stored.ID
			*stored = *record
			return nil
		}
	}
	f.nextID++
	record.ID = f.nextID
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeTrendRepo) GetTop(kind *models.EntityKind, location string, day time.Time, limit int) ([]models.TrendRecord, error) {
	var result []models.TrendRecord
	for _, record := range f.records {
		if !sameDay(record.PeriodDate, day) || record.Location != location {
			continue
		}
		if kind != nil && record.EntityKind != *kind {
			continue
		}
		result = append(result, record)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TrendScore != result[j].TrendScore {
			return result[i].TrendScore > result[j].TrendScore
		}
		return result[i].EntityID < result[j].EntityID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeTrendRepo) ScoresFor(kind models.EntityKind, entityIDs []uint, day time.Time) (map[uint]float64, error) {
	wanted := make(map[uint]bool, len(entityIDs))
	for _, id := range entityIDs {
		wanted[id] = true
	}
	scores := make(map[uint]float64)
	for _, record := range f.records {
		if record.EntityKind == kind && wanted[record.EntityID] && sameDay(record.PeriodDate, day) {
			scores[record.EntityID] = record.TrendScore
		}
	}
	return scores, nil
}

// fakeListingResolver serves summaries from an in-memory catalog.
type fakeListingResolver struct {
	listings map[models.EntityKind][]models.ListingSummary
}

func newFakeListingResolver() *fakeListingResolver {
	return &fakeListingResolver{listings: make(map[models.EntityKind][]models.ListingSummary)}
}

func (f *fakeListingResolver) add(kind models.EntityKind, id uint, title, category, city string, price float64) {
	f.listings[kind] = append(f.listings[kind], models.ListingSummary{
		EntityKind: kind,
		EntityID:   id,
		Title:      title,
		Category:   category,
		City:       city,
		DailyPrice: price,
	})
}

func (f *fakeListingResolver) Summaries(kind models.EntityKind, ids []uint) ([]models.ListingSummary, error) {
	wanted := make(map[uint]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var result []models.ListingSummary
	for _, listing := range f.listings[kind] {
		if wanted[listing.EntityID] {
			result = append(result, listing)
		}
	}
	return result, nil
}

func (f *fakeListingResolver) FindCandidates(kind models.EntityKind, filter models.CandidateFilter) ([]models.ListingSummary, error) {
	excluded := make(map[uint]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}
	var result []models.ListingSummary
	for _, listing := range f.listings[kind] {
		if excluded[listing.EntityID] {
			continue
		}
		if !matchesAny(listing, filter) {
			continue
		}
		result = append(result, listing)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func matchesAny(listing models.ListingSummary, filter models.CandidateFilter) bool {
	for _, category := range filter.Categories {
		if listing.Category == category {
			return true
		}
	}
	for _, city := range filter.Cities {
		if listing.City == city {
			return true
		}
	}
	if filter.MaxPrice > 0 && listing.DailyPrice >= filter.MinPrice && listing.DailyPrice <= filter.MaxPrice {
		return true
	}
	return false
}

func (f *fakeListingResolver) InCities(kind models.EntityKind, cities []string, excludeIDs []uint, limit int) ([]models.ListingSummary, error) {
	citySet := make(map[string]bool, len(cities))
	for _, city := range cities {
		citySet[city] = true
	}
	excluded := make(map[uint]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var result []models.ListingSummary
	for _, listing := range f.listings[kind] {
		if !citySet[listing.City] || excluded[listing.EntityID] {
			continue
		}
		result = append(result, listing)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (f *fakeListingResolver) InPriceRange(kind models.EntityKind, minPrice, maxPrice float64, excludeIDs []uint, limit int) ([]models.ListingSummary, error) {
	excluded := make(map[uint]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var result []models.ListingSummary
	for _, listing := range f.listings[kind] {
		if listing.DailyPrice < minPrice || listing.DailyPrice > maxPrice || excluded[listing.EntityID] {
			continue
		}
		result = append(result, listing)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (f *fakeListingResolver) TitlePrefix(kind *models.EntityKind, prefix string, limit int) ([]string, error) {
	lowered := strings.ToLower(prefix)
	var result []string
	for listingKind, listings := range f.listings {
		if kind != nil && listingKind != *kind {
			continue
		}
		for _, listing := range listings {
			if strings.HasPrefix(strings.ToLower(listing.Title), lowered) {
				result = append(result, listing.Title)
			}
		}
	}
	sort.Strings(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// fakeSearchLogRepo stores logs by id.
type fakeSearchLogRepo struct {
	logs   map[uint]*models.SearchQueryLog
	order  []uint
	nextID uint
}

func newFakeSearchLogRepo() *fakeSearchLogRepo {
	return &fakeSearchLogRepo{logs: make(map[uint]*models.SearchQueryLog)}
}

func (f *fakeSearchLogRepo) Create(log *models.SearchQueryLog) error {
	f.nextID++
	log.ID = f.nextID
	copied := *log
	f.logs[log.ID] = &copied
	f.order = append(f.order, log.ID)
	return nil
}

func (f *fakeSearchLogRepo) GetByID(id uint) (*models.SearchQueryLog, error) {
	log, ok := f.logs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *log
	return &copied, nil
}

func (f *fakeSearchLogRepo) MarkSuccessful(id uint, kind models.EntityKind, entityID uint) error {
	log, ok := f.logs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	log.HadInteraction = true
	log.SelectedEntityKind = &kind
	log.SelectedEntityID = &entityID
	return nil
}

func (f *fakeSearchLogRepo) RecentSuccessfulQueries(userID uint, prefix string, limit int) ([]string, error) {
	lowered := strings.ToLower(prefix)
	seen := make(map[string]bool)
	var result []string
	for i := len(f.order) - 1; i >= 0; i-- {
		log := f.logs[f.order[i]]
		if log.UserID == nil || *log.UserID != userID || !log.HadInteraction {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(log.QueryText), lowered) || seen[strings.ToLower(log.QueryText)] {
			continue
		}
		seen[strings.ToLower(log.QueryText)] = true
		result = append(result, log.QueryText)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (f *fakeSearchLogRepo) PopularQueries(prefix string, limit int) ([]string, error) {
	lowered := strings.ToLower(prefix)
	counts := make(map[string]int)
	for _, log := range f.logs {
		text := strings.ToLower(log.QueryText)
		if strings.HasPrefix(text, lowered) {
			counts[log.QueryText]++
		}
	}
	result := make([]string, 0, len(counts))
	for text := range counts {
		result = append(result, text)
	}
	sort.Slice(result, func(i, j int) bool {
		if counts[result[i]] != counts[result[j]] {
			return counts[result[i]] > counts[result[j]]
		}
		return result[i] < result[j]
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// fakeFeedbackRepo keys feedback by (user, recommendation).
type fakeFeedbackRepo struct {
	feedback map[[2]uint]*models.RecommendationFeedback
	nextID   uint
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{feedback: make(map[[2]uint]*models.RecommendationFeedback)}
}

func (f *fakeFeedbackRepo) Upsert(feedback *models.RecommendationFeedback) error {
	key := [2]uint{feedback.UserID, feedback.RecommendationID}
	stored, ok := f.feedback[key]
	if ok {
		feedback.ID = stored.ID
	} else {
		f.nextID++
		feedback.ID = f.nextID
	}
	copied := *feedback
	f.feedback[key] = &copied
	return nil
}

func (f *fakeFeedbackRepo) GetByRecommendation(recommendationID uint) ([]models.RecommendationFeedback, error) {
	var result []models.RecommendationFeedback
	for _, feedback := range f.feedback {
		if feedback.RecommendationID == recommendationID {
			result = append(result, *feedback)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}
