package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testEngine() config.Engine {
	return config.DefaultEngine()
}

// Minimal repository stubs. Handler tests only exercise request parsing and
// status mapping, so most methods answer with empty results.

type stubActivityRepo struct {
	created []models.ActivityRecord
}

func (s *stubActivityRepo) Create(record *models.ActivityRecord) error {
	s.created = append(s.created, *record)
	return nil
}
func (s *stubActivityRepo) RecentEntityIDs(uint, models.EntityKind, []models.ActivityKind, int) ([]uint, error) {
	return nil, nil
}
func (s *stubActivityRepo) TouchedEntityIDs(uint, models.EntityKind) ([]uint, error) {
	return nil, nil
}
func (s *stubActivityRepo) FindPeers(uint, models.EntityKind, []uint, []models.ActivityKind, int) ([]models.PeerOverlap, error) {
	return nil, nil
}
func (s *stubActivityRepo) PeerActivities([]uint, models.EntityKind, []models.ActivityKind) ([]models.PeerActivity, error) {
	return nil, nil
}
func (s *stubActivityRepo) DailyCounts(models.EntityKind, time.Time) ([]models.ActivityCount, error) {
	return nil, nil
}

type stubPreferenceRepo struct{}

func (stubPreferenceRepo) Get(uint, string, string) (*models.PreferenceSignal, error) {
	return nil, gorm.ErrRecordNotFound
}
func (stubPreferenceRepo) Upsert(*models.PreferenceSignal) error { return nil }
func (stubPreferenceRepo) TopByKind(uint, string, int) ([]models.PreferenceSignal, error) {
	return nil, nil
}

type stubListingResolver struct{}

func (stubListingResolver) Summaries(models.EntityKind, []uint) ([]models.ListingSummary, error) {
	return nil, nil
}
func (stubListingResolver) FindCandidates(models.EntityKind, models.CandidateFilter) ([]models.ListingSummary, error) {
	return nil, nil
}
func (stubListingResolver) InCities(models.EntityKind, []string, []uint, int) ([]models.ListingSummary, error) {
	return nil, nil
}
func (stubListingResolver) InPriceRange(models.EntityKind, float64, float64, []uint, int) ([]models.ListingSummary, error) {
	return nil, nil
}
func (stubListingResolver) TitlePrefix(*models.EntityKind, string, int) ([]string, error) {
	return nil, nil
}

type stubRecommendationRepo struct {
	entries map[uint]*models.RecommendationEntry
}

func newStubRecommendationRepo() *stubRecommendationRepo {
	return &stubRecommendationRepo{entries: make(map[uint]*models.RecommendationEntry)}
}

func (s *stubRecommendationRepo) Upsert(entry *models.RecommendationEntry) error {
	if entry.ID == 0 {
		entry.ID = uint(len(s.entries) + 1)
	}
	copied := *entry
	s.entries[entry.ID] = &copied
	return nil
}
func (s *stubRecommendationRepo) Save(entry *models.RecommendationEntry) error {
	copied := *entry
	s.entries[entry.ID] = &copied
	return nil
}
func (s *stubRecommendationRepo) GetByID(id uint) (*models.RecommendationEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *entry
	return &copied, nil
}
func (s *stubRecommendationRepo) GetLive(uint, *models.EntityKind, int) ([]models.RecommendationEntry, error) {
	return nil, nil
}
func (s *stubRecommendationRepo) PurgeExpired(uint) error         { return nil }
func (s *stubRecommendationRepo) PurgeAllExpired() (int64, error) { return 0, nil }

type stubFeedbackRepo struct {
	stored []models.RecommendationFeedback
}

func (s *stubFeedbackRepo) Upsert(feedback *models.RecommendationFeedback) error {
	s.stored = append(s.stored, *feedback)
	return nil
}
func (s *stubFeedbackRepo) GetByRecommendation(uint) ([]models.RecommendationFeedback, error) {
	return s.stored, nil
}

type stubSearchLogRepo struct {
	logs   map[uint]*models.SearchQueryLog
	nextID uint
}

func newStubSearchLogRepo() *stubSearchLogRepo {
	return &stubSearchLogRepo{logs: make(map[uint]*models.SearchQueryLog)}
}

func (s *stubSearchLogRepo) Create(log *models.SearchQueryLog) error {
	s.nextID++
	log.ID = s.nextID
	copied := *log
	s.logs[log.ID] = &copied
	return nil
}
func (s *stubSearchLogRepo) GetByID(id uint) (*models.SearchQueryLog, error) {
	log, ok := s.logs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *log
	return &copied, nil
}
func (s *stubSearchLogRepo) MarkSuccessful(id uint, kind models.EntityKind, entityID uint) error {
	log, ok := s.logs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	log.HadInteraction = true
	log.SelectedEntityKind = &kind
	log.SelectedEntityID = &entityID
	return nil
}
func (s *stubSearchLogRepo) RecentSuccessfulQueries(uint, string, int) ([]string, error) {
	return nil, nil
}
func (s *stubSearchLogRepo) PopularQueries(string, int) ([]string, error) { return nil, nil }
