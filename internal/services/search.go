package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/database"
	"github.com/rentradar/backend/internal/models"
	"github.com/rentradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrSearchNotFound means the referenced search log record does not exist.
var ErrSearchNotFound = errors.New("search record not found")

// suggestionCap bounds every suggestion response.
const suggestionCap = 10

// perSourceLimit bounds each suggestion source before merging.
const perSourceLimit = 5

// SearchService logs search queries and derives typed-ahead suggestions from
// them and from the listing catalog.
type SearchService struct {
	searchLogs models.SearchLogRepository
	listings   models.ListingResolver
	cache      *database.Cache
	engine     config.Engine
	logger     *logrus.Logger
}

func NewSearchService(
	searchLogs models.SearchLogRepository,
	listings models.ListingResolver,
	cache *database.Cache,
	engine config.Engine,
	logger *logrus.Logger,
) *SearchService {
	return &SearchService{
		searchLogs: searchLogs,
		listings:   listings,
		cache:      cache,
		engine:     engine,
		logger:     logger,
	}
}

// LogSearch records one search request and returns the stored row so the
// caller can later mark it successful.
func (s *SearchService) LogSearch(req models.SearchLogRequest) (*models.SearchQueryLog, error) {
	searchKind := req.SearchKind
	if searchKind == "" {
		searchKind = "all"
	}
	if searchKind != "all" && !models.ValidEntityKind(models.EntityKind(searchKind)) {
		return nil, errors.New("invalid search kind: " + searchKind)
	}

	log := &models.SearchQueryLog{
		UserID:       req.UserID,
		QueryText:    strings.TrimSpace(req.QueryText),
		SearchKind:   searchKind,
		Filters:      req.Filters,
		ResultsCount: req.ResultsCount,
		SessionID:    req.SessionID,
	}
	if err := log.Validate(); err != nil {
		return nil, err
	}
	if err := s.searchLogs.Create(log); err != nil {
		return nil, err
	}
	return log, nil
}

// MarkSearchSuccessful flags the logged search as having led to a selection.
func (s *SearchService) MarkSearchSuccessful(searchID uint, kind models.EntityKind, entityID uint) error {
	if !models.ValidEntityKind(kind) {
		return errors.New("invalid entity kind: " + string(kind))
	}

	if _, err := s.searchLogs.GetByID(searchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSearchNotFound
		}
		return err
	}

	return s.searchLogs.MarkSuccessful(searchID, kind, entityID)
}

// Suggestions merges three sources: the user's own recent successful
// searches, globally popular search terms, and listing-title prefix matches.
// The merged list is deduplicated and capped. Each source degrades
// independently.
func (s *SearchService) Suggestions(ctx context.Context, partial string, kind *models.EntityKind, userID *uint) []string {
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return nil
	}

	cacheKey := s.suggestionCacheKey(partial, kind, userID)
	if s.cache != nil {
		if cached, err := s.cache.GetCachedSuggestions(ctx, cacheKey); err == nil {
			return cached
		}
	}

	var merged []string

	if userID != nil {
		recent, err := s.searchLogs.RecentSuccessfulQueries(*userID, partial, perSourceLimit)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to load recent successful searches")
		} else {
			merged = append(merged, recent...)
		}
	}

	popular, err := s.searchLogs.PopularQueries(partial, perSourceLimit)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load popular search terms")
	} else {
		merged = append(merged, popular...)
	}

	titles, err := s.listings.TitlePrefix(kind, partial, perSourceLimit)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load listing title matches")
	} else {
		merged = append(merged, titles...)
	}

	suggestions := dedupeStrings(merged, suggestionCap)

	if s.cache != nil {
		if err := s.cache.CacheSuggestions(ctx, cacheKey, suggestions, s.engine.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache suggestions")
		}
	}

	return suggestions
}

func (s *SearchService) suggestionCacheKey(partial string, kind *models.EntityKind, userID *uint) string {
	key := strings.ToLower(partial)
	if kind != nil {
		key += ":" + string(*kind)
	}
	if userID != nil {
		key += ":" + strconv.FormatUint(uint64(*userID), 10)
	}
	return utils.MD5Hash(key)
}

// dedupeStrings keeps first occurrences, comparing case-insensitively.
func dedupeStrings(values []string, limit int) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, limit)
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, value)
		if len(result) >= limit {
			break
		}
	}
	return result
}
