package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/providers"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/observability"
)

// CachedFacilityAdapter decorates a FacilityRepository with read-through caching
type CachedFacilityAdapter struct {
	adapter repositories.FacilityRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedFacilityAdapter creates a new cached facility adapter. metrics may be nil.
func NewCachedFacilityAdapter(adapter repositories.FacilityRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.FacilityRepository {
	return &CachedFacilityAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

// Cache TTLs (in seconds)
const (
	facilityByIDTTL  = 300
	searchResultsTTL = 120
)

const facilitySearchPattern = "facilities:search:*"

func facilityCacheKey(id string) string {
	return fmt.Sprintf("facility:%s", id)
}

func facilitySearchCacheKey(kind string, filter repositories.FacilityFilter) string {
	params, _ := json.Marshal(filter)
	return fmt.Sprintf("facilities:search:%s:%s", kind, params)
}

type cachedSearchResult struct {
	Facilities []*entities.Facility `json:"facilities"`
	TotalCount int                  `json:"total_count"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
}

// Create creates a facility and invalidates cached searches
func (a *CachedFacilityAdapter) Create(ctx context.Context, facility *entities.Facility) error {
	if err := a.adapter.Create(ctx, facility); err != nil {
		return err
	}

	if err := a.cache.Delete(ctx, facilityCacheKey(facility.ID)); err != nil {
		log.Warn().Err(err).Str("facility_id", facility.ID).Msg("failed to invalidate facility cache")
	}
	if err := a.cache.DeletePattern(ctx, facilitySearchPattern); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate facility search cache")
	}
	return nil
}

// GetByID retrieves a facility by ID with caching
func (a *CachedFacilityAdapter) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	key := facilityCacheKey(id)

	var facility entities.Facility
	if a.load(ctx, key, "facility", &facility) {
		return &facility, nil
	}

	found, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, found, facilityByIDTTL)
	return found, nil
}

// Search returns a page of facilities with caching
func (a *CachedFacilityAdapter) Search(ctx context.Context, filter repositories.FacilityFilter) (*repositories.FacilityPage, error) {
	filter = filter.Normalized()
	key := facilitySearchCacheKey("page", filter)

	var cached cachedSearchResult
	if a.load(ctx, key, "search", &cached) {
		return &repositories.FacilityPage{
			Facilities: cached.Facilities,
			TotalCount: cached.TotalCount,
			Limit:      cached.Limit,
			Offset:     cached.Offset,
		}, nil
	}

	page, err := a.adapter.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, cachedSearchResult{
		Facilities: page.Facilities,
		TotalCount: page.TotalCount,
		Limit:      page.Limit,
		Offset:     page.Offset,
	}, searchResultsTTL)
	return page, nil
}

// SearchAll returns every matching facility with caching
func (a *CachedFacilityAdapter) SearchAll(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	filter = filter.Normalized()
	filter.Limit, filter.Offset = 0, 0
	key := facilitySearchCacheKey("all", filter)

	var cached []*entities.Facility
	if a.load(ctx, key, "search", &cached) {
		return cached, nil
	}

	facilities, err := a.adapter.SearchAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, facilities, searchResultsTTL)
	return facilities, nil
}

// ListAll is not cached
func (a *CachedFacilityAdapter) ListAll(ctx context.Context) ([]*entities.Facility, error) {
	return a.adapter.ListAll(ctx)
}

// load reads key into dest, reporting a hit. Cache failures degrade to a miss.
func (a *CachedFacilityAdapter) load(ctx context.Context, key, kind string, dest interface{}) bool {
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		observability.RecordCacheMiss(ctx, a.metrics, kind)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		observability.RecordCacheMiss(ctx, a.metrics, kind)
		return false
	}

	observability.RecordCacheHit(ctx, a.metrics, kind)
	return true
}

func (a *CachedFacilityAdapter) store(ctx context.Context, key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to marshal value for cache")
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to write cache")
	}
}
