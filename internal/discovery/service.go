// Package discovery provides the per-domain query functions of the travel
// catalog: nearby places, hotels and restaurants, trending, top-rated and
// newest. Each query goes through the shared transport client and degrades
// to the bundled seed dataset when the call fails, so callers never need to
// know whether data came from the network or the snapshot.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"voyago-client/internal/apperrors"
	"voyago-client/internal/observability"
	"voyago-client/internal/seed"
	"voyago-client/internal/transport"
	"voyago-client/pkg/result"
)

// Section names, shared with the aggregator and the seed snapshot.
const (
	SectionNearbyPlaces      = "nearbyPlaces"
	SectionNearbyHotels      = "nearbyHotels"
	SectionNearbyRestaurants = "nearbyRestaurants"
	SectionTrendingPlaces    = "trendingPlaces"
	SectionTopRatedPlaces    = "topRatedPlaces"
	SectionNewestPlaces      = "newestPlaces"
)

// Transport is the slice of the transport client this service needs.
type Transport interface {
	Do(ctx context.Context, req transport.Request) result.Result[transport.Response]
}

// GeoQuery is the typed input for geo-filtered queries.
type GeoQuery struct {
	Lat        float64 `validate:"gte=-90,lte=90"`
	Lng        float64 `validate:"gte=-180,lte=180"`
	RadiusKm   float64 `validate:"gt=0,lte=500"`
	Limit      int     `validate:"gte=0,lte=100"`
	Categories []string
	Providers  []string
}

// Service issues domain queries. A nil transport puts the service in
// offline mode: every query is served from the seed provider.
type Service struct {
	client   Transport
	seed     seed.Provider
	logger   *zap.Logger
	metrics  *observability.Collector
	validate *validator.Validate
}

// NewService creates a discovery service. seedProvider may be nil, in which
// case fallbacks return empty lists.
func NewService(client Transport, seedProvider seed.Provider, logger *zap.Logger, metrics *observability.Collector) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if seedProvider == nil {
		seedProvider = seed.Empty()
	}
	return &Service{
		client:   client,
		seed:     seedProvider,
		logger:   logger,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// NearbyPlaces returns places around a point.
func (s *Service) NearbyPlaces(ctx context.Context, q GeoQuery) result.Result[[]seed.Record] {
	return s.query(ctx, SectionNearbyPlaces, "/v1/places/nearby", q)
}

// NearbyHotels returns hotels around a point.
func (s *Service) NearbyHotels(ctx context.Context, q GeoQuery) result.Result[[]seed.Record] {
	return s.query(ctx, SectionNearbyHotels, "/v1/hotels/nearby", q)
}

// NearbyRestaurants returns restaurants around a point.
func (s *Service) NearbyRestaurants(ctx context.Context, q GeoQuery) result.Result[[]seed.Record] {
	return s.query(ctx, SectionNearbyRestaurants, "/v1/restaurants/nearby", q)
}

// TrendingPlaces returns currently trending places.
func (s *Service) TrendingPlaces(ctx context.Context, q GeoQuery) result.Result[[]seed.Record] {
	return s.query(ctx, SectionTrendingPlaces, "/v1/places/trending", q)
}

// TopRatedPlaces returns the highest-rated places.
func (s *Service) TopRatedPlaces(ctx context.Context, q GeoQuery) result.Result[[]seed.Record] {
	return s.query(ctx, SectionTopRatedPlaces, "/v1/places/top-rated", q)
}

// NewestPlaces returns recently added places.
func (s *Service) NewestPlaces(ctx context.Context, q GeoQuery) result.Result[[]seed.Record] {
	return s.query(ctx, SectionNewestPlaces, "/v1/places/newest", q)
}

// query validates the input, issues the call, normalizes the response shape
// and falls back to the seed section on any transport or decode failure.
// Validation failures are real errors, not fallback cases: the input is
// wrong regardless of where the data would come from.
func (s *Service) query(ctx context.Context, section, path string, q GeoQuery) result.Result[[]seed.Record] {
	if err := s.validate.Struct(q); err != nil {
		return result.Err[[]seed.Record](apperrors.Wrap(apperrors.KindValidation,
			fmt.Sprintf("invalid query for %s: %v", section, err), err))
	}

	if s.client == nil {
		return result.Ok(s.fallback(section, q))
	}

	res := s.client.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  q.params(),
	})
	if res.IsErr() {
		appErr := res.Error()
		if apperrors.IsCancelled(appErr) {
			// The caller walked away; serving stale data would be wasted work.
			return result.Err[[]seed.Record](appErr)
		}
		s.logger.Info("serving section from local dataset",
			zap.String("section", section),
			zap.String("kind", string(appErr.Kind)))
		s.metrics.ObserveFallback(section)
		return result.Ok(s.fallback(section, q))
	}

	records, err := NormalizeRecords(res.Value().Body)
	if err != nil {
		s.logger.Warn("malformed response, serving section from local dataset",
			zap.String("section", section), zap.Error(err))
		s.metrics.ObserveFallback(section)
		return result.Ok(s.fallback(section, q))
	}
	return result.Ok(seed.Limit(records, q.Limit))
}

// fallback extracts the section from the snapshot and applies the same
// filters the server would. Never fails: a missing or broken snapshot
// section yields an empty list.
func (s *Service) fallback(section string, q GeoQuery) []seed.Record {
	records := s.seed.Section(section)
	records = seed.FilterRadius(records, q.Lat, q.Lng, q.RadiusKm)
	records = seed.FilterCategories(records, q.Categories)
	return seed.Limit(records, q.Limit)
}

// params builds the wire query parameters. Multi-value filters are
// comma-joined.
func (q GeoQuery) params() url.Values {
	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
	v.Set("lng", strconv.FormatFloat(q.Lng, 'f', -1, 64))
	v.Set("radius_km", strconv.FormatFloat(q.RadiusKm, 'f', -1, 64))
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(q.Categories) > 0 {
		v.Set("categories", strings.Join(q.Categories, ","))
	}
	if len(q.Providers) > 0 {
		v.Set("providers", strings.Join(q.Providers, ","))
	}
	return v
}
