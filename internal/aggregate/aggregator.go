// Package aggregate assembles the home feed by fanning out the independent
// discovery queries concurrently and joining their results into one bundle.
// Individual section failures are absorbed, never escalated: the bundle
// reports success with the sections that did resolve plus an error string
// per section that did not.
package aggregate

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"voyago-client/internal/apperrors"
	"voyago-client/internal/discovery"
	"voyago-client/internal/seed"
	"voyago-client/pkg/result"
)

// Bundle maps section names to record lists. Failed sections are present
// with an empty list and contribute one entry to Errors. Built fresh per
// call; never mutated after assembly.
type Bundle struct {
	Sections map[string][]seed.Record
	Errors   []string
}

// Discovery is the set of domain queries the aggregator fans out to.
type Discovery interface {
	NearbyPlaces(ctx context.Context, q discovery.GeoQuery) result.Result[[]seed.Record]
	NearbyHotels(ctx context.Context, q discovery.GeoQuery) result.Result[[]seed.Record]
	NearbyRestaurants(ctx context.Context, q discovery.GeoQuery) result.Result[[]seed.Record]
	TrendingPlaces(ctx context.Context, q discovery.GeoQuery) result.Result[[]seed.Record]
	TopRatedPlaces(ctx context.Context, q discovery.GeoQuery) result.Result[[]seed.Record]
	NewestPlaces(ctx context.Context, q discovery.GeoQuery) result.Result[[]seed.Record]
}

// Aggregator fans the home-feed queries out and joins the results.
type Aggregator struct {
	disc     Discovery
	logger   *zap.Logger
	validate *validator.Validate
}

// New creates an aggregator over a discovery service.
func New(disc Discovery, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{disc: disc, logger: logger, validate: validator.New()}
}

type sectionQuery struct {
	name string
	run  func(ctx context.Context, q discovery.GeoQuery) result.Result[[]seed.Record]
}

// HomeFeed issues all section queries concurrently and waits for every one
// to settle — join semantics, no short-circuit on first failure. The call
// itself fails only on orchestration-level problems (invalid parameters);
// section failures end up inside the bundle.
func (a *Aggregator) HomeFeed(ctx context.Context, q discovery.GeoQuery) result.Result[*Bundle] {
	if err := a.validate.Struct(q); err != nil {
		return result.Err[*Bundle](apperrors.Wrap(apperrors.KindValidation,
			fmt.Sprintf("invalid home feed query: %v", err), err))
	}

	queries := []sectionQuery{
		{discovery.SectionNearbyPlaces, a.disc.NearbyPlaces},
		{discovery.SectionNearbyHotels, a.disc.NearbyHotels},
		{discovery.SectionNearbyRestaurants, a.disc.NearbyRestaurants},
		{discovery.SectionTrendingPlaces, a.disc.TrendingPlaces},
		{discovery.SectionTopRatedPlaces, a.disc.TopRatedPlaces},
		{discovery.SectionNewestPlaces, a.disc.NewestPlaces},
	}

	results := make([]result.Result[[]seed.Record], len(queries))
	var wg sync.WaitGroup
	for i, sq := range queries {
		wg.Add(1)
		go func(i int, sq sectionQuery) {
			defer wg.Done()
			results[i] = sq.run(ctx, q)
		}(i, sq)
	}
	wg.Wait()

	bundle := &Bundle{Sections: make(map[string][]seed.Record, len(queries))}
	for i, sq := range queries {
		results[i].Fold(
			func(records []seed.Record) {
				bundle.Sections[sq.name] = records
			},
			func(appErr *apperrors.AppError) {
				bundle.Sections[sq.name] = []seed.Record{}
				bundle.Errors = append(bundle.Errors,
					fmt.Sprintf("%s: %s", sq.name, appErr.UserMessage))
				a.logger.Info("home feed section failed",
					zap.String("section", sq.name),
					zap.String("kind", string(appErr.Kind)))
			},
		)
	}

	return result.Ok(bundle)
}
