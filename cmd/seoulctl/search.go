package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
	"github.com/seoul-location-services/internal/pkg/geo"
	"github.com/seoul-location-services/internal/repository/cache"
	"github.com/seoul-location-services/internal/repository/postgres"
	"github.com/seoul-location-services/internal/usecase"
	"github.com/seoul-location-services/internal/usecase/dto"
)

var searchOpts struct {
	lat, lon float64
	radius   int
	category string
	limit    int
	sortBy   string
	noCache  bool
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a proximity search in-process",
	Long: `Runs the same search as GET /api/v1/services/nearby, directly against the
database and cache, and prints the result as JSON.

$ seoulctl search --lat 37.5665 --lon 126.978 --radius 1000 --category libraries
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := postgres.New(&cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()

		var backend repository.CacheRepository
		if cfg.Cache.Enabled && !searchOpts.noCache {
			b, closeBackend, err := cache.OpenBackend(cfg, log)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "cache unavailable, searching without it: %v\n", err)
			} else {
				backend = b
				defer closeBackend()
			}
		}

		transformer, err := geo.NewCoordinateTransformer(geo.TransformerConfig{
			SourceCRS: cfg.Projection.SourceCRS,
			TargetCRS: cfg.Projection.TargetCRS,
			Region: domain.RegionBounds{
				MinLat: cfg.Region.MinLat,
				MaxLat: cfg.Region.MaxLat,
				MinLon: cfg.Region.MinLon,
				MaxLon: cfg.Region.MaxLon,
			},
		}, log)
		if err != nil {
			return err
		}
		defer transformer.Close()

		ctx := cmd.Context()

		registry := domain.DefaultSources(cfg.Sources.Swapped)
		cacheLayer := usecase.NewCacheLayer(ctx, backend, usecase.CacheLayerConfig{
			Enabled:    backend != nil,
			TTL:        cfg.Cache.TTL,
			PartialTTL: cfg.Cache.PartialTTL,
			Precision:  cfg.Cache.KeyPrecision,
			KeyPrefix:  cfg.Cache.KeyPrefix,
		}, log)

		uc := usecase.NewProximityUseCase(
			postgres.NewSourceRepository(db, registry, log),
			cacheLayer,
			transformer,
			registry,
			usecase.SearchLimits{
				DefaultRadius: cfg.Search.DefaultRadius,
				MinRadius:     cfg.Search.MinRadius,
				MaxRadius:     cfg.Search.MaxRadius,
				DefaultLimit:  cfg.Search.DefaultLimit,
				MaxLimit:      cfg.Search.MaxLimit,
				SourceTimeout: cfg.Search.SourceTimeout,
			},
			log,
		)

		q, err := uc.NewQuery(searchOpts.lat, searchOpts.lon, searchOpts.radius, searchOpts.category, searchOpts.limit)
		if err != nil {
			return err
		}
		result, err := uc.Search(ctx, q)
		if err != nil {
			return err
		}
		if result.Records, err = uc.SortRecords(result.Records, searchOpts.sortBy); err != nil {
			return err
		}

		resp := dto.NewLocationSearchResponse(result, q.CategoryName())
		resp.SortBy = searchOpts.sortBy
		return printJSON(resp)
	},
}

func init() {
	f := searchCmd.Flags()
	f.Float64Var(&searchOpts.lat, "lat", 0, "latitude of the center (required)")
	f.Float64Var(&searchOpts.lon, "lon", 0, "longitude of the center (required)")
	f.IntVar(&searchOpts.radius, "radius", 0, "radius in meters (default from config)")
	f.StringVar(&searchOpts.category, "category", "", "restrict to one category")
	f.IntVar(&searchOpts.limit, "limit", 0, "maximum results (default from config)")
	f.StringVar(&searchOpts.sortBy, "sort-by", usecase.SortByDistance, "distance or name")
	f.BoolVar(&searchOpts.noCache, "no-cache", false, "bypass the result cache")
	_ = searchCmd.MarkFlagRequired("lat")
	_ = searchCmd.MarkFlagRequired("lon")
}
