package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/repository/cache"
	"github.com/seoul-location-services/internal/usecase"
	"github.com/seoul-location-services/internal/usecase/dto"
)

const apiTimeout = 5 * time.Second

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and drop cached search results",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show hit/miss counters of a running API",
	Long: `Hit and miss counters live in the API process, so this command asks it
over HTTP (see --api).`,
	RunE: func(_ *cobra.Command, _ []string) error {
		body, err := apiGet(strings.TrimRight(apiURL, "/") + "/api/v1/cache/stats")
		if err != nil {
			return err
		}

		var resp struct {
			Data dto.CacheStatsResponse `json:"data"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode stats: %w", err)
		}
		return printJSON(resp.Data)
	},
}

var invalidatePattern string

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate [category]",
	Short: "Drop cached results of one category, a key pattern, or everything",
	Long: `Without arguments every key under the configured prefix is dropped.
With a category, that category's keys and all mixed-category keys are dropped.

$ seoulctl cache invalidate libraries
$ seoulctl cache invalidate --pattern 'location:37.56*'
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		backend, closeBackend, err := cache.OpenBackend(cfg, log)
		if err != nil {
			return err
		}
		defer closeBackend()

		ctx := cmd.Context()
		layer := usecase.NewCacheLayer(ctx, backend, usecase.CacheLayerConfig{
			Enabled:   true,
			TTL:       cfg.Cache.TTL,
			Precision: cfg.Cache.KeyPrecision,
			KeyPrefix: cfg.Cache.KeyPrefix,
		}, log)
		if !layer.Enabled() {
			return fmt.Errorf("cache backend is not reachable")
		}

		resp := dto.CacheInvalidateResponse{}
		switch {
		case len(args) == 1:
			kind, ok := domain.DefaultSources(cfg.Sources.Swapped).Parse(args[0])
			if !ok {
				return fmt.Errorf("unknown category %q", args[0])
			}
			resp.Category = string(kind)
			resp.Pattern = layer.Prefix() + ":*:" + string(kind)
			resp.DeletedKeys = layer.InvalidateKind(ctx, kind)
		case invalidatePattern != "":
			if !strings.HasPrefix(invalidatePattern, layer.Prefix()+":") {
				return fmt.Errorf("pattern must start with %q", layer.Prefix()+":")
			}
			resp.Pattern = invalidatePattern
			resp.DeletedKeys = layer.InvalidatePattern(ctx, invalidatePattern)
		default:
			resp.Pattern = layer.AllKeysPattern()
			resp.DeletedKeys = layer.InvalidatePattern(ctx, resp.Pattern)
		}
		return printJSON(resp)
	},
}

func init() {
	cacheInvalidateCmd.Flags().StringVar(&invalidatePattern, "pattern", "", "glob pattern under the cache prefix")
	cacheCmd.AddCommand(cacheStatsCmd, cacheInvalidateCmd)
}

func apiGet(url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := fasthttp.DoTimeout(req, resp, apiTimeout); err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode(), resp.Body())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
