package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rcview/rcview-cli/pkg/geocode"
	"github.com/rcview/rcview-cli/pkg/portal"
)

// newPortalClient builds an authenticated portal client from saved tokens.
func newPortalClient() (*portal.Client, error) {
	if err := cfg.Validate("portal"); err != nil {
		return nil, err
	}

	access, refresh, err := portal.LoadTokens(cfg.Portal.TokenFile)
	if err != nil {
		return nil, eris.Wrap(err, "not logged in, run 'rcview login' first")
	}

	return portal.New(cfg.Portal.BaseURL, cfg.Portal.ClientID,
		portal.WithTokens(access, refresh),
		portal.WithRateLimit(float64(cfg.Portal.RateLimit)),
	), nil
}

// newGeocoder assembles the geocoding client from config. The portal
// fallback is attached only when requested, since it consumes credits.
func newGeocoder(usePortal bool) (geocode.Client, func(), error) {
	opts := []geocode.Option{
		geocode.WithRateLimit(float64(cfg.Geocode.CensusRateLimit)),
		geocode.WithFallbackConcurrency(cfg.Geocode.FallbackConcurrency),
	}

	cleanup := func() {}
	if cfg.Geocode.CachePath != "" {
		cache, err := geocode.OpenCache(cfg.Geocode.CachePath)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = cache.Close() }
		opts = append(opts, geocode.WithCache(cache))
	}

	if usePortal {
		client, err := newPortalClient()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, geocode.WithPortalFallback(
			geocode.NewPortalProvider(client, cfg.Portal.GeocodeServer)))
	} else {
		zap.L().Debug("geocode: portal fallback disabled")
	}

	return geocode.NewClient(opts...), cleanup, nil
}
