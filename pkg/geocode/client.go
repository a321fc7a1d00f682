// Package geocode resolves street addresses to coordinates using the US
// Census Bureau geocoder first and the portal's geocode service as a
// fallback. The Census service is free; the portal service consumes
// credits, so it only sees addresses the Census service could not match.
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// MaxBatchSize is the largest address list accepted by BatchGeocode,
// matching the Census batch endpoint limit used here.
const MaxBatchSize = 1000

// Address is one address to geocode.
type Address struct {
	ID     string // optional caller identifier for batch correlation
	Street string
	City   string
	State  string // 2-letter state
	Zip    string
}

// Result is the outcome for one address.
type Result struct {
	Matched   bool
	Address   string  // matched address as returned by the service
	MatchType string  // service match classification ("Exact", "PointAddress", ...)
	Source    string  // "US Census" or "Esri"
	Latitude  float64 // decimal degrees, WGS84
	Longitude float64
}

// Client geocodes addresses.
type Client interface {
	Geocode(ctx context.Context, addr Address) (*Result, error)
	BatchGeocode(ctx context.Context, addrs []Address) ([]Result, error)
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets the HTTP client used for Census requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) { g.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for Census calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) { g.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1)) }
}

// WithPortalFallback enables the portal geocode service for addresses the
// Census service cannot match.
func WithPortalFallback(p PortalGeocoder) Option {
	return func(g *geocoder) { g.portal = p }
}

// WithCache attaches a local result cache.
func WithCache(c *Cache) Option {
	return func(g *geocoder) { g.cache = c }
}

// WithFallbackConcurrency bounds parallel portal fallback calls during
// batch geocoding.
func WithFallbackConcurrency(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.fallbackConcurrency = n
		}
	}
}

type geocoder struct {
	httpClient          *http.Client
	limiter             *rate.Limiter
	portal              PortalGeocoder
	cache               *Cache
	fallbackConcurrency int
}

// NewClient creates a geocoding Client.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:          &http.Client{Timeout: 30 * time.Second},
		limiter:             rate.NewLimiter(10, 10),
		fallbackConcurrency: 5,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode resolves one address: cache, then Census, then the portal.
func (g *geocoder) Geocode(ctx context.Context, addr Address) (*Result, error) {
	if g.cache != nil {
		if r, ok := g.cache.Get(ctx, addr); ok {
			return r, nil
		}
	}

	result, err := g.geocodeCensus(ctx, addr)
	if err != nil {
		zap.L().Debug("geocode: census error, trying portal",
			zap.String("street", addr.Street),
			zap.Error(err),
		)
	}
	if result == nil || !result.Matched {
		if g.portal != nil {
			portalResult, portalErr := g.portal.Geocode(ctx, addr)
			if portalErr != nil {
				return nil, eris.Wrap(portalErr, "geocode: portal fallback")
			}
			result = portalResult
		} else if err != nil {
			return nil, err
		}
	}
	if result == nil {
		result = &Result{Matched: false, Source: sourceCensus}
	}

	if g.cache != nil {
		g.cache.Put(ctx, addr, result)
	}
	return result, nil
}

// BatchGeocode resolves up to MaxBatchSize addresses via the Census batch
// endpoint, then retries unmatched addresses against the portal service.
func (g *geocoder) BatchGeocode(ctx context.Context, addrs []Address) ([]Result, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	if len(addrs) > MaxBatchSize {
		return nil, eris.Errorf("geocode: batch of %d exceeds the %d address limit", len(addrs), MaxBatchSize)
	}

	for i := range addrs {
		if addrs[i].ID == "" {
			addrs[i].ID = fmt.Sprintf("%d", i)
		}
	}

	results, err := g.batchGeocodeCensus(ctx, addrs)
	if err != nil {
		return nil, err
	}

	if g.portal != nil {
		eg, gCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.fallbackConcurrency)
		for i := range results {
			if results[i].Matched {
				continue
			}
			i := i
			eg.Go(func() error {
				r, fbErr := g.portal.Geocode(gCtx, addrs[i])
				if fbErr != nil {
					zap.L().Warn("geocode: portal fallback failed",
						zap.String("id", addrs[i].ID),
						zap.Error(fbErr),
					)
					return nil
				}
				results[i] = *r
				return nil
			})
		}
		_ = eg.Wait()
	}

	if g.cache != nil {
		for i := range results {
			g.cache.Put(ctx, addrs[i], &results[i])
		}
	}
	return results, nil
}
