package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a lookup is reused for the same rounded coordinate.
const DefaultTTL = 30 * time.Minute

var (
	// ErrUnavailable is returned when current conditions cannot be fetched.
	ErrUnavailable = errors.New("weather unavailable")
	// ErrInvalidCoordinates is returned for latitudes or longitudes out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Service answers current-weather lookups with caching and request coalescing.
type Service struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	group   singleflight.Group
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache replaces the default in-process cache.
func WithCache(c Cache) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

// WithTTL sets the cache lifetime.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// NewService creates a weather service over fetcher.
func NewService(fetcher Fetcher, opts ...ServiceOption) *Service {
	s := &Service{fetcher: fetcher, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewMemoryCache()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	return s
}

// CacheKey rounds a coordinate to two decimals (about 1 km).
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", round2(lat), round2(lon))
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // avoid "-0.00"
	}
	return r
}

// Current returns conditions at lat, lon. Failures are reported as ErrUnavailable.
func (s *Service) Current(ctx context.Context, lat, lon float64) (Conditions, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Conditions{}, ErrInvalidCoordinates
	}
	key := CacheKey(lat, lon)
	if c, ok := s.cache.Get(ctx, key); ok {
		slog.Debug("Service.Current: cache hit", "key", key)
		return c, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others sharing this call.
		fetchCtx := context.WithoutCancel(ctx)
		c, err := s.fetcher.Fetch(fetchCtx, round2(lat), round2(lon))
		if err != nil {
			return Conditions{}, err
		}
		s.cache.Set(fetchCtx, key, c, s.ttl)
		return c, nil
	})

	// A canceled caller stops waiting; the shared fetch still finishes and fills the cache.
	select {
	case <-ctx.Done():
		slog.Debug("Service.Current: caller gave up on in-flight lookup", "key", key, "error", ctx.Err())
		return Conditions{}, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			slog.Error("Service.Current: weather lookup failed", "key", key, "error", res.Err)
			return Conditions{}, fmt.Errorf("%w: %v", ErrUnavailable, res.Err)
		}
		slog.Debug("Service.Current: fetched", "key", key, "shared", res.Shared)
		return res.Val.(Conditions), nil
	}
}
