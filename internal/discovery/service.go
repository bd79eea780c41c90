// Package discovery orchestrates the screen-facing read paths: fetch
// venues from the data service, run the ranking pipeline, and annotate the
// results. It owns no state beyond readiness; every call re-fetches and
// re-ranks so a new location fix or keystroke always supersedes what was
// rendered before.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/plazafinder/mall-radar/internal/domain"
	"github.com/plazafinder/mall-radar/internal/observability"
)

// Screen labels for metrics.
const (
	ScreenMalls      = "malls"
	ScreenStores     = "stores"
	ScreenPromotions = "promotions"
)

// MallSource lists malls from the data service.
type MallSource interface {
	ListMalls(ctx context.Context) ([]domain.Mall, error)
}

// StoreSource lists and counts the stores inside a mall.
type StoreSource interface {
	ListByMall(ctx context.Context, mallID string) ([]domain.Store, error)
	CountByMall(ctx context.Context, mallID string) (int, error)
}

// PromotionSource lists promotions that are still active.
type PromotionSource interface {
	ListActive(ctx context.Context) ([]domain.Promotion, error)
}

// Service serves the discovery screens.
type Service struct {
	malls         MallSource
	stores        StoreSource
	promos        PromotionSource
	logger        *slog.Logger
	metrics       *observability.Metrics
	promoRadiusKm float64
	ready         atomic.Bool
}

// New creates a discovery service. promoRadiusKm is the fixed cutoff the
// promotions feed applies when the caller doesn't bound the query itself.
func New(malls MallSource, stores StoreSource, promos PromotionSource, logger *slog.Logger, metrics *observability.Metrics, promoRadiusKm float64) *Service {
	return &Service{
		malls:         malls,
		stores:        stores,
		promos:        promos,
		logger:        logger,
		metrics:       metrics,
		promoRadiusKm: promoRadiusKm,
	}
}

// CheckReadiness returns nil once at least one venue fetch has succeeded.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no successful venue fetch yet")
	}
	return nil
}

// NearbyMalls ranks every mall by distance from origin, then annotates the
// surviving results with their store counts. A failed count leaves the
// count at zero rather than failing the screen.
func (s *Service) NearbyMalls(ctx context.Context, origin domain.GeoPoint, query domain.RankingQuery) ([]domain.RankedResult[domain.Mall], error) {
	malls, err := s.malls.ListMalls(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch malls: %w", err)
	}
	s.ready.Store(true)

	results, err := rankVenues(s, ScreenMalls, origin, malls, query)
	if err != nil {
		return nil, err
	}

	// Counts only for the venues that survived filtering, to bound the
	// per-screen request fan-out.
	for i := range results {
		count, err := s.stores.CountByMall(ctx, results[i].Venue.ID)
		if err != nil {
			s.logger.Warn("store count failed", "mall_id", results[i].Venue.ID, "error", err)
			continue
		}
		results[i].Venue.StoreCount = count
	}
	return results, nil
}

// MallStores lists the stores inside a mall, filtered by category tag and
// search text. Stores carry no coordinate, so there is nothing to rank.
func (s *Service) MallStores(ctx context.Context, mallID, category, text string) ([]domain.Store, error) {
	stores, err := s.stores.ListByMall(ctx, mallID)
	if err != nil {
		return nil, fmt.Errorf("fetch stores: %w", err)
	}
	s.ready.Store(true)
	s.metrics.RankCalls.WithLabelValues(ScreenStores).Inc()

	stores = domain.FilterByCategory(stores, category)
	if text != "" {
		kept := make([]domain.Store, 0, len(stores))
		for _, st := range stores {
			if domain.MatchesQuery(st.SearchText(), text) {
				kept = append(kept, st)
			}
		}
		stores = kept
	}
	return stores, nil
}

// NearbyPromotions ranks active promotions by distance from origin. When
// the query carries no radius, the feed's fixed cutoff applies.
func (s *Service) NearbyPromotions(ctx context.Context, origin domain.GeoPoint, query domain.RankingQuery) ([]domain.RankedResult[domain.Promotion], error) {
	promos, err := s.promos.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch promotions: %w", err)
	}
	s.ready.Store(true)

	// The source already filters on end date; re-check in-process so the
	// feed and the notifier share one definition of "active".
	promos = domain.ActivePromotions(promos)

	if query.RadiusKm == nil {
		cutoff := s.promoRadiusKm
		query.RadiusKm = &cutoff
	}
	return rankVenues(s, ScreenPromotions, origin, promos, query)
}

func rankVenues[T domain.Locatable](s *Service, screen string, origin domain.GeoPoint, venues []T, query domain.RankingQuery) ([]domain.RankedResult[T], error) {
	start := time.Now()
	results, skipped, err := domain.Rank(origin, venues, query)
	if err != nil {
		return nil, err
	}
	s.metrics.RankCalls.WithLabelValues(screen).Inc()
	s.metrics.RankDuration.Observe(time.Since(start).Seconds())
	if skipped > 0 {
		s.metrics.VenuesSkipped.WithLabelValues(screen).Add(float64(skipped))
		s.logger.Warn("venues skipped during ranking", "screen", screen, "skipped", skipped)
	}
	return results, nil
}
