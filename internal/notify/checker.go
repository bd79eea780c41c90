package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/plazafinder/mall-radar/internal/config"
	"github.com/plazafinder/mall-radar/internal/domain"
	"github.com/plazafinder/mall-radar/internal/observability"
)

// SubscriberSource lists users eligible for proximity checks.
type SubscriberSource interface {
	ListSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// MallSource lists the malls proximity is checked against.
type MallSource interface {
	ListMalls(ctx context.Context) ([]domain.Mall, error)
}

// Checker runs one proximity sweep per invocation.
type Checker struct {
	subscribers     SubscriberSource
	malls           MallSource
	dispatcher      Dispatcher
	cooldown        *CooldownIndex
	logger          *slog.Logger
	metrics         *observability.Metrics
	defaultRadiusKm float64
	clock           clockwork.Clock
	running         atomic.Bool
}

// NewChecker creates a Checker. defaultRadiusKm applies when a subscriber
// never chose a radius; chosen radii are clamped into the supported range.
func NewChecker(subs SubscriberSource, malls MallSource, d Dispatcher, cooldown *CooldownIndex, logger *slog.Logger, metrics *observability.Metrics, defaultRadiusKm float64, clock clockwork.Clock) *Checker {
	return &Checker{
		subscribers:     subs,
		malls:           malls,
		dispatcher:      d,
		cooldown:        cooldown,
		logger:          logger,
		metrics:         metrics,
		defaultRadiusKm: defaultRadiusKm,
		clock:           clock,
	}
}

// RunCycle fetches subscribers and malls once, then checks each
// subscriber against the mall set. A failure for one subscriber skips
// that subscriber; a failed fetch fails the whole cycle. Cycles never
// overlap: if the previous one is still running this call is a no-op, so
// a sweep that outlasts the schedule interval cannot race the cooldown
// bookkeeping.
func (c *Checker) RunCycle(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Info("previous proximity cycle still running, skipping")
		return nil
	}
	defer c.running.Store(false)

	start := time.Now()

	subs, err := c.subscribers.ListSubscribers(ctx)
	if err != nil {
		c.metrics.NotifyCycleErrors.Inc()
		return fmt.Errorf("list subscribers: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	malls, err := c.malls.ListMalls(ctx)
	if err != nil {
		c.metrics.NotifyCycleErrors.Inc()
		return fmt.Errorf("list malls: %w", err)
	}

	published := 0
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := c.checkSubscriber(ctx, sub, malls)
		if err != nil {
			c.logger.Warn("subscriber check failed", "user_id", sub.UserID, "error", err)
			c.metrics.NotifyCycleErrors.Inc()
			continue
		}
		published += n
	}

	c.cooldown.Prune()
	c.metrics.NotifyCycleTime.Observe(time.Since(start).Seconds())
	c.logger.Info("proximity cycle complete",
		"subscribers", len(subs), "malls", len(malls), "alerts", published)
	return nil
}

func (c *Checker) checkSubscriber(ctx context.Context, sub domain.Subscriber, malls []domain.Mall) (int, error) {
	radius := config.ClampNotifyRadius(sub.RadiusKm, c.defaultRadiusKm)
	results, _, err := domain.Rank(sub.Location, malls, domain.RankingQuery{RadiusKm: &radius})
	if err != nil {
		return 0, fmt.Errorf("rank malls: %w", err)
	}

	published := 0
	for _, r := range results {
		if !c.cooldown.Allowed(sub.UserID, r.Venue.ID) {
			c.metrics.AlertsSuppressed.Inc()
			continue
		}
		alert := ProximityAlert{
			UserID:     sub.UserID,
			VenueID:    r.Venue.ID,
			VenueName:  r.Venue.Name,
			DistanceKm: r.DistanceKm,
			At:         c.clock.Now(),
		}
		if err := c.dispatcher.Dispatch(ctx, alert); err != nil {
			return published, fmt.Errorf("dispatch alert for %s: %w", r.Venue.ID, err)
		}
		c.cooldown.Mark(sub.UserID, r.Venue.ID)
		c.metrics.AlertsPublished.Inc()
		published++
	}
	return published, nil
}
