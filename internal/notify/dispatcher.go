package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/luxecraft/atelier/internal/cache"
	"github.com/luxecraft/atelier/internal/models"
)

const (
	dispatchTimeout = 30 * time.Second
	dedupeTTL       = 24 * time.Hour
)

// Dispatcher fans an order event out to the configured channel providers.
// Dispatch is fire-and-forget: the lifecycle mutation has already committed
// by the time it runs, and delivery failures are logged, never propagated.
// A cache entry per order and event keeps dispatch at-most-once-attempted.
type Dispatcher struct {
	providers []Provider
	cache     cache.Provider
	logger    *slog.Logger
}

func NewDispatcher(providers []Provider, cacheProvider cache.Provider, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		providers: providers,
		cache:     cacheProvider,
		logger:    logger,
	}
}

// Dispatch returns immediately; delivery happens on a detached context so a
// cancelled request cannot abort it.
func (d *Dispatcher) Dispatch(ctx context.Context, order *models.Order, event Event) {
	if d == nil || order == nil || len(d.providers) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
		defer cancel()
		d.deliver(ctx, order, event)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, order *models.Order, event Event) {
	logger := d.logger.With("order_number", order.Number, "event", string(event))

	if d.alreadyAttempted(ctx, order, event) {
		logger.Debug("notification already attempted, skipping")
		return
	}

	msg, err := RenderMessage(order, event)
	if err != nil {
		logger.Error("failed to render notification", "error", err)
		return
	}

	for _, provider := range d.providers {
		if err := provider.Send(ctx, msg); err != nil {
			logger.Warn("notification delivery failed", "channel", provider.Channel(), "error", err)
			continue
		}
		logger.Info("notification delivered", "channel", provider.Channel())
	}
}

// alreadyAttempted marks the order+event pair attempted and reports whether a
// previous attempt existed. Cache errors fail open: better a duplicate
// message than a silently dropped one.
func (d *Dispatcher) alreadyAttempted(ctx context.Context, order *models.Order, event Event) bool {
	if d.cache == nil {
		return false
	}

	key := cache.NotificationKey(order.ID.String(), string(event), string(order.Status))
	_, err := d.cache.Get(ctx, key)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrNotFound) {
		d.logger.Warn("notification dedupe lookup failed", "error", err)
	}

	if err := d.cache.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), dedupeTTL); err != nil {
		d.logger.Warn("failed to record notification attempt", "error", err)
	}
	return false
}
