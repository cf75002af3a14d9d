package refresher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"insider-watch/internal/snapshot"
	"insider-watch/observability"
	"insider-watch/services"
)

// DefaultInterval is the period between scheduled refreshes
const DefaultInterval = 60 * time.Second

// DefaultLimit is the number of most recent transactions requested per refresh
const DefaultLimit = 100

// Refresher polls the insider provider and publishes filtered snapshots to a store.
//
// Ticks do not wait for each other: when the provider is slower than the interval,
// refreshes overlap and the last one to complete wins.
type Refresher struct {
	provider services.InsiderProvider
	store    *snapshot.Store
	interval time.Duration
	limit    int
	now      func() time.Time

	wg sync.WaitGroup
}

// New creates a refresher. Zero interval or limit use the defaults.
func New(provider services.InsiderProvider, store *snapshot.Store, interval time.Duration, limit int) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Refresher{
		provider: provider,
		store:    store,
		interval: interval,
		limit:    limit,
		now:      time.Now,
	}
}

// Interval returns the configured refresh period
func (r *Refresher) Interval() time.Duration {
	return r.interval
}

// Refresh fetches once and, on success, swaps in a new snapshot. On failure the
// current snapshot is left untouched and the error is returned.
func (r *Refresher) Refresh(ctx context.Context) error {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	ctx, span := observability.StartSpan(ctx, "refresher.Refresh", attribute.Int("limit", r.limit))

	raw, err := r.provider.GetInsiderTransactions(ctx, r.limit)
	if err != nil {
		err = fmt.Errorf("failed to refresh insider transactions: %w", err)
		observability.EndSpan(span, err)
		metrics.RecordRefreshFailure(timer.Duration())
		observability.WithContext(ctx).Warn("refresh failed, keeping previous snapshot",
			"error", err,
			"status", services.HTTPStatus(err),
			"snapshot_id", r.store.Load().ID.String())
		return err
	}

	next := snapshot.New(raw, r.now())
	r.store.Swap(next)

	span.SetAttributes(
		attribute.Int("received", next.Received),
		attribute.Int("kept", next.Len()),
		attribute.String("snapshot_id", next.ID.String()))
	observability.EndSpan(span, nil)

	metrics.RecordRefreshSuccess(timer.Duration(), next.Len(), next.Received, next.FetchedAt)
	observability.WithRefresh(next.ID).Info("snapshot refreshed",
		"received", next.Received,
		"kept", next.Len())

	return nil
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
// Each refresh runs in its own goroutine.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	observability.Info("refresher started", "interval", r.interval.String(), "limit", r.limit)

	r.spawn(ctx)
	for {
		select {
		case <-ctx.Done():
			observability.Info("refresher stopped")
			return
		case <-ticker.C:
			r.spawn(ctx)
		}
	}
}

func (r *Refresher) spawn(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.Refresh(ctx)
	}()
}

// Wait blocks until all in-flight refreshes have returned
func (r *Refresher) Wait() {
	r.wg.Wait()
}
