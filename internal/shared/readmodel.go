package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Read views that write operations may invalidate. Each mutating service
// declares the views its writes affect instead of clients guessing which
// caches to bust.
const (
	ViewStocks    = "stocks"
	ViewMovements = "movements"
	ViewOrders    = "orders"
	ViewProducts  = "products"
	ViewSites     = "sites"
	ViewSuppliers = "suppliers"
	ViewPacks     = "packs"
	ViewDashboard = "dashboard"
)

const invalidationChannel = "readmodel.invalidate"

// Invalidator bumps per-view cache versions and announces invalidations
// on a Redis channel for push-based consumers.
type Invalidator struct {
	client *redis.Client
	logger *slog.Logger
}

// NewInvalidator constructs an Invalidator.
func NewInvalidator(client *redis.Client, logger *slog.Logger) *Invalidator {
	return &Invalidator{client: client, logger: logger}
}

func versionKey(view string) string {
	return fmt.Sprintf("readmodel:%s:version", view)
}

// Version returns the current version of a read view, initialising to 1.
func (i *Invalidator) Version(ctx context.Context, view string) (int64, error) {
	if i == nil || i.client == nil {
		return 1, nil
	}
	ver, err := i.client.Get(ctx, versionKey(view)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := i.client.Set(ctx, versionKey(view), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Bump invalidates the given views. Failures are logged, never fatal:
// a stale cache entry expires on its own TTL.
func (i *Invalidator) Bump(ctx context.Context, views ...string) {
	if i == nil || i.client == nil {
		return
	}
	for _, view := range views {
		if err := i.client.Incr(ctx, versionKey(view)).Err(); err != nil {
			if i.logger != nil {
				i.logger.Warn("readmodel bump failed", slog.String("view", view), slog.Any("error", err))
			}
			continue
		}
		if err := i.client.Publish(ctx, invalidationChannel, view).Err(); err != nil && i.logger != nil {
			i.logger.Warn("readmodel publish failed", slog.String("view", view), slog.Any("error", err))
		}
	}
}

// Subscribe returns a pubsub subscription delivering invalidated view names.
func (i *Invalidator) Subscribe(ctx context.Context) *redis.PubSub {
	if i == nil || i.client == nil {
		return nil
	}
	return i.client.Subscribe(ctx, invalidationChannel)
}
