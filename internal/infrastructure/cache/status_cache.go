package cache

import (
	"context"
	"time"

	"github.com/orderdesk/backend/internal/domain/integration"
)

// StatusCache caches carrier tracking statuses for a short TTL so bursts of
// refresh requests for the same shipment don't re-hit the carrier API.
// A miss is not an error; Get reports presence through its second return.
type StatusCache interface {
	Get(ctx context.Context, trackingID string) (integration.TrackingUpdate, bool, error)
	Set(ctx context.Context, trackingID string, update integration.TrackingUpdate, ttl time.Duration) error
	Close() error
}
