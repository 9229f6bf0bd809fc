package tracking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	orderapp "github.com/orderdesk/backend/internal/application/order"
	"github.com/orderdesk/backend/internal/domain/integration"
	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/cache"
)

// errNoTrackingID guards refresh operations on orders without a carrier id
var errNoTrackingID = shared.ErrTrackingUnavailable.WithMessage("order has no carrier tracking id")

// errNoCarrier is returned when no carrier adapter is configured
var errNoCarrier = shared.NewDomainError("CARRIER_NOT_CONFIGURED", "No shipment carrier is configured")

// Service drives the tracking state machine: return initiation, single-order
// refresh and batch refresh. All store mutations go through the reconcile
// store's per-identifier lock; carrier calls happen outside the lock since
// they are the only blocking operations.
type Service struct {
	store   *orderapp.ReconcileStore
	carrier integration.Carrier
	cache   cache.StatusCache
	logger  *zap.Logger

	cacheTTL time.Duration
	now      func() time.Time
}

// Option customizes a tracking Service
type Option func(*Service)

// WithStatusCache enables the carrier status cache with the given TTL
func WithStatusCache(c cache.StatusCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithClock overrides the event clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a tracking service
func NewService(store *orderapp.ReconcileStore, carrier integration.Carrier, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		carrier: carrier,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReturn initiates a reverse pickup for the selected product lines.
// Guards are checked before the carrier is contacted; on carrier success the
// order moves to RETURN_REQUESTED, records the tracking id and appends
// exactly one "Return Initiated" history event. A carrier failure surfaces
// as ErrCarrierRejected and leaves the order untouched.
func (s *Service) RequestReturn(ctx context.Context, identifier string, lines []order.ReturnLine) (*order.OrderRecord, error) {
	if s.carrier == nil {
		return nil, errNoCarrier
	}

	rec, err := s.store.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if err := rec.ValidateReturnLines(lines); err != nil {
		return nil, err
	}

	trackingID, err := s.carrier.CreateReturn(ctx, buildReturnPayload(rec, lines))
	if err != nil {
		s.logger.Warn("carrier rejected return",
			zap.String("identifier", rec.Identifier),
			zap.Error(err),
		)
		return nil, shared.ErrCarrierRejected.WithMessage(fmt.Sprintf("carrier rejected return for order %s: %v", rec.Identifier, err))
	}

	updated, err := s.store.Mutate(ctx, rec.Identifier, func(o *order.OrderRecord) (bool, error) {
		// Re-validate under the lock; a concurrent return may have won.
		if err := o.ValidateReturnLines(lines); err != nil {
			return false, err
		}
		o.MarkReturnRequested(trackingID, s.now())
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("return initiated",
		zap.String("identifier", updated.Identifier),
		zap.String("tracking_id", trackingID),
	)
	return updated, nil
}

// RefreshTracking fetches the carrier's current status for one order and
// folds it into the tracking state. The append is idempotent: an unchanged
// upstream status does not grow history or touch updatedAt. The coarse
// OrderStatus is never modified by a refresh. Carrier failures surface as
// ErrTrackingUnavailable with the order left untouched.
func (s *Service) RefreshTracking(ctx context.Context, identifier string) (*order.OrderRecord, error) {
	rec, err := s.store.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if rec.Tracking.CarrierTrackingID == "" {
		return nil, errNoTrackingID
	}

	trackingID := rec.Tracking.CarrierTrackingID
	update, err := s.fetchStatus(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	return s.store.Mutate(ctx, rec.Identifier, func(o *order.OrderRecord) (bool, error) {
		// A concurrent return may have swapped the shipment under us; the
		// fetched status belongs to the old tracking id and must not fold
		// into the new shipment's history.
		if o.Tracking.CarrierTrackingID != trackingID {
			return false, nil
		}
		return o.ApplyTrackingUpdate(update.Event(), s.now()), nil
	})
}

// BatchReport is the partial-success result of a batch refresh
type BatchReport struct {
	// Updated lists identifiers whose refresh succeeded (including no-op
	// refreshes where the upstream status was unchanged)
	Updated []string
	// Failed maps identifiers to their per-order error
	Failed map[string]error
}

// RefreshTrackingBatch refreshes tracking for many orders at once. The
// carrier is consulted once per distinct tracking id; a failure for one id
// is recorded per affected order and does not abort the others.
func (s *Service) RefreshTrackingBatch(ctx context.Context, identifiers []string) (*BatchReport, error) {
	report := &BatchReport{Failed: make(map[string]error)}

	// Resolve records first so per-order failures are attributable.
	type target struct {
		identifier string
		trackingID string
	}
	targets := make([]target, 0, len(identifiers))
	distinct := make(map[string]struct{})
	seen := make(map[string]struct{})
	for _, raw := range identifiers {
		id, err := order.NormalizeIdentifier(raw)
		if err != nil {
			report.Failed[raw] = err
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		rec, err := s.store.Get(ctx, id)
		if err != nil {
			report.Failed[id] = err
			continue
		}
		if rec.Tracking.CarrierTrackingID == "" {
			report.Failed[id] = errNoTrackingID
			continue
		}
		targets = append(targets, target{identifier: id, trackingID: rec.Tracking.CarrierTrackingID})
		distinct[rec.Tracking.CarrierTrackingID] = struct{}{}
	}

	trackingIDs := make([]string, 0, len(distinct))
	for tid := range distinct {
		trackingIDs = append(trackingIDs, tid)
	}

	updates := s.fetchStatusBatch(ctx, trackingIDs)

	for _, t := range targets {
		update, ok := updates[t.trackingID]
		if !ok {
			report.Failed[t.identifier] = shared.ErrTrackingUnavailable.WithMessage("carrier returned no status for tracking id " + t.trackingID)
			continue
		}
		_, err := s.store.Mutate(ctx, t.identifier, func(o *order.OrderRecord) (bool, error) {
			if o.Tracking.CarrierTrackingID != t.trackingID {
				return false, nil
			}
			return o.ApplyTrackingUpdate(update.Event(), s.now()), nil
		})
		if err != nil {
			report.Failed[t.identifier] = err
			continue
		}
		report.Updated = append(report.Updated, t.identifier)
	}

	s.logger.Info("batch tracking refresh finished",
		zap.Int("requested", len(identifiers)),
		zap.Int("updated", len(report.Updated)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// fetchStatus resolves one tracking id, consulting the status cache first
func (s *Service) fetchStatus(ctx context.Context, trackingID string) (integration.TrackingUpdate, error) {
	if s.carrier == nil {
		return integration.TrackingUpdate{}, errNoCarrier
	}
	if s.cache != nil {
		if update, ok, err := s.cache.Get(ctx, trackingID); err == nil && ok {
			return update, nil
		}
	}

	update, err := s.carrier.GetStatus(ctx, trackingID)
	if err != nil {
		return integration.TrackingUpdate{}, shared.ErrTrackingUnavailable.WithMessage(fmt.Sprintf("carrier status fetch failed for %s: %v", trackingID, err))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, trackingID, update, s.cacheTTL); err != nil {
			s.logger.Warn("status cache write failed", zap.String("tracking_id", trackingID), zap.Error(err))
		}
	}
	return update, nil
}

// fetchStatusBatch resolves many tracking ids through the carrier's batch
// endpoint, serving cache hits locally. Ids missing from the result failed
// individually.
func (s *Service) fetchStatusBatch(ctx context.Context, trackingIDs []string) map[string]integration.TrackingUpdate {
	results := make(map[string]integration.TrackingUpdate, len(trackingIDs))
	if len(trackingIDs) == 0 || s.carrier == nil {
		return results
	}

	remaining := make([]string, 0, len(trackingIDs))
	if s.cache != nil {
		for _, tid := range trackingIDs {
			if update, ok, err := s.cache.Get(ctx, tid); err == nil && ok {
				results[tid] = update
				continue
			}
			remaining = append(remaining, tid)
		}
	} else {
		remaining = trackingIDs
	}
	if len(remaining) == 0 {
		return results
	}

	fetched, err := s.carrier.GetStatusBatch(ctx, remaining)
	if err != nil {
		s.logger.Warn("carrier batch status fetch failed", zap.Int("tracking_ids", len(remaining)), zap.Error(err))
		return results
	}
	for tid, update := range fetched {
		results[tid] = update
		if s.cache != nil {
			if cerr := s.cache.Set(ctx, tid, update, s.cacheTTL); cerr != nil {
				s.logger.Warn("status cache write failed", zap.String("tracking_id", tid), zap.Error(cerr))
			}
		}
	}
	return results
}

// buildReturnPayload assembles the carrier request from the record and the
// selected lines, defaulting a zero return quantity to 1.
func buildReturnPayload(rec *order.OrderRecord, lines []order.ReturnLine) integration.ReturnPayload {
	products := make([]integration.ReturnProduct, 0, len(lines))
	for _, line := range lines {
		product := rec.Products[line.ProductIndex]
		qty := line.Quantity
		if qty == 0 {
			qty = 1
		}
		products = append(products, integration.ReturnProduct{
			Name:             product.Name,
			Quantity:         qty,
			UnitPrice:        product.UnitPrice,
			Category:         product.Category,
			UploadedImageURL: product.UserUploadedImageURL,
		})
	}

	return integration.ReturnPayload{
		OrderID:          rec.Identifier,
		ExternalRef:      rec.ExternalRef,
		CustomerName:     rec.Customer.Name,
		CustomerPhone:    rec.Customer.Phone,
		CustomerEmail:    rec.Customer.Email,
		CustomerAddress:  rec.Customer.Address,
		City:             rec.Customer.City,
		State:            rec.Customer.State,
		PostalCode:       rec.Customer.PostalCode,
		Products:         products,
		DeadWeight:       rec.Shipment.DeadWeight,
		Length:           rec.Shipment.Length,
		Breadth:          rec.Shipment.Breadth,
		Height:           rec.Shipment.Height,
		VolumetricWeight: rec.Shipment.VolumetricWeight,
		Amount:           rec.Shipment.Amount,
		PaymentMode:      rec.Shipment.PaymentMode,
		HSNCode:          rec.Shipment.HSNCode,
		InvoiceRef:       rec.Shipment.InvoiceRef,
		Destination:      rec.Destination,
	}
}
