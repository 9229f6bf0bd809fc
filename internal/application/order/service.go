package order

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/domain/integration"
	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// OrderService exposes the engine's transport-agnostic order operations:
// manual create/edit/clone/delete, spreadsheet import, commerce sync and the
// recency-ordered list view.
type OrderService struct {
	store    *ReconcileStore
	commerce integration.CommerceSource
	logger   *zap.Logger
}

// NewOrderService creates a new OrderService. The commerce source may be nil
// when no platform is configured; SyncFromCommerceSource then fails fast.
func NewOrderService(store *ReconcileStore, commerce integration.CommerceSource, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:    store,
		commerce: commerce,
		logger:   logger,
	}
}

// CreateOrder commits a manually entered order. First sight of an identifier
// creates the record; an equivalent identifier already in the store merges
// instead, keeping the no-duplicates invariant.
func (s *OrderService) CreateOrder(ctx context.Context, raw order.RawOrder) (*order.OrderRecord, error) {
	return s.store.Upsert(ctx, raw, order.SourceManualEdit)
}

// EditOrder applies a manual edit to an existing order
func (s *OrderService) EditOrder(ctx context.Context, raw order.RawOrder) (*order.OrderRecord, error) {
	return s.store.Update(ctx, raw, order.SourceManualEdit)
}

// DeleteOrder removes an order explicitly
func (s *OrderService) DeleteOrder(ctx context.Context, identifier string) error {
	return s.store.Delete(ctx, identifier)
}

// GetOrder returns a single order by identifier
func (s *OrderService) GetOrder(ctx context.Context, identifier string) (*order.OrderRecord, error) {
	return s.store.Get(ctx, identifier)
}

// CloneOrder copies an existing order under a new identifier derived from
// the source order plus a uniqueness suffix. The clone gets a fresh
// createdAt and an empty tracking state: two live records must never share a
// carrier tracking id.
func (s *OrderService) CloneOrder(ctx context.Context, identifier string) (*order.OrderRecord, error) {
	src, err := s.store.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}

	suffix := strings.ToUpper(uuid.NewString()[:8])
	raw := rawFromRecord(src)
	raw.Identifier = src.Identifier + "-CLONE-" + suffix

	cloned, err := s.store.Upsert(ctx, raw, order.SourceClone)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order cloned",
		zap.String("source", src.Identifier),
		zap.String("clone", cloned.Identifier),
	)
	return cloned, nil
}

// ImportBatch folds a parsed spreadsheet snapshot into the store
func (s *OrderService) ImportBatch(ctx context.Context, raws []order.RawOrder) ([]*order.OrderRecord, error) {
	records, err := s.store.UpsertBatch(ctx, raws, order.SourceSpreadsheetImport)
	if err != nil {
		return records, err
	}
	s.logger.Info("spreadsheet import reconciled", zap.Int("orders", len(records)))
	return records, nil
}

// SyncFromCommerceSource pulls the remote order snapshot from the commerce
// platform and reconciles it. Sources are sparse snapshots, never
// authoritative full sets: an identifier the platform stops reporting is
// left untouched.
func (s *OrderService) SyncFromCommerceSource(ctx context.Context) ([]*order.OrderRecord, error) {
	if s.commerce == nil {
		return nil, errNoCommerceSource
	}

	raws, err := s.commerce.FetchRemoteOrders(ctx)
	if err != nil {
		s.logger.Error("commerce fetch failed", zap.Error(err))
		return nil, err
	}

	records, err := s.store.UpsertBatch(ctx, raws, order.SourceCommerceSync)
	if err != nil {
		return records, err
	}
	s.logger.Info("commerce sync reconciled", zap.Int("orders", len(records)))
	return records, nil
}

// ListFilter narrows the ordered list view
type ListFilter struct {
	// Status keeps only orders with the given coarse status
	Status *order.OrderStatus
	// Search keeps orders whose flattened textual projection contains the
	// term (case-insensitive substring)
	Search string
}

// ListOrders returns the recency-ordered view, optionally filtered
func (s *OrderService) ListOrders(ctx context.Context, filter ListFilter) ([]*order.OrderRecord, error) {
	records, err := s.store.OrderedView(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Status == nil && filter.Search == "" {
		return records, nil
	}

	term := strings.ToLower(filter.Search)
	filtered := make([]*order.OrderRecord, 0, len(records))
	for _, rec := range records {
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if term != "" && !strings.Contains(rec.SearchText(), term) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered, nil
}

// CountByStatus returns the number of orders per coarse status, feeding the
// dashboard status tabs.
func (s *OrderService) CountByStatus(ctx context.Context) (map[order.OrderStatus]int, error) {
	records, err := s.store.OrderedView(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[order.OrderStatus]int)
	for _, rec := range records {
		counts[rec.Status]++
	}
	return counts, nil
}

// rawFromRecord projects a committed record back into a full RawOrder
// snapshot, used by clone. Tracking state is deliberately not part of a
// RawOrder and so is not carried over.
func rawFromRecord(rec *order.OrderRecord) order.RawOrder {
	raw := order.RawOrder{
		Identifier: rec.Identifier,
		Status:     order.Ptr(rec.Status),
		Customer: order.CustomerPatch{
			Name:       order.Ptr(rec.Customer.Name),
			Phone:      order.Ptr(rec.Customer.Phone),
			Email:      order.Ptr(rec.Customer.Email),
			Address:    order.Ptr(rec.Customer.Address),
			City:       order.Ptr(rec.Customer.City),
			State:      order.Ptr(rec.Customer.State),
			PostalCode: order.Ptr(rec.Customer.PostalCode),
		},
		Destination: order.DestinationPatch{
			Name:         order.Ptr(rec.Destination.Name),
			AddressLine1: order.Ptr(rec.Destination.AddressLine1),
			AddressLine2: order.Ptr(rec.Destination.AddressLine2),
			City:         order.Ptr(rec.Destination.City),
			State:        order.Ptr(rec.Destination.State),
			PostalCode:   order.Ptr(rec.Destination.PostalCode),
			Phone:        order.Ptr(rec.Destination.Phone),
		},
		Shipment: order.ShipmentPatch{
			DeadWeight:       order.Ptr(rec.Shipment.DeadWeight),
			Length:           order.Ptr(rec.Shipment.Length),
			Breadth:          order.Ptr(rec.Shipment.Breadth),
			Height:           order.Ptr(rec.Shipment.Height),
			VolumetricWeight: order.Ptr(rec.Shipment.VolumetricWeight),
			Amount:           order.Ptr(rec.Shipment.Amount),
			PaymentMode:      order.Ptr(rec.Shipment.PaymentMode),
			HSNCode:          order.Ptr(rec.Shipment.HSNCode),
			InvoiceRef:       order.Ptr(rec.Shipment.InvoiceRef),
			ServiceTier:      order.Ptr(rec.Shipment.ServiceTier),
		},
		Products: make([]order.ProductLine, len(rec.Products)),
	}
	copy(raw.Products, rec.Products)
	if rec.ExternalRef != "" {
		raw.ExternalRef = order.Ptr(rec.ExternalRef)
	}
	if rec.OrderDate != nil {
		raw.OrderDate = order.Ptr(*rec.OrderDate)
	}
	if rec.Tag != "" {
		raw.Tag = order.Ptr(rec.Tag)
	}
	return raw
}

var errNoCommerceSource = shared.NewDomainError("COMMERCE_NOT_CONFIGURED", "No commerce platform is configured for sync")
