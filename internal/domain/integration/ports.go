package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdesk/backend/internal/domain/order"
)

// CommerceSource is the external commerce platform collaborator. It returns
// a full or incremental snapshot of remote orders as unvalidated partials;
// the reconciliation store folds them in via upsertBatch.
type CommerceSource interface {
	FetchRemoteOrders(ctx context.Context) ([]order.RawOrder, error)
}

// ReturnProduct is one product line on a carrier return request
type ReturnProduct struct {
	Name             string          `json:"name"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	Category         string          `json:"category,omitempty"`
	UploadedImageURL string          `json:"uploadedImageUrl,omitempty"`
}

// ReturnPayload is the reverse-pickup request sent to the carrier
type ReturnPayload struct {
	OrderID          string            `json:"orderId"`
	ExternalRef      string            `json:"externalRef,omitempty"`
	CustomerName     string            `json:"customerName"`
	CustomerPhone    string            `json:"customerPhone"`
	CustomerEmail    string            `json:"customerEmail,omitempty"`
	CustomerAddress  string            `json:"customerAddress"`
	City             string            `json:"city,omitempty"`
	State            string            `json:"state,omitempty"`
	PostalCode       string            `json:"postalCode,omitempty"`
	Products         []ReturnProduct   `json:"products"`
	DeadWeight       decimal.Decimal   `json:"deadWeight"`
	Length           decimal.Decimal   `json:"length"`
	Breadth          decimal.Decimal   `json:"breadth"`
	Height           decimal.Decimal   `json:"height"`
	VolumetricWeight decimal.Decimal   `json:"volumetricWeight"`
	Amount           decimal.Decimal   `json:"amount"`
	PaymentMode      string            `json:"paymentMode,omitempty"`
	HSNCode          string            `json:"hsnCode,omitempty"`
	InvoiceRef       string            `json:"invoiceRef,omitempty"`
	Destination      order.Destination `json:"destination"`
}

// TrackingUpdate is the carrier's current view of a shipment
type TrackingUpdate struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
	City        string    `json:"city,omitempty"`
	HubName     string    `json:"hubName,omitempty"`
}

// Event converts the update into a domain tracking event
func (u TrackingUpdate) Event() order.TrackingEvent {
	return order.TrackingEvent{
		Status:      u.Status,
		Timestamp:   u.Timestamp,
		Description: u.Description,
		City:        u.City,
		HubName:     u.HubName,
	}
}

// Carrier is the external shipment/return-tracking collaborator. All calls
// may block on network I/O and honor context cancellation; the engine treats
// failures as recoverable and never retries on its own.
type Carrier interface {
	// CreateReturn registers a reverse pickup and returns the carrier
	// tracking id on success.
	CreateReturn(ctx context.Context, payload ReturnPayload) (string, error)

	// GetStatus fetches the current status for a single tracking id.
	GetStatus(ctx context.Context, trackingID string) (TrackingUpdate, error)

	// GetStatusBatch fetches statuses for multiple tracking ids. The result
	// map contains an entry per id that could be resolved; ids missing from
	// the map failed individually and must not abort the others.
	GetStatusBatch(ctx context.Context, trackingIDs []string) (map[string]TrackingUpdate, error)
}
