package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdesk/backend/internal/domain/shared"
)

// OrderStatus is the coarse lifecycle label of an order. It is set by a
// manual edit or by the tracking state machine, never degraded automatically.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusReturnRequested OrderStatus = "RETURN_REQUESTED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusReturnRequested:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// Customer holds the contact and billing address details of the order's
// customer. All fields follow the sparse last-writer-wins merge policy.
type Customer struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Destination holds the shipping destination for forward or reverse pickup
type Destination struct {
	Name         string `json:"name,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// ShipmentMeta holds package dimensions and payment details
type ShipmentMeta struct {
	DeadWeight       decimal.Decimal `json:"deadWeight"`
	Length           decimal.Decimal `json:"length"`
	Breadth          decimal.Decimal `json:"breadth"`
	Height           decimal.Decimal `json:"height"`
	VolumetricWeight decimal.Decimal `json:"volumetricWeight"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMode      string          `json:"paymentMode,omitempty"`
	HSNCode          string          `json:"hsnCode,omitempty"`
	InvoiceRef       string          `json:"invoiceRef,omitempty"`
	ServiceTier      string          `json:"serviceTier,omitempty"`
}

// ProductLine is a single product entry on an order.
//
// SourceImageURL comes from the commerce platform or a spreadsheet import;
// UserUploadedImageURL comes from a manual photo upload. Both are monotonic:
// once populated, a merge can never regress them to empty.
type ProductLine struct {
	Name                 string          `json:"name"`
	Quantity             int             `json:"quantity"`
	UnitPrice            decimal.Decimal `json:"unitPrice"`
	Category             string          `json:"category,omitempty"`
	SourceImageURL       string          `json:"sourceImageUrl,omitempty"`
	UserUploadedImageURL string          `json:"userUploadedImageUrl,omitempty"`
}

// Validate checks the line is well formed for a committed order
func (p ProductLine) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return shared.ErrIncompleteOrder.WithMessage("product line name cannot be empty")
	}
	if p.Quantity < 1 {
		return shared.ErrIncompleteOrder.WithMessage(fmt.Sprintf("product %q quantity must be at least 1", p.Name))
	}
	if p.UnitPrice.IsNegative() {
		return shared.ErrIncompleteOrder.WithMessage(fmt.Sprintf("product %q unit price cannot be negative", p.Name))
	}
	return nil
}

// TrackingEvent is one immutable entry in the shipment history
type TrackingEvent struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
	City        string    `json:"city,omitempty"`
	HubName     string    `json:"hubName,omitempty"`
}

// TrackingState carries the carrier-side view of a shipment or return.
// History is append-only; it is never replaced or truncated by a merge.
type TrackingState struct {
	CarrierTrackingID string          `json:"carrierTrackingId,omitempty"`
	CurrentStatus     string          `json:"currentStatus,omitempty"`
	LastUpdated       *time.Time      `json:"lastUpdated,omitempty"`
	History           []TrackingEvent `json:"history,omitempty"`
}

// Tail returns the most recent history entry, or nil when history is empty
func (t *TrackingState) Tail() *TrackingEvent {
	if len(t.History) == 0 {
		return nil
	}
	return &t.History[len(t.History)-1]
}

// Append records a new history entry only when its status differs from the
// current tail. Returns true when an entry was appended. Repeated refreshes
// with an unchanged upstream status therefore leave history untouched.
func (t *TrackingState) Append(ev TrackingEvent) bool {
	if tail := t.Tail(); tail != nil && tail.Status == ev.Status {
		return false
	}
	t.Record(ev)
	return true
}

// Record appends the event unconditionally and advances the current status.
// Lifecycle transitions that must always leave a history entry go through
// here; carrier refreshes use the deduplicating Append instead.
func (t *TrackingState) Record(ev TrackingEvent) {
	t.History = append(t.History, ev)
	t.CurrentStatus = ev.Status
	ts := ev.Timestamp
	t.LastUpdated = &ts
}

// clone returns a deep copy of the tracking state
func (t TrackingState) clone() TrackingState {
	c := t
	if t.LastUpdated != nil {
		lu := *t.LastUpdated
		c.LastUpdated = &lu
	}
	if t.History != nil {
		c.History = make([]TrackingEvent, len(t.History))
		copy(c.History, t.History)
	}
	return c
}

// OrderRecord is the reconciled view of an order, built up from the commerce
// platform sync, spreadsheet imports, manual edits and carrier tracking
// refreshes. The Identifier is always held in normalized form.
type OrderRecord struct {
	Identifier  string        `json:"identifier"`
	ExternalRef string        `json:"externalRef,omitempty"`
	OrderDate   *time.Time    `json:"orderDate,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Status      OrderStatus   `json:"status"`
	Tag         string        `json:"tag,omitempty"`
	Customer    Customer      `json:"customer"`
	Destination Destination   `json:"destination"`
	Products    []ProductLine `json:"products"`
	Shipment    ShipmentMeta  `json:"shipment"`
	Tracking    TrackingState `json:"tracking"`
}

// Clone returns a deep copy of the record. Mutations on the copy never leak
// into a previously returned record.
func (o *OrderRecord) Clone() *OrderRecord {
	c := *o
	if o.OrderDate != nil {
		d := *o.OrderDate
		c.OrderDate = &d
	}
	if o.Products != nil {
		c.Products = make([]ProductLine, len(o.Products))
		copy(c.Products, o.Products)
	}
	c.Tracking = o.Tracking.clone()
	return &c
}

// SearchText returns a lowercase flattened textual projection of the record
// used for free-text substring filtering in list views.
func (o *OrderRecord) SearchText() string {
	var b strings.Builder
	parts := []string{
		o.Identifier, o.ExternalRef, string(o.Status), o.Tag,
		o.Customer.Name, o.Customer.Phone, o.Customer.Email, o.Customer.Address,
		o.Customer.City, o.Customer.State, o.Customer.PostalCode,
		o.Destination.Name, o.Destination.AddressLine1, o.Destination.AddressLine2,
		o.Destination.City, o.Destination.State, o.Destination.PostalCode, o.Destination.Phone,
		o.Shipment.PaymentMode, o.Shipment.HSNCode, o.Shipment.InvoiceRef, o.Shipment.ServiceTier,
		o.Tracking.CarrierTrackingID, o.Tracking.CurrentStatus,
	}
	for _, p := range parts {
		if p != "" {
			b.WriteString(p)
			b.WriteByte(' ')
		}
	}
	for _, line := range o.Products {
		b.WriteString(line.Name)
		b.WriteByte(' ')
		b.WriteString(line.Category)
		b.WriteByte(' ')
	}
	return strings.ToLower(b.String())
}

// ReturnLine selects a product line, by position, for a return request
type ReturnLine struct {
	ProductIndex int `json:"productIndex"`
	// Quantity requested for return; 0 defaults to 1
	Quantity int `json:"quantity"`
}

// ValidateReturnLines checks a return request against the record: the order
// must not already be in RETURN_REQUESTED, the selection must be non-empty,
// and each requested quantity must not exceed the ordered quantity.
func (o *OrderRecord) ValidateReturnLines(lines []ReturnLine) error {
	if o.Status == OrderStatusReturnRequested {
		return shared.ErrInvalidState.WithMessage(fmt.Sprintf("return already requested for order %s", o.Identifier))
	}
	if len(lines) == 0 {
		return shared.ErrNoProductsSelected
	}
	for _, line := range lines {
		if line.ProductIndex < 0 || line.ProductIndex >= len(o.Products) {
			return shared.ErrNoProductsSelected.WithMessage(fmt.Sprintf("product index %d out of range", line.ProductIndex))
		}
		qty := line.Quantity
		if qty == 0 {
			qty = 1
		}
		product := o.Products[line.ProductIndex]
		if qty < 1 || qty > product.Quantity {
			return shared.ErrNoProductsSelected.WithMessage(
				fmt.Sprintf("return quantity %d exceeds ordered quantity %d for %q", qty, product.Quantity, product.Name))
		}
	}
	return nil
}

// MarkReturnRequested applies a successful carrier return creation: the
// coarse status moves to RETURN_REQUESTED, the tracking id is recorded and
// exactly one "Return Initiated" event is appended. The append is
// unconditional: a repeat return on a history already tailed by
// "Return Initiated" still gets its own entry with the fresh timestamp.
func (o *OrderRecord) MarkReturnRequested(carrierTrackingID string, now time.Time) {
	o.Status = OrderStatusReturnRequested
	o.Tracking.CarrierTrackingID = carrierTrackingID
	o.Tracking.Record(TrackingEvent{
		Status:      "Return Initiated",
		Timestamp:   now,
		Description: "Return pickup requested with carrier",
	})
	o.UpdatedAt = now
}

// ApplyTrackingUpdate folds a carrier status update into the tracking state.
// The coarse OrderStatus is deliberately left untouched: refreshing tracking
// never advances or regresses the order lifecycle label. Returns true when
// the update changed the record.
func (o *OrderRecord) ApplyTrackingUpdate(ev TrackingEvent, now time.Time) bool {
	if !o.Tracking.Append(ev) {
		return false
	}
	o.UpdatedAt = now
	return true
}
