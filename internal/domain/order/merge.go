package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdesk/backend/internal/domain/shared"
)

// SourceKind identifies which collaborator produced a RawOrder
type SourceKind string

const (
	SourceCommerceSync      SourceKind = "COMMERCE_SYNC"
	SourceSpreadsheetImport SourceKind = "SPREADSHEET_IMPORT"
	SourceManualEdit        SourceKind = "MANUAL_EDIT"
	SourceReturnRequest     SourceKind = "RETURN_REQUEST"
	SourceClone             SourceKind = "CLONE"
)

// canSetStatus reports whether the source is authoritative for the coarse
// OrderStatus. Commerce syncs and spreadsheet imports are sparse snapshots
// and never overwrite it.
func (s SourceKind) canSetStatus() bool {
	switch s {
	case SourceManualEdit, SourceReturnRequest, SourceClone:
		return true
	}
	return false
}

// CustomerPatch is a sparse update of customer fields. A nil pointer means
// "absent in this snapshot, leave the existing value untouched".
type CustomerPatch struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	PostalCode *string `json:"postalCode,omitempty"`
}

// DestinationPatch is a sparse update of destination fields
type DestinationPatch struct {
	Name         *string `json:"name,omitempty"`
	AddressLine1 *string `json:"addressLine1,omitempty"`
	AddressLine2 *string `json:"addressLine2,omitempty"`
	City         *string `json:"city,omitempty"`
	State        *string `json:"state,omitempty"`
	PostalCode   *string `json:"postalCode,omitempty"`
	Phone        *string `json:"phone,omitempty"`
}

// ShipmentPatch is a sparse update of package and payment fields
type ShipmentPatch struct {
	DeadWeight       *decimal.Decimal `json:"deadWeight,omitempty"`
	Length           *decimal.Decimal `json:"length,omitempty"`
	Breadth          *decimal.Decimal `json:"breadth,omitempty"`
	Height           *decimal.Decimal `json:"height,omitempty"`
	VolumetricWeight *decimal.Decimal `json:"volumetricWeight,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	PaymentMode      *string          `json:"paymentMode,omitempty"`
	HSNCode          *string          `json:"hsnCode,omitempty"`
	InvoiceRef       *string          `json:"invoiceRef,omitempty"`
	ServiceTier      *string          `json:"serviceTier,omitempty"`
}

// RawOrder is an unvalidated, source-specific partial order snapshot.
// Scalar fields use pointers so that "absent" and "present but empty" are
// distinguishable; a nil Products slice means the product list was not
// supplied, while a non-empty slice replaces the list as a unit.
type RawOrder struct {
	Identifier  string           `json:"identifier"`
	ExternalRef *string          `json:"externalRef,omitempty"`
	OrderDate   *time.Time       `json:"orderDate,omitempty"`
	Status      *OrderStatus     `json:"status,omitempty"`
	Tag         *string          `json:"tag,omitempty"`
	Customer    CustomerPatch    `json:"customer"`
	Destination DestinationPatch `json:"destination"`
	Shipment    ShipmentPatch    `json:"shipment"`
	Products    []ProductLine    `json:"products,omitempty"`
}

// Merge resolves an incoming partial snapshot against the existing record
// under the per-field precedence policy:
//
//   - scalar fields: incoming value wins if present, regardless of source
//   - product image URLs: monotonic, never regressed from populated to empty
//   - product list: replaced as a unit with image monotonicity reapplied
//     per matching line
//   - status: only manual edits, return requests and clones may set it
//   - tracking history: never touched by merge, only appended by the
//     tracking state machine
//   - updatedAt: always set to the merge time
//
// When existing is nil the incoming snapshot must carry enough to commit a
// new order (identifier, customer name/phone/address, non-empty products),
// otherwise ErrIncompleteOrder is returned. Merge is pure: it operates on
// copies and a failed merge leaves its inputs untouched.
func Merge(existing *OrderRecord, incoming RawOrder, source SourceKind, now time.Time) (*OrderRecord, error) {
	if existing == nil {
		return createFrom(incoming, source, now)
	}

	merged := existing.Clone()

	applyString(&merged.ExternalRef, incoming.ExternalRef)
	if incoming.OrderDate != nil {
		d := *incoming.OrderDate
		merged.OrderDate = &d
	}
	applyString(&merged.Tag, incoming.Tag)

	applyString(&merged.Customer.Name, incoming.Customer.Name)
	applyString(&merged.Customer.Phone, incoming.Customer.Phone)
	applyString(&merged.Customer.Email, incoming.Customer.Email)
	applyString(&merged.Customer.Address, incoming.Customer.Address)
	applyString(&merged.Customer.City, incoming.Customer.City)
	applyString(&merged.Customer.State, incoming.Customer.State)
	applyString(&merged.Customer.PostalCode, incoming.Customer.PostalCode)

	applyString(&merged.Destination.Name, incoming.Destination.Name)
	applyString(&merged.Destination.AddressLine1, incoming.Destination.AddressLine1)
	applyString(&merged.Destination.AddressLine2, incoming.Destination.AddressLine2)
	applyString(&merged.Destination.City, incoming.Destination.City)
	applyString(&merged.Destination.State, incoming.Destination.State)
	applyString(&merged.Destination.PostalCode, incoming.Destination.PostalCode)
	applyString(&merged.Destination.Phone, incoming.Destination.Phone)

	applyDecimal(&merged.Shipment.DeadWeight, incoming.Shipment.DeadWeight)
	applyDecimal(&merged.Shipment.Length, incoming.Shipment.Length)
	applyDecimal(&merged.Shipment.Breadth, incoming.Shipment.Breadth)
	applyDecimal(&merged.Shipment.Height, incoming.Shipment.Height)
	applyDecimal(&merged.Shipment.VolumetricWeight, incoming.Shipment.VolumetricWeight)
	applyDecimal(&merged.Shipment.Amount, incoming.Shipment.Amount)
	applyString(&merged.Shipment.PaymentMode, incoming.Shipment.PaymentMode)
	applyString(&merged.Shipment.HSNCode, incoming.Shipment.HSNCode)
	applyString(&merged.Shipment.InvoiceRef, incoming.Shipment.InvoiceRef)
	applyString(&merged.Shipment.ServiceTier, incoming.Shipment.ServiceTier)

	if incoming.Status != nil && source.canSetStatus() {
		if !incoming.Status.IsValid() {
			return nil, shared.ErrInvalidState.WithMessage("unknown order status " + string(*incoming.Status))
		}
		merged.Status = *incoming.Status
	}

	if len(incoming.Products) > 0 {
		replacement, err := mergeProducts(existing.Products, incoming.Products)
		if err != nil {
			return nil, err
		}
		merged.Products = replacement
	}

	merged.UpdatedAt = now
	return merged, nil
}

// createFrom builds a fresh record from the first snapshot of an identifier
func createFrom(incoming RawOrder, source SourceKind, now time.Time) (*OrderRecord, error) {
	if strings.TrimSpace(incoming.Identifier) == "" {
		return nil, shared.ErrInvalidIdentifier
	}
	if !present(incoming.Customer.Name) {
		return nil, shared.ErrIncompleteOrder.WithMessage("customer name is required to create an order")
	}
	if !present(incoming.Customer.Phone) {
		return nil, shared.ErrIncompleteOrder.WithMessage("customer phone is required to create an order")
	}
	if !present(incoming.Customer.Address) {
		return nil, shared.ErrIncompleteOrder.WithMessage("customer address is required to create an order")
	}
	if len(incoming.Products) == 0 {
		return nil, shared.ErrIncompleteOrder.WithMessage("an order needs at least one product line")
	}
	for _, line := range incoming.Products {
		if err := line.Validate(); err != nil {
			return nil, err
		}
	}

	rec := &OrderRecord{
		Identifier: incoming.Identifier,
		CreatedAt:  now,
		UpdatedAt:  now,
		Status:     OrderStatusNew,
		Products:   make([]ProductLine, len(incoming.Products)),
	}
	copy(rec.Products, incoming.Products)

	if incoming.Status != nil && source.canSetStatus() {
		if !incoming.Status.IsValid() {
			return nil, shared.ErrInvalidState.WithMessage("unknown order status " + string(*incoming.Status))
		}
		rec.Status = *incoming.Status
	}

	applyString(&rec.ExternalRef, incoming.ExternalRef)
	if incoming.OrderDate != nil {
		d := *incoming.OrderDate
		rec.OrderDate = &d
	}
	applyString(&rec.Tag, incoming.Tag)

	applyString(&rec.Customer.Name, incoming.Customer.Name)
	applyString(&rec.Customer.Phone, incoming.Customer.Phone)
	applyString(&rec.Customer.Email, incoming.Customer.Email)
	applyString(&rec.Customer.Address, incoming.Customer.Address)
	applyString(&rec.Customer.City, incoming.Customer.City)
	applyString(&rec.Customer.State, incoming.Customer.State)
	applyString(&rec.Customer.PostalCode, incoming.Customer.PostalCode)

	applyString(&rec.Destination.Name, incoming.Destination.Name)
	applyString(&rec.Destination.AddressLine1, incoming.Destination.AddressLine1)
	applyString(&rec.Destination.AddressLine2, incoming.Destination.AddressLine2)
	applyString(&rec.Destination.City, incoming.Destination.City)
	applyString(&rec.Destination.State, incoming.Destination.State)
	applyString(&rec.Destination.PostalCode, incoming.Destination.PostalCode)
	applyString(&rec.Destination.Phone, incoming.Destination.Phone)

	applyDecimal(&rec.Shipment.DeadWeight, incoming.Shipment.DeadWeight)
	applyDecimal(&rec.Shipment.Length, incoming.Shipment.Length)
	applyDecimal(&rec.Shipment.Breadth, incoming.Shipment.Breadth)
	applyDecimal(&rec.Shipment.Height, incoming.Shipment.Height)
	applyDecimal(&rec.Shipment.VolumetricWeight, incoming.Shipment.VolumetricWeight)
	applyDecimal(&rec.Shipment.Amount, incoming.Shipment.Amount)
	applyString(&rec.Shipment.PaymentMode, incoming.Shipment.PaymentMode)
	applyString(&rec.Shipment.HSNCode, incoming.Shipment.HSNCode)
	applyString(&rec.Shipment.InvoiceRef, incoming.Shipment.InvoiceRef)
	applyString(&rec.Shipment.ServiceTier, incoming.Shipment.ServiceTier)

	return rec, nil
}

// mergeProducts replaces the product list as a unit while reapplying image
// monotonicity per matching line. Lines are matched positionally when both
// lists have the same length, otherwise by name.
func mergeProducts(existing, incoming []ProductLine) ([]ProductLine, error) {
	replacement := make([]ProductLine, len(incoming))
	copy(replacement, incoming)

	byIndex := len(existing) == len(incoming)
	for i := range replacement {
		if err := replacement[i].Validate(); err != nil {
			return nil, err
		}

		var prior *ProductLine
		if byIndex {
			prior = &existing[i]
		} else {
			for j := range existing {
				if existing[j].Name == replacement[i].Name {
					prior = &existing[j]
					break
				}
			}
		}
		if prior == nil {
			continue
		}
		if replacement[i].SourceImageURL == "" && prior.SourceImageURL != "" {
			replacement[i].SourceImageURL = prior.SourceImageURL
		}
		if replacement[i].UserUploadedImageURL == "" && prior.UserUploadedImageURL != "" {
			replacement[i].UserUploadedImageURL = prior.UserUploadedImageURL
		}
	}
	return replacement, nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func applyDecimal(dst *decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = *src
	}
}

// String helpers used when building RawOrder patches

// Ptr returns a pointer to v; convenience for building sparse patches
func Ptr[T any](v T) *T {
	return &v
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
