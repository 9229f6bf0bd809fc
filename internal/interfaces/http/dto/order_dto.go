package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdesk/backend/internal/domain/order"
)

// CustomerRequest carries customer fields of a create or edit request.
// Omitted fields stay absent so an edit leaves existing values untouched.
type CustomerRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=1,max=200"`
	Phone      *string `json:"phone" binding:"omitempty,max=50"`
	Email      *string `json:"email" binding:"omitempty,email,max=200"`
	Address    *string `json:"address" binding:"omitempty,max=500"`
	City       *string `json:"city" binding:"omitempty,max=100"`
	State      *string `json:"state" binding:"omitempty,max=100"`
	PostalCode *string `json:"postal_code" binding:"omitempty,max=20"`
}

// DestinationRequest carries destination fields of a create or edit request
type DestinationRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=200"`
	AddressLine1 *string `json:"address_line1" binding:"omitempty,max=500"`
	AddressLine2 *string `json:"address_line2" binding:"omitempty,max=500"`
	City         *string `json:"city" binding:"omitempty,max=100"`
	State        *string `json:"state" binding:"omitempty,max=100"`
	PostalCode   *string `json:"postal_code" binding:"omitempty,max=20"`
	Phone        *string `json:"phone" binding:"omitempty,max=50"`
}

// ShipmentRequest carries package and payment fields of a create or edit
// request
type ShipmentRequest struct {
	DeadWeight       *float64 `json:"dead_weight" binding:"omitempty,min=0"`
	Length           *float64 `json:"length" binding:"omitempty,min=0"`
	Breadth          *float64 `json:"breadth" binding:"omitempty,min=0"`
	Height           *float64 `json:"height" binding:"omitempty,min=0"`
	VolumetricWeight *float64 `json:"volumetric_weight" binding:"omitempty,min=0"`
	Amount           *float64 `json:"amount" binding:"omitempty,min=0"`
	PaymentMode      *string  `json:"payment_mode" binding:"omitempty,max=50"`
	HSNCode          *string  `json:"hsn_code" binding:"omitempty,max=50"`
	InvoiceRef       *string  `json:"invoice_ref" binding:"omitempty,max=100"`
	ServiceTier      *string  `json:"service_tier" binding:"omitempty,max=50"`
}

// ProductLineRequest carries one product line of a create or edit request
type ProductLineRequest struct {
	Name                 string  `json:"name" binding:"required,min=1,max=300"`
	Quantity             int     `json:"quantity" binding:"required,min=1"`
	UnitPrice            float64 `json:"unit_price" binding:"min=0"`
	Category             string  `json:"category" binding:"max=100"`
	SourceImageURL       string  `json:"source_image_url" binding:"omitempty,url"`
	UserUploadedImageURL string  `json:"user_uploaded_image_url" binding:"omitempty,url"`
}

// CreateOrderRequest represents a manual order creation request
type CreateOrderRequest struct {
	Identifier  string               `json:"identifier" binding:"required,min=1,max=100"`
	ExternalRef *string              `json:"external_ref" binding:"omitempty,max=100"`
	OrderDate   *time.Time           `json:"order_date"`
	Tag         *string              `json:"tag" binding:"omitempty,max=100"`
	Customer    CustomerRequest      `json:"customer"`
	Destination DestinationRequest   `json:"destination"`
	Shipment    ShipmentRequest      `json:"shipment"`
	Products    []ProductLineRequest `json:"products" binding:"required,min=1,dive"`
}

// UpdateOrderRequest represents a manual edit. Every field is optional;
// a nil product list leaves the existing lines untouched.
type UpdateOrderRequest struct {
	ExternalRef *string              `json:"external_ref" binding:"omitempty,max=100"`
	OrderDate   *time.Time           `json:"order_date"`
	Status      *string              `json:"status" binding:"omitempty,oneof=NEW PROCESSING SHIPPED DELIVERED RETURN_REQUESTED"`
	Tag         *string              `json:"tag" binding:"omitempty,max=100"`
	Customer    CustomerRequest      `json:"customer"`
	Destination DestinationRequest   `json:"destination"`
	Shipment    ShipmentRequest      `json:"shipment"`
	Products    []ProductLineRequest `json:"products" binding:"omitempty,min=1,dive"`
}

// ReturnLineRequest selects one ordered line for return. A zero quantity
// means one unit.
type ReturnLineRequest struct {
	ProductIndex int `json:"product_index" binding:"min=0"`
	Quantity     int `json:"quantity" binding:"min=0"`
}

// ReturnRequest represents a return initiation request
type ReturnRequest struct {
	Products []ReturnLineRequest `json:"products" binding:"required,min=1,dive"`
}

// BatchRefreshRequest asks for a tracking refresh across many orders
type BatchRefreshRequest struct {
	Identifiers []string `json:"identifiers" binding:"required,min=1,dive,required"`
}

// ListOrdersRequest represents list query parameters
type ListOrdersRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=NEW PROCESSING SHIPPED DELIVERED RETURN_REQUESTED"`
	Search string `form:"search" binding:"max=200"`
}

// ToRawOrder converts a create request into a domain snapshot
func (r CreateOrderRequest) ToRawOrder() order.RawOrder {
	raw := order.RawOrder{
		Identifier:  r.Identifier,
		ExternalRef: r.ExternalRef,
		OrderDate:   r.OrderDate,
		Tag:         r.Tag,
		Customer:    customerPatch(r.Customer),
		Destination: destinationPatch(r.Destination),
		Shipment:    shipmentPatch(r.Shipment),
	}
	raw.Products = productLines(r.Products)
	return raw
}

// ToRawOrder converts an edit request into a domain snapshot for the given
// identifier
func (r UpdateOrderRequest) ToRawOrder(identifier string) order.RawOrder {
	raw := order.RawOrder{
		Identifier:  identifier,
		ExternalRef: r.ExternalRef,
		OrderDate:   r.OrderDate,
		Tag:         r.Tag,
		Customer:    customerPatch(r.Customer),
		Destination: destinationPatch(r.Destination),
		Shipment:    shipmentPatch(r.Shipment),
	}
	if r.Status != nil {
		raw.Status = order.Ptr(order.OrderStatus(*r.Status))
	}
	if r.Products != nil {
		raw.Products = productLines(r.Products)
	}
	return raw
}

// ToReturnLines converts a return request into domain return lines
func (r ReturnRequest) ToReturnLines() []order.ReturnLine {
	lines := make([]order.ReturnLine, len(r.Products))
	for i, p := range r.Products {
		lines[i] = order.ReturnLine{
			ProductIndex: p.ProductIndex,
			Quantity:     p.Quantity,
		}
	}
	return lines
}

func customerPatch(r CustomerRequest) order.CustomerPatch {
	return order.CustomerPatch{
		Name:       r.Name,
		Phone:      r.Phone,
		Email:      r.Email,
		Address:    r.Address,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
	}
}

func destinationPatch(r DestinationRequest) order.DestinationPatch {
	return order.DestinationPatch{
		Name:         r.Name,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		PostalCode:   r.PostalCode,
		Phone:        r.Phone,
	}
}

func shipmentPatch(r ShipmentRequest) order.ShipmentPatch {
	return order.ShipmentPatch{
		DeadWeight:       decimalPtr(r.DeadWeight),
		Length:           decimalPtr(r.Length),
		Breadth:          decimalPtr(r.Breadth),
		Height:           decimalPtr(r.Height),
		VolumetricWeight: decimalPtr(r.VolumetricWeight),
		Amount:           decimalPtr(r.Amount),
		PaymentMode:      r.PaymentMode,
		HSNCode:          r.HSNCode,
		InvoiceRef:       r.InvoiceRef,
		ServiceTier:      r.ServiceTier,
	}
}

func productLines(reqs []ProductLineRequest) []order.ProductLine {
	lines := make([]order.ProductLine, len(reqs))
	for i, p := range reqs {
		lines[i] = order.ProductLine{
			Name:                 p.Name,
			Quantity:             p.Quantity,
			UnitPrice:            decimal.NewFromFloat(p.UnitPrice),
			Category:             p.Category,
			SourceImageURL:       p.SourceImageURL,
			UserUploadedImageURL: p.UserUploadedImageURL,
		}
	}
	return lines
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

// ProductLineResponse represents one product line in responses
type ProductLineResponse struct {
	Name                 string          `json:"name"`
	Quantity             int             `json:"quantity"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	Category             string          `json:"category,omitempty"`
	SourceImageURL       string          `json:"source_image_url,omitempty"`
	UserUploadedImageURL string          `json:"user_uploaded_image_url,omitempty"`
}

// TrackingEventResponse represents one tracking history entry
type TrackingEventResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
	City        string    `json:"city,omitempty"`
	HubName     string    `json:"hub_name,omitempty"`
}

// TrackingResponse represents the tracking state of an order
type TrackingResponse struct {
	CarrierTrackingID string                  `json:"carrier_tracking_id,omitempty"`
	CurrentStatus     string                  `json:"current_status,omitempty"`
	LastUpdated       *time.Time              `json:"last_updated,omitempty"`
	History           []TrackingEventResponse `json:"history"`
}

// OrderResponse represents a full order record
type OrderResponse struct {
	Identifier  string                `json:"identifier"`
	ExternalRef string                `json:"external_ref,omitempty"`
	OrderDate   *time.Time            `json:"order_date,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Status      string                `json:"status"`
	Tag         string                `json:"tag,omitempty"`
	Customer    order.Customer        `json:"customer"`
	Destination order.Destination     `json:"destination"`
	Shipment    order.ShipmentMeta    `json:"shipment"`
	Products    []ProductLineResponse `json:"products"`
	Tracking    TrackingResponse      `json:"tracking"`
}

// FromRecord projects a domain record into its response shape
func FromRecord(rec *order.OrderRecord) OrderResponse {
	resp := OrderResponse{
		Identifier:  rec.Identifier,
		ExternalRef: rec.ExternalRef,
		OrderDate:   rec.OrderDate,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		Status:      rec.Status.String(),
		Tag:         rec.Tag,
		Customer:    rec.Customer,
		Destination: rec.Destination,
		Shipment:    rec.Shipment,
		Products:    make([]ProductLineResponse, len(rec.Products)),
		Tracking: TrackingResponse{
			CarrierTrackingID: rec.Tracking.CarrierTrackingID,
			CurrentStatus:     rec.Tracking.CurrentStatus,
			History:           make([]TrackingEventResponse, len(rec.Tracking.History)),
		},
	}
	for i, p := range rec.Products {
		resp.Products[i] = ProductLineResponse{
			Name:                 p.Name,
			Quantity:             p.Quantity,
			UnitPrice:            p.UnitPrice,
			Category:             p.Category,
			SourceImageURL:       p.SourceImageURL,
			UserUploadedImageURL: p.UserUploadedImageURL,
		}
	}
	for i, ev := range rec.Tracking.History {
		resp.Tracking.History[i] = TrackingEventResponse{
			Status:      ev.Status,
			Timestamp:   ev.Timestamp,
			Description: ev.Description,
			City:        ev.City,
			HubName:     ev.HubName,
		}
	}
	if rec.Tracking.LastUpdated != nil {
		lu := *rec.Tracking.LastUpdated
		resp.Tracking.LastUpdated = &lu
	}
	return resp
}

// FromRecords projects a list of records
func FromRecords(recs []*order.OrderRecord) []OrderResponse {
	out := make([]OrderResponse, len(recs))
	for i, rec := range recs {
		out[i] = FromRecord(rec)
	}
	return out
}

// BatchRefreshResponse reports a batch tracking refresh
type BatchRefreshResponse struct {
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed"`
}

// SyncResponse reports a commerce sync run
type SyncResponse struct {
	OrderCount int `json:"order_count"`
}

// ImportResponse reports a spreadsheet import
type ImportResponse struct {
	OrderCount int `json:"order_count"`
}

// CountsResponse reports order counts per status
type CountsResponse struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}
