package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdesk/backend/internal/domain/order"
)

// Recognized column headers. Matching is exact after lowercasing and
// trimming; there is no column-mapping heuristic. Rows sharing an order_id
// contribute product lines to the same RawOrder; scalar cells from later
// rows of the same order are ignored (the first row wins within the file).
const (
	colOrderID         = "order_id"
	colOrderDate       = "order_date"
	colCustomerName    = "customer_name"
	colCustomerPhone   = "customer_phone"
	colCustomerEmail   = "customer_email"
	colCustomerAddress = "customer_address"
	colCity            = "city"
	colState           = "state"
	colPostalCode      = "postal_code"
	colDestName        = "destination_name"
	colDestAddr1       = "destination_address_line1"
	colDestAddr2       = "destination_address_line2"
	colDestCity        = "destination_city"
	colDestState       = "destination_state"
	colDestPostalCode  = "destination_postal_code"
	colDestPhone       = "destination_phone"
	colProductName     = "product_name"
	colQuantity        = "quantity"
	colUnitPrice       = "unit_price"
	colCategory        = "category"
	colImageURL        = "image_url"
	colDeadWeight      = "dead_weight"
	colLength          = "length"
	colBreadth         = "breadth"
	colHeight          = "height"
	colVolWeight       = "volumetric_weight"
	colAmount          = "amount"
	colPaymentMode     = "payment_mode"
	colHSNCode         = "hsn_code"
	colInvoiceRef      = "invoice_ref"
	colServiceTier     = "service_tier"
)

// RowError describes a parse failure on a specific data row
type RowError struct {
	Row     int // 1-based, counting the header as row 1
	Column  string
	Message string
}

// Error implements the error interface
func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Message)
}

// ErrEmptyFile indicates the file had no header row
var ErrEmptyFile = errors.New("import: file is empty")

// ErrMissingOrderID indicates the header row lacks the order_id column
var ErrMissingOrderID = errors.New("import: header is missing the order_id column")

// ParseFile reads a CSV export and yields one RawOrder per distinct order_id
// in first-seen order. Cells left empty stay absent in the snapshot so the
// merge policy can leave existing values untouched.
func ParseFile(r io.Reader) ([]order.RawOrder, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("import: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index[colOrderID]; !ok {
		return nil, ErrMissingOrderID
	}

	var (
		orders  []order.RawOrder
		byID    = make(map[string]int) // order_id -> index into orders
		rowNum  = 1
		cell    = func(row []string, col string) string { return cellAt(row, index, col) }
	)
	for {
		rowNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("import: read row %d: %w", rowNum, err)
		}

		id := strings.TrimSpace(cell(row, colOrderID))
		if id == "" {
			return nil, &RowError{Row: rowNum, Column: colOrderID, Message: "order id cannot be empty"}
		}

		idx, seen := byID[id]
		if !seen {
			raw, err := scalarsFromRow(row, rowNum, cell)
			if err != nil {
				return nil, err
			}
			raw.Identifier = id
			orders = append(orders, raw)
			idx = len(orders) - 1
			byID[id] = idx
		}

		line, ok, err := productFromRow(row, rowNum, cell)
		if err != nil {
			return nil, err
		}
		if ok {
			orders[idx].Products = append(orders[idx].Products, line)
		}
	}
	return orders, nil
}

// scalarsFromRow builds the sparse scalar patch from the first row of an order
func scalarsFromRow(row []string, rowNum int, cell func([]string, string) string) (order.RawOrder, error) {
	var raw order.RawOrder

	setString(&raw.Customer.Name, cell(row, colCustomerName))
	setString(&raw.Customer.Phone, cell(row, colCustomerPhone))
	setString(&raw.Customer.Email, cell(row, colCustomerEmail))
	setString(&raw.Customer.Address, cell(row, colCustomerAddress))
	setString(&raw.Customer.City, cell(row, colCity))
	setString(&raw.Customer.State, cell(row, colState))
	setString(&raw.Customer.PostalCode, cell(row, colPostalCode))

	setString(&raw.Destination.Name, cell(row, colDestName))
	setString(&raw.Destination.AddressLine1, cell(row, colDestAddr1))
	setString(&raw.Destination.AddressLine2, cell(row, colDestAddr2))
	setString(&raw.Destination.City, cell(row, colDestCity))
	setString(&raw.Destination.State, cell(row, colDestState))
	setString(&raw.Destination.PostalCode, cell(row, colDestPostalCode))
	setString(&raw.Destination.Phone, cell(row, colDestPhone))

	setString(&raw.Shipment.PaymentMode, cell(row, colPaymentMode))
	setString(&raw.Shipment.HSNCode, cell(row, colHSNCode))
	setString(&raw.Shipment.InvoiceRef, cell(row, colInvoiceRef))
	setString(&raw.Shipment.ServiceTier, cell(row, colServiceTier))

	for _, dc := range []struct {
		col string
		dst **decimal.Decimal
	}{
		{colDeadWeight, &raw.Shipment.DeadWeight},
		{colLength, &raw.Shipment.Length},
		{colBreadth, &raw.Shipment.Breadth},
		{colHeight, &raw.Shipment.Height},
		{colVolWeight, &raw.Shipment.VolumetricWeight},
		{colAmount, &raw.Shipment.Amount},
	} {
		value := strings.TrimSpace(cell(row, dc.col))
		if value == "" {
			continue
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			return raw, &RowError{Row: rowNum, Column: dc.col, Message: "not a valid number: " + value}
		}
		*dc.dst = order.Ptr(d)
	}

	if value := strings.TrimSpace(cell(row, colOrderDate)); value != "" {
		ts, err := parseDate(value)
		if err != nil {
			return raw, &RowError{Row: rowNum, Column: colOrderDate, Message: "not a valid date: " + value}
		}
		raw.OrderDate = order.Ptr(ts)
	}
	return raw, nil
}

// productFromRow extracts the product line on a row, if any
func productFromRow(row []string, rowNum int, cell func([]string, string) string) (order.ProductLine, bool, error) {
	name := strings.TrimSpace(cell(row, colProductName))
	if name == "" {
		return order.ProductLine{}, false, nil
	}

	line := order.ProductLine{
		Name:           name,
		Quantity:       1,
		Category:       strings.TrimSpace(cell(row, colCategory)),
		SourceImageURL: strings.TrimSpace(cell(row, colImageURL)),
	}

	if value := strings.TrimSpace(cell(row, colQuantity)); value != "" {
		qty, err := strconv.Atoi(value)
		if err != nil || qty < 1 {
			return line, false, &RowError{Row: rowNum, Column: colQuantity, Message: "not a valid quantity: " + value}
		}
		line.Quantity = qty
	}
	if value := strings.TrimSpace(cell(row, colUnitPrice)); value != "" {
		price, err := decimal.NewFromString(value)
		if err != nil || price.IsNegative() {
			return line, false, &RowError{Row: rowNum, Column: colUnitPrice, Message: "not a valid price: " + value}
		}
		line.UnitPrice = price
	}
	return line, true, nil
}

func cellAt(row []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func setString(dst **string, value string) {
	value = strings.TrimSpace(value)
	if value != "" {
		*dst = order.Ptr(value)
	}
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "02/01/2006"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", value)
}
