package commerce

// ---------------------------------------------------------------------------
// Shopify Admin API wire types (subset the sync consumes)
// ---------------------------------------------------------------------------

// shopifyOrdersResponse is the response for the orders listing endpoint
type shopifyOrdersResponse struct {
	Orders []shopifyOrder `json:"orders"`
}

// shopifyOrder is an order as reported by the Shopify Admin API. The order
// "name" is the human-facing identifier and usually carries a leading "#".
type shopifyOrder struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"` // RFC3339
	Email     string `json:"email,omitempty"`

	TotalPrice string `json:"total_price,omitempty"`

	Customer *struct {
		FirstName string `json:"first_name,omitempty"`
		LastName  string `json:"last_name,omitempty"`
		Phone     string `json:"phone,omitempty"`
	} `json:"customer,omitempty"`

	ShippingAddress *struct {
		Name     string `json:"name,omitempty"`
		Address1 string `json:"address1,omitempty"`
		Address2 string `json:"address2,omitempty"`
		City     string `json:"city,omitempty"`
		Province string `json:"province,omitempty"`
		Zip      string `json:"zip,omitempty"`
		Phone    string `json:"phone,omitempty"`
	} `json:"shipping_address,omitempty"`

	LineItems []shopifyLineItem `json:"line_items"`

	PaymentGatewayNames []string `json:"payment_gateway_names,omitempty"`
}

// shopifyLineItem is one product line on a Shopify order
type shopifyLineItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	// Properties may carry the product image URL under the "image" key
	Properties []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"properties,omitempty"`
}

// imageURL extracts the product image URL property when present
func (li *shopifyLineItem) imageURL() string {
	for _, p := range li.Properties {
		if p.Name == "image" {
			return p.Value
		}
	}
	return ""
}
