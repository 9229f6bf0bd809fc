package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/domain/order"
)

// maxResponseSize is the maximum allowed response size from the Shopify API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ShopifyConfig holds the Shopify Admin API settings
type ShopifyConfig struct {
	// ShopDomain is the myshopify domain, e.g. "acme.myshopify.com"
	ShopDomain string
	// AccessToken is the Admin API access token
	AccessToken string
	// APIVersion selects the Admin API version, e.g. "2024-10"
	APIVersion string
	// TimeoutSeconds bounds each HTTP call
	TimeoutSeconds int
	// PageSize is the per-request order limit (Shopify caps at 250)
	PageSize int
}

// Validate checks the configuration is usable
func (c *ShopifyConfig) Validate() error {
	if c.ShopDomain == "" {
		return errors.New("shopify: shop domain is required")
	}
	if c.AccessToken == "" {
		return errors.New("shopify: access token is required")
	}
	if c.APIVersion == "" {
		c.APIVersion = "2024-10"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.PageSize <= 0 || c.PageSize > 250 {
		c.PageSize = 250
	}
	return nil
}

// ShopifyAdapter implements the CommerceSource interface for the Shopify
// Admin API. Remote orders are mapped to sparse RawOrder snapshots; the
// reconciliation store owns conflict resolution.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
	logger     *zap.Logger

	// baseURL overrides the shop domain URL in tests
	baseURL string
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig, logger *zap.Logger) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}, nil
}

// FetchRemoteOrders pulls the current order snapshot from Shopify
func (a *ShopifyAdapter) FetchRemoteOrders(ctx context.Context) ([]order.RawOrder, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/orders.json?status=any&limit=%d",
		a.rootURL(), a.config.APIVersion, a.config.PageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("shopify: build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("shopify: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shopify: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed shopifyOrdersResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("shopify: decode response: %w", err)
	}

	raws := make([]order.RawOrder, 0, len(parsed.Orders))
	for i := range parsed.Orders {
		ro, err := a.mapOrder(&parsed.Orders[i])
		if err != nil {
			// A malformed remote order is skipped, not fatal for the sync.
			a.logger.Warn("skipping malformed shopify order",
				zap.String("name", parsed.Orders[i].Name),
				zap.Error(err),
			)
			continue
		}
		raws = append(raws, ro)
	}
	return raws, nil
}

// mapOrder converts a Shopify order into a RawOrder snapshot
func (a *ShopifyAdapter) mapOrder(so *shopifyOrder) (order.RawOrder, error) {
	if so.Name == "" {
		return order.RawOrder{}, errors.New("order has no name")
	}

	raw := order.RawOrder{
		Identifier:  so.Name,
		ExternalRef: order.Ptr(strconv.FormatInt(so.ID, 10)),
	}

	if ts, err := time.Parse(time.RFC3339, so.CreatedAt); err == nil {
		raw.OrderDate = order.Ptr(ts)
	}
	if so.Email != "" {
		raw.Customer.Email = order.Ptr(so.Email)
	}
	if so.Customer != nil {
		name := strings.TrimSpace(so.Customer.FirstName + " " + so.Customer.LastName)
		if name != "" {
			raw.Customer.Name = order.Ptr(name)
		}
		if so.Customer.Phone != "" {
			raw.Customer.Phone = order.Ptr(so.Customer.Phone)
		}
	}
	if sa := so.ShippingAddress; sa != nil {
		addr := sa.Address1
		if sa.Address2 != "" {
			addr += ", " + sa.Address2
		}
		if addr != "" {
			raw.Customer.Address = order.Ptr(addr)
		}
		if sa.City != "" {
			raw.Customer.City = order.Ptr(sa.City)
		}
		if sa.Province != "" {
			raw.Customer.State = order.Ptr(sa.Province)
		}
		if sa.Zip != "" {
			raw.Customer.PostalCode = order.Ptr(sa.Zip)
		}
		if raw.Customer.Phone == nil && sa.Phone != "" {
			raw.Customer.Phone = order.Ptr(sa.Phone)
		}
	}

	if so.TotalPrice != "" {
		if amount, err := decimal.NewFromString(so.TotalPrice); err == nil {
			raw.Shipment.Amount = order.Ptr(amount)
		}
	}
	if len(so.PaymentGatewayNames) > 0 {
		raw.Shipment.PaymentMode = order.Ptr(strings.Join(so.PaymentGatewayNames, ","))
	}

	products := make([]order.ProductLine, 0, len(so.LineItems))
	for i := range so.LineItems {
		li := &so.LineItems[i]
		price, err := decimal.NewFromString(li.Price)
		if err != nil {
			price = decimal.Zero
		}
		products = append(products, order.ProductLine{
			Name:           li.Title,
			Quantity:       li.Quantity,
			UnitPrice:      price,
			SourceImageURL: li.imageURL(),
		})
	}
	if len(products) > 0 {
		raw.Products = products
	}
	return raw, nil
}

func (a *ShopifyAdapter) rootURL() string {
	if a.baseURL != "" {
		return a.baseURL
	}
	return "https://" + a.config.ShopDomain
}
