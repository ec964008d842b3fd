package services

import (
	"context"
	"time"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
	"github.com/commerce-blocks/guest-orders/internal/platform/pagination"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	GuestOrder            = domain.GuestOrder
	ProductItem           = domain.ProductItem
	Customer              = domain.Customer
	OrderStatus           = domain.OrderStatus
	Product               = domain.Product
	ProductVariant        = domain.ProductVariant
	Organization          = domain.Organization
	CustomFieldDefinition = domain.CustomFieldDefinition
	SystemHealthReport    = domain.SystemHealthReport
)

// GuestOrderService orchestrates the guest order create and read flows,
// coordinating the order store with the catalog and organization services.
type GuestOrderService interface {
	Create(ctx context.Context, cmd CreateGuestOrderCommand) (NormalizedGuestOrder, error)
	Get(ctx context.Context, query GetGuestOrderQuery) (NormalizedGuestOrder, error)
	List(ctx context.Context, query ListGuestOrdersQuery) (GuestOrderPage, error)
	VerifyOrderOwnership(ctx context.Context, organizationID, orderID string) error
}

// SystemService aggregates dependency health for operational probes.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}

// LineItemInput is one requested order line before catalog resolution.
type LineItemInput struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// CreateGuestOrderCommand carries the validated create request payload.
// Status, cancelReason, canceledAt, and closedAt are never caller-supplied;
// the service forces them on every create.
type CreateGuestOrderCommand struct {
	OrganizationID string
	Items          []LineItemInput
	Customer       Customer
	CustomFields   map[string]any
	Expand         string
}

// GetGuestOrderQuery identifies a single order scoped to an organization.
type GetGuestOrderQuery struct {
	OrganizationID string
	OrderID        string
	Expand         string
}

// ListGuestOrdersQuery carries the parsed listing parameters for one
// organization's orders.
type ListGuestOrdersQuery struct {
	OrganizationID string
	Pagination     pagination.Params
	Expand         string
}

// GuestOrderPage is one page of normalized orders plus navigation tokens.
type GuestOrderPage struct {
	Items         []NormalizedGuestOrder
	Count         int
	Total         int
	NextToken     string
	PreviousToken string
}

// NormalizedGuestOrder is the read-side projection of a stored order.
// Organization holds the raw organization id string unless the caller asked
// for expansion, in which case it holds the full organization record.
type NormalizedGuestOrder struct {
	ID           string               `json:"id"`
	Organization any                  `json:"organization"`
	LineItems    []NormalizedLineItem `json:"lineItems"`
	Customer     Customer             `json:"customer"`
	Status       OrderStatus          `json:"status"`
	CancelReason *domain.CancelReason `json:"cancelReason"`
	CanceledAt   *time.Time           `json:"canceledAt"`
	ClosedAt     *time.Time           `json:"closedAt"`
	CustomFields map[string]any       `json:"customFields,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// NormalizedLineItem mirrors a persisted line item with Product and Variants
// holding either raw id strings or expanded records.
type NormalizedLineItem struct {
	ProductName  string `json:"productName"`
	Quantity     int    `json:"quantity"`
	SKU          string `json:"sku"`
	VariantTitle string `json:"variantTitle"`
	Product      any    `json:"product"`
	Variants     any    `json:"variants"`
}

// VariantSummary is the reduced variant record embedded on variant expansion.
type VariantSummary struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
	Title       string `json:"title"`
	ProductID   string `json:"productId"`
}
