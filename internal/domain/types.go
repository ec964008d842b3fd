package domain

import "time"

// OrderStatus enumerates the lifecycle states of a guest order. Only PENDING is
// ever written by the create pipeline; the remaining states are set by external
// lifecycle operations.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

// CancelReason describes why an order was canceled. Populated by external
// lifecycle operations, never by the create pipeline.
type CancelReason string

// Customer carries the contact details captured on a guest order. The value is
// embedded on the order and immutable once written.
type Customer struct {
	Name                   string `json:"name" firestore:"name"`
	NameKana               string `json:"nameKana" firestore:"nameKana"`
	AddressLine1           string `json:"addressLine1" firestore:"addressLine1"`
	AddressLine2           string `json:"addressLine2,omitempty" firestore:"addressLine2,omitempty"`
	AddressLine3           string `json:"addressLine3,omitempty" firestore:"addressLine3,omitempty"`
	Phone                  string `json:"phone" firestore:"phone"`
	Email                  string `json:"email" firestore:"email"`
	Age                    string `json:"age,omitempty" firestore:"age,omitempty"`
	PreferredContactMethod string `json:"preferredContactMethod,omitempty" firestore:"preferredContactMethod,omitempty"`
	PreferredTimeToContact string `json:"preferredTimeToContact,omitempty" firestore:"preferredTimeToContact,omitempty"`
}

// ProductItem is a persisted order line item. ProductName, SKU, and
// VariantTitle are denormalised copies taken from the catalog at creation time
// and are never refreshed afterwards.
type ProductItem struct {
	ProductID    string `json:"productId" firestore:"productId"`
	ProductName  string `json:"productName" firestore:"productName"`
	Quantity     int    `json:"quantity" firestore:"quantity"`
	SKU          string `json:"sku" firestore:"sku"`
	VariantID    string `json:"variantId" firestore:"variantId"`
	VariantTitle string `json:"variantTitle" firestore:"variantTitle"`
}

// GuestOrder is an order placed without an authenticated customer account.
type GuestOrder struct {
	ID             string
	OrganizationID string
	LineItems      []ProductItem
	Customer       Customer
	Status         OrderStatus
	CancelReason   *CancelReason
	CanceledAt     *time.Time
	ClosedAt       *time.Time
	CustomFields   map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Product is a catalog product as returned by the catalog service. Variants is
// populated when the query asked for variant expansion.
type Product struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organizationId"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Status         string           `json:"status,omitempty"`
	Variants       []ProductVariant `json:"variants,omitempty"`
	CustomFields   map[string]any   `json:"customFields,omitempty"`
}

// ProductVariant is one purchasable variation of a catalog product.
type ProductVariant struct {
	ID           string         `json:"id"`
	ProductID    string         `json:"productId"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	SKU          string         `json:"sku"`
	CustomFields map[string]any `json:"customFields,omitempty"`
}

// Organization is the owning organization record served by the organization
// service. Only read and embedded by this module, never written.
type Organization struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Addresses    []string       `json:"addresses,omitempty"`
	Phone        string         `json:"phoneNumber,omitempty"`
	Email        string         `json:"email,omitempty"`
	Status       string         `json:"status,omitempty"`
	CustomFields map[string]any `json:"customFields,omitempty"`
}

// CustomFieldDefinition declares one custom field accepted on guest orders.
type CustomFieldDefinition struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
}

// OffsetPage packages an offset-paginated list result together with the
// navigation tokens computed by the store.
type OffsetPage[T any] struct {
	Items         []T
	Count         int
	Total         int
	NextToken     string
	PreviousToken string
}
