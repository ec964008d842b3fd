package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
	"github.com/commerce-blocks/guest-orders/internal/gateways"
	"github.com/commerce-blocks/guest-orders/internal/platform/pagination"
	"github.com/commerce-blocks/guest-orders/internal/repositories"
)

const (
	guestOrderEventCreated = "guest_order.created"

	guestOrderIDPrefix = "gord_"
)

var (
	// ErrGuestOrderInvalidInput signals the caller provided invalid data.
	ErrGuestOrderInvalidInput = errors.New("guest order: invalid input")
	// ErrGuestOrderNotFound indicates the order could not be located.
	ErrGuestOrderNotFound = errors.New("guest order: not found")
	// ErrGuestOrderConflict indicates a duplicate order id was written.
	ErrGuestOrderConflict = errors.New("guest order: conflict")
	// ErrOrganizationNotFound indicates the organization does not exist.
	ErrOrganizationNotFound = errors.New("guest order: organization not found")
	// ErrOrderForbidden indicates the order belongs to a different organization.
	ErrOrderForbidden = errors.New("guest order: order does not belong to organization")
	// ErrLineItemNotFound indicates a requested product/variant pair is absent
	// from the organization's published catalog.
	ErrLineItemNotFound = errors.New("guest order: line item not found")
	// ErrGuestOrderInternal indicates the store accepted a create but the
	// immediate re-fetch came back empty.
	ErrGuestOrderInternal = errors.New("guest order: internal")
)

// GuestOrderEventPublisher publishes guest order domain events for downstream consumers.
type GuestOrderEventPublisher interface {
	PublishGuestOrderEvent(ctx context.Context, event GuestOrderEvent) error
}

// GuestOrderEvent captures metadata for emitted guest order domain events.
type GuestOrderEvent struct {
	Type           string
	OrderID        string
	OrganizationID string
	Status         string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// GuestOrderServiceDeps bundles collaborators required to construct the guest order service.
type GuestOrderServiceDeps struct {
	Orders        repositories.GuestOrderRepository
	Catalog       gateways.CatalogGateway
	Organizations gateways.OrganizationGateway
	CustomFields  []CustomFieldDefinition
	Clock         func() time.Time
	IDGenerator   func() string
	Events        GuestOrderEventPublisher
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type guestOrderService struct {
	orders        repositories.GuestOrderRepository
	catalog       gateways.CatalogGateway
	organizations gateways.OrganizationGateway
	customFields  []CustomFieldDefinition
	clock         func() time.Time
	newID         func() string
	events        GuestOrderEventPublisher
	logger        func(context.Context, string, map[string]any)
}

// NewGuestOrderService wires dependencies into a concrete GuestOrderService implementation.
func NewGuestOrderService(deps GuestOrderServiceDeps) (GuestOrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("guest order service: order repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("guest order service: catalog gateway is required")
	}
	if deps.Organizations == nil {
		return nil, errors.New("guest order service: organization gateway is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &guestOrderService{
		orders:        deps.Orders,
		catalog:       deps.Catalog,
		organizations: deps.Organizations,
		customFields:  deps.CustomFields,
		clock:         func() time.Time { return clock().UTC() },
		newID:         idGen,
		events:        deps.Events,
		logger:        logger,
	}, nil
}

func (s *guestOrderService) Create(ctx context.Context, cmd CreateGuestOrderCommand) (NormalizedGuestOrder, error) {
	if err := s.validateCreateCommand(cmd); err != nil {
		return NormalizedGuestOrder{}, err
	}
	if err := s.requireOrganization(ctx, cmd.OrganizationID); err != nil {
		return NormalizedGuestOrder{}, err
	}

	lineItems, err := s.resolveLineItems(ctx, cmd.OrganizationID, cmd.Items)
	if err != nil {
		return NormalizedGuestOrder{}, err
	}

	now := s.now()
	order := domain.GuestOrder{
		ID:             s.nextOrderID(),
		OrganizationID: cmd.OrganizationID,
		LineItems:      lineItems,
		Customer:       cmd.Customer,
		Status:         domain.OrderStatusPending,
		CancelReason:   nil,
		CanceledAt:     nil,
		ClosedAt:       nil,
		CustomFields:   cmd.CustomFields,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.mapRepositoryError(s.orders.Insert(ctx, order)); err != nil {
		return NormalizedGuestOrder{}, err
	}

	stored, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return NormalizedGuestOrder{}, fmt.Errorf("%w: operation failed to create order %s", ErrGuestOrderInternal, order.ID)
		}
		return NormalizedGuestOrder{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, GuestOrderEvent{
		Type:           guestOrderEventCreated,
		OrderID:        stored.ID,
		OrganizationID: stored.OrganizationID,
		Status:         string(stored.Status),
		OccurredAt:     now,
		Metadata: map[string]any{
			"lineItems": len(stored.LineItems),
		},
	})

	return s.normalizeOrder(ctx, cmd.Expand, stored)
}

func (s *guestOrderService) Get(ctx context.Context, query GetGuestOrderQuery) (NormalizedGuestOrder, error) {
	if query.OrganizationID == "" || query.OrderID == "" {
		return NormalizedGuestOrder{}, fmt.Errorf("%w: organization id and order id are required", ErrGuestOrderInvalidInput)
	}

	order, err := s.orders.FindByIDInOrganization(ctx, query.OrganizationID, query.OrderID)
	if err != nil {
		return NormalizedGuestOrder{}, s.mapRepositoryError(err)
	}

	return s.normalizeOrder(ctx, query.Expand, order)
}

func (s *guestOrderService) List(ctx context.Context, query ListGuestOrdersQuery) (GuestOrderPage, error) {
	if query.OrganizationID == "" {
		return GuestOrderPage{}, fmt.Errorf("%w: organization id is required", ErrGuestOrderInvalidInput)
	}
	if err := s.requireOrganization(ctx, query.OrganizationID); err != nil {
		return GuestOrderPage{}, err
	}

	page, err := s.orders.ListByOrganization(ctx, query.OrganizationID, buildListQuery(query.Pagination))
	if err != nil {
		return GuestOrderPage{}, s.mapRepositoryError(err)
	}

	normalized, err := s.normalizeOrders(ctx, query.Expand, page.Items)
	if err != nil {
		return GuestOrderPage{}, err
	}

	return GuestOrderPage{
		Items:         normalized,
		Count:         page.Count,
		Total:         page.Total,
		NextToken:     page.NextToken,
		PreviousToken: page.PreviousToken,
	}, nil
}

// VerifyOrderOwnership checks that an order belongs to an organization using
// an unscoped order fetch followed by an explicit ownership comparison. The
// scoped lookup in Get enforces the same rule; this variant exists for use as
// a route guard and reports mismatches as forbidden rather than not found.
func (s *guestOrderService) VerifyOrderOwnership(ctx context.Context, organizationID, orderID string) error {
	if err := s.requireOrganization(ctx, organizationID); err != nil {
		return err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return fmt.Errorf("%w: orderId %s cannot be found", ErrGuestOrderNotFound, orderID)
		}
		return s.mapRepositoryError(err)
	}

	if order.OrganizationID != organizationID {
		return fmt.Errorf("%w: orderId=%s does not belong to organization: orgId=%s", ErrOrderForbidden, orderID, organizationID)
	}
	return nil
}

// requireOrganization resolves the organization against the upstream gateway
// and reports an absent organization as ErrOrganizationNotFound. Create, List
// and the ownership guard all run this check before touching the store.
func (s *guestOrderService) requireOrganization(ctx context.Context, organizationID string) error {
	if _, err := s.organizations.GetOrganization(ctx, organizationID); err != nil {
		if errors.Is(err, gateways.ErrNotFound) {
			return fmt.Errorf("%w: orgId %s cannot be found", ErrOrganizationNotFound, organizationID)
		}
		return fmt.Errorf("guest order: organization lookup: %w", err)
	}
	return nil
}

func (s *guestOrderService) validateCreateCommand(cmd CreateGuestOrderCommand) error {
	if cmd.OrganizationID == "" {
		return fmt.Errorf("%w: organization id is required", ErrGuestOrderInvalidInput)
	}
	for i, item := range cmd.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("%w: items[%d].productId is required", ErrGuestOrderInvalidInput, i)
		}
		if strings.TrimSpace(item.VariantID) == "" {
			return fmt.Errorf("%w: items[%d].variantId is required", ErrGuestOrderInvalidInput, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be positive", ErrGuestOrderInvalidInput, i)
		}
	}
	if err := validateCustomer(cmd.Customer); err != nil {
		return err
	}
	return s.validateCustomFields(cmd.CustomFields)
}

func validateCustomer(customer Customer) error {
	required := []struct {
		name  string
		value string
	}{
		{"name", customer.Name},
		{"nameKana", customer.NameKana},
		{"addressLine1", customer.AddressLine1},
		{"phone", customer.Phone},
		{"email", customer.Email},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: customer.%s is required", ErrGuestOrderInvalidInput, field.name)
		}
	}
	if customer.Age != "" {
		for _, r := range customer.Age {
			if r < '0' || r > '9' {
				return fmt.Errorf("%w: customer.age must contain only digits", ErrGuestOrderInvalidInput)
			}
		}
	}
	return nil
}

func buildListQuery(params pagination.Params) repositories.ListQuery {
	query := repositories.ListQuery{
		Top:  params.Top,
		Skip: params.Skip,
	}
	for _, order := range params.Orders {
		query.Orders = append(query.Orders, repositories.SortOrder{
			Field: order.Field,
			Desc:  order.Desc,
		})
	}
	for _, filter := range params.Filters {
		query.Filters = append(query.Filters, repositories.FieldFilter{
			Field: filter.Field,
			Op:    repositories.FilterOperator(filter.Op),
			Value: filter.Value,
		})
	}
	return query
}

func (s *guestOrderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrGuestOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrGuestOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("guest order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *guestOrderService) now() time.Time {
	return s.clock()
}

func (s *guestOrderService) nextOrderID() string {
	return guestOrderIDPrefix + s.newID()
}

func (s *guestOrderService) publishEvent(ctx context.Context, event GuestOrderEvent) {
	if s.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishGuestOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "guest_order.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}
