package repositories

import (
	"context"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// FilterOperator enumerates the comparison operators repositories accept.
type FilterOperator string

const (
	FilterEqual         FilterOperator = "=="
	FilterGreaterThan   FilterOperator = ">"
	FilterLessThan      FilterOperator = "<"
	FilterGreaterEqual  FilterOperator = ">="
	FilterLessEqual     FilterOperator = "<="
	FilterArrayContains FilterOperator = "array-contains"
)

// FieldFilter narrows a list query to documents matching the predicate.
type FieldFilter struct {
	Field string
	Op    FilterOperator
	Value any
}

// SortOrder describes a single order-by clause applied to a list query.
type SortOrder struct {
	Field string
	Desc  bool
}

// ListQuery bundles filtering, ordering, and offset pagination for list operations.
type ListQuery struct {
	Filters []FieldFilter
	Orders  []SortOrder
	Top     int
	Skip    int
}

// GuestOrderRepository persists guest order documents.
type GuestOrderRepository interface {
	// Insert stores a new order, failing with a conflict error when the id is taken.
	Insert(ctx context.Context, order domain.GuestOrder) error
	// FindByID fetches an order regardless of organization scope.
	FindByID(ctx context.Context, orderID string) (domain.GuestOrder, error)
	// FindByIDInOrganization fetches an order and reports not-found when it
	// exists under a different organization.
	FindByIDInOrganization(ctx context.Context, organizationID, orderID string) (domain.GuestOrder, error)
	// ListByOrganization pages through an organization's orders. The
	// organization scope is merged into any caller-supplied filters.
	ListByOrganization(ctx context.Context, organizationID string, query ListQuery) (domain.OffsetPage[domain.GuestOrder], error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
