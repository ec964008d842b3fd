package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
	"github.com/commerce-blocks/guest-orders/internal/gateways"
	"github.com/commerce-blocks/guest-orders/internal/platform/pagination"
	"github.com/commerce-blocks/guest-orders/internal/repositories"
)

type repoError struct {
	message     string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e repoError) Error() string       { return e.message }
func (e repoError) IsNotFound() bool    { return e.notFound }
func (e repoError) IsConflict() bool    { return e.conflict }
func (e repoError) IsUnavailable() bool { return e.unavailable }

type stubGuestOrderRepo struct {
	mu      sync.Mutex
	inserts []domain.GuestOrder

	insertFn     func(context.Context, domain.GuestOrder) error
	findFn       func(context.Context, string) (domain.GuestOrder, error)
	findScopedFn func(context.Context, string, string) (domain.GuestOrder, error)
	listFn       func(context.Context, string, repositories.ListQuery) (domain.OffsetPage[domain.GuestOrder], error)
}

func (s *stubGuestOrderRepo) Insert(ctx context.Context, order domain.GuestOrder) error {
	s.mu.Lock()
	s.inserts = append(s.inserts, order)
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubGuestOrderRepo) FindByID(ctx context.Context, orderID string) (domain.GuestOrder, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.inserts {
		if order.ID == orderID {
			return order, nil
		}
	}
	return domain.GuestOrder{}, repoError{message: "order " + orderID + " not found", notFound: true}
}

func (s *stubGuestOrderRepo) FindByIDInOrganization(ctx context.Context, organizationID, orderID string) (domain.GuestOrder, error) {
	if s.findScopedFn != nil {
		return s.findScopedFn(ctx, organizationID, orderID)
	}
	order, err := s.FindByID(ctx, orderID)
	if err != nil {
		return domain.GuestOrder{}, err
	}
	if order.OrganizationID != organizationID {
		return domain.GuestOrder{}, repoError{message: "order " + orderID + " not found in organization " + organizationID, notFound: true}
	}
	return order, nil
}

func (s *stubGuestOrderRepo) ListByOrganization(ctx context.Context, organizationID string, query repositories.ListQuery) (domain.OffsetPage[domain.GuestOrder], error) {
	if s.listFn != nil {
		return s.listFn(ctx, organizationID, query)
	}
	return domain.OffsetPage[domain.GuestOrder]{Items: []domain.GuestOrder{}}, nil
}

func (s *stubGuestOrderRepo) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserts)
}

type stubCatalogGateway struct {
	mu             sync.Mutex
	availableCalls int

	products    map[string]domain.Product
	availableFn func(context.Context, string, []string) ([]domain.Product, error)
	getFn       func(context.Context, string) (domain.Product, error)
}

func (s *stubCatalogGateway) AvailableProducts(ctx context.Context, organizationID string, productIDs []string) ([]domain.Product, error) {
	s.mu.Lock()
	s.availableCalls++
	s.mu.Unlock()
	if s.availableFn != nil {
		return s.availableFn(ctx, organizationID, productIDs)
	}
	var matched []domain.Product
	for _, id := range productIDs {
		if product, ok := s.products[id]; ok && product.OrganizationID == organizationID {
			matched = append(matched, product)
		}
	}
	return matched, nil
}

func (s *stubCatalogGateway) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.getFn != nil {
		return s.getFn(ctx, productID)
	}
	if product, ok := s.products[productID]; ok {
		return product, nil
	}
	return domain.Product{}, fmt.Errorf("%w: product %s", gateways.ErrNotFound, productID)
}

type stubOrganizationGateway struct {
	orgs  map[string]domain.Organization
	getFn func(context.Context, string) (domain.Organization, error)
}

func (s *stubOrganizationGateway) GetOrganization(ctx context.Context, organizationID string) (domain.Organization, error) {
	if s.getFn != nil {
		return s.getFn(ctx, organizationID)
	}
	if org, ok := s.orgs[organizationID]; ok {
		return org, nil
	}
	return domain.Organization{}, fmt.Errorf("%w: organization %s", gateways.ErrNotFound, organizationID)
}

type stubEventPublisher struct {
	mu     sync.Mutex
	events []GuestOrderEvent
	err    error
}

func (s *stubEventPublisher) PublishGuestOrderEvent(_ context.Context, event GuestOrderEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return s.err
}

func catalogWithProduct() *stubCatalogGateway {
	return &stubCatalogGateway{products: map[string]domain.Product{
		"prod_1": {
			ID:             "prod_1",
			OrganizationID: "org_1",
			Name:           "Walnut Desk Organizer",
			Variants: []domain.ProductVariant{
				{ID: "var_1", ProductID: "prod_1", Title: "Natural", SKU: "WDO-NAT", Description: "Natural walnut finish"},
				{ID: "var_2", ProductID: "prod_1", Title: "Ebonized", SKU: "WDO-EBN"},
			},
		},
	}}
}

func knownOrganizations() *stubOrganizationGateway {
	return &stubOrganizationGateway{orgs: map[string]domain.Organization{
		"org_1": {ID: "org_1", Name: "Org One"},
	}}
}

func validCustomer() Customer {
	return Customer{
		Name:         "Dummy Name",
		NameKana:     "ダミー",
		AddressLine1: "1-2-3 Dummy",
		Phone:        "55-555-5555",
		Email:        "Dummy@name.com",
	}
}

func newTestService(t *testing.T, deps GuestOrderServiceDeps) GuestOrderService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	}
	if deps.IDGenerator == nil {
		counter := 0
		deps.IDGenerator = func() string {
			counter++
			return fmt.Sprintf("01TEST%06d", counter)
		}
	}
	svc, err := NewGuestOrderService(deps)
	if err != nil {
		t.Fatalf("NewGuestOrderService: %v", err)
	}
	return svc
}

func TestCreateForcesPendingStatus(t *testing.T) {
	repo := &stubGuestOrderRepo{}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
	})

	created, err := svc.Create(context.Background(), CreateGuestOrderCommand{
		OrganizationID: "org_1",
		Items:          []LineItemInput{{ProductID: "prod_1", VariantID: "var_1", Quantity: 3}},
		Customer:       validCustomer(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if created.Status != domain.OrderStatusPending {
		t.Fatalf("expected status PENDING, got %s", created.Status)
	}
	if created.CancelReason != nil || created.CanceledAt != nil || created.ClosedAt != nil {
		t.Fatalf("expected cancel/close fields to be nil")
	}
	if len(created.LineItems) != 1 || created.LineItems[0].Quantity != 3 {
		t.Fatalf("unexpected line items: %+v", created.LineItems)
	}
	if created.LineItems[0].ProductName != "Walnut Desk Organizer" {
		t.Fatalf("expected denormalised product name, got %q", created.LineItems[0].ProductName)
	}
	if created.LineItems[0].SKU != "WDO-NAT" || created.LineItems[0].VariantTitle != "Natural" {
		t.Fatalf("expected variant snapshot fields, got %+v", created.LineItems[0])
	}
	if !strings.HasPrefix(created.ID, "gord_") {
		t.Fatalf("expected gord_ id prefix, got %q", created.ID)
	}
}

func TestCreateUnknownProductDoesNotPersist(t *testing.T) {
	repo := &stubGuestOrderRepo{}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
	})

	_, err := svc.Create(context.Background(), CreateGuestOrderCommand{
		OrganizationID: "org_1",
		Items:          []LineItemInput{{ProductID: "prod_missing", VariantID: "var_1", Quantity: 1}},
		Customer:       validCustomer(),
	})
	if !errors.Is(err, ErrLineItemNotFound) {
		t.Fatalf("expected ErrLineItemNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "productId=prod_missing") {
		t.Fatalf("expected error to name the product id, got %q", err.Error())
	}
	if repo.insertCount() != 0 {
		t.Fatalf("expected no insert, got %d", repo.insertCount())
	}
}

func TestCreateForeignVariantDoesNotPersist(t *testing.T) {
	repo := &stubGuestOrderRepo{}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
	})

	_, err := svc.Create(context.Background(), CreateGuestOrderCommand{
		OrganizationID: "org_1",
		Items:          []LineItemInput{{ProductID: "prod_1", VariantID: "var_other", Quantity: 1}},
		Customer:       validCustomer(),
	})
	if !errors.Is(err, ErrLineItemNotFound) {
		t.Fatalf("expected ErrLineItemNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "productId=prod_1 variantId=var_other") {
		t.Fatalf("expected error to name the pair, got %q", err.Error())
	}
	if repo.insertCount() != 0 {
		t.Fatalf("expected no insert, got %d", repo.insertCount())
	}
}

func TestCreateBatchesCatalogLookup(t *testing.T) {
	catalog := catalogWithProduct()
	catalog.products["prod_2"] = domain.Product{
		ID:             "prod_2",
		OrganizationID: "org_1",
		Name:           "Brass Bookmark",
		Variants:       []domain.ProductVariant{{ID: "var_9", ProductID: "prod_2", Title: "Default", SKU: "BB-1"}},
	}
	repo := &stubGuestOrderRepo{}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalog,
		Organizations: knownOrganizations(),
	})

	_, err := svc.Create(context.Background(), CreateGuestOrderCommand{
		OrganizationID: "org_1",
		Items: []LineItemInput{
			{ProductID: "prod_1", VariantID: "var_1", Quantity: 1},
			{ProductID: "prod_2", VariantID: "var_9", Quantity: 2},
		},
		Customer: validCustomer(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if catalog.availableCalls != 1 {
		t.Fatalf("expected a single batched catalog query, got %d", catalog.availableCalls)
	}
}

func TestCreateMissingRefetchIsInternal(t *testing.T) {
	repo := &stubGuestOrderRepo{
		findFn: func(context.Context, string) (domain.GuestOrder, error) {
			return domain.GuestOrder{}, repoError{message: "gone", notFound: true}
		},
	}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
	})

	_, err := svc.Create(context.Background(), CreateGuestOrderCommand{
		OrganizationID: "org_1",
		Items:          []LineItemInput{{ProductID: "prod_1", VariantID: "var_1", Quantity: 1}},
		Customer:       validCustomer(),
	})
	if !errors.Is(err, ErrGuestOrderInternal) {
		t.Fatalf("expected ErrGuestOrderInternal, got %v", err)
	}
}

func TestCreateRejectsInvalidCustomer(t *testing.T) {
	cases := map[string]Customer{
		"missing name":  {NameKana: "ダミー", AddressLine1: "1-2-3", Phone: "555", Email: "a@b.c"},
		"missing kana":  {Name: "Dummy", AddressLine1: "1-2-3", Phone: "555", Email: "a@b.c"},
		"missing email": {Name: "Dummy", NameKana: "ダミー", AddressLine1: "1-2-3", Phone: "555"},
	}
	for name, customer := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, GuestOrderServiceDeps{
				Orders:        &stubGuestOrderRepo{},
				Catalog:       catalogWithProduct(),
				Organizations: knownOrganizations(),
			})
			_, err := svc.Create(context.Background(), CreateGuestOrderCommand{
				OrganizationID: "org_1",
				Customer:       customer,
			})
			if !errors.Is(err, ErrGuestOrderInvalidInput) {
				t.Fatalf("expected ErrGuestOrderInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateRejectsNonDigitAge(t *testing.T) {
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
	})
	customer := validCustomer()
	customer.Age = "3a"
	_, err := svc.Create(context.Background(), CreateGuestOrderCommand{
		OrganizationID: "org_1",
		Customer:       customer,
	})
	if !errors.Is(err, ErrGuestOrderInvalidInput) {
		t.Fatalf("expected ErrGuestOrderInvalidInput, got %v", err)
	}
}

func TestCreateAllowsEmptyItems(t *testing.T) {
	repo := &stubGuestOrderRepo{}
	catalog := catalogWithProduct()
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalog,
		Organizations: knownOrganizations(),
	})

	created, err := svc.Create(context.Background(), CreateGuestOrderCommand{
		OrganizationID: "org_1",
		Customer:       validCustomer(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.LineItems) != 0 {
		t.Fatalf("expected no line items, got %d", len(created.LineItems))
	}
	if catalog.availableCalls != 0 {
		t.Fatalf("expected no catalog query for empty items, got %d", catalog.availableCalls)
	}
}

func TestCreatePublishesEvent(t *testing.T) {
	publisher := &stubEventPublisher{}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
		Events:        publisher,
	})

	created, err := svc.Create(context.Background(), CreateGuestOrderCommand{
		OrganizationID: "org_1",
		Items:          []LineItemInput{{ProductID: "prod_1", VariantID: "var_1", Quantity: 1}},
		Customer:       validCustomer(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Type != guestOrderEventCreated || event.OrderID != created.ID || event.OrganizationID != "org_1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestCreatePublishFailureIsNonFatal(t *testing.T) {
	var logged []string
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
		Events:        &stubEventPublisher{err: errors.New("broker down")},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})

	_, err := svc.Create(context.Background(), CreateGuestOrderCommand{
		OrganizationID: "org_1",
		Items:          []LineItemInput{{ProductID: "prod_1", VariantID: "var_1", Quantity: 1}},
		Customer:       validCustomer(),
	})
	if err != nil {
		t.Fatalf("expected create to succeed despite publish failure, got %v", err)
	}
	if len(logged) != 1 || logged[0] != "guest_order.event.publish.failed" {
		t.Fatalf("expected publish failure log, got %v", logged)
	}
}

func TestCreateUnknownOrganizationDoesNotPersist(t *testing.T) {
	cases := map[string][]LineItemInput{
		"with items":  {{ProductID: "prod_1", VariantID: "var_1", Quantity: 1}},
		"empty items": nil,
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &stubGuestOrderRepo{}
			catalog := catalogWithProduct()
			svc := newTestService(t, GuestOrderServiceDeps{
				Orders:        repo,
				Catalog:       catalog,
				Organizations: knownOrganizations(),
			})

			_, err := svc.Create(context.Background(), CreateGuestOrderCommand{
				OrganizationID: "org_ghost",
				Items:          items,
				Customer:       validCustomer(),
			})
			if !errors.Is(err, ErrOrganizationNotFound) {
				t.Fatalf("expected ErrOrganizationNotFound, got %v", err)
			}
			if !strings.Contains(err.Error(), "orgId org_ghost cannot be found") {
				t.Fatalf("expected error to name the org id, got %q", err.Error())
			}
			if repo.insertCount() != 0 {
				t.Fatalf("expected no insert, got %d", repo.insertCount())
			}
			if catalog.availableCalls != 0 {
				t.Fatalf("expected no catalog query for unknown organization, got %d", catalog.availableCalls)
			}
		})
	}
}

func TestListUnknownOrganizationFails(t *testing.T) {
	listed := false
	repo := &stubGuestOrderRepo{
		listFn: func(context.Context, string, repositories.ListQuery) (domain.OffsetPage[domain.GuestOrder], error) {
			listed = true
			return domain.OffsetPage[domain.GuestOrder]{Items: []domain.GuestOrder{}}, nil
		},
	}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
	})

	_, err := svc.List(context.Background(), ListGuestOrdersQuery{OrganizationID: "org_ghost", Pagination: pagination.Params{Top: 20}})
	if !errors.Is(err, ErrOrganizationNotFound) {
		t.Fatalf("expected ErrOrganizationNotFound, got %v", err)
	}
	if listed {
		t.Fatalf("expected the store to stay untouched for an unknown organization")
	}
}

func TestGetScopedToOrganization(t *testing.T) {
	repo := &stubGuestOrderRepo{}
	repo.inserts = []domain.GuestOrder{{ID: "gord_1", OrganizationID: "org_A", Status: domain.OrderStatusPending}}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
	})

	_, err := svc.Get(context.Background(), GetGuestOrderQuery{OrganizationID: "org_B", OrderID: "gord_1"})
	if !errors.Is(err, ErrGuestOrderNotFound) {
		t.Fatalf("expected ErrGuestOrderNotFound for foreign organization, got %v", err)
	}

	found, err := svc.Get(context.Background(), GetGuestOrderQuery{OrganizationID: "org_A", OrderID: "gord_1"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found.ID != "gord_1" {
		t.Fatalf("unexpected order: %+v", found)
	}
}

func TestVerifyOrderOwnership(t *testing.T) {
	repo := &stubGuestOrderRepo{}
	repo.inserts = []domain.GuestOrder{{ID: "gord_1", OrganizationID: "org_A"}}
	orgs := &stubOrganizationGateway{orgs: map[string]domain.Organization{
		"org_A": {ID: "org_A", Name: "Org A"},
		"org_B": {ID: "org_B", Name: "Org B"},
	}}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalogWithProduct(),
		Organizations: orgs,
	})

	if err := svc.VerifyOrderOwnership(context.Background(), "org_A", "gord_1"); err != nil {
		t.Fatalf("expected ownership check to pass, got %v", err)
	}

	err := svc.VerifyOrderOwnership(context.Background(), "org_missing", "gord_1")
	if !errors.Is(err, ErrOrganizationNotFound) {
		t.Fatalf("expected ErrOrganizationNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "org_missing") {
		t.Fatalf("expected error to name the org id, got %q", err.Error())
	}

	err = svc.VerifyOrderOwnership(context.Background(), "org_A", "gord_missing")
	if !errors.Is(err, ErrGuestOrderNotFound) {
		t.Fatalf("expected ErrGuestOrderNotFound, got %v", err)
	}

	err = svc.VerifyOrderOwnership(context.Background(), "org_B", "gord_1")
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected ErrOrderForbidden, got %v", err)
	}
	if !strings.Contains(err.Error(), "gord_1") || !strings.Contains(err.Error(), "org_B") {
		t.Fatalf("expected error to name both ids, got %q", err.Error())
	}
}

func TestListReturnsPageWithTokens(t *testing.T) {
	orders := []domain.GuestOrder{
		{ID: "gord_2", OrganizationID: "org_1", Status: domain.OrderStatusPending},
		{ID: "gord_1", OrganizationID: "org_1", Status: domain.OrderStatusPending},
	}
	var captured repositories.ListQuery
	repo := &stubGuestOrderRepo{
		listFn: func(_ context.Context, organizationID string, query repositories.ListQuery) (domain.OffsetPage[domain.GuestOrder], error) {
			if organizationID != "org_1" {
				return domain.OffsetPage[domain.GuestOrder]{Items: []domain.GuestOrder{}}, nil
			}
			captured = query
			return domain.OffsetPage[domain.GuestOrder]{
				Items:     orders,
				Count:     2,
				Total:     5,
				NextToken: "next-tok",
			}, nil
		},
	}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
	})

	page, err := svc.List(context.Background(), ListGuestOrdersQuery{
		OrganizationID: "org_1",
		Pagination: pagination.Params{
			Top:     2,
			Skip:    0,
			Orders:  []pagination.Order{{Field: "createdAt", Desc: true}},
			Filters: []pagination.Filter{{Field: "status", Op: "==", Value: "PENDING"}},
		},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Count != 2 || page.Total != 5 || page.NextToken != "next-tok" || page.PreviousToken != "" {
		t.Fatalf("unexpected page envelope: %+v", page)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "gord_2" {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
	if captured.Top != 2 || len(captured.Orders) != 1 || !captured.Orders[0].Desc {
		t.Fatalf("unexpected repository query: %+v", captured)
	}
	if len(captured.Filters) != 1 || captured.Filters[0].Field != "status" {
		t.Fatalf("expected status filter to pass through, got %+v", captured.Filters)
	}
}

func TestListUnexpandedOrganizationStaysRawID(t *testing.T) {
	repo := &stubGuestOrderRepo{
		listFn: func(context.Context, string, repositories.ListQuery) (domain.OffsetPage[domain.GuestOrder], error) {
			return domain.OffsetPage[domain.GuestOrder]{
				Items: []domain.GuestOrder{{ID: "gord_1", OrganizationID: "org_1"}},
				Count: 1,
				Total: 1,
			}, nil
		},
	}
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        repo,
		Catalog:       catalogWithProduct(),
		Organizations: &stubOrganizationGateway{orgs: map[string]domain.Organization{"org_1": {ID: "org_1"}}},
	})

	page, err := svc.List(context.Background(), ListGuestOrdersQuery{OrganizationID: "org_1", Pagination: pagination.Params{Top: 20}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	org, ok := page.Items[0].Organization.(string)
	if !ok || org != "org_1" {
		t.Fatalf("expected raw organization id string, got %#v", page.Items[0].Organization)
	}
}

func TestMapRepositoryErrorCategories(t *testing.T) {
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalogWithProduct(),
		Organizations: knownOrganizations(),
	}).(*guestOrderService)

	if err := svc.mapRepositoryError(repoError{message: "missing", notFound: true}); !errors.Is(err, ErrGuestOrderNotFound) {
		t.Fatalf("expected ErrGuestOrderNotFound, got %v", err)
	}
	if err := svc.mapRepositoryError(repoError{message: "dup", conflict: true}); !errors.Is(err, ErrGuestOrderConflict) {
		t.Fatalf("expected ErrGuestOrderConflict, got %v", err)
	}
	plain := errors.New("boom")
	if err := svc.mapRepositoryError(plain); !errors.Is(err, plain) {
		t.Fatalf("expected passthrough, got %v", err)
	}
}
