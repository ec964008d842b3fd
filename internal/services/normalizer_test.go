package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
)

func storedOrder() domain.GuestOrder {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return domain.GuestOrder{
		ID:             "gord_1",
		OrganizationID: "org_1",
		LineItems: []domain.ProductItem{{
			ProductID:    "prod_1",
			ProductName:  "Walnut Desk Organizer",
			Quantity:     2,
			SKU:          "WDO-NAT",
			VariantID:    "var_1",
			VariantTitle: "Natural",
		}},
		Customer:  validCustomer(),
		Status:    domain.OrderStatusPending,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestParseExpand(t *testing.T) {
	flags := parseExpand("organization,lineItems.product,lineItems.variant,customFields.giftNote")
	if !flags.organization || !flags.lineItemProduct || !flags.lineItemVariant {
		t.Fatalf("unexpected flags: %+v", flags)
	}
	if !flags.customFields["giftNote"] {
		t.Fatalf("expected giftNote custom field flag, got %v", flags.customFields)
	}

	flags = parseExpand("")
	if flags.organization || flags.lineItemProduct || flags.lineItemVariant || len(flags.customFields) != 0 {
		t.Fatalf("expected empty directive to set no flags, got %+v", flags)
	}

	flags = parseExpand("customFields.")
	if len(flags.customFields) != 0 {
		t.Fatalf("expected empty custom field name to be ignored, got %v", flags.customFields)
	}
}

func TestNormalizeWithoutExpansionKeepsRawIDs(t *testing.T) {
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalogWithProduct(),
		Organizations: &stubOrganizationGateway{orgs: map[string]domain.Organization{"org_1": {ID: "org_1"}}},
	}).(*guestOrderService)

	view, err := svc.normalizeOrder(context.Background(), "", storedOrder())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if org, ok := view.Organization.(string); !ok || org != "org_1" {
		t.Fatalf("expected raw organization id, got %#v", view.Organization)
	}
	item := view.LineItems[0]
	if product, ok := item.Product.(string); !ok || product != "prod_1" {
		t.Fatalf("expected raw product id, got %#v", item.Product)
	}
	if variant, ok := item.Variants.(string); !ok || variant != "var_1" {
		t.Fatalf("expected raw variant id, got %#v", item.Variants)
	}
	if item.ProductName != "Walnut Desk Organizer" || item.Quantity != 2 {
		t.Fatalf("unexpected snapshot fields: %+v", item)
	}
}

func TestNormalizeExpandsProductAndVariant(t *testing.T) {
	catalog := catalogWithProduct()
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalog,
		Organizations: &stubOrganizationGateway{},
	}).(*guestOrderService)

	view, err := svc.normalizeOrder(context.Background(), "lineItems.product,lineItems.variant", storedOrder())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	item := view.LineItems[0]
	product, ok := item.Product.(domain.Product)
	if !ok || product.ID != "prod_1" {
		t.Fatalf("expected expanded product record, got %#v", item.Product)
	}
	variant, ok := item.Variants.(VariantSummary)
	if !ok {
		t.Fatalf("expected reduced variant record, got %#v", item.Variants)
	}
	want := VariantSummary{
		ID:          "var_1",
		Description: "Natural walnut finish",
		SKU:         "WDO-NAT",
		Title:       "Natural",
		ProductID:   "prod_1",
	}
	if !reflect.DeepEqual(variant, want) {
		t.Fatalf("unexpected variant summary: %+v", variant)
	}
}

func TestNormalizeVariantRemovedFromCatalogFails(t *testing.T) {
	catalog := catalogWithProduct()
	product := catalog.products["prod_1"]
	product.Variants = product.Variants[1:]
	catalog.products["prod_1"] = product

	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalog,
		Organizations: &stubOrganizationGateway{},
	}).(*guestOrderService)

	_, err := svc.normalizeOrder(context.Background(), "lineItems.variant", storedOrder())
	if !errors.Is(err, ErrLineItemNotFound) {
		t.Fatalf("expected ErrLineItemNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "productId=prod_1 variantId=var_1") {
		t.Fatalf("expected error to name the pair, got %q", err.Error())
	}
}

func TestNormalizeExpandsOrganization(t *testing.T) {
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalogWithProduct(),
		Organizations: &stubOrganizationGateway{orgs: map[string]domain.Organization{"org_1": {ID: "org_1", Name: "Atelier One"}}},
	}).(*guestOrderService)

	view, err := svc.normalizeOrder(context.Background(), "organization", storedOrder())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	org, ok := view.Organization.(domain.Organization)
	if !ok || org.Name != "Atelier One" {
		t.Fatalf("expected expanded organization, got %#v", view.Organization)
	}
}

func TestNormalizeMissingOrganizationFallsBackToID(t *testing.T) {
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalogWithProduct(),
		Organizations: &stubOrganizationGateway{},
	}).(*guestOrderService)

	view, err := svc.normalizeOrder(context.Background(), "organization", storedOrder())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if org, ok := view.Organization.(string); !ok || org != "org_1" {
		t.Fatalf("expected fallback to raw id, got %#v", view.Organization)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalogWithProduct(),
		Organizations: &stubOrganizationGateway{orgs: map[string]domain.Organization{"org_1": {ID: "org_1"}}},
	}).(*guestOrderService)

	directive := "organization,lineItems.product,lineItems.variant"
	first, err := svc.normalizeOrder(context.Background(), directive, storedOrder())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	second, err := svc.normalizeOrder(context.Background(), directive, storedOrder())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical normalized output for repeated reads")
	}
}

func TestNormalizeOrdersPreservesOrder(t *testing.T) {
	svc := newTestService(t, GuestOrderServiceDeps{
		Orders:        &stubGuestOrderRepo{},
		Catalog:       catalogWithProduct(),
		Organizations: &stubOrganizationGateway{},
	}).(*guestOrderService)

	first := storedOrder()
	second := storedOrder()
	second.ID = "gord_2"
	third := storedOrder()
	third.ID = "gord_3"

	views, err := svc.normalizeOrders(context.Background(), "", []domain.GuestOrder{first, second, third})
	if err != nil {
		t.Fatalf("normalizeOrders: %v", err)
	}
	if len(views) != 3 || views[0].ID != "gord_1" || views[1].ID != "gord_2" || views[2].ID != "gord_3" {
		t.Fatalf("expected input order preserved, got %+v", views)
	}
}
