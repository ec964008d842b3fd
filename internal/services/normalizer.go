package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
	"github.com/commerce-blocks/guest-orders/internal/gateways"
)

const customFieldExpandPrefix = "customFields."

// expandFlags is the parsed form of a comma-separated $expand directive.
type expandFlags struct {
	organization    bool
	lineItemProduct bool
	lineItemVariant bool
	customFields    map[string]bool
}

func parseExpand(directive string) expandFlags {
	flags := expandFlags{customFields: map[string]bool{}}
	for _, field := range strings.Split(directive, ",") {
		switch field {
		case "organization":
			flags.organization = true
		case "lineItems.product":
			flags.lineItemProduct = true
		case "lineItems.variant":
			flags.lineItemVariant = true
		default:
			if name, ok := strings.CutPrefix(field, customFieldExpandPrefix); ok && name != "" {
				flags.customFields[name] = true
			}
		}
	}
	return flags
}

func (s *guestOrderService) normalizeOrder(ctx context.Context, directive string, order domain.GuestOrder) (NormalizedGuestOrder, error) {
	return s.normalize(ctx, parseExpand(directive), order)
}

func (s *guestOrderService) normalizeOrders(ctx context.Context, directive string, orders []domain.GuestOrder) ([]NormalizedGuestOrder, error) {
	flags := parseExpand(directive)
	normalized := make([]NormalizedGuestOrder, len(orders))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, order := range orders {
		group.Go(func() error {
			view, err := s.normalize(groupCtx, flags, order)
			if err != nil {
				return err
			}
			normalized[i] = view
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return normalized, nil
}

// normalize rebuilds the read-side projection for one order. The three
// expansions are independent of each other and run concurrently; the first
// failure cancels the rest.
func (s *guestOrderService) normalize(ctx context.Context, flags expandFlags, order domain.GuestOrder) (NormalizedGuestOrder, error) {
	var (
		customFields map[string]any
		organization any
		lineItems    []NormalizedLineItem
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		expanded, err := s.expandCustomFields(groupCtx, flags.customFields, order.CustomFields)
		if err != nil {
			return err
		}
		customFields = expanded
		return nil
	})
	group.Go(func() error {
		expanded, err := s.expandOrganization(groupCtx, flags, order.OrganizationID)
		if err != nil {
			return err
		}
		organization = expanded
		return nil
	})
	group.Go(func() error {
		expanded, err := s.expandLineItems(groupCtx, flags, order.LineItems)
		if err != nil {
			return err
		}
		lineItems = expanded
		return nil
	})
	if err := group.Wait(); err != nil {
		return NormalizedGuestOrder{}, err
	}

	return NormalizedGuestOrder{
		ID:           order.ID,
		Organization: organization,
		LineItems:    lineItems,
		Customer:     order.Customer,
		Status:       order.Status,
		CancelReason: order.CancelReason,
		CanceledAt:   order.CanceledAt,
		ClosedAt:     order.ClosedAt,
		CustomFields: customFields,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}, nil
}

// expandOrganization returns the raw organization id unless expansion was
// requested. A vanished organization is not an error here; the raw id is
// embedded instead so reads of historical orders keep working.
func (s *guestOrderService) expandOrganization(ctx context.Context, flags expandFlags, organizationID string) (any, error) {
	if !flags.organization {
		return organizationID, nil
	}
	org, err := s.organizations.GetOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, gateways.ErrNotFound) {
			return organizationID, nil
		}
		return nil, err
	}
	return org, nil
}

// expandLineItems re-fetches the current catalog product for every line item.
// The live fetch is a prerequisite for interpreting the item even when no
// expansion was requested, so variant expansion can fail at read time if the
// catalog has since dropped the variant.
func (s *guestOrderService) expandLineItems(ctx context.Context, flags expandFlags, items []domain.ProductItem) ([]NormalizedLineItem, error) {
	normalized := make([]NormalizedLineItem, len(items))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, item := range items {
		group.Go(func() error {
			view := NormalizedLineItem{
				ProductName:  item.ProductName,
				Quantity:     item.Quantity,
				SKU:          item.SKU,
				VariantTitle: item.VariantTitle,
				Product:      item.ProductID,
				Variants:     item.VariantID,
			}
			product, err := s.catalog.GetProduct(groupCtx, item.ProductID)
			if err != nil {
				return err
			}
			if flags.lineItemProduct {
				view.Product = product
			}
			if flags.lineItemVariant {
				variant, ok := findVariant(product, item.VariantID)
				if !ok {
					return errVariantMissing(item.ProductID, item.VariantID)
				}
				view.Variants = VariantSummary{
					ID:          variant.ID,
					Description: variant.Description,
					SKU:         variant.SKU,
					Title:       variant.Title,
					ProductID:   variant.ProductID,
				}
			}
			normalized[i] = view
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return normalized, nil
}
