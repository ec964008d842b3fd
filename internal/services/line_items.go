package services

import (
	"context"
	"fmt"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
)

// resolveLineItems resolves requested items against the organization's
// published catalog with a single batched query and returns one persisted
// line item per input, preserving input order. A single unmatched product or
// variant fails the whole resolution before anything is persisted.
func (s *guestOrderService) resolveLineItems(ctx context.Context, organizationID string, items []LineItemInput) ([]domain.ProductItem, error) {
	if len(items) == 0 {
		return []domain.ProductItem{}, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.AvailableProducts(ctx, organizationID, ids)
	if err != nil {
		return nil, fmt.Errorf("guest order: catalog lookup: %w", err)
	}

	byID := make(map[string]domain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	resolved := make([]domain.ProductItem, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, errProductMissing(item.ProductID)
		}
		variant, ok := findVariant(product, item.VariantID)
		if !ok {
			return nil, errVariantMissing(item.ProductID, item.VariantID)
		}
		resolved = append(resolved, domain.ProductItem{
			ProductID:    item.ProductID,
			ProductName:  product.Name,
			Quantity:     item.Quantity,
			SKU:          variant.SKU,
			VariantID:    item.VariantID,
			VariantTitle: variant.Title,
		})
	}
	return resolved, nil
}

func findVariant(product domain.Product, variantID string) (domain.ProductVariant, bool) {
	for _, variant := range product.Variants {
		if variant.ID == variantID {
			return variant, true
		}
	}
	return domain.ProductVariant{}, false
}

func errProductMissing(productID string) error {
	return fmt.Errorf("%w: Could not find item productId=%s: Ensure the product exists in the organization and is published (status=ACTIVE & since/until include current date)", ErrLineItemNotFound, productID)
}

func errVariantMissing(productID, variantID string) error {
	return fmt.Errorf("%w: Could not find item productId=%s variantId=%s: Ensure the product and variant exist and are published (status=ACTIVE & since/until include current date)", ErrLineItemNotFound, productID, variantID)
}
