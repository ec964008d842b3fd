package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/commerce-blocks/guest-orders/internal/gateways"
)

// validateCustomFields checks submitted values against the configured field
// definitions. Unknown names are rejected because the create schema forbids
// additional properties.
func (s *guestOrderService) validateCustomFields(values map[string]any) error {
	defs := make(map[string]CustomFieldDefinition, len(s.customFields))
	for _, def := range s.customFields {
		defs[def.Name] = def
	}

	for name, value := range values {
		def, ok := defs[name]
		if !ok {
			return fmt.Errorf("%w: unknown custom field %q", ErrGuestOrderInvalidInput, name)
		}
		if err := checkCustomFieldType(def, value); err != nil {
			return err
		}
	}

	for _, def := range s.customFields {
		if !def.Required {
			continue
		}
		if _, ok := values[def.Name]; !ok {
			return fmt.Errorf("%w: custom field %q is required", ErrGuestOrderInvalidInput, def.Name)
		}
	}
	return nil
}

func checkCustomFieldType(def CustomFieldDefinition, value any) error {
	if value == nil {
		return nil
	}
	switch def.Type {
	case "number":
		switch value.(type) {
		case float64, int, int64:
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	default:
		// string, product, and organization fields all carry string values.
		if _, ok := value.(string); ok {
			return nil
		}
	}
	return fmt.Errorf("%w: custom field %q must be of type %s", ErrGuestOrderInvalidInput, def.Name, def.Type)
}

// expandCustomFields passes the stored mapping through unchanged unless the
// caller asked for specific fields. Requested fields whose definition names a
// referenced entity type are resolved through the matching gateway; the raw
// value is kept when the referenced record no longer exists.
func (s *guestOrderService) expandCustomFields(ctx context.Context, requested map[string]bool, values map[string]any) (map[string]any, error) {
	if len(requested) == 0 || len(values) == 0 {
		return values, nil
	}

	defs := make(map[string]CustomFieldDefinition, len(s.customFields))
	for _, def := range s.customFields {
		defs[def.Name] = def
	}

	expanded := make(map[string]any, len(values))
	for name, value := range values {
		expanded[name] = value
		if !requested[name] {
			continue
		}
		id, ok := value.(string)
		if !ok {
			continue
		}
		record, err := s.fetchCustomFieldRecord(ctx, defs[name].Type, id)
		if err != nil {
			if errors.Is(err, gateways.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if record != nil {
			expanded[name] = record
		}
	}
	return expanded, nil
}

func (s *guestOrderService) fetchCustomFieldRecord(ctx context.Context, fieldType, id string) (any, error) {
	switch fieldType {
	case "product":
		product, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		return product, nil
	case "organization":
		org, err := s.organizations.GetOrganization(ctx, id)
		if err != nil {
			return nil, err
		}
		return org, nil
	default:
		return nil, nil
	}
}
