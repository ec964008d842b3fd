package gateways

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
)

// OrganizationGateway reads organization records from the organization service.
type OrganizationGateway interface {
	GetOrganization(ctx context.Context, organizationID string) (domain.Organization, error)
}

// OrganizationGatewayDeps carries the dependencies for NewOrganizationGateway.
type OrganizationGatewayDeps struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type organizationGateway struct {
	base   *url.URL
	client *http.Client
}

// NewOrganizationGateway constructs an organization gateway over the service's HTTP API.
func NewOrganizationGateway(deps OrganizationGatewayDeps) (OrganizationGateway, error) {
	base, err := parseBaseURL(deps.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("organization gateway: %w", err)
	}

	client := deps.HTTPClient
	if client == nil {
		client = newHTTPClient(deps.Timeout)
	}

	return &organizationGateway{
		base:   base,
		client: client,
	}, nil
}

func (g *organizationGateway) GetOrganization(ctx context.Context, organizationID string) (domain.Organization, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return domain.Organization{}, errors.New("organization gateway: organization id is required")
	}

	endpoint := g.base.JoinPath("organizations", organizationID)

	var payload organizationPayload
	if err := getJSON(ctx, g.client, endpoint.String(), &payload); err != nil {
		return domain.Organization{}, err
	}
	return payload.toDomain(), nil
}

type organizationPayload struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Addresses    []string       `json:"addresses"`
	Phone        string         `json:"phoneNumber"`
	Email        string         `json:"email"`
	Status       string         `json:"status"`
	CustomFields map[string]any `json:"customFields"`
}

func (p organizationPayload) toDomain() domain.Organization {
	return domain.Organization{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Addresses:    p.Addresses,
		Phone:        p.Phone,
		Email:        p.Email,
		Status:       p.Status,
		CustomFields: p.CustomFields,
	}
}
