package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
)

const (
	defaultGatewayTimeout = 10 * time.Second
	maxErrorBodyBytes     = 2048
)

// ErrNotFound reports that the upstream service has no record for the id.
var ErrNotFound = errors.New("gateways: resource not found")

// CatalogGateway reads published products from the catalog service.
type CatalogGateway interface {
	// AvailableProducts runs a single batched query for the organization's
	// published products restricted to the requested ids, variants included.
	AvailableProducts(ctx context.Context, organizationID string, productIDs []string) ([]domain.Product, error)
	// GetProduct fetches one product with its variants expanded.
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// CatalogGatewayDeps carries the dependencies for NewCatalogGateway.
type CatalogGatewayDeps struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type catalogGateway struct {
	base   *url.URL
	client *http.Client
}

// NewCatalogGateway constructs a catalog gateway over the service's HTTP API.
func NewCatalogGateway(deps CatalogGatewayDeps) (CatalogGateway, error) {
	base, err := parseBaseURL(deps.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog gateway: %w", err)
	}

	client := deps.HTTPClient
	if client == nil {
		client = newHTTPClient(deps.Timeout)
	}

	return &catalogGateway{
		base:   base,
		client: client,
	}, nil
}

func (g *catalogGateway) AvailableProducts(ctx context.Context, organizationID string, productIDs []string) ([]domain.Product, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, errors.New("catalog gateway: organization id is required")
	}
	ids := dedupeIDs(productIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("$filter", batchFilter(organizationID, ids))
	query.Set("$top", strconv.Itoa(len(ids)))
	query.Set("$expand", "variants")

	endpoint := g.base.JoinPath("products")
	endpoint.RawQuery = query.Encode()

	var envelope struct {
		Value []productPayload `json:"value"`
	}
	if err := g.getJSON(ctx, endpoint.String(), &envelope); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(envelope.Value))
	for _, payload := range envelope.Value {
		products = append(products, payload.toDomain())
	}
	return products, nil
}

func (g *catalogGateway) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("catalog gateway: product id is required")
	}

	endpoint := g.base.JoinPath("products", productID)
	endpoint.RawQuery = url.Values{"$expand": []string{"variants"}}.Encode()

	var payload productPayload
	if err := g.getJSON(ctx, endpoint.String(), &payload); err != nil {
		return domain.Product{}, err
	}
	return payload.toDomain(), nil
}

func (g *catalogGateway) getJSON(ctx context.Context, endpoint string, target any) error {
	return getJSON(ctx, g.client, endpoint, target)
}

// batchFilter renders the catalog filter expression restricting results to
// published products of the organization with the requested ids.
func batchFilter(organizationID string, ids []string) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, "'"+id+"'")
	}
	return fmt.Sprintf("organizationId eq '%s' and id in [%s]", organizationID, strings.Join(quoted, ","))
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type productPayload struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organizationId"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Status         string           `json:"status"`
	Variants       []variantPayload `json:"variants"`
	CustomFields   map[string]any   `json:"customFields"`
}

type variantPayload struct {
	ID           string         `json:"id"`
	ProductID    string         `json:"productId"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	SKU          string         `json:"sku"`
	CustomFields map[string]any `json:"customFields"`
}

func (p productPayload) toDomain() domain.Product {
	product := domain.Product{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Description:    p.Description,
		Status:         p.Status,
		CustomFields:   p.CustomFields,
	}
	for _, variant := range p.Variants {
		product.Variants = append(product.Variants, domain.ProductVariant{
			ID:           variant.ID,
			ProductID:    variant.ProductID,
			Title:        variant.Title,
			Description:  variant.Description,
			SKU:          variant.SKU,
			CustomFields: variant.CustomFields,
		})
	}
	return product
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", raw)
	}
	return base, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// getJSON issues a single GET and decodes the JSON response into target.
// A 404 maps to ErrNotFound; every other failure propagates immediately.
func getJSON(ctx context.Context, client *http.Client, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("gateways: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gateways: request %s: %w", endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		drainBody(resp)
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case resp.StatusCode >= 400:
		body := readErrorBody(resp)
		return fmt.Errorf("gateways: %s returned %d: %s", endpoint, resp.StatusCode, body)
	}

	err = json.NewDecoder(resp.Body).Decode(target)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("gateways: decode response from %s: %w", endpoint, err)
	}
	return nil
}

func readErrorBody(resp *http.Response) string {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	resp.Body.Close()
}
