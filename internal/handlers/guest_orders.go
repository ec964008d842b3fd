package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commerce-blocks/guest-orders/internal/platform/httpx"
	"github.com/commerce-blocks/guest-orders/internal/platform/pagination"
	"github.com/commerce-blocks/guest-orders/internal/services"
)

const maxGuestOrderBodySize = 64 * 1024

type createGuestOrderRequest struct {
	Customer     *customerPayload  `json:"customer"`
	Items        []lineItemPayload `json:"items"`
	Status       string            `json:"status"`
	CustomFields map[string]any    `json:"customFields"`
}

type customerPayload struct {
	Name                   string `json:"name"`
	NameKana               string `json:"nameKana"`
	AddressLine1           string `json:"addressLine1"`
	AddressLine2           string `json:"addressLine2"`
	AddressLine3           string `json:"addressLine3"`
	Phone                  string `json:"phone"`
	Email                  string `json:"email"`
	Age                    string `json:"age"`
	PreferredContactMethod string `json:"preferredContactMethod"`
	PreferredTimeToContact string `json:"preferredTimeToContact"`
}

type lineItemPayload struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type guestOrderListResponse struct {
	NextLink     string                          `json:"@nextLink"`
	PreviousLink string                          `json:"@previousLink"`
	Count        int                             `json:"count"`
	Total        int                             `json:"total"`
	Value        []services.NormalizedGuestOrder `json:"value"`
}

// GuestOrderHandlers exposes the organization-scoped guest order endpoints.
type GuestOrderHandlers struct {
	orders        services.GuestOrderService
	pagination    pagination.Options
	createLimiter *createLimiter
}

// GuestOrderOption customises the guest order handlers.
type GuestOrderOption func(*GuestOrderHandlers)

// WithCreateRateLimit throttles order creation per client address. Guest
// endpoints carry no authentication, so the remote address is the only
// throttling key available.
func WithCreateRateLimit(limit int, window time.Duration) GuestOrderOption {
	return func(h *GuestOrderHandlers) {
		h.createLimiter = newCreateLimiter(limit, window, nil)
	}
}

// NewGuestOrderHandlers constructs a new GuestOrderHandlers instance.
func NewGuestOrderHandlers(orders services.GuestOrderService, paginationOpts pagination.Options, opts ...GuestOrderOption) *GuestOrderHandlers {
	h := &GuestOrderHandlers{
		orders:     orders,
		pagination: paginationOpts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the public guest order endpoints.
func (h *GuestOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/{orgID}/guest/orders", func(r chi.Router) {
		r.Post("/", h.createGuestOrder)
		r.Get("/", h.listGuestOrders)
		r.Get("/{orderID}", h.getGuestOrder)
	})
}

// InternalRoutes registers the privileged order lookup guarded by the
// unscoped ownership check. Unlike the public get, an ownership mismatch here
// is reported as forbidden rather than not found.
func (h *GuestOrderHandlers) InternalRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.With(h.requireOrderOwnership).Get("/orgs/{orgID}/guest/orders/{orderID}", h.getGuestOrder)
}

func (h *GuestOrderHandlers) createGuestOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("guest_order_service_unavailable", "guest order service unavailable", http.StatusServiceUnavailable))
		return
	}

	if !h.createLimiter.allow(r.RemoteAddr) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many order creation requests", http.StatusTooManyRequests))
		return
	}

	orgID := strings.TrimSpace(chi.URLParam(r, "orgID"))
	if orgID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "orgId is missing in params", http.StatusBadRequest))
		return
	}

	var body createGuestOrderRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxGuestOrderBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not a valid create order payload: "+err.Error(), http.StatusBadRequest))
		return
	}
	if body.Customer == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer is required", http.StatusBadRequest))
		return
	}

	items := make([]services.LineItemInput, 0, len(body.Items))
	for _, item := range body.Items {
		items = append(items, services.LineItemInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	created, err := h.orders.Create(ctx, services.CreateGuestOrderCommand{
		OrganizationID: orgID,
		Items:          items,
		Customer: services.Customer{
			Name:                   body.Customer.Name,
			NameKana:               body.Customer.NameKana,
			AddressLine1:           body.Customer.AddressLine1,
			AddressLine2:           body.Customer.AddressLine2,
			AddressLine3:           body.Customer.AddressLine3,
			Phone:                  body.Customer.Phone,
			Email:                  body.Customer.Email,
			Age:                    body.Customer.Age,
			PreferredContactMethod: body.Customer.PreferredContactMethod,
			PreferredTimeToContact: body.Customer.PreferredTimeToContact,
		},
		CustomFields: body.CustomFields,
		Expand:       r.URL.Query().Get("$expand"),
	})
	if err != nil {
		writeGuestOrderError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *GuestOrderHandlers) getGuestOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("guest_order_service_unavailable", "guest order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orgID := strings.TrimSpace(chi.URLParam(r, "orgID"))
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orgID == "" || orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "orgId and orderId are required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Get(ctx, services.GetGuestOrderQuery{
		OrganizationID: orgID,
		OrderID:        orderID,
		Expand:         r.URL.Query().Get("$expand"),
	})
	if err != nil {
		writeGuestOrderError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *GuestOrderHandlers) listGuestOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("guest_order_service_unavailable", "guest order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orgID := strings.TrimSpace(chi.URLParam(r, "orgID"))
	if orgID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "orgId is missing in params", http.StatusBadRequest))
		return
	}

	params, err := pagination.Parse(r.URL.Query(), h.pagination)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("wrong_parameter", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.orders.List(ctx, services.ListGuestOrdersQuery{
		OrganizationID: orgID,
		Pagination:     params,
		Expand:         r.URL.Query().Get("$expand"),
	})
	if err != nil {
		writeGuestOrderError(ctx, w, err)
		return
	}

	value := page.Items
	if value == nil {
		value = []services.NormalizedGuestOrder{}
	}

	writeJSON(w, http.StatusOK, guestOrderListResponse{
		NextLink:     pagination.BuildPageLink(r.Host, r.URL.Path, page.NextToken, params.Top),
		PreviousLink: pagination.BuildPageLink(r.Host, r.URL.Path, page.PreviousToken, params.Top),
		Count:        page.Count,
		Total:        page.Total,
		Value:        value,
	})
}

// requireOrderOwnership gates a route on the unscoped order lookup followed
// by an explicit organization comparison.
func (h *GuestOrderHandlers) requireOrderOwnership(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orgID := strings.TrimSpace(chi.URLParam(r, "orgID"))
		orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
		if err := h.orders.VerifyOrderOwnership(ctx, orgID, orderID); err != nil {
			writeGuestOrderError(ctx, w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeGuestOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrGuestOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrLineItemNotFound):
		// Catalog mismatches keep the not_found code but are the caller's
		// fault, so they surface as a 400.
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrganizationNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrGuestOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "operation failed to get an order", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("no_permission", err.Error(), http.StatusForbidden))
	case errors.Is(err, services.ErrGuestOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("guest_order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrGuestOrderInternal):
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "operation failed to create order", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("guest_order_error", "failed to process guest order request", http.StatusInternalServerError))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
