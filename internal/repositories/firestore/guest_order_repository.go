package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/commerce-blocks/guest-orders/internal/domain"
	pfirestore "github.com/commerce-blocks/guest-orders/internal/platform/firestore"
	"github.com/commerce-blocks/guest-orders/internal/platform/pagination"
	"github.com/commerce-blocks/guest-orders/internal/repositories"
)

const guestOrdersCollection = "guest_orders"

// GuestOrderRepository persists guest order documents in Firestore.
type GuestOrderRepository struct {
	base *pfirestore.BaseRepository[guestOrderDocument]
}

var _ repositories.GuestOrderRepository = (*GuestOrderRepository)(nil)

// NewGuestOrderRepository constructs a Firestore-backed guest order repository.
func NewGuestOrderRepository(provider *pfirestore.Provider) (*GuestOrderRepository, error) {
	if provider == nil {
		return nil, errors.New("guest order repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[guestOrderDocument](provider, guestOrdersCollection, nil, nil)
	return &GuestOrderRepository{base: base}, nil
}

// Insert stores a new guest order document. The ID must be unique.
func (r *GuestOrderRepository) Insert(ctx context.Context, order domain.GuestOrder) error {
	if r == nil || r.base == nil {
		return errors.New("guest order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("guest order repository: order id is required")
	}
	if _, err := r.base.Create(ctx, orderID, encodeGuestOrderDocument(order)); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single guest order regardless of organization scope.
func (r *GuestOrderRepository) FindByID(ctx context.Context, orderID string) (domain.GuestOrder, error) {
	if r == nil || r.base == nil {
		return domain.GuestOrder{}, errors.New("guest order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.GuestOrder{}, errors.New("guest order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.GuestOrder{}, err
	}
	return decodeGuestOrderDocument(doc.ID, doc.Data), nil
}

// FindByIDInOrganization fetches a guest order and reports not-found when the
// document belongs to another organization.
func (r *GuestOrderRepository) FindByIDInOrganization(ctx context.Context, organizationID, orderID string) (domain.GuestOrder, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return domain.GuestOrder{}, errors.New("guest order repository: organization id is required")
	}
	order, err := r.FindByID(ctx, orderID)
	if err != nil {
		return domain.GuestOrder{}, err
	}
	if order.OrganizationID != organizationID {
		return domain.GuestOrder{}, pfirestore.WrapError("guest_orders.find",
			status.Errorf(codes.NotFound, "order %s not found in organization %s", orderID, organizationID))
	}
	return order, nil
}

// ListByOrganization pages through an organization's guest orders using
// offset pagination. The organization scope is merged into caller filters.
func (r *GuestOrderRepository) ListByOrganization(ctx context.Context, organizationID string, query repositories.ListQuery) (domain.OffsetPage[domain.GuestOrder], error) {
	if r == nil || r.base == nil {
		return domain.OffsetPage[domain.GuestOrder]{}, errors.New("guest order repository not initialised")
	}
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return domain.OffsetPage[domain.GuestOrder]{}, errors.New("guest order repository: organization id is required")
	}

	top := query.Top
	if top < 0 {
		top = 0
	}
	skip := query.Skip
	if skip < 0 {
		skip = 0
	}

	scoped := func(q firestore.Query) firestore.Query {
		q = q.Where("organizationId", "==", organizationID)
		for _, filter := range query.Filters {
			q = q.Where(filter.Field, string(filter.Op), filter.Value)
		}
		return q
	}

	totalCount, err := r.base.Count(ctx, scoped)
	if err != nil {
		return domain.OffsetPage[domain.GuestOrder]{}, err
	}
	total := int(totalCount)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = scoped(q)
		for _, order := range query.Orders {
			direction := firestore.Asc
			if order.Desc {
				direction = firestore.Desc
			}
			q = q.OrderBy(order.Field, direction)
		}
		if len(query.Orders) == 0 {
			q = q.OrderBy("createdAt", firestore.Desc)
		}
		q = q.OrderBy(firestore.DocumentID, firestore.Desc)
		if skip > 0 {
			q = q.Offset(skip)
		}
		if top > 0 {
			q = q.Limit(top)
		}
		return q
	})
	if err != nil {
		return domain.OffsetPage[domain.GuestOrder]{}, err
	}

	items := make([]domain.GuestOrder, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeGuestOrderDocument(doc.ID, doc.Data))
	}

	page := domain.OffsetPage[domain.GuestOrder]{
		Items: items,
		Count: len(items),
		Total: total,
	}

	if top > 0 && skip+len(items) < total {
		token, err := pagination.EncodeToken(pagination.Cursor{Offset: skip + len(items)})
		if err != nil {
			return domain.OffsetPage[domain.GuestOrder]{}, err
		}
		page.NextToken = token
	}
	if skip > 0 {
		previous := skip - top
		if previous < 0 {
			previous = 0
		}
		token, err := pagination.EncodeToken(pagination.Cursor{Offset: previous})
		if err != nil {
			return domain.OffsetPage[domain.GuestOrder]{}, err
		}
		page.PreviousToken = token
	}

	return page, nil
}

type guestOrderDocument struct {
	OrganizationID string             `firestore:"organizationId"`
	LineItems      []lineItemDocument `firestore:"items"`
	Customer       customerDocument   `firestore:"customer"`
	Status         string             `firestore:"status"`
	CancelReason   *string            `firestore:"cancelReason"`
	CanceledAt     *time.Time         `firestore:"canceledAt"`
	ClosedAt       *time.Time         `firestore:"closedAt"`
	CustomFields   map[string]any     `firestore:"customFields,omitempty"`
	CreatedAt      time.Time          `firestore:"createdAt"`
	UpdatedAt      time.Time          `firestore:"updatedAt"`
}

type lineItemDocument struct {
	ProductID    string `firestore:"productId"`
	ProductName  string `firestore:"productName"`
	Quantity     int    `firestore:"quantity"`
	SKU          string `firestore:"sku,omitempty"`
	VariantID    string `firestore:"variantId,omitempty"`
	VariantTitle string `firestore:"variantTitle,omitempty"`
}

type customerDocument struct {
	Name                   string `firestore:"name"`
	NameKana               string `firestore:"nameKana"`
	AddressLine1           string `firestore:"addressLine1"`
	AddressLine2           string `firestore:"addressLine2,omitempty"`
	AddressLine3           string `firestore:"addressLine3,omitempty"`
	Phone                  string `firestore:"phone"`
	Email                  string `firestore:"email"`
	Age                    string `firestore:"age,omitempty"`
	PreferredContactMethod string `firestore:"preferredContactMethod,omitempty"`
	PreferredTimeToContact string `firestore:"preferredTimeToContact,omitempty"`
}

func encodeGuestOrderDocument(order domain.GuestOrder) guestOrderDocument {
	doc := guestOrderDocument{
		OrganizationID: strings.TrimSpace(order.OrganizationID),
		LineItems:      make([]lineItemDocument, 0, len(order.LineItems)),
		Customer: customerDocument{
			Name:                   strings.TrimSpace(order.Customer.Name),
			NameKana:               strings.TrimSpace(order.Customer.NameKana),
			AddressLine1:           strings.TrimSpace(order.Customer.AddressLine1),
			AddressLine2:           strings.TrimSpace(order.Customer.AddressLine2),
			AddressLine3:           strings.TrimSpace(order.Customer.AddressLine3),
			Phone:                  strings.TrimSpace(order.Customer.Phone),
			Email:                  strings.TrimSpace(order.Customer.Email),
			Age:                    strings.TrimSpace(order.Customer.Age),
			PreferredContactMethod: strings.TrimSpace(order.Customer.PreferredContactMethod),
			PreferredTimeToContact: strings.TrimSpace(order.Customer.PreferredTimeToContact),
		},
		Status:       string(order.Status),
		CanceledAt:   normalizeTimePointer(order.CanceledAt),
		ClosedAt:     normalizeTimePointer(order.ClosedAt),
		CustomFields: order.CustomFields,
		CreatedAt:    order.CreatedAt.UTC(),
		UpdatedAt:    order.UpdatedAt.UTC(),
	}
	if order.CancelReason != nil {
		reason := string(*order.CancelReason)
		doc.CancelReason = &reason
	}
	for _, item := range order.LineItems {
		doc.LineItems = append(doc.LineItems, lineItemDocument{
			ProductID:    strings.TrimSpace(item.ProductID),
			ProductName:  strings.TrimSpace(item.ProductName),
			Quantity:     item.Quantity,
			SKU:          strings.TrimSpace(item.SKU),
			VariantID:    strings.TrimSpace(item.VariantID),
			VariantTitle: strings.TrimSpace(item.VariantTitle),
		})
	}
	return doc
}

func decodeGuestOrderDocument(id string, doc guestOrderDocument) domain.GuestOrder {
	order := domain.GuestOrder{
		ID:             id,
		OrganizationID: doc.OrganizationID,
		LineItems:      make([]domain.ProductItem, 0, len(doc.LineItems)),
		Customer: domain.Customer{
			Name:                   doc.Customer.Name,
			NameKana:               doc.Customer.NameKana,
			AddressLine1:           doc.Customer.AddressLine1,
			AddressLine2:           doc.Customer.AddressLine2,
			AddressLine3:           doc.Customer.AddressLine3,
			Phone:                  doc.Customer.Phone,
			Email:                  doc.Customer.Email,
			Age:                    doc.Customer.Age,
			PreferredContactMethod: doc.Customer.PreferredContactMethod,
			PreferredTimeToContact: doc.Customer.PreferredTimeToContact,
		},
		Status:       domain.OrderStatus(doc.Status),
		CanceledAt:   doc.CanceledAt,
		ClosedAt:     doc.ClosedAt,
		CustomFields: doc.CustomFields,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	if doc.CancelReason != nil {
		reason := domain.CancelReason(*doc.CancelReason)
		order.CancelReason = &reason
	}
	for _, item := range doc.LineItems {
		order.LineItems = append(order.LineItems, domain.ProductItem{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			SKU:          item.SKU,
			VariantID:    item.VariantID,
			VariantTitle: item.VariantTitle,
		})
	}
	return order
}

func normalizeTimePointer(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}
