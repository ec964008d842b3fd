package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/commerce-blocks/guest-orders/internal/gateways"
	"github.com/commerce-blocks/guest-orders/internal/platform/config"
	pfirestore "github.com/commerce-blocks/guest-orders/internal/platform/firestore"
	"github.com/commerce-blocks/guest-orders/internal/repositories"
	firestorerepo "github.com/commerce-blocks/guest-orders/internal/repositories/firestore"
	"github.com/commerce-blocks/guest-orders/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	GuestOrders services.GuestOrderService
	System      services.SystemService
}

// Gateways groups the upstream service clients used by the guest order flow.
type Gateways struct {
	Catalog       gateways.CatalogGateway
	Organizations gateways.OrganizationGateway
}

// ContainerDeps carries the externally constructed dependencies NewContainer wires together.
// Firestore and Logger are required; Events and HealthChecks may be nil when the
// corresponding infrastructure is not configured (local runs, tests).
type ContainerDeps struct {
	Config       config.Config
	Logger       *zap.Logger
	Firestore    *pfirestore.Provider
	Events       services.GuestOrderEventPublisher
	HealthChecks []repositories.DependencyCheck
	Build        services.BuildInfo
}

// Container wires gateways, repositories, and services for runtime use.
type Container struct {
	Config    config.Config
	Firestore *pfirestore.Provider
	Gateways  Gateways
	Orders    repositories.GuestOrderRepository
	Services  Services
}

// NewContainer constructs the runtime dependency graph from configuration.
func NewContainer(ctx context.Context, deps ContainerDeps) (*Container, error) {
	if deps.Firestore == nil {
		return nil, errors.New("di: firestore provider is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gw, err := buildGateways(deps.Config)
	if err != nil {
		return nil, err
	}

	ordersRepo, err := firestorerepo.NewGuestOrderRepository(deps.Firestore)
	if err != nil {
		return nil, fmt.Errorf("build guest order repository: %w", err)
	}

	svc, err := buildServices(deps, gw, ordersRepo, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:    deps.Config,
		Firestore: deps.Firestore,
		Gateways:  gw,
		Orders:    ordersRepo,
		Services:  svc,
	}, nil
}

// Close releases the Firestore client owned by the container.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close(ctx)
}

func buildGateways(cfg config.Config) (Gateways, error) {
	catalog, err := gateways.NewCatalogGateway(gateways.CatalogGatewayDeps{
		BaseURL: cfg.Services.CatalogBaseURL,
		Timeout: cfg.Services.Timeout,
	})
	if err != nil {
		return Gateways{}, fmt.Errorf("build catalog gateway: %w", err)
	}

	organizations, err := gateways.NewOrganizationGateway(gateways.OrganizationGatewayDeps{
		BaseURL: cfg.Services.OrganizationBaseURL,
		Timeout: cfg.Services.Timeout,
	})
	if err != nil {
		return Gateways{}, fmt.Errorf("build organization gateway: %w", err)
	}

	return Gateways{Catalog: catalog, Organizations: organizations}, nil
}

func buildServices(deps ContainerDeps, gw Gateways, orders repositories.GuestOrderRepository, logger *zap.Logger) (Services, error) {
	var svc Services

	guestOrderSvc, err := services.NewGuestOrderService(services.GuestOrderServiceDeps{
		Orders:        orders,
		Catalog:       gw.Catalog,
		Organizations: gw.Organizations,
		CustomFields:  customFieldDefinitions(deps.Config.CustomFields),
		Clock:         time.Now,
		Events:        deps.Events,
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			zapFields := make([]zap.Field, 0, len(fields))
			for key, value := range fields {
				zapFields = append(zapFields, zap.Any(key, value))
			}
			logger.Info(event, zapFields...)
		},
	})
	if err != nil {
		return Services{}, fmt.Errorf("build guest order service: %w", err)
	}
	svc.GuestOrders = guestOrderSvc

	if len(deps.HealthChecks) > 0 {
		healthRepo, err := repositories.NewDependencyHealthRepository(deps.HealthChecks)
		if err != nil {
			return Services{}, fmt.Errorf("build health repository: %w", err)
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            time.Now,
			Build:            deps.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

func customFieldDefinitions(fields []config.CustomFieldConfig) []services.CustomFieldDefinition {
	if len(fields) == 0 {
		return nil
	}
	out := make([]services.CustomFieldDefinition, 0, len(fields))
	for _, field := range fields {
		out = append(out, services.CustomFieldDefinition{
			Name:     field.Name,
			Type:     field.Type,
			Required: field.Required,
		})
	}
	return out
}
