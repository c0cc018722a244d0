// Package catalogmodule serves shows, seasons, episodes and categories, and
// lets staff curate them.
package catalogmodule

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/base"
	"github.com/mantonx/streamhub/internal/cache"
	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/modules/catalogmodule/api"
	"github.com/mantonx/streamhub/internal/modules/catalogmodule/core/repository"
	"github.com/mantonx/streamhub/internal/modules/catalogmodule/service"
	"github.com/mantonx/streamhub/internal/services"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the catalog module
	ModuleID = "system.catalog"

	// ModuleName is the display name for the catalog module
	ModuleName = "Catalog Manager"
)

// Module implements the show catalog as a module
type Module struct {
	*base.BaseModule

	service      services.CatalogService
	handler      *api.Handler
	subscription *events.Subscription
}

// NewModule creates the catalog module
func NewModule() *Module {
	return &Module{BaseModule: base.NewBaseModule(ModuleID, ModuleName, true)}
}

// ProvidedServices implements modulemanager.ServiceProvider
func (m *Module) ProvidedServices() []string {
	return []string{services.CatalogServiceName}
}

// RequiredServices implements modulemanager.ServiceConsumer. Posters go
// through the asset service.
func (m *Module) RequiredServices() []string {
	return []string{services.AssetServiceName}
}

// Migrate creates the catalog tables
func (m *Module) Migrate(db *gorm.DB) error {
	m.Logger().Info("migrating catalog schema")
	m.SetDB(db)
	err := db.AutoMigrate(&database.Category{}, &database.Show{}, &database.Season{}, &database.Episode{})
	if err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

// Init builds the catalog service, registers it and starts listening for
// review changes
func (m *Module) Init() error {
	cfg := config.Get()
	db := m.GetDB()
	if db == nil {
		db = database.GetDB()
	}
	if db == nil {
		return base.ErrDatabaseConnection
	}

	assets := services.NewLazy[services.AssetService](services.AssetServiceName)
	m.service = service.NewCatalogService(service.Options{
		Repository: repository.NewCatalogRepository(db),
		Cache:      cache.New("catalog", cache.Client(), cfg.Redis.KeyPrefix+"catalog:"),
		Assets:     assets.Get,
		Bus:        m.GetEventBus(),
		Logger:     m.Logger(),
	})
	services.RegisterService[services.CatalogService](services.CatalogServiceName, m.service)
	m.handler = api.NewHandler(m.service)

	sub, err := m.GetEventBus().Subscribe(context.Background(), events.EventFilter{
		Types: []events.EventType{events.EventReviewSubmitted, events.EventReviewModerated},
	}, m.onReviewChanged)
	if err != nil {
		m.Logger().Warn("failed to subscribe to review events", "error", err)
	}
	m.subscription = sub

	m.PublishLoaded()
	return nil
}

// onReviewChanged drops the cached rating figures of the reviewed show
func (m *Module) onReviewChanged(event events.Event) error {
	showID, ok := service.ShowIDFromEvent(event)
	if !ok {
		return fmt.Errorf("review event %s carries no show id", event.ID)
	}
	m.service.InvalidateRating(context.Background(), showID)
	return nil
}

// RegisterRoutes implements modulemanager.RouteRegistrar
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api.RegisterRoutes(router, m.handler)
}

// Service returns the catalog service once Init has run
func (m *Module) Service() services.CatalogService {
	return m.service
}

// Shutdown stops listening for review events
func (m *Module) Shutdown(context.Context) error {
	if m.subscription != nil {
		if err := m.GetEventBus().Unsubscribe(m.subscription.ID); err != nil {
			m.Logger().Warn("failed to unsubscribe", "error", err)
		}
		m.subscription = nil
	}
	return nil
}
