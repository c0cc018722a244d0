// Package reviewmodule records subscriber reviews and ratings of shows and
// lets staff hide them.
package reviewmodule

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/base"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/modules/reviewmodule/api"
	"github.com/mantonx/streamhub/internal/modules/reviewmodule/core/repository"
	"github.com/mantonx/streamhub/internal/modules/reviewmodule/service"
	"github.com/mantonx/streamhub/internal/services"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the review module
	ModuleID = "system.reviews"

	// ModuleName is the display name for the review module
	ModuleName = "Review Manager"
)

// Module implements reviews as a module
type Module struct {
	*base.BaseModule

	service services.ReviewService
	handler *api.Handler
}

// NewModule creates the review module
func NewModule() *Module {
	return &Module{BaseModule: base.NewBaseModule(ModuleID, ModuleName, true)}
}

// ProvidedServices implements modulemanager.ServiceProvider
func (m *Module) ProvidedServices() []string {
	return []string{services.ReviewServiceName}
}

// RequiredServices implements modulemanager.ServiceConsumer
func (m *Module) RequiredServices() []string {
	return []string{services.CatalogServiceName}
}

// Migrate creates the review table
func (m *Module) Migrate(db *gorm.DB) error {
	m.Logger().Info("migrating review schema")
	m.SetDB(db)
	if err := db.AutoMigrate(&database.ReviewRating{}); err != nil {
		return fmt.Errorf("failed to migrate review schema: %w", err)
	}
	return nil
}

// Init builds the review service and registers it
func (m *Module) Init() error {
	db := m.GetDB()
	if db == nil {
		db = database.GetDB()
	}
	if db == nil {
		return base.ErrDatabaseConnection
	}

	catalog := services.NewLazy[services.CatalogService](services.CatalogServiceName)
	m.service = service.NewReviewService(service.Options{
		Repository: repository.NewReviewRepository(db),
		Catalog:    catalog.Get,
		Bus:        m.GetEventBus(),
		Logger:     m.Logger(),
	})
	services.RegisterService[services.ReviewService](services.ReviewServiceName, m.service)
	m.handler = api.NewHandler(m.service)

	m.PublishLoaded()
	return nil
}

// RegisterRoutes implements modulemanager.RouteRegistrar
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api.RegisterRoutes(router, m.handler)
}

// Service returns the review service once Init has run
func (m *Module) Service() services.ReviewService {
	return m.service
}
