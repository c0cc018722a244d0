// Package favoritesmodule keeps each account's favourite shows and its
// named folders of shows.
package favoritesmodule

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/base"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/modules/favoritesmodule/api"
	"github.com/mantonx/streamhub/internal/modules/favoritesmodule/core/repository"
	"github.com/mantonx/streamhub/internal/modules/favoritesmodule/service"
	"github.com/mantonx/streamhub/internal/services"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the favourites module
	ModuleID = "system.favorites"

	// ModuleName is the display name for the favourites module
	ModuleName = "Favorites Manager"
)

// Module implements favourites and folders as a module
type Module struct {
	*base.BaseModule

	service services.FavoritesService
	handler *api.Handler
}

// NewModule creates the favourites module
func NewModule() *Module {
	return &Module{BaseModule: base.NewBaseModule(ModuleID, ModuleName, true)}
}

// ProvidedServices implements modulemanager.ServiceProvider
func (m *Module) ProvidedServices() []string {
	return []string{services.FavoritesServiceName}
}

// RequiredServices implements modulemanager.ServiceConsumer
func (m *Module) RequiredServices() []string {
	return []string{services.CatalogServiceName}
}

// Migrate creates the favourites and folder tables
func (m *Module) Migrate(db *gorm.DB) error {
	m.Logger().Info("migrating favourites schema")
	m.SetDB(db)
	if err := db.AutoMigrate(&database.Favorite{}, &database.Folder{}); err != nil {
		return fmt.Errorf("failed to migrate favourites schema: %w", err)
	}
	return nil
}

// Init builds the favourites service and registers it
func (m *Module) Init() error {
	db := m.GetDB()
	if db == nil {
		db = database.GetDB()
	}
	if db == nil {
		return base.ErrDatabaseConnection
	}

	catalog := services.NewLazy[services.CatalogService](services.CatalogServiceName)
	m.service = service.NewFavoritesService(service.Options{
		Repository: repository.NewFavoritesRepository(db),
		Catalog:    catalog.Get,
		Bus:        m.GetEventBus(),
		Logger:     m.Logger(),
	})
	services.RegisterService[services.FavoritesService](services.FavoritesServiceName, m.service)
	m.handler = api.NewHandler(m.service)

	m.PublishLoaded()
	return nil
}

// RegisterRoutes implements modulemanager.RouteRegistrar
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api.RegisterRoutes(router, m.handler)
}

// Service returns the favourites service once Init has run
func (m *Module) Service() services.FavoritesService {
	return m.service
}
