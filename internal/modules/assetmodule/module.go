// Package assetmodule stores uploaded images (profile pictures and show
// posters) on disk and serves them under the media URL prefix.
package assetmodule

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/base"
	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/modules/assetmodule/service"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"github.com/mantonx/streamhub/internal/services"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the asset module
	ModuleID = "system.assets"

	// ModuleName is the display name for the asset module
	ModuleName = "Asset Manager"

	placeholderSize = 256
)

// Module implements image storage as a module
type Module struct {
	*base.BaseModule

	settings service.Settings
	service  services.AssetService
}

// NewModule creates the asset module
func NewModule() *Module {
	return &Module{BaseModule: base.NewBaseModule(ModuleID, ModuleName, true)}
}

// ProvidedServices implements modulemanager.ServiceProvider
func (m *Module) ProvidedServices() []string {
	return []string{services.AssetServiceName}
}

// RegisterServices makes the asset service available before any module
// runs Init
func (m *Module) RegisterServices() error {
	cfg := config.Get()
	m.settings = service.Settings{
		RootDir:       cfg.Media.RootDir,
		URLPrefix:     cfg.Media.URLPrefix,
		MaxUploadSize: cfg.Media.MaxUploadSize,
		MaxPixels:     cfg.Media.MaxImagePixels,
		Quality:       cfg.Media.WebPQuality,
	}
	if m.settings.RootDir == "" {
		m.settings.RootDir = filepath.Join(cfg.Database.DataDir, "media")
	}

	m.service = service.NewAssetService(service.Options{
		Settings: m.settings,
		Bus:      m.GetEventBus(),
		Logger:   m.Logger(),
	})
	services.RegisterService[services.AssetService](services.AssetServiceName, m.service)
	return nil
}

// Migrate has nothing to create; assets live on disk
func (m *Module) Migrate(*gorm.DB) error {
	return nil
}

// Init prepares the media root and the default profile picture
func (m *Module) Init() error {
	if m.service == nil {
		if err := m.RegisterServices(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(m.settings.RootDir, 0o755); err != nil {
		return fmt.Errorf("failed to create media root: %w", err)
	}
	if err := service.EnsurePlaceholder(m.settings.RootDir, database.DefaultProfilePicture, placeholderSize); err != nil {
		return err
	}

	m.Logger().Info("media storage ready", "root", m.settings.RootDir, "url_prefix", m.settings.URLPrefix)
	m.PublishLoaded()
	return nil
}

// RegisterRoutes implements modulemanager.RouteRegistrar
func (m *Module) RegisterRoutes(router *gin.Engine) {
	router.Static(m.settings.URLPrefix, m.settings.RootDir)
	apiroutes.RegisterFor(ModuleID, m.settings.URLPrefix+"/*filepath", http.MethodGet, "Stored images")
}

// HealthCheck reports unhealthy when the media root is not a directory
func (m *Module) HealthCheck(ctx context.Context) modulemanager.HealthStatus {
	status := m.BaseModule.HealthCheck(ctx)
	if status.Status != modulemanager.HealthStateHealthy {
		return status
	}

	info, err := os.Stat(m.settings.RootDir)
	if err != nil || !info.IsDir() {
		status.Status = modulemanager.HealthStateUnhealthy
		status.Message = fmt.Sprintf("media root %s is not available", m.settings.RootDir)
	}
	status.Details = map[string]interface{}{"root": m.settings.RootDir}
	return status
}

// Service returns the asset service once registered
func (m *Module) Service() services.AssetService {
	return m.service
}
