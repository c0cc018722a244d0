// Package eventsmodule exposes the event bus to staff: the stored event
// log and a live websocket feed.
package eventsmodule

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/base"
	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/modules/eventsmodule/api"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the events module
	ModuleID = "system.events"

	// ModuleName is the display name for the events module
	ModuleName = "Event Management"
)

// Module handles event management functionality
type Module struct {
	*base.BaseModule

	handler *api.Handler
}

// NewModule creates the events module
func NewModule() *Module {
	return &Module{BaseModule: base.NewBaseModule(ModuleID, ModuleName, true)}
}

// Migrate creates the event log table
func (m *Module) Migrate(db *gorm.DB) error {
	m.SetDB(db)
	if err := events.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate event log: %w", err)
	}
	return nil
}

// Init builds the event handlers around the active bus
func (m *Module) Init() error {
	cfg := config.Get()
	m.handler = api.NewHandler(m.GetEventBus(), m.Logger(), cfg.Server.AllowedOrigins)
	m.PublishLoaded()
	return nil
}

// RegisterRoutes implements modulemanager.RouteRegistrar
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api.RegisterRoutes(router, m.handler)
}

// HealthCheck adds the bus state to the base health report
func (m *Module) HealthCheck(ctx context.Context) modulemanager.HealthStatus {
	status := m.BaseModule.HealthCheck(ctx)
	if status.Status != modulemanager.HealthStateHealthy {
		return status
	}

	bus := m.GetEventBus()
	if err := bus.Health(); err != nil {
		status.Status = modulemanager.HealthStateDegraded
		status.Message = err.Error()
	}
	stats := bus.GetStats()
	status.Details = map[string]interface{}{
		"total_events":         stats.TotalEvents,
		"dropped_events":       stats.DroppedEvents,
		"active_subscriptions": stats.ActiveSubscriptions,
		"live_clients":         m.handler.Clients(),
	}
	return status
}

// Shutdown disconnects live feed clients
func (m *Module) Shutdown(context.Context) error {
	if m.handler != nil {
		m.handler.CloseAll()
	}
	return nil
}
