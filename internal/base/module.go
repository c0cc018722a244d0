// Package base holds the state every module shares: identity, database
// handle, event bus and logger.
package base

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/logger"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"gorm.io/gorm"
)

// BaseModule provides common functionality for all modules
type BaseModule struct {
	id           string
	name         string
	core         bool
	dependencies []string
	initialized  bool
	db           *gorm.DB
	eventBus     events.EventBus
	logger       hclog.Logger
	mu           sync.RWMutex
}

// NewBaseModule creates a new base module with common properties
func NewBaseModule(id, name string, core bool, dependencies ...string) *BaseModule {
	return &BaseModule{
		id:           id,
		name:         name,
		core:         core,
		dependencies: dependencies,
		logger:       logger.Named(id),
	}
}

// ID implements modulemanager.Module
func (m *BaseModule) ID() string { return m.id }

// Name implements modulemanager.Module
func (m *BaseModule) Name() string { return m.name }

// Core implements modulemanager.Module
func (m *BaseModule) Core() bool { return m.core }

// Dependencies implements modulemanager.DependencyProvider
func (m *BaseModule) Dependencies() []string { return m.dependencies }

// Logger returns the module's named logger
func (m *BaseModule) Logger() hclog.Logger { return m.logger }

func (m *BaseModule) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// SetInitialized marks the module as initialized
func (m *BaseModule) SetInitialized(initialized bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = initialized
}

// SetDB sets the database connection
func (m *BaseModule) SetDB(db *gorm.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = db
}

// GetDB returns the database connection
func (m *BaseModule) GetDB() *gorm.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// SetEventBus sets the event bus
func (m *BaseModule) SetEventBus(eventBus events.EventBus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventBus = eventBus
}

// GetEventBus returns the configured bus, then the global one, then a
// bus that discards everything.
func (m *BaseModule) GetEventBus() events.EventBus {
	m.mu.RLock()
	bus := m.eventBus
	m.mu.RUnlock()

	if bus != nil {
		return bus
	}
	if bus = events.GetGlobalEventBus(); bus != nil {
		return bus
	}
	return events.NewNoopBus()
}

// PublishLoaded announces that the module finished Init
func (m *BaseModule) PublishLoaded() {
	m.SetInitialized(true)
	events.Emit(m.GetEventBus(), events.NewEventWithData(
		events.EventModuleLoaded, m.id, "Module loaded", m.name,
		map[string]interface{}{"module_id": m.id},
	))
}

// HealthCheck reports unhealthy until Init completes and while the
// database does not answer a ping.
func (m *BaseModule) HealthCheck(ctx context.Context) modulemanager.HealthStatus {
	status := modulemanager.HealthStatus{
		Status:      modulemanager.HealthStateHealthy,
		LastChecked: time.Now(),
	}

	if !m.IsInitialized() {
		status.Status = modulemanager.HealthStateUnhealthy
		status.Message = ErrModuleNotInitialized.Message
		return status
	}

	if db := m.GetDB(); db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			status.Status = modulemanager.HealthStateUnhealthy
			status.Message = NewModuleError("DATABASE_CONNECTION", ErrDatabaseConnection.Message, err).Error()
			return status
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			status.Status = modulemanager.HealthStateUnhealthy
			status.Message = NewModuleError("DATABASE_PING", ErrDatabasePing.Message, err).Error()
			return status
		}
	}

	return status
}

// Common errors
var (
	ErrModuleNotInitialized = &ModuleError{Code: "MODULE_NOT_INITIALIZED", Message: "module is not initialized"}
	ErrDatabaseConnection   = &ModuleError{Code: "DATABASE_CONNECTION", Message: "failed to get database connection"}
	ErrDatabasePing         = &ModuleError{Code: "DATABASE_PING", Message: "database ping failed"}
)

// ModuleError provides structured error handling
type ModuleError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ModuleError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ModuleError) Unwrap() error {
	return e.Cause
}

// NewModuleError creates a new module error with optional cause
func NewModuleError(code, message string, cause error) *ModuleError {
	return &ModuleError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
