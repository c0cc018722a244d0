package modulemanager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/logger"
	"gorm.io/gorm"
)

// Module defines the interface that all modules must implement
type Module interface {
	ID() string                // Unique identifier for the module
	Name() string              // Display name for the module
	Core() bool                // Whether this is a core module (cannot be disabled)
	Migrate(db *gorm.DB) error // Run database migrations
	Init() error               // Initialize the module
}

// RouteRegistrar is an optional interface for modules that need to register routes
type RouteRegistrar interface {
	RegisterRoutes(router *gin.Engine)
}

// ModuleRegistry manages module registration and initialization
type ModuleRegistry struct {
	modules         map[string]Module
	disabledModules map[string]bool
	initOrder       []Module
	graph           *DependencyGraph
	mu              sync.RWMutex
	initialized     bool
}

// NewRegistry creates an empty registry. The package-level functions use
// the global Registry that modules add themselves to from init().
func NewRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		modules:         make(map[string]Module),
		disabledModules: make(map[string]bool),
	}
}

// Registry is the global module registry
var Registry = NewRegistry()

// Register adds a module to the registry
func Register(m Module) {
	Registry.Register(m)
}

// Register adds a module to the registry
func (r *ModuleRegistry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		logger.Warn("module registered after initialization", "module", m.ID())
	}

	r.modules[m.ID()] = m
	logger.Debug("module registered", "module", m.ID(), "name", m.Name())
}

// LoadAll initializes all registered modules
func LoadAll(db *gorm.DB) error {
	return Registry.LoadAll(db)
}

// LoadAll initializes all registered modules in dependency order
func (r *ModuleRegistry) LoadAll(db *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		logger.Warn("module system already initialized")
		return nil
	}

	enabledModules := make(map[string]Module)
	for id, module := range r.modules {
		if r.disabledModules[id] {
			if module.Core() {
				return fmt.Errorf("attempted to disable core module: %s", id)
			}
			logger.Warn("skipping disabled module", "module", id)
			continue
		}
		enabledModules[id] = module
	}

	logger.Info("loading modules", "count", len(enabledModules))

	depGraph, err := BuildDependencyGraph(enabledModules)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}

	for _, err := range depGraph.MissingServices() {
		logger.Warn("service requirement warning", "error", err)
	}

	initOrder, err := depGraph.InitOrder()
	if err != nil {
		return fmt.Errorf("failed to determine initialization order: %w", err)
	}
	depGraph.LogDependencyInfo()

	// Phase 1: Allow modules to register services early
	for _, module := range initOrder {
		if registrar, ok := module.(ServiceRegistrar); ok {
			if err := registrar.RegisterServices(); err != nil {
				return fmt.Errorf("failed to register services for %s: %w", module.Name(), err)
			}
		}
	}

	// Phase 2: Migrate and initialize modules in dependency order
	for i, module := range initOrder {
		logger.Debug("initializing module", "position", i+1, "total", len(initOrder), "module", module.ID())

		if err := module.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", module.Name(), err)
		}

		if err := module.Init(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", module.Name(), err)
		}

		logger.Info("module loaded", "module", module.ID())
	}

	r.initOrder = initOrder
	r.graph = depGraph
	r.initialized = true
	return nil
}

// DisableModule marks a module as disabled (for development/testing only)
func DisableModule(id string) {
	Registry.DisableModule(id)
}

// DisableModule marks a module as disabled
func (r *ModuleRegistry) DisableModule(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	module, exists := r.modules[id]
	if !exists {
		logger.Warn("attempted to disable non-existent module", "module", id)
		return
	}

	if module.Core() {
		logger.Error("cannot disable core module", "module", id)
		return
	}

	r.disabledModules[id] = true
	logger.Info("module disabled", "module", id)
}

// EnableModule enables a previously disabled module
func (r *ModuleRegistry) EnableModule(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.disabledModules, id)
}

// GetModule returns a module by ID
func GetModule(id string) (Module, bool) {
	return Registry.GetModule(id)
}

// GetModule returns a module by ID
func (r *ModuleRegistry) GetModule(id string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	module, exists := r.modules[id]
	return module, exists
}

// ListModules returns all registered modules sorted by ID
func ListModules() []Module {
	return Registry.ListModules()
}

// ListModules returns all registered modules sorted by ID
func (r *ModuleRegistry) ListModules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modules := make([]Module, 0, len(r.modules))
	for _, module := range r.modules {
		modules = append(modules, module)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].ID() < modules[j].ID() })
	return modules
}

// RegisterRoutes registers routes for all modules that implement RouteRegistrar
func RegisterRoutes(router *gin.Engine) {
	Registry.RegisterRoutes(router)
}

// RegisterRoutes registers routes for loaded modules in initialization order
func (r *ModuleRegistry) RegisterRoutes(router *gin.Engine) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, module := range r.initOrder {
		if routeRegistrar, ok := module.(RouteRegistrar); ok {
			logger.Debug("registering routes", "module", module.ID())
			routeRegistrar.RegisterRoutes(router)
		}
	}
}

// HealthChecks collects the status of every loaded module that reports one
func HealthChecks(ctx context.Context) map[string]HealthStatus {
	return Registry.HealthChecks(ctx)
}

// HealthChecks collects the status of every loaded module that reports one
func (r *ModuleRegistry) HealthChecks(ctx context.Context) map[string]HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make(map[string]HealthStatus)
	for _, module := range r.initOrder {
		if checker, ok := module.(HealthChecker); ok {
			statuses[module.ID()] = checker.HealthCheck(ctx)
		}
	}
	return statuses
}

// Shutdown stops the global registry's modules
func Shutdown(ctx context.Context) error {
	return Registry.Shutdown(ctx)
}

// Shutdown stops each module after every module that depends on it.
// Every module is given the chance to stop; the errors are joined.
func (r *ModuleRegistry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.graph == nil {
		return nil
	}

	var errs []error
	for _, module := range r.graph.ShutdownOrder() {
		shutdowner, ok := module.(Shutdowner)
		if !ok {
			continue
		}
		start := time.Now()
		if err := shutdowner.Shutdown(ctx); err != nil {
			logger.Error("module shutdown failed", "module", module.ID(), "dependents", r.graph.Dependents(module.ID()), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", module.ID(), err))
			continue
		}
		logger.Debug("module stopped", "module", module.ID(), "duration", time.Since(start))
	}

	r.initOrder = nil
	r.graph = nil
	r.initialized = false
	return errors.Join(errs...)
}
