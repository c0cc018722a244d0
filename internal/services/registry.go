package services

import (
	"fmt"
	"sort"
	"sync"
)

// ServiceRegistry is how modules reach each other's functionality.
//
// A module defines an interface for its public API in this package,
// registers its implementation from RegisterServices, and other modules
// look it up by name instead of importing the module's packages.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]interface{}
}

var globalRegistry = &ServiceRegistry{
	services: make(map[string]interface{}),
}

// Well-known service names
const (
	AccountServiceName   = "accounts"
	CatalogServiceName   = "catalog"
	FavoritesServiceName = "favorites"
	ReviewServiceName    = "reviews"
	AssetServiceName     = "assets"
	EventBusServiceName  = "events"
)

// RegisterService registers a service with the given name
func RegisterService[T any](name string, service T) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	globalRegistry.services[name] = service
}

// GetService retrieves a service by name with type safety
func GetService[T any](name string) (T, error) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	var zero T

	service, exists := globalRegistry.services[name]
	if !exists {
		return zero, fmt.Errorf("service '%s' not found", name)
	}

	typedService, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("service '%s' has wrong type", name)
	}

	return typedService, nil
}

// MustGetService retrieves a service and panics if not found (for initialization)
func MustGetService[T any](name string) T {
	service, err := GetService[T](name)
	if err != nil {
		panic(fmt.Sprintf("required service not available: %v", err))
	}
	return service
}

// ListServices returns all registered service names, sorted
func ListServices() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	names := make([]string, 0, len(globalRegistry.services))
	for name := range globalRegistry.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnregisterService removes a service. Used by tests and module shutdown.
func UnregisterService(name string) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	delete(globalRegistry.services, name)
}
