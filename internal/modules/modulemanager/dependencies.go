// Package modulemanager orders module startup and shutdown by the
// dependencies modules declare and the services they exchange
package modulemanager

import (
	"fmt"
	"slices"

	"github.com/mantonx/streamhub/internal/logger"
)

// DependencyProvider is implemented by modules that must start after
// other modules
type DependencyProvider interface {
	Dependencies() []string
}

// ServiceProvider is implemented by modules that register services
type ServiceProvider interface {
	ProvidedServices() []string
}

// ServiceConsumer is implemented by modules that look services up
type ServiceConsumer interface {
	RequiredServices() []string
}

// DependencyGraph links the enabled modules. A module needs another when it
// names it in Dependencies or requires a service the other provides.
type DependencyGraph struct {
	modules    map[string]Module
	needs      map[string][]string
	neededBy   map[string][]string
	providers  map[string]string
	unprovided map[string][]string
}

// BuildDependencyGraph resolves declared dependencies and service links
// between modules. It fails on unknown modules, services claimed by two
// modules and cycles.
func BuildDependencyGraph(modules map[string]Module) (*DependencyGraph, error) {
	g := &DependencyGraph{
		modules:    modules,
		needs:      make(map[string][]string, len(modules)),
		neededBy:   make(map[string][]string, len(modules)),
		providers:  make(map[string]string),
		unprovided: make(map[string][]string),
	}

	for _, id := range sortedKeys(modules) {
		provider, ok := modules[id].(ServiceProvider)
		if !ok {
			continue
		}
		for _, service := range provider.ProvidedServices() {
			if other, taken := g.providers[service]; taken {
				return nil, fmt.Errorf("service '%s' is provided by multiple modules: %s and %s", service, other, id)
			}
			g.providers[service] = id
		}
	}

	for _, id := range sortedKeys(modules) {
		var needs []string
		if declared, ok := modules[id].(DependencyProvider); ok {
			for _, dep := range declared.Dependencies() {
				if _, exists := modules[dep]; !exists {
					return nil, fmt.Errorf("module %s depends on non-existent module %s", id, dep)
				}
				needs = append(needs, dep)
			}
		}
		if consumer, ok := modules[id].(ServiceConsumer); ok {
			for _, service := range consumer.RequiredServices() {
				provider, found := g.providers[service]
				switch {
				case !found:
					g.unprovided[id] = append(g.unprovided[id], service)
				case provider != id:
					needs = append(needs, provider)
				}
			}
		}

		slices.Sort(needs)
		g.needs[id] = slices.Compact(needs)
		for _, dep := range g.needs[id] {
			g.neededBy[dep] = append(g.neededBy[dep], id)
		}
	}

	if _, err := g.order(g.needs); err != nil {
		return nil, err
	}
	return g, nil
}

// order places every module after all the modules edges lists for it.
// Among modules that are ready together the lowest id goes first, so the
// result is stable across runs.
func (g *DependencyGraph) order(edges map[string][]string) ([]Module, error) {
	placed := make(map[string]bool, len(g.modules))
	pending := sortedKeys(g.modules)
	ordered := make([]Module, 0, len(pending))

	for len(pending) > 0 {
		next := slices.IndexFunc(pending, func(id string) bool {
			return !slices.ContainsFunc(edges[id], func(dep string) bool { return !placed[dep] })
		})
		if next < 0 {
			return nil, fmt.Errorf("circular dependency detected between modules %v", pending)
		}
		id := pending[next]
		placed[id] = true
		ordered = append(ordered, g.modules[id])
		pending = slices.Delete(pending, next, next+1)
	}
	return ordered, nil
}

// InitOrder lists modules so that each follows everything it needs
func (g *DependencyGraph) InitOrder() ([]Module, error) {
	return g.order(g.needs)
}

// ShutdownOrder lists modules so that each is stopped only after every
// module that needs it
func (g *DependencyGraph) ShutdownOrder() []Module {
	edges := make(map[string][]string, len(g.modules))
	for id := range g.modules {
		edges[id] = g.Dependents(id)
	}
	// the graph was checked for cycles when it was built
	ordered, _ := g.order(edges)
	return ordered
}

// Dependents returns the ids of the modules that need id
func (g *DependencyGraph) Dependents(id string) []string {
	return g.neededBy[id]
}

// MissingServices reports required services no enabled module provides
func (g *DependencyGraph) MissingServices() []error {
	var errs []error
	for _, id := range sortedKeys(g.unprovided) {
		for _, service := range g.unprovided[id] {
			errs = append(errs, fmt.Errorf("module %s requires service '%s' but no provider found", id, service))
		}
	}
	return errs
}

// LogDependencyInfo logs the resolved links of every module at debug level
func (g *DependencyGraph) LogDependencyInfo() {
	for _, id := range sortedKeys(g.modules) {
		logger.Debug("module dependency info",
			"module", id,
			"needs", g.needs[id],
			"needed_by", g.neededBy[id],
		)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
