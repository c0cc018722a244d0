package modulemanager

import (
	"context"
	"errors"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeModule struct {
	id       string
	core     bool
	deps     []string
	provides []string
	requires []string
	log      *[]string
	failInit bool
	stopErr  error
}

func (m *fakeModule) ID() string   { return m.id }
func (m *fakeModule) Name() string { return m.id }
func (m *fakeModule) Core() bool   { return m.core }

func (m *fakeModule) Migrate(*gorm.DB) error {
	*m.log = append(*m.log, "migrate:"+m.id)
	return nil
}

func (m *fakeModule) Init() error {
	if m.failInit {
		return errors.New("init failed")
	}
	*m.log = append(*m.log, "init:"+m.id)
	return nil
}

func (m *fakeModule) RegisterServices() error {
	*m.log = append(*m.log, "services:"+m.id)
	return nil
}

func (m *fakeModule) Dependencies() []string     { return m.deps }
func (m *fakeModule) ProvidedServices() []string { return m.provides }
func (m *fakeModule) RequiredServices() []string { return m.requires }

func (m *fakeModule) RegisterRoutes(router *gin.Engine) {
	*m.log = append(*m.log, "routes:"+m.id)
}

func (m *fakeModule) Shutdown(context.Context) error {
	*m.log = append(*m.log, "stop:"+m.id)
	return m.stopErr
}

func (m *fakeModule) HealthCheck(context.Context) HealthStatus {
	return HealthStatus{Status: HealthStateHealthy}
}

func TestLoadAllRespectsDependencies(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Register(&fakeModule{id: "system.reviews", deps: []string{"system.catalog"}, requires: []string{"accounts"}, log: &log})
	r.Register(&fakeModule{id: "system.catalog", deps: []string{"system.accounts"}, log: &log})
	r.Register(&fakeModule{id: "system.accounts", provides: []string{"accounts"}, log: &log})

	require.NoError(t, r.LoadAll(nil))

	assert.Equal(t, []string{
		"services:system.accounts", "services:system.catalog", "services:system.reviews",
		"migrate:system.accounts", "init:system.accounts",
		"migrate:system.catalog", "init:system.catalog",
		"migrate:system.reviews", "init:system.reviews",
	}, log)

	log = nil
	r.RegisterRoutes(gin.New())
	assert.Equal(t, []string{"routes:system.accounts", "routes:system.catalog", "routes:system.reviews"}, log)

	assert.Len(t, r.HealthChecks(context.Background()), 3)

	log = nil
	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, []string{"stop:system.reviews", "stop:system.catalog", "stop:system.accounts"}, log)
}

func TestLoadAllRejectsCycles(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Register(&fakeModule{id: "a", deps: []string{"b"}, log: &log})
	r.Register(&fakeModule{id: "b", deps: []string{"a"}, log: &log})

	err := r.LoadAll(nil)
	assert.ErrorContains(t, err, "circular dependency")
}

func TestLoadAllRejectsMissingDependency(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Register(&fakeModule{id: "a", deps: []string{"ghost"}, log: &log})

	assert.ErrorContains(t, r.LoadAll(nil), "non-existent module ghost")
}

func TestDisabledModulesAreSkipped(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Register(&fakeModule{id: "core", core: true, log: &log})
	r.Register(&fakeModule{id: "extra", log: &log})

	r.DisableModule("core")
	r.DisableModule("extra")
	require.NoError(t, r.LoadAll(nil))

	assert.NotContains(t, log, "init:extra")
	assert.Contains(t, log, "init:core")
}

func TestInitFailureStopsLoading(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Register(&fakeModule{id: "a", failInit: true, log: &log})

	assert.ErrorContains(t, r.LoadAll(nil), "failed to initialize a")
}

func TestShutdownJoinsErrors(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Register(&fakeModule{id: "a", stopErr: errors.New("busy"), log: &log})
	r.Register(&fakeModule{id: "b", log: &log})
	require.NoError(t, r.LoadAll(nil))

	err := r.Shutdown(context.Background())
	assert.ErrorContains(t, err, "a: busy")
	assert.Contains(t, log, "stop:b")
}

func TestDuplicateServiceProviders(t *testing.T) {
	var log []string
	_, err := BuildDependencyGraph(map[string]Module{
		"a": &fakeModule{id: "a", provides: []string{"x"}, log: &log},
		"b": &fakeModule{id: "b", provides: []string{"x"}, log: &log},
	})
	assert.ErrorContains(t, err, "provided by multiple modules")
}

func TestShutdownWaitsForDependents(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Register(&fakeModule{id: "store", provides: []string{"store"}, log: &log})
	r.Register(&fakeModule{id: "cache", log: &log})
	r.Register(&fakeModule{id: "api", requires: []string{"store"}, log: &log})
	r.Register(&fakeModule{id: "worker", deps: []string{"cache"}, requires: []string{"store"}, log: &log})
	require.NoError(t, r.LoadAll(nil))

	log = nil
	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, []string{"stop:api", "stop:worker", "stop:cache", "stop:store"}, log)

	log = nil
	require.NoError(t, r.Shutdown(context.Background()))
	assert.Empty(t, log, "a stopped registry has nothing left to stop")
}

func TestDependencyGraphLinks(t *testing.T) {
	var log []string
	graph, err := BuildDependencyGraph(map[string]Module{
		"accounts": &fakeModule{id: "accounts", provides: []string{"accounts"}, log: &log},
		"catalog":  &fakeModule{id: "catalog", deps: []string{"accounts"}, requires: []string{"accounts", "mailer"}, log: &log},
		"reviews":  &fakeModule{id: "reviews", deps: []string{"catalog"}, requires: []string{"accounts"}, log: &log},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"catalog", "reviews"}, graph.Dependents("accounts"))
	assert.Equal(t, []string{"reviews"}, graph.Dependents("catalog"))
	assert.Empty(t, graph.Dependents("reviews"))

	missing := graph.MissingServices()
	require.Len(t, missing, 1)
	assert.ErrorContains(t, missing[0], "module catalog requires service 'mailer'")

	ids := func(modules []Module) []string {
		out := make([]string, len(modules))
		for i, m := range modules {
			out[i] = m.ID()
		}
		return out
	}
	order, err := graph.InitOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts", "catalog", "reviews"}, ids(order))
	assert.Equal(t, []string{"reviews", "catalog", "accounts"}, ids(graph.ShutdownOrder()))
}
