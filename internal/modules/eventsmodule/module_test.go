package eventsmodule

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	sharedapi "github.com/mantonx/streamhub/internal/api"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/database/dbtest"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apiroutes.ClearForTesting()
	require.NoError(t, sharedapi.RegisterValidators())

	db := dbtest.New(t)
	bus := events.NewEventBus(events.DefaultEventBusConfig(), hclog.NewNullLogger(), events.NewDatabaseEventStorage(db))

	m := NewModule()
	m.SetEventBus(bus)
	require.NoError(t, m.Migrate(db))
	require.True(t, db.Migrator().HasTable("system_events"))

	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	require.NoError(t, m.Init())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	status := m.HealthCheck(context.Background())
	assert.Equal(t, modulemanager.HealthStateHealthy, status.Status)
	assert.Equal(t, 0, status.Details["live_clients"])

	m.RegisterRoutes(gin.New())
	paths := map[string]bool{}
	for _, r := range apiroutes.Get() {
		paths[r.Method+" "+r.Path] = true
	}
	assert.True(t, paths["GET /api/events"])
	assert.True(t, paths["GET /api/events/ws"])
}
