package favoritesmodule

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/database/dbtest"
	favoriteerrors "github.com/mantonx/streamhub/internal/modules/favoritesmodule/errors"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noShows struct {
	services.CatalogService
}

func (noShows) ShowExists(context.Context, uint) (bool, error) { return false, nil }

func TestModuleLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apiroutes.ClearForTesting()
	services.RegisterService[services.CatalogService](services.CatalogServiceName, noShows{})
	t.Cleanup(func() {
		services.UnregisterService(services.CatalogServiceName)
		services.UnregisterService(services.FavoritesServiceName)
	})

	m := NewModule()
	assert.Equal(t, ModuleID, m.ID())
	assert.Equal(t, []string{services.CatalogServiceName}, m.RequiredServices())

	require.NoError(t, m.Migrate(dbtest.New(t)))
	require.NoError(t, m.Init())

	svc, err := services.GetService[services.FavoritesService](services.FavoritesServiceName)
	require.NoError(t, err)
	assert.Same(t, m.Service(), svc)
	assert.ErrorIs(t, svc.AddFavorite(context.Background(), 1, 3), favoriteerrors.ErrShowNotFound)

	health := m.HealthCheck(context.Background())
	assert.Equal(t, modulemanager.HealthStateHealthy, health.Status)

	router := gin.New()
	m.RegisterRoutes(router)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/favorites", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
