package assetmodule

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMediaRoot(t *testing.T, root string) {
	t.Helper()
	manager := config.GetConfigManager()
	previous := manager.GetConfig()
	cfg := config.DefaultConfig()
	cfg.Media.RootDir = root
	manager.SetConfig(cfg)
	t.Cleanup(func() { manager.SetConfig(previous) })
}

func TestModuleLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apiroutes.ClearForTesting()
	t.Cleanup(func() { services.UnregisterService(services.AssetServiceName) })

	root := filepath.Join(t.TempDir(), "media")
	useMediaRoot(t, root)

	m := NewModule()
	assert.Equal(t, ModuleID, m.ID())
	assert.Equal(t, []string{services.AssetServiceName}, m.ProvidedServices())
	assert.Equal(t, modulemanager.HealthStateUnhealthy, m.HealthCheck(context.Background()).Status)

	require.NoError(t, m.RegisterServices())
	require.NoError(t, m.Migrate(nil))
	require.NoError(t, m.Init())
	assert.Equal(t, modulemanager.HealthStateHealthy, m.HealthCheck(context.Background()).Status)

	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(database.DefaultProfilePicture)))
	require.NoError(t, err)

	svc, err := services.GetService[services.AssetService](services.AssetServiceName)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))))
	asset, err := svc.StoreImage(context.Background(), "posters", "p.png", &buf)
	require.NoError(t, err)

	router := gin.New()
	m.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, asset.URL, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/"+database.DefaultProfilePicture, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, os.RemoveAll(root))
	assert.Equal(t, modulemanager.HealthStateUnhealthy, m.HealthCheck(context.Background()).Status)
}
