package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	applyDerivedConfig(cfg)
	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, filepath.Join("./data", "streamhub.db"), cfg.Database.DatabasePath)
	assert.Equal(t, filepath.Join("./data", "media"), cfg.Media.RootDir)
	assert.NotEmpty(t, cfg.Auth.SecretKey)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streamhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  type: sqlite
  data_dir: `+dir+`
auth:
  session_ttl: 2h
logging:
  level: debug
`), 0644))

	t.Setenv("STREAMHUB_LOG_LEVEL", "warn")
	t.Setenv("STREAMHUB_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(path))
	cfg := cm.GetConfig()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "warn", cfg.Logging.Level, "env overrides the file")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, filepath.Join(dir, "streamhub.db"), cfg.Database.DatabasePath)
	assert.Equal(t, 12, cfg.Auth.BcryptCost, "unset values keep defaults")
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"STREAMHUB_PORT": "70000"}},
		{"bad database", map[string]string{"DATABASE_TYPE": "mysql"}},
		{"missing secret in production", map[string]string{"STREAMHUB_ENV": "production"}},
		{"bad webp quality", map[string]string{"STREAMHUB_WEBP_QUALITY": "0"}},
		{"bad pixel cap", map[string]string{"STREAMHUB_MAX_IMAGE_PIXELS": "0"}},
		{"bad duration", map[string]string{"STREAMHUB_SESSION_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Error(t, NewConfigManager().LoadConfig(""))
		})
	}
}

func TestWatchersAreNotifiedOnLoad(t *testing.T) {
	cm := NewConfigManager()
	changed := make(chan *Config, 1)
	cm.AddWatcher(func(_, newConfig *Config) { changed <- newConfig })

	t.Setenv("STREAMHUB_PORT", "8181")
	require.NoError(t, cm.LoadConfig(""))

	select {
	case cfg := <-changed:
		assert.Equal(t, 8181, cfg.Server.Port)
	case <-time.After(time.Second):
		t.Fatal("watcher was not called")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streamhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8081\n"), 0644))

	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cm.Watch(ctx) }()

	// give the watcher time to register before the write
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8082\n"), 0644))

	assert.Eventually(t, func() bool {
		return cm.GetConfig().Server.Port == 8082
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestPostgresDSN(t *testing.T) {
	cfg := DatabaseFullConfig{Type: "postgres", Host: "db", Port: 5433, Username: "app", Password: "p@ss", Database: "hub"}
	assert.Equal(t, "postgres://app:p%40ss@db:5433/hub?sslmode=disable", cfg.DSN())

	cfg.URL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DSN())

	sqlite := DatabaseFullConfig{Type: "sqlite", DatabasePath: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db", sqlite.DSN())
}
