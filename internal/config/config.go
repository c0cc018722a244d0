package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Environment string `yaml:"environment" json:"environment" env:"STREAMHUB_ENV"`

	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Database configuration
	Database DatabaseFullConfig `yaml:"database" json:"database"`

	// Redis backs sessions and the catalog cache when an address is set
	Redis RedisConfig `yaml:"redis" json:"redis"`

	// Account and session configuration
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Uploaded media configuration
	Media MediaConfig `yaml:"media" json:"media"`

	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	Events EventsConfig `yaml:"events" json:"events"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" env:"STREAMHUB_HOST"`
	Port            int           `yaml:"port" json:"port" env:"STREAMHUB_PORT"`
	BaseURL         string        `yaml:"base_url" json:"base_url" env:"STREAMHUB_BASE_URL"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" env:"STREAMHUB_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" env:"STREAMHUB_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"STREAMHUB_SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" json:"max_header_bytes" env:"STREAMHUB_MAX_HEADER_BYTES"`
	EnableCORS      bool          `yaml:"enable_cors" json:"enable_cors" env:"STREAMHUB_ENABLE_CORS"`
	AllowedOrigins  []string      `yaml:"allowed_origins" json:"allowed_origins" env:"STREAMHUB_ALLOWED_ORIGINS"`
	TrustedProxies  []string      `yaml:"trusted_proxies" json:"trusted_proxies" env:"STREAMHUB_TRUSTED_PROXIES"`
}

// DatabaseFullConfig holds connection and pool settings for sqlite or postgres
type DatabaseFullConfig struct {
	Type            string        `yaml:"type" json:"type" env:"DATABASE_TYPE"`
	URL             string        `yaml:"url" json:"url" env:"DATABASE_URL"`
	Host            string        `yaml:"host" json:"host" env:"POSTGRES_HOST"`
	Port            int           `yaml:"port" json:"port" env:"POSTGRES_PORT"`
	Username        string        `yaml:"username" json:"username" env:"POSTGRES_USER"`
	Password        string        `yaml:"password" json:"-" env:"POSTGRES_PASSWORD"`
	Database        string        `yaml:"database" json:"database" env:"POSTGRES_DB"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode" env:"POSTGRES_SSLMODE"`
	DataDir         string        `yaml:"data_dir" json:"data_dir" env:"STREAMHUB_DATA_DIR"`
	DatabasePath    string        `yaml:"database_path" json:"database_path" env:"STREAMHUB_DATABASE_PATH"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	LogQueries      bool          `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES"`
}

// RedisConfig holds the optional redis connection
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" json:"-" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" json:"db" env:"REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" env:"REDIS_KEY_PREFIX"`
}

// Enabled reports whether a redis address was configured
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// AuthConfig holds account, token and session settings
type AuthConfig struct {
	SecretKey        string        `yaml:"secret_key" json:"-" env:"STREAMHUB_SECRET_KEY"`
	SessionCookie    string        `yaml:"session_cookie" json:"session_cookie" env:"STREAMHUB_SESSION_COOKIE"`
	SessionTTL       time.Duration `yaml:"session_ttl" json:"session_ttl" env:"STREAMHUB_SESSION_TTL"`
	SecureCookies    bool          `yaml:"secure_cookies" json:"secure_cookies" env:"STREAMHUB_SECURE_COOKIES"`
	ActivationTTL    time.Duration `yaml:"activation_ttl" json:"activation_ttl" env:"STREAMHUB_ACTIVATION_TTL"`
	PasswordResetTTL time.Duration `yaml:"password_reset_ttl" json:"password_reset_ttl" env:"STREAMHUB_PASSWORD_RESET_TTL"`
	BcryptCost       int           `yaml:"bcrypt_cost" json:"bcrypt_cost" env:"STREAMHUB_BCRYPT_COST"`
	MailFrom         string        `yaml:"mail_from" json:"mail_from" env:"STREAMHUB_MAIL_FROM"`
}

// MediaConfig holds upload storage settings
type MediaConfig struct {
	RootDir        string `yaml:"root_dir" json:"root_dir" env:"STREAMHUB_MEDIA_ROOT"`
	URLPrefix      string `yaml:"url_prefix" json:"url_prefix" env:"STREAMHUB_MEDIA_URL"`
	MaxUploadSize  int64  `yaml:"max_upload_size" json:"max_upload_size" env:"STREAMHUB_MAX_UPLOAD_SIZE"`
	MaxImagePixels int64  `yaml:"max_image_pixels" json:"max_image_pixels" env:"STREAMHUB_MAX_IMAGE_PIXELS"`
	WebPQuality    int    `yaml:"webp_quality" json:"webp_quality" env:"STREAMHUB_WEBP_QUALITY"`
}

// RateLimitConfig throttles the credential endpoints per client IP
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled" env:"STREAMHUB_RATE_LIMIT"`
	RequestsPerMinute int  `yaml:"requests_per_minute" json:"requests_per_minute" env:"STREAMHUB_RATE_LIMIT_RPM"`
	Burst             int  `yaml:"burst" json:"burst" env:"STREAMHUB_RATE_LIMIT_BURST"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"STREAMHUB_LOG_LEVEL"`
	Format string `yaml:"format" json:"format" env:"STREAMHUB_LOG_FORMAT"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"STREAMHUB_METRICS"`
	Path    string `yaml:"path" json:"path" env:"STREAMHUB_METRICS_PATH"`
}

// EventsConfig configures the in-process event bus
type EventsConfig struct {
	BufferSize        int           `yaml:"buffer_size" json:"buffer_size" env:"STREAMHUB_EVENT_BUFFER"`
	EnablePersistence bool          `yaml:"enable_persistence" json:"enable_persistence" env:"STREAMHUB_EVENT_PERSIST"`
	MaxEventAge       time.Duration `yaml:"max_event_age" json:"max_event_age" env:"STREAMHUB_EVENT_MAX_AGE"`
}

// ConfigManager manages application configuration with hot-reload support
type ConfigManager struct {
	config     *Config
	configPath string
	watchers   []ConfigWatcher
	mu         sync.RWMutex
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(oldConfig, newConfig *Config)

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	cfg := DefaultConfig()
	applyDerivedConfig(cfg)
	return &ConfigManager{
		config:   cfg,
		watchers: make([]ConfigWatcher, 0),
	}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			BaseURL:         "http://localhost:8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxHeaderBytes:  1 << 20,
			EnableCORS:      true,
			AllowedOrigins:  []string{"*"},
			TrustedProxies:  []string{},
		},
		Database: DatabaseFullConfig{
			Type:            "sqlite",
			Host:            "localhost",
			Port:            5432,
			Username:        "streamhub",
			Database:        "streamhub",
			SSLMode:         "disable",
			DataDir:         "./data",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			KeyPrefix: "streamhub:",
		},
		Auth: AuthConfig{
			SessionCookie:    "streamhub_session",
			SessionTTL:       14 * 24 * time.Hour,
			ActivationTTL:    72 * time.Hour,
			PasswordResetTTL: 24 * time.Hour,
			BcryptCost:       12,
			MailFrom:         "no-reply@streamhub.local",
		},
		Media: MediaConfig{
			URLPrefix:      "/media",
			MaxUploadSize:  5 << 20,
			MaxImagePixels: 25_000_000,
			WebPQuality:    85,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 20,
			Burst:             5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Events: EventsConfig{
			BufferSize:        1000,
			EnablePersistence: true,
			MaxEventAge:       7 * 24 * time.Hour,
		},
	}
}

// IsDevelopment reports whether the service runs with development defaults
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development" || c.Environment == "test"
}

// LoadConfig loads configuration from file and environment variables
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := *cm.config
	cm.configPath = configPath

	newConfig := DefaultConfig()

	if configPath != "" && fileExists(configPath) {
		if err := loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	applyDerivedConfig(newConfig)

	if err := validateConfig(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cm.config = newConfig

	for _, watcher := range cm.watchers {
		go watcher(&oldConfig, newConfig)
	}

	return nil
}

// Reload re-reads the file the manager was last loaded from
func (cm *ConfigManager) Reload() error {
	cm.mu.RLock()
	path := cm.configPath
	cm.mu.RUnlock()
	return cm.LoadConfig(path)
}

// Path returns the file the configuration was loaded from
func (cm *ConfigManager) Path() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// GetConfig returns the current configuration (thread-safe)
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	// Return a copy to prevent external modifications
	configCopy := *cm.config
	return &configCopy
}

// SetConfig replaces the active configuration without touching disk
func (cm *ConfigManager) SetConfig(cfg *Config) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.config = cfg
}

// AddWatcher adds a configuration change watcher
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

// SaveConfig saves the current configuration to file
func (cm *ConfigManager) SaveConfig() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.configPath == "" {
		return fmt.Errorf("no config path set")
	}

	return saveToFile(cm.configPath, cm.config)
}

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func saveToFile(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	default:
		return fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// loadStructFromEnv overrides fields whose env tag names a set variable.
// Defaults live in DefaultConfig so file values are never clobbered.
func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue, ok := os.LookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %v", field.Type())
		}
		values := strings.Split(value, ",")
		for i, v := range values {
			values[i] = strings.TrimSpace(v)
		}
		field.Set(reflect.ValueOf(values))
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Type != "sqlite" && config.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	if config.Auth.SecretKey == "" && !config.IsDevelopment() {
		return fmt.Errorf("auth.secret_key must be set outside development")
	}

	if config.Auth.SessionTTL <= 0 {
		return fmt.Errorf("invalid session ttl: %s", config.Auth.SessionTTL)
	}

	if config.Auth.BcryptCost < 4 || config.Auth.BcryptCost > 31 {
		return fmt.Errorf("invalid bcrypt cost: %d", config.Auth.BcryptCost)
	}

	if config.Media.WebPQuality < 1 || config.Media.WebPQuality > 100 {
		return fmt.Errorf("invalid webp quality: %d", config.Media.WebPQuality)
	}

	if config.Media.MaxUploadSize <= 0 {
		return fmt.Errorf("invalid max upload size: %d", config.Media.MaxUploadSize)
	}

	if config.Media.MaxImagePixels <= 0 {
		return fmt.Errorf("invalid max image pixels: %d", config.Media.MaxImagePixels)
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute", config.RateLimit.RequestsPerMinute)
	}

	return nil
}

func applyDerivedConfig(config *Config) {
	if config.Database.DatabasePath == "" && config.Database.Type == "sqlite" {
		config.Database.DatabasePath = filepath.Join(config.Database.DataDir, "streamhub.db")
	}

	if config.Media.RootDir == "" {
		config.Media.RootDir = filepath.Join(config.Database.DataDir, "media")
	}

	if config.Auth.SecretKey == "" && config.IsDevelopment() {
		config.Auth.SecretKey = "development-only-secret"
	}

	if config.RateLimit.Burst <= 0 {
		config.RateLimit.Burst = 1
	}

	config.Server.BaseURL = strings.TrimRight(config.Server.BaseURL, "/")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Global convenience functions

// Get returns the current global configuration
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// Load loads configuration from the specified path
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}

// AddWatcher adds a global configuration watcher
func AddWatcher(watcher ConfigWatcher) {
	GetConfigManager().AddWatcher(watcher)
}

// Save saves the current configuration
func Save() error {
	return GetConfigManager().SaveConfig()
}
