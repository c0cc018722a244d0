package config

import (
	"fmt"
	"net/url"
)

// GetDatabaseURL returns the connection string for the configured database
func GetDatabaseURL() string {
	return Get().Database.DSN()
}

// DSN returns the driver connection string. An explicit URL always wins.
func (cfg DatabaseFullConfig) DSN() string {
	if cfg.URL != "" {
		return cfg.URL
	}

	switch cfg.Type {
	case "postgres":
		return buildPostgresURL(cfg)
	default:
		return cfg.DatabasePath
	}
}

// buildPostgresURL builds a PostgreSQL connection URL from config
func buildPostgresURL(cfg DatabaseFullConfig) string {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.Database == "" {
		cfg.Database = "streamhub"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()

	return u.String()
}
