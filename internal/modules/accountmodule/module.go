// Package accountmodule registers subscriber and administrator accounts,
// login sessions and the activation and password-reset flows.
package accountmodule

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/base"
	"github.com/mantonx/streamhub/internal/cache"
	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/middleware"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/api"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/mailer"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/passwords"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/repository"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/sessions"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/tokens"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/service"
	"github.com/mantonx/streamhub/internal/services"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the account module
	ModuleID = "system.accounts"

	// ModuleName is the display name for the account module
	ModuleName = "Account Manager"

	sessionSweepInterval = 10 * time.Minute
)

// Module implements accounts and sessions as a module
type Module struct {
	*base.BaseModule

	service  services.AccountService
	handler  *api.Handler
	sessions sessions.Store
	limiter  *middleware.RateLimiter
	stop     chan struct{}
}

// NewModule creates the account module
func NewModule() *Module {
	return &Module{BaseModule: base.NewBaseModule(ModuleID, ModuleName, true)}
}

// ProvidedServices implements modulemanager.ServiceProvider
func (m *Module) ProvidedServices() []string {
	return []string{services.AccountServiceName}
}

// RequiredServices implements modulemanager.ServiceConsumer. Profile
// pictures go through the asset service.
func (m *Module) RequiredServices() []string {
	return []string{services.AssetServiceName}
}

// Migrate creates the accounts and profiles tables
func (m *Module) Migrate(db *gorm.DB) error {
	m.Logger().Info("migrating account schema")
	m.SetDB(db)
	if err := db.AutoMigrate(&database.Account{}, &database.Profile{}); err != nil {
		return fmt.Errorf("failed to migrate account schema: %w", err)
	}
	return nil
}

// Init builds the account service and registers it
func (m *Module) Init() error {
	cfg := config.Get()
	db := m.GetDB()
	if db == nil {
		db = database.GetDB()
	}
	if db == nil {
		return base.ErrDatabaseConnection
	}

	m.stop = make(chan struct{})
	if client := cache.Client(); client != nil {
		m.sessions = sessions.NewRedisStore(client, cfg.Redis.KeyPrefix)
		m.Logger().Info("using redis session store")
	} else {
		memory := sessions.NewMemoryStore()
		m.sessions = memory
		go m.sweepSessions(memory, m.stop)
		m.Logger().Info("using in-memory session store")
	}

	assets := services.NewLazy[services.AssetService](services.AssetServiceName)
	m.service = service.NewAccountService(service.Options{
		Repository: repository.NewAccountRepository(db),
		Hasher:     passwords.NewHasher(cfg.Auth.BcryptCost),
		Tokens:     tokens.NewGenerator(cfg.Auth.SecretKey),
		Sessions:   m.sessions,
		Mailer:     mailer.NewLogMailer(cfg.Auth.MailFrom, m.Logger().Named("mailer")),
		Assets:     assets.Get,
		Bus:        m.GetEventBus(),
		Settings: service.Settings{
			BaseURL:          cfg.Server.BaseURL,
			MailFrom:         cfg.Auth.MailFrom,
			SessionTTL:       cfg.Auth.SessionTTL,
			ActivationTTL:    cfg.Auth.ActivationTTL,
			PasswordResetTTL: cfg.Auth.PasswordResetTTL,
		},
		Logger: m.Logger(),
	})
	services.RegisterService[services.AccountService](services.AccountServiceName, m.service)

	m.handler = api.NewHandler(m.service, api.CookieSettings{
		Name:   cfg.Auth.SessionCookie,
		TTL:    cfg.Auth.SessionTTL,
		Secure: cfg.Auth.SecureCookies,
	})

	if cfg.RateLimit.Enabled {
		m.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		m.limiter.StartCleanup(5 * time.Minute)
	}

	m.PublishLoaded()
	return nil
}

// RegisterRoutes implements modulemanager.RouteRegistrar
func (m *Module) RegisterRoutes(router *gin.Engine) {
	var limit gin.HandlerFunc
	if m.limiter != nil {
		limit = m.limiter.Middleware()
	}
	api.RegisterRoutes(router, m.handler, limit)
}

// Service returns the account service once Init has run
func (m *Module) Service() services.AccountService {
	return m.service
}

// Shutdown stops background sweeping and rate limiter cleanup
func (m *Module) Shutdown(context.Context) error {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	if m.limiter != nil {
		m.limiter.Stop()
	}
	return nil
}

func (m *Module) sweepSessions(store *sessions.MemoryStore, stop <-chan struct{}) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				m.Logger().Debug("expired sessions removed", "count", n)
			}
		}
	}
}
