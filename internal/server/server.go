// Package server builds the HTTP server: the middleware chain, the core
// system routes and every module's routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamhub/internal/api"
	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/logger"
	"github.com/mantonx/streamhub/internal/middleware"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"github.com/mantonx/streamhub/internal/services"

	// Import all modules to trigger their registration
	_ "github.com/mantonx/streamhub/internal/modules/accountmodule"
	_ "github.com/mantonx/streamhub/internal/modules/assetmodule"
	_ "github.com/mantonx/streamhub/internal/modules/catalogmodule"
	_ "github.com/mantonx/streamhub/internal/modules/eventsmodule"
	_ "github.com/mantonx/streamhub/internal/modules/favoritesmodule"
	_ "github.com/mantonx/streamhub/internal/modules/reviewmodule"
)

// Server owns the gin engine and the underlying http.Server
type Server struct {
	cfg     *config.Config
	bus     events.EventBus
	logger  hclog.Logger
	router  *gin.Engine
	http    *http.Server
	started time.Time
}

// New builds a server around an initialized database and a started bus
func New(cfg *config.Config, bus events.EventBus) *Server {
	s := &Server{
		cfg:     cfg,
		bus:     bus,
		logger:  logger.Named("server"),
		started: time.Now(),
	}
	s.router = s.SetupRouter()
	s.http = &http.Server{
		Addr:           net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:        s.router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return s
}

// Router returns the configured engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// InitializeModules registers the global event bus and loads every module
func InitializeModules(bus events.EventBus) error {
	if bus != nil {
		events.SetGlobalEventBus(bus)
	}
	if err := modulemanager.LoadAll(database.GetDB()); err != nil {
		return fmt.Errorf("failed to load modules: %w", err)
	}
	logModuleStatus()
	return nil
}

// SetupRouter configures the middleware chain and all routes
func (s *Server) SetupRouter() *gin.Engine {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := api.RegisterValidators(); err != nil {
		s.logger.Error("failed to register validators", "error", err)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(s.cfg.Server.TrustedProxies); err != nil {
		s.logger.Warn("invalid trusted proxies", "error", err)
	}
	r.MaxMultipartMemory = s.cfg.Media.MaxUploadSize

	accounts := services.NewLazy[services.AccountService](services.AccountServiceName)
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.ErrorLogger(),
		api.ErrorMiddleware(),
	)
	if s.cfg.Server.EnableCORS {
		r.Use(middleware.CORS(s.cfg.Server.AllowedOrigins))
	}
	if s.cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}
	r.Use(middleware.SessionLoader(func() (middleware.AccountResolver, error) {
		svc, err := accounts.Get()
		if err != nil {
			return nil, err
		}
		return svc, nil
	}, s.cfg.Auth.SessionCookie))

	setupCoreRoutes(r, s.cfg, s.started)
	modulemanager.RegisterRoutes(r)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, then stops modules and the event bus
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := modulemanager.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("module shutdown: %w", err))
	}
	if s.bus != nil {
		events.Emit(s.bus, events.NewSystemEvent(events.EventSystemStopped, "System stopped", "streamhub is shutting down"))
		if err := s.bus.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("event bus shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// logModuleStatus logs the loaded modules
func logModuleStatus() {
	modules := modulemanager.ListModules()
	logger.Info("module system initialized", "count", len(modules))
	for _, module := range modules {
		logger.Debug("module loaded", "id", module.ID(), "name", module.Name(), "core", module.Core())
	}
}
