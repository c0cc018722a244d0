package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mantonx/streamhub/internal/cache"
	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/logger"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"github.com/mantonx/streamhub/internal/server"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
)

func main() {
	if err := run(); err != nil {
		logger.Error("streamhub exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	superuser := flag.String("create-superuser", "", "create an administrator (email:username:password) and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	path := resolveConfigPath(*configPath)
	if err := config.Load(path); err != nil {
		return err
	}
	cfg := config.Get()

	logger.Configure(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger.Info("configuration loaded", "path", path, "environment", cfg.Environment)
	config.AddWatcher(func(oldConfig, newConfig *config.Config) {
		if oldConfig.Logging.Level != newConfig.Logging.Level {
			logger.SetLevel(newConfig.Logging.Level)
			logger.Info("log level changed", "level", newConfig.Logging.Level)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	redisClient, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using in-process caches and sessions", "error", err)
	}
	if redisClient != nil {
		cache.SetClient(redisClient)
		defer redisClient.Close()
	}

	var storage events.EventStorage
	if cfg.Events.EnablePersistence {
		if err := events.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate event log: %w", err)
		}
		storage = events.NewDatabaseEventStorage(db)
	}
	busCfg := events.DefaultEventBusConfig()
	if cfg.Events.BufferSize > 0 {
		busCfg.BufferSize = cfg.Events.BufferSize
	}
	busCfg.EnablePersistence = cfg.Events.EnablePersistence
	if cfg.Events.MaxEventAge > 0 {
		busCfg.MaxEventAge = cfg.Events.MaxEventAge
	}
	bus := events.NewEventBus(busCfg, logger.Named("events"), storage)
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	if err := server.InitializeModules(bus); err != nil {
		_ = bus.Stop(context.Background())
		return err
	}

	if *superuser != "" {
		err := createSuperuser(ctx, *superuser)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = modulemanager.Shutdown(shutdownCtx)
		_ = bus.Stop(shutdownCtx)
		return err
	}

	if path != "" {
		go func() {
			if err := config.Watch(ctx); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	events.Emit(bus, events.NewSystemEvent(events.EventSystemStarted, "System started", "streamhub is up"))
	return server.New(cfg, bus).Run(ctx)
}

// resolveConfigPath prefers the flag, then STREAMHUB_CONFIG_PATH, then
// ./streamhub.yaml when it exists
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("STREAMHUB_CONFIG_PATH"); env != "" {
		return env
	}
	if _, err := os.Stat("streamhub.yaml"); err == nil {
		return "streamhub.yaml"
	}
	return ""
}

func createSuperuser(ctx context.Context, value string) error {
	input, err := parseSuperuser(value)
	if err != nil {
		return err
	}
	accounts, err := services.GetService[services.AccountService](services.AccountServiceName)
	if err != nil {
		return err
	}
	account, err := accounts.CreateSuperuser(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create superuser: %w", err)
	}
	logger.Info("superuser created", "account_id", account.ID, "email", account.Email)
	return nil
}

// parseSuperuser splits email:username:password; the password may itself
// contain colons
func parseSuperuser(value string) (types.SuperuserInput, error) {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return types.SuperuserInput{}, fmt.Errorf("expected email:username:password")
	}
	return types.SuperuserInput{Email: parts[0], Username: parts[1], Password: parts[2]}, nil
}
