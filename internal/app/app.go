// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"tirehub/internal/catalog"
	"tirehub/internal/config"
	"tirehub/internal/domain"
	"tirehub/internal/domain/notifications"
	"tirehub/internal/domain/payments"
	"tirehub/internal/logger"
	"tirehub/internal/recommend"
	"tirehub/internal/repository"
	"tirehub/internal/repository/sqlite"
	"tirehub/internal/seed"
	"tirehub/internal/server"
	"tirehub/internal/servicerequest"
	"tirehub/internal/stockmonitor"
	"tirehub/internal/templates"
)

type closeFunc struct {
	name string
	fn   func() error
}

// App holds the long-lived dependencies of a process
type App struct {
	cfg   *config.Config
	repos *repository.Repositories

	notifier notifications.Notifier
	monitor  *stockmonitor.Monitor

	closers []closeFunc
}

// New loads configuration, initializes logging and opens the migrated database
func New(ctx context.Context, configPath string) (*App, error) {
	a := &App{}

	inits := []func(context.Context, string) error{
		a.initConfig,
		a.initLogger,
		a.initDatabase,
	}
	for _, initFn := range inits {
		if err := initFn(ctx, configPath); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) initConfig(_ context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *App) initLogger(_ context.Context, _ string) error {
	if err := logger.Init(a.cfg.Logger.Level, a.cfg.Logger.JSON); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	a.addCloser("logger", func() error {
		_ = logger.Sync()
		return nil
	})
	return nil
}

func (a *App) initDatabase(ctx context.Context, _ string) error {
	db, err := sqlite.New(a.cfg.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.addCloser("database", db.Close)

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info(ctx, "database initialized", logger.String("path", a.cfg.GetDatabasePath()))

	a.repos = sqlite.NewRepositories(db)
	return nil
}

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Repos() *repository.Repositories { return a.repos }

// EnsureAdmin creates the configured admin account when the user directory is empty
func (a *App) EnsureAdmin(ctx context.Context) error {
	count, err := a.repos.Users.Count(ctx, "")
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := sqlite.HashPassword(a.cfg.AdminPassword())
	if err != nil {
		return err
	}

	admin := &domain.User{
		Email:        a.cfg.Admin.Email,
		PasswordHash: hashedPassword,
		Name:         a.cfg.Admin.Name,
		Role:         domain.RoleAdmin,
	}
	if err := a.repos.Users.Create(ctx, admin); err != nil {
		return err
	}

	logger.Info(ctx, "default admin user created", logger.String("email", admin.Email))
	if a.cfg.Admin.Password == "" {
		logger.Warn(ctx, "default admin uses the development password; change it before production")
	}
	return nil
}

// SeedCatalog loads the configured YAML catalog when seeding is enabled
func (a *App) SeedCatalog(ctx context.Context) error {
	if !a.cfg.Seed.Enabled {
		return nil
	}
	c, err := seed.Load(a.cfg.Seed.Path)
	if err != nil {
		return err
	}
	_, err = seed.Apply(ctx, a.repos, c)
	return err
}

// Notifier builds the alert channels: email always, Kafka when brokers are configured
func (a *App) Notifier(ctx context.Context) (notifications.Notifier, error) {
	if a.notifier != nil {
		return a.notifier, nil
	}

	tmpl, err := templates.NewManager(a.cfg.Notifications.TemplatesDir, a.cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize templates: %w", err)
	}
	email := notifications.NewEmailNotifier(notifications.LogEmailProvider{From: a.cfg.Notifications.EmailFrom}, tmpl)

	var events notifications.Notifier
	if brokers := a.cfg.Notifications.KafkaBrokers; len(brokers) > 0 {
		producer, err := sarama.NewSyncProducer(brokers, notifications.ProducerConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka producer: %w", err)
		}
		a.addCloser("kafka producer", producer.Close)
		events = notifications.NewKafkaNotifier(producer, a.cfg.Notifications.KafkaTopic)
		logger.Info(ctx, "kafka alerts enabled",
			logger.Any("brokers", brokers),
			logger.String("topic", a.cfg.Notifications.KafkaTopic))
	}

	if events == nil {
		a.notifier = email
	} else {
		a.notifier = notifications.NewCompositeNotifier(email, events)
	}
	return a.notifier, nil
}

// Monitor builds the low-stock monitor
func (a *App) Monitor(ctx context.Context) (*stockmonitor.Monitor, error) {
	if a.monitor != nil {
		return a.monitor, nil
	}
	notifier, err := a.Notifier(ctx)
	if err != nil {
		return nil, err
	}
	a.monitor = stockmonitor.New(a.repos.Parts, a.repos.Users, a.repos.Settings, notifier)
	return a.monitor, nil
}

// Server builds the HTTP API with its services
func (a *App) Server(ctx context.Context) (*server.Server, error) {
	if err := a.cfg.ValidateServer(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	monitor, err := a.Monitor(ctx)
	if err != nil {
		return nil, err
	}

	engine := recommend.NewEngine(a.repos.Parts, recommend.DefaultRules(), a.cfg.Catalog.PlaceholderImage)
	requests := servicerequest.NewService(a.repos, engine, payments.NewMockProvider(),
		servicerequest.WithCurrency(a.cfg.Business.Currency),
		servicerequest.WithQuotationValidity(a.cfg.QuotationValidity()))

	return server.New(a.cfg, a.repos, server.Services{
		Catalog:  catalog.NewService(a.repos, a.cfg.Catalog.FeaturedLimit),
		Requests: requests,
		Monitor:  monitor,
	}), nil
}

// Worker is a long-running process component that stops when ctx is done
type Worker func(ctx context.Context) error

// Workers builds every component the server process runs: the HTTP server and, when enabled,
// the scheduled low-stock sweep. Nothing is started; on error no worker is returned.
func (a *App) Workers(ctx context.Context) ([]Worker, error) {
	srv, err := a.Server(ctx)
	if err != nil {
		return nil, err
	}
	workers := []Worker{srv.Run}

	if a.cfg.Monitor.Enabled {
		monitor, err := a.Monitor(ctx)
		if err != nil {
			return nil, err
		}
		interval := a.cfg.MonitorInterval()
		workers = append(workers, func(ctx context.Context) error {
			return monitor.Schedule(ctx, interval)
		})
	}
	return workers, nil
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closeFunc{name: name, fn: fn})
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
