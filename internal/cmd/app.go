package cmd

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/postflow/internal/approval"
	"github.com/Iron-Ham/postflow/internal/audit"
	"github.com/Iron-Ham/postflow/internal/config"
	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/event"
	"github.com/Iron-Ham/postflow/internal/logging"
	"github.com/Iron-Ham/postflow/internal/metrics"
	"github.com/Iron-Ham/postflow/internal/publisher"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store/sqlstore"
	"github.com/Iron-Ham/postflow/internal/taskqueue"
	"github.com/Iron-Ham/postflow/internal/template"
	"github.com/spf13/viper"
	"github.com/xo/dburl"
)

// app holds the wired components a command runs against.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	store     *sqlstore.Store
	bus       *event.Bus
	metrics   *metrics.Recorder
	tasks     *taskqueue.Orchestrator
	engine    *approval.Engine
	templates *template.Manager
}

// openApp loads the configuration, opens and migrates the store, and wires
// the engine with its listeners.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	if err := ensureSQLiteDir(cfg.Database.URL); err != nil {
		_ = logger.Close()
		return nil, err
	}
	st, err := sqlstore.OpenURL(ctx, cfg.Database.URL,
		sqlstore.WithLogger(logger),
		sqlstore.WithMaxOpenConns(cfg.Database.MaxOpenConns))
	if err != nil {
		_ = logger.Close()
		return nil, errors.NewExternalFailureError("open database", err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		_ = logger.Close()
		return nil, err
	}

	bus := event.NewBus(logger)
	recorder := metrics.NewRecorder(true)
	recorder.Register(bus)
	if cfg.Audit.Enabled {
		audit.NewListener(cfg.Audit.File).Register(bus)
	}
	notifier := event.NewNotifier(bus)

	tasks := taskqueue.New(st, taskqueue.Config{
		Notifier:         notifier,
		PublisherRoles:   cfg.Roles.PublisherRoles(),
		AssigneesPerTask: cfg.Tasks.AssigneesPerTask,
		Logger:           logger,
	})
	engine := approval.New(st, approval.Config{
		Resolver: template.NewResolver(cfg.Roles.FallbackRoles()),
		Tasks:    tasks,
		Gateway:  newGateway(cfg, logger),
		Notifier: notifier,
		Observer: recorder,
		Logger:   logger,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		bus:       bus,
		metrics:   recorder,
		tasks:     tasks,
		engine:    engine,
		templates: template.NewManager(st, cfg.Roles.KnownRoles()),
	}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if cerr := a.logger.Close(); err == nil {
		err = cerr
	}
	return err
}

func newGateway(cfg *config.Config, logger *logging.Logger) publisher.Gateway {
	if cfg.Publisher.Mode == config.PublisherModeHTTP {
		return publisher.NewHTTPGateway(publisher.HTTPConfig{
			Endpoint:        cfg.Publisher.Endpoint,
			APIToken:        cfg.Publisher.APIToken,
			Timeout:         cfg.Publisher.Timeout,
			BreakerFailures: cfg.Publisher.BreakerFailures,
			BreakerTimeout:  cfg.Publisher.BreakerTimeout,
		}, &http.Client{Timeout: cfg.Publisher.Timeout}, logger)
	}
	return publisher.NewDryRun(logger)
}

// ensureSQLiteDir creates the directory of a file-backed SQLite database.
func ensureSQLiteDir(rawURL string) error {
	u, err := dburl.Parse(rawURL)
	if err != nil || u.Driver != sqlstore.DriverSQLite {
		return nil
	}
	path, _, _ := strings.Cut(u.DSN, "?")
	path = strings.TrimPrefix(path, "file:")
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create database directory")
	}
	return nil
}

// actor reads the caller identity from the global flags.
func actor() (approval.Actor, error) {
	tenant := strings.TrimSpace(viper.GetString("tenant"))
	if tenant == "" {
		return approval.Actor{}, errors.NewValidationError("--tenant is required").WithField("tenant")
	}
	user := strings.TrimSpace(viper.GetString("user"))
	if user == "" {
		return approval.Actor{}, errors.NewValidationError("--user is required").WithField("user")
	}
	r, err := role.Parse(viper.GetString("role"))
	if err != nil {
		return approval.Actor{}, errors.NewValidationError("invalid --role").WithField("role").WithCause(err)
	}
	return approval.Actor{TenantID: tenant, UserID: user, Role: r}, nil
}

// tenant reads --tenant for commands that need no user identity.
func tenant() (string, error) {
	t := strings.TrimSpace(viper.GetString("tenant"))
	if t == "" {
		return "", errors.NewValidationError("--tenant is required").WithField("tenant")
	}
	return t, nil
}
