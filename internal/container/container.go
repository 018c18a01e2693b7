// Package container builds the application graph from configuration.
package container

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gostamp/adapters/api"
	"gostamp/adapters/postgres"
	"gostamp/adapters/postgres/migrations"
	"gostamp/adapters/stats/registry"
	"gostamp/app"
	"gostamp/internal"
	"gostamp/internal/config"
	apperrors "gostamp/internal/errors"
	"gostamp/internal/metrics"
	"gostamp/internal/rng"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; DB is nil when no DATABASE_URL is configured
	DB      *sqlx.DB
	Metrics *metrics.Metrics

	Registry   *registry.Registry
	Repository *postgres.ComparisonRepository
	Service    *app.ComparisonService
}

// New creates the container. The database is connected and migrated when
// configured.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
	}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.New()
	}

	c.Registry = registry.New(rng.NewStreams()).WithDefaults(registry.Defaults{
		BarnardSteps: cfg.Engine.BarnardSteps,
		Replicates:   cfg.Engine.ResamplingReplicates,
		Seed:         cfg.Engine.RNGSeed,
	})

	opts := []app.ServiceOption{
		app.WithLogger(c.Logger),
		app.WithWorkers(cfg.Engine.Workers),
		app.WithMetrics(c.Metrics),
		app.WithDefaults(cfg.Engine.DefaultAlpha, cfg.Engine.DefaultCoverage),
	}

	if cfg.Database.Enabled() {
		if err := c.initDatabase(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, app.WithRepository(c.Repository))
	} else {
		c.Logger.Info("DATABASE_URL not set; runs will not be persisted")
	}

	c.Service = app.NewComparisonService(c.Registry, opts...)
	return c, nil
}

// initDatabase connects, applies pending migrations and creates the repository
func (c *Container) initDatabase(ctx context.Context) error {
	db, err := postgres.Open(ctx, c.Config.Database.URL, c.Config.Database.MaxOpenConns)
	if err != nil {
		return apperrors.DatabaseError("failed to connect to database", err)
	}

	applied, err := migrations.NewMigrator(db, c.Logger).Up(ctx)
	if err != nil {
		db.Close()
		return apperrors.DatabaseError("failed to migrate database", err)
	}
	if applied > 0 {
		c.Logger.Info("applied %d migrations", applied)
	}

	c.DB = db
	c.Repository = postgres.NewComparisonRepository(db)
	return nil
}

// APIServer builds the HTTP server over the service
func (c *Container) APIServer() *api.Server {
	gin.SetMode(c.Config.Server.GinMode)
	return api.NewServer(c.Service, c.Metrics, c.Logger)
}

// Close releases resources
func (c *Container) Close() error {
	defer c.Logger.Sync()
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
