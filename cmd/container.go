// cmd/container.go
//
// Composition root. Owns infrastructure (DB, Redis, email, jobs) and composes
// the bounded-context containers.
package main

import (
	"context"

	"github.com/Abraxas-365/relay/pkg/config"
	"github.com/Abraxas-365/relay/pkg/dbx"
	"github.com/Abraxas-365/relay/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/relay/pkg/jobx"
	"github.com/Abraxas-365/relay/pkg/jobx/jobxmemory"
	"github.com/Abraxas-365/relay/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/Abraxas-365/relay/pkg/notifx"
	"github.com/Abraxas-365/relay/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/relay/pkg/notifx/notifxses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB    *sqlx.DB
	Redis *redis.Client
	Email *notifx.Client
	Jobs  *jobx.Client

	// Bounded-context containers
	IAM *iamcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis, email, jobs
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	if c.Config.Server.RunMigrations {
		if err := dbx.MigrateUp(db.DB, c.Config.Server.MigrationsPath); err != nil {
			logx.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. Email
	c.initEmail()

	// 4. Background jobs
	c.initJobs()

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initEmail() {
	cfg := c.Config.Notifx

	var provider notifx.EmailSender
	switch cfg.Provider {
	case "ses":
		ses, err := notifxses.NewFromRegion(context.Background(), cfg.AWSRegion, cfg.FromAddress)
		if err != nil {
			logx.Fatalf("Unable to configure SES: %v", err)
		}
		provider = ses
		logx.Infof("  ✅ SES email provider configured (region: %s)", cfg.AWSRegion)

	case "console":
		provider = notifxconsole.NewConsoleProvider()
		logx.Warn("  ⚠️  Console email provider, emails are logged and not delivered")

	default:
		logx.Fatalf("Unknown NOTIFX_PROVIDER: %s (use 'console' or 'ses')", cfg.Provider)
	}

	c.Email = notifx.NewClient(provider, cfg.FromAddress, cfg.FromName)
	if cfg.ConfigurationSet != "" {
		c.Email.UseOptions(notifx.WithConfigID(cfg.ConfigurationSet))
	}
	if err := notifx.RegisterRelayTemplates(c.Email); err != nil {
		logx.Fatalf("Failed to register email templates: %v", err)
	}
}

func (c *Container) initJobs() {
	cfg := c.Config.Jobx
	if !cfg.Enabled {
		logx.Info("  ⏭️  Background jobs disabled")
		return
	}

	var queue jobx.Queue
	switch cfg.Backend {
	case "memory":
		queue = jobxmemory.NewQueue()
		logx.Warn("  ⚠️  Using in-memory job queue (jobs are lost on restart)")
	default:
		queue = jobxredis.NewRedisQueue(c.Redis)
		logx.Info("  ✅ Redis job queue configured")
	}

	c.Jobs = jobx.NewClient(queue, jobx.WorkerOptions{
		Queues:            cfg.Queues,
		Concurrency:       cfg.Concurrency,
		PollInterval:      cfg.PollInterval,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		DequeueTimeout:    cfg.DequeueTimeout,
		DefaultRetryDelay: cfg.DefaultRetryDelay,
	})
}

// ---------------------------------------------------------------------------
// Module composition
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	deps := iamcontainer.Deps{
		DB:    c.DB,
		Redis: c.Redis,
		Cfg:   c.Config,
		Email: c.Email,
	}
	if c.Jobs != nil {
		deps.Jobs = c.Jobs
	}
	c.IAM = iamcontainer.New(deps)

	if c.Jobs != nil && c.IAM.WelcomeHandler != nil {
		c.IAM.WelcomeHandler.Register(c.Jobs)
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")

	if c.Jobs != nil {
		go func() {
			if err := c.Jobs.Start(ctx); err != nil {
				logx.WithError(err).Error("job worker stopped")
			}
		}()
	}
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}

func repeatString(s string, count int) string {
	result := ""
	for range count {
		result += s
	}
	return result
}
