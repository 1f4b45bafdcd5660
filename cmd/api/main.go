// Command api serves the federation engine over HTTP.
//
// It wires Postgres persistence, the optional Redis results cache and the
// in-process event bus behind the REST API, then runs until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/powerlifting-fed/federation-hub/config"
	"github.com/powerlifting-fed/federation-hub/internal/application/command"
	"github.com/powerlifting-fed/federation-hub/internal/application/query"
	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/internal/infrastructure/messaging"
	"github.com/powerlifting-fed/federation-hub/internal/infrastructure/persistence/postgres"
	"github.com/powerlifting-fed/federation-hub/internal/infrastructure/persistence/redis"
	httpapi "github.com/powerlifting-fed/federation-hub/internal/interface/http"
	"github.com/powerlifting-fed/federation-hub/internal/interface/http/handlers"
	"github.com/powerlifting-fed/federation-hub/pkg/circuitbreaker"
	"github.com/powerlifting-fed/federation-hub/pkg/logger"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

func main() {
	config.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration & logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL (or DB_HOST/DB_USER) is required")
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
		Console:   cfg.Observability.LogFormat == "console",
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
	timeutil.SetLocation(cfg.App.Location)

	log.Info("starting federation API",
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
		logger.String("dataset", cfg.Federation.Dataset),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Database
	// ─────────────────────────────────────────────────────────────────────────
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(db, log).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Results cache (optional)
	// ─────────────────────────────────────────────────────────────────────────
	checker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	checker.AddCheck("database", handlers.NewDatabaseCheck(db))

	var resultsCache results.Cache
	if !cfg.Redis.Disabled {
		cache, err := redis.NewCache(ctx, redisConfig(cfg.Redis))
		if err != nil {
			log.Warn("redis unavailable, results will not be cached", logger.Err(err))
		} else {
			defer cache.Close()
			breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			})
			resultsCache = redis.NewResultsCache(cache, redis.WithBreaker(breaker))
			checker.AddOptionalCheck("cache", handlers.NewCacheCheck(cache))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Event bus
	// ─────────────────────────────────────────────────────────────────────────
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: cfg.Events.Workers,
		Logger:         log,
		EnableMetrics:  true,
	})
	defer func() {
		snap := bus.Metrics().Snapshot()
		if err := bus.Close(); err != nil {
			log.Warn("event bus close failed", logger.Err(err))
		}
		log.Info("event bus stopped",
			logger.Int64("handler_executions", snap.HandlerExecutions),
			logger.Int64("handler_failures", snap.HandlerFailures),
		)
	}()

	if resultsCache != nil {
		if err := messaging.RegisterResultsInvalidation(bus, resultsCache, log); err != nil {
			return fmt.Errorf("failed to subscribe cache invalidation: %w", err)
		}
	}
	if err := messaging.RegisterRecordAnnouncer(bus, log); err != nil {
		return fmt.Errorf("failed to subscribe record announcer: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	rules := eligibility.DefaultRules()
	assigner := registration.NewAssigner(rules)

	athletes := postgres.NewAthleteRepository(db)
	competitions := postgres.NewCompetitionRepository(db)
	entries := postgres.NewEntryRepository(db, rules)
	recordRepo := postgres.NewRecordRepository(db)

	getResults := query.NewGetResultsHandler(competitions, entries, resultsCache, query.ResultsConfig{
		CacheTTL: cfg.Federation.ResultsCacheTTL,
		Rules:    rules,
	}, log)

	server := httpapi.NewServer(httpapi.ConfigFrom(cfg.HTTP), httpapi.Dependencies{
		RegisterEntry:    command.NewRegisterEntryHandler(athletes, competitions, entries, assigner, bus, log),
		EditEntry:        command.NewEditEntryHandler(competitions, entries, assigner, bus, log),
		RecordAttempts:   command.NewRecordAttemptsHandler(competitions, entries, bus, log),
		ImportRecords:    command.NewImportRecordsHandler(recordRepo, records.NewImporter(rules), bus, log),
		GetResults:       getResults,
		GetBestLifters:   query.NewGetBestLiftersHandler(getResults),
		GetTeamStandings: query.NewGetTeamStandingsHandler(getResults, cfg.Federation.TeamPoints),
		ListRecords:      query.NewListRecordsHandler(recordRepo, rules, cfg.Federation.Dataset),
		CalculatePoints:  query.NewCalculatePointsHandler(nil),
		CheckEligibility: query.NewCheckEligibilityHandler(rules),
		Dataset:          cfg.Federation.Dataset,
		Version:          cfg.App.Version,
		Logger:           log,
		HealthChecker:    checker,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Serve until signalled
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("federation API stopped")
	return nil
}

func redisConfig(c config.RedisConfig) redis.Config {
	return redis.Config{
		URL:          c.URL,
		Host:         c.Host,
		Port:         c.Port,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   3,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
