package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/roguebt/api/rest"
	"github.com/kasuganosora/roguebt/audit"
	"github.com/kasuganosora/roguebt/cache"
	"github.com/kasuganosora/roguebt/config"
	dbadapter "github.com/kasuganosora/roguebt/db"
	"github.com/kasuganosora/roguebt/game/catalog"
	"github.com/kasuganosora/roguebt/game/sim"
	"github.com/kasuganosora/roguebt/game/world"
	"github.com/kasuganosora/roguebt/journal"
	"github.com/kasuganosora/roguebt/model"
	"github.com/kasuganosora/roguebt/observe"
	"github.com/kasuganosora/roguebt/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Catalog / World ----
	var cat *catalog.Catalog
	if cfg.Sim.CatalogPath != "" {
		cat, err = catalog.Load(cfg.Sim.CatalogPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		logger.Fatal("catalog", zap.Error(err))
	}
	w := world.New(cat, world.Options{
		Width:    cfg.Sim.Width,
		Height:   cfg.Sim.Height,
		SelfHeal: cfg.Sim.SelfHeal,
		Seed:     cfg.Sim.Seed,
	}, logger.Named("world"))
	if err := w.LoadScenario(cfg.Sim.Scenario); err != nil {
		logger.Fatal("scenario", zap.String("scenario", cfg.Sim.Scenario), zap.Error(err))
	}
	logger.Info("world initialized",
		zap.String("scenario", cfg.Sim.Scenario),
		zap.Uint64("seed", w.Seed()),
		zap.Int("entities", w.Len()))

	// ---- Database / Journal / Audit ----
	var (
		db       *gorm.DB
		jrn      *journal.Journal
		auditSvc *audit.Service
	)
	db, err = dbadapter.Open(cfg.Database)
	switch {
	case errors.Is(err, dbadapter.ErrDisabled):
		db = nil
		logger.Info("database disabled; journal and audit are off")
	case err != nil:
		logger.Fatal("db", zap.Error(err))
	default:
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

		auditSvc = audit.New(db, logger)
		if cfg.Sim.Journal {
			jrn, err = journal.Start(context.Background(), db, cfg.Sim.Scenario, w.Seed(), journal.WriterOptions{}, logger)
			if err != nil {
				logger.Fatal("journal", zap.Error(err))
			}
			logger.Info("journal started", zap.String("run_id", jrn.RunID()))
		}
	}

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		logger.Fatal("pubsub", zap.Error(err))
	}
	defer pubsub.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Metrics ----
	var (
		provider *observe.Provider
		metrics  *observe.Metrics
		promH    http.Handler
	)
	if cfg.Metrics.Enabled {
		provider, err = observe.NewProvider("roguebt")
		if err != nil {
			logger.Fatal("metrics provider", zap.Error(err))
		}
		metrics, err = observe.NewMetrics(provider.MeterProvider())
		if err != nil {
			logger.Fatal("metrics", zap.Error(err))
		}
		promH = provider.Handler()
	}

	// ---- Scheduler / Runner ----
	sched := scheduler.New(logger)
	runner := sim.New(w, sim.Options{
		TurnInterval: time.Duration(cfg.Sim.TurnMs) * time.Millisecond,
		MaxTurns:     cfg.Sim.MaxTurns,
		TurnChannel:  cfg.Cache.TurnChannel,
	}, sim.Deps{
		Journal: jrn,
		Cache:   c,
		PubSub:  pubsub,
		Metrics: metrics,
	}, logger.Named("sim"))
	runner.Start(sched)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := rest.NewRouter(rest.Deps{
		Runner:         runner,
		Scheduler:      sched,
		DB:             db,
		Audit:          auditSvc,
		PubSub:         pubsub,
		Metrics:        metrics,
		MetricsHandler: promH,
		Config:         cfg,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Stop turns first so the journal sees no writes after Close.
	sched.Stop()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	runner.Close(ctx)
	if auditSvc != nil {
		auditSvc.Stop(ctx)
	}
	if provider != nil {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("metrics shutdown", zap.Error(err))
		}
	}
	logger.Info("stopped", zap.Uint64("turns", w.Turn()))
}

// loadConfig reads the file named by the first argument. Without one it reads
// config/config.yaml when present and falls back to built-in defaults.
func loadConfig() (*config.Config, error) {
	if len(os.Args) > 1 {
		return config.Load(os.Args[1])
	}
	if _, err := os.Stat(defaultConfigPath); err != nil {
		return config.Default(), nil
	}
	return config.Load(defaultConfigPath)
}
