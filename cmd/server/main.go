package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/craftbits/executive-portal/internal/cache"
	"github.com/craftbits/executive-portal/internal/config"
	"github.com/craftbits/executive-portal/internal/database"
	"github.com/craftbits/executive-portal/internal/dataset"
	"github.com/craftbits/executive-portal/internal/handlers"
	"github.com/craftbits/executive-portal/internal/logger"
	"github.com/craftbits/executive-portal/internal/middleware"
	"github.com/craftbits/executive-portal/internal/repository"
	"github.com/craftbits/executive-portal/internal/services"
	"github.com/craftbits/executive-portal/internal/statements"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Env)
	log.Info("Starting executive portal API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"data_dir":    cfg.Data.Dir,
		"cache_ttl":   cfg.Cache.TTL.String(),
	})

	ctx := context.Background()

	// Sources are tried in order: Google Sheets, Postgres, local files.
	var sources []dataset.Source
	if cfg.Sheets.HasCredentials() {
		sources = append(sources, dataset.NewSheetsSource(cfg.Sheets.Datasets, dataset.SheetsClientOptions(cfg.Sheets)...))
		log.Info("Google Sheets source enabled", map[string]interface{}{
			"datasets": len(cfg.Sheets.Datasets),
		})
	}

	var db *database.Database
	if cfg.Database.Enabled {
		db, err = database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			// Reports fall back to files and synthetic data without the database
			log.Error("Failed to connect to database, SQL source disabled", err, map[string]interface{}{
				"host": cfg.Database.Host,
				"port": cfg.Database.Port,
				"name": cfg.Database.Name,
			})
		} else {
			defer db.Close()
			sources = append(sources, dataset.NewSQLSource(repository.NewDatasetRepository(db), cfg.Database.Tables))
			log.Info("Database connection established", map[string]interface{}{
				"host":     cfg.Database.Host,
				"port":     cfg.Database.Port,
				"database": cfg.Database.Name,
				"pool_min": cfg.Database.PoolMin,
				"pool_max": cfg.Database.PoolMax,
				"tables":   len(cfg.Database.Tables),
			})
		}
	}

	sources = append(sources, dataset.NewFileSource(cfg.Data.Dir, cfg.Data.Files))

	loader := dataset.NewLoader(dataset.DefaultRegistry(), log, sources)
	store := cache.New[*dataset.Result](loader.Load,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithFreshness(loader.Freshness),
		cache.WithLogger(log),
	)
	reportService := services.NewReportService(store, loader, services.Options{
		Currency: cfg.Reporting.Currency,
		Sign:     statements.SignConvention(cfg.Reporting.SignConvention),
	}, log)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// A nil *Database must not become a non-nil Pinger
	var pinger handlers.Pinger
	if db != nil {
		pinger = db
	}

	handlers.RegisterRoutes(router, handlers.Handlers{
		Health:     handlers.NewHealthHandler(pinger, reportService, cfg.Server.Env),
		Datasets:   handlers.NewDatasetHandler(reportService),
		Statements: handlers.NewStatementHandler(reportService),
		Portfolio:  handlers.NewPortfolioHandler(reportService),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
