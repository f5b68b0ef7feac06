package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/foodsurvey/internal/catalog"
	"github.com/vbonduro/foodsurvey/internal/config"
	"github.com/vbonduro/foodsurvey/internal/db"
	"github.com/vbonduro/foodsurvey/internal/logging"
	"github.com/vbonduro/foodsurvey/internal/service"
	"github.com/vbonduro/foodsurvey/internal/store"
	"github.com/vbonduro/foodsurvey/internal/web"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load configuration: %v", err)
		return err
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return err
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()
	if version, _, err := db.Version(database); err == nil {
		logger.Info("database ready", "path", cfg.DBPath, "schema_version", version)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.New(database)

	if err := seedCatalog(ctx, cfg.CatalogPath, st, logger); err != nil {
		return err
	}

	survey := service.NewSurveyService(st, st.Respondents, st.Catalog, st.Responses,
		service.Options{StrictFoodIDs: cfg.StrictFoodIDs}, logger)
	reports := service.NewReportService(st.Respondents, st.Responses, logger)
	server := web.NewServer(survey, reports, st, cfg.CORSOrigins, logger)

	if err := server.Run(ctx, cfg.ListenAddr, cfg.ShutdownTimeout); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}

func seedCatalog(ctx context.Context, path string, st *store.Store, logger *slog.Logger) error {
	if path == "" {
		logger.Info("no catalog file configured, skipping seed")
		return nil
	}
	f, err := catalog.Load(path)
	if err != nil {
		logger.Error("failed to load catalog", "path", path, "error", err)
		return err
	}
	if err := catalog.Seed(ctx, st, f); err != nil {
		logger.Error("failed to seed catalog", "path", path, "error", err)
		return err
	}
	logger.Info("catalog seeded", "path", path, "categories", len(f.Categories), "items", f.ItemCount())
	return nil
}
