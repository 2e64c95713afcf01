package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/peerapong/invoice-reader/internal/common"
	"github.com/peerapong/invoice-reader/internal/engine"
	"github.com/peerapong/invoice-reader/internal/export"
	"github.com/peerapong/invoice-reader/internal/extract"
	"github.com/peerapong/invoice-reader/internal/pipeline"
	"github.com/peerapong/invoice-reader/internal/repository"
	"github.com/peerapong/invoice-reader/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	documents := repository.NewDocumentRepository(pool, logger)
	jobs := repository.NewJobRepository(pool, logger)
	items := repository.NewLineItemRepository(pool, logger)

	ocr := extract.NewAzureOCR(cfg.OCR, logger)
	if ocr == nil {
		logger.Warn("azure computer vision not configured, scanned invoices will not be recognized")
	}
	extractor := extract.NewFileExtractor(ocr, logger)

	eng := engine.New(logger, engine.Options{
		FragmentThreshold: cfg.Engine.FragmentThreshold,
		MinAmount:         mustDecimal(cfg.Engine.MinAmount, logger),
	})

	processor := pipeline.NewProcessor(logger, extractor, eng, documents, jobs, items)
	exporter := export.NewService(logger)
	srv := server.New(cfg.Server, logger, processor, documents, items, exporter, pool)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("stopped")
}

// mustDecimal parses a decimal setting, falling back to zero so the engine
// uses its per-platform default.
func mustDecimal(s string, logger *slog.Logger) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		logger.Warn("invalid decimal setting, using default", "value", s)
		return decimal.Decimal{}
	}
	return d
}
