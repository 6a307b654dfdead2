package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mihirb23/mercer/internal/assistant"
	"github.com/mihirb23/mercer/internal/config"
	"github.com/mihirb23/mercer/internal/db"
	"github.com/mihirb23/mercer/internal/ingest"
	"github.com/mihirb23/mercer/internal/ocr"
	"github.com/mihirb23/mercer/internal/renderer"
	"github.com/mihirb23/mercer/internal/repository"
	"github.com/mihirb23/mercer/internal/router"
	"github.com/mihirb23/mercer/internal/services"
	"github.com/mihirb23/mercer/internal/storage"
	"github.com/mihirb23/mercer/internal/utils"
)

func main() {
	// Local development reads a .env file; absence is fine in production.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)

	// Everything the pipeline depends on must be usable before we serve:
	// recognizer, renderer, bucket, registry.
	engine, err := ocr.New(cfg.OCRLang, logger)
	if err != nil {
		logger.Fatal("OCR engine unavailable", "error", err)
	}

	pageRenderer, err := renderer.New(logger)
	if err != nil {
		logger.Fatal("Page renderer unavailable", "error", err)
	}

	store, err := storage.NewS3Storage(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", "error", err)
	}

	database, err := db.NewSQLiteDB(cfg.DatabaseFile)
	if err != nil {
		logger.Fatal("Failed to open document registry", "error", err)
	}
	defer database.Close()

	if err := db.RunMigrations(cfg.DatabaseFile); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	docRepo := repository.NewRepository(database)
	ingestor := ingest.New(store, pageRenderer, engine, logger)
	asst := assistant.New(cfg, store, logger)
	if cfg.AssistantURL == "" {
		logger.Warn("ASSISTANT_URL not set, chat will answer in stub mode")
	}

	chatService := services.NewChatService(ingestor, asst, docRepo, logger)
	handler := router.NewRouter(chatService, cfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: cfg.AssistantTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "origins", cfg.FrontendOrigins)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
