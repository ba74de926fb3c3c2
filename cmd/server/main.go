package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/satangel2222/tg-mtproto-uploader/api"
	"github.com/satangel2222/tg-mtproto-uploader/internal/app"
	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
	"github.com/satangel2222/tg-mtproto-uploader/internal/infrastructure"
	"github.com/satangel2222/tg-mtproto-uploader/pkg/logger"
)

var configPath = flag.String("config", "", "path to config file")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(config.Logging.Level, config.Logging.Format, config.Logging.OutputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting uploader server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.Bool("gateway", config.Telegram.Gateway.Enabled))

	if err := createDirectories(config); err != nil {
		log.Fatal("Failed to create directories", zap.Error(err))
	}

	// Initialize relay history repository
	repo, err := infrastructure.NewSQLiteUploadRepository(config.History.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bring up the local Bot API gateway before the client that talks to it
	var gateway *infrastructure.BotAPIGateway
	if config.Telegram.Gateway.Enabled {
		gateway = infrastructure.NewBotAPIGateway(&config.Telegram, log)
		if err := gateway.Start(ctx); err != nil {
			log.Fatal("Failed to start bot api gateway", zap.Error(err))
		}
		config.Telegram.ServerURL = gateway.URL()
	}

	// The messaging client is process-scoped: started once, shared by every
	// request, stopped at shutdown.
	messenger, err := infrastructure.NewTelegramMessenger(&config.Telegram, log)
	if err != nil {
		if gateway != nil {
			gateway.Stop()
		}
		log.Fatal("Failed to start messaging client", zap.Error(err))
	}

	fetcher := infrastructure.NewHTTPFetcher(&config.Download, log)
	relaySvc := app.NewRelayService(fetcher, messenger, repo, log)

	janitor := app.NewJanitor(repo, &config.History, config.Download.TempDir, log)
	if err := janitor.Start(ctx); err != nil {
		log.Fatal("Failed to start janitor", zap.Error(err))
	}

	router := api.SetupRouter(relaySvc, janitor, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := janitor.Stop(); err != nil {
		log.Error("Error stopping janitor", zap.Error(err))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if gateway != nil {
		if err := gateway.Stop(); err != nil {
			log.Error("Error stopping gateway", zap.Error(err))
		}
	}

	log.Info("Server exited")
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.TempDir,
		filepath.Dir(config.History.DatabasePath),
	}
	if config.Telegram.Gateway.Enabled {
		dirs = append(dirs, config.Telegram.Gateway.DataDir)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
