package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/api"
	"github.com/raaihank/link-sentinel/internal/app"
	"github.com/raaihank/link-sentinel/internal/config"
	"github.com/raaihank/link-sentinel/internal/logger"
	"github.com/raaihank/link-sentinel/internal/service"
	"github.com/raaihank/link-sentinel/internal/source"
	"github.com/raaihank/link-sentinel/internal/websocket"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
		migrate     = flag.Bool("migrate", false, "Create the content store schema before serving")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("link-sentinel %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *healthCheck {
		performHealthCheck(cfg.Server.Port)
		return
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting link-sentinel",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hub *websocket.Hub
	var events service.Broadcaster
	if cfg.WebSocket.Enabled {
		hub = websocket.NewHub(&cfg.WebSocket.Events, log.WithComponent("websocket").Logger)
		events = hub
		go hub.Run(ctx)
	}

	a, err := app.Open(cfg, log, events)
	if err != nil {
		log.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer a.Close()

	if *migrate {
		if err := source.Migrate(ctx, a.DB); err != nil {
			log.Fatal("Failed to migrate content store", zap.Error(err))
		}
	}

	if err := config.Watch(func(next *config.Config) {
		if err := log.SetLevel(next.Logging.Level); err != nil {
			log.Warn("Ignoring log level change", zap.Error(err))
		}
	}, func(err error) {
		log.Warn("Ignoring configuration change", zap.Error(err))
	}); err != nil {
		log.Debug("Configuration hot reload disabled", zap.Error(err))
	}

	server := api.New(cfg, a.Service, hub, log)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", zap.Error(err))
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		defer stop()

		if err := server.Stop(shutdownCtx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
		}
		cancel()

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(port int) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
