package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/config"
	"github.com/raaihank/link-sentinel/internal/logger"
	"github.com/raaihank/link-sentinel/internal/service"
	"github.com/raaihank/link-sentinel/internal/websocket"
)

const version = "0.1.0"

// Server exposes the link operations over HTTP
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	service *service.Service
	hub     *websocket.Hub
	limiter *clientLimiter
	router  *mux.Router
	server  *http.Server
	started time.Time
}

// New creates the API server. hub may be nil when websocket events are disabled.
func New(cfg *config.Config, svc *service.Service, hub *websocket.Hub, log *logger.Logger) *Server {
	s := &Server{
		config:  cfg,
		logger:  log.WithComponent("api"),
		service: svc,
		hub:     hub,
		router:  mux.NewRouter(),
		started: time.Now(),
	}
	if cfg.RateLimit.Enabled {
		s.limiter = newClientLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware, s.loggingMiddleware, s.recoverMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	if s.hub != nil && s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.hub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimitMiddleware, s.bodyLimitMiddleware)

	api.HandleFunc("/find", s.handleFind).Methods(http.MethodPost)
	api.HandleFunc("/replace", s.handleReplace).Methods(http.MethodPost)
	api.HandleFunc("/import/preview", s.handlePreviewImport).Methods(http.MethodPost)
	api.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/test", s.handleTest).Methods(http.MethodPost)
	api.HandleFunc("/rewrite", s.handleRewrite).Methods(http.MethodPost)

	api.HandleFunc("/rules", s.handleListRules).Methods(http.MethodGet)
	api.HandleFunc("/rules", s.handleAddRule).Methods(http.MethodPost)
	api.HandleFunc("/rules", s.handleDeleteRule).Methods(http.MethodDelete)

	api.HandleFunc("/records/{type}/{id}", s.handleFetchRecord).Methods(http.MethodGet)

	api.HandleFunc("/export/rules", s.handleExportRules).Methods(http.MethodGet)
	api.HandleFunc("/export/report", s.handleExportReport).Methods(http.MethodGet)
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until Stop is called
func (s *Server) Start() error {
	s.logger.Info("Starting link-sentinel API server",
		zap.Int("port", s.config.Server.Port),
		zap.Strings("sources", s.service.Sources()),
		zap.Bool("rate_limit", s.limiter != nil),
		zap.Bool("websocket", s.hub != nil && s.config.WebSocket.Enabled),
	)
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping link-sentinel API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":           "link-sentinel",
		"version":        version,
		"sources":        s.service.Sources(),
		"rate_limit":     s.limiter != nil,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}
	if s.hub != nil {
		info["websocket"] = s.hub.GetStats()
	}
	writeData(w, http.StatusOK, info)
}
