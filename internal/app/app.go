package app

import (
	"github.com/jmoiron/sqlx"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/config"
	"github.com/raaihank/link-sentinel/internal/logger"
	"github.com/raaihank/link-sentinel/internal/rules"
	"github.com/raaihank/link-sentinel/internal/service"
	"github.com/raaihank/link-sentinel/internal/source"
)

// App holds the opened stores and the service built over them
type App struct {
	DB      *sqlx.DB
	Rules   rules.Store
	Service *service.Service
	logger  *logger.Logger
}

// Open connects the content store and the rule store and builds the service.
// events may be nil.
func Open(cfg *config.Config, log *logger.Logger, events service.Broadcaster) (*App, error) {
	db, err := source.Open(&cfg.Database, log.WithComponent("source").Logger)
	if err != nil {
		return nil, errors.Errorf("failed to open content store: %w", err)
	}

	sources, err := source.Build(db, cfg.Audit, source.NewLinks(cfg.Site), log.WithComponent("source").Logger)
	if err != nil {
		db.Close()
		return nil, errors.Errorf("failed to register sources: %w", err)
	}

	store, err := rules.Open(&cfg.Rules, log.WithComponent("rules").Logger)
	if err != nil {
		db.Close()
		return nil, errors.Errorf("failed to open rule store: %w", err)
	}

	svc := service.New(sources, store, service.Options{
		MetaKeys:    cfg.Rewrite.MetaKeys,
		Broadcaster: events,
	}, log)

	return &App{DB: db, Rules: store, Service: svc, logger: log}, nil
}

// Close releases both stores
func (a *App) Close() {
	if err := a.Rules.Close(); err != nil {
		a.logger.Warn("Failed to close rule store", zap.Error(err))
	}
	if err := a.DB.Close(); err != nil {
		a.logger.Warn("Failed to close content store", zap.Error(err))
	}
}
