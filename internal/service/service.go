package service

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/engine"
	"github.com/raaihank/link-sentinel/internal/importer"
	"github.com/raaihank/link-sentinel/internal/logger"
	"github.com/raaihank/link-sentinel/internal/rules"
	"github.com/raaihank/link-sentinel/internal/source"
	"github.com/raaihank/link-sentinel/internal/websocket"
)

// Broadcaster receives operation events
type Broadcaster interface {
	BroadcastEvent(event websocket.Event)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastEvent(websocket.Event) {}

// Options configures a Service
type Options struct {
	// MetaKeys are glob patterns of custom field keys RewriteContent touches
	MetaKeys    []string
	Broadcaster Broadcaster
}

// Service runs the link operations against one content store and rule store
type Service struct {
	sources    []source.RecordSource
	auditor    *engine.Auditor
	replacer   *engine.Replacer
	reconciler *importer.Reconciler
	store      rules.Store
	metaKeys   []string
	events     Broadcaster
	logger     *logger.Logger
}

// New creates a Service over sources in their registration order
func New(sources []source.RecordSource, store rules.Store, opts Options, log *logger.Logger) *Service {
	events := opts.Broadcaster
	if events == nil {
		events = nopBroadcaster{}
	}

	auditor := engine.NewAuditor(sources, log.WithComponent("audit").Logger)
	return &Service{
		sources:    sources,
		auditor:    auditor,
		replacer:   engine.NewReplacer(sources, log.WithComponent("replace").Logger),
		reconciler: importer.NewReconciler(auditor, log.WithComponent("import").Logger),
		store:      store,
		metaKeys:   opts.MetaKeys,
		events:     events,
		logger:     log.WithComponent("service"),
	}
}

// Sources returns the registered record source types in order
func (s *Service) Sources() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, string(src.Type()))
	}
	return names
}

// rewritesMetaKey reports whether key matches one of the configured globs
func (s *Service) rewritesMetaKey(key string) bool {
	for _, pattern := range s.metaKeys {
		if ok, err := doublestar.Match(pattern, key); err == nil && ok {
			return true
		}
	}
	return false
}

// sanitizeURL trims and normalises a caller-supplied URL, "" when unusable
func sanitizeURL(raw string) string {
	return importer.NormalizeURL(strings.TrimSpace(raw))
}

func (s *Service) broadcast(ctx context.Context, eventType websocket.EventType, data interface{}) {
	s.events.BroadcastEvent(websocket.Event{
		Type:      eventType,
		RequestID: logger.RequestIDFrom(ctx),
		Data:      data,
	})
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return s.logger.FromContext(ctx).Logger
}
