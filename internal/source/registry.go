package source

import (
	"github.com/jmoiron/sqlx"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"
)

// Build creates the sources named in cfg.Sources, in that order
func Build(db *sqlx.DB, cfg AuditConfig, links *Links, logger *zap.Logger) ([]RecordSource, error) {
	sources := make([]RecordSource, 0, len(cfg.Sources))
	seen := make(map[RecordType]bool, len(cfg.Sources))

	for _, name := range cfg.Sources {
		typ := RecordType(name)
		if seen[typ] {
			return nil, errors.Errorf("source %q registered twice", name)
		}
		seen[typ] = true

		log := logger.With(zap.String("source", name))
		switch typ {
		case TypeContent:
			sources = append(sources, NewContentSource(db, cfg.PublicPostTypes, links, log))
		case TypeMetadata:
			sources = append(sources, NewMetadataSource(db, links, log))
		case TypeComment:
			sources = append(sources, NewCommentSource(db, links, log))
		case TypeOption:
			sources = append(sources, NewOptionSource(db, cfg.OptionExclude, links, log))
		default:
			return nil, errors.Errorf("unknown source: %s", name)
		}
	}

	return sources, nil
}

// Lookup returns the source of the given type
func Lookup(sources []RecordSource, typ RecordType) (RecordSource, bool) {
	for _, s := range sources {
		if s.Type() == typ {
			return s, true
		}
	}
	return nil, false
}
