package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/matcher"
)

type optionRow struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

// OptionSource searches site options, skipping names matching the exclusion pattern
type OptionSource struct {
	db      *sqlx.DB
	exclude string
	links   *Links
	logger  *zap.Logger
}

func NewOptionSource(db *sqlx.DB, exclude string, links *Links, logger *zap.Logger) *OptionSource {
	return &OptionSource{db: db, exclude: exclude, links: links, logger: logger}
}

func (s *OptionSource) Type() RecordType {
	return TypeOption
}

func (s *OptionSource) Scan(ctx context.Context, searchURL string, opts matcher.Options) ([]Location, error) {
	m, err := matcher.New(searchURL, opts)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT name, value
		FROM options
		WHERE value %s $1
		AND name NOT LIKE $2
		ORDER BY name`, likeOperator(opts))

	var rows []optionRow
	if err := s.db.SelectContext(ctx, &rows, query, containsPattern(searchURL), s.exclude); err != nil {
		s.logger.Error("Option scan failed", zap.Error(err))
		return nil, errors.Errorf("option scan failed: %w", err)
	}

	locations := make([]Location, 0, len(rows))
	for _, row := range rows {
		count := m.Count(row.Value)
		if count == 0 {
			continue
		}
		locations = append(locations, Location{
			Type:     TypeOption,
			RecordID: row.Name,
			Title:    "Site Option: " + row.Name,
			PostType: "option",
			Count:    count,
			ViewURL:  s.links.Options(),
			EditURL:  s.links.Options(),
		})
	}

	return locations, nil
}

func (s *OptionSource) Fetch(ctx context.Context, id string) (*Record, error) {
	var row optionRow
	err := s.db.GetContext(ctx, &row, `SELECT name, value FROM options WHERE name = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, failure.NotFound(fmt.Sprintf("option %q not found", id))
	}
	if err != nil {
		return nil, errors.Errorf("failed to fetch option: %w", err)
	}

	return &Record{
		Type:    TypeOption,
		ID:      row.Name,
		Title:   "Site Option: " + row.Name,
		Fields:  []Field{{Name: "value", Value: row.Value}},
		ViewURL: s.links.Options(),
		EditURL: s.links.Options(),
	}, nil
}

func (s *OptionSource) BulkReplace(ctx context.Context, from, to string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE options
		SET value = REPLACE(value, $1, $2)
		WHERE value LIKE $3
		AND name NOT LIKE $4`,
		from, to, containsPattern(from), s.exclude)
	if err != nil {
		s.logger.Error("Option replace failed", zap.Error(err))
		return 0, errors.Errorf("option replace failed: %w", err)
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Errorf("failed to read affected rows: %w", err)
	}
	return updated, nil
}
