package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/matcher"
)

type metaRow struct {
	MetaID    int64  `db:"meta_id"`
	PostID    int64  `db:"post_id"`
	MetaKey   string `db:"meta_key"`
	MetaValue string `db:"meta_value"`
	Title     string `db:"title"`
	PostType  string `db:"post_type"`
}

// MetadataSource searches custom fields attached to published posts.
// Each matching field is its own location, addressed by the owning post.
type MetadataSource struct {
	db     *sqlx.DB
	links  *Links
	logger *zap.Logger
}

func NewMetadataSource(db *sqlx.DB, links *Links, logger *zap.Logger) *MetadataSource {
	return &MetadataSource{db: db, links: links, logger: logger}
}

func (s *MetadataSource) Type() RecordType {
	return TypeMetadata
}

func (s *MetadataSource) Scan(ctx context.Context, searchURL string, opts matcher.Options) ([]Location, error) {
	m, err := matcher.New(searchURL, opts)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT pm.meta_id, pm.post_id, pm.meta_key, pm.meta_value, p.title, p.post_type
		FROM postmeta pm
		INNER JOIN posts p ON pm.post_id = p.id
		WHERE pm.meta_value %s $1
		AND p.status = 'publish'
		ORDER BY pm.meta_id`, likeOperator(opts))

	var rows []metaRow
	if err := s.db.SelectContext(ctx, &rows, query, containsPattern(searchURL)); err != nil {
		s.logger.Error("Metadata scan failed", zap.Error(err))
		return nil, errors.Errorf("metadata scan failed: %w", err)
	}

	locations := make([]Location, 0, len(rows))
	for _, row := range rows {
		count := m.Count(row.MetaValue)
		if count == 0 {
			continue
		}
		id := strconv.FormatInt(row.PostID, 10)
		locations = append(locations, Location{
			Type:     TypeMetadata,
			RecordID: id,
			Title:    row.Title + " (" + row.MetaKey + ")",
			PostType: row.PostType,
			MetaKey:  row.MetaKey,
			Count:    count,
			ViewURL:  s.links.PostView(id),
			EditURL:  s.links.PostEdit(id),
		})
	}

	return locations, nil
}

// Fetch returns all custom fields of one post
func (s *MetadataSource) Fetch(ctx context.Context, id string) (*Record, error) {
	postID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, failure.InvalidInput("post id must be numeric")
	}

	var title string
	err = s.db.GetContext(ctx, &title, `SELECT title FROM posts WHERE id = $1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, failure.NotFound(fmt.Sprintf("post %d not found", postID))
	}
	if err != nil {
		return nil, errors.Errorf("failed to fetch post: %w", err)
	}

	var rows []metaRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT meta_id, post_id, meta_key, meta_value
		FROM postmeta
		WHERE post_id = $1
		ORDER BY meta_id`, postID)
	if err != nil {
		return nil, errors.Errorf("failed to fetch post metadata: %w", err)
	}

	record := &Record{
		Type:    TypeMetadata,
		ID:      id,
		Title:   title,
		Fields:  make([]Field, 0, len(rows)),
		ViewURL: s.links.PostView(id),
		EditURL: s.links.PostEdit(id),
	}
	for _, row := range rows {
		record.Fields = append(record.Fields, Field{Name: row.MetaKey, Value: row.MetaValue})
	}
	return record, nil
}

// BulkReplace rewrites custom fields of published posts
func (s *MetadataSource) BulkReplace(ctx context.Context, from, to string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE postmeta
		SET meta_value = REPLACE(meta_value, $1, $2)
		WHERE meta_value LIKE $3
		AND post_id IN (SELECT id FROM posts WHERE status = 'publish')`,
		from, to, containsPattern(from))
	if err != nil {
		s.logger.Error("Metadata replace failed", zap.Error(err))
		return 0, errors.Errorf("metadata replace failed: %w", err)
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Errorf("failed to read affected rows: %w", err)
	}
	return updated, nil
}
