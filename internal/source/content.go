package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/matcher"
)

type postRow struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	PostType string `db:"post_type"`
	Content  string `db:"content"`
	Excerpt  string `db:"excerpt"`
}

// ContentSource searches the body and excerpt of published posts of public types
type ContentSource struct {
	db        *sqlx.DB
	postTypes []string
	links     *Links
	logger    *zap.Logger
}

func NewContentSource(db *sqlx.DB, postTypes []string, links *Links, logger *zap.Logger) *ContentSource {
	return &ContentSource{
		db:        db,
		postTypes: postTypes,
		links:     links,
		logger:    logger,
	}
}

func (s *ContentSource) Type() RecordType {
	return TypeContent
}

// Scan finds published posts whose content or excerpt contains searchURL
func (s *ContentSource) Scan(ctx context.Context, searchURL string, opts matcher.Options) ([]Location, error) {
	m, err := matcher.New(searchURL, opts)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, title, post_type, content, excerpt
		FROM posts
		WHERE status = 'publish'
		AND post_type = ANY($1)
		AND post_type <> 'revision'
		AND (content %[1]s $2 OR excerpt %[1]s $2)
		ORDER BY id`, likeOperator(opts))

	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(s.postTypes), containsPattern(searchURL)); err != nil {
		s.logger.Error("Content scan failed", zap.Error(err))
		return nil, errors.Errorf("content scan failed: %w", err)
	}

	locations := make([]Location, 0, len(rows))
	for _, row := range rows {
		count := m.Count(row.Content) + m.Count(row.Excerpt)
		if count == 0 {
			continue
		}
		id := strconv.FormatInt(row.ID, 10)
		locations = append(locations, Location{
			Type:     TypeContent,
			RecordID: id,
			Title:    row.Title,
			PostType: row.PostType,
			Count:    count,
			ViewURL:  s.links.PostView(id),
			EditURL:  s.links.PostEdit(id),
		})
	}

	s.logger.Debug("Content scan completed",
		zap.Int("candidates", len(rows)),
		zap.Int("locations", len(locations)))

	return locations, nil
}

// Fetch returns one post with its searchable fields
func (s *ContentSource) Fetch(ctx context.Context, id string) (*Record, error) {
	postID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, failure.InvalidInput("post id must be numeric")
	}

	var row postRow
	err = s.db.GetContext(ctx, &row, `
		SELECT id, title, post_type, content, excerpt
		FROM posts
		WHERE id = $1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, failure.NotFound(fmt.Sprintf("post %d not found", postID))
	}
	if err != nil {
		return nil, errors.Errorf("failed to fetch post: %w", err)
	}

	return &Record{
		Type:  TypeContent,
		ID:    id,
		Title: row.Title,
		Fields: []Field{
			{Name: "content", Value: row.Content},
			{Name: "excerpt", Value: row.Excerpt},
		},
		ViewURL: s.links.PostView(id),
		EditURL: s.links.PostEdit(id),
	}, nil
}

// BulkReplace rewrites content and excerpt of every matching published post
func (s *ContentSource) BulkReplace(ctx context.Context, from, to string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET content = REPLACE(content, $1, $2),
		    excerpt = REPLACE(excerpt, $1, $2),
		    updated_at = now()
		WHERE (content LIKE $3 OR excerpt LIKE $3)
		AND status = 'publish'
		AND post_type = ANY($4)
		AND post_type <> 'revision'`,
		from, to, containsPattern(from), pq.Array(s.postTypes))
	if err != nil {
		s.logger.Error("Content replace failed", zap.Error(err))
		return 0, errors.Errorf("content replace failed: %w", err)
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Errorf("failed to read affected rows: %w", err)
	}
	return updated, nil
}
