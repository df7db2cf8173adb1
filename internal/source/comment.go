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

type commentRow struct {
	ID       int64  `db:"id"`
	PostID   int64  `db:"post_id"`
	Content  string `db:"content"`
	Title    string `db:"title"`
	PostType string `db:"post_type"`
}

// CommentSource searches approved comments
type CommentSource struct {
	db     *sqlx.DB
	links  *Links
	logger *zap.Logger
}

func NewCommentSource(db *sqlx.DB, links *Links, logger *zap.Logger) *CommentSource {
	return &CommentSource{db: db, links: links, logger: logger}
}

func (s *CommentSource) Type() RecordType {
	return TypeComment
}

func (s *CommentSource) Scan(ctx context.Context, searchURL string, opts matcher.Options) ([]Location, error) {
	m, err := matcher.New(searchURL, opts)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.post_id, c.content, p.title, p.post_type
		FROM comments c
		INNER JOIN posts p ON c.post_id = p.id
		WHERE c.approved
		AND c.content %s $1
		ORDER BY c.id`, likeOperator(opts))

	var rows []commentRow
	if err := s.db.SelectContext(ctx, &rows, query, containsPattern(searchURL)); err != nil {
		s.logger.Error("Comment scan failed", zap.Error(err))
		return nil, errors.Errorf("comment scan failed: %w", err)
	}

	locations := make([]Location, 0, len(rows))
	for _, row := range rows {
		count := m.Count(row.Content)
		if count == 0 {
			continue
		}
		id := strconv.FormatInt(row.ID, 10)
		locations = append(locations, Location{
			Type:     TypeComment,
			RecordID: id,
			Title:    "Comment on: " + row.Title,
			PostType: row.PostType,
			Count:    count,
			ViewURL:  s.links.CommentView(strconv.FormatInt(row.PostID, 10), id),
			EditURL:  s.links.CommentEdit(id),
		})
	}

	return locations, nil
}

func (s *CommentSource) Fetch(ctx context.Context, id string) (*Record, error) {
	commentID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, failure.InvalidInput("comment id must be numeric")
	}

	var row commentRow
	err = s.db.GetContext(ctx, &row, `
		SELECT c.id, c.post_id, c.content, p.title, p.post_type
		FROM comments c
		INNER JOIN posts p ON c.post_id = p.id
		WHERE c.id = $1`, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, failure.NotFound(fmt.Sprintf("comment %d not found", commentID))
	}
	if err != nil {
		return nil, errors.Errorf("failed to fetch comment: %w", err)
	}

	return &Record{
		Type:    TypeComment,
		ID:      id,
		Title:   "Comment on: " + row.Title,
		Fields:  []Field{{Name: "content", Value: row.Content}},
		ViewURL: s.links.CommentView(strconv.FormatInt(row.PostID, 10), id),
		EditURL: s.links.CommentEdit(id),
	}, nil
}

func (s *CommentSource) BulkReplace(ctx context.Context, from, to string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE comments
		SET content = REPLACE(content, $1, $2)
		WHERE approved
		AND content LIKE $3`,
		from, to, containsPattern(from))
	if err != nil {
		s.logger.Error("Comment replace failed", zap.Error(err))
		return 0, errors.Errorf("comment replace failed: %w", err)
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Errorf("failed to read affected rows: %w", err)
	}
	return updated, nil
}
