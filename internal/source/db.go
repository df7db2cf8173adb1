package source

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/matcher"
)

// Schema is the content store layout the sources read and rewrite
const Schema = `
CREATE TABLE IF NOT EXISTS posts (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	post_type  TEXT NOT NULL DEFAULT 'post',
	status     TEXT NOT NULL DEFAULT 'draft',
	content    TEXT NOT NULL DEFAULT '',
	excerpt    TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS postmeta (
	meta_id    BIGSERIAL PRIMARY KEY,
	post_id    BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	meta_key   TEXT NOT NULL,
	meta_value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS comments (
	id       BIGSERIAL PRIMARY KEY,
	post_id  BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	content  TEXT NOT NULL DEFAULT '',
	approved BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS options (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_posts_status_type ON posts (status, post_type);
CREATE INDEX IF NOT EXISTS idx_postmeta_post_id ON postmeta (post_id);
`

// Open connects to the content database and configures the pool
func Open(config *Config, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, errors.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Errorf("database ping failed: %w", err)
	}

	logger.Info("Content store connected",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return db, nil
}

// Migrate creates the content tables when they are missing
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return errors.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching any value containing s
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// likeOperator picks the prefilter operator for a scan
func likeOperator(opts matcher.Options) string {
	if opts.CaseSensitive {
		return "LIKE"
	}
	return "ILIKE"
}

// maskDatabaseURL masks the password in a database URL for logging
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 || scheme+3 > at {
		return url
	}
	userinfo := url[scheme+3 : at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return url
	}
	return url[:scheme+3] + userinfo[:colon+1] + "***" + url[at:]
}
