package source

import (
	"context"
	"time"

	"github.com/raaihank/link-sentinel/internal/matcher"
)

// RecordType names a content category of the store
type RecordType string

const (
	TypeContent  RecordType = "content"
	TypeMetadata RecordType = "metadata"
	TypeComment  RecordType = "comment"
	TypeOption   RecordType = "option"
)

// Location is one record containing the searched URL
type Location struct {
	Type     RecordType `json:"type" parquet:"type"`
	RecordID string     `json:"id" parquet:"id"`
	Title    string     `json:"title" parquet:"title"`
	PostType string     `json:"post_type,omitempty" parquet:"post_type"`
	MetaKey  string     `json:"meta_key,omitempty" parquet:"meta_key"`
	Count    int        `json:"count" parquet:"count"`
	ViewURL  string     `json:"url" parquet:"url"`
	EditURL  string     `json:"edit_url,omitempty" parquet:"edit_url"`
}

// Field is one searchable field of a record
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is a fetched unit of content with its searchable fields
type Record struct {
	Type    RecordType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Fields  []Field    `json:"fields"`
	ViewURL string     `json:"url"`
	EditURL string     `json:"edit_url,omitempty"`
}

// RecordSource is one content category the engines can scan and rewrite.
// Scans only see published records.
type RecordSource interface {
	Type() RecordType
	// Scan returns records whose searchable fields contain searchURL, with
	// per-record occurrence counts summed across fields
	Scan(ctx context.Context, searchURL string, opts matcher.Options) ([]Location, error)
	Fetch(ctx context.Context, id string) (*Record, error)
	// BulkReplace rewrites from → to in one set-based statement and returns
	// the number of records changed
	BulkReplace(ctx context.Context, from, to string) (int64, error)
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// AuditConfig selects and tunes the registered sources
type AuditConfig struct {
	Sources         []string `yaml:"sources" mapstructure:"sources"`
	PublicPostTypes []string `yaml:"public_post_types" mapstructure:"public_post_types"`
	// OptionExclude is a LIKE pattern of option names never searched or rewritten
	OptionExclude string `yaml:"option_exclude" mapstructure:"option_exclude"`
}

// SiteConfig holds the link templates used for view and edit URLs.
// Templates may reference {base} and {id}.
type SiteConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	PostViewURL    string `yaml:"post_view_url" mapstructure:"post_view_url"`
	PostEditURL    string `yaml:"post_edit_url" mapstructure:"post_edit_url"`
	CommentEditURL string `yaml:"comment_edit_url" mapstructure:"comment_edit_url"`
	OptionsURL     string `yaml:"options_url" mapstructure:"options_url"`
}
