package rules

import (
	"context"
	"time"
)

// Rule is a pending (from_url → to_url) replacement. Identity is the URL pair.
type Rule struct {
	FromURL       string `json:"from_url" parquet:"from_url" mapstructure:"from_url"`
	ToURL         string `json:"to_url" parquet:"to_url" mapstructure:"to_url"`
	Description   string `json:"description" parquet:"description" mapstructure:"description"`
	CaseSensitive bool   `json:"case_sensitive" parquet:"case_sensitive" mapstructure:"case_sensitive"`
}

// Matches reports whether r has exactly the given URL pair
func (r Rule) Matches(from, to string) bool {
	return r.FromURL == from && r.ToURL == to
}

// Valid reports whether both URLs are present
func (r Rule) Valid() bool {
	return r.FromURL != "" && r.ToURL != ""
}

// Set is an immutable snapshot of the persisted rule list. Every mutation
// returns a new Set with the next version.
type Set struct {
	Version int64  `json:"version"`
	Rules   []Rule `json:"replacements"`
}

// Store persists the rule list
type Store interface {
	Load(ctx context.Context) (*Set, error)
	Save(ctx context.Context, set *Set) error
	Close() error
}

// Config contains rule store configuration
type Config struct {
	Backend      string        `yaml:"backend" mapstructure:"backend"` // redis, file or memory
	RedisURL     string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix    string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	MaxConns     int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	FilePath     string        `yaml:"file_path" mapstructure:"file_path"`
}
