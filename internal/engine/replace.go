package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/rules"
	"github.com/raaihank/link-sentinel/internal/source"
)

// ReplaceResult reports how many records each source rewrote
type ReplaceResult struct {
	FromURL           string           `json:"from_url"`
	ToURL             string           `json:"to_url"`
	ReplacedPosts     int64            `json:"replaced_posts"`
	ReplacedMeta      int64            `json:"replaced_meta"`
	TotalReplacements int64            `json:"total_replacements"`
	BySource          map[string]int64 `json:"by_source"`
	RuleRetired       bool             `json:"rule_retired"`
}

// Replacer rewrites a URL across the registered sources
type Replacer struct {
	sources []source.RecordSource
	logger  *zap.Logger
}

// NewReplacer creates a replacer over sources, rewritten in the given order
func NewReplacer(sources []source.RecordSource, logger *zap.Logger) *Replacer {
	return &Replacer{sources: sources, logger: logger}
}

// Replace rewrites from → to in every source. When anything changed, the
// first rule with exactly this pair is removed from set and the new set is
// returned; otherwise set is returned as is. On a source failure the rule
// set is left untouched, though earlier sources may already be committed.
func (r *Replacer) Replace(ctx context.Context, set *rules.Set, from, to string) (*ReplaceResult, *rules.Set, error) {
	if from == "" || to == "" {
		return nil, set, failure.InvalidInput("Missing URLs")
	}

	start := time.Now()
	result := &ReplaceResult{
		FromURL:  from,
		ToURL:    to,
		BySource: make(map[string]int64, len(r.sources)),
	}

	for _, src := range r.sources {
		n, err := src.BulkReplace(ctx, from, to)
		if err != nil {
			r.logger.Error("Bulk replace failed",
				zap.String("source", string(src.Type())),
				zap.String("from_url", from),
				zap.Error(err))
			return nil, set, failure.Store("replace in "+string(src.Type())+" failed", err)
		}

		result.BySource[string(src.Type())] = n
		result.TotalReplacements += n
		switch src.Type() {
		case source.TypeContent:
			result.ReplacedPosts = n
		case source.TypeMetadata:
			result.ReplacedMeta = n
		}
	}

	next := set
	if result.TotalReplacements > 0 {
		next, result.RuleRetired = set.RemoveFirst(from, to)
	}

	r.logger.Info("Replace completed",
		zap.String("from_url", from),
		zap.String("to_url", to),
		zap.Int64("replaced_posts", result.ReplacedPosts),
		zap.Int64("replaced_meta", result.ReplacedMeta),
		zap.Int64("total_replacements", result.TotalReplacements),
		zap.Bool("rule_retired", result.RuleRetired),
		zap.Duration("duration", time.Since(start)))

	return result, next, nil
}
