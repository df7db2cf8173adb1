package importer

import (
	"context"

	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/engine"
	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/matcher"
	"github.com/raaihank/link-sentinel/internal/rules"
)

// Batch is the outcome of reconciling parsed rules against the store
type Batch struct {
	TotalImported int          `json:"total_imported"`
	Accepted      []rules.Rule `json:"accepted"`
	FilteredOut   int          `json:"filtered_out"`
}

// Auditor is the audit capability the reconciler needs
type Auditor interface {
	Audit(ctx context.Context, searchURL string, opts matcher.Options) (*engine.AuditReport, error)
}

// Reconciler keeps only rules whose source URL still occurs in the store
type Reconciler struct {
	auditor Auditor
	logger  *zap.Logger
}

func NewReconciler(auditor Auditor, logger *zap.Logger) *Reconciler {
	return &Reconciler{auditor: auditor, logger: logger}
}

// Reconcile audits every parsed rule and accepts those with at least one
// live occurrence. It never writes.
func (r *Reconciler) Reconcile(ctx context.Context, parsed []rules.Rule) (*Batch, error) {
	batch := &Batch{
		TotalImported: len(parsed),
		Accepted:      make([]rules.Rule, 0, len(parsed)),
	}

	for _, rule := range parsed {
		report, err := r.auditor.Audit(ctx, rule.FromURL, matcher.Options{CaseSensitive: rule.CaseSensitive})
		if err != nil {
			return nil, failure.Store("reconcile "+rule.FromURL+" failed", err)
		}
		if report.TotalFound > 0 {
			batch.Accepted = append(batch.Accepted, rule)
			continue
		}
		r.logger.Debug("Rule filtered out", zap.String("from_url", rule.FromURL))
	}

	batch.FilteredOut = batch.TotalImported - len(batch.Accepted)

	r.logger.Info("Import reconciled",
		zap.Int("total_imported", batch.TotalImported),
		zap.Int("accepted", len(batch.Accepted)),
		zap.Int("filtered_out", batch.FilteredOut))

	return batch, nil
}

// Commit appends the accepted rules to set. An empty batch is refused and
// no new set is produced.
func Commit(set *rules.Set, batch *Batch) (*rules.Set, error) {
	if batch == nil || len(batch.Accepted) == 0 {
		return nil, failure.EmptyBatch()
	}
	return set.Append(batch.Accepted...), nil
}
