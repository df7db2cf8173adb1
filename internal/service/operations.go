package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/engine"
	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/importer"
	"github.com/raaihank/link-sentinel/internal/matcher"
	"github.com/raaihank/link-sentinel/internal/rules"
	"github.com/raaihank/link-sentinel/internal/websocket"
)

// ImportResult reports a committed import
type ImportResult struct {
	CommittedCount int    `json:"imported_count"`
	TotalCount     int    `json:"total_count"`
	TotalImported  int    `json:"total_imported"`
	FilteredOut    int    `json:"filtered_out"`
	Message        string `json:"message"`
}

// TestResult is the outcome of a dry-run replacement on sample content
type TestResult struct {
	Original string `json:"original"`
	Replaced string `json:"replaced"`
	Changed  bool   `json:"changed"`
}

// FindInstances audits the content store for searchURL
func (s *Service) FindInstances(ctx context.Context, searchURL string, caseSensitive bool) (*engine.AuditReport, error) {
	url := sanitizeURL(searchURL)
	if url == "" {
		return nil, failure.InvalidInput("Please provide a URL to search for.")
	}

	report, err := s.auditor.Audit(ctx, url, matcher.Options{CaseSensitive: caseSensitive})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, websocket.EventTypeAuditCompleted, websocket.AuditEvent{
		SearchURL:   report.SearchURL,
		TotalFound:  report.TotalFound,
		Locations:   len(report.Locations),
		Fingerprint: report.Fingerprint,
	})
	return report, nil
}

// ReplaceInstances rewrites fromURL to toURL everywhere and retires the
// matching rule when anything changed
func (s *Service) ReplaceInstances(ctx context.Context, fromURL, toURL string) (*engine.ReplaceResult, error) {
	from, to := sanitizeURL(fromURL), sanitizeURL(toURL)
	if from == "" || to == "" {
		return nil, failure.InvalidInput("Please provide both URLs.")
	}

	set, err := s.loadRules(ctx)
	if err != nil {
		return nil, err
	}

	result, next, err := s.replacer.Replace(ctx, set, from, to)
	if err != nil {
		return nil, err
	}

	if result.RuleRetired {
		if err := s.store.Save(ctx, next); err != nil {
			s.log(ctx).Error("Failed to retire rule after replace",
				zap.String("from_url", from),
				zap.String("to_url", to),
				zap.Error(err))
			return nil, failure.Store("content was replaced but the rule could not be retired", err)
		}
		s.broadcast(ctx, websocket.EventTypeRulesChanged, rulesEvent("retire", 1, next))
	}

	s.broadcast(ctx, websocket.EventTypeReplaceCompleted, websocket.ReplaceEvent{
		FromURL:           result.FromURL,
		ToURL:             result.ToURL,
		TotalReplacements: result.TotalReplacements,
		BySource:          result.BySource,
		RuleRetired:       result.RuleRetired,
	})
	return result, nil
}

// PreviewImport parses and reconciles a rule file without committing it
func (s *Service) PreviewImport(ctx context.Context, content, fileType string) (*importer.Batch, error) {
	parsed, err := parseImport(content, fileType)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Reconcile(ctx, parsed)
}

// ImportURLs parses, reconciles and appends the accepted rules
func (s *Service) ImportURLs(ctx context.Context, content, fileType string) (*ImportResult, error) {
	parsed, err := parseImport(content, fileType)
	if err != nil {
		return nil, err
	}

	batch, err := s.reconciler.Reconcile(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if len(batch.Accepted) == 0 {
		return nil, failure.NoViableRules("No URLs with instances found on this site. None of the URLs in your import file exist on the site.")
	}

	set, err := s.loadRules(ctx)
	if err != nil {
		return nil, err
	}
	next, err := importer.Commit(set, batch)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, next); err != nil {
		return nil, failure.Store("failed to save rules", err)
	}

	result := &ImportResult{
		CommittedCount: len(batch.Accepted),
		TotalCount:     next.Len(),
		TotalImported:  batch.TotalImported,
		FilteredOut:    batch.FilteredOut,
	}
	result.Message = fmt.Sprintf("Successfully imported %d replacements. Total replacements: %d", result.CommittedCount, result.TotalCount)
	if result.FilteredOut > 0 {
		result.Message += fmt.Sprintf(" (%d URLs were filtered out because they have zero instances on this site)", result.FilteredOut)
	}

	s.log(ctx).Info("Rules imported",
		zap.Int("imported_count", result.CommittedCount),
		zap.Int("total_count", result.TotalCount),
		zap.Int("filtered_out", result.FilteredOut))
	s.broadcast(ctx, websocket.EventTypeImportCommitted, rulesEvent("import", result.CommittedCount, next))

	return result, nil
}

func parseImport(content, fileType string) ([]rules.Rule, error) {
	if content == "" {
		return nil, failure.InvalidInput("No file content provided.")
	}
	if fileType == "" {
		fileType = string(importer.FormatCSV)
	}

	format, err := importer.ParseFormat(fileType)
	if err != nil {
		return nil, err
	}
	parsed, err := importer.Parse(content, format)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, failure.NoViableRules("No valid URL replacements found in the file.")
	}
	return parsed, nil
}

// TestReplacement runs the replacement on sample content without touching the store
func (s *Service) TestReplacement(fromURL, toURL, content string) (*TestResult, error) {
	from, to := sanitizeURL(fromURL), sanitizeURL(toURL)
	if from == "" || to == "" || content == "" {
		return nil, failure.InvalidInput("All fields are required for testing.")
	}

	m, err := matcher.New(from, matcher.Options{})
	if err != nil {
		return nil, failure.InvalidInput("All fields are required for testing.")
	}

	replaced := m.Replace(content, to)
	return &TestResult{
		Original: content,
		Replaced: replaced,
		Changed:  replaced != content,
	}, nil
}

// RewriteContent applies every pending rule, in order, to body. A non-empty
// metaKey is only rewritten when it matches a configured meta key pattern.
func (s *Service) RewriteContent(ctx context.Context, body, metaKey string) (string, error) {
	if body == "" {
		return body, nil
	}
	if metaKey != "" && !s.rewritesMetaKey(metaKey) {
		return body, nil
	}

	set, err := s.loadRules(ctx)
	if err != nil {
		return "", err
	}

	out := body
	for _, rule := range set.Rules {
		if !rule.Valid() {
			continue
		}
		m, err := matcher.New(rule.FromURL, matcher.Options{CaseSensitive: rule.CaseSensitive})
		if err != nil {
			continue
		}
		out = m.Replace(out, rule.ToURL)
	}
	return out, nil
}

func (s *Service) loadRules(ctx context.Context) (*rules.Set, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		s.log(ctx).Error("Failed to load rules", zap.Error(err))
		return nil, failure.Store("failed to load rules", err)
	}
	return set, nil
}

func rulesEvent(action string, changed int, set *rules.Set) websocket.RulesEvent {
	return websocket.RulesEvent{
		Action:     action,
		Changed:    changed,
		TotalRules: set.Len(),
		Version:    set.Version,
	}
}
