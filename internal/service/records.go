package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/export"
	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/matcher"
	"github.com/raaihank/link-sentinel/internal/rules"
	"github.com/raaihank/link-sentinel/internal/source"
	"github.com/raaihank/link-sentinel/internal/websocket"
)

// FieldPreview shows one field before and after a replacement
type FieldPreview struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Original string `json:"original"`
	Replaced string `json:"replaced"`
}

// RecordView is a fetched record with optional replacement previews
type RecordView struct {
	*source.Record
	Previews []FieldPreview `json:"previews,omitempty"`
}

// ListRules returns the persisted rule set
func (s *Service) ListRules(ctx context.Context) (*rules.Set, error) {
	return s.loadRules(ctx)
}

// AddRule appends a manually entered rule
func (s *Service) AddRule(ctx context.Context, rule rules.Rule) (*rules.Set, error) {
	rule.FromURL = sanitizeURL(rule.FromURL)
	rule.ToURL = sanitizeURL(rule.ToURL)
	if !rule.Valid() {
		return nil, failure.InvalidInput("Please provide both URLs.")
	}

	set, err := s.loadRules(ctx)
	if err != nil {
		return nil, err
	}
	next := set.Append(rule)
	if err := s.store.Save(ctx, next); err != nil {
		return nil, failure.Store("failed to save rules", err)
	}

	s.log(ctx).Info("Rule added",
		zap.String("from_url", rule.FromURL),
		zap.String("to_url", rule.ToURL),
		zap.Int64("version", next.Version))
	s.broadcast(ctx, websocket.EventTypeRulesChanged, rulesEvent("add", 1, next))
	return next, nil
}

// DeleteRule removes the first rule with exactly this URL pair
func (s *Service) DeleteRule(ctx context.Context, fromURL, toURL string) (*rules.Set, error) {
	from, to := sanitizeURL(fromURL), sanitizeURL(toURL)
	if from == "" || to == "" {
		return nil, failure.InvalidInput("Please provide both URLs.")
	}

	set, err := s.loadRules(ctx)
	if err != nil {
		return nil, err
	}
	next, removed := set.RemoveFirst(from, to)
	if !removed {
		return nil, failure.NotFound("no rule replaces " + from + " with " + to)
	}
	if err := s.store.Save(ctx, next); err != nil {
		return nil, failure.Store("failed to save rules", err)
	}

	s.broadcast(ctx, websocket.EventTypeRulesChanged, rulesEvent("delete", 1, next))
	return next, nil
}

// FetchRecord loads one record. When both URLs are given every field also
// carries a preview of the replacement.
func (s *Service) FetchRecord(ctx context.Context, sourceType, id, fromURL, toURL string) (*RecordView, error) {
	src, ok := source.Lookup(s.sources, source.RecordType(sourceType))
	if !ok {
		return nil, failure.NotFound("unknown record type: " + sourceType)
	}
	if id == "" {
		return nil, failure.InvalidInput("record id is required")
	}

	record, err := src.Fetch(ctx, id)
	if err != nil {
		return nil, failure.Store("fetch "+sourceType+" record failed", err)
	}

	view := &RecordView{Record: record}
	from, to := sanitizeURL(fromURL), sanitizeURL(toURL)
	if from == "" || to == "" {
		return view, nil
	}

	m, err := matcher.New(from, matcher.Options{})
	if err != nil {
		return view, nil
	}
	for _, field := range record.Fields {
		view.Previews = append(view.Previews, FieldPreview{
			Name:     field.Name,
			Count:    m.Count(field.Value),
			Original: field.Value,
			Replaced: m.Replace(field.Value, to),
		})
	}
	return view, nil
}

// ExportRules writes the persisted rule list to w
func (s *Service) ExportRules(ctx context.Context, w io.Writer, format export.Format) error {
	set, err := s.loadRules(ctx)
	if err != nil {
		return err
	}
	if err := export.WriteRules(w, set.Rules, format); err != nil {
		return failure.Store("failed to export rules", err)
	}
	return nil
}

// ExportReport audits searchURL and writes its locations to w
func (s *Service) ExportReport(ctx context.Context, w io.Writer, searchURL string, format export.Format) error {
	report, err := s.FindInstances(ctx, searchURL, false)
	if err != nil {
		return err
	}
	if err := export.WriteReport(w, report, format); err != nil {
		return failure.Store("failed to export report", err)
	}
	return nil
}
