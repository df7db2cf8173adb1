package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/matcher"
	"github.com/raaihank/link-sentinel/internal/source"
)

// AuditReport lists every location of one URL across the registered sources
type AuditReport struct {
	SearchURL  string            `json:"search_url"`
	TotalFound int               `json:"total_found"`
	Locations  []source.Location `json:"locations"`
	// Fingerprint changes whenever the ordered locations change
	Fingerprint string `json:"fingerprint"`
}

// Auditor scans the registered sources for a URL
type Auditor struct {
	sources []source.RecordSource
	logger  *zap.Logger
}

// NewAuditor creates an auditor over sources, scanned in the given order
func NewAuditor(sources []source.RecordSource, logger *zap.Logger) *Auditor {
	return &Auditor{sources: sources, logger: logger}
}

// Audit scans every source for searchURL. It never writes.
func (a *Auditor) Audit(ctx context.Context, searchURL string, opts matcher.Options) (*AuditReport, error) {
	if searchURL == "" {
		return nil, failure.InvalidInput("No URL provided")
	}

	start := time.Now()
	report := &AuditReport{
		SearchURL: searchURL,
		Locations: []source.Location{},
	}

	for _, src := range a.sources {
		locations, err := src.Scan(ctx, searchURL, opts)
		if err != nil {
			a.logger.Error("Source scan failed",
				zap.String("source", string(src.Type())),
				zap.String("search_url", searchURL),
				zap.Error(err))
			return nil, failure.Store("scan "+string(src.Type())+" failed", err)
		}
		for _, loc := range locations {
			report.TotalFound += loc.Count
		}
		report.Locations = append(report.Locations, locations...)
	}

	report.Fingerprint = Fingerprint(report.Locations)

	a.logger.Info("Audit completed",
		zap.String("search_url", searchURL),
		zap.Int("total_found", report.TotalFound),
		zap.Int("locations", len(report.Locations)),
		zap.Duration("duration", time.Since(start)))

	return report, nil
}

// Fingerprint hashes the ordered identity and counts of locations
func Fingerprint(locations []source.Location) string {
	d := xxhash.New()
	for _, loc := range locations {
		_, _ = d.WriteString(string(loc.Type))
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(loc.RecordID)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(loc.MetaKey)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(strconv.Itoa(loc.Count))
		_, _ = d.WriteString("\n")
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
