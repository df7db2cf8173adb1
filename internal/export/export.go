package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/segmentio/parquet-go"
	"gitlab.com/tozd/go/errors"

	"github.com/raaihank/link-sentinel/internal/engine"
	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/rules"
	"github.com/raaihank/link-sentinel/internal/source"
)

// Format is an export file format
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// ParseFormat validates an export format name. Empty means json.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatJSON, nil
	case FormatCSV, FormatJSON, FormatParquet:
		return f, nil
	default:
		return "", failure.UnsupportedFormat(name)
	}
}

// ContentType returns the MIME type served for f
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/json"
	}
}

var ruleHeader = []string{"from_url", "to_url", "description", "case_sensitive"}

var locationHeader = []string{"type", "id", "title", "post_type", "meta_key", "count", "url", "edit_url"}

// WriteRules writes the rule list. CSV and JSON output can be imported again.
func WriteRules(w io.Writer, list []rules.Rule, f Format) error {
	switch f {
	case FormatCSV:
		records := make([][]string, 0, len(list))
		for _, r := range list {
			records = append(records, []string{r.FromURL, r.ToURL, r.Description, strconv.FormatBool(r.CaseSensitive)})
		}
		return writeCSV(w, ruleHeader, records)
	case FormatJSON:
		if list == nil {
			list = []rules.Rule{}
		}
		return writeJSON(w, map[string]interface{}{"replacements": list})
	case FormatParquet:
		return writeParquet(w, new(rules.Rule), list)
	default:
		return failure.UnsupportedFormat(string(f))
	}
}

// WriteReport writes the locations of an audit report
func WriteReport(w io.Writer, report *engine.AuditReport, f Format) error {
	switch f {
	case FormatCSV:
		records := make([][]string, 0, len(report.Locations))
		for _, l := range report.Locations {
			records = append(records, []string{
				string(l.Type), l.RecordID, l.Title, l.PostType, l.MetaKey,
				strconv.Itoa(l.Count), l.ViewURL, l.EditURL,
			})
		}
		return writeCSV(w, locationHeader, records)
	case FormatJSON:
		return writeJSON(w, report)
	case FormatParquet:
		return writeParquet(w, new(source.Location), report.Locations)
	default:
		return failure.UnsupportedFormat(string(f))
	}
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return errors.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Errorf("failed to write json: %w", err)
	}
	return nil
}

func writeParquet[T any](w io.Writer, model *T, rows []T) error {
	pw := parquet.NewWriter(w, parquet.SchemaOf(model))
	for i := range rows {
		if err := pw.Write(&rows[i]); err != nil {
			return errors.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return errors.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
