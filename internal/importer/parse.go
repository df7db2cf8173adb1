package importer

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/rules"
)

// Format is a supported rule list file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a caller-supplied format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", failure.UnsupportedFormat(name)
	}
}

// DetectFormat picks the format from a file extension
func DetectFormat(filename string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return "", failure.UnsupportedFormat(filename)
	}
	return ParseFormat(ext)
}

// Parse reads rules from content. Entries with a missing or invalid URL are
// dropped silently.
func Parse(content string, format Format) ([]rules.Rule, error) {
	switch format {
	case FormatCSV:
		return parseCSV(content), nil
	case FormatJSON:
		return parseJSON(content)
	default:
		return nil, failure.UnsupportedFormat(string(format))
	}
}

func parseCSV(content string) []rules.Rule {
	lines := strings.Split(content, "\n")
	parsed := make([]rules.Rule, 0, len(lines))

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i == 0 && isHeader(line) {
			continue
		}

		columns, err := splitCSVLine(line)
		if err != nil || len(columns) < 2 {
			continue
		}

		from := NormalizeURL(columns[0])
		to := NormalizeURL(columns[1])
		if from == "" || to == "" {
			continue
		}
		parsed = append(parsed, rules.Rule{FromURL: from, ToURL: to})
	}

	return parsed
}

func isHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "old_url") || strings.Contains(lower, "from_url")
}

func splitCSVLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.Read()
}

type envelope struct {
	Replacements json.RawMessage `json:"replacements"`
}

func parseJSON(content string) ([]rules.Rule, error) {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, failure.MalformedSource("Invalid JSON format", err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, failure.MalformedSource("Invalid JSON format", err)
		}
		if env.Replacements == nil {
			return nil, failure.MalformedSource("JSON must contain an array of replacements", nil)
		}
		raw = env.Replacements
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, failure.MalformedSource("JSON must contain an array of replacements", nil)
	}

	parsed := make([]rules.Rule, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}

		from, ok := pick(fields, "old_url", "from_url")
		if !ok {
			continue
		}
		to, ok := pick(fields, "new_url", "to_url")
		if !ok {
			continue
		}

		from, to = NormalizeURL(from), NormalizeURL(to)
		if from == "" || to == "" {
			continue
		}

		rule := rules.Rule{FromURL: from, ToURL: to}
		if desc, ok := stringField(fields, "description"); ok {
			rule.Description = desc
		}
		if cs, ok := fields["case_sensitive"]; ok {
			_ = json.Unmarshal(cs, &rule.CaseSensitive)
		}
		parsed = append(parsed, rule)
	}

	return parsed, nil
}

// pick resolves the first key present, so a preferred key wins even when its
// value turns out to be unusable
func pick(fields map[string]json.RawMessage, keys ...string) (string, bool) {
	for _, key := range keys {
		if _, present := fields[key]; present {
			return stringField(fields, key)
		}
	}
	return "", false
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
