package export

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/link-sentinel/internal/engine"
	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/importer"
	"github.com/raaihank/link-sentinel/internal/rules"
	"github.com/raaihank/link-sentinel/internal/source"
)

var testRules = []rules.Rule{
	{FromURL: "http://a.com/x", ToURL: "https://b.com/x", Description: "moved"},
	{FromURL: "http://c.com", ToURL: "https://d.com", CaseSensitive: true},
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("Parquet")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, f)
	assert.Equal(t, "application/vnd.apache.parquet", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Equal(t, failure.KindUnsupportedFormat, failure.KindOf(err))
}

func TestWriteRulesCanBeImported(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatJSON} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteRules(&buf, testRules, f))

			parsed, err := importer.Parse(buf.String(), importer.Format(f))
			require.NoError(t, err)
			require.Len(t, parsed, 2)
			for i, r := range parsed {
				assert.Equal(t, testRules[i].FromURL, r.FromURL)
				assert.Equal(t, testRules[i].ToURL, r.ToURL)
			}
		})
	}
}

func TestWriteRulesJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, nil, FormatJSON))

	var out map[string][]rules.Rule
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.NotNil(t, out["replacements"])
	assert.Empty(t, out["replacements"])
}

func TestWriteRulesParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, testRules, FormatParquet))

	reader := parquet.NewReader(bytes.NewReader(buf.Bytes()))
	defer reader.Close()

	var got []rules.Rule
	for {
		var r rules.Rule
		err := reader.Read(&r)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, r)
	}
	assert.Equal(t, testRules, got)
}

func TestWriteReport(t *testing.T) {
	report := &engine.AuditReport{
		SearchURL:  "http://a.com",
		TotalFound: 3,
		Locations: []source.Location{
			{Type: source.TypeContent, RecordID: "1", Title: "Hello, world", Count: 2, ViewURL: "https://site/?p=1"},
			{Type: source.TypeMetadata, RecordID: "1", Title: "Hello (download)", MetaKey: "download", Count: 1},
		},
	}

	t.Run("CSV", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, report, FormatCSV))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "type,id,title,post_type,meta_key,count,url,edit_url", lines[0])
		assert.Equal(t, `content,1,"Hello, world",,,2,https://site/?p=1,`, lines[1])
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, report, FormatJSON))

		var out engine.AuditReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.Equal(t, *report, out)
	})

	t.Run("Parquet", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, report, FormatParquet))

		reader := parquet.NewReader(bytes.NewReader(buf.Bytes()))
		defer reader.Close()
		assert.Equal(t, int64(2), reader.NumRows())
	})
}
