package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/report"
	"github.com/raaihank/link-sentinel/internal/rules"
	"github.com/raaihank/link-sentinel/internal/source"
)

func TestFormatWindow(t *testing.T) {
	assert.Equal(t, "« 1 … 3 4 [5] 6 7 … 10 »", formatWindow(report.Window(5, 10), 5))
	assert.Equal(t, "[1] 2 »", formatWindow(report.Window(1, 2), 1))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "no_viable_rules: No valid URL replacements found in the file.",
		describe(failure.NoViableRules("No valid URL replacements found in the file.")))
	assert.Equal(t, "loading config: boom", describe(errors.New("loading config: boom")))
}

func TestTables(t *testing.T) {
	data := ruleTable([]rules.Rule{{FromURL: "http://a.com", ToURL: "http://b.com", CaseSensitive: true}})
	require.Len(t, data, 2)
	assert.Equal(t, []string{"http://a.com", "http://b.com", "", "true"}, data[1])

	data = locationTable([]source.Location{{Type: source.TypeMetadata, RecordID: "7", Title: "Post (hero)", MetaKey: "hero", Count: 2, ViewURL: "http://site/?p=7"}})
	assert.Equal(t, []string{"metadata", "7", "Post (hero)", "hero", "2", "http://site/?p=7"}, data[1])
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"audit"}, {"replace"}, {"import"}, {"migrate"},
		{"rules", "list"}, {"rules", "add"}, {"rules", "delete"},
		{"export", "rules"}, {"export", "report"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	root.SetArgs([]string{"replace", "http://only-one.com"})
	assert.Error(t, root.Execute())
}
