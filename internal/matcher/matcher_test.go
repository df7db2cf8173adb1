package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestNewRejectsEmptyURL(t *testing.T) {
	for _, url := range []string{"", "   ", "\t\n"} {
		m, err := New(url, Options{})
		assert.Nil(t, m)
		assert.True(t, errors.Is(err, ErrEmptyPattern), "url %q", url)
	}

	_, err := Count("anything", "")
	assert.Error(t, err)
	_, err = Replace("anything", "", "http://b")
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		url           string
		caseSensitive bool
		want          int
	}{
		{name: "none", body: "<p>nothing here</p>", url: "http://a.com", want: 0},
		{name: "attribute_and_text", body: `<a href="http://a.com">http://a.com</a>`, url: "http://a.com", want: 2},
		{name: "non_overlapping", body: "aaaa", url: "aa", want: 2},
		{name: "case_insensitive", body: "HTTP://A.COM and http://a.com", url: "http://a.com", want: 2},
		{name: "case_sensitive", body: "HTTP://A.COM and http://a.com", url: "http://a.com", caseSensitive: true, want: 1},
		{name: "regex_metacharacters_are_literal", body: "http://a.com/?q=(1)+[2] http://aXcom", url: "http://a.com/?q=(1)+[2]", want: 1},
		{name: "shorter_body", body: "http", url: "http://a.com", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.url, Options{CaseSensitive: tt.caseSensitive})
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Count(tt.body))
		})
	}
}

func TestReplace(t *testing.T) {
	tests := []struct {
		name string
		body string
		from string
		to   string
		want string
	}{
		{
			name: "attribute_then_text",
			body: `<a href="X">X</a>`,
			from: "X",
			to:   "Y",
			want: `<a href="Y">Y</a>`,
		},
		{
			name: "single_quoted_href_becomes_double_quoted",
			body: `<a href='http://old.com/page'>link</a>`,
			from: "http://old.com/page",
			to:   "http://new.com/page",
			want: `<a href="http://new.com/page">link</a>`,
		},
		{
			name: "attribute_name_case_insensitive",
			body: `<IMG SRC="http://old.com/a.png">`,
			from: "http://old.com/a.png",
			to:   "http://new.com/a.png",
			want: `<IMG src="http://new.com/a.png">`,
		},
		{
			name: "attribute_value_is_escaped",
			body: `<a href="http://old.com">x</a>`,
			from: "http://old.com",
			to:   `http://new.com/?a=1&b="2"`,
			want: `<a href="http://new.com/?a=1&amp;b=&#34;2&#34;">x</a>`,
		},
		{
			name: "bare_text_is_not_escaped",
			body: `<p>see http://old.com</p>`,
			from: "http://old.com",
			to:   "http://new.com/?a=1&b=2",
			want: `<p>see http://new.com/?a=1&b=2</p>`,
		},
		{
			name: "inside_unclosed_tag_untouched",
			body: `<div data-url="http://old.com" class="x">text</div>`,
			from: "http://old.com",
			to:   "http://new.com",
			want: `<div data-url="http://old.com" class="x">text</div>`,
		},
		{
			name: "partial_attribute_value_untouched",
			body: `<a href="http://old.com/deeper">x</a>`,
			from: "http://old.com",
			to:   "http://new.com",
			want: `<a href="http://old.com/deeper">x</a>`,
		},
		{
			name: "plain_text_without_markup",
			body: "visit http://old.com today, http://old.com tomorrow",
			from: "http://old.com",
			to:   "http://new.com",
			want: "visit http://new.com today, http://new.com tomorrow",
		},
		{
			name: "url_case_insensitive",
			body: `<a href="HTTP://OLD.COM">HTTP://OLD.COM</a>`,
			from: "http://old.com",
			to:   "http://new.com",
			want: `<a href="http://new.com">http://new.com</a>`,
		},
		{
			name: "replacement_containing_source_is_not_reprocessed",
			body: `<a href="http://a.com">go</a>`,
			from: "http://a.com",
			to:   "http://a.com/new",
			want: `<a href="http://a.com/new">go</a>`,
		},
		{
			name: "regex_metacharacters_are_literal",
			body: `<a href="http://a.com/(x)+">http://a.com/(x)+</a> http://a.com/xx`,
			from: "http://a.com/(x)+",
			to:   "http://b.com",
			want: `<a href="http://b.com">http://b.com</a> http://a.com/xx`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Replace(tt.body, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplaceCaseSensitive(t *testing.T) {
	m, err := New("http://old.com", Options{CaseSensitive: true})
	require.NoError(t, err)

	got := m.Replace(`<a HREF="HTTP://OLD.COM">http://old.com</a>`, "http://new.com")
	assert.Equal(t, `<a HREF="HTTP://OLD.COM">http://new.com</a>`, got)
}

func TestReplaceWithoutOccurrencesIsIdentity(t *testing.T) {
	bodies := []string{
		"",
		"<p>nothing</p>",
		`<a href='http://other.com'>HTTP://OTHER.COM</a>`,
	}
	m, err := New("http://old.com", Options{})
	require.NoError(t, err)

	for _, body := range bodies {
		assert.Equal(t, body, m.Replace(body, "http://new.com"))
	}
}

func TestReplaceWithSelfKeepsCount(t *testing.T) {
	bodies := []string{
		`<a href="http://a.com">http://a.com</a>`,
		`<img src='http://a.com'> and http://a.com <b title="http://a.com">`,
		"http://a.com http://a.com http://a.com",
	}
	m, err := New("http://a.com", Options{})
	require.NoError(t, err)

	for _, body := range bodies {
		assert.Equal(t, m.Count(body), m.Count(m.Replace(body, "http://a.com")), body)
	}
}
