package matcher

import (
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
)

// ErrEmptyPattern is returned when a matcher is requested for an empty URL
var ErrEmptyPattern = errors.Base("matcher: empty url")

// Options controls how a URL is compared against content
type Options struct {
	CaseSensitive bool `json:"case_sensitive"`
}

// attribute contexts rewritten before the bare-text pass, in order
var attributes = []string{"href=", "src="}

// guards that mark a bare occurrence as sitting inside an attribute value
var attributeGuards = []string{`href="`, `href='`, `src="`, `src='`}

// Matcher finds and rewrites one literal URL. The URL is never interpreted
// as a pattern.
type Matcher struct {
	url   string
	lower string
	opts  Options
}

// New creates a matcher for url
func New(url string, opts Options) (*Matcher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.WithStack(ErrEmptyPattern)
	}
	return &Matcher{
		url:   url,
		lower: asciiLower(url),
		opts:  opts,
	}, nil
}

// URL returns the literal URL this matcher looks for
func (m *Matcher) URL() string {
	return m.url
}

// Count returns the number of non-overlapping occurrences of the URL in body.
// It ignores HTML context entirely.
func (m *Matcher) Count(body string) int {
	if len(body) < len(m.url) {
		return 0
	}
	haystack, needle := m.prepare(body)

	count := 0
	for pos := 0; ; {
		i := strings.Index(haystack[pos:], needle)
		if i < 0 {
			return count
		}
		count++
		pos += i + len(needle)
	}
}

// Replace rewrites every occurrence of the URL in body with to. Attribute
// values of href and src are rewritten first (with to escaped for attribute
// context), then bare text occurrences outside of tags. Each pass sees the
// output of the previous one.
func (m *Matcher) Replace(body, to string) string {
	if !m.contains(body) {
		return body
	}

	escaped := html.EscapeString(to)
	out := body
	for _, attr := range attributes {
		out = m.replaceAttribute(out, attr, escaped)
	}
	return m.replaceText(out, to)
}

// replaceAttribute rewrites attr + quote + url + quote spans. Either quote
// character closes the value, and the result is always double quoted.
func (m *Matcher) replaceAttribute(body, attr, escaped string) string {
	lower := asciiLower(body)
	n := len(m.url)

	var b strings.Builder
	last := 0
	for pos := 0; pos < len(body); {
		k := strings.Index(lower[pos:], attr)
		if k < 0 {
			break
		}
		start := pos + k
		u := start + len(attr) + 1
		end := u + n + 1
		if end > len(body) || !isQuote(body[u-1]) || !isQuote(body[end-1]) || !m.matchAt(body, lower, u) {
			pos = start + 1
			continue
		}

		b.WriteString(body[last:start])
		b.WriteString(attr)
		b.WriteByte('"')
		b.WriteString(escaped)
		b.WriteByte('"')
		last = end
		pos = end
	}

	if last == 0 {
		return body
	}
	b.WriteString(body[last:])
	return b.String()
}

// replaceText rewrites occurrences that are neither directly inside an
// href/src value nor followed by a '>' before the next '<'.
func (m *Matcher) replaceText(body, to string) string {
	haystack, needle := m.prepare(body)
	lower := haystack
	if m.opts.CaseSensitive {
		lower = asciiLower(body)
	}
	n := len(needle)

	var b strings.Builder
	var angles []int
	last := 0
	for pos := 0; pos <= len(body)-n; {
		k := strings.Index(haystack[pos:], needle)
		if k < 0 {
			break
		}
		i := pos + k

		if angles == nil {
			angles = nextAngles(body)
		}
		if guarded(lower, i) || insideTag(body, angles, i+n) {
			pos = i + 1
			continue
		}

		b.WriteString(body[last:i])
		b.WriteString(to)
		last = i + n
		pos = i + n
	}

	if last == 0 {
		return body
	}
	b.WriteString(body[last:])
	return b.String()
}

func (m *Matcher) contains(body string) bool {
	haystack, needle := m.prepare(body)
	return strings.Contains(haystack, needle)
}

// prepare returns the haystack and needle to search with for the configured
// case sensitivity. Folding is ASCII only so byte offsets are preserved.
func (m *Matcher) prepare(body string) (string, string) {
	if m.opts.CaseSensitive {
		return body, m.url
	}
	return asciiLower(body), m.lower
}

func (m *Matcher) matchAt(body, lower string, at int) bool {
	if m.opts.CaseSensitive {
		return body[at:at+len(m.url)] == m.url
	}
	return lower[at:at+len(m.lower)] == m.lower
}

func guarded(lower string, at int) bool {
	for _, g := range attributeGuards {
		if at >= len(g) && lower[at-len(g):at] == g {
			return true
		}
	}
	return false
}

// insideTag reports whether a '>' appears at or after from before any '<'
func insideTag(body string, angles []int, from int) bool {
	if from >= len(body) {
		return false
	}
	next := angles[from]
	return next >= 0 && body[next] == '>'
}

// nextAngles maps every offset to the index of the first '<' or '>' at or
// after it, or -1
func nextAngles(body string) []int {
	angles := make([]int, len(body))
	next := -1
	for i := len(body) - 1; i >= 0; i-- {
		if body[i] == '<' || body[i] == '>' {
			next = i
		}
		angles[i] = next
	}
	return angles
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

// Count is a shorthand for a case-insensitive Matcher.Count
func Count(body, url string) (int, error) {
	m, err := New(url, Options{})
	if err != nil {
		return 0, err
	}
	return m.Count(body), nil
}

// Replace is a shorthand for a case-insensitive Matcher.Replace
func Replace(body, from, to string) (string, error) {
	m, err := New(from, Options{})
	if err != nil {
		return "", err
	}
	return m.Replace(body, to), nil
}
