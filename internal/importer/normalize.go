package importer

import (
	"net/url"
	"strings"
)

var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"ftp":    true,
	"ftps":   true,
	"mailto": true,
	"tel":    true,
}

// NormalizeURL cleans a URL for storage. It returns "" when raw is empty or
// uses a scheme other than http, https, ftp, ftps, mailto or tel. Host-like
// values without a scheme get http://.
func NormalizeURL(raw string) string {
	s := strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		switch r {
		case '"', '<', '>', '{', '}', '^', '`':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	if !strings.Contains(s, ":") {
		switch s[0] {
		case '/', '#', '?':
		default:
			s = "http://" + s
		}
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if u.Scheme != "" && !allowedSchemes[strings.ToLower(u.Scheme)] {
		return ""
	}
	if u.Scheme == "" && !strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "#") && !strings.HasPrefix(s, "?") {
		return ""
	}

	return s
}
