package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/link-sentinel/internal/config"
	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/logger"
	"github.com/raaihank/link-sentinel/internal/matcher"
	"github.com/raaihank/link-sentinel/internal/rules"
	"github.com/raaihank/link-sentinel/internal/service"
	"github.com/raaihank/link-sentinel/internal/source"
)

type pageSource struct {
	bodies []string
}

func (p *pageSource) Type() source.RecordType { return source.TypeContent }

func (p *pageSource) Scan(_ context.Context, url string, opts matcher.Options) ([]source.Location, error) {
	m, err := matcher.New(url, opts)
	if err != nil {
		return nil, err
	}
	var out []source.Location
	for i, body := range p.bodies {
		if n := m.Count(body); n > 0 {
			out = append(out, source.Location{Type: source.TypeContent, RecordID: string(rune('a' + i)), Count: n})
		}
	}
	return out, nil
}

func (p *pageSource) Fetch(_ context.Context, id string) (*source.Record, error) {
	return nil, failure.NotFound("content record not found")
}

func (p *pageSource) BulkReplace(_ context.Context, from, to string) (int64, error) {
	var n int64
	for i, body := range p.bodies {
		if next := strings.ReplaceAll(body, from, to); next != body {
			p.bodies[i] = next
			n++
		}
	}
	return n, nil
}

type failingStore struct{ rules.Store }

func (failingStore) Load(context.Context) (*rules.Set, error) {
	return nil, errors.New("redis: connection refused")
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

func newTestServer(t *testing.T, store rules.Store, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.GetDefaults()
	cfg.RateLimit.Enabled = false
	cfg.Server.MaxBodyBytes = 1 << 10
	if mutate != nil {
		mutate(cfg)
	}

	bodies := make([]string, 30)
	for i := range bodies {
		bodies[i] = `<a href="http://old.com">link</a>`
	}
	svc := service.New([]source.RecordSource{&pageSource{bodies: bodies}}, store, service.Options{}, logger.NewNop())
	return New(cfg, svc, nil, logger.NewNop())
}

func do(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealthAndInfo(t *testing.T) {
	s := newTestServer(t, rules.NewMemoryStore(), nil)

	rec, resp := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec, resp = do(t, s, http.MethodGet, "/info", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &info))
	assert.Equal(t, "link-sentinel", info["name"])
	assert.Equal(t, []interface{}{"content"}, info["sources"])
}

func TestFind(t *testing.T) {
	s := newTestServer(t, rules.NewMemoryStore(), nil)

	rec, resp := do(t, s, http.MethodPost, "/api/find", `{"search_url":"http://old.com","page":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		TotalFound  int    `json:"total_found"`
		Fingerprint string `json:"fingerprint"`
		Page        struct {
			Items       []source.Location `json:"items"`
			StartIndex  int               `json:"start_index"`
			EndIndex    int               `json:"end_index"`
			TotalPages  int               `json:"total_pages"`
			CurrentPage int               `json:"current_page"`
		} `json:"page"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 30, data.TotalFound)
	assert.Equal(t, 2, data.Page.TotalPages)
	assert.Equal(t, 2, data.Page.CurrentPage)
	assert.Len(t, data.Page.Items, 5)
	assert.Equal(t, 25, data.Page.StartIndex)
	assert.Equal(t, 30, data.Page.EndIndex)
	assert.Equal(t, `"`+data.Fingerprint+`"`, rec.Header().Get("ETag"))

	rec, _ = do(t, s, http.MethodPost, "/api/find", `{"search_url":"http://old.com","page":2}`)
	assert.Equal(t, `"`+data.Fingerprint+`"`, rec.Header().Get("ETag"))
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, rules.NewMemoryStore(), nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		kind   failure.Kind
	}{
		{"EmptySearch", http.MethodPost, "/api/find", `{}`, http.StatusBadRequest, failure.KindInvalidInput},
		{"EmptyBody", http.MethodPost, "/api/replace", ``, http.StatusBadRequest, failure.KindInvalidInput},
		{"BadJSON", http.MethodPost, "/api/test", `{`, http.StatusBadRequest, failure.KindInvalidInput},
		{"UnsupportedFormat", http.MethodPost, "/api/import/preview", `{"file_content":"x","file_type":"xml"}`, http.StatusUnsupportedMediaType, failure.KindUnsupportedFormat},
		{"MalformedJSON", http.MethodPost, "/api/import", `{"file_content":"{oops","file_type":"json"}`, http.StatusUnprocessableEntity, failure.KindMalformedSource},
		{"NoViableRules", http.MethodPost, "/api/import", `{"file_content":"http://gone.com,http://new.com"}`, http.StatusConflict, failure.KindNoViableRules},
		{"UnknownRecordType", http.MethodGet, "/api/records/widget/1", ``, http.StatusNotFound, failure.KindNotFound},
		{"MissingRecord", http.MethodGet, "/api/records/content/a", ``, http.StatusNotFound, failure.KindNotFound},
		{"MissingRule", http.MethodDelete, "/api/rules?from_url=http://a.com&to_url=http://b.com", ``, http.StatusNotFound, failure.KindNotFound},
		{"ExportFormat", http.MethodGet, "/api/export/rules?format=xlsx", ``, http.StatusUnsupportedMediaType, failure.KindUnsupportedFormat},
		{"BodyTooLarge", http.MethodPost, "/api/test", `{"test_content":"` + strings.Repeat("x", 2048) + `"}`, http.StatusBadRequest, failure.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.kind, resp.Error.Kind)
			assert.NotEmpty(t, resp.Error.Message)
			assert.Equal(t, rec.Header().Get(requestIDHeader), resp.Error.RequestID)
		})
	}

	t.Run("StoreFailure", func(t *testing.T) {
		broken := newTestServer(t, failingStore{}, nil)
		rec, resp := do(t, broken, http.MethodGet, "/api/rules", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, failure.KindStoreFailure, resp.Error.Kind)
		assert.NotContains(t, resp.Error.Message, "redis")
	})
}

func TestImportAndReplaceFlow(t *testing.T) {
	store := rules.NewMemoryStore()
	s := newTestServer(t, store, nil)

	rec, resp := do(t, s, http.MethodPost, "/api/import",
		`{"file_content":"from_url,to_url\nhttp://old.com,https://new.com\nhttp://gone.com,https://x.com","file_type":"csv"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var imported service.ImportResult
	require.NoError(t, json.Unmarshal(resp.Data, &imported))
	assert.Equal(t, 1, imported.CommittedCount)
	assert.Equal(t, 1, imported.FilteredOut)

	rec, resp = do(t, s, http.MethodPost, "/api/replace", `{"from_url":"http://old.com","to_url":"https://new.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var replaced struct {
		TotalReplacements int64 `json:"total_replacements"`
		RuleRetired       bool  `json:"rule_retired"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &replaced))
	assert.Equal(t, int64(30), replaced.TotalReplacements)
	assert.True(t, replaced.RuleRetired)

	set, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestMultipartImport(t *testing.T) {
	s := newTestServer(t, rules.NewMemoryStore(), func(c *config.Config) { c.Server.MaxBodyBytes = 1 << 20 })

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "rules.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`{"replacements":[{"old_url":"http://old.com","new_url":"https://new.com"}]}`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_imported":1`)
}

func TestRulesAndExport(t *testing.T) {
	s := newTestServer(t, rules.NewMemoryStore(), nil)

	rec, _ := do(t, s, http.MethodPost, "/api/rules", `{"from_url":"http://a.com","to_url":"http://b.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/export/rules?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="link-rules.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "from_url,to_url,description,case_sensitive\nhttp://a.com,http://b.com,,false\n", rec.Body.String())

	rec, _ = do(t, s, http.MethodGet, "/api/export/report?url=http://old.com&format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 31, strings.Count(rec.Body.String(), "\n"))

	rec, resp := do(t, s, http.MethodDelete, "/api/rules?from_url=http://a.com&to_url=http://b.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestTestAndRewrite(t *testing.T) {
	s := newTestServer(t, rules.NewMemoryStore(rules.Rule{FromURL: "http://old.com", ToURL: "https://new.com"}), func(c *config.Config) {
		c.Rewrite.MetaKeys = nil
	})

	rec, resp := do(t, s, http.MethodPost, "/api/test",
		`{"from_url":"http://old.com","to_url":"https://new.com","test_content":"<a href='http://old.com'>x</a>"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tested service.TestResult
	require.NoError(t, json.Unmarshal(resp.Data, &tested))
	assert.Equal(t, `<a href="https://new.com">x</a>`, tested.Replaced)
	assert.True(t, tested.Changed)

	rec, resp = do(t, s, http.MethodPost, "/api/rewrite", `{"content":"go to http://old.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var rewritten rewriteResponse
	require.NoError(t, json.Unmarshal(resp.Data, &rewritten))
	assert.Equal(t, "go to https://new.com", rewritten.Content)
	assert.True(t, rewritten.Changed)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, rules.NewMemoryStore(), func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	})

	rec, _ := do(t, s, http.MethodGet, "/api/rules", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp := do(t, s, http.MethodGet, "/api/rules", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, kindRateLimited, resp.Error.Kind)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// health stays reachable
	rec, _ = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientLimiterSweep(t *testing.T) {
	l := newClientLimiter(1, 1)
	now := time.Now()

	assert.True(t, l.allowAt("10.0.0.1", now))
	assert.False(t, l.allowAt("10.0.0.1", now))
	assert.True(t, l.allowAt("10.0.0.2", now))
	assert.Equal(t, 2, l.size())

	later := now.Add(visitorTTL + sweepInterval)
	assert.True(t, l.allowAt("10.0.0.3", later))
	assert.Equal(t, 1, l.size())
}

func TestRecoverMiddleware(t *testing.T) {
	s := newTestServer(t, rules.NewMemoryStore(), nil)
	h := s.requestIDMiddleware(s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, failure.KindStoreFailure, resp.Error.Kind)
	assert.Equal(t, "internal error", resp.Error.Message)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}
