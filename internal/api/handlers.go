package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/raaihank/link-sentinel/internal/engine"
	"github.com/raaihank/link-sentinel/internal/export"
	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/importer"
	"github.com/raaihank/link-sentinel/internal/report"
	"github.com/raaihank/link-sentinel/internal/rules"
)

type findRequest struct {
	SearchURL     string `json:"search_url"`
	CaseSensitive bool   `json:"case_sensitive"`
	Page          int    `json:"page"`
	PerPage       int    `json:"per_page"`
}

type findResponse struct {
	*engine.AuditReport
	Page report.Page `json:"page"`
}

type urlPairRequest struct {
	FromURL string `json:"from_url"`
	ToURL   string `json:"to_url"`
}

type importRequest struct {
	FileContent string `json:"file_content"`
	FileType    string `json:"file_type"`
}

type testRequest struct {
	FromURL     string `json:"from_url"`
	ToURL       string `json:"to_url"`
	TestContent string `json:"test_content"`
}

type rewriteRequest struct {
	Content string `json:"content"`
	MetaKey string `json:"meta_key"`
}

type rewriteResponse struct {
	Content string `json:"content"`
	Changed bool   `json:"changed"`
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	var req findRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.service.FindInstances(r.Context(), req.SearchURL, req.CaseSensitive)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page := req.Page
	if page == 0 {
		page = 1
	}

	w.Header().Set("ETag", strconv.Quote(result.Fingerprint))
	writeData(w, http.StatusOK, findResponse{
		AuditReport: result,
		Page:        report.Paginate(result.Locations, page, req.PerPage),
	})
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	var req urlPairRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.service.ReplaceInstances(r.Context(), req.FromURL, req.ToURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (s *Server) handlePreviewImport(w http.ResponseWriter, r *http.Request) {
	content, fileType, err := readImport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	batch, err := s.service.PreviewImport(r.Context(), content, fileType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, batch)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	content, fileType, err := readImport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.service.ImportURLs(r.Context(), content, fileType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

// readImport accepts either a JSON body or a multipart upload in field "file".
// Uploads without file_type get the format of the file extension.
func readImport(r *http.Request) (string, string, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req importRequest
		if err := decodeJSON(r, &req); err != nil {
			return "", "", err
		}
		return req.FileContent, req.FileType, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", failure.InvalidInput("No file content provided.")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", failure.InvalidInput("failed to read uploaded file")
	}

	fileType := r.FormValue("file_type")
	if fileType == "" {
		format, err := importer.DetectFormat(header.Filename)
		if err != nil {
			return "", "", err
		}
		fileType = string(format)
	}
	return string(data), fileType, nil
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.service.TestReplacement(req.FromURL, req.ToURL, req.TestContent)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var req rewriteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.service.RewriteContent(r.Context(), req.Content, req.MetaKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rewriteResponse{Content: out, Changed: out != req.Content})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	set, err := s.service.ListRules(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, set)
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := decodeJSON(r, &rule); err != nil {
		s.writeError(w, r, err)
		return
	}

	set, err := s.service.AddRule(r.Context(), rule)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, set)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	set, err := s.service.DeleteRule(r.Context(), q.Get("from_url"), q.Get("to_url"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, set)
}

func (s *Server) handleFetchRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	q := r.URL.Query()

	view, err := s.service.FetchRecord(r.Context(), vars["type"], vars["id"], q.Get("from_url"), q.Get("to_url"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) handleExportRules(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.service.ExportRules(r.Context(), &buf, format); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeFile(w, "link-rules", format, buf.Bytes())
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.service.ExportReport(r.Context(), &buf, q.Get("url"), format); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeFile(w, "link-report", format, buf.Bytes())
}

func writeFile(w http.ResponseWriter, name string, format export.Format, data []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
