package api

import (
	"encoding/json"
	"io"
	"net/http"

	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/logger"
)

const kindRateLimited failure.Kind = "rate_limited"

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Kind      failure.Kind `json:"kind"`
	Message   string       `json:"message"`
	RequestID string       `json:"request_id,omitempty"`
}

// statusFor maps a failure kind to its HTTP status
func statusFor(kind failure.Kind) int {
	switch kind {
	case failure.KindInvalidInput:
		return http.StatusBadRequest
	case failure.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case failure.KindMalformedSource:
		return http.StatusUnprocessableEntity
	case failure.KindNoViableRules, failure.KindEmptyBatch:
		return http.StatusConflict
	case failure.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := failure.KindOf(err)
	status := statusFor(kind)

	log := s.logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Operation failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", string(kind)),
			zap.Error(err))
	} else {
		log.Debug("Operation rejected",
			zap.String("path", r.URL.Path),
			zap.String("kind", string(kind)),
			zap.String("message", failure.MessageOf(err)))
	}

	writeJSON(w, status, envelope{
		Error: &errorBody{
			Kind:      kind,
			Message:   failure.MessageOf(err),
			RequestID: logger.RequestIDFrom(r.Context()),
		},
	})
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// zero so the operation reports the missing fields itself.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return failure.InvalidInput("request body too large")
		}
		return failure.InvalidInput("invalid JSON request body")
	}
	return nil
}
