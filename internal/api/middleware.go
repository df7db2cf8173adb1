package api

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"github.com/raaihank/link-sentinel/internal/failure"
	"github.com/raaihank/link-sentinel/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware tags every request with an ID, reusing the caller's
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), requestID)))
	})
}

// loggingMiddleware logs HTTP requests and responses
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := s.logger.FromContext(r.Context())

		log.Debug("HTTP request started",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client_ip", clientIP(r)),
			zap.String("user_agent", r.UserAgent()),
		)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		log.LogRequest(r.Method, r.URL.Path, rw.statusCode, rw.size, time.Since(start))
	})
}

// recoverMiddleware turns a handler panic into a store_failure response
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.FromContext(r.Context()).Error("Handler panicked",
				zap.Any("panic", rec),
				zap.Stack("stack"))
			s.writeError(w, r, failure.Store("internal error", errors.Errorf("panic: %v", rec)))
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(clientIP(r)) {
			s.logger.FromContext(r.Context()).Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP(r)),
				zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, envelope{
				Error: &errorBody{
					Kind:      kindRateLimited,
					Message:   "Too many requests. Please slow down.",
					RequestID: logger.RequestIDFrom(r.Context()),
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) bodyLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limit := s.config.Server.MaxBodyBytes; limit > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// responseWriter wraps http.ResponseWriter to capture response data
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// Hijack lets the websocket upgrader take over the connection
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
