package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/handlers"
	"github.com/shanki-dipak/portfolio-twin/pkg/logger"
	"github.com/sirupsen/logrus"
)

// StatusRecorder captures the status code written by a handler
type StatusRecorder struct {
	http.ResponseWriter
	status int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w}
}

func (s *StatusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *StatusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Status returns the written status, 200 if the handler wrote nothing
func (s *StatusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// Written reports whether a status has been sent
func (s *StatusRecorder) Written() bool {
	return s.status != 0
}

// RequestLogger logs method, path, origin, status and duration of every request
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			logger.WithRequest(log, r).WithFields(logrus.Fields{
				"client":   ClientIP(r),
				"status":   rec.Status(),
				"duration": time.Since(start),
			}).Info("HTTP request")
		})
	}
}

// CORS allows the configured origins to call the API from a browser
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Accept-Language", "X-Admin-Token"}),
		handlers.MaxAge(600),
	)
}

// TrustProxy sets RemoteAddr from X-Forwarded-For or X-Real-IP when the
// server runs behind a proxy it trusts. Otherwise requests pass untouched.
func TrustProxy(enabled bool) func(http.Handler) http.Handler {
	if enabled {
		return handlers.ProxyHeaders
	}
	return func(next http.Handler) http.Handler { return next }
}

// Recover turns a panic into a logged 500 served by the fallback handler.
// If the panicking handler already sent a status, nothing more is written.
func Recover(log *logrus.Logger, fallback http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := NewStatusRecorder(w)
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.WithRequest(log, r).WithFields(logrus.Fields{
						"panic": err,
						"stack": string(debug.Stack()),
					}).Error("Recovered from panic")

					if !rec.Written() {
						fallback.ServeHTTP(rec, r)
					}
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// BodyLimit caps request bodies at maxBytes
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
