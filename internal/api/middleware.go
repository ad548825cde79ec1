package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicbook/booking-engine/internal/booking"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
)

// RequestIDMiddleware adds a unique request ID to each request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggingMiddleware logs each request with method, path, status and latency.
func LoggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			evt := log.Info()
			if wrapped.statusCode >= http.StatusInternalServerError {
				evt = log.Error()
			}
			evt.
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("latency", time.Since(start)).
				Msg("request")
		})
	}
}

// ActorMiddleware turns the already-authenticated identity headers into an
// explicit booking.Actor. Requests without a valid identity are rejected
// before they reach any handler.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get("X-Actor-Id"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Id must be a valid UUID")
			return
		}

		role := booking.Role(r.Header.Get("X-Actor-Role"))
		switch role {
		case booking.RolePatient, booking.RoleProvider, booking.RoleStaff:
		default:
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Role must be patient, provider or staff")
			return
		}

		actor := booking.Actor{ID: id, Role: role}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromContext returns the caller identity placed by ActorMiddleware.
func ActorFromContext(ctx context.Context) booking.Actor {
	if a, ok := ctx.Value(actorKey).(booking.Actor); ok {
		return a
	}
	return booking.Actor{}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
