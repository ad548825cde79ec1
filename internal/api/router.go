package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicbook/booking-engine/internal/booking"
)

type RouterConfig struct {
	Service *booking.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Everything below requires an authenticated identity.
	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware)

		r.Post("/slots", createSlotHandler(cfg.Service))
		r.Get("/slots", listSlotsHandler(cfg.Service))
		r.Delete("/slots/{id}", deleteSlotHandler(cfg.Service))

		r.Post("/appointments", createAppointmentHandler(cfg.Service))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/decision", decisionHandler(cfg.Service))
		r.Post("/appointments/{id}/cancel", cancelHandler(cfg.Service))
		r.Post("/appointments/{id}/reschedule", rescheduleHandler(cfg.Service))
		r.Post("/appointments/{id}/outcome", outcomeHandler(cfg.Service))

		r.Get("/events", changeFeedHandler(cfg.Service))
	})

	return r
}
