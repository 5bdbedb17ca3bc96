package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/fieldservice-scheduler/internal/http/middleware"
	"github.com/wolfman30/fieldservice-scheduler/internal/messaging"
	"github.com/wolfman30/fieldservice-scheduler/internal/outreach"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	MessagingHandler *messaging.Handler
	OutreachHandler  *outreach.Handler
	MetricsHandler   http.Handler

	// WebhookLimiter throttles the inbound webhook per client IP when set.
	WebhookLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", cfg.MessagingHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(webhooks chi.Router) {
		if cfg.WebhookLimiter != nil {
			webhooks.Use(httpmiddleware.RateLimit(cfg.WebhookLimiter))
		}
		webhooks.Post("/whatsapp", cfg.MessagingHandler.TwilioWebhook)
		webhooks.Post("/messaging/twilio/webhook", cfg.MessagingHandler.TwilioWebhook)
	})

	if cfg.OutreachHandler != nil {
		r.Get("/contacts/initiate", cfg.OutreachHandler.Initiate)
		r.Get("/iniciar-contacto", cfg.OutreachHandler.Initiate)
	}

	return r
}
