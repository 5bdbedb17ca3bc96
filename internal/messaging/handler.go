package messaging

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/fieldservice-scheduler/internal/conversation"
	"github.com/wolfman30/fieldservice-scheduler/internal/observability/metrics"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

var twilioTracer = otel.Tracer("fieldservice.internal.messaging.twilio")

// Responder produces the reply to one inbound customer message.
type Responder interface {
	Handle(ctx context.Context, phone, message string) conversation.Reply
}

// Handler serves the inbound WhatsApp webhook.
type Handler struct {
	webhookSecret string
	responder     Responder
	metrics       *metrics.SchedulerMetrics
	logger        *logging.Logger
}

// NewHandler creates a webhook handler. Signatures are only checked when
// webhookSecret is set.
func NewHandler(webhookSecret string, responder Responder, m *metrics.SchedulerMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if responder == nil {
		panic("messaging: responder cannot be nil")
	}
	return &Handler{
		webhookSecret: webhookSecret,
		responder:     responder,
		metrics:       m,
		logger:        logger,
	}
}

// TwilioWebhook handles POST /whatsapp and answers synchronously with TwiML.
func (h *Handler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := twilioTracer.Start(r.Context(), "messaging.twilio.webhook")
	defer span.End()
	started := time.Now()

	if h.webhookSecret != "" && !ValidateTwilioSignature(r, h.webhookSecret, buildAbsoluteURL(r)) {
		h.logger.Warn("invalid twilio signature")
		span.RecordError(errors.New("invalid twilio signature"))
		h.observe("unauthorized", started)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	msg, err := ParseTwilioWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		span.RecordError(err)
		h.observe("bad_request", started)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if msg.From == "" {
		err := errors.New("missing sender")
		h.logger.Error("invalid twilio payload", "error", err)
		span.RecordError(err)
		h.observe("bad_request", started)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("fieldservice.twilio.message_sid", msg.MessageSid),
		attribute.String("fieldservice.twilio.from", msg.From),
	)

	h.logger.Info("inbound message", "phone", msg.From, "message_sid", msg.MessageSid)
	reply := h.responder.Handle(ctx, msg.From, msg.Body)

	status := "ok"
	if !reply.CustomerFound {
		status = "unknown_customer"
	}
	h.observe(status, started)

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(TwiML(reply.Text)))
}

func (h *Handler) observe(status string, started time.Time) {
	h.metrics.ObserveWebhook(status, time.Since(started).Seconds())
}

// TwiML wraps text in a single-message Twilio response envelope.
func TwiML(text string) string {
	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(text))
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Response><Message>%s</Message></Response>`, escaped.String())
}

// HealthCheck returns a simple health check response.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func buildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
