package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/fieldservice-scheduler/internal/conversation"
	httpmiddleware "github.com/wolfman30/fieldservice-scheduler/internal/http/middleware"
	"github.com/wolfman30/fieldservice-scheduler/internal/messaging"
	"github.com/wolfman30/fieldservice-scheduler/internal/outreach"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

type echoResponder struct{}

func (echoResponder) Handle(_ context.Context, phone, message string) conversation.Reply {
	return conversation.Reply{Text: phone + ": " + message, CustomerFound: true}
}

type countingRunner struct{ calls int }

func (c *countingRunner) Run(context.Context) (outreach.Result, error) {
	c.calls++
	return outreach.Result{}, nil
}

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) (http.Handler, *countingRunner) {
	t.Helper()
	logger := logging.Default()
	runner := &countingRunner{}
	return New(&Config{
		Logger:           logger,
		MessagingHandler: messaging.NewHandler("", echoResponder{}, nil, logger),
		OutreachHandler:  outreach.NewHandler("token", runner, logger),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		WebhookLimiter: limiter,
	}), runner
}

func postWebhook(handler http.Handler, path string) *httptest.ResponseRecorder {
	form := url.Values{"From": {"whatsapp:+15550001"}, "Body": {"hello"}}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterWebhookAliases(t *testing.T) {
	handler, _ := newTestRouter(t, nil)

	for _, path := range []string{"/whatsapp", "/messaging/twilio/webhook"} {
		rec := postWebhook(handler, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "<Message>+15550001: hello</Message>", path)
	}
}

func TestRouterTriggerAliases(t *testing.T) {
	handler, runner := newTestRouter(t, nil)

	for _, path := range []string{"/contacts/initiate?token=token", "/iniciar-contacto?token=token"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Equal(t, 2, runner.calls)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	handler, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestRouterWebhookRateLimit(t *testing.T) {
	handler, _ := newTestRouter(t, httpmiddleware.NewRateLimiter(0, 1))

	assert.Equal(t, http.StatusOK, postWebhook(handler, "/whatsapp").Code)
	assert.Equal(t, http.StatusTooManyRequests, postWebhook(handler, "/whatsapp").Code)
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	handler, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whatsapp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
