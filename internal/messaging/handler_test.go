package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/fieldservice-scheduler/internal/conversation"
)

type fakeResponder struct {
	reply conversation.Reply
	phone string
	body  string
}

func (f *fakeResponder) Handle(_ context.Context, phone, message string) conversation.Reply {
	f.phone = phone
	f.body = message
	return f.reply
}

func webhookRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "https://example.com/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestValidateTwilioSignature(t *testing.T) {
	authToken := "test_token"
	webhookURL := "https://example.com/whatsapp"

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("From", "whatsapp:+15550001")
	form.Set("Body", "Hello")

	req := webhookRequest(form)
	req.Header.Set("X-Twilio-Signature", computeSignature(buildSignaturePayload(webhookURL, form), authToken))
	assert.True(t, ValidateTwilioSignature(req, authToken, webhookURL))

	req = webhookRequest(form)
	req.Header.Set("X-Twilio-Signature", "invalid_signature")
	assert.False(t, ValidateTwilioSignature(req, authToken, webhookURL))

	assert.False(t, ValidateTwilioSignature(webhookRequest(form), authToken, webhookURL))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+15550001", NormalizePhone("whatsapp:+15550001"))
	assert.Equal(t, "+15550001", NormalizePhone(" WhatsApp:+15550001 "))
	assert.Equal(t, "+15550001", NormalizePhone("+15550001"))
	assert.Equal(t, "whatsapp:+15550001", WhatsAppAddress("+15550001"))
	assert.Equal(t, "", WhatsAppAddress("  "))
}

func TestTwilioWebhookReplies(t *testing.T) {
	responder := &fakeResponder{reply: conversation.Reply{Text: "Does 10:00 - 11:00 work? <yes> & thanks", CustomerFound: true}}
	h := NewHandler("", responder, nil, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("From", "whatsapp:+15550001")
	form.Set("Body", "  yes please ")

	rec := httptest.NewRecorder()
	h.TwilioWebhook(rec, webhookRequest(form))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "+15550001", responder.phone)
	assert.Equal(t, "yes please", responder.body)
	assert.Equal(t,
		`<?xml version="1.0" encoding="UTF-8"?><Response><Message>Does 10:00 - 11:00 work? &lt;yes&gt; &amp; thanks</Message></Response>`,
		rec.Body.String())
}

func TestTwilioWebhookRejectsBadSignature(t *testing.T) {
	responder := &fakeResponder{}
	h := NewHandler("secret", responder, nil, nil)

	form := url.Values{}
	form.Set("From", "whatsapp:+15550001")
	req := webhookRequest(form)
	req.Header.Set("X-Twilio-Signature", "nope")

	rec := httptest.NewRecorder()
	h.TwilioWebhook(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, responder.phone)
}

func TestTwilioWebhookMissingSender(t *testing.T) {
	h := NewHandler("", &fakeResponder{}, nil, nil)

	rec := httptest.NewRecorder()
	h.TwilioWebhook(rec, webhookRequest(url.Values{"Body": {"hi"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewHandlerPanicsWithoutResponder(t *testing.T) {
	assert.Panics(t, func() { NewHandler("", nil, nil, nil) })
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler("", &fakeResponder{}, nil, nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
