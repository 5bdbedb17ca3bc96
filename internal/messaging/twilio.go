package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ValidateTwilioSignature checks the X-Twilio-Signature header against the
// HMAC-SHA1 of the webhook URL followed by the sorted form parameters.
func ValidateTwilioSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	expected := computeSignature(buildSignaturePayload(webhookURL, r.PostForm), authToken)
	return hmac.Equal([]byte(signature), []byte(expected))
}

func buildSignaturePayload(webhookURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}
	return payload.String()
}

func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// InboundMessage is the part of a Twilio WhatsApp webhook the scheduler uses.
type InboundMessage struct {
	MessageSid string
	From       string
	To         string
	Body       string
}

// ParseTwilioWebhook reads the form fields of an inbound message. From and To
// are returned without their "whatsapp:" channel prefix.
func ParseTwilioWebhook(r *http.Request) (InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return InboundMessage{}, fmt.Errorf("messaging: parse form: %w", err)
	}
	return InboundMessage{
		MessageSid: r.FormValue("MessageSid"),
		From:       NormalizePhone(r.FormValue("From")),
		To:         NormalizePhone(r.FormValue("To")),
		Body:       strings.TrimSpace(r.FormValue("Body")),
	}, nil
}
