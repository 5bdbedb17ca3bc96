package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/fieldservice-scheduler/internal/records"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

var twilioSendTracer = otel.Tracer("fieldservice.internal.messaging.twilio_send")

const defaultTwilioBaseURL = "https://api.twilio.com"

// Template variable defaults for customers with missing fields.
const (
	defaultTemplateName    = "client"
	defaultTemplateService = "pending service"
	defaultTemplateAddress = "address not registered"
)

// TemplateConfig holds the Twilio credentials and Content API identifiers of
// the outreach template.
type TemplateConfig struct {
	AccountSID          string
	AuthToken           string
	From                string
	MessagingServiceSID string
	ContentSID          string
	// BaseURL overrides the Twilio API host.
	BaseURL string
}

// TemplateSender sends the WhatsApp outreach template to a customer.
type TemplateSender struct {
	cfg        TemplateConfig
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
	logger     *logging.Logger
}

func NewTemplateSender(cfg TemplateConfig, logger *logging.Logger) *TemplateSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTwilioBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TemplateSender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		backoff: func(int) time.Duration {
			return time.Duration(200+rand.Intn(300)) * time.Millisecond
		},
		logger: logger,
	}
}

// templateVariables fills the numbered ContentVariables of the template.
func templateVariables(c records.Customer) (string, error) {
	name := firstNonEmpty(c.Name, defaultTemplateName)
	service := firstNonEmpty(c.ServiceDescription, c.ServiceType, defaultTemplateService)
	address := firstNonEmpty(c.Address, defaultTemplateAddress)
	data, err := json.Marshal(map[string]string{"1": name, "2": service, "3": address})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Notify sends the outreach template to c, retrying transient failures.
func (s *TemplateSender) Notify(ctx context.Context, c records.Customer) error {
	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" {
		return errors.New("messaging: twilio credentials missing")
	}
	if s.cfg.ContentSID == "" {
		return errors.New("messaging: template content sid missing")
	}
	to := WhatsAppAddress(c.Phone)
	if to == "" {
		return errors.New("messaging: customer phone required")
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.template")
	defer span.End()
	span.SetAttributes(attribute.String("fieldservice.to", to))

	variables, err := templateVariables(c)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("messaging: encode template variables: %w", err)
	}
	payload := url.Values{}
	payload.Set("To", to)
	if s.cfg.From != "" {
		payload.Set("From", s.cfg.From)
	}
	if s.cfg.MessagingServiceSID != "" {
		payload.Set("MessagingServiceSid", s.cfg.MessagingServiceSID)
	}
	payload.Set("ContentSid", s.cfg.ContentSID)
	payload.Set("ContentVariables", variables)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.cfg.BaseURL, s.cfg.AccountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID string `json:"sid"`
				}
				_ = json.Unmarshal(body, &parsed)
				s.logger.Info("twilio template sent", "phone", c.Phone, "message_sid", parsed.SID)
				return nil
			}
			lastErr = fmt.Errorf("messaging: twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
			// 4xx other than rate limiting will not succeed on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				break
			}
		}

		if attempt < 3 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = 3
			case <-time.After(s.backoff(attempt)):
			}
		}
	}

	span.RecordError(lastErr)
	s.logger.Warn("twilio template failed", "phone", c.Phone, "error", lastErr)
	return lastErr
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	body = []byte(strings.TrimSpace(string(body)))
	if len(body) == 0 {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, string(body))
}
