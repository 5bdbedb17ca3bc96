package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/fieldservice-scheduler/internal/config"
	"github.com/wolfman30/fieldservice-scheduler/internal/messaging"
	"github.com/wolfman30/fieldservice-scheduler/internal/notify"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// BuildBookingNotifier returns the dispatch office notifier, or nil when no
// email provider or recipient is configured.
func BuildBookingNotifier(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *notify.BookingNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sg != nil {
			sender = sg
		}
	case "ses":
		if awsCfg != nil {
			sender = notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFrom,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
	case "stub":
		sender = notify.NewStubEmailSender(logger)
	}
	if sender == nil {
		if cfg.EmailProvider != "" {
			logger.Warn("email provider not usable; booking notifications disabled", "provider", cfg.EmailProvider)
		}
		return nil
	}
	return notify.NewBookingNotifier(sender, cfg.DispatchEmail, logger)
}

// BuildTemplateSender returns the Twilio outreach sender.
func BuildTemplateSender(cfg *appconfig.Config, logger *logging.Logger) *messaging.TemplateSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		logger.Warn("twilio credentials missing; outreach sends will fail")
	}
	return messaging.NewTemplateSender(messaging.TemplateConfig{
		AccountSID:          cfg.TwilioAccountSID,
		AuthToken:           cfg.TwilioAuthToken,
		From:                cfg.TwilioWhatsAppNumber,
		MessagingServiceSID: cfg.TwilioMessagingServiceSID,
		ContentSID:          cfg.TwilioTemplateSID,
	}, logger)
}
