package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/mediconnect/mediconnect-platform/internal/config"
	"github.com/mediconnect/mediconnect-platform/internal/events"
	"github.com/mediconnect/mediconnect-platform/internal/notify"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

// BuildEmailSender selects the configured email provider, falling back to
// the stub when the provider is unusable.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub email sender")
	case "ses":
		if awsCfg != nil {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFrom,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
		logger.Warn("ses selected without AWS config; using stub email sender")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildPublisher returns an SQS publisher when a queue is configured.
func BuildPublisher(cfg *appconfig.Config, awsCfg *aws.Config) events.Publisher {
	if strings.TrimSpace(cfg.EventsQueueURL) == "" || awsCfg == nil {
		return events.NopPublisher{}
	}
	return events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.EventsQueueURL)
}
