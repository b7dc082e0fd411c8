package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/optimumsoft/optimumsoft-web/cmd/mainconfig"
	appconfig "github.com/optimumsoft/optimumsoft-web/internal/config"
	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
	"github.com/optimumsoft/optimumsoft-web/internal/notify"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
)

// Lead gateway kinds selectable with LEAD_GATEWAY.
const (
	GatewayFormRelay = "formrelay"
	GatewaySendGrid  = "sendgrid"
	GatewaySES       = "ses"
	GatewayStub      = "stub"
)

// BuildLeadGateway selects the delivery channel for leads. A gateway that is
// missing its settings yields (nil, nil) so the API still serves pages and
// reports lead submissions as not configured.
func BuildLeadGateway(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (gateway.Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.LeadGateway {
	case "", GatewayFormRelay:
		relay, err := gateway.NewFormRelay(gateway.FormRelayConfig{
			BaseURL:   cfg.LeadRelayURL,
			Recipient: cfg.LeadRecipient,
			Timeout:   cfg.LeadRelayTimeout,
		}, logger.Component("formrelay"))
		if errors.Is(err, gateway.ErrNotConfigured) {
			logger.Warn("form relay not configured; lead submissions disabled")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		logger.Info("lead gateway: form relay", "endpoint", relay.Endpoint())
		return relay, nil

	case GatewaySendGrid:
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger.Component("sendgrid"))
		if sender == nil {
			logger.Warn("sendgrid api key missing; lead submissions disabled")
			return nil, nil
		}
		return leadRelay(sender, cfg, logger, GatewaySendGrid)

	case GatewaySES:
		if strings.TrimSpace(cfg.SESFromEmail) == "" {
			logger.Warn("ses sender address missing; lead submissions disabled")
			return nil, nil
		}
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		sender := notify.NewSESSender(mainconfig.NewSESClient(awsCfg, cfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger.Component("ses"))
		return leadRelay(sender, cfg, logger, GatewaySES)

	case GatewayStub:
		return leadRelay(notify.NewStubEmailSender(logger.Component("stub-email")), cfg, logger, GatewayStub)

	default:
		return nil, fmt.Errorf("bootstrap: unknown lead gateway %q", cfg.LeadGateway)
	}
}

func leadRelay(sender notify.EmailSender, cfg *appconfig.Config, logger *logging.Logger, kind string) (gateway.Gateway, error) {
	relay, err := notify.NewLeadRelay(sender, cfg.LeadRecipient, logger.Component("lead-relay"))
	if errors.Is(err, gateway.ErrNotConfigured) {
		logger.Warn("lead recipient missing; lead submissions disabled", "gateway", kind)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info("lead gateway: email relay", "gateway", kind)
	return relay, nil
}
