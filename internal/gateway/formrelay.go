package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var formRelayTracer = otel.Tracer("optimumsoft.internal.gateway.formrelay")

// FormRelayConfig configures the hosted form relay.
type FormRelayConfig struct {
	// BaseURL is the relay's AJAX endpoint, e.g. https://formsubmit.co/ajax.
	BaseURL string
	// Recipient is appended to BaseURL and receives the notification email.
	Recipient  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// FormRelay posts form-encoded submissions to a hosted form relay. It never retries:
// a failed submission is reported and the visitor decides whether to try again.
type FormRelay struct {
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

// NewFormRelay builds a relay client. An empty recipient yields ErrNotConfigured.
func NewFormRelay(cfg FormRelayConfig, logger *logging.Logger) (*FormRelay, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	recipient := strings.TrimSpace(cfg.Recipient)
	if base == "" || recipient == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = logging.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &FormRelay{
		endpoint: base + "/" + recipient,
		client:   client,
		logger:   logger,
	}, nil
}

// Endpoint returns the URL submissions are posted to.
func (f *FormRelay) Endpoint() string {
	return f.endpoint
}

// Submit posts one submission. Any 2xx is success; everything else wraps ErrSubmissionFailed.
func (f *FormRelay) Submit(ctx context.Context, sub Submission) error {
	ctx, span := formRelayTracer.Start(ctx, "gateway.formrelay.submit")
	defer span.End()
	span.SetAttributes(attribute.String("lead.source", sub.Source))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, strings.NewReader(sub.Form().Encode()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return fmt.Errorf("%w: build request: %v", ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		f.logger.Error("form relay request failed", "error", err, "source", sub.Source)
		return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, "non-2xx")
		f.logger.Warn("form relay rejected submission", "status", resp.StatusCode, "source", sub.Source)
		return statusErr
	}

	f.logger.Info("lead relayed", "source", sub.Source, "status", resp.StatusCode)
	return nil
}

var _ Gateway = (*FormRelay)(nil)
