package leads

import (
	"context"
	"time"

	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
	"github.com/optimumsoft/optimumsoft-web/internal/observability/metrics"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
)

// Service relays submissions through the gateway and archives the delivered ones.
// It satisfies gateway.Gateway, so the chat engine and the contact form share it.
type Service struct {
	gateway gateway.Gateway
	repo    Repository
	metrics *metrics.LeadMetrics
	logger  *logging.Logger
}

// NewService builds the capture service. repo and m may be nil.
func NewService(gw gateway.Gateway, repo Repository, m *metrics.LeadMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{gateway: gw, repo: repo, metrics: m, logger: logger}
}

// Submit sends the lead to the gateway. Only the gateway outcome is returned; an
// archive failure after successful delivery is logged.
func (s *Service) Submit(ctx context.Context, sub gateway.Submission) error {
	if s.gateway == nil {
		return gateway.ErrNotConfigured
	}
	start := time.Now()
	err := s.gateway.Submit(ctx, sub)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.ObserveSubmission(sub.Source, outcome, time.Since(start))
	if err != nil {
		s.logger.Warn("lead submission failed", "source", sub.Source, "error", err)
		return err
	}

	s.logger.Info("lead submitted", "source", sub.Source)
	if s.repo == nil {
		return nil
	}
	lead, archiveErr := s.repo.Create(ctx, RequestFromSubmission(sub))
	if archiveErr != nil {
		s.logger.Error("failed to archive lead", "source", sub.Source, "error", archiveErr)
		return nil
	}
	s.logger.Debug("lead archived", "id", lead.ID)
	return nil
}
