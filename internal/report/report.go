// Package report handles the emergency-report flow: a submitted report is
// composed into a short SOS message by the assistant and dispatched over SMS.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/discentra/discentra/internal/observability"
	"github.com/discentra/discentra/internal/sanitize"
	"github.com/discentra/discentra/internal/worker"
)

// Composer turns free-form emergency details into a dispatch-ready SOS body.
type Composer interface {
	ComposeSOS(ctx context.Context, details string) (string, error)
}

// Notifier matches notify.Notifier; redeclared here so the service depends
// only on what it calls.
type Notifier interface {
	Send(ctx context.Context, body string) error
}

// Submission is one emergency report from a user.
type Submission struct {
	EmergencyType string `json:"emergency_type" binding:"required"`
	Description   string `json:"description" binding:"required"`
}

// Service queues submissions and dispatches them asynchronously. Dispatch
// failures are logged and counted, never surfaced to the submitter.
type Service struct {
	pool     *worker.Pool[Submission]
	composer Composer
	notifier Notifier
	metrics  *observability.Metrics
	logger   *slog.Logger
}

func NewService(workers, buffer int, composer Composer, notifier Notifier, metrics *observability.Metrics, logger *slog.Logger) *Service {
	s := &Service{
		composer: composer,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
	s.pool = worker.NewPool(workers, buffer, s.dispatch)
	return s
}

func (s *Service) Start(ctx context.Context) {
	s.pool.Start(ctx)
}

func (s *Service) Stop() {
	s.pool.Stop()
}

// Submit enqueues a report for dispatch. It blocks only when the queue is
// full.
func (s *Service) Submit(sub Submission) {
	s.pool.Submit(sub)
}

func (s *Service) dispatch(ctx context.Context, sub Submission) error {
	details := fmt.Sprintf("Emergency Type: %s, Description: %s",
		sub.EmergencyType, sub.Description)

	body, err := s.composer.ComposeSOS(ctx, details)
	if err != nil {
		s.metrics.ReportsDispatched.WithLabelValues("failure").Inc()
		s.logger.Error("sos composition failed", "type", sub.EmergencyType, "error", err)
		return err
	}

	body = cleanSOS(body)
	if body == "" {
		s.metrics.ReportsDispatched.WithLabelValues("failure").Inc()
		s.logger.Error("sos composition produced empty body", "type", sub.EmergencyType)
		return fmt.Errorf("empty sos body")
	}

	if err := s.notifier.Send(ctx, body); err != nil {
		s.metrics.ReportsDispatched.WithLabelValues("failure").Inc()
		s.logger.Error("sos dispatch failed", "type", sub.EmergencyType, "error", err)
		return err
	}

	s.metrics.ReportsDispatched.WithLabelValues("success").Inc()
	s.logger.Info("sos dispatched", "type", sub.EmergencyType, "length", len(body))
	return nil
}

// cleanSOS strips any markup the model smuggled in and the decorative quotes
// it tends to wrap short messages with.
func cleanSOS(body string) string {
	body = sanitize.StripTags(body)
	body = strings.Trim(body, "\"'“”‘’ \t\n")
	return body
}
