package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventpublisher/internal/domain"
)

const requestDecisionTemplate = "request_decision"

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendRequestDecision tells a requester whether the initiator confirmed or rejected their request.
func (s *emailService) SendRequestDecision(ctx context.Context, data *domain.RequestDecisionEmailData) error {
	if data == nil {
		return fmt.Errorf("request decision data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render(requestDecisionTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", requestDecisionTemplate, err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send request decision email: %w", err)
	}
	s.logger.InfoContext(ctx, "request decision email sent", "to", data.Email, "confirmed", data.Confirmed)
	return nil
}
