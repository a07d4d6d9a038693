package providers

import (
	"context"
	"fmt"
	"time"

	"maintenance-service/internal/config"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/utils"
	"maintenance-service/pkg/email"
)

// SMTPSender delivers notification emails through the configured SMTP relay.
type SMTPSender struct {
	cfg    config.Config
	logger *logging.Logger
}

func NewSMTPSender(cfg config.Config, logger *logging.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	smtpServer := s.cfg.Email.SMTPServer
	smtpPort := s.cfg.Email.SMTPPort
	username := s.cfg.Email.Username
	password := s.cfg.Email.Password

	if smtpServer == "" || smtpPort == 0 || username == "" || password == "" {
		return fmt.Errorf("missing Email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}

	return utils.Retry(s.logger, 3, time.Second, func() error {
		if err := email.Send(smtpServer, smtpPort, username, password, to, subject, body); err != nil {
			return fmt.Errorf("failed to send email to %s: %w", to, err)
		}
		return nil
	})
}
