// Package notify delivers transactional email over SMTP. Delivery is
// fire-and-forget from the caller's point of view: each attempt is recorded
// in a delivery log when one is configured, and failures are reported but
// never block business flows.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/sellergrid/service-core-go/internal/config"
	notifyrepo "github.com/sellergrid/service-core-go/internal/notify/repo"
)

// SMTPSender sends HTML mail through a plain SMTP relay.
type SMTPSender struct {
	cfg    config.SMTPConfig
	log    *notifyrepo.OutboxRepo
	logger *zap.SugaredLogger

	// send is swapped in tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender constructs a sender. The outbox repo is optional; when nil
// no delivery log is written.
func NewSMTPSender(cfg config.SMTPConfig, log *notifyrepo.OutboxRepo, logger *zap.SugaredLogger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log, logger: logger, send: smtp.SendMail}
}

// Send delivers one HTML message and records the attempt.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := buildMessage(s.cfg.From, to, subject, htmlBody)
	err := s.send(addr, auth, s.cfg.From, []string{to}, msg)

	if s.log != nil {
		status := "sent"
		if err != nil {
			status = "failed"
		}
		if logErr := s.log.Record(ctx, to, subject, status); logErr != nil {
			s.logger.Warnw("record delivery", "err", logErr)
		}
	}
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}
