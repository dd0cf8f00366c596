// Package smtp delivers outbound messages through an SMTP relay.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"email-dispatcher/internal/config"
	"email-dispatcher/internal/models"
)

// Sender sends one message per connection. When the server offers STARTTLS
// the connection is upgraded before authenticating.
type Sender struct {
	dialer *gomail.Dialer
	log    *zap.SugaredLogger
}

func NewSender(cfg config.SMTP, log *zap.SugaredLogger) *Sender {
	log = log.Named("smtp")
	log.Infow("Initializing mail sender", "host", cfg.Host, "port", cfg.Port, "user", cfg.User, "ssl", cfg.SSL)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.SSL
	if cfg.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true} //nolint:gosec // operator opt-in
	}
	return &Sender{dialer: d, log: log}
}

func (s *Sender) Name() string {
	return config.TransportSMTP
}

func (s *Sender) Host() string {
	return s.dialer.Host
}

func (s *Sender) Port() int {
	return s.dialer.Port
}

// Send dials the server, authenticates and transmits msg.
func (s *Sender) Send(_ context.Context, msg models.OutboundMessage) error {
	if err := s.dialer.DialAndSend(newMessage(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	s.log.Debugw("Mail accepted by server", "to", msg.To, "host", s.dialer.Host)
	return nil
}

func newMessage(msg models.OutboundMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From.Address, msg.From.Name)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	a := msg.Attachment
	if a.Name != "" {
		m.Attach(a.Name,
			gomail.SetHeader(map[string][]string{
				"Content-Type": {fmt.Sprintf("%s; name=%q", a.MimeType, a.Name)},
			}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(a.Content)
				return err
			}))
	}
	return m
}
