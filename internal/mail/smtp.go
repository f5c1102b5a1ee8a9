// Package mail delivers outgoing email over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gomail "github.com/wneessen/go-mail"

	"toolrelay/internal/domain"
)

const defaultTimeout = 30 * time.Second

// TLS modes accepted by Config.TLS.
const (
	TLSStartTLS = "starttls"
	TLSImplicit = "tls"
	TLSNone     = "none"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// SMTPMailer implements domain.Mailer. Each Send opens its own connection.
type SMTPMailer struct {
	cfg    Config
	logger *slog.Logger
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.TLS == "" {
		cfg.TLS = TLSStartTLS
	}
	if cfg.Port == 0 {
		cfg.Port = 587
		if cfg.TLS == TLSImplicit {
			cfg.Port = 465
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SMTPMailer{cfg: cfg, logger: cfg.Logger}
}

// Send delivers msg. Failures are transport errors carrying the SMTP
// error text.
func (m *SMTPMailer) Send(ctx context.Context, msg domain.Email) error {
	if m.cfg.Host == "" {
		return domain.Transport(fmt.Errorf("smtp host is not configured"), "")
	}
	if m.cfg.From == "" {
		return domain.Transport(fmt.Errorf("smtp sender address is not configured"), "")
	}

	gm, err := m.buildMessage(msg)
	if err != nil {
		return domain.Transport(err, "")
	}
	client, err := gomail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return domain.Transport(err, "")
	}

	start := time.Now()
	m.logger.Debug("connecting to smtp server", "host", m.cfg.Host, "port", m.cfg.Port, "tls", m.cfg.TLS)
	if err := client.DialAndSendWithContext(ctx, gm); err != nil {
		return domain.Transport(err, "")
	}
	m.logger.Info("email sent", "to", msg.To, "took", time.Since(start))
	return nil
}

func (m *SMTPMailer) buildMessage(msg domain.Email) (*gomail.Msg, error) {
	gm := gomail.NewMsg()
	if err := gm.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := gm.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	gm.Subject(msg.Subject)
	gm.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return gm, nil
}

func (m *SMTPMailer) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTimeout(m.cfg.Timeout),
	}
	switch m.cfg.TLS {
	case TLSImplicit:
		opts = append(opts, gomail.WithSSL())
	case TLSNone:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}
