package tool

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"

	"toolrelay/internal/domain"
)

var (
	emailPattern = regexp.MustCompile(`^\w+([-+.']\w+)*@\w+([-.]\w+)*\.\w+([-.]\w+)*$`)
	// legacyEmailPattern matches "Send this to someone@example.com: body".
	legacyEmailPattern = regexp.MustCompile(`(?is)^\s*send\s+(?:this\s+)?to\s+(\S+?)\s*:\s*(.*)$`)
)

// ValidEmail reports whether addr is a single bare mailbox address.
func ValidEmail(addr string) bool {
	if !emailPattern.MatchString(addr) {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}

// EmailSender validates a message and hands it to the configured Mailer.
type EmailSender struct {
	mailer domain.Mailer
	logger *slog.Logger
}

func NewEmailSender(mailer domain.Mailer, logger *slog.Logger) *EmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailSender{mailer: mailer, logger: logger}
}

func (s *EmailSender) Name() string        { return "send_email" }
func (s *EmailSender) Description() string { return "Sends an email." }

func (s *EmailSender) Parameters() *jsonschema.Schema {
	return ObjectSchema([]Param{
		StringParam("to", ""),
		StringParam("subject", ""),
		StringParam("body", ""),
	}, "to", "subject", "body")
}

func (s *EmailSender) Execute(ctx context.Context, req domain.Request) domain.Response {
	msg, err := mapEmailRequest(req.Content)
	if err != nil {
		return domain.Failure(err)
	}
	if !ValidEmail(msg.To) {
		return domain.Failure(domain.Validationf("invalid recipient address: %q", msg.To))
	}
	if s.mailer == nil {
		return domain.Failure(domain.Validationf("no mail transport configured"))
	}

	s.logger.Debug("sending email", "to", msg.To, "subject", msg.Subject)
	if err := s.mailer.Send(ctx, msg); err != nil {
		return domain.Failure(domain.Transport(err, ""))
	}

	confirmation := fmt.Sprintf("Email sent successfully to %s", msg.To)
	return domain.SuccessWithMessage(confirmation+" "+domain.TerminationSentinel, confirmation)
}

func mapEmailRequest(content any) (domain.Email, error) {
	a := newArgs(content, "")
	if raw, ok := a.raw(); ok {
		return parseLegacyEmail(raw)
	}

	var msg domain.Email
	var err error
	if msg.To, err = a.requireString("to"); err != nil {
		return msg, err
	}
	if msg.Subject, err = a.requireString("subject"); err != nil {
		return msg, err
	}
	if msg.Body, err = a.requireString("body"); err != nil {
		return msg, err
	}
	return msg, nil
}

// parseLegacyEmail handles the free-text form older planners produce.
func parseLegacyEmail(text string) (domain.Email, error) {
	m := legacyEmailPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.Email{}, domain.Validationf("missing argument: to")
	}
	to := strings.TrimRight(m[1], ".,;")
	body := strings.TrimSpace(m[2])
	if body == "" {
		return domain.Email{}, domain.Validationf("missing argument: body")
	}
	return domain.Email{To: to, Subject: "Message for " + to, Body: body}, nil
}
