package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolrelay/internal/domain"
)

type recordingMailer struct {
	sent []domain.Email
	err  error
}

func (m *recordingMailer) Send(_ context.Context, e domain.Email) error {
	m.sent = append(m.sent, e)
	return m.err
}

func TestEmailSender_Sends(t *testing.T) {
	mailer := &recordingMailer{}
	s := NewEmailSender(mailer, testLogger())

	resp := s.Execute(context.Background(), domain.Request{Content: map[string]any{
		"to": "ana@example.com", "subject": "Precios", "body": "Resumen adjunto",
	}})
	require.True(t, resp.OK(), resp.Message)
	assert.Equal(t, "Email sent successfully to ana@example.com TERMINATE", resp.Content)
	assert.Equal(t, "Email sent successfully to ana@example.com", resp.Message)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Precios", mailer.sent[0].Subject)
}

func TestEmailSender_InvalidRecipientNeverSends(t *testing.T) {
	mailer := &recordingMailer{}
	s := NewEmailSender(mailer, testLogger())

	for _, to := range []string{"not-an-email", "a@b", "Ana <ana@example.com>", "a@b.com, c@d.com"} {
		resp := s.Execute(context.Background(), domain.Request{Content: map[string]any{
			"to": to, "subject": "s", "body": "b",
		}})
		assert.Equal(t, domain.StatusError, resp.Status, to)
		assert.Equal(t, domain.KindValidation, resp.Kind, to)
	}
	assert.Empty(t, mailer.sent)
}

func TestEmailSender_TransportErrorVerbatim(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("535 5.7.8 authentication failed")}
	s := NewEmailSender(mailer, testLogger())

	resp := s.Execute(context.Background(), domain.Request{Content: map[string]any{
		"to": "a@b.com", "subject": "s", "body": "b",
	}})
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Equal(t, "535 5.7.8 authentication failed", resp.Message)
	assert.Equal(t, domain.KindTransport, resp.Kind)
}

func TestEmailSender_MissingFields(t *testing.T) {
	s := NewEmailSender(&recordingMailer{}, testLogger())

	resp := s.Execute(context.Background(), domain.Request{Content: map[string]any{"to": "a@b.com", "body": "b"}})
	assert.Equal(t, "missing argument: subject", resp.Message)

	resp = s.Execute(context.Background(), domain.Request{Content: map[string]any{"to": "a@b.com", "subject": "s", "body": "  "}})
	assert.Equal(t, "missing argument: body", resp.Message)
}

func TestEmailSender_NoMailer(t *testing.T) {
	s := NewEmailSender(nil, nil)
	resp := s.Execute(context.Background(), domain.Request{Content: map[string]any{"to": "a@b.com", "subject": "s", "body": "b"}})
	assert.Equal(t, "no mail transport configured", resp.Message)
}

func TestEmailSender_LegacyFreeText(t *testing.T) {
	mailer := &recordingMailer{}
	s := NewEmailSender(mailer, testLogger())

	resp := s.Execute(context.Background(), domain.Request{Content: "Send this to bob@example.com: the report is ready."})
	require.True(t, resp.OK(), resp.Message)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, domain.Email{
		To:      "bob@example.com",
		Subject: "Message for bob@example.com",
		Body:    "the report is ready.",
	}, mailer.sent[0])

	resp = s.Execute(context.Background(), domain.Request{Content: "just some text"})
	assert.Equal(t, "missing argument: to", resp.Message)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("first.last+tag@mail.example.co.uk"))
	assert.True(t, ValidEmail("o'brien@example.com"))
	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("no-at-sign.example.com"))
	assert.False(t, ValidEmail("a@@b.com"))
}
