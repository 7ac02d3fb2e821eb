package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dharsanguruparan/docdesk/internal/config"
)

func TestMessageValidate(t *testing.T) {
	ok := Message{From: "a@example.com", To: []string{"b@example.com"}}
	assert.NoError(t, ok.Validate())

	assert.Error(t, Message{To: []string{"b@example.com"}}.Validate())
	assert.Error(t, Message{From: "a@example.com"}.Validate())
	assert.Error(t, Message{From: "a@example.com", To: []string{""}}.Validate())
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	err := m.Send(context.Background(), Message{
		From:    "noreply@example.com",
		To:      []string{"owner@example.com"},
		Subject: "Hello",
		Body:    "body",
	})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "Hello", fields["subject"])
	assert.Equal(t, "mail", fields["component"])
}

func TestNewSelectsBackend(t *testing.T) {
	m, err := New(config.MailConfig{Backend: "log"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = New(config.MailConfig{Backend: "smtp", Host: "localhost", Port: 2525, TLS: "none", Timeout: 1}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	_, err = New(config.MailConfig{Backend: "fax"}, zap.NewNop())
	assert.Error(t, err)
}

func TestSMTPMailerValidatesBeforeDialing(t *testing.T) {
	m, err := NewSMTPMailer(config.MailConfig{Host: "localhost", Port: 2525, TLS: "none", Timeout: 1})
	require.NoError(t, err)
	err = m.Send(context.Background(), Message{From: "a@example.com"})
	assert.ErrorContains(t, err, "no recipients")
}
