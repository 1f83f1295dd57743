package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"clinic_app_echo/internal/config"
)

func TestSendEmail(t *testing.T) {
	svc := NewEmailService(&config.Config{
		SMTPHost:  "smtp.clinic.test",
		SMTPPort:  "587",
		SMTPUser:  "mailer",
		SMTPPass:  "secret",
		EmailFrom: "clinic@clinic.test",
	})
	assert.Equal(t, 587, svc.port)

	var sent *gomail.Message
	svc.send = func(m *gomail.Message) error {
		sent = m
		return nil
	}

	err := svc.SendEmail(context.Background(), []string{"owner@clinic.test", "ops@clinic.test"}, "Daily summary", "Income: 350")
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, []string{"owner@clinic.test", "ops@clinic.test"}, sent.GetHeader("To"))
	assert.Equal(t, []string{"Daily summary"}, sent.GetHeader("Subject"))
	assert.Equal(t, []string{"clinic@clinic.test"}, sent.GetHeader("From"))

	var buf bytes.Buffer
	_, err = sent.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Income: 350")
}

func TestSendEmailNotConfigured(t *testing.T) {
	svc := NewEmailService(&config.Config{SMTPPort: "587"})
	assert.False(t, svc.Configured())
	assert.Error(t, svc.SendEmail(context.Background(), []string{"owner@clinic.test"}, "s", "b"))
}
