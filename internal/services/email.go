package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/gomail.v2"

	"clinic_app_echo/internal/config"
)

type EmailService struct {
	host     string
	port     int
	user     string
	password string
	from     string
	send     func(m *gomail.Message) error
}

func NewEmailService(cfg *config.Config) *EmailService {
	s := &EmailService{
		host:     cfg.SMTPHost,
		port:     cast.ToInt(cfg.SMTPPort),
		user:     cfg.SMTPUser,
		password: cfg.SMTPPass,
		from:     cfg.EmailFrom,
	}
	s.send = func(m *gomail.Message) error {
		return gomail.NewDialer(s.host, s.port, s.user, s.password).DialAndSend(m)
	}
	return s
}

// Configured reports whether SMTP credentials are present
func (s *EmailService) Configured() bool {
	return s.host != "" && s.port > 0 && s.user != "" && s.password != ""
}

func (s *EmailService) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if !s.Configured() {
		return errors.New("SMTP credentials not fully configured")
	}
	if len(to) == 0 {
		return errors.New("no email recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.send(m); err != nil {
		return errors.Wrap(err, "failed to send email")
	}
	return nil
}
