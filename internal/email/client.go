package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"mediplus/internal/config"
)

// Content is a rendered email ready to send.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

type EmailService struct {
	fromName  string
	fromEmail string
	dialer    *gomail.Dialer
}

func NewEmailService(cfg *config.Config) (*EmailService, error) {
	if !cfg.SMTPConfigured() {
		return nil, fmt.Errorf("SMTP credentials not configured")
	}

	dialer := gomail.NewDialer(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUsername,
		cfg.SMTPPassword,
	)

	fromEmail := cfg.SMTPFromEmail
	if fromEmail == "" {
		fromEmail = cfg.SMTPUsername
	}

	return &EmailService{
		fromName:  cfg.SMTPFromName,
		fromEmail: fromEmail,
		dialer:    dialer,
	}, nil
}

func (s *EmailService) buildMessage(to string, c Content, highPriority bool) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromEmail, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", c.Subject)
	if highPriority {
		m.SetHeader("X-Priority", "1")
		m.SetHeader("X-MSMail-Priority", "High")
		m.SetHeader("Importance", "high")
	}

	if c.Text != "" {
		m.SetBody("text/plain", c.Text)
		m.AddAlternative("text/html", c.HTML)
	} else {
		m.SetBody("text/html", c.HTML)
	}
	return m
}

func (s *EmailService) Send(to string, c Content, highPriority bool) error {
	if err := s.dialer.DialAndSend(s.buildMessage(to, c, highPriority)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
