package email

import (
	"github.com/rs/zerolog"
)

// Sender delivers SOS alerts through SMTP and logs the outcome.
type Sender struct {
	svc *EmailService
	log zerolog.Logger
}

func NewSender(svc *EmailService, log zerolog.Logger) *Sender {
	return &Sender{svc: svc, log: log.With().Str("component", "email").Logger()}
}

func (s *Sender) SendSOSAlert(to string, data SOSData) error {
	content := RenderSOS(data)

	if err := s.svc.Send(to, content, true); err != nil {
		s.log.Error().Err(err).Str("to", to).Str("alert_type", data.AlertType).Msg("❌ failed to send SOS email")
		return err
	}

	s.log.Info().Str("to", to).Str("alert_type", data.AlertType).Msg("📧 SOS email sent")
	return nil
}
