package sms

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"mediplus/internal/config"
)

// messageCreator is the subset of the Twilio REST API the service uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioService struct {
	api  messageCreator
	from string
	log  zerolog.Logger
}

func NewTwilioService(cfg *config.Config, log zerolog.Logger) (*TwilioService, error) {
	if !cfg.TwilioConfigured() {
		return nil, fmt.Errorf("SMS service not configured")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return newTwilioService(client.Api, cfg.TwilioPhoneNumber, log), nil
}

func newTwilioService(api messageCreator, from string, log zerolog.Logger) *TwilioService {
	return &TwilioService{api: api, from: from, log: log.With().Str("component", "sms").Logger()}
}

// Send delivers one text message and returns the Twilio message SID.
func (s *TwilioService) Send(to, body string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("phone number and message are required")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		s.log.Error().Err(err).Str("to", maskPhone(to)).Msg("❌ failed to send SMS")
		return "", fmt.Errorf("failed to send SMS: %w", err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.log.Info().Str("to", maskPhone(to)).Str("sid", sid).Msg("📱 SMS sent")
	return sid, nil
}

func MedicationReminderText(medicationName string) string {
	return fmt.Sprintf("🏥 MediMe Reminder: Time to take your %s.\n\n"+
		"Don't forget to take your medication as prescribed.\n\n"+
		"Reply STOP to unsubscribe.", medicationName)
}

// CriticalAlertText is sent to the patient's emergency contact.
func CriticalAlertText(patientName, details string) string {
	return fmt.Sprintf("🚨 MediMe ALERT: %s has critical vital signs. %s Please check on them or contact emergency services.",
		patientName, strings.TrimSpace(strings.ReplaceAll(details, "\n", " ")))
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
