package push

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// messageSender is the subset of *messaging.Client the service uses.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FirebaseService struct {
	client messageSender
	log    zerolog.Logger
}

type DeliveryResult struct {
	Token        string
	Success      bool
	MessageID    string
	Error        error
	InvalidToken bool
	SentAt       time.Time
}

// Reminder describes one due medication.
type Reminder struct {
	ScheduleID     string
	MedicationName string
	Dosage         string
	ScheduledTime  string
}

// CriticalAlert describes a critical reading for a doctor's devices.
type CriticalAlert struct {
	PatientID   string
	PatientName string
	AlertType   string
	Reason      string
}

// NewFirebaseService initializes the Firebase app and its FCM client.
func NewFirebaseService(ctx context.Context, credentialsPath string, log zerolog.Logger) (*FirebaseService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not configured")
	}

	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}

	log.Info().Msg("✅ Firebase service initialized successfully")
	return newFirebaseService(client, log), nil
}

func newFirebaseService(client messageSender, log zerolog.Logger) *FirebaseService {
	return &FirebaseService{client: client, log: log.With().Str("component", "push").Logger()}
}

func MedicationReminderMessage(token string, r Reminder) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "💊 Medication Reminder",
			Body:  fmt.Sprintf("Time to take your %s (%s)", r.MedicationName, r.Dosage),
		},
		Data: map[string]string{
			"medicationId":   r.ScheduleID,
			"medicationName": r.MedicationName,
			"scheduledTime":  r.ScheduledTime,
			"type":           "medication_reminder",
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:        "default",
				ChannelID:    "medication_reminders",
				DefaultSound: true,
			},
		},
	}
}

func CriticalAlertMessage(token string, a CriticalAlert) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "🚨 Critical Vitals Alert",
			Body:  fmt.Sprintf("%s needs attention: %s", a.PatientName, a.Reason),
		},
		Data: map[string]string{
			"type":      "critical_vitals",
			"patientId": a.PatientID,
			"alertType": a.AlertType,
			"reason":    a.Reason,
			"priority":  "high",
			"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:        "alert",
				Priority:     messaging.PriorityHigh,
				ChannelID:    "critical_alerts",
				DefaultSound: true,
				Color:        "#FF0000",
			},
		},
	}
}

func (s *FirebaseService) send(ctx context.Context, message *messaging.Message) *DeliveryResult {
	result := &DeliveryResult{Token: message.Token, SentAt: time.Now()}
	if message.Token == "" {
		result.Error = fmt.Errorf("device token is empty")
		return result
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		result.Error = fmt.Errorf("error sending push: %w", err)
		result.InvalidToken = IsInvalidTokenError(err)
		s.log.Warn().Err(err).Bool("invalid_token", result.InvalidToken).Str("type", message.Data["type"]).Msg("❌ push failed")
		return result
	}

	result.Success = true
	result.MessageID = response
	s.log.Debug().Str("message_id", response).Str("type", message.Data["type"]).Msg("🚀 push sent")
	return result
}

// SendMedicationReminder sends the reminder to every device of the patient.
func (s *FirebaseService) SendMedicationReminder(ctx context.Context, tokens []string, r Reminder) []*DeliveryResult {
	results := make([]*DeliveryResult, 0, len(tokens))
	for _, token := range tokens {
		results = append(results, s.send(ctx, MedicationReminderMessage(token, r)))
	}
	return results
}

// SendCriticalAlert notifies each of a doctor's devices about a patient.
func (s *FirebaseService) SendCriticalAlert(ctx context.Context, tokens []string, a CriticalAlert) []*DeliveryResult {
	results := make([]*DeliveryResult, 0, len(tokens))
	for _, token := range tokens {
		results = append(results, s.send(ctx, CriticalAlertMessage(token, a)))
	}
	return results
}

// IsInvalidTokenError reports whether FCM rejected the token for good.
func IsInvalidTokenError(err error) bool {
	return messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsSenderIDMismatch(err)
}
