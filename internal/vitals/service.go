package vitals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediplus/internal/alertrules"
	"mediplus/internal/email"
	"mediplus/internal/push"
	"mediplus/internal/signaling"
	"mediplus/internal/sms"
	"mediplus/pkg/models"
)

const (
	ChannelEmail     = "email"
	ChannelSMS       = "sms"
	ChannelWebsocket = "websocket"
	ChannelPush      = "push"

	sosDeviceID = "sos_alert_system"

	// Stand-ins for a reading that was not taken. Both sit well inside the
	// normal range so the missing vital never triggers an alert.
	normalTemperature = 37.0
	normalHeartRate   = 75.0
)

var ErrAlertDelivery = errors.New("critical vitals detected but failed to send email")

type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	InsertVital(ctx context.Context, v *models.Vital) error
	InsertAlert(ctx context.Context, a *models.VitalAlert) error
	CountAlertsSince(ctx context.Context, userID uuid.UUID, kind string, since time.Time) (int, error)
	ListDoctorUserIDsForPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
	ListAlertRules(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]models.AlertRule, error)
	ListFCMTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeleteFCMToken(ctx context.Context, token string) error
}

type EmailSender interface {
	SendSOSAlert(to string, data email.SOSData) error
}

type SMSSender interface {
	Send(to, body string) (string, error)
}

type PushSender interface {
	SendCriticalAlert(ctx context.Context, tokens []string, a push.CriticalAlert) []*push.DeliveryResult
}

type Broadcaster interface {
	Broadcast(userIDs []uuid.UUID, event signaling.Event) int
}

type RuleEvaluator interface {
	EvaluateAll(rules []models.AlertRule, v *models.Vital) ([]alertrules.Match, []error)
}

// Deps wires the service. Every delivery channel is optional. An alert is
// suppressed once more than MaxAlertsPerHour threshold alerts were delivered
// in the last hour.
type Deps struct {
	Store            Store
	Email            EmailSender
	SMS              SMSSender
	Push             PushSender
	Hub              Broadcaster
	Rules            RuleEvaluator
	MaxAlertsPerHour int
	Logger           zerolog.Logger
}

// Service stores readings and fans out critical alerts.
type Service struct {
	store    Store
	email    EmailSender
	sms      SMSSender
	push     PushSender
	hub      Broadcaster
	rules    RuleEvaluator
	maxAlert int
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.MaxAlertsPerHour <= 0 {
		d.MaxAlertsPerHour = 3
	}
	return &Service{
		store:    d.Store,
		email:    d.Email,
		sms:      d.SMS,
		push:     d.Push,
		hub:      d.Hub,
		rules:    d.Rules,
		maxAlert: d.MaxAlertsPerHour,
		log:      d.Logger.With().Str("component", "vitals").Logger(),
		now:      time.Now,
	}
}

// AlertOutcome reports what happened to a critical classification.
type AlertOutcome struct {
	AlertSent  bool     `json:"alertSent"`
	Suppressed bool     `json:"suppressed"`
	Channels   []string `json:"channels"`
	Message    string   `json:"message"`
}

type LogResult struct {
	Vital          *models.Vital      `json:"vital"`
	Classification *Classification    `json:"classification"`
	Alert          *AlertOutcome      `json:"alert"`
	RuleMatches    []alertrules.Match `json:"ruleMatches"`
}

type SOSResult struct {
	Message   string    `json:"message"`
	Critical  bool      `json:"critical"`
	AlertSent *bool     `json:"alertSent,omitempty"`
	AlertType AlertType `json:"alertType,omitempty"`
}

// ClassifyReading classifies a stored reading. A missing temperature or
// heart rate is treated as normal; nil is returned when neither was taken.
func ClassifyReading(v *models.Vital) *Classification {
	if v.TemperatureCelsius == nil && v.HeartRateBPM == nil {
		return nil
	}
	temp, hr := normalTemperature, normalHeartRate
	if v.TemperatureCelsius != nil {
		temp = *v.TemperatureCelsius
	}
	if v.HeartRateBPM != nil {
		hr = *v.HeartRateBPM
	}
	c := Classify(temp, hr)
	return &c
}

// LogReading stores a reading, alerts on a critical classification and
// evaluates the patient's alert rules.
func (s *Service) LogReading(ctx context.Context, userID uuid.UUID, v *models.Vital) (*LogResult, error) {
	v.UserID = userID
	if v.RecordedAt.IsZero() {
		v.RecordedAt = s.now()
	}
	if err := s.store.InsertVital(ctx, v); err != nil {
		return nil, err
	}

	result := &LogResult{Vital: v, Classification: ClassifyReading(v), RuleMatches: []alertrules.Match{}}

	var profile *models.Profile
	loadProfile := func() (*models.Profile, error) {
		if profile != nil {
			return profile, nil
		}
		p, err := s.store.GetProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		profile = p
		return p, nil
	}

	if result.Classification != nil && result.Classification.IsCritical {
		p, err := loadProfile()
		if err != nil {
			return nil, err
		}
		outcome, err := s.alert(ctx, p, v, *result.Classification)
		if err != nil && !errors.Is(err, ErrAlertDelivery) {
			return nil, err
		}
		result.Alert = outcome
	}

	if s.rules != nil {
		matches, err := s.evaluateRules(ctx, userID, v, loadProfile)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", userID.String()).Msg("rule evaluation failed")
		}
		result.RuleMatches = matches
	}

	return result, nil
}

// SOSAlert classifies an ad-hoc reading and emails the patient when it is
// critical. The reading is only stored once the email went out.
func (s *Service) SOSAlert(ctx context.Context, userID uuid.UUID, temperature, heartRate float64) (*SOSResult, error) {
	c := Classify(temperature, heartRate)
	if !c.IsCritical {
		return &SOSResult{Message: "Vitals are within normal range", Critical: false}, nil
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	v := &models.Vital{
		UserID:             userID,
		TemperatureCelsius: &temperature,
		HeartRateBPM:       &heartRate,
		MeasurementSource:  models.SourceDevice,
		RecordedAt:         s.now(),
	}
	deviceID := sosDeviceID
	v.DeviceID = &deviceID

	outcome, err := s.alert(ctx, profile, v, c)
	sent := outcome != nil && outcome.AlertSent
	res := &SOSResult{Critical: true, AlertSent: &sent, AlertType: c.AlertType}

	switch {
	case errors.Is(err, ErrAlertDelivery):
		res.Message = ErrAlertDelivery.Error()
		return res, err
	case err != nil:
		return nil, err
	case outcome.Suppressed:
		res.Message = outcome.Message
		res.AlertType = AlertNone
	default:
		res.Message = "Critical vitals detected - SOS email sent"
	}
	return res, nil
}

// alert applies the hourly limit, delivers on every configured channel and
// records the attempt. A reading without an id is stored once the patient
// email succeeds. ErrAlertDelivery means the patient email failed.
func (s *Service) alert(ctx context.Context, p *models.Profile, v *models.Vital, c Classification) (*AlertOutcome, error) {
	since := s.now().Add(-time.Hour)
	recent, err := s.store.CountAlertsSince(ctx, p.ID, models.AlertKindThreshold, since)
	if err != nil {
		return nil, err
	}
	if recent > s.maxAlert {
		s.log.Info().Str("user_id", p.ID.String()).Int("recent", recent).Msg("critical alert suppressed")
		s.recordAlert(ctx, p.ID, v, string(c.AlertType), models.AlertKindThreshold, nil, false)
		return &AlertOutcome{Suppressed: true, Channels: []string{}, Message: "Recent alerts already sent"}, nil
	}

	temp, hr := readingValues(v)
	data := email.SOSData{
		UserName:    p.Name,
		Temperature: temp,
		HeartRate:   hr,
		AlertType:   string(c.AlertType),
		Timestamp:   s.now(),
	}

	channels := []string{}
	var emailErr error
	if s.email == nil {
		emailErr = errors.New("email not configured")
	} else {
		emailErr = s.email.SendSOSAlert(p.Email, data)
	}

	if emailErr == nil {
		channels = append(channels, ChannelEmail)
		if v.ID == uuid.Nil {
			notes := fmt.Sprintf("CRITICAL ALERT: %s - SOS email sent to %s", c.AlertType, p.Email)
			v.Notes = &notes
			if err := s.store.InsertVital(ctx, v); err != nil {
				return nil, err
			}
		}
	} else {
		s.log.Error().Err(emailErr).Str("user_id", p.ID.String()).Msg("❌ SOS email failed")
	}

	if s.sms != nil && p.EmergencyContactPhone != nil && *p.EmergencyContactPhone != "" {
		text := sms.CriticalAlertText(p.Name, email.AlertDetails(data))
		if _, err := s.sms.Send(*p.EmergencyContactPhone, text); err == nil {
			channels = append(channels, ChannelSMS)
		}
	}

	channels = append(channels, s.notifyDoctors(ctx, p, v, c)...)

	delivered := len(channels) > 0
	s.recordAlert(ctx, p.ID, v, string(c.AlertType), models.AlertKindThreshold, channels, delivered)

	outcome := &AlertOutcome{AlertSent: emailErr == nil, Channels: channels}
	if emailErr != nil {
		outcome.Message = ErrAlertDelivery.Error()
		return outcome, ErrAlertDelivery
	}
	outcome.Message = "Critical vitals detected - SOS email sent"
	return outcome, nil
}

func (s *Service) notifyDoctors(ctx context.Context, p *models.Profile, v *models.Vital, c Classification) []string {
	if s.hub == nil && s.push == nil {
		return nil
	}

	doctors, err := s.store.ListDoctorUserIDsForPatient(ctx, p.ID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", p.ID.String()).Msg("failed to load doctors")
		return nil
	}
	if len(doctors) == 0 {
		return nil
	}

	var channels []string
	if s.hub != nil {
		n := s.hub.Broadcast(doctors, signaling.Event{
			Type:        signaling.EventCriticalVitals,
			PatientID:   p.ID,
			PatientName: p.Name,
			Data: map[string]any{
				"alertType":      c.AlertType,
				"classification": c,
				"vital":          v,
			},
		})
		if n > 0 {
			channels = append(channels, ChannelWebsocket)
		}
	}

	if s.push != nil {
		alert := push.CriticalAlert{
			PatientID:   p.ID.String(),
			PatientName: p.Name,
			AlertType:   string(c.AlertType),
			Reason:      Reason(v),
		}
		pushed := false
		for _, doctorID := range doctors {
			tokens, err := s.store.ListFCMTokens(ctx, doctorID)
			if err != nil || len(tokens) == 0 {
				continue
			}
			for _, r := range s.push.SendCriticalAlert(ctx, tokens, alert) {
				if r.Success {
					pushed = true
				} else if r.InvalidToken {
					s.pruneToken(ctx, r.Token)
				}
			}
		}
		if pushed {
			channels = append(channels, ChannelPush)
		}
	}
	return channels
}

func (s *Service) evaluateRules(ctx context.Context, userID uuid.UUID, v *models.Vital, loadProfile func() (*models.Profile, error)) ([]alertrules.Match, error) {
	rules, err := s.store.ListAlertRules(ctx, userID, true)
	if err != nil {
		return []alertrules.Match{}, err
	}
	if len(rules) == 0 {
		return []alertrules.Match{}, nil
	}

	matches, errs := s.rules.EvaluateAll(rules, v)
	for _, e := range errs {
		s.log.Debug().Err(e).Str("user_id", userID.String()).Msg("rule did not evaluate")
	}
	if len(matches) == 0 {
		return []alertrules.Match{}, nil
	}

	var doctors []uuid.UUID
	var name string
	if s.hub != nil {
		if p, err := loadProfile(); err == nil {
			name = p.Name
		}
		doctors, err = s.store.ListDoctorUserIDsForPatient(ctx, userID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to load doctors")
		}
	}

	for _, m := range matches {
		var channels []string
		if len(doctors) > 0 {
			n := s.hub.Broadcast(doctors, signaling.Event{
				Type:        signaling.EventRuleMatch,
				PatientID:   userID,
				PatientName: name,
				Data:        map[string]any{"rule": m, "vital": v},
			})
			if n > 0 {
				channels = append(channels, ChannelWebsocket)
			}
		}
		s.recordAlert(ctx, userID, v, m.RuleName, models.AlertKindRule, channels, len(channels) > 0)
	}
	return matches, nil
}

func (s *Service) recordAlert(ctx context.Context, userID uuid.UUID, v *models.Vital, alertType, kind string, channels []string, delivered bool) {
	a := &models.VitalAlert{
		UserID:    userID,
		AlertType: alertType,
		Kind:      kind,
		Channels:  channels,
		Delivered: delivered,
	}
	if v != nil && v.ID != uuid.Nil {
		id := v.ID
		a.VitalID = &id
	}
	if err := s.store.InsertAlert(ctx, a); err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to record alert")
	}
}

func (s *Service) pruneToken(ctx context.Context, token string) {
	if err := s.store.DeleteFCMToken(ctx, token); err != nil {
		s.log.Warn().Err(err).Msg("failed to delete invalid fcm token")
	}
}

func readingValues(v *models.Vital) (temp, hr float64) {
	if v.TemperatureCelsius != nil {
		temp = *v.TemperatureCelsius
	}
	if v.HeartRateBPM != nil {
		hr = *v.HeartRateBPM
	}
	return temp, hr
}

// Reason summarises the critical readings for short notifications.
func Reason(v *models.Vital) string {
	var parts []string
	if v.TemperatureCelsius != nil {
		parts = append(parts, "temperature "+strconv.FormatFloat(*v.TemperatureCelsius, 'f', -1, 64)+"°C")
	}
	if v.HeartRateBPM != nil {
		parts = append(parts, "heart rate "+strconv.FormatFloat(*v.HeartRateBPM, 'f', -1, 64)+" bpm")
	}
	return strings.Join(parts, ", ")
}
