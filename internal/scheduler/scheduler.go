package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediplus/internal/medication"
	"mediplus/internal/push"
	"mediplus/internal/sms"
	"mediplus/pkg/models"
)

const (
	StatusSent            = "sent"
	StatusTaken           = "already_taken"
	StatusAlreadyNotified = "already_notified"
	StatusNoChannel       = "no_channel"
	StatusFailed          = "failed"

	ChannelPush = "push"
	ChannelSMS  = "sms"
)

type Store interface {
	ListActiveSchedulesForDay(ctx context.Context, weekday string) ([]models.MedicationSchedule, error)
	HasTakenSince(ctx context.Context, userID, scheduleID uuid.UUID, since time.Time) (bool, error)
	ClaimNotification(ctx context.Context, scheduleID, userID uuid.UUID, day time.Time) (bool, error)
	CompleteNotification(ctx context.Context, scheduleID uuid.UUID, day time.Time, channels []string) error
	ReleaseNotification(ctx context.Context, scheduleID uuid.UUID, day time.Time) error
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListFCMTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeleteFCMToken(ctx context.Context, token string) error
}

type PushSender interface {
	SendMedicationReminder(ctx context.Context, tokens []string, r push.Reminder) []*push.DeliveryResult
}

type SMSSender interface {
	Send(to, body string) (string, error)
}

// Result is the outcome for one due schedule.
type Result struct {
	ScheduleID     uuid.UUID `json:"scheduleId"`
	UserID         uuid.UUID `json:"userId"`
	MedicationName string    `json:"medicationName"`
	ScheduledTime  string    `json:"scheduledTime"`
	Status         string    `json:"status"`
	Channels       []string  `json:"channels,omitempty"`
	Error          string    `json:"error,omitempty"`
}

type Report struct {
	CheckedAt         time.Time `json:"checkedAt"`
	SchedulesChecked  int       `json:"schedulesChecked"`
	Due               int       `json:"due"`
	NotificationsSent int       `json:"notificationsSent"`
	Results           []Result  `json:"results"`
}

// Scheduler runs medication reminder passes. Push and SMS are optional.
type Scheduler struct {
	store Store
	push  PushSender
	sms   SMSSender
	loc   *time.Location
	log   zerolog.Logger
}

func NewScheduler(store Store, pushSender PushSender, smsSender SMSSender, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		store: store,
		push:  pushSender,
		sms:   smsSender,
		loc:   loc,
		log:   log.With().Str("component", "scheduler").Logger(),
	}
}

// Run performs one reminder pass at now. A schedule is notified at most once
// per local day; a claim whose delivery reached no channel is released so a
// later pass inside the due window retries it.
func (s *Scheduler) Run(ctx context.Context, now time.Time) (*Report, error) {
	local := now.In(s.loc)
	day := medication.WeekdayName(local)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)

	schedules, err := s.store.ListActiveSchedulesForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	report := &Report{CheckedAt: local, SchedulesChecked: len(schedules), Results: []Result{}}

	for _, sch := range schedules {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		decision, err := medication.Evaluate(medication.Schedule{
			ScheduledTime: sch.ScheduledTime,
			DaysOfWeek:    sch.DaysOfWeek,
			IsActive:      sch.IsActive,
		}, local)
		if err != nil {
			s.log.Warn().Err(err).Str("schedule_id", sch.ID.String()).Msg("⚠️ skipping malformed schedule")
			continue
		}
		if !decision.IsDue {
			continue
		}

		report.Due++
		res := s.process(ctx, sch, local, midnight)
		if res.Status == StatusSent {
			report.NotificationsSent++
		}
		report.Results = append(report.Results, res)
	}

	s.log.Info().
		Int("checked", report.SchedulesChecked).
		Int("due", report.Due).
		Int("sent", report.NotificationsSent).
		Msg("⏰ reminder pass finished")
	return report, nil
}

func (s *Scheduler) process(ctx context.Context, sch models.MedicationSchedule, local, midnight time.Time) Result {
	res := Result{
		ScheduleID:     sch.ID,
		UserID:         sch.UserID,
		MedicationName: sch.MedicationName,
		ScheduledTime:  sch.ScheduledTime,
	}
	fail := func(err error) Result {
		s.log.Error().Err(err).Str("schedule_id", sch.ID.String()).Msg("❌ reminder failed")
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}

	taken, err := s.store.HasTakenSince(ctx, sch.UserID, sch.ID, midnight)
	if err != nil {
		return fail(err)
	}
	if taken {
		res.Status = StatusTaken
		return res
	}

	claimed, err := s.store.ClaimNotification(ctx, sch.ID, sch.UserID, local)
	if err != nil {
		return fail(err)
	}
	if !claimed {
		res.Status = StatusAlreadyNotified
		return res
	}

	channels := s.deliver(ctx, sch)
	if len(channels) == 0 {
		if err := s.store.ReleaseNotification(ctx, sch.ID, local); err != nil {
			return fail(err)
		}
		res.Status = StatusNoChannel
		return res
	}

	if err := s.store.CompleteNotification(ctx, sch.ID, local, channels); err != nil {
		return fail(err)
	}
	s.log.Info().
		Str("schedule_id", sch.ID.String()).
		Strs("channels", channels).
		Msg("💊 medication reminder sent")
	res.Status = StatusSent
	res.Channels = channels
	return res
}

func (s *Scheduler) deliver(ctx context.Context, sch models.MedicationSchedule) []string {
	var channels []string

	if s.push != nil {
		tokens, err := s.store.ListFCMTokens(ctx, sch.UserID)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", sch.UserID.String()).Msg("failed to load fcm tokens")
		}
		if len(tokens) > 0 {
			r := push.Reminder{
				ScheduleID:     sch.ID.String(),
				MedicationName: sch.MedicationName,
				Dosage:         sch.Dosage,
				ScheduledTime:  sch.ScheduledTime,
			}
			delivered := false
			for _, dr := range s.push.SendMedicationReminder(ctx, tokens, r) {
				switch {
				case dr.Success:
					delivered = true
				case dr.InvalidToken:
					if err := s.store.DeleteFCMToken(ctx, dr.Token); err != nil {
						s.log.Warn().Err(err).Msg("failed to delete invalid fcm token")
					}
				}
			}
			if delivered {
				channels = append(channels, ChannelPush)
			}
		}
	}

	if s.sms != nil {
		profile, err := s.store.GetProfile(ctx, sch.UserID)
		switch {
		case err != nil:
			s.log.Error().Err(err).Str("user_id", sch.UserID.String()).Msg("failed to load profile")
		case profile.SMSRemindersEnabled && profile.Phone != nil && *profile.Phone != "":
			if _, err := s.sms.Send(*profile.Phone, sms.MedicationReminderText(sch.MedicationName)); err == nil {
				channels = append(channels, ChannelSMS)
			}
		}
	}

	return channels
}
