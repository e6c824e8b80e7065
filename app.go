package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mediplus/internal/alertrules"
	"mediplus/internal/api"
	"mediplus/internal/auth"
	"mediplus/internal/config"
	"mediplus/internal/database"
	"mediplus/internal/email"
	"mediplus/internal/fhir"
	"mediplus/internal/logger"
	"mediplus/internal/push"
	"mediplus/internal/scheduler"
	"mediplus/internal/signaling"
	"mediplus/internal/sms"
	"mediplus/internal/vitals"
	"mediplus/internal/workers"
)

const devJWTSecret = "mediplus-development-secret"

// app holds every long-lived dependency. Optional providers stay nil when
// they are not configured.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	db        *database.DB
	hub       *signaling.Hub
	scheduler *scheduler.Scheduler
	workers   *workers.WorkerManager
	server    *api.Server
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, log, fmt.Errorf("invalid config: %w", err)
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg("⚠️ " + w)
	}
	return cfg, log, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log.Info().Str("env", cfg.Environment).Msg("🚀 starting MediPlus")

	if cfg.AutoMigrate {
		applied, err := database.MigrateUp(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info().Bool("applied", applied).Msg("✅ migrations checked")
	}

	db, err := database.NewDB(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	loc, _ := cfg.Location()
	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn().Msg("⚠️ JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}
	tokens := auth.NewTokenIssuer(secret, time.Duration(cfg.JWTTTLHours)*time.Hour)

	hub := signaling.NewHub(log)
	engine, err := alertrules.NewEngine()
	if err != nil {
		db.Close()
		return nil, err
	}

	deps := vitals.Deps{
		Store:            db,
		Hub:              hub,
		Rules:            engine,
		MaxAlertsPerHour: cfg.SOSMaxAlertsPerHour,
		Logger:           log,
	}
	avail := api.Availability{}

	var pushSender scheduler.PushSender
	if cfg.FirebaseCredentialsPath != "" {
		fb, err := push.NewFirebaseService(ctx, cfg.FirebaseCredentialsPath, log)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Firebase not available")
		} else {
			pushSender = fb
			deps.Push = fb
			avail.Firebase = true
			log.Info().Msg("✅ Firebase initialized")
		}
	}

	if cfg.SMTPConfigured() {
		svc, err := email.NewEmailService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ email service not configured")
		} else {
			deps.Email = email.NewSender(svc, log)
			avail.Email = true
			log.Info().Msg("✅ email service initialized")
		}
	}

	var smsSender scheduler.SMSSender
	if cfg.TwilioConfigured() {
		tw, err := sms.NewTwilioService(cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Twilio not available")
		} else {
			smsSender = tw
			deps.SMS = tw
			avail.SMS = true
			log.Info().Msg("✅ Twilio initialized")
		}
	}

	sched := scheduler.NewScheduler(db, pushSender, smsSender, loc, log)

	wm := workers.NewWorkerManager(log)
	wm.RegisterWorker(workers.NewReminderWorker(sched, time.Duration(cfg.SchedulerInterval)*time.Minute))
	wm.RegisterWorker(workers.NewPruneWorker(db, cfg.NotificationRetentionDays, log))

	fhirClient := fhir.NewClient(cfg.FHIRBaseURL, &http.Client{Timeout: 30 * time.Second})

	server := api.NewServer(api.Deps{
		Store:        db,
		Tokens:       tokens,
		Vitals:       vitals.NewService(deps),
		Importer:     fhir.NewImporter(fhirClient, db, log),
		Reminders:    sched,
		Rules:        engine,
		Hub:          hub,
		Availability: avail,
		WorkerNames:  func() []string { return wm.GetStats().WorkerNames },
		Location:     loc,
		CronSecret:   cfg.CronSecret,
		CORSOrigin:   cfg.CORSOrigin,
		Logger:       log,
	})

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		hub:       hub,
		scheduler: sched,
		workers:   wm,
		server:    server,
	}, nil
}

func (a *app) Close() {
	a.hub.Close()
	if err := a.db.Close(); err != nil {
		a.log.Error().Err(err).Msg("failed to close database")
	}
}
