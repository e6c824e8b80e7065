package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mediplus")
	t.Setenv("PORT", "")
	t.Setenv("SCHEDULER_INTERVAL", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("ENABLE_SCHEDULER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SchedulerInterval != 1 {
		t.Errorf("SchedulerInterval = %d, want 1", cfg.SchedulerInterval)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
	if !cfg.EnableScheduler {
		t.Error("EnableScheduler should default to true")
	}
	if cfg.SOSMaxAlertsPerHour != 3 {
		t.Errorf("SOSMaxAlertsPerHour = %d, want 3", cfg.SOSMaxAlertsPerHour)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL", "5")
	t.Setenv("ENABLE_SMS", "yes")
	t.Setenv("AUTO_MIGRATE", "1")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.SchedulerInterval != 5 {
		t.Errorf("SchedulerInterval = %d, want 5", cfg.SchedulerInterval)
	}
	if !cfg.EnableSMS || !cfg.AutoMigrate {
		t.Errorf("EnableSMS = %v, AutoMigrate = %v, want both true", cfg.EnableSMS, cfg.AutoMigrate)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want fallback 587", cfg.SMTPPort)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabaseURL:         "postgres://localhost/mediplus",
			Environment:         "production",
			JWTSecret:           "secret",
			SchedulerInterval:   1,
			SOSMaxAlertsPerHour: 3,
			ReminderTimezone:    "UTC",
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"missing jwt secret in production", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"zero interval", func(c *Config) { c.SchedulerInterval = 0 }, "SCHEDULER_INTERVAL"},
		{"zero alert limit", func(c *Config) { c.SOSMaxAlertsPerHour = 0 }, "SOS_MAX_ALERTS_PER_HOUR"},
		{"bad timezone", func(c *Config) { c.ReminderTimezone = "Mars/Olympus" }, "REMINDER_TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.want)
			}
		})
	}

	dev := base()
	dev.Environment = "development"
	dev.JWTSecret = ""
	if err := dev.Validate(); err != nil {
		t.Errorf("development config without JWT_SECRET should validate: %v", err)
	}
}

func TestWarnings(t *testing.T) {
	cfg := &Config{EnableScheduler: true, SchedulerInterval: 15}
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("Warnings() = %v, want none at the window edge", w)
	}

	cfg.SchedulerInterval = 30
	w := cfg.Warnings()
	if len(w) != 1 || !strings.Contains(w[0], "SCHEDULER_INTERVAL") {
		t.Errorf("Warnings() = %v, want a SCHEDULER_INTERVAL warning", w)
	}

	cfg.EnableScheduler = false
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("Warnings() = %v, want none with the scheduler disabled", w)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{ReminderTimezone: "Local"}
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Location() = %v, %v; want time.Local", loc, err)
	}

	cfg.ReminderTimezone = "UTC"
	loc, err = cfg.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("Location() = %v, %v; want UTC", loc, err)
	}
}
