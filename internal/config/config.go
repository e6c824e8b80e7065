package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"mediplus/internal/medication"
)

type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string
	CORSOrigin  string

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	AutoMigrate    bool

	// Auth
	JWTSecret   string
	JWTTTLHours int
	CronSecret  string

	// Scheduler
	EnableScheduler           bool
	SchedulerInterval         int // minutes
	ReminderTimezone          string
	NotificationRetentionDays int

	// Firebase
	FirebaseCredentialsPath string

	// Twilio
	EnableSMS         bool
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// SMTP
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromName  string
	SMTPFromEmail string

	// Alerts
	SOSMaxAlertsPerHour int

	// FHIR
	FHIRBaseURL string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		CORSOrigin:  getEnvWithDefault("CORS_ORIGIN", "*"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 20),
		AutoMigrate:    getEnvBool("AUTO_MIGRATE", false),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 24),
		CronSecret:  os.Getenv("CRON_SECRET"),

		EnableScheduler:           getEnvBool("ENABLE_SCHEDULER", true),
		SchedulerInterval:         getEnvInt("SCHEDULER_INTERVAL", 1),
		ReminderTimezone:          getEnvWithDefault("REMINDER_TIMEZONE", "Local"),
		NotificationRetentionDays: getEnvInt("NOTIFICATION_RETENTION_DAYS", 30),

		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),

		EnableSMS:         getEnvBool("ENABLE_SMS", false),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),

		SMTPHost:      getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFromName:  getEnvWithDefault("SMTP_FROM_NAME", "MediPlus Health Alerts"),
		SMTPFromEmail: os.Getenv("SMTP_FROM_EMAIL"),

		SOSMaxAlertsPerHour: getEnvInt("SOS_MAX_ALERTS_PER_HOUR", 3),

		FHIRBaseURL: getEnvWithDefault("FHIR_BASE_URL", "https://hapi.fhir.org/baseR4"),
	}, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

// Location resolves ReminderTimezone. "Local" and "" mean the server zone.
func (c *Config) Location() (*time.Location, error) {
	if c.ReminderTimezone == "" || c.ReminderTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return nil, fmt.Errorf("REMINDER_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c *Config) SMTPConfigured() bool {
	return c.SMTPUsername != "" && c.SMTPPassword != ""
}

func (c *Config) TwilioConfigured() bool {
	return c.EnableSMS && c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

// Warnings lists settings that are accepted but likely wrong.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.EnableScheduler && c.SchedulerInterval > medication.DueWindowMinutes {
		warnings = append(warnings, fmt.Sprintf(
			"SCHEDULER_INTERVAL is %d minutes, longer than the %d minute due window; some reminders will be missed",
			c.SchedulerInterval, medication.DueWindowMinutes))
	}
	return warnings
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWTSecret == "" && !c.IsDev() {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}

	if c.SchedulerInterval < 1 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be at least 1 minute, got %d", c.SchedulerInterval)
	}

	if c.SOSMaxAlertsPerHour < 1 {
		return fmt.Errorf("SOS_MAX_ALERTS_PER_HOUR must be positive, got %d", c.SOSMaxAlertsPerHour)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}
