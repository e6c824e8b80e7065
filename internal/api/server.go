package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"mediplus/internal/auth"
	"mediplus/internal/fhir"
	"mediplus/internal/middleware"
	"mediplus/internal/scheduler"
	"mediplus/internal/vitals"
	"mediplus/pkg/models"
)

// Store is the persistence the handlers use.
type Store interface {
	Ping(ctx context.Context) error

	CreatePatient(ctx context.Context, u *models.User, p *models.Profile) error
	CreateDoctor(ctx context.Context, u *models.User, d *models.Doctor) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error

	ListVitals(ctx context.Context, userID uuid.UUID, limit int) ([]models.Vital, error)
	LatestVital(ctx context.Context, userID uuid.UUID) (*models.Vital, error)

	CreateMedication(ctx context.Context, m *models.Medication) error
	ListMedications(ctx context.Context, userID uuid.UUID) ([]models.Medication, error)
	GetMedication(ctx context.Context, id, userID uuid.UUID) (*models.Medication, error)
	CreateSchedule(ctx context.Context, s *models.MedicationSchedule) error
	GetSchedule(ctx context.Context, id, userID uuid.UUID) (*models.MedicationSchedule, error)
	ListSchedules(ctx context.Context, userID uuid.UUID) ([]models.MedicationSchedule, error)
	UpdateSchedule(ctx context.Context, s *models.MedicationSchedule) error
	DeleteSchedule(ctx context.Context, id, userID uuid.UUID) error
	InsertMedicationLog(ctx context.Context, l *models.MedicationLog) error
	HasTakenSince(ctx context.Context, userID, scheduleID uuid.UUID, since time.Time) (bool, error)

	UpsertFCMToken(ctx context.Context, userID uuid.UUID, token, deviceType string) error

	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*models.Doctor, error)
	CreateRelationship(ctx context.Context, rel *models.DoctorPatientRelationship) error
	ListPatientsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.Profile, error)
	IsDoctorOfPatient(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)

	CreateAlertRule(ctx context.Context, r *models.AlertRule) error
	ListAlertRules(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]models.AlertRule, error)
	DeactivateAlertRule(ctx context.Context, ruleID, patientID uuid.UUID) error
}

type VitalsService interface {
	LogReading(ctx context.Context, userID uuid.UUID, v *models.Vital) (*vitals.LogResult, error)
	SOSAlert(ctx context.Context, userID uuid.UUID, temperature, heartRate float64) (*vitals.SOSResult, error)
}

type Importer interface {
	Import(ctx context.Context, userID uuid.UUID, fhirID string) (*fhir.Record, error)
}

type ReminderRunner interface {
	Run(ctx context.Context, now time.Time) (*scheduler.Report, error)
}

type RuleChecker interface {
	Check(expression string) error
	Forget(ruleID uuid.UUID)
}

type LiveFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID)
	ActiveClients() int
}

type TokenService interface {
	Issue(userID uuid.UUID, role, email string) (string, error)
	Parse(token string) (*auth.Claims, error)
}

// Availability reports which optional delivery providers are configured.
type Availability struct {
	Firebase bool `json:"firebase"`
	Email    bool `json:"email"`
	SMS      bool `json:"sms"`
}

type Deps struct {
	Store        Store
	Tokens       TokenService
	Vitals       VitalsService
	Importer     Importer
	Reminders    ReminderRunner
	Rules        RuleChecker
	Hub          LiveFeed
	Availability Availability
	WorkerNames  func() []string
	Location     *time.Location
	CronSecret   string
	CORSOrigin   string
	Logger       zerolog.Logger
}

type Server struct {
	store     Store
	tokens    TokenService
	vitals    VitalsService
	importer  Importer
	reminders ReminderRunner
	rules     RuleChecker
	hub       LiveFeed
	avail     Availability
	workers   func() []string
	loc       *time.Location
	cron      string
	cors      string
	log       zerolog.Logger
	startTime time.Time
	now       func() time.Time
}

func NewServer(d Deps) *Server {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.WorkerNames == nil {
		d.WorkerNames = func() []string { return []string{} }
	}
	return &Server{
		store:     d.Store,
		tokens:    d.Tokens,
		vitals:    d.Vitals,
		importer:  d.Importer,
		reminders: d.Reminders,
		rules:     d.Rules,
		hub:       d.Hub,
		avail:     d.Availability,
		workers:   d.WorkerNames,
		loc:       d.Location,
		cron:      d.CronSecret,
		cors:      d.CORSOrigin,
		log:       d.Logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Handler builds the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	api.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/auth/doctor-signup", s.handleDoctorSignup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	cron := api.PathPrefix("/cron").Subrouter()
	cron.Use(middleware.CronSecret(s.cron))
	cron.HandleFunc("/check-medications", s.handleCheckMedications).Methods(http.MethodGet, http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.Auth(s.tokens))
	authed.HandleFunc("/notifications/subscribe", s.handleSubscribe).Methods(http.MethodPost)

	doctor := authed.PathPrefix("/doctor").Subrouter()
	doctor.Use(middleware.RequireRole(models.RoleDoctor))
	doctor.HandleFunc("/patients", s.handleListPatients).Methods(http.MethodGet)
	doctor.HandleFunc("/patients", s.handleAddPatient).Methods(http.MethodPost)
	doctor.HandleFunc("/patients/{patientId}/rules", s.handleListRules).Methods(http.MethodGet)
	doctor.HandleFunc("/patients/{patientId}/rules", s.handleCreateRule).Methods(http.MethodPost)
	doctor.HandleFunc("/patients/{patientId}/rules/{ruleId}", s.handleDeleteRule).Methods(http.MethodDelete)
	doctor.HandleFunc("/ws", s.handleDoctorWS).Methods(http.MethodGet)

	patient := authed.NewRoute().Subrouter()
	patient.Use(middleware.RequireRole(models.RolePatient))
	patient.HandleFunc("/profile", s.handleGetProfile).Methods(http.MethodGet)
	patient.HandleFunc("/profile", s.handleUpdateProfile).Methods(http.MethodPut)
	patient.HandleFunc("/vitals", s.handleLogVital).Methods(http.MethodPost)
	patient.HandleFunc("/vitals", s.handleListVitals).Methods(http.MethodGet)
	patient.HandleFunc("/vitals/sos-alert", s.handleSOSAlert).Methods(http.MethodPost)
	patient.HandleFunc("/medications", s.handleListMedications).Methods(http.MethodGet)
	patient.HandleFunc("/medications", s.handleCreateMedication).Methods(http.MethodPost)
	patient.HandleFunc("/medications/schedules", s.handleListSchedules).Methods(http.MethodGet)
	patient.HandleFunc("/medications/schedules", s.handleCreateSchedule).Methods(http.MethodPost)
	patient.HandleFunc("/medications/schedules/{id}", s.handleUpdateSchedule).Methods(http.MethodPut)
	patient.HandleFunc("/medications/schedules/{id}", s.handleDeleteSchedule).Methods(http.MethodDelete)
	patient.HandleFunc("/medications/schedules/{id}/logs", s.handleLogMedication).Methods(http.MethodPost)
	patient.HandleFunc("/medications/schedules/{id}/due", s.handleScheduleDue).Methods(http.MethodGet)
	patient.HandleFunc("/fhir/import", s.handleFHIRImport).Methods(http.MethodPost)

	var h http.Handler = router
	h = middleware.CORS(s.cors)(h)
	h = middleware.RequestLogger(s.log)(h)
	return h
}
