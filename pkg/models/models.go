package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Profile struct {
	ID                           uuid.UUID  `json:"id"`
	Name                         string     `json:"name"`
	Email                        string     `json:"email"`
	Phone                        *string    `json:"phone,omitempty"`
	DateOfBirth                  *time.Time `json:"date_of_birth,omitempty"`
	Gender                       *string    `json:"gender,omitempty"`
	BloodType                    *string    `json:"blood_type,omitempty"`
	HeightCm                     *float64   `json:"height_cm,omitempty"`
	WeightKg                     *float64   `json:"weight_kg,omitempty"`
	MedicalConditions            []string   `json:"medical_conditions"`
	Allergies                    []string   `json:"allergies"`
	EmergencyContactName         *string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone        *string    `json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelationship *string    `json:"emergency_contact_relationship,omitempty"`
	CaretakerName                *string    `json:"caretaker_name,omitempty"`
	Relation                     *string    `json:"relation,omitempty"`
	FHIRID                       *string    `json:"fhir_id,omitempty"`
	SMSRemindersEnabled          bool       `json:"sms_reminders_enabled"`
	CreatedAt                    time.Time  `json:"created_at"`
	UpdatedAt                    time.Time  `json:"updated_at"`
}

type Doctor struct {
	ID                  uuid.UUID `json:"id"`
	UserID              uuid.UUID `json:"user_id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	LicenseNumber       string    `json:"license_number"`
	Specialization      *string   `json:"specialization,omitempty"`
	HospitalAffiliation *string   `json:"hospital_affiliation,omitempty"`
	Phone               *string   `json:"phone,omitempty"`
	IsVerified          bool      `json:"is_verified"`
	CreatedAt           time.Time `json:"created_at"`
}

type DoctorPatientRelationship struct {
	ID               uuid.UUID `json:"id"`
	DoctorID         uuid.UUID `json:"doctor_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	RelationshipType string    `json:"relationship_type"`
	CreatedBy        uuid.UUID `json:"created_by"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

const (
	SourceManual     = "manual"
	SourceDevice     = "device"
	SourceFHIRImport = "fhir_import"
)

// Vital is one stored measurement. Every reading is optional because FHIR
// imports arrive one observation at a time.
type Vital struct {
	ID                     uuid.UUID `json:"id"`
	UserID                 uuid.UUID `json:"user_id"`
	TemperatureCelsius     *float64  `json:"temperature_celsius,omitempty"`
	HeartRateBPM           *float64  `json:"heart_rate_bpm,omitempty"`
	OxygenLevelPercent     *float64  `json:"oxygen_level_percent,omitempty"`
	BloodPressureSystolic  *float64  `json:"blood_pressure_systolic,omitempty"`
	BloodPressureDiastolic *float64  `json:"blood_pressure_diastolic,omitempty"`
	WeightKg               *float64  `json:"weight_kg,omitempty"`
	HumidityPercent        *float64  `json:"humidity_percent,omitempty"`
	MeasurementSource      string    `json:"measurement_source"`
	DeviceID               *string   `json:"device_id,omitempty"`
	FHIRObservationID      *string   `json:"fhir_observation_id,omitempty"`
	Notes                  *string   `json:"notes,omitempty"`
	RecordedAt             time.Time `json:"recorded_at"`
	CreatedAt              time.Time `json:"created_at"`
}

const (
	AlertKindThreshold = "threshold"
	AlertKindRule      = "rule"
)

type VitalAlert struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	VitalID   *uuid.UUID `json:"vital_id,omitempty"`
	AlertType string     `json:"alert_type"`
	Kind      string     `json:"kind"`
	Channels  []string   `json:"channels"`
	Delivered bool       `json:"delivered"`
	CreatedAt time.Time  `json:"created_at"`
}

type Medication struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Name             string    `json:"name"`
	Dosage           string    `json:"dosage"`
	Frequency        string    `json:"frequency"`
	FrequencyTimes   int       `json:"frequency_times"`
	StartDate        time.Time `json:"start_date"`
	IsActive         bool      `json:"is_active"`
	PrescribedBy     *string   `json:"prescribed_by,omitempty"`
	FHIRMedicationID *string   `json:"fhir_medication_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type MedicationSchedule struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	MedicationID   *uuid.UUID `json:"medication_id,omitempty"`
	MedicationName string     `json:"medication_name"`
	Dosage         string     `json:"dosage"`
	ScheduledTime  string     `json:"scheduled_time"`
	DaysOfWeek     []string   `json:"days_of_week"`
	Notes          *string    `json:"notes,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

const (
	LogTaken   = "taken"
	LogSkipped = "skipped"
	LogMissed  = "missed"
)

type MedicationLog struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
	Status     string    `json:"status"`
	Notes      *string   `json:"notes,omitempty"`
	LoggedAt   time.Time `json:"logged_at"`
}

type FCMToken struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Token      string    `json:"token"`
	DeviceType string    `json:"device_type"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type AlertRule struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	Severity   string    `json:"severity"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
