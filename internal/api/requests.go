package api

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediplus/internal/auth"
	"mediplus/internal/medication"
	"mediplus/pkg/models"
)

const dateLayout = "2006-01-02"

// validationError is reported to the client verbatim with a 400.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < auth.MinPasswordLength {
		return invalid("password must be at least %d characters", auth.MinPasswordLength)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

type signupRequest struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	Phone         *string `json:"phone"`
	CaretakerName *string `json:"caretakerName"`
	Relation      *string `json:"relation"`
	FHIRID        *string `json:"fhirId"`
}

func (r *signupRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	if r.Name == "" {
		return invalid("name is required")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return validatePassword(r.Password)
}

func (r *signupRequest) Profile() *models.Profile {
	return &models.Profile{
		Name:          r.Name,
		Phone:         trimmed(r.Phone),
		CaretakerName: trimmed(r.CaretakerName),
		Relation:      trimmed(r.Relation),
		FHIRID:        trimmed(r.FHIRID),
	}
}

type doctorSignupRequest struct {
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	Password            string  `json:"password"`
	LicenseNumber       string  `json:"licenseNumber"`
	Specialization      *string `json:"specialization"`
	HospitalAffiliation *string `json:"hospitalAffiliation"`
	Phone               *string `json:"phone"`
}

func (r *doctorSignupRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	r.LicenseNumber = strings.TrimSpace(r.LicenseNumber)
	if r.Name == "" {
		return invalid("name is required")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validatePassword(r.Password); err != nil {
		return err
	}
	if r.LicenseNumber == "" {
		return invalid("license number is required")
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) Validate() error {
	r.Email = normalizeEmail(r.Email)
	if r.Email == "" || r.Password == "" {
		return invalid("email and password are required")
	}
	return nil
}

// profileUpdateRequest carries a partial update; nil fields are left alone.
type profileUpdateRequest struct {
	Name                         *string   `json:"name"`
	Phone                        *string   `json:"phone"`
	DateOfBirth                  *string   `json:"dateOfBirth"`
	Gender                       *string   `json:"gender"`
	BloodType                    *string   `json:"bloodType"`
	HeightCm                     *float64  `json:"heightCm"`
	WeightKg                     *float64  `json:"weightKg"`
	MedicalConditions            *[]string `json:"medicalConditions"`
	Allergies                    *[]string `json:"allergies"`
	EmergencyContactName         *string   `json:"emergencyContactName"`
	EmergencyContactPhone        *string   `json:"emergencyContactPhone"`
	EmergencyContactRelationship *string   `json:"emergencyContactRelationship"`
	CaretakerName                *string   `json:"caretakerName"`
	Relation                     *string   `json:"relation"`
	SMSRemindersEnabled          *bool     `json:"smsRemindersEnabled"`

	dob *time.Time
}

func (r *profileUpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return invalid("name cannot be empty")
	}
	if r.DateOfBirth != nil && strings.TrimSpace(*r.DateOfBirth) != "" {
		t, err := time.Parse(dateLayout, strings.TrimSpace(*r.DateOfBirth))
		if err != nil {
			return invalid("dateOfBirth must be YYYY-MM-DD")
		}
		r.dob = &t
	}
	if r.HeightCm != nil && *r.HeightCm <= 0 {
		return invalid("heightCm must be positive")
	}
	if r.WeightKg != nil && *r.WeightKg <= 0 {
		return invalid("weightKg must be positive")
	}
	return nil
}

// Apply copies the provided fields onto p. An empty string clears an
// optional field.
func (r *profileUpdateRequest) Apply(p *models.Profile) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.DateOfBirth != nil {
		p.DateOfBirth = r.dob
	}
	set := func(dst **string, src *string) {
		if src != nil {
			*dst = trimmed(src)
		}
	}
	set(&p.Phone, r.Phone)
	set(&p.Gender, r.Gender)
	set(&p.BloodType, r.BloodType)
	set(&p.EmergencyContactName, r.EmergencyContactName)
	set(&p.EmergencyContactPhone, r.EmergencyContactPhone)
	set(&p.EmergencyContactRelationship, r.EmergencyContactRelationship)
	set(&p.CaretakerName, r.CaretakerName)
	set(&p.Relation, r.Relation)

	if r.HeightCm != nil {
		p.HeightCm = r.HeightCm
	}
	if r.WeightKg != nil {
		p.WeightKg = r.WeightKg
	}
	if r.MedicalConditions != nil {
		p.MedicalConditions = *r.MedicalConditions
	}
	if r.Allergies != nil {
		p.Allergies = *r.Allergies
	}
	if r.SMSRemindersEnabled != nil {
		p.SMSRemindersEnabled = *r.SMSRemindersEnabled
	}
}

type vitalRequest struct {
	Temperature            *float64   `json:"temperature"`
	HeartRate              *float64   `json:"heartRate"`
	OxygenLevel            *float64   `json:"oxygenLevel"`
	BloodPressureSystolic  *float64   `json:"bloodPressureSystolic"`
	BloodPressureDiastolic *float64   `json:"bloodPressureDiastolic"`
	Weight                 *float64   `json:"weight"`
	Humidity               *float64   `json:"humidity"`
	MeasurementSource      string     `json:"measurementSource"`
	DeviceID               *string    `json:"deviceId"`
	Notes                  *string    `json:"notes"`
	RecordedAt             *time.Time `json:"recordedAt"`
}

func (r *vitalRequest) Validate() error {
	readings := map[string]*float64{
		"temperature":            r.Temperature,
		"heartRate":              r.HeartRate,
		"oxygenLevel":            r.OxygenLevel,
		"bloodPressureSystolic":  r.BloodPressureSystolic,
		"bloodPressureDiastolic": r.BloodPressureDiastolic,
		"weight":                 r.Weight,
		"humidity":               r.Humidity,
	}
	found := false
	for name, v := range readings {
		if v == nil {
			continue
		}
		// Temperature and heart rate go to the classifier as given.
		if *v < 0 && name != "temperature" && name != "heartRate" {
			return invalid("%s cannot be negative", name)
		}
		found = true
	}
	if !found {
		return invalid("at least one reading is required")
	}
	if r.OxygenLevel != nil && *r.OxygenLevel > 100 {
		return invalid("oxygenLevel must be a percentage")
	}
	if r.Humidity != nil && *r.Humidity > 100 {
		return invalid("humidity must be a percentage")
	}

	switch r.MeasurementSource {
	case "":
		r.MeasurementSource = models.SourceManual
	case models.SourceManual, models.SourceDevice:
	default:
		return invalid("measurementSource must be manual or device")
	}
	return nil
}

func (r *vitalRequest) Vital() *models.Vital {
	v := &models.Vital{
		TemperatureCelsius:     r.Temperature,
		HeartRateBPM:           r.HeartRate,
		OxygenLevelPercent:     r.OxygenLevel,
		BloodPressureSystolic:  r.BloodPressureSystolic,
		BloodPressureDiastolic: r.BloodPressureDiastolic,
		WeightKg:               r.Weight,
		HumidityPercent:        r.Humidity,
		MeasurementSource:      r.MeasurementSource,
		DeviceID:               trimmed(r.DeviceID),
		Notes:                  trimmed(r.Notes),
	}
	if r.RecordedAt != nil {
		v.RecordedAt = *r.RecordedAt
	}
	return v
}

type sosRequest struct {
	Temperature *float64 `json:"temperature"`
	HeartRate   *float64 `json:"heartRate"`
}

func (r *sosRequest) Validate() error {
	if r.Temperature == nil || r.HeartRate == nil {
		return invalid("Invalid vital signs data")
	}
	return nil
}

type medicationRequest struct {
	Name           string  `json:"name"`
	Dosage         string  `json:"dosage"`
	Frequency      string  `json:"frequency"`
	FrequencyTimes int     `json:"frequencyTimes"`
	StartDate      string  `json:"startDate"`
	PrescribedBy   *string `json:"prescribedBy"`

	start time.Time
}

func (r *medicationRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Dosage = strings.TrimSpace(r.Dosage)
	r.Frequency = strings.TrimSpace(r.Frequency)
	if r.Name == "" || r.Dosage == "" {
		return invalid("name and dosage are required")
	}
	if r.Frequency == "" {
		r.Frequency = "daily"
	}
	if r.FrequencyTimes < 0 {
		return invalid("frequencyTimes cannot be negative")
	}
	if r.StartDate != "" {
		t, err := time.Parse(dateLayout, r.StartDate)
		if err != nil {
			return invalid("startDate must be YYYY-MM-DD")
		}
		r.start = t
	}
	return nil
}

func (r *medicationRequest) Medication(userID uuid.UUID) *models.Medication {
	return &models.Medication{
		UserID:         userID,
		Name:           r.Name,
		Dosage:         r.Dosage,
		Frequency:      r.Frequency,
		FrequencyTimes: r.FrequencyTimes,
		StartDate:      r.start,
		IsActive:       true,
		PrescribedBy:   trimmed(r.PrescribedBy),
	}
}

type scheduleRequest struct {
	MedicationID   *uuid.UUID `json:"medicationId"`
	MedicationName string     `json:"medicationName"`
	Dosage         string     `json:"dosage"`
	ScheduledTime  string     `json:"scheduledTime"`
	DaysOfWeek     []string   `json:"daysOfWeek"`
	Notes          *string    `json:"notes"`
	IsActive       *bool      `json:"isActive"`
}

// Validate normalizes the time to HH:MM and the days to lowercase names.
func (r *scheduleRequest) Validate() error {
	r.MedicationName = strings.TrimSpace(r.MedicationName)
	r.Dosage = strings.TrimSpace(r.Dosage)
	if r.MedicationName == "" || r.Dosage == "" {
		return invalid("medicationName and dosage are required")
	}

	minutes, err := medication.ParseClock(r.ScheduledTime)
	if err != nil {
		return invalid("scheduledTime must be HH:MM")
	}
	r.ScheduledTime = fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)

	if len(r.DaysOfWeek) == 0 {
		return invalid("daysOfWeek must name at least one day")
	}
	days := make([]string, 0, len(r.DaysOfWeek))
	seen := map[string]bool{}
	for _, d := range r.DaysOfWeek {
		d = strings.ToLower(strings.TrimSpace(d))
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if err := medication.ValidateDays(days); err != nil {
		return invalid("daysOfWeek must use full lowercase weekday names")
	}
	r.DaysOfWeek = days
	return nil
}

func (r *scheduleRequest) ApplyTo(s *models.MedicationSchedule) {
	s.MedicationID = r.MedicationID
	s.MedicationName = r.MedicationName
	s.Dosage = r.Dosage
	s.ScheduledTime = r.ScheduledTime
	s.DaysOfWeek = r.DaysOfWeek
	s.Notes = trimmed(r.Notes)
	s.IsActive = r.IsActive == nil || *r.IsActive
}

type medicationLogRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

func (r *medicationLogRequest) Validate() error {
	switch r.Status {
	case models.LogTaken, models.LogSkipped:
		return nil
	default:
		return invalid("status must be taken or skipped")
	}
}

type subscribeRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"deviceType"`
}

func (r *subscribeRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return invalid("Token is required")
	}
	if r.DeviceType == "" {
		r.DeviceType = "web"
	}
	return nil
}

type fhirImportRequest struct {
	FHIRID string `json:"fhirId"`
}

func (r *fhirImportRequest) Validate() error {
	r.FHIRID = strings.TrimSpace(r.FHIRID)
	if r.FHIRID == "" {
		return invalid("FHIR ID is required")
	}
	return nil
}

type addPatientRequest struct {
	PatientEmail     string `json:"patientEmail"`
	RelationshipType string `json:"relationshipType"`
}

func (r *addPatientRequest) Validate() error {
	r.PatientEmail = normalizeEmail(r.PatientEmail)
	if r.PatientEmail == "" {
		return invalid("Patient email is required")
	}
	if r.RelationshipType == "" {
		r.RelationshipType = "primary"
	}
	return nil
}

type alertRuleRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Severity   string `json:"severity"`
}

func (r *alertRuleRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Expression = strings.TrimSpace(r.Expression)
	if r.Name == "" || r.Expression == "" {
		return invalid("name and expression are required")
	}
	switch r.Severity {
	case "":
		r.Severity = "warning"
	case "info", "warning", "critical":
	default:
		return invalid("severity must be info, warning or critical")
	}
	return nil
}
