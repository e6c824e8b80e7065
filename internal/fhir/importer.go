package fhir

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediplus/pkg/models"
)

const asPrescribed = "As prescribed"

// BundleFetcher loads the $everything bundle of a patient.
type BundleFetcher interface {
	Everything(ctx context.Context, fhirID string) (*Bundle, error)
}

// Store is the persistence the importer writes to.
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	CreateMedication(ctx context.Context, m *models.Medication) error
	InsertVital(ctx context.Context, v *models.Vital) error
}

type Importer struct {
	fetcher BundleFetcher
	store   Store
	log     zerolog.Logger
}

func NewImporter(fetcher BundleFetcher, store Store, log zerolog.Logger) *Importer {
	return &Importer{fetcher: fetcher, store: store, log: log.With().Str("component", "fhir").Logger()}
}

// Import fetches the patient bundle and merges it into the user's records.
// Profile update failures abort the import. Individual medication or vital
// insert failures are logged and skipped.
func (im *Importer) Import(ctx context.Context, userID uuid.UUID, fhirID string) (*Record, error) {
	fhirID = strings.TrimSpace(fhirID)
	bundle, err := im.fetcher.Everything(ctx, fhirID)
	if err != nil {
		return nil, err
	}
	rec := Parse(fhirID, bundle)

	profile, err := im.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	applyToProfile(profile, rec)
	if err := im.store.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	for _, med := range rec.Medications {
		m := medicationFromFHIR(userID, med)
		if err := im.store.CreateMedication(ctx, m); err != nil {
			im.log.Error().Err(err).Str("fhir_medication_id", med.FHIRID).Msg("failed to import medication")
		}
	}

	imported := 0
	for _, obs := range rec.VitalSigns() {
		v, ok := vitalFromObservation(userID, obs)
		if !ok {
			continue
		}
		if err := im.store.InsertVital(ctx, v); err != nil {
			im.log.Error().Err(err).Str("fhir_observation_id", obs.FHIRID).Msg("failed to import vital")
			continue
		}
		imported++
	}

	im.log.Info().
		Str("user_id", userID.String()).
		Str("fhir_id", fhirID).
		Int("conditions", rec.Summary.TotalConditions).
		Int("medications", rec.Summary.TotalMedications).
		Int("vitals_imported", imported).
		Msg("FHIR import completed")
	return rec, nil
}

func applyToProfile(p *models.Profile, rec *Record) {
	fhirID := rec.Patient.FHIRID
	p.FHIRID = &fhirID

	if rec.Patient.Name != "" {
		p.Name = rec.Patient.Name
	}
	if rec.Patient.Gender != "" {
		gender := rec.Patient.Gender
		p.Gender = &gender
	}
	if rec.Patient.BirthDate != "" {
		if dob, ok := ParseDate(rec.Patient.BirthDate); ok {
			p.DateOfBirth = &dob
		}
	}
	if len(rec.Conditions) > 0 {
		p.MedicalConditions = rec.Conditions
	}
}

func medicationFromFHIR(userID uuid.UUID, med MedicationInfo) *models.Medication {
	prescribedBy := "FHIR Import"
	fhirMedID := med.FHIRID

	start := time.Now()
	if med.AuthoredOn != "" {
		if t, ok := ParseDate(med.AuthoredOn); ok {
			start = t
		}
	}

	return &models.Medication{
		UserID:           userID,
		Name:             med.Name,
		Dosage:           asPrescribed,
		Frequency:        asPrescribed,
		FrequencyTimes:   1,
		StartDate:        start,
		IsActive:         true,
		PrescribedBy:     &prescribedBy,
		FHIRMedicationID: &fhirMedID,
	}
}

// vitalFromObservation maps a vital-sign observation onto a stored reading.
// Observations without a date or a recognised reading are skipped.
func vitalFromObservation(userID uuid.UUID, obs ObservationInfo) (*models.Vital, bool) {
	recordedAt, ok := ParseDate(obs.Date)
	if !ok {
		return nil, false
	}

	v := &models.Vital{
		UserID:            userID,
		MeasurementSource: models.SourceFHIRImport,
		RecordedAt:        recordedAt,
	}
	notes := "Imported from FHIR: " + obs.Name
	v.Notes = &notes
	if obs.FHIRID != "" {
		id := obs.FHIRID
		v.FHIRObservationID = &id
	}

	value := obs.Value
	if value != nil && *value == 0 {
		value = nil
	}

	name := strings.ToLower(obs.Name)
	switch {
	case strings.Contains(name, "temperature"):
		v.TemperatureCelsius = value
	case strings.Contains(name, "heart rate"):
		v.HeartRateBPM = value
	case strings.Contains(name, "weight"):
		v.WeightKg = value
	case strings.Contains(name, "blood pressure"):
		switch {
		case strings.Contains(name, "systolic"):
			v.BloodPressureSystolic = value
		case strings.Contains(name, "diastolic"):
			v.BloodPressureDiastolic = value
		default:
			v.BloodPressureSystolic = obs.Systolic
			v.BloodPressureDiastolic = obs.Diastolic
		}
	}

	if v.TemperatureCelsius == nil && v.HeartRateBPM == nil && v.WeightKg == nil &&
		v.BloodPressureSystolic == nil && v.BloodPressureDiastolic == nil {
		return nil, false
	}
	return v, true
}
