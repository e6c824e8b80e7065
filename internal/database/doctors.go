package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mediplus/pkg/models"
)

func (db *DB) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*models.Doctor, error) {
	query := `
		SELECT id, user_id, name, email, license_number, specialization, hospital_affiliation, phone, is_verified, created_at
		FROM doctors
		WHERE user_id = $1
	`

	var d models.Doctor
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&d.ID, &d.UserID, &d.Name, &d.Email, &d.LicenseNumber, &d.Specialization,
		&d.HospitalAffiliation, &d.Phone, &d.IsVerified, &d.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "doctor")
	}
	return &d, nil
}

func (db *DB) CreateRelationship(ctx context.Context, rel *models.DoctorPatientRelationship) error {
	if rel.RelationshipType == "" {
		rel.RelationshipType = "primary"
	}

	query := `
		INSERT INTO doctor_patient_relationships (doctor_id, patient_id, relationship_type, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at
	`
	err := db.conn.QueryRowContext(ctx, query, rel.DoctorID, rel.PatientID, rel.RelationshipType, rel.CreatedBy).
		Scan(&rel.ID, &rel.IsActive, &rel.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("relationship: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

func (db *DB) ListPatientsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.Profile, error) {
	query := `
		SELECT p.id, p.name, p.email, p.phone, p.date_of_birth, p.gender, p.blood_type, p.height_cm, p.weight_kg,
			p.medical_conditions, p.allergies, p.emergency_contact_name, p.emergency_contact_phone,
			p.emergency_contact_relationship, p.caretaker_name, p.relation, p.fhir_id,
			p.sms_reminders_enabled, p.created_at, p.updated_at
		FROM profiles p
		JOIN doctor_patient_relationships r ON r.patient_id = p.id
		WHERE r.doctor_id = $1 AND r.is_active
		ORDER BY p.name
	`

	rows, err := db.conn.QueryContext(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	return patients, rows.Err()
}

// ListDoctorUserIDsForPatient returns the login ids of every doctor actively
// linked to the patient. Live alerts are addressed by these ids.
func (db *DB) ListDoctorUserIDsForPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT d.user_id
		FROM doctors d
		JOIN doctor_patient_relationships r ON r.doctor_id = d.id
		WHERE r.patient_id = $1 AND r.is_active
	`

	rows, err := db.conn.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query doctors: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan doctor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *DB) IsDoctorOfPatient(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM doctor_patient_relationships
			WHERE doctor_id = $1 AND patient_id = $2 AND is_active
		)
	`

	var ok bool
	if err := db.conn.QueryRowContext(ctx, query, doctorID, patientID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return ok, nil
}
