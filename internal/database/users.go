package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"mediplus/pkg/models"
)

const profileColumns = `
	id, name, email, phone, date_of_birth, gender, blood_type, height_cm, weight_kg,
	medical_conditions, allergies, emergency_contact_name, emergency_contact_phone,
	emergency_contact_relationship, caretaker_name, relation, fhir_id,
	sms_reminders_enabled, created_at, updated_at`

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.DateOfBirth, &p.Gender, &p.BloodType, &p.HeightCm, &p.WeightKg,
		pq.Array(&p.MedicalConditions), pq.Array(&p.Allergies), &p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.EmergencyContactRelationship, &p.CaretakerName, &p.Relation, &p.FHIRID,
		&p.SMSRemindersEnabled, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.MedicalConditions == nil {
		p.MedicalConditions = []string{}
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	return &p, nil
}

func insertUser(ctx context.Context, tx *sql.Tx, u *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := tx.QueryRowContext(ctx, query, strings.ToLower(u.Email), u.PasswordHash, u.Role).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// CreatePatient inserts the login row and its profile in one transaction.
// The profile shares the user's id.
func (db *DB) CreatePatient(ctx context.Context, u *models.User, p *models.Profile) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		u.Role = models.RolePatient
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}

		p.ID = u.ID
		p.Email = u.Email
		if p.MedicalConditions == nil {
			p.MedicalConditions = []string{}
		}
		if p.Allergies == nil {
			p.Allergies = []string{}
		}

		query := `
			INSERT INTO profiles (
				id, name, email, phone, date_of_birth, gender, blood_type, height_cm, weight_kg,
				medical_conditions, allergies, emergency_contact_name, emergency_contact_phone,
				emergency_contact_relationship, caretaker_name, relation, sms_reminders_enabled, fhir_id
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query,
			p.ID, p.Name, p.Email, p.Phone, p.DateOfBirth, p.Gender, p.BloodType, p.HeightCm, p.WeightKg,
			pq.Array(p.MedicalConditions), pq.Array(p.Allergies), p.EmergencyContactName, p.EmergencyContactPhone,
			p.EmergencyContactRelationship, p.CaretakerName, p.Relation, p.SMSRemindersEnabled, p.FHIRID,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert profile: %w", err)
		}
		return nil
	})
}

func (db *DB) CreateDoctor(ctx context.Context, u *models.User, d *models.Doctor) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		u.Role = models.RoleDoctor
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}

		d.UserID = u.ID
		d.Email = u.Email
		query := `
			INSERT INTO doctors (user_id, name, email, license_number, specialization, hospital_affiliation, phone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, is_verified, created_at
		`
		err := tx.QueryRowContext(ctx, query,
			d.UserID, d.Name, d.Email, d.LicenseNumber, d.Specialization, d.HospitalAffiliation, d.Phone,
		).Scan(&d.ID, &d.IsVerified, &d.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert doctor: %w", err)
		}
		return nil
	})
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1`

	var u models.User
	err := db.conn.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (db *DB) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(db.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return p, nil
}

func (db *DB) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE LOWER(email) = LOWER($1)`

	p, err := scanProfile(db.conn.QueryRowContext(ctx, query, strings.TrimSpace(email)))
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return p, nil
}

// UpdateProfile overwrites every mutable profile column.
func (db *DB) UpdateProfile(ctx context.Context, p *models.Profile) error {
	if p.MedicalConditions == nil {
		p.MedicalConditions = []string{}
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}

	query := `
		UPDATE profiles SET
			name = $2, phone = $3, date_of_birth = $4, gender = $5, blood_type = $6,
			height_cm = $7, weight_kg = $8, medical_conditions = $9, allergies = $10,
			emergency_contact_name = $11, emergency_contact_phone = $12,
			emergency_contact_relationship = $13, caretaker_name = $14, relation = $15,
			fhir_id = $16, sms_reminders_enabled = $17, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := db.conn.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Phone, p.DateOfBirth, p.Gender, p.BloodType,
		p.HeightCm, p.WeightKg, pq.Array(p.MedicalConditions), pq.Array(p.Allergies),
		p.EmergencyContactName, p.EmergencyContactPhone,
		p.EmergencyContactRelationship, p.CaretakerName, p.Relation,
		p.FHIRID, p.SMSRemindersEnabled,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return notFound(err, "profile")
	}
	return nil
}
