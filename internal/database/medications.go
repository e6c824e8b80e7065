package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"mediplus/pkg/models"
)

func (db *DB) CreateMedication(ctx context.Context, m *models.Medication) error {
	if m.FrequencyTimes <= 0 {
		m.FrequencyTimes = 1
	}
	if m.StartDate.IsZero() {
		m.StartDate = time.Now()
	}

	query := `
		INSERT INTO medications (user_id, name, dosage, frequency, frequency_times, start_date, is_active, prescribed_by, fhir_medication_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := db.conn.QueryRowContext(ctx, query,
		m.UserID, m.Name, m.Dosage, m.Frequency, m.FrequencyTimes,
		m.StartDate.Format("2006-01-02"), m.IsActive, m.PrescribedBy, m.FHIRMedicationID,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert medication: %w", err)
	}
	return nil
}

func (db *DB) ListMedications(ctx context.Context, userID uuid.UUID) ([]models.Medication, error) {
	query := `
		SELECT id, user_id, name, dosage, frequency, frequency_times, start_date, is_active, prescribed_by, fhir_medication_id, created_at
		FROM medications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	meds := []models.Medication{}
	for rows.Next() {
		var m models.Medication
		err := rows.Scan(
			&m.ID, &m.UserID, &m.Name, &m.Dosage, &m.Frequency, &m.FrequencyTimes,
			&m.StartDate, &m.IsActive, &m.PrescribedBy, &m.FHIRMedicationID, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

// GetMedication loads a medication owned by userID.
func (db *DB) GetMedication(ctx context.Context, id, userID uuid.UUID) (*models.Medication, error) {
	query := `
		SELECT id, user_id, name, dosage, frequency, frequency_times, start_date, is_active, prescribed_by, fhir_medication_id, created_at
		FROM medications
		WHERE id = $1 AND user_id = $2
	`

	var m models.Medication
	err := db.conn.QueryRowContext(ctx, query, id, userID).Scan(
		&m.ID, &m.UserID, &m.Name, &m.Dosage, &m.Frequency, &m.FrequencyTimes,
		&m.StartDate, &m.IsActive, &m.PrescribedBy, &m.FHIRMedicationID, &m.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "medication")
	}
	return &m, nil
}

const scheduleColumns = `
	id, user_id, medication_id, medication_name, dosage, scheduled_time,
	days_of_week, notes, is_active, created_at, updated_at`

func scanSchedule(row rowScanner) (*models.MedicationSchedule, error) {
	var s models.MedicationSchedule
	err := row.Scan(
		&s.ID, &s.UserID, &s.MedicationID, &s.MedicationName, &s.Dosage, &s.ScheduledTime,
		pq.Array(&s.DaysOfWeek), &s.Notes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) CreateSchedule(ctx context.Context, s *models.MedicationSchedule) error {
	query := `
		INSERT INTO medication_schedules (user_id, medication_id, medication_name, dosage, scheduled_time, days_of_week, notes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := db.conn.QueryRowContext(ctx, query,
		s.UserID, s.MedicationID, s.MedicationName, s.Dosage, s.ScheduledTime,
		pq.Array(s.DaysOfWeek), s.Notes, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

// GetSchedule loads a schedule owned by userID.
func (db *DB) GetSchedule(ctx context.Context, id, userID uuid.UUID) (*models.MedicationSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM medication_schedules WHERE id = $1 AND user_id = $2`

	s, err := scanSchedule(db.conn.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err, "schedule")
	}
	return s, nil
}

func (db *DB) ListSchedules(ctx context.Context, userID uuid.UUID) ([]models.MedicationSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM medication_schedules WHERE user_id = $1 ORDER BY scheduled_time`
	return db.querySchedules(ctx, query, userID)
}

// ListActiveSchedulesForDay returns every active schedule that runs on the
// given lowercase weekday.
func (db *DB) ListActiveSchedulesForDay(ctx context.Context, weekday string) ([]models.MedicationSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM medication_schedules WHERE is_active AND $1 = ANY(days_of_week)`
	return db.querySchedules(ctx, query, weekday)
}

func (db *DB) querySchedules(ctx context.Context, query string, args ...any) ([]models.MedicationSchedule, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	schedules := []models.MedicationSchedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func (db *DB) UpdateSchedule(ctx context.Context, s *models.MedicationSchedule) error {
	query := `
		UPDATE medication_schedules SET
			medication_id = $3, medication_name = $4, dosage = $5, scheduled_time = $6,
			days_of_week = $7, notes = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`
	err := db.conn.QueryRowContext(ctx, query,
		s.ID, s.UserID, s.MedicationID, s.MedicationName, s.Dosage, s.ScheduledTime,
		pq.Array(s.DaysOfWeek), s.Notes, s.IsActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return notFound(err, "schedule")
	}
	return nil
}

func (db *DB) DeleteSchedule(ctx context.Context, id, userID uuid.UUID) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM medication_schedules WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("schedule: %w", ErrNotFound)
	}
	return nil
}

func (db *DB) InsertMedicationLog(ctx context.Context, l *models.MedicationLog) error {
	if l.LoggedAt.IsZero() {
		l.LoggedAt = time.Now()
	}

	query := `
		INSERT INTO medication_logs (user_id, schedule_id, status, notes, logged_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := db.conn.QueryRowContext(ctx, query, l.UserID, l.ScheduleID, l.Status, l.Notes, l.LoggedAt).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to insert medication log: %w", err)
	}
	return nil
}

// HasTakenSince reports whether a taken log exists for the schedule at or
// after since.
func (db *DB) HasTakenSince(ctx context.Context, userID, scheduleID uuid.UUID, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM medication_logs
			WHERE user_id = $1 AND schedule_id = $2 AND status = 'taken' AND logged_at >= $3
		)
	`

	var taken bool
	if err := db.conn.QueryRowContext(ctx, query, userID, scheduleID, since).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check medication logs: %w", err)
	}
	return taken, nil
}
