package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"mediplus/pkg/models"
)

const vitalColumns = `
	id, user_id, temperature_celsius, heart_rate_bpm, oxygen_level_percent,
	blood_pressure_systolic, blood_pressure_diastolic, weight_kg, humidity_percent,
	measurement_source, device_id, fhir_observation_id, notes, recorded_at, created_at`

func scanVital(row rowScanner) (*models.Vital, error) {
	var v models.Vital
	err := row.Scan(
		&v.ID, &v.UserID, &v.TemperatureCelsius, &v.HeartRateBPM, &v.OxygenLevelPercent,
		&v.BloodPressureSystolic, &v.BloodPressureDiastolic, &v.WeightKg, &v.HumidityPercent,
		&v.MeasurementSource, &v.DeviceID, &v.FHIRObservationID, &v.Notes, &v.RecordedAt, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (db *DB) InsertVital(ctx context.Context, v *models.Vital) error {
	if v.MeasurementSource == "" {
		v.MeasurementSource = models.SourceManual
	}
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now()
	}

	query := `
		INSERT INTO vitals (
			user_id, temperature_celsius, heart_rate_bpm, oxygen_level_percent,
			blood_pressure_systolic, blood_pressure_diastolic, weight_kg, humidity_percent,
			measurement_source, device_id, fhir_observation_id, notes, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`
	err := db.conn.QueryRowContext(ctx, query,
		v.UserID, v.TemperatureCelsius, v.HeartRateBPM, v.OxygenLevelPercent,
		v.BloodPressureSystolic, v.BloodPressureDiastolic, v.WeightKg, v.HumidityPercent,
		v.MeasurementSource, v.DeviceID, v.FHIRObservationID, v.Notes, v.RecordedAt,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vital: %w", err)
	}
	return nil
}

// ListVitals returns the newest readings first.
func (db *DB) ListVitals(ctx context.Context, userID uuid.UUID, limit int) ([]models.Vital, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `SELECT ` + vitalColumns + ` FROM vitals WHERE user_id = $1 ORDER BY recorded_at DESC LIMIT $2`

	rows, err := db.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vitals: %w", err)
	}
	defer rows.Close()

	vitals := []models.Vital{}
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vital: %w", err)
		}
		vitals = append(vitals, *v)
	}
	return vitals, rows.Err()
}

func (db *DB) InsertAlert(ctx context.Context, a *models.VitalAlert) error {
	if a.Channels == nil {
		a.Channels = []string{}
	}

	query := `
		INSERT INTO vital_alerts (user_id, vital_id, alert_type, kind, channels, delivered)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := db.conn.QueryRowContext(ctx, query,
		a.UserID, a.VitalID, a.AlertType, a.Kind, pq.Array(a.Channels), a.Delivered,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// CountAlertsSince counts delivered alerts of one kind. Suppressed attempts
// are stored undelivered and do not count against the limit.
func (db *DB) CountAlertsSince(ctx context.Context, userID uuid.UUID, kind string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM vital_alerts
		WHERE user_id = $1 AND kind = $2 AND delivered AND created_at >= $3
	`

	var n int
	if err := db.conn.QueryRowContext(ctx, query, userID, kind, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

func (db *DB) LatestVital(ctx context.Context, userID uuid.UUID) (*models.Vital, error) {
	query := `SELECT ` + vitalColumns + ` FROM vitals WHERE user_id = $1 ORDER BY recorded_at DESC LIMIT 1`

	v, err := scanVital(db.conn.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, notFound(err, "vital")
	}
	return v, nil
}
