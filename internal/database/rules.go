package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mediplus/pkg/models"
)

func (db *DB) CreateAlertRule(ctx context.Context, r *models.AlertRule) error {
	if r.Severity == "" {
		r.Severity = "warning"
	}

	query := `
		INSERT INTO alert_rules (patient_id, doctor_id, name, expression, severity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at
	`
	err := db.conn.QueryRowContext(ctx, query, r.PatientID, r.DoctorID, r.Name, r.Expression, r.Severity).
		Scan(&r.ID, &r.IsActive, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert rule: %w", err)
	}
	return nil
}

func (db *DB) ListAlertRules(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]models.AlertRule, error) {
	query := `
		SELECT id, patient_id, doctor_id, name, expression, severity, is_active, created_at
		FROM alert_rules
		WHERE patient_id = $1 AND (is_active OR NOT $2)
		ORDER BY created_at
	`

	rows, err := db.conn.QueryContext(ctx, query, patientID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	rules := []models.AlertRule{}
	for rows.Next() {
		var r models.AlertRule
		if err := rows.Scan(&r.ID, &r.PatientID, &r.DoctorID, &r.Name, &r.Expression, &r.Severity, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (db *DB) DeactivateAlertRule(ctx context.Context, ruleID, patientID uuid.UUID) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE alert_rules SET is_active = FALSE WHERE id = $1 AND patient_id = $2`, ruleID, patientID)
	if err != nil {
		return fmt.Errorf("failed to deactivate alert rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alert rule: %w", ErrNotFound)
	}
	return nil
}
