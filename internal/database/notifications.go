package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const dayLayout = "2006-01-02"

// StaleClaimAfter is how long an unsent claim blocks other passes. A pass
// that died between claiming and completing leaves such a claim behind.
const StaleClaimAfter = 5 * time.Minute

// ClaimNotification records that a reminder for the schedule is being sent
// on day. It returns false when another pass already sent that day's
// reminder or holds a claim younger than StaleClaimAfter.
func (db *DB) ClaimNotification(ctx context.Context, scheduleID, userID uuid.UUID, day time.Time) (bool, error) {
	query := `
		INSERT INTO medication_notifications (schedule_id, user_id, notified_on, claimed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (schedule_id, notified_on) DO UPDATE SET claimed_at = NOW()
		WHERE medication_notifications.sent_at IS NULL
			AND medication_notifications.claimed_at < NOW() - make_interval(secs => $4)
	`
	result, err := db.conn.ExecContext(ctx, query, scheduleID, userID, day.Format(dayLayout), StaleClaimAfter.Seconds())
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (db *DB) CompleteNotification(ctx context.Context, scheduleID uuid.UUID, day time.Time, channels []string) error {
	query := `
		UPDATE medication_notifications SET channels = $3, sent_at = NOW()
		WHERE schedule_id = $1 AND notified_on = $2
	`
	if _, err := db.conn.ExecContext(ctx, query, scheduleID, day.Format(dayLayout), pq.Array(channels)); err != nil {
		return fmt.Errorf("failed to complete notification: %w", err)
	}
	return nil
}

// ReleaseNotification drops a claim so a later pass inside the window can retry.
func (db *DB) ReleaseNotification(ctx context.Context, scheduleID uuid.UUID, day time.Time) error {
	query := `DELETE FROM medication_notifications WHERE schedule_id = $1 AND notified_on = $2`
	if _, err := db.conn.ExecContext(ctx, query, scheduleID, day.Format(dayLayout)); err != nil {
		return fmt.Errorf("failed to release notification: %w", err)
	}
	return nil
}

func (db *DB) PruneNotifications(ctx context.Context, before time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM medication_notifications WHERE notified_on < $1`, before.Format(dayLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune notifications: %w", err)
	}
	return result.RowsAffected()
}

// UpsertFCMToken stores a device token, moving it to userID if another
// account registered it before.
func (db *DB) UpsertFCMToken(ctx context.Context, userID uuid.UUID, token, deviceType string) error {
	if deviceType == "" {
		deviceType = "web"
	}

	query := `
		INSERT INTO fcm_tokens (user_id, token, device_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, device_type = EXCLUDED.device_type, updated_at = NOW()
	`
	if _, err := db.conn.ExecContext(ctx, query, userID, token, deviceType); err != nil {
		return fmt.Errorf("failed to upsert fcm token: %w", err)
	}
	return nil
}

func (db *DB) ListFCMTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT token FROM fcm_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fcm tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan fcm token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (db *DB) DeleteFCMToken(ctx context.Context, token string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM fcm_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete fcm token: %w", err)
	}
	return nil
}
