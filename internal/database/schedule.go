package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"labdesk/internal/config"
	"labdesk/internal/models"
)

// ActivePractitioners returns the roster in stable insertion order. Slot
// listings group by practitioner in this order.
func (db *DB) ActivePractitioners(ctx context.Context) ([]models.Practitioner, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, full_name, specialty, is_active, created_at, updated_at
		FROM practitioners
		WHERE is_active = 1
		ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var practitioners []models.Practitioner
	for rows.Next() {
		var p models.Practitioner
		if err := rows.Scan(&p.ID, &p.FullName, &p.Specialty, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		practitioners = append(practitioners, p)
	}
	return practitioners, rows.Err()
}

// GetPractitioner returns one practitioner by id.
func (db *DB) GetPractitioner(ctx context.Context, id int64) (*models.Practitioner, error) {
	var p models.Practitioner
	err := db.QueryRowContext(ctx, `
		SELECT id, full_name, specialty, is_active, created_at, updated_at
		FROM practitioners
		WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.FullName, &p.Specialty, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// WorkingHours returns the weekly rule rows for a practitioner, ordered by
// day of week. An empty result means the practitioner has no explicit
// schedule; the availability engine applies the generic fallback then.
func (db *DB) WorkingHours(ctx context.Context, practitionerID int64) ([]models.WorkingHoursRule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, practitioner_id, day_of_week, start_time, end_time, is_available
		FROM working_hours
		WHERE practitioner_id = ?
		ORDER BY day_of_week`,
		practitionerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.WorkingHoursRule
	for rows.Next() {
		var r models.WorkingHoursRule
		if err := rows.Scan(&r.ID, &r.PractitionerID, &r.DayOfWeek, &r.StartTime, &r.EndTime, &r.IsAvailable); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// UpsertWorkingHours creates or replaces the rule for one weekday.
func (db *DB) UpsertWorkingHours(ctx context.Context, r *models.WorkingHoursRule) error {
	if _, err := models.ParseClock(r.StartTime); err != nil {
		return fmt.Errorf("invalid start time: %w", err)
	}
	if _, err := models.ParseClock(r.EndTime); err != nil {
		return fmt.Errorf("invalid end time: %w", err)
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO working_hours (
			practitioner_id, day_of_week, start_time, end_time, is_available, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(practitioner_id, day_of_week) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			is_available = excluded.is_available,
			updated_at = excluded.updated_at`,
		r.PractitionerID, r.DayOfWeek, r.StartTime, r.EndTime, r.IsAvailable, now, now,
	)
	return err
}

// SyncPractitionersFromConfig applies practitioners.yaml to the database.
// It upserts the roster, aligns weekly working hours, and deactivates
// practitioners that disappeared from the config.
func (db *DB) SyncPractitionersFromConfig(ctx context.Context, cfg *config.PractitionersConfig) error {
	if cfg == nil {
		return fmt.Errorf("practitioners config is nil")
	}

	now := time.Now()
	seen := make(map[int64]struct{})

	for _, p := range cfg.Practitioners {
		// Preserve created_at if the practitioner already exists.
		_, err := db.ExecContext(ctx, `
			INSERT INTO practitioners (id, full_name, specialty, is_active, created_at, updated_at)
			VALUES (?, ?, ?, 1, COALESCE((SELECT created_at FROM practitioners WHERE id = ?), ?), ?)
			ON CONFLICT(id) DO UPDATE SET
				full_name = excluded.full_name,
				specialty = excluded.specialty,
				is_active = 1,
				updated_at = excluded.updated_at`,
			p.ID, p.FullName, p.Specialty, p.ID, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync practitioner %d: %w", p.ID, err)
		}
		seen[p.ID] = struct{}{}

		for _, wh := range p.WorkingHours {
			rule := &models.WorkingHoursRule{
				PractitionerID: p.ID,
				DayOfWeek:      wh.DayOfWeek,
				StartTime:      wh.StartTime,
				EndTime:        wh.EndTime,
				IsAvailable:    wh.IsAvailable,
			}
			if err := db.UpsertWorkingHours(ctx, rule); err != nil {
				return fmt.Errorf("sync practitioner %d day %d: %w", p.ID, wh.DayOfWeek, err)
			}
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM practitioners WHERE is_active = 1`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := db.ExecContext(ctx,
			`UPDATE practitioners SET is_active = 0, updated_at = ? WHERE id = ?`, now, id,
		); err != nil {
			return fmt.Errorf("deactivate practitioner %d: %w", id, err)
		}
	}
	return nil
}
