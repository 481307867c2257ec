package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"labdesk/internal/models"
)

const bookingColumns = `id, practitioner_id, patient_name, patient_phone, exam_type,
	start_time, duration_minutes, status, comment, reminder_sent, created_at, updated_at`

// BookingsForDay returns bookings whose start falls within
// [startOfDay(day), startOfDay(day)+24h), excluding cancelled ones.
func (db *DB) BookingsForDay(ctx context.Context, day time.Time) ([]models.Booking, error) {
	startOfDay := models.StartOfDay(day)
	endOfDay := startOfDay.Add(24 * time.Hour)

	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE start_time >= ? AND start_time < ?
		AND status != 'cancelled'
		ORDER BY practitioner_id, start_time`,
		startOfDay, endOfDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

// GetBooking returns one booking by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = ?`,
		id,
	)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CreateBooking inserts a booking after checking the target interval is
// free of overlapping non-cancelled bookings for the same practitioner.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	if b.DurationMinutes <= 0 {
		b.DurationMinutes = 30
	}
	if b.Status == "" {
		b.Status = models.StatusPending
	}

	end := b.EndTime()
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE practitioner_id = ?
		AND start_time < ?
		AND datetime(start_time, '+' || duration_minutes || ' minutes') > ?
		AND status != 'cancelled'`,
		b.PractitionerID, end, b.StartTime,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if count > 0 {
		return ErrSlotTaken
	}

	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO bookings (
			practitioner_id, patient_name, patient_phone, exam_type,
			start_time, duration_minutes, status, comment, reminder_sent, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		b.PractitionerID, b.PatientName, b.PatientPhone, b.ExamType,
		b.StartTime, b.DurationMinutes, b.Status, b.Comment, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID, _ = res.LastInsertId()
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// CancelBooking marks a booking cancelled so it stops occupying its slot.
func (db *DB) CancelBooking(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled', updated_at = ?
		WHERE id = ? AND status NOT IN ('cancelled', 'completed')`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := db.GetBooking(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyClosed
	}
	return nil
}

// UpcomingBookings returns non-cancelled bookings starting within the
// given window from now that have not had reminders sent yet.
func (db *DB) UpcomingBookings(ctx context.Context, within time.Duration) ([]models.Booking, error) {
	now := time.Now()
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE start_time >= ? AND start_time < ?
		AND status != 'cancelled'
		AND reminder_sent = 0
		ORDER BY start_time`,
		now, now.Add(within),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

// MarkReminderSent flags a booking so its reminder is not sent twice.
func (db *DB) MarkReminderSent(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx,
		"UPDATE bookings SET reminder_sent = 1, updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var phone, examType, comment sql.NullString
	err := row.Scan(
		&b.ID, &b.PractitionerID, &b.PatientName, &phone, &examType,
		&b.StartTime, &b.DurationMinutes, &b.Status, &comment, &b.ReminderSent,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.PatientPhone = phone.String
	b.ExamType = examType.String
	b.Comment = comment.String
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
