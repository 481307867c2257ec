package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection for the scheduling service.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	ErrNotFound      = errors.New("not found")
	ErrSlotTaken     = errors.New("slot already booked")
	ErrPastDate      = errors.New("cannot book in the past")
	ErrDateTooFar    = errors.New("date is too far in the future")
	ErrAlreadyClosed = errors.New("booking already cancelled or completed")
)

// NewDB opens the database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode and busy timeout keep concurrent readers happy.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS practitioners (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			full_name TEXT UNIQUE NOT NULL,
			specialty TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS working_hours (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			practitioner_id INTEGER NOT NULL,
			day_of_week INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			is_available BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(practitioner_id, day_of_week),
			FOREIGN KEY (practitioner_id) REFERENCES practitioners(id)
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			practitioner_id INTEGER NOT NULL,
			patient_name TEXT NOT NULL,
			patient_phone TEXT,
			exam_type TEXT,
			start_time DATETIME NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 30,
			status TEXT NOT NULL DEFAULT 'pending',
			comment TEXT,
			reminder_sent BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (practitioner_id) REFERENCES practitioners(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_practitioners_active ON practitioners(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_working_hours_lookup ON working_hours(practitioner_id, day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_times ON bookings(practitioner_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// PingContext reports readiness for the health endpoint.
func (db *DB) PingContext(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}
