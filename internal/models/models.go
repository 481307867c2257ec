package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Practitioner is a doctor or specialist appointments are scheduled against.
type Practitioner struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Specialty string    `json:"specialty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkingHoursRule declares the interval during which a practitioner
// accepts bookings on a given weekday. The interval is half-open:
// a slot starting exactly at EndTime is outside working hours.
type WorkingHoursRule struct {
	ID             int64  `json:"id"`
	PractitionerID int64  `json:"practitioner_id"`
	DayOfWeek      int    `json:"day_of_week"` // 0-6, Sunday-based
	StartTime      string `json:"start_time"`  // "09:00"
	EndTime        string `json:"end_time"`    // "18:00"
	IsAvailable    bool   `json:"is_available"`
}

// Contains reports whether the clock time (minutes since midnight)
// falls inside the rule's working window.
func (r WorkingHoursRule) Contains(minutes int) bool {
	start, err := ParseClock(r.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseClock(r.EndTime)
	if err != nil {
		return false
	}
	return minutes >= start && minutes < end
}

// DefaultWeeklyRules is the generic Mon-Fri 09:00-18:00 schedule applied
// to practitioners that have no working-hours rows of their own.
func DefaultWeeklyRules(practitionerID int64) []WorkingHoursRule {
	rules := make([]WorkingHoursRule, 0, 5)
	for day := 1; day <= 5; day++ {
		rules = append(rules, WorkingHoursRule{
			PractitionerID: practitionerID,
			DayOfWeek:      day,
			StartTime:      "09:00",
			EndTime:        "18:00",
			IsAvailable:    true,
		})
	}
	return rules
}

// Booking is a reservation occupying part of a practitioner's day.
type Booking struct {
	ID              int64     `json:"id"`
	PractitionerID  int64     `json:"practitioner_id"`
	PatientName     string    `json:"patient_name"`
	PatientPhone    string    `json:"patient_phone,omitempty"`
	ExamType        string    `json:"exam_type,omitempty"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Comment         string    `json:"comment,omitempty"`
	ReminderSent    bool      `json:"reminder_sent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndTime returns the exclusive end of the booking interval.
func (b Booking) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// IsCancelled reports whether the booking no longer occupies its slot.
func (b Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

// Occupies reports whether t falls inside [StartTime, StartTime+Duration).
// A slot exactly at the booking's end is free; one at its start is taken.
func (b Booking) Occupies(t time.Time) bool {
	return !t.Before(b.StartTime) && t.Before(b.EndTime())
}

// TimeSlot is one bookable grid position for one practitioner.
// Slots are computed fresh on every query and never persisted.
type TimeSlot struct {
	Time             string `json:"time"` // "10:30"
	Available        bool   `json:"available"`
	PractitionerID   int64  `json:"practitioner_id"`
	PractitionerName string `json:"practitioner_name"`
}

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour: %w", err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %s", s)
	}
	return hour*60 + minute, nil
}

// FormatClock converts minutes since midnight to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ClockOnDate combines a calendar date with minutes since midnight.
func ClockOnDate(date time.Time, minutes int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, date.Location())
}
