package availability

import (
	"context"
	"fmt"
	"time"

	"labdesk/internal/metrics"
	"labdesk/internal/models"

	"github.com/rs/zerolog"
)

const (
	// GridStart and GridEnd bound the half-hour slot grid. The grid runs
	// from 09:00 up to but not including 19:00, independent of any
	// practitioner's actual hours; working-hours rules restrict which of
	// the grid times are emitted.
	GridStart = 9 * 60
	GridEnd   = 19 * 60

	// SlotDuration is the fixed slot length in minutes.
	SlotDuration = 30

	// SearchHorizonDays bounds the forward search of FindNextAvailableSlot.
	SearchHorizonDays = 30
)

// BookingStore reads existing reservations for a calendar day.
type BookingStore interface {
	// BookingsForDay returns bookings whose start timestamp falls within
	// [startOfDay(day), startOfDay(day)+24h). Cancelled bookings may be
	// filtered by the store; the engine skips them regardless.
	BookingsForDay(ctx context.Context, day time.Time) ([]models.Booking, error)
}

// ScheduleStore reads working-hours rules for a practitioner.
type ScheduleStore interface {
	WorkingHours(ctx context.Context, practitionerID int64) ([]models.WorkingHoursRule, error)
}

// Engine computes bookable time slots for a day and searches forward for
// the next open slot. It holds no state between calls: each query reads a
// fresh snapshot and produces a disposable slot sequence.
type Engine struct {
	bookings BookingStore
	schedule ScheduleStore
	logger   *zerolog.Logger
}

// NewEngine creates a slot availability engine.
func NewEngine(bookings BookingStore, schedule ScheduleStore, logger *zerolog.Logger) *Engine {
	return &Engine{bookings: bookings, schedule: schedule, logger: logger}
}

// ListSlots returns the slot grid for date, practitioner-major then
// time-ascending. If only is non-nil the roster is restricted to that
// practitioner. Practitioners without an available rule for the date's
// weekday contribute no slots at all.
func (e *Engine) ListSlots(ctx context.Context, date time.Time, practitioners []models.Practitioner, only *int64) ([]models.TimeSlot, error) {
	day := models.StartOfDay(date)

	bookings, err := e.bookings.BookingsForDay(ctx, day)
	if err != nil {
		metrics.IncStoreError("bookings_for_day")
		return nil, fmt.Errorf("load bookings for %s: %w", day.Format("2006-01-02"), err)
	}

	weekday := int(day.Weekday())
	var slots []models.TimeSlot

	for _, p := range practitioners {
		if only != nil && p.ID != *only {
			continue
		}

		rule, ok, err := e.ruleForDay(ctx, p.ID, weekday)
		if err != nil {
			metrics.IncStoreError("working_hours")
			return nil, fmt.Errorf("load working hours for practitioner %d: %w", p.ID, err)
		}
		if !ok {
			continue
		}

		for minutes := GridStart; minutes < GridEnd; minutes += SlotDuration {
			if !rule.Contains(minutes) {
				continue
			}

			slotStart := models.ClockOnDate(day, minutes)
			occupied := false
			for _, b := range bookings {
				if b.PractitionerID != p.ID || b.IsCancelled() {
					continue
				}
				if b.Occupies(slotStart) {
					occupied = true
					break
				}
			}

			slots = append(slots, models.TimeSlot{
				Time:             models.FormatClock(minutes),
				Available:        !occupied,
				PractitionerID:   p.ID,
				PractitionerName: p.FullName,
			})
		}
	}

	metrics.IncSlotQuery()
	return slots, nil
}

// FindNextAvailableSlot searches forward from startDate, day by day, for
// the earliest open slot across all practitioners. Saturdays and Sundays
// are skipped unconditionally. A store failure on one day is logged and
// treated as that day having no slots; it never aborts the search. A nil
// slot with a nil error means the horizon was exhausted without a match,
// which is an expected outcome, not a fault.
func (e *Engine) FindNextAvailableSlot(ctx context.Context, practitioners []models.Practitioner, startDate time.Time) (*models.TimeSlot, time.Time, error) {
	start := models.StartOfDay(startDate)

	for i := 0; i < SearchHorizonDays; i++ {
		if err := ctx.Err(); err != nil {
			return nil, time.Time{}, err
		}

		day := start.AddDate(0, 0, i)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		slots, err := e.ListSlots(ctx, day, practitioners, nil)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn().Err(err).
					Str("date", day.Format("2006-01-02")).
					Msg("skipping day in next-slot search")
			}
			continue
		}

		for i := range slots {
			if slots[i].Available {
				metrics.IncNextSlotSearch("found")
				return &slots[i], day, nil
			}
		}
	}

	metrics.IncNextSlotSearch("not_found")
	return nil, time.Time{}, nil
}

// ruleForDay resolves the effective working-hours rule for a weekday.
// First match wins when the store returns several rows for the same day.
// A practitioner with no rows at all gets the generic weekly fallback; a
// practitioner with rows but none for this weekday is off that day.
func (e *Engine) ruleForDay(ctx context.Context, practitionerID int64, weekday int) (models.WorkingHoursRule, bool, error) {
	rules, err := e.schedule.WorkingHours(ctx, practitionerID)
	if err != nil {
		return models.WorkingHoursRule{}, false, err
	}
	if len(rules) == 0 {
		rules = models.DefaultWeeklyRules(practitionerID)
	}
	for _, r := range rules {
		if r.DayOfWeek == weekday {
			if !r.IsAvailable {
				return models.WorkingHoursRule{}, false, nil
			}
			return r, true, nil
		}
	}
	return models.WorkingHoursRule{}, false, nil
}

// IsSlotFree reports whether a specific (practitioner, start) pair is
// currently bookable: inside working hours and not occupied.
func (e *Engine) IsSlotFree(ctx context.Context, p models.Practitioner, start time.Time) (bool, error) {
	slots, err := e.ListSlots(ctx, start, []models.Practitioner{p}, &p.ID)
	if err != nil {
		return false, err
	}
	want := start.Format("15:04")
	for _, s := range slots {
		if s.Time == want {
			return s.Available, nil
		}
	}
	return false, nil
}
