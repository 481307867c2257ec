package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"labdesk/internal/models"
)

// fakeBookingStore serves canned bookings keyed by date ("2006-01-02").
type fakeBookingStore struct {
	bookings map[string][]models.Booking
	failDays map[string]error
	calls    int
}

func (f *fakeBookingStore) BookingsForDay(_ context.Context, day time.Time) ([]models.Booking, error) {
	f.calls++
	key := day.Format("2006-01-02")
	if err, ok := f.failDays[key]; ok {
		return nil, err
	}
	return f.bookings[key], nil
}

// fakeScheduleStore serves rule rows keyed by practitioner id.
type fakeScheduleStore struct {
	rules map[int64][]models.WorkingHoursRule
}

func (f *fakeScheduleStore) WorkingHours(_ context.Context, practitionerID int64) ([]models.WorkingHoursRule, error) {
	return f.rules[practitionerID], nil
}

func weekdayRules(practitionerID int64, start, end string) []models.WorkingHoursRule {
	var rules []models.WorkingHoursRule
	for day := 1; day <= 5; day++ {
		rules = append(rules, models.WorkingHoursRule{
			PractitionerID: practitionerID,
			DayOfWeek:      day,
			StartTime:      start,
			EndTime:        end,
			IsAvailable:    true,
		})
	}
	return rules
}

var (
	// 2026-09-15 is a Tuesday.
	tuesday = time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	// 2026-09-18 is a Friday, 19th Saturday, 20th Sunday.
	friday   = time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2026, 9, 19, 0, 0, 0, 0, time.UTC)

	drIvens = models.Practitioner{ID: 1, FullName: "Dr. Ivens", IsActive: true}
	drSilva = models.Practitioner{ID: 2, FullName: "Dr. Silva", IsActive: true}
	twoDocs = []models.Practitioner{drIvens, drSilva}
	oneDoc  = []models.Practitioner{drIvens}
)

func newTestEngine(bookings *fakeBookingStore, schedule *fakeScheduleStore) *Engine {
	return NewEngine(bookings, schedule, nil)
}

func bookingAt(practitionerID int64, day time.Time, clock string, durationMin int, status string) models.Booking {
	minutes, _ := models.ParseClock(clock)
	return models.Booking{
		PractitionerID:  practitionerID,
		StartTime:       models.ClockOnDate(day, minutes),
		DurationMinutes: durationMin,
		Status:          status,
	}
}

func slotFor(slots []models.TimeSlot, practitionerID int64, clock string) *models.TimeSlot {
	for i := range slots {
		if slots[i].PractitionerID == practitionerID && slots[i].Time == clock {
			return &slots[i]
		}
	}
	return nil
}

func TestListSlots_GridCompleteness(t *testing.T) {
	// Mon-Fri 09:00-18:00 covers 18 of the 20 grid positions: the 18:00
	// and 18:30 slots fall outside the half-open working window.
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "18:00"),
		2: weekdayRules(2, "09:00", "18:00"),
	}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	slots, err := engine.ListSlots(context.Background(), tuesday, twoDocs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 36 {
		t.Errorf("expected 36 slots (18 per practitioner), got %d", len(slots))
	}

	for _, s := range slots {
		if !s.Available {
			t.Errorf("slot %s for practitioner %d should be available with zero bookings", s.Time, s.PractitionerID)
		}
	}

	if slotFor(slots, 1, "18:00") != nil || slotFor(slots, 1, "18:30") != nil {
		t.Error("slots at or after 18:00 must not be emitted for a 09:00-18:00 rule")
	}
	if slotFor(slots, 1, "09:00") == nil || slotFor(slots, 1, "17:30") == nil {
		t.Error("expected slots at 09:00 and 17:30 within the working window")
	}
}

func TestListSlots_FullGridRule(t *testing.T) {
	// A rule spanning the whole grid exposes all 20 positions.
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "19:00"),
	}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	slots, err := engine.ListSlots(context.Background(), tuesday, oneDoc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 20 {
		t.Errorf("expected 20 slots, got %d", len(slots))
	}
}

func TestListSlots_OccupancyExclusivity(t *testing.T) {
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "18:00"),
		2: weekdayRules(2, "09:00", "18:00"),
	}}
	bookings := &fakeBookingStore{bookings: map[string][]models.Booking{
		"2026-09-15": {bookingAt(1, tuesday, "10:00", 30, models.StatusConfirmed)},
	}}
	engine := newTestEngine(bookings, schedule)

	slots, err := engine.ListSlots(context.Background(), tuesday, twoDocs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		practitionerID int64
		clock          string
		wantAvailable  bool
	}{
		{1, "10:00", false},
		{1, "09:30", true},
		{1, "10:30", true},
		{2, "10:00", true},
	}
	for _, c := range checks {
		s := slotFor(slots, c.practitionerID, c.clock)
		if s == nil {
			t.Fatalf("missing slot (%d, %s)", c.practitionerID, c.clock)
		}
		if s.Available != c.wantAvailable {
			t.Errorf("slot (%d, %s): available = %v, want %v", c.practitionerID, c.clock, s.Available, c.wantAvailable)
		}
	}
}

func TestListSlots_HalfOpenBoundary(t *testing.T) {
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "18:00"),
	}}
	bookings := &fakeBookingStore{bookings: map[string][]models.Booking{
		"2026-09-15": {bookingAt(1, tuesday, "10:00", 60, models.StatusConfirmed)},
	}}
	engine := newTestEngine(bookings, schedule)

	slots, err := engine.ListSlots(context.Background(), tuesday, oneDoc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A 10:00-11:00 booking occupies 10:00 and 10:30. The 11:00 slot,
	// exactly the booking's end, is free.
	for _, c := range []struct {
		clock string
		want  bool
	}{
		{"10:00", false},
		{"10:30", false},
		{"11:00", true},
	} {
		s := slotFor(slots, 1, c.clock)
		if s == nil {
			t.Fatalf("missing slot %s", c.clock)
		}
		if s.Available != c.want {
			t.Errorf("slot %s: available = %v, want %v", c.clock, s.Available, c.want)
		}
	}
}

func TestListSlots_CancelledBookingsAreInert(t *testing.T) {
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "18:00"),
	}}
	bookings := &fakeBookingStore{bookings: map[string][]models.Booking{
		"2026-09-15": {bookingAt(1, tuesday, "10:00", 30, models.StatusCancelled)},
	}}
	engine := newTestEngine(bookings, schedule)

	slots, err := engine.ListSlots(context.Background(), tuesday, oneDoc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := slotFor(slots, 1, "10:00")
	if s == nil {
		t.Fatal("missing slot 10:00")
	}
	if !s.Available {
		t.Error("cancelled booking must not occupy a slot")
	}
}

func TestListSlots_PractitionerFilter(t *testing.T) {
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "18:00"),
		2: weekdayRules(2, "09:00", "18:00"),
	}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	only := int64(2)
	slots, err := engine.ListSlots(context.Background(), tuesday, twoDocs, &only)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if s.PractitionerID != 2 {
			t.Fatalf("filter leaked practitioner %d into the listing", s.PractitionerID)
		}
	}
	if len(slots) != 18 {
		t.Errorf("expected 18 slots for one practitioner, got %d", len(slots))
	}
}

func TestListSlots_DayWithoutRuleEmitsNothing(t *testing.T) {
	// Explicit rules exist, but not for Tuesday: the practitioner is off
	// that day and contributes no slots, available or otherwise.
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: {{PractitionerID: 1, DayOfWeek: 1, StartTime: "09:00", EndTime: "18:00", IsAvailable: true}},
	}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	slots, err := engine.ListSlots(context.Background(), tuesday, oneDoc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots on an off day, got %d", len(slots))
	}
}

func TestListSlots_UnavailableRuleSkipsDay(t *testing.T) {
	rules := weekdayRules(1, "09:00", "18:00")
	rules[1].IsAvailable = false // Tuesday off
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{1: rules}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	slots, err := engine.ListSlots(context.Background(), tuesday, oneDoc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots when the day's rule is unavailable, got %d", len(slots))
	}
}

func TestListSlots_FallbackRule(t *testing.T) {
	// No rule rows at all: the generic Mon-Fri 09:00-18:00 schedule
	// applies.
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	slots, err := engine.ListSlots(context.Background(), tuesday, oneDoc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 18 {
		t.Errorf("expected 18 fallback slots on a Tuesday, got %d", len(slots))
	}

	slots, err = engine.ListSlots(context.Background(), saturday, oneDoc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("fallback rule must not cover Saturday, got %d slots", len(slots))
	}
}

func TestListSlots_Ordering(t *testing.T) {
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "10:00"),
		2: weekdayRules(2, "09:00", "10:00"),
	}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	slots, err := engine.ListSlots(context.Background(), tuesday, twoDocs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		practitionerID int64
		clock          string
	}{
		{1, "09:00"}, {1, "09:30"}, {2, "09:00"}, {2, "09:30"},
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, w := range want {
		if slots[i].PractitionerID != w.practitionerID || slots[i].Time != w.clock {
			t.Errorf("slot[%d] = (%d, %s), want (%d, %s)",
				i, slots[i].PractitionerID, slots[i].Time, w.practitionerID, w.clock)
		}
	}
}

func TestListSlots_StoreErrorPropagates(t *testing.T) {
	bookings := &fakeBookingStore{failDays: map[string]error{
		"2026-09-15": errors.New("backend unavailable"),
	}}
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "18:00"),
	}}
	engine := newTestEngine(bookings, schedule)

	if _, err := engine.ListSlots(context.Background(), tuesday, oneDoc, nil); err == nil {
		t.Fatal("expected error when the booking store read fails")
	}
}

func TestFindNextAvailableSlot_SkipsWeekends(t *testing.T) {
	// The practitioner's rules mark Saturday and Sunday available, yet
	// the search must never land on a weekend.
	rules := []models.WorkingHoursRule{
		{PractitionerID: 1, DayOfWeek: 0, StartTime: "09:00", EndTime: "18:00", IsAvailable: true},
		{PractitionerID: 1, DayOfWeek: 6, StartTime: "09:00", EndTime: "18:00", IsAvailable: true},
	}
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{1: rules}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	slot, _, err := engine.FindNextAvailableSlot(context.Background(), oneDoc, friday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot != nil {
		t.Errorf("weekend-only practitioner must yield no slot, got %s", slot.Time)
	}
}

func TestFindNextAvailableSlot_FindsMondayFromSaturday(t *testing.T) {
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "18:00"),
	}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	slot, day, err := engine.FindNextAvailableSlot(context.Background(), oneDoc, saturday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot == nil {
		t.Fatal("expected a slot on the following Monday")
	}
	if day.Weekday() != time.Monday {
		t.Errorf("expected Monday, got %s", day.Weekday())
	}
	if slot.Time != "09:00" {
		t.Errorf("expected the first grid slot 09:00, got %s", slot.Time)
	}
}

func TestFindNextAvailableSlot_SkipsFullyBookedDay(t *testing.T) {
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "10:00"),
	}}
	// Tuesday's two slots are taken; Wednesday is open.
	bookings := &fakeBookingStore{bookings: map[string][]models.Booking{
		"2026-09-15": {
			bookingAt(1, tuesday, "09:00", 30, models.StatusConfirmed),
			bookingAt(1, tuesday, "09:30", 30, models.StatusPending),
		},
	}}
	engine := newTestEngine(bookings, schedule)

	slot, day, err := engine.FindNextAvailableSlot(context.Background(), oneDoc, tuesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot == nil {
		t.Fatal("expected a slot on Wednesday")
	}
	if got := day.Format("2006-01-02"); got != "2026-09-16" {
		t.Errorf("expected 2026-09-16, got %s", got)
	}
	if slot.Time != "09:00" {
		t.Errorf("expected 09:00, got %s", slot.Time)
	}
}

func TestFindNextAvailableSlot_HorizonExhaustion(t *testing.T) {
	rules := weekdayRules(1, "09:00", "18:00")
	for i := range rules {
		rules[i].IsAvailable = false
	}
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{1: rules}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	slot, _, err := engine.FindNextAvailableSlot(context.Background(), oneDoc, tuesday)
	if err != nil {
		t.Fatalf("horizon exhaustion must not be an error, got %v", err)
	}
	if slot != nil {
		t.Errorf("expected no slot within the horizon, got %s", slot.Time)
	}
}

func TestFindNextAvailableSlot_FailSoftOnBadDay(t *testing.T) {
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "18:00"),
	}}
	// Tuesday's read fails; the search must carry on to Wednesday.
	bookings := &fakeBookingStore{failDays: map[string]error{
		"2026-09-15": errors.New("backend unavailable"),
	}}
	engine := newTestEngine(bookings, schedule)

	slot, day, err := engine.FindNextAvailableSlot(context.Background(), oneDoc, tuesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot == nil {
		t.Fatal("expected the search to recover on the next day")
	}
	if got := day.Format("2006-01-02"); got != "2026-09-16" {
		t.Errorf("expected 2026-09-16, got %s", got)
	}
}

func TestFindNextAvailableSlot_ContextCancelled(t *testing.T) {
	schedule := &fakeScheduleStore{rules: map[int64][]models.WorkingHoursRule{
		1: weekdayRules(1, "09:00", "18:00"),
	}}
	engine := newTestEngine(&fakeBookingStore{}, schedule)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := engine.FindNextAvailableSlot(ctx, oneDoc, tuesday); err == nil {
		t.Fatal("expected context error")
	}
}
