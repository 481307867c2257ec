package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdesk/internal/models"
)

type mockStore struct {
	mu       sync.Mutex
	upcoming []models.Booking
	loadErr  error
	marked   []int64
	markErr  error
}

func (m *mockStore) UpcomingBookings(_ context.Context, _ time.Duration) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.upcoming, nil
}

func (m *mockStore) MarkReminderSent(_ context.Context, bookingID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, bookingID)
	return nil
}

type mockNotifier struct {
	mu      sync.Mutex
	sent    []int64
	sendErr error
}

func (m *mockNotifier) SendReminder(_ context.Context, booking models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, booking.ID)
	return nil
}

func newTestService(store *mockStore, notifier *mockNotifier) *Service {
	logger := zerolog.Nop()
	return NewService(Config{SendHour: 9}, store, notifier, &logger)
}

func TestRunOnceSendsAndMarks(t *testing.T) {
	store := &mockStore{upcoming: []models.Booking{
		{ID: 1, PatientName: "A", StartTime: time.Now().Add(3 * time.Hour)},
		{ID: 2, PatientName: "B", StartTime: time.Now().Add(5 * time.Hour)},
	}}
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	svc.RunOnce(context.Background())

	assert.Equal(t, []int64{1, 2}, notifier.sent)
	assert.Equal(t, []int64{1, 2}, store.marked)
}

func TestRunOnceSkipsAlreadyRemindedAndCancelled(t *testing.T) {
	store := &mockStore{upcoming: []models.Booking{
		{ID: 1, ReminderSent: true},
		{ID: 2, Status: models.StatusCancelled},
		{ID: 3},
	}}
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	svc.RunOnce(context.Background())

	assert.Equal(t, []int64{3}, notifier.sent)
	assert.Equal(t, []int64{3}, store.marked)
}

func TestRunOnceNotifierFailureDoesNotMark(t *testing.T) {
	store := &mockStore{upcoming: []models.Booking{{ID: 1}}}
	notifier := &mockNotifier{sendErr: errors.New("telegram down")}
	svc := newTestService(store, notifier)

	svc.RunOnce(context.Background())

	assert.Empty(t, notifier.sent)
	assert.Empty(t, store.marked)
}

func TestRunOnceLoadFailure(t *testing.T) {
	store := &mockStore{loadErr: errors.New("db down")}
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	// Must not panic or notify anything.
	svc.RunOnce(context.Background())
	assert.Empty(t, notifier.sent)
}

func TestRunOnceMarkFailureStillContinues(t *testing.T) {
	store := &mockStore{
		upcoming: []models.Booking{{ID: 1}, {ID: 2}},
		markErr:  errors.New("write failed"),
	}
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	svc.RunOnce(context.Background())

	// Notifications still go out even when the flag write fails.
	assert.Equal(t, []int64{1, 2}, notifier.sent)
}

func TestConfigDefaults(t *testing.T) {
	logger := zerolog.Nop()
	svc := NewService(Config{SendHour: 99}, &mockStore{}, &mockNotifier{}, &logger)
	assert.Equal(t, 9, svc.config.SendHour)
	assert.Equal(t, 25*time.Hour, svc.config.LookAhead)
}

func TestStartStopIdempotent(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store, &mockNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.Start(ctx)
	svc.Start(ctx) // second start is a no-op
	svc.Stop()
	svc.Stop() // second stop is a no-op
}

func TestTimeUntilNextHour(t *testing.T) {
	d := timeUntilNextHour(9)
	require.Greater(t, d, time.Duration(0))
	assert.LessOrEqual(t, d, 24*time.Hour)
}
