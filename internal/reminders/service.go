package reminders

import (
	"context"
	"sync"
	"time"

	"labdesk/internal/metrics"
	"labdesk/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// BookingStore provides access to bookings for the reminder service.
type BookingStore interface {
	// UpcomingBookings returns non-cancelled bookings starting within the
	// window that have not had reminders sent yet.
	UpcomingBookings(ctx context.Context, within time.Duration) ([]models.Booking, error)

	// MarkReminderSent flags a booking as reminded.
	MarkReminderSent(ctx context.Context, bookingID int64) error
}

// Notifier delivers reminder notifications.
type Notifier interface {
	SendReminder(ctx context.Context, booking models.Booking) error
}

// Config holds reminder service settings.
type Config struct {
	// SendHour is the local hour of day the daily pass runs at.
	SendHour int

	// LookAhead is how far forward bookings are collected.
	// Default: 25 hours, so next-day bookings are caught with a buffer.
	LookAhead time.Duration
}

// Service sends next-day booking reminders once per day.
type Service struct {
	config   Config
	bookings BookingStore
	notifier Notifier
	logger   *zerolog.Logger
	limiter  *rate.Limiter

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewService creates a reminder service.
func NewService(config Config, bookings BookingStore, notifier Notifier, logger *zerolog.Logger) *Service {
	if config.SendHour <= 0 || config.SendHour > 23 {
		config.SendHour = 9
	}
	if config.LookAhead <= 0 {
		config.LookAhead = 25 * time.Hour
	}
	return &Service{
		config:   config,
		bookings: bookings,
		notifier: notifier,
		logger:   logger,
		// Telegram tolerates ~30 msg/s to a chat; stay well under.
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		stopCh:  make(chan struct{}),
	}
}

// Start begins the daily reminder loop.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info().Int("send_hour", s.config.SendHour).Msg("reminder service started")
}

// Stop gracefully stops the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("reminder service stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(timeUntilNextHour(s.config.SendHour))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(24 * time.Hour)
		}
	}
}

// RunOnce triggers an immediate reminder pass, mainly for tests.
func (s *Service) RunOnce(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Service) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	bookings, err := s.bookings.UpcomingBookings(ctx, s.config.LookAhead)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load upcoming bookings")
		return
	}
	if len(bookings) == 0 {
		return
	}

	s.logger.Debug().Int("count", len(bookings)).Msg("sending booking reminders")

	for _, booking := range bookings {
		if booking.ReminderSent || booking.IsCancelled() {
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		if err := s.notifier.SendReminder(ctx, booking); err != nil {
			metrics.IncReminderSent("error")
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("failed to send reminder")
			continue
		}

		if err := s.bookings.MarkReminderSent(ctx, booking.ID); err != nil {
			// The notification went out; only the flag write failed.
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("failed to mark reminder sent")
		}

		metrics.IncReminderSent("ok")
	}
}

// timeUntilNextHour returns the duration until the next occurrence of the
// given local hour.
func timeUntilNextHour(hour int) time.Duration {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
