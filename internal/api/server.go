package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"labdesk/internal/availability"
	"labdesk/internal/database"
	"labdesk/internal/metrics"
	"labdesk/internal/sheets"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options configures the HTTP server.
type Options struct {
	Port       int
	APIKey     string
	RateRPS    int
	RateBurst  int
	MinAdvance time.Duration
	MaxAdvance time.Duration
	Redis      *redis.Client
	CacheTTL   time.Duration
	Sheets     *sheets.Exporter
}

// HTTPServer serves the scheduling API.
type HTTPServer struct {
	server     *http.Server
	db         *database.DB
	engine     *availability.Engine
	log        *zerolog.Logger
	apiKey     string
	limiter    *rate.Limiter
	cache      *responseCache
	minAdvance time.Duration
	maxAdvance time.Duration
	sheets     *sheets.Exporter
}

// NewHTTPServer wires routes and middleware.
func NewHTTPServer(db *database.DB, engine *availability.Engine, opts Options, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		db:         db,
		engine:     engine,
		log:        logger,
		apiKey:     opts.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateRPS), opts.RateBurst),
		cache:      newResponseCache(opts.Redis, opts.CacheTTL),
		minAdvance: opts.MinAdvance,
		maxAdvance: opts.MaxAdvance,
		sheets:     opts.Sheets,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/slots", s.wrap("slots", s.handleSlots))
	mux.HandleFunc("/api/slots/next", s.wrap("slots_next", s.handleNextSlot))
	mux.HandleFunc("/api/practitioners", s.wrap("practitioners", s.handlePractitioners))
	mux.HandleFunc("/api/bookings", s.wrap("bookings", s.handleBookings))
	mux.HandleFunc("/api/bookings/", s.wrap("cancel_booking", s.handleCancelBooking))
	mux.HandleFunc("/api/reports/daily", s.wrap("report_daily", s.handleDailyReport))
	mux.HandleFunc("/api/reports/sheets", s.wrap("report_sheets", s.handleSheetsExport))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the server until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// wrap applies the cross-cutting middleware: request id, rate limit,
// API key check, metrics and request logging.
func (s *HTTPServer) wrap(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		metrics.IncHTTP(endpoint)

		start := time.Now()
		h(w, r)

		s.log.Debug().
			Str("request_id", requestID).
			Str("endpoint", endpoint).
			Str("method", r.Method).
			Dur("took", time.Since(start)).
			Msg("request handled")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
