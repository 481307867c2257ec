package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"labdesk/internal/database"
	"labdesk/internal/metrics"
	"labdesk/internal/models"
)

// CreateBookingRequest is the request body for POST /api/bookings.
type CreateBookingRequest struct {
	PractitionerID  int64  `json:"practitioner_id"`
	PatientName     string `json:"patient_name"`
	PatientPhone    string `json:"patient_phone,omitempty"`
	ExamType        string `json:"exam_type,omitempty"`
	Date            string `json:"date"` // Format: YYYY-MM-DD
	Time            string `json:"time"` // Format: HH:MM
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// BookingResponse is the response for booking mutations.
type BookingResponse struct {
	Success   bool   `json:"success"`
	BookingID int64  `json:"booking_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleBookings creates a booking.
// POST /api/bookings
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, BookingResponse{Error: "invalid JSON body"})
		return
	}

	if req.PractitionerID <= 0 {
		writeJSON(w, http.StatusBadRequest, BookingResponse{Error: "practitioner_id is required"})
		return
	}
	if req.PatientName == "" {
		writeJSON(w, http.StatusBadRequest, BookingResponse{Error: "patient_name is required"})
		return
	}
	if req.Date == "" || req.Time == "" {
		writeJSON(w, http.StatusBadRequest, BookingResponse{Error: "date and time are required"})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, BookingResponse{Error: "invalid date format; expected YYYY-MM-DD"})
		return
	}
	minutes, err := models.ParseClock(req.Time)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, BookingResponse{Error: "invalid time format; expected HH:MM"})
		return
	}
	start := models.ClockOnDate(date, minutes)

	now := time.Now()
	if start.Before(now.Add(s.minAdvance)) {
		writeJSON(w, http.StatusBadRequest, BookingResponse{Error: "slot is too soon to book"})
		return
	}
	if start.After(now.Add(s.maxAdvance)) {
		writeJSON(w, http.StatusBadRequest, BookingResponse{Error: "slot is too far in the future"})
		return
	}

	practitioner, err := s.db.GetPractitioner(r.Context(), req.PractitionerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, BookingResponse{Error: "practitioner not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, BookingResponse{Error: "failed to load practitioner"})
		return
	}

	free, err := s.engine.IsSlotFree(r.Context(), *practitioner, start)
	if err != nil {
		s.log.Error().Err(err).Int64("practitioner_id", practitioner.ID).Msg("availability check failed")
		writeJSON(w, http.StatusInternalServerError, BookingResponse{Error: "failed to check availability"})
		return
	}
	if !free {
		writeJSON(w, http.StatusConflict, BookingResponse{Error: "slot is not available"})
		return
	}

	booking := &models.Booking{
		PractitionerID:  req.PractitionerID,
		PatientName:     req.PatientName,
		PatientPhone:    req.PatientPhone,
		ExamType:        req.ExamType,
		StartTime:       start,
		DurationMinutes: req.DurationMinutes,
		Comment:         req.Comment,
	}
	if err := s.db.CreateBooking(r.Context(), booking); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			writeJSON(w, http.StatusConflict, BookingResponse{Error: "slot is not available"})
			return
		}
		s.log.Error().Err(err).
			Int64("practitioner_id", req.PractitionerID).
			Str("date", req.Date).
			Msg("failed to create booking")
		writeJSON(w, http.StatusInternalServerError, BookingResponse{Error: "failed to create booking"})
		return
	}

	metrics.IncBookingCreated(booking.Status)
	s.cache.invalidateDay(r.Context(), req.Date)

	s.log.Info().
		Int64("booking_id", booking.ID).
		Int64("practitioner_id", req.PractitionerID).
		Str("date", req.Date).
		Str("time", req.Time).
		Msg("booking created")

	writeJSON(w, http.StatusOK, BookingResponse{Success: true, BookingID: booking.ID})
}

// handleCancelBooking cancels a booking.
// DELETE /api/bookings/{id}
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/bookings/"
	idStr := r.URL.Path[len(prefix):]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.db.GetBooking(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load booking")
		return
	}

	if err := s.db.CancelBooking(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrAlreadyClosed) {
			writeError(w, http.StatusConflict, "booking already cancelled or completed")
			return
		}
		s.log.Error().Err(err).Int64("booking_id", id).Msg("failed to cancel booking")
		writeError(w, http.StatusInternalServerError, "failed to cancel booking")
		return
	}

	metrics.IncBookingCancelled()
	s.cache.invalidateDay(r.Context(), booking.StartTime.Format("2006-01-02"))

	s.log.Info().Int64("booking_id", id).Msg("booking cancelled")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
