package api

import (
	"encoding/json"
	"net/http"
	"time"

	"labdesk/internal/models"
)

// SlotsRequest is the request body for POST /api/slots.
type SlotsRequest struct {
	Date           string `json:"date"`                      // Format: YYYY-MM-DD
	PractitionerID *int64 `json:"practitioner_id,omitempty"` // Optional: restrict to one practitioner
}

// SlotsResponse is the response for POST /api/slots.
type SlotsResponse struct {
	Date  string            `json:"date"`
	Slots []models.TimeSlot `json:"slots"`
}

// NextSlotResponse is the response for GET /api/slots/next.
type NextSlotResponse struct {
	Found bool             `json:"found"`
	Date  string           `json:"date,omitempty"`
	Slot  *models.TimeSlot `json:"slot,omitempty"`
}

// handleSlots returns the slot grid for a day.
// POST /api/slots
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req SlotsRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	cacheKey := slotsCacheKey(req.Date, req.PractitionerID)
	var cached SlotsResponse
	if s.cache.read(r.Context(), cacheKey, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	practitioners, err := s.db.ActivePractitioners(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load practitioners")
		writeError(w, http.StatusInternalServerError, "failed to load practitioners")
		return
	}

	slots, err := s.engine.ListSlots(r.Context(), date, practitioners, req.PractitionerID)
	if err != nil {
		// Fail open: an unreadable day is presented as having no slots
		// rather than breaking the scheduling surface.
		s.log.Error().Err(err).Str("date", req.Date).Msg("slot listing failed")
		writeJSON(w, http.StatusOK, SlotsResponse{Date: req.Date, Slots: []models.TimeSlot{}})
		return
	}
	if slots == nil {
		slots = []models.TimeSlot{}
	}

	resp := SlotsResponse{Date: req.Date, Slots: slots}
	s.cache.write(r.Context(), cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleNextSlot finds the earliest open slot across all practitioners.
// GET /api/slots/next?from=YYYY-MM-DD
func (s *HTTPServer) handleNextSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from := time.Now()
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		var err error
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from format; expected YYYY-MM-DD")
			return
		}
	}

	practitioners, err := s.db.ActivePractitioners(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load practitioners")
		writeError(w, http.StatusInternalServerError, "failed to load practitioners")
		return
	}

	slot, day, err := s.engine.FindNextAvailableSlot(r.Context(), practitioners, from)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search aborted")
		return
	}
	if slot == nil {
		writeJSON(w, http.StatusOK, NextSlotResponse{Found: false})
		return
	}

	writeJSON(w, http.StatusOK, NextSlotResponse{
		Found: true,
		Date:  day.Format("2006-01-02"),
		Slot:  slot,
	})
}

// handlePractitioners returns the active roster.
// GET /api/practitioners
func (s *HTTPServer) handlePractitioners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	practitioners, err := s.db.ActivePractitioners(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load practitioners")
		writeError(w, http.StatusInternalServerError, "failed to load practitioners")
		return
	}
	if practitioners == nil {
		practitioners = []models.Practitioner{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"practitioners": practitioners})
}
