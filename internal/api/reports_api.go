package api

import (
	"encoding/json"
	"net/http"
	"time"

	"labdesk/internal/metrics"
	"labdesk/internal/models"
	"labdesk/internal/reports"
)

// handleDailyReport streams an Excel workbook with the day's schedule.
// GET /api/reports/daily?date=YYYY-MM-DD
func (s *HTTPServer) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := time.Now()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		var err error
		date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
	}

	practitioners, err := s.db.ActivePractitioners(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load practitioners")
		return
	}

	slots, err := s.engine.ListSlots(r.Context(), date, practitioners, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("slot listing failed for report")
		writeError(w, http.StatusInternalServerError, "failed to compute schedule")
		return
	}

	bookings, err := s.db.BookingsForDay(r.Context(), date)
	if err != nil {
		metrics.IncStoreError("bookings_for_day")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}

	report := reports.NewDailyReport()
	defer report.Close()

	for _, p := range practitioners {
		var own []models.Booking
		for _, b := range bookings {
			if b.PractitionerID == p.ID {
				own = append(own, b)
			}
		}
		if err := report.AddPractitioner(p, slots, own); err != nil {
			s.log.Error().Err(err).Int64("practitioner_id", p.ID).Msg("report sheet failed")
			writeError(w, http.StatusInternalServerError, "failed to build report")
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+reports.Filename(date))
	if err := report.Write(w); err != nil {
		s.log.Error().Err(err).Msg("failed to stream report")
	}
}

// SheetsExportRequest is the request body for POST /api/reports/sheets.
type SheetsExportRequest struct {
	Date string `json:"date"` // Format: YYYY-MM-DD
}

// handleSheetsExport pushes a day's schedule to the configured spreadsheet.
// POST /api/reports/sheets
func (s *HTTPServer) handleSheetsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if s.sheets == nil {
		writeError(w, http.StatusServiceUnavailable, "sheets export is not configured")
		return
	}

	var req SheetsExportRequest
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

	practitioners, err := s.db.ActivePractitioners(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load practitioners")
		return
	}
	bookings, err := s.db.BookingsForDay(r.Context(), date)
	if err != nil {
		metrics.IncStoreError("bookings_for_day")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}

	if err := s.sheets.ExportDay(r.Context(), date, practitioners, bookings); err != nil {
		s.log.Error().Err(err).Str("date", req.Date).Msg("sheets export failed")
		writeError(w, http.StatusBadGateway, "sheets export failed")
		return
	}

	s.log.Info().Str("date", req.Date).Int("bookings", len(bookings)).Msg("sheets export completed")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
