package reports

import (
	"fmt"
	"io"
	"time"

	"labdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

// DailyReport builds an Excel workbook for one day's schedule: one sheet
// per practitioner, one row per grid slot, with booking details on
// occupied rows.
type DailyReport struct {
	file       *excelize.File
	firstSheet bool
}

// NewDailyReport creates an empty report.
func NewDailyReport() *DailyReport {
	return &DailyReport{file: excelize.NewFile(), firstSheet: true}
}

// AddPractitioner writes a practitioner's slot grid as a sheet. The
// bookings slice should contain that practitioner's bookings for the day;
// slots the practitioner's slot listing for the same day.
func (r *DailyReport) AddPractitioner(p models.Practitioner, slots []models.TimeSlot, bookings []models.Booking) error {
	name := sheetName(p.FullName)

	if r.firstSheet {
		r.file.SetSheetName("Sheet1", name)
		r.firstSheet = false
	} else {
		if _, err := r.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headers := []string{"Time", "Status", "Patient", "Exam", "Phone"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := r.file.SetCellValue(name, cell, h); err != nil {
			return err
		}
	}

	if style, err := r.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = r.file.SetCellStyle(name, startCell, endCell, style)
	}

	row := 2
	for _, slot := range slots {
		if slot.PractitionerID != p.ID {
			continue
		}
		values := []any{slot.Time, "free", "", "", ""}
		if !slot.Available {
			if b := bookingAt(bookings, slot.Time); b != nil {
				values = []any{slot.Time, b.Status, b.PatientName, b.ExamType, b.PatientPhone}
			} else {
				values[1] = "booked"
			}
		}
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := r.file.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
		row++
	}
	return nil
}

// Write streams the workbook.
func (r *DailyReport) Write(w io.Writer) error {
	return r.file.Write(w)
}

// Close releases resources.
func (r *DailyReport) Close() error {
	return r.file.Close()
}

// Filename returns the conventional attachment name for a date.
func Filename(date time.Time) string {
	return fmt.Sprintf("schedule-%s.xlsx", date.Format("2006-01-02"))
}

func bookingAt(bookings []models.Booking, clock string) *models.Booking {
	for i := range bookings {
		if bookings[i].IsCancelled() {
			continue
		}
		if bookings[i].StartTime.Format("15:04") == clock {
			return &bookings[i]
		}
	}
	return nil
}

// sheetName truncates to the 31-character Excel sheet name limit.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
