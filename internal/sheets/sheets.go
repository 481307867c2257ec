package sheets

import (
	"context"
	"fmt"
	"time"

	"labdesk/internal/models"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Exporter pushes a day's booking schedule to a Google Sheets spreadsheet,
// one sheet tab per day named by the date.
type Exporter struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// NewExporter creates an exporter using a service account credentials file.
func NewExporter(ctx context.Context, credentialsFile, spreadsheetID string) (*Exporter, error) {
	svc, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// ExportDay replaces the date's tab content with the day's active bookings.
func (e *Exporter) ExportDay(ctx context.Context, date time.Time, practitioners []models.Practitioner, bookings []models.Booking) error {
	tab := date.Format("2006-01-02")
	active := e.filterActiveBookings(bookings)

	names := make(map[int64]string, len(practitioners))
	for _, p := range practitioners {
		names[p.ID] = p.FullName
	}

	values := [][]any{
		{"Time", "Practitioner", "Patient", "Exam", "Status", "Created"},
	}
	for _, b := range active {
		values = append(values, bookingRowValues(&b, names[b.PractitionerID]))
	}

	if err := e.ensureTab(ctx, tab); err != nil {
		return err
	}

	clearRange := fmt.Sprintf("%s!A:Z", tab)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", tab, err)
	}

	body := &sheetsapi.ValueRange{Values: values}
	_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, fmt.Sprintf("%s!A1", tab), body).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet %s: %w", tab, err)
	}
	return nil
}

func (e *Exporter) ensureTab(ctx context.Context, title string) error {
	spreadsheet, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			}},
		},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	return nil
}

// filterActiveBookings drops cancelled bookings from the export.
func (e *Exporter) filterActiveBookings(bookings []models.Booking) []models.Booking {
	var active []models.Booking
	for _, b := range bookings {
		if b.IsCancelled() {
			continue
		}
		active = append(active, b)
	}
	return active
}

func bookingRowValues(b *models.Booking, practitionerName string) []any {
	return []any{
		b.StartTime.Format("15:04"),
		practitionerName,
		b.PatientName,
		b.ExamType,
		b.Status,
		b.CreatedAt.Format("2006-01-02 15:04"),
	}
}
