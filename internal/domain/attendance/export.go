package attendance

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const historySheet = "Work History"

var historyHeader = []any{"Date", "Location", "Clock In", "Clock Out", "Hours", "Status", "Late"}

// WriteWorkHistoryXLSX renders h as a single-sheet workbook. Times are shown
// in zone.
func WriteWorkHistoryXLSX(w io.Writer, h WorkHistory, zone *time.Location) error {
	if zone == nil {
		zone = time.UTC
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return err
	}

	row := 2
	for _, rec := range h.Records {
		in := rec.ClockInTime.In(zone)
		out := ""
		hours := ""
		if rec.ClockOutTime != nil {
			out = rec.ClockOutTime.In(zone).Format("15:04")
		}
		if rec.TotalHours != nil {
			hours = rec.TotalHours.StringFixed(2)
		}
		values := []any{in.Format(time.DateOnly), rec.LocationName, in.Format("15:04"), out, hours, rec.Status(), rec.LateStatus()}
		if err := f.SetSheetRow(historySheet, cell(1, row), &values); err != nil {
			return err
		}
		row++
	}

	row++
	summary := [][]any{
		{"Total Hours", h.TotalHours.StringFixed(2)},
		{"Days Worked", h.DaysWorked},
		{"Average Hours / Day", h.AverageHoursPerDay.StringFixed(2)},
	}
	for _, values := range summary {
		values := values
		if err := f.SetSheetRow(historySheet, cell(1, row), &values); err != nil {
			return err
		}
		row++
	}

	if err := f.SetColWidth(historySheet, "A", "G", 16); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
