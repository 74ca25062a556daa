// Package report renders operator booking exports as xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirinyoku/venue-go/internal/domain"
)

const (
	SheetName   = "Reservations"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type column struct {
	header string
	width  float64
}

var columns = []column{
	{"Reservation ID", 14},
	{"Customer", 22},
	{"Email", 28},
	{"Venue", 25},
	{"Event Type", 18},
	{"Start Date", 13},
	{"End Date", 13},
	{"Total", 14},
	{"Status", 12},
	{"Payment", 10},
	{"Created At", 20},
}

// FileName is the attachment name of the export for one month.
func FileName(month, year int) string {
	return fmt.Sprintf("reservations_%d_%02d.xlsx", year, month)
}

// WriteReservations writes rows as a single-sheet workbook with a bold
// header row. Totals are in major units.
func WriteReservations(w io.Writer, rows []domain.ReservationReportRow) error {
	const op = "report.WriteReservations"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		if err := f.SetColWidth(SheetName, name, name, c.width); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		values := []any{
			r.ReservationID,
			r.CustomerName,
			r.Email,
			r.ResourceTitle,
			r.EventType,
			r.Range.Start.Format("2006-01-02"),
			r.Range.End.Format("2006-01-02"),
			float64(r.TotalCents) / 100,
			statusLabel(r.Approval),
			string(r.Payment),
			r.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	if len(rows) > 0 {
		money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		last := fmt.Sprintf("H%d", len(rows)+1)
		if err := f.SetCellStyle(SheetName, "H2", last, money); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func statusLabel(s domain.ApprovalStatus) string {
	switch s {
	case domain.ApprovalApproved:
		return "Approved"
	case domain.ApprovalRejected:
		return "Rejected"
	default:
		return "Pending"
	}
}
