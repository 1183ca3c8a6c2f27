// Package export builds Excel workbooks the bot sends as documents.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetPayments  = "Payments"
	sheetBookings  = "Bookings"
	sheetSummary   = "Summary"
	sheetDemand    = "Service demand"
	defaultSheet   = "Sheet1"
	timestampStyle = "2006-01-02 15:04"
)

// Payments renders a customer's payment history.
func Payments(payments []models.Payment, loc *time.Location) ([]byte, error) {
	headers := []string{"Service", "Booking", "Amount", "Currency", "Transaction", "Tracking", "Paid at"}
	rows := make([][]interface{}, 0, len(payments))
	total := 0.0
	for _, p := range payments {
		amount := p.Amount.InexactFloat64()
		total += amount
		rows = append(rows, []interface{}{
			p.ServiceName, p.BookingID, amount, p.Currency, p.TransactionID, p.TrackingID, formatTime(p.PaidAt, loc),
		})
	}
	rows = append(rows, []interface{}{"Total", "", total})

	return build(func(f *excelize.File) error {
		return writeTable(f, sheetPayments, headers, rows)
	})
}

// Bookings renders a booking list in lifecycle order.
func Bookings(bookings []models.Booking) ([]byte, error) {
	sorted := append([]models.Booking(nil), bookings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Time < sorted[j].Time
	})

	headers := []string{"ID", "Service", "Customer", "Date", "Time", "Type", "Location", "Units", "Cost", "Payment", "Status", "Decorator"}
	rows := make([][]interface{}, 0, len(sorted))
	for _, b := range sorted {
		rows = append(rows, []interface{}{
			b.ID, b.ServiceName, b.CustomerEmail, b.Date, b.Time, string(b.ServiceType), b.Location,
			b.TotalUnit, b.TotalCost.InexactFloat64(), string(b.PaymentStatus), b.Status.Label(), b.DecoratorName,
		})
	}

	return build(func(f *excelize.File) error {
		return writeTable(f, sheetBookings, headers, rows)
	})
}

// Analytics renders the admin summary, the status breakdown and the
// service-demand histogram with a chart.
func Analytics(a *models.Analytics) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("no analytics data")
	}

	summary := [][]interface{}{
		{"Total bookings", a.TotalBookings},
		{"Paid bookings", a.PaidBookings},
		{"Revenue", a.TotalRevenue.InexactFloat64()},
		{"Users", a.TotalUsers},
		{"Decorators", a.TotalDecorators},
		{},
		{"Status", "Bookings"},
	}
	for _, st := range lifecycle.AllStatuses() {
		summary = append(summary, []interface{}{st.Label(), a.StatusBreakdown[string(st)]})
	}

	demand := make([][]interface{}, 0, len(a.ServiceDemand))
	for _, d := range a.ServiceDemand {
		demand = append(demand, []interface{}{d.ServiceName, d.Bookings, d.Revenue.InexactFloat64()})
	}

	return build(func(f *excelize.File) error {
		if err := writeTable(f, sheetSummary, []string{"Metric", "Value"}, summary); err != nil {
			return err
		}
		if err := writeTable(f, sheetDemand, []string{"Service", "Bookings", "Revenue"}, demand); err != nil {
			return err
		}
		if len(demand) == 0 {
			return nil
		}
		last := len(demand) + 1
		return f.AddChart(sheetDemand, "E2", &excelize.Chart{
			Type: excelize.Col,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("'%s'!$B$1", sheetDemand),
				Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheetDemand, last),
				Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheetDemand, last),
			}},
			Title: []excelize.RichTextRun{{Text: "Bookings per service"}},
		})
	})
}

// Save writes data under dir and returns the file path.
func Save(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

// FileName builds a timestamped workbook name like payments_2025-05-01_090000.xlsx.
func FileName(kind string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", kind, now.Format("2006-01-02_150405"))
}

func build(fill func(f *excelize.File) error) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := fill(f); err != nil {
		return nil, err
	}
	// Удаляем стандартный лист
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", lastCol, 20)
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(timestampStyle)
}
