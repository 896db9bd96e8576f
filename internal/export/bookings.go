package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"carrental/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName   = "Bookings"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{"ID", "Username", "Email", "Car", "Type", "Start Date", "End Date", "Days", "Price/Day", "Total", "Created At"}

// Row is one booking joined with its car and owner. Car or User may be nil
// when the reference no longer resolves.
type Row struct {
	Booking *models.Booking
	Car     *models.Car
	User    *models.User
}

// Exporter renders booking reports as .xlsx workbooks and, when Dir is set,
// keeps a copy of every report on disk.
type Exporter struct {
	Dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{Dir: dir, logger: logger}
}

// FileName is the report name for a given generation time.
func FileName(now time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", now.Format("20060102_150405"))
}

// Write streams the workbook to w.
func (e *Exporter) Write(w io.Writer, rows []Row, now time.Time) error {
	f, err := build(rows, now)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// Save writes the workbook into Dir and returns its path.
func (e *Exporter) Save(rows []Row, now time.Time) (string, error) {
	if e.Dir == "" {
		return "", fmt.Errorf("export directory is not configured")
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := build(rows, now)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(e.Dir, FileName(now))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", path).Int("rows", len(rows)).Msg("Excel file created")
	return path, nil
}

func build(rows []Row, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	// Заголовок отчета
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Bookings report generated %s", now.Format("2006-01-02 15:04")))
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	writeHeaders(f)

	var grandTotal float64
	for i, row := range rows {
		grandTotal += writeRow(f, i+3, row)
	}

	totalRow := len(rows) + 3
	labelCell, _ := excelize.CoordinatesToCellName(len(headers)-2, totalRow)
	totalCell, _ := excelize.CoordinatesToCellName(len(headers)-1, totalRow)
	_ = f.SetCellValue(sheetName, labelCell, "Total")
	_ = f.SetCellValue(sheetName, totalCell, grandTotal)
	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheetName, labelCell, totalCell, boldStyle)

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", lastCol, 18)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeHeaders(f *excelize.File) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
	}
}

// writeRow fills one booking line and returns its total price.
func writeRow(f *excelize.File, rowNum int, row Row) float64 {
	b := row.Booking
	days := b.Days()

	var username, email, carName, carType string
	var price float64
	if row.User != nil {
		username, email = row.User.Username, row.User.Email
	}
	if row.Car != nil {
		carName, carType, price = row.Car.DisplayName(), row.Car.Type, row.Car.PricePerDay
	}
	total := price * float64(days)

	values := []any{
		b.ID, username, email, carName, carType,
		models.FormatDate(b.StartDate), models.FormatDate(b.EndDate),
		days, price, total, b.CreatedAt.Format("2006-01-02 15:04"),
	}
	cell, _ := excelize.CoordinatesToCellName(1, rowNum)
	_ = f.SetSheetRow(sheetName, cell, &values)
	return total
}
