package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"travelone/internal/database"
	"travelone/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

// Exporter writes a hotel's bookings for a date range to an .xlsx file for
// the operations team.
type Exporter struct {
	db     *database.DB
	path   string
	logger zerolog.Logger
}

func New(db *database.DB, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		db:     db,
		path:   path,
		logger: logger.With().Str("component", "export").Logger(),
	}
}

// HotelBookings exports every booking whose stay intersects [start, end]
// and returns the written file path.
func (e *Exporter) HotelBookings(ctx context.Context, hotelID string, start, end time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	bookings, err := e.db.GetBookingsByDateRange(ctx, hotelID, start, end)
	if err != nil {
		return "", fmt.Errorf("load bookings: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		start.Format("02.01.2006"), end.Format("02.01.2006")))
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.MergeCell(sheetName, "A1", "H1")
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{"Booking ID", "Room", "Customer", "Check-in", "Check-out", "Guests", "Status", "Payment"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, booking := range bookings {
		row := i + 3
		paymentStatus := e.paymentStatus(ctx, booking.ID)

		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), booking.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.roomNumber(ctx, booking.RoomID))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), booking.CustomerID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), booking.CheckIn.Format("02.01.2006"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), booking.CheckOut.Format("02.01.2006"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), booking.Guests)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), booking.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), paymentStatus)

		if styleID, err := e.rowStyle(f, booking.Status); err == nil {
			_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("H%d", row), styleID)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "H", 16)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_%s_to_%s.xlsx",
		hotelID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}

	e.logger.Info().
		Str("file_path", filePath).
		Int("bookings", len(bookings)).
		Msg("bookings exported")
	return filePath, nil
}

func (e *Exporter) paymentStatus(ctx context.Context, bookingID string) string {
	payment, err := e.db.GetPaymentByBooking(ctx, bookingID)
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("%s %.2f/%.2f", payment.Status, payment.PaidAmount, payment.TotalAmount)
}

func (e *Exporter) roomNumber(ctx context.Context, roomID string) string {
	room, err := e.db.GetRoom(ctx, roomID)
	if err != nil {
		return roomID
	}
	return room.RoomNumber
}

func (e *Exporter) rowStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.BookingConfirmed, models.BookingCompleted:
		color = "#C6EFCE"
	case models.BookingPending:
		color = "#FFEB9C"
	case models.BookingCancelled:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
}
