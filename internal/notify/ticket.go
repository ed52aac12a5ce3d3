package notify

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

// TicketData carries everything a confirmed booking ticket shows.
type TicketData struct {
	BookingID       int64
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	Origin          string
	Destination     string
	DepartureAt     time.Time
	ArrivalAt       time.Time
	Seats           []int
	SeatsBooked     int
	TotalPriceCents int64
	PaymentType     string
	PaymentRef      string
}

// BuildTicketPDF renders the booking ticket as a PDF document.
func BuildTicketPDF(d TicketData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bus Ticket", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Passenger")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 12)
	writeLines(pdf, []string{
		fmt.Sprintf("Booking ID : %d", d.BookingID),
		fmt.Sprintf("Name       : %s", orDash(d.CustomerName)),
		fmt.Sprintf("Phone      : %s", orDash(d.CustomerPhone)),
	})

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Journey")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 12)
	writeLines(pdf, []string{
		fmt.Sprintf("Route      : %s -> %s", orDash(d.Origin), orDash(d.Destination)),
		fmt.Sprintf("Departure  : %s", d.DepartureAt.Format("02 Jan 2006 15:04")),
		fmt.Sprintf("Arrival    : %s", d.ArrivalAt.Format("02 Jan 2006 15:04")),
	})

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Seats")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 12)
	writeLines(pdf, []string{
		fmt.Sprintf("Seats      : %s", seatLabels(d.Seats)),
		fmt.Sprintf("Count      : %d", d.SeatsBooked),
	})

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Payment")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 12)
	payment := []string{
		fmt.Sprintf("Total      : %.2f", float64(d.TotalPriceCents)/100),
		fmt.Sprintf("Method     : %s", orDash(d.PaymentType)),
	}
	if d.PaymentRef != "" {
		payment = append(payment, fmt.Sprintf("Reference  : %s", d.PaymentRef))
	}
	writeLines(pdf, payment)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeLines(pdf *gofpdf.Fpdf, lines []string) {
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
}

func seatLabels(seats []int) string {
	if len(seats) == 0 {
		return "-"
	}
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
