package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/you/go-airfare-oracle/internal/service"
)

var columns = []struct {
	title string
	width float64
}{
	{"#", 8},
	{"Traveler", 52},
	{"Route", 58},
	{"Departure", 24},
	{"Return", 24},
	{"Airlines", 54},
	{"Price", 257 - 8 - 52 - 58 - 24 - 24 - 54},
}

// TripsPDF renders a landscape table of priced business trips.
func TripsPDF(plans []service.TripPlan, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFillColor(13, 24, 37)
	pdf.Rect(0, 0, 297, 24, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(20, 7)
	pdf.CellFormat(180, 10, "Business trip fare forecast", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(200, 9)
	pdf.CellFormat(77, 6, "Generated "+generatedAt.Format("02 Jan 2006, 15:04 MST"), "", 0, "R", false, 0, "")

	pdf.SetY(32)
	pdf.SetTextColor(130, 90, 20)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(257, 4, "Prices are model predictions including service markup, not booking confirmations.", "", "L", false)
	pdf.Ln(3)

	header := func() {
		pdf.SetFillColor(13, 24, 37)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 9)
		for _, c := range columns {
			pdf.CellFormat(c.width, 8, c.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}
	header()

	var total float64
	priced := 0
	pdf.SetFont("Helvetica", "", 9)
	for i, p := range plans {
		if pdf.GetY() > 180 {
			pdf.AddPage()
			header()
			pdf.SetFont("Helvetica", "", 9)
		}
		airlines, price := p.Airlines, fmt.Sprintf("%.2f", p.Price)
		pdf.SetTextColor(20, 20, 20)
		if p.Error != "" {
			airlines, price = p.Error, "-"
			pdf.SetTextColor(170, 30, 30)
		} else {
			total += p.Price
			priced++
		}
		fill := i%2 == 1
		pdf.SetFillColor(242, 244, 247)
		cells := []string{
			fmt.Sprintf("%d", p.Trip.Row),
			p.Trip.Name,
			p.Trip.Origin + " - " + p.Trip.Destination,
			p.Trip.DepartureDate,
			p.Trip.ReturnDate,
			airlines,
			price,
		}
		for ci, c := range columns {
			pdf.CellFormat(c.width, 7, tr(truncate(pdf, cells[ci], c.width-2)), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(257, 7, fmt.Sprintf("Priced trips: %d of %d    Total: %.2f", priced, len(plans), total), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render trips pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
