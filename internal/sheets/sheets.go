package sheets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

// Column layout of a business trip sheet; the first row is a header.
const (
	colLastName = iota
	colFirstName
	colMiddleName
	colOrigin
	colDestination
	colDeparture
	colReturn
	columnCount
)

// Trip is one business trip row.
type Trip struct {
	Row           int    `json:"row"`
	Name          string `json:"name"`
	Origin        string `json:"departure_city"`
	Destination   string `json:"destination_city"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"back_date"`
}

var ErrUnsupportedFormat = errors.New("unsupported file format, use .xlsx or .csv")

// Parse reads trips from an .xlsx or .csv upload, picked by file extension.
func Parse(r io.Reader, filename string) ([]Trip, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readXLSX(r)
	case ".csv":
		rows, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return tripsFromRows(rows)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	// Raw values keep date cells as serial numbers instead of locale formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func tripsFromRows(rows [][]string) ([]Trip, error) {
	trips := make([]Trip, 0, len(rows))
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue
		}
		rowNum := i + 1
		if len(row) < columnCount {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", rowNum, columnCount, len(row))
		}

		name := joinNonEmpty(row[colLastName], row[colFirstName], row[colMiddleName])
		origin := strings.TrimSpace(row[colOrigin])
		dest := strings.TrimSpace(row[colDestination])
		if origin == "" || dest == "" {
			return nil, fmt.Errorf("row %d: departure and destination cities are required", rowNum)
		}
		dep, err := parseDate(row[colDeparture])
		if err != nil {
			return nil, fmt.Errorf("row %d: departure date: %w", rowNum, err)
		}
		ret, err := parseDate(row[colReturn])
		if err != nil {
			return nil, fmt.Errorf("row %d: return date: %w", rowNum, err)
		}

		trips = append(trips, Trip{
			Row:           rowNum,
			Name:          name,
			Origin:        origin,
			Destination:   dest,
			DepartureDate: dep,
			ReturnDate:    ret,
		})
	}
	return trips, nil
}

var dateLayouts = []string{
	dateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02.01.2006",
}

func parseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("missing")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return "", fmt.Errorf("bad serial date %q: %w", s, err)
		}
		return t.Format(dateLayout), nil
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
