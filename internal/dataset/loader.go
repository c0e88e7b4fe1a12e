package dataset

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"RebarForecast/internal/model"
)

// dateLayouts are the textual date formats accepted in the date column.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
}

// FileSource reads xlsx and csv files.
type FileSource struct {
	Columns Columns
	Sheet   string
	log     zerolog.Logger
}

// NewFileSource creates a FileSource. Empty column names fall back to DefaultColumns.
func NewFileSource(cols Columns, sheet string, log zerolog.Logger) *FileSource {
	if cols.Date == "" {
		cols.Date = DefaultColumns.Date
	}
	if cols.Price == "" {
		cols.Price = DefaultColumns.Price
	}
	return &FileSource{Columns: cols, Sheet: sheet, log: log}
}

func (s *FileSource) Name() string { return "file" }

// Load returns the observations of path sorted ascending by date. Rows with
// an empty or unparsable cell are skipped.
func (s *FileSource) Load(path string) ([]model.PricePoint, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset %s: %w: %w", path, model.ErrArtifactIO, err)
	}
	reader, err := readerFor(path, s.Sheet)
	if err != nil {
		return nil, err
	}
	rows, err := reader.ReadRows(path)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}

	points, skipped, err := parseRows(rows, s.Columns)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	if skipped > 0 {
		s.log.Warn().Str("path", path).Int("skipped", skipped).Msg("skipped unparsable rows")
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("dataset %s: %w: no usable rows", path, model.ErrInvalidInput)
	}
	s.log.Debug().Str("path", path).Int("rows", len(points)).Msg("dataset loaded")
	return points, nil
}

func parseRows(rows [][]string, cols Columns) ([]model.PricePoint, int, error) {
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%w: empty file", model.ErrInvalidInput)
	}
	dateIdx, priceIdx, err := locateColumns(rows[0], cols)
	if err != nil {
		return nil, 0, err
	}

	var (
		points  []model.PricePoint
		skipped int
	)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		if dateIdx >= len(row) || priceIdx >= len(row) {
			skipped++
			continue
		}
		date, err := ParseDate(row[dateIdx])
		if err != nil {
			skipped++
			continue
		}
		price, err := ParsePrice(row[priceIdx])
		if err != nil {
			skipped++
			continue
		}
		points = append(points, model.PricePoint{Date: date, Price: price})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, skipped, nil
}

func locateColumns(header []string, cols Columns) (dateIdx, priceIdx int, err error) {
	dateIdx = indexOf(header, cols.Date)
	if dateIdx < 0 {
		dateIdx = indexOf(header, fallbackColumns.Date)
	}
	priceIdx = indexOf(header, cols.Price)
	if priceIdx < 0 {
		priceIdx = indexOf(header, fallbackColumns.Price)
	}
	if dateIdx < 0 || priceIdx < 0 {
		return -1, -1, fmt.Errorf("%w: header must contain %q and %q columns", model.ErrInvalidInput, cols.Date, cols.Price)
	}
	return dateIdx, priceIdx, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseDate parses an Excel serial number or a textual date and returns the
// civil date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return model.CivilDate(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.CivilDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParsePrice parses a price written with optional digit grouping spaces and
// a decimal comma.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, errors.New("empty price")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %s", d)
	}
	return d, nil
}
