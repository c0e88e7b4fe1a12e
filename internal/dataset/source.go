package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"RebarForecast/internal/model"
)

// Source loads a price series from a file.
type Source interface {
	Load(path string) ([]model.PricePoint, error)
	Name() string
}

// Columns names the header cells holding dates and prices.
type Columns struct {
	Date  string
	Price string
}

// DefaultColumns are the headers used by the historical spreadsheets.
var DefaultColumns = Columns{Date: "dt", Price: "Цена на арматуру"}

// fallbackColumns are tried when the configured headers are absent.
var fallbackColumns = Columns{Date: "date", Price: "price"}

// rowReader returns the raw cell rows of a file, header row included.
type rowReader interface {
	ReadRows(path string) ([][]string, error)
}

func readerFor(path, sheet string) (rowReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return xlsxReader{sheet: sheet}, nil
	case ".csv":
		return csvReader{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported dataset format %q", model.ErrInvalidInput, filepath.Ext(path))
	}
}
