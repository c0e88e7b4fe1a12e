package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"RebarForecast/internal/model"
)

type xlsxReader struct {
	sheet string
}

// ReadRows returns the rows of the configured sheet, or the first sheet when
// none is configured. Date cells come back as raw Excel serial numbers.
func (r xlsxReader) ReadRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w: %w", model.ErrArtifactIO, err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook %s has no sheets", model.ErrInvalidInput, path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w: %w", sheet, model.ErrArtifactIO, err)
	}
	return rows, nil
}
