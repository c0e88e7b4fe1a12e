package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"RebarForecast/internal/model"
)

type csvReader struct{}

// ReadRows reads a comma or semicolon separated file. The separator is taken
// from the header line.
func (csvReader) ReadRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w: %w", model.ErrArtifactIO, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(4096)
	// Skip a UTF-8 BOM written by spreadsheet exports.
	if strings.HasPrefix(string(head), "\ufeff") {
		if _, err := br.Discard(3); err != nil {
			return nil, fmt.Errorf("read csv: %w: %w", model.ErrArtifactIO, err)
		}
		head = head[3:]
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	firstLine, _, _ := strings.Cut(string(head), "\n")
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		r.Comma = ';'
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w: %w", model.ErrInvalidInput, err)
	}
	return rows, nil
}
