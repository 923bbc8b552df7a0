package survey

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

// LoadCSV reads the raw survey file and validates that every required
// column is present. Rows with a malformed cell count are skipped
// rather than failing the whole load.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open survey file: %w", err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("path", path).
		Int("rows", t.Len()).
		Int("columns", len(t.Columns)).
		Msg("survey data loaded")

	return t, nil
}

// ReadCSV parses survey data from a reader.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	seen := make(map[string]int, len(header))
	for _, col := range header {
		seen[col]++
	}
	for _, col := range RequiredColumns {
		switch seen[col] {
		case 0:
			return nil, &DataFormatError{Column: col, Reason: "is missing"}
		case 1:
		default:
			return nil, &DataFormatError{Column: col, Reason: "appears more than once"}
		}
	}

	t := &Table{Columns: header}
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(row) != len(header) {
			skipped++
			continue
		}

		rec := make(Record, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		t.Rows = append(t.Rows, rec)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("malformed rows skipped during ingestion")
	}
	if t.Len() == 0 {
		return nil, &DataFormatError{Reason: "no data rows"}
	}

	return t, nil
}

// WriteCSV writes a table with the given column subset, used to persist
// the cleaned dataset for downstream reuse.
func WriteCSV(path string, columns []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
