// Package export serializes per-cycle statistics to tab-separated values
// for download and offline analysis.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"BattPulse/internal/domain/models"
)

// AbsentToken marks a missing metric in the export. Spreadsheet tools and
// numeric parsers read it back as NaN.
const AbsentToken = "nan"

var header = []string{"cycle_index", "mean_voltage", "std_voltage", "std_to_mean_ratio"}

// Filename derives the download name from the uploaded file's stem.
func Filename(stem string) string {
	return stem + "_statistics.tsv"
}

// WriteStatistics streams the records as TSV, one row per cycle plus the
// header. Cycle indices are 1-based to match chart numbering.
func WriteStatistics(w io.Writer, records []models.CycleStatistics) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		row := []string{
			strconv.Itoa(i + 1),
			formatMetric(rec.MeanVoltage),
			formatMetric(rec.StdVoltage),
			formatMetric(rec.StdToMeanRatio),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadStatistics parses TSV produced by WriteStatistics back into records.
// Used by tests and by tooling that re-imports exports.
func ReadStatistics(r io.Reader) ([]models.CycleStatistics, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read tsv: missing header")
	}

	out := make([]models.CycleStatistics, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := models.CycleStatistics{}
		if rec.MeanVoltage, err = parseMetric(row[1]); err != nil {
			return nil, err
		}
		if rec.StdVoltage, err = parseMetric(row[2]); err != nil {
			return nil, err
		}
		if rec.StdToMeanRatio, err = parseMetric(row[3]); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func formatMetric(v *float64) string {
	if v == nil {
		return AbsentToken
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func parseMetric(s string) (*float64, error) {
	if s == AbsentToken {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse metric %q: %w", s, err)
	}
	return &v, nil
}
