package recording

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// Sensor exports carry a free-form device preamble before the actual
// CSV header row. The preamble length is fixed per firmware version.
const DefaultHeaderSkip = 7

// Default column names in the sensor export format
const (
	DefaultTimestampColumn = "unix_timestamp"
	DefaultVoltageColumn   = "heart_rate_voltage"
)

var (
	// ErrNoData indicates the file contained no data rows after the header
	ErrNoData = errors.New("recording: no data rows")
	// ErrMissingColumn indicates a required column is absent from the header
	ErrMissingColumn = errors.New("recording: missing column")
	// ErrTooShort indicates the recording is too short to derive a sample rate
	ErrTooShort = errors.New("recording: too few samples to derive sample rate")
)

// LoadOptions controls how a CSV export is parsed
type LoadOptions struct {
	// HeaderSkip is the number of preamble lines before the header row
	HeaderSkip int
	// TimestampColumn names the millisecond timestamp column
	TimestampColumn string
	// VoltageColumn names the voltage reading column
	VoltageColumn string
	// Tags are attached to the loaded recording
	Tags map[string]string
}

// DefaultLoadOptions returns options matching the stock sensor export format
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		HeaderSkip:      DefaultHeaderSkip,
		TimestampColumn: DefaultTimestampColumn,
		VoltageColumn:   DefaultVoltageColumn,
	}
}

// Load reads a recording from a CSV export file
func Load(path string, opts LoadOptions) (*types.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	rec, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	rec.Source = filepath.Base(path)
	return rec, nil
}

// Parse reads a recording from CSV data.
// The first HeaderSkip lines are discarded, the next line is taken as the
// header, and every following line is a data row. The string "null" in the
// voltage column is read as 0 (dropped-sample marker in the sensor firmware).
func Parse(r io.Reader, opts LoadOptions) (*types.Recording, error) {
	reader := csv.NewReader(r)
	// Preamble lines are free-form and may have any number of fields
	reader.FieldsPerRecord = -1

	// Skip the device preamble
	for i := 0; i < opts.HeaderSkip; i++ {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return nil, ErrNoData
			}
			return nil, fmt.Errorf("failed to read preamble line %d: %w", i+1, err)
		}
	}

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	tsCol, err := columnIndex(header, opts.TimestampColumn)
	if err != nil {
		return nil, err
	}
	voltCol, err := columnIndex(header, opts.VoltageColumn)
	if err != nil {
		return nil, err
	}

	var samples []types.Sample
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read data row %d: %w", row+1, err)
		}
		row++

		if tsCol >= len(record) || voltCol >= len(record) {
			return nil, fmt.Errorf("data row %d has %d fields, expected at least %d",
				row, len(record), max(tsCol, voltCol)+1)
		}

		ts, err := strconv.ParseInt(record[tsCol], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("data row %d: invalid timestamp %q: %w", row, record[tsCol], err)
		}

		voltage, err := parseVoltage(record[voltCol])
		if err != nil {
			return nil, fmt.Errorf("data row %d: invalid voltage %q: %w", row, record[voltCol], err)
		}

		samples = append(samples, types.Sample{Timestamp: ts, Voltage: voltage})
	}

	if len(samples) == 0 {
		return nil, ErrNoData
	}

	rec := &types.Recording{
		ID:      uuid.NewString(),
		Tags:    opts.Tags,
		Samples: samples,
	}

	// A sample rate needs at least two timestamps; single-row recordings
	// are still loadable for inspection
	if len(samples) >= 2 {
		rate, err := SampleRateFromTimestamps(rec.Timestamps())
		if err != nil {
			return nil, err
		}
		rec.SampleRate = rate
	}

	return rec, nil
}

// parseVoltage parses an ADC reading, treating the firmware's "null"
// dropped-sample marker as 0
func parseVoltage(s string) (float64, error) {
	if s == "null" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// columnIndex finds a named column in the header row
func columnIndex(header []string, name string) (int, error) {
	for i, col := range header {
		if col == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q not in header %v", ErrMissingColumn, name, header)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
