package recording

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSampleRecording(t *testing.T) {
	rec, err := Load(filepath.Join("testdata", "record_sample.csv"), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Failed to load recording: %v", err)
	}

	// 58 lines total: 7 preamble, 1 header, 50 data rows
	if len(rec.Samples) != 50 {
		t.Errorf("Expected 50 samples, got %d", len(rec.Samples))
	}

	if rec.Source != "record_sample.csv" {
		t.Errorf("Expected source record_sample.csv, got %q", rec.Source)
	}

	if rec.ID == "" {
		t.Error("Expected a recording ID to be assigned")
	}

	// Timestamps are 10 ms apart
	if rec.SampleRate != 100 {
		t.Errorf("Expected sample rate 100 Hz, got %v", rec.SampleRate)
	}

	// Row 21 (index 20) holds the "null" dropped-sample marker
	if rec.Samples[20].Voltage != 0 {
		t.Errorf("Expected null voltage to read as 0, got %v", rec.Samples[20].Voltage)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "does_not_exist.csv"), DefaultLoadOptions())
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestParseMissingColumn(t *testing.T) {
	data := "a,b\n1,2\n"
	opts := DefaultLoadOptions()
	opts.HeaderSkip = 0

	_, err := Parse(strings.NewReader(data), opts)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("Expected ErrMissingColumn, got %v", err)
	}
}

func TestParseNoDataRows(t *testing.T) {
	data := "unix_timestamp,heart_rate_voltage\n"
	opts := DefaultLoadOptions()
	opts.HeaderSkip = 0

	_, err := Parse(strings.NewReader(data), opts)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("Expected ErrNoData, got %v", err)
	}
}

func TestParseShortPreamble(t *testing.T) {
	// Preamble claims 7 lines but the file ends first
	data := "#only\n#three\n#lines\n"

	_, err := Parse(strings.NewReader(data), DefaultLoadOptions())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("Expected ErrNoData, got %v", err)
	}
}

func TestParseInvalidVoltage(t *testing.T) {
	data := "unix_timestamp,heart_rate_voltage\n1000,garbage\n"
	opts := DefaultLoadOptions()
	opts.HeaderSkip = 0

	_, err := Parse(strings.NewReader(data), opts)
	if err == nil {
		t.Fatal("Expected error for non-numeric voltage")
	}
}

func TestParseCustomColumns(t *testing.T) {
	data := "ts,hr\n1000,500\n1010,510\n1020,490\n"
	opts := LoadOptions{
		HeaderSkip:      0,
		TimestampColumn: "ts",
		VoltageColumn:   "hr",
	}

	rec, err := Parse(strings.NewReader(data), opts)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if len(rec.Samples) != 3 {
		t.Errorf("Expected 3 samples, got %d", len(rec.Samples))
	}
	if rec.Samples[2].Voltage != 490 {
		t.Errorf("Expected voltage 490, got %v", rec.Samples[2].Voltage)
	}
}

func TestParseTags(t *testing.T) {
	data := "unix_timestamp,heart_rate_voltage\n1000,500\n1010,510\n"
	opts := DefaultLoadOptions()
	opts.HeaderSkip = 0
	opts.Tags = map[string]string{"subject": "s01"}

	rec, err := Parse(strings.NewReader(data), opts)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if rec.Tags["subject"] != "s01" {
		t.Errorf("Expected subject tag s01, got %q", rec.Tags["subject"])
	}
}

func TestSampleRateFromTimestamps(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []int64
		want       float64
		wantErr    bool
	}{
		{
			name:       "uniform 10ms spacing",
			timestamps: []int64{0, 10, 20, 30, 40},
			want:       100,
		},
		{
			name:       "jittered spacing floors the rate",
			timestamps: []int64{0, 9, 19, 28, 38},
			want:       105, // mean diff 9.5 ms -> floor(105.26)
		},
		{
			name:       "single timestamp",
			timestamps: []int64{42},
			wantErr:    true,
		},
		{
			name:       "non-advancing clock",
			timestamps: []int64{100, 100, 100},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SampleRateFromTimestamps(tt.timestamps)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v Hz, got %v", tt.want, got)
			}
		})
	}
}

func TestSampleRateMSTimer(t *testing.T) {
	// 100 timestamps over 990 ms
	ts := make([]int64, 100)
	for i := range ts {
		ts[i] = int64(i * 10)
	}

	rate, err := SampleRateMSTimer(ts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := 100.0 / 990.0 * 1000.0
	if diff := rate - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected %v Hz, got %v", want, rate)
	}
}
