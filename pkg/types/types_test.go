package types

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRecordingDuration(t *testing.T) {
	rec := &Recording{
		Samples: []Sample{
			{Timestamp: 1000, Voltage: 500},
			{Timestamp: 2000, Voltage: 510},
			{Timestamp: 3500, Voltage: 490},
		},
	}

	if d := rec.Duration(); d != 2.5 {
		t.Errorf("Expected duration 2.5 s, got %v", d)
	}
}

func TestRecordingDurationShort(t *testing.T) {
	rec := &Recording{Samples: []Sample{{Timestamp: 1000}}}
	if d := rec.Duration(); d != 0 {
		t.Errorf("Expected duration 0 for single sample, got %v", d)
	}
}

func TestRecordingColumns(t *testing.T) {
	rec := &Recording{
		Samples: []Sample{
			{Timestamp: 10, Voltage: 1},
			{Timestamp: 20, Voltage: 2},
		},
	}

	v := rec.Voltages()
	ts := rec.Timestamps()

	if len(v) != 2 || v[0] != 1 || v[1] != 2 {
		t.Errorf("Unexpected voltages %v", v)
	}
	if len(ts) != 2 || ts[0] != 10 || ts[1] != 20 {
		t.Errorf("Unexpected timestamps %v", ts)
	}
}

func TestMeasuresSanitized(t *testing.T) {
	m := Measures{
		BPM:           62.5,
		SDSD:          math.NaN(),
		LFHF:          math.Inf(1),
		BreathingRate: math.NaN(),
	}

	s := m.Sanitized()
	if s.BPM != 62.5 {
		t.Errorf("Expected BPM preserved, got %v", s.BPM)
	}
	if s.SDSD != 0 || s.LFHF != 0 || s.BreathingRate != 0 {
		t.Errorf("Expected NaN and Inf zeroed, got %+v", s)
	}

	// Sanitized measures must marshal cleanly
	if _, err := json.Marshal(s); err != nil {
		t.Errorf("Failed to marshal sanitized measures: %v", err)
	}
}
