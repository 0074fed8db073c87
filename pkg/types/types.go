package types

import "math"

// Sample represents a single sensor sample
type Sample struct {
	// Timestamp is the sample time in milliseconds since the Unix epoch
	Timestamp int64 `json:"timestamp"`
	// Voltage is the raw heart-rate voltage reading from the ADC
	Voltage float64 `json:"voltage"`
}

// Recording represents a complete heart-rate voltage recording
type Recording struct {
	ID         string            `json:"id"`
	Source     string            `json:"source"`
	Tags       map[string]string `json:"tags,omitempty"`
	SampleRate float64           `json:"sample_rate"`
	Samples    []Sample          `json:"samples,omitempty"`
}

// Duration returns the recording length in seconds
func (r *Recording) Duration() float64 {
	if len(r.Samples) < 2 {
		return 0
	}
	return float64(r.Samples[len(r.Samples)-1].Timestamp-r.Samples[0].Timestamp) / 1000.0
}

// Voltages returns the voltage column as a plain slice
func (r *Recording) Voltages() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Voltage
	}
	return out
}

// Timestamps returns the timestamp column as a plain slice
func (r *Recording) Timestamps() []int64 {
	out := make([]int64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Timestamp
	}
	return out
}

// Measures holds the heart-rate variability measures computed from a recording.
// Frequency-domain fields are zero unless frequency analysis was requested.
type Measures struct {
	BPM   float64 `json:"bpm"`
	IBI   float64 `json:"ibi"`
	SDNN  float64 `json:"sdnn"`
	SDSD  float64 `json:"sdsd"`
	RMSSD float64 `json:"rmssd"`
	NN20  int     `json:"nn20"`
	NN50  int     `json:"nn50"`
	PNN20 float64 `json:"pnn20"`
	PNN50 float64 `json:"pnn50"`
	MADRR float64 `json:"mad_rr"`

	LF   float64 `json:"lf,omitempty"`
	HF   float64 `json:"hf,omitempty"`
	LFHF float64 `json:"lf_hf,omitempty"`

	BreathingRate float64 `json:"breathing_rate"`
}

// Sanitized returns a copy with NaN and Inf values replaced by zero,
// so the result is safe to marshal as JSON
func (m Measures) Sanitized() Measures {
	m.BPM = safeFloat(m.BPM)
	m.IBI = safeFloat(m.IBI)
	m.SDNN = safeFloat(m.SDNN)
	m.SDSD = safeFloat(m.SDSD)
	m.RMSSD = safeFloat(m.RMSSD)
	m.PNN20 = safeFloat(m.PNN20)
	m.PNN50 = safeFloat(m.PNN50)
	m.MADRR = safeFloat(m.MADRR)
	m.LF = safeFloat(m.LF)
	m.HF = safeFloat(m.HF)
	m.LFHF = safeFloat(m.LFHF)
	m.BreathingRate = safeFloat(m.BreathingRate)
	return m
}

func safeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

// ArchiveEntry couples a recording with its analysis output for storage
type ArchiveEntry struct {
	Recording     Recording `json:"recording"`
	Measures      Measures  `json:"measures"`
	Peaks         []int     `json:"peaks,omitempty"`
	RejectedPeaks []int     `json:"rejected_peaks,omitempty"`
}

// QueryRequest selects archived recordings by tag and time range.
// Zero time bounds mean unbounded.
type QueryRequest struct {
	Selectors map[string]string
	StartTime int64
	EndTime   int64
}

// QueryResult holds matching archive entries
type QueryResult struct {
	Entries []ArchiveEntry
}
