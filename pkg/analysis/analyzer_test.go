package analysis

import (
	"math"
	"testing"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/signal"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// syntheticHeartSignal builds a clean pulse train at 100 Hz: gaussian
// beats on a flat baseline, spaced alternately 0.95 s and 1.05 s apart so
// the beat-to-beat variability is non-zero. The first beat sits at 1 s.
func syntheticHeartSignal(seconds float64) ([]float64, float64) {
	const (
		fs       = 100.0
		baseline = 512.0
		amp      = 300.0
		sigma    = 5.0 // samples
	)

	n := int(seconds * fs)
	sig := make([]float64, n)
	for i := range sig {
		sig[i] = baseline
	}

	beat := 1.0
	short := true
	for beat < seconds-0.5 {
		center := beat * fs
		lo := int(center - 4*sigma)
		hi := int(center + 4*sigma)
		for i := lo; i <= hi && i < n; i++ {
			d := float64(i) - center
			sig[i] += amp * math.Exp(-d*d/(2*sigma*sigma))
		}

		if short {
			beat += 0.95
		} else {
			beat += 1.05
		}
		short = !short
	}

	return sig, fs
}

func rollingMeanFor(sig []float64, fs float64) []float64 {
	return signal.RollingMean(sig, 0.75, fs)
}

func TestAnalyzerEndToEnd(t *testing.T) {
	sig, fs := syntheticHeartSignal(30)

	res, err := NewAnalyzer(DefaultOptions()).Run(sig, fs)
	if err != nil {
		t.Fatalf("Analysis failed: %v", err)
	}

	if math.Abs(res.Measures.BPM-60) > 5 {
		t.Errorf("Expected about 60 BPM, got %v", res.Measures.BPM)
	}
	if math.Abs(res.Measures.IBI-1000) > 20 {
		t.Errorf("Expected IBI near 1000 ms, got %v", res.Measures.IBI)
	}

	// Alternating 950/1050 ms intervals
	if math.Abs(res.Measures.SDNN-50) > 5 {
		t.Errorf("Expected SDNN near 50, got %v", res.Measures.SDNN)
	}
	if math.Abs(res.Measures.RMSSD-100) > 5 {
		t.Errorf("Expected RMSSD near 100, got %v", res.Measures.RMSSD)
	}
	if res.Measures.PNN50 != 1 {
		t.Errorf("Expected PNN50 of 1, got %v", res.Measures.PNN50)
	}

	if len(res.RejectedPeaks) != 0 {
		t.Errorf("Expected no rejected peaks on a clean signal, got %v", res.RejectedPeaks)
	}
	if len(res.AcceptedPeaks) != len(res.Peaks) {
		t.Errorf("Expected all %d peaks accepted, got %d", len(res.Peaks), len(res.AcceptedPeaks))
	}
	if len(res.RR) != len(res.Peaks)-1 {
		t.Errorf("Expected %d RR intervals, got %d", len(res.Peaks)-1, len(res.RR))
	}

	if math.IsNaN(res.Measures.BreathingRate) {
		t.Error("Expected a breathing rate estimate")
	}

	if res.BestFit <= 0 {
		t.Errorf("Expected a positive fitted threshold, got %v", res.BestFit)
	}
	if res.SampleRate != fs {
		t.Errorf("Expected sample rate %v, got %v", fs, res.SampleRate)
	}
}

func TestAnalyzerFrequencyMeasures(t *testing.T) {
	sig, fs := syntheticHeartSignal(120)

	opts := DefaultOptions()
	opts.CalcFrequency = true

	res, err := NewAnalyzer(opts).Run(sig, fs)
	if err != nil {
		t.Fatalf("Analysis failed: %v", err)
	}

	if res.Measures.HF <= 0 {
		t.Errorf("Expected positive HF power, got %v", res.Measures.HF)
	}
	if res.Measures.LF < 0 {
		t.Errorf("Expected non-negative LF power, got %v", res.Measures.LF)
	}
	if math.IsNaN(res.Measures.LFHF) {
		t.Errorf("Expected finite LF/HF ratio, got %v", res.Measures.LFHF)
	}
}

func TestAnalyzerClippedSignal(t *testing.T) {
	sig, fs := syntheticHeartSignal(30)

	// Push the beats against the ADC ceiling and flatten them there
	clipped := make([]float64, len(sig))
	for i, v := range sig {
		clipped[i] = (v-512)*2 + 512
		if clipped[i] > 1022 {
			clipped[i] = 1022
		}
	}

	opts := DefaultOptions()
	opts.InterpolateClipping = true
	opts.ClippingThreshold = 1020

	res, err := NewAnalyzer(opts).Run(clipped, fs)
	if err != nil {
		t.Fatalf("Analysis failed on clipped signal: %v", err)
	}

	if math.Abs(res.Measures.BPM-60) > 6 {
		t.Errorf("Expected about 60 BPM after clipping repair, got %v", res.Measures.BPM)
	}

	// The flat clipped plateaus must have been replaced
	repaired := false
	for i, v := range clipped {
		if v == 1022 && res.Signal[i] != 1022 {
			repaired = true
			break
		}
	}
	if !repaired {
		t.Error("Expected clipped plateaus rewritten by interpolation")
	}
}

func TestAnalyzerFlatSignal(t *testing.T) {
	sig := make([]float64, 1000)
	for i := range sig {
		sig[i] = 512
	}

	_, err := NewAnalyzer(DefaultOptions()).Run(sig, 100)
	if err != ErrNoPeakFit {
		t.Fatalf("Expected ErrNoPeakFit, got %v", err)
	}
}

func TestAnalyzerInvalidInput(t *testing.T) {
	a := NewAnalyzer(DefaultOptions())

	if _, err := a.Run(nil, 100); err == nil {
		t.Error("Expected error for empty signal")
	}
	if _, err := a.Run([]float64{1, 2, 3}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestAnalyzeRecording(t *testing.T) {
	sig, fs := syntheticHeartSignal(30)

	samples := make([]types.Sample, len(sig))
	for i, v := range sig {
		samples[i] = types.Sample{Timestamp: int64(i * 10), Voltage: v}
	}
	rec := &types.Recording{
		ID:         "test-recording",
		SampleRate: fs,
		Samples:    samples,
	}

	res, err := NewAnalyzer(DefaultOptions()).AnalyzeRecording(rec)
	if err != nil {
		t.Fatalf("AnalyzeRecording failed: %v", err)
	}
	if math.Abs(res.Measures.BPM-60) > 5 {
		t.Errorf("Expected about 60 BPM, got %v", res.Measures.BPM)
	}
}
