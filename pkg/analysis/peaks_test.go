package analysis

import (
	"math"
	"testing"
)

func TestDetectPeaks(t *testing.T) {
	sig := []float64{0, 1, 0, 2, 0, 3, 0}
	rolMean := []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}

	peaks := detectPeaks(sig, rolMean, 0)
	want := []int{1, 3, 5}

	if len(peaks) != len(want) {
		t.Fatalf("Expected %d peaks, got %d: %v", len(want), len(peaks), peaks)
	}
	for i := range want {
		if peaks[i] != want[i] {
			t.Errorf("Peak %d: expected %d, got %d", i, want[i], peaks[i])
		}
	}
}

func TestDetectPeaksRegionMaximum(t *testing.T) {
	// One contiguous region above threshold yields a single peak at its maximum
	sig := []float64{0, 2, 5, 9, 6, 3, 0}
	rolMean := []float64{1, 1, 1, 1, 1, 1, 1}

	peaks := detectPeaks(sig, rolMean, 0)
	if len(peaks) != 1 || peaks[0] != 3 {
		t.Errorf("Expected single peak at 3, got %v", peaks)
	}
}

func TestRRIntervals(t *testing.T) {
	peaks, rr := rrIntervals([]int{100, 195, 300}, 100)

	if len(peaks) != 3 {
		t.Fatalf("Expected 3 peaks kept, got %d", len(peaks))
	}
	if len(rr) != 2 {
		t.Fatalf("Expected 2 RR intervals, got %d", len(rr))
	}
	if rr[0] != 950 || rr[1] != 1050 {
		t.Errorf("Expected RR [950 1050], got %v", rr)
	}
}

func TestRRIntervalsDropsEarlyFirstPeak(t *testing.T) {
	// A first peak within 150 ms of the start may follow an undetected beat
	peaks, rr := rrIntervals([]int{10, 110, 210}, 100)

	if len(peaks) != 2 || peaks[0] != 110 {
		t.Fatalf("Expected first peak dropped, got %v", peaks)
	}
	if len(rr) != 1 || rr[0] != 1000 {
		t.Errorf("Expected RR [1000], got %v", rr)
	}
}

func TestValidatePeaksRejectsOutlier(t *testing.T) {
	w := &working{
		peaks: []int{100, 200, 300, 330, 430},
		rr:    []float64{1000, 1000, 250, 1000},
	}

	w.validatePeaks(false, 3)

	if len(w.rejected) != 1 || w.rejected[0] != 330 {
		t.Fatalf("Expected peak 330 rejected, got %v", w.rejected)
	}
	if len(w.accepted) != 4 {
		t.Errorf("Expected 4 accepted peaks, got %v", w.accepted)
	}

	// Only intervals between two accepted beats survive
	if len(w.rrAccepted) != 2 {
		t.Fatalf("Expected 2 accepted RR intervals, got %v", w.rrAccepted)
	}
	for _, rr := range w.rrAccepted {
		if rr != 1000 {
			t.Errorf("Expected accepted RR 1000, got %v", rr)
		}
	}
}

func TestValidatePeaksAllClean(t *testing.T) {
	w := &working{
		peaks: []int{100, 195, 300, 395, 500},
		rr:    []float64{950, 1050, 950, 1050},
	}

	w.validatePeaks(false, 3)

	if len(w.rejected) != 0 {
		t.Errorf("Expected no rejections, got %v", w.rejected)
	}
	if len(w.rrAccepted) != 4 {
		t.Errorf("Expected all RR intervals accepted, got %v", w.rrAccepted)
	}
	if len(w.rrDiff) != 3 {
		t.Fatalf("Expected 3 successive differences, got %d", len(w.rrDiff))
	}
	for _, d := range w.rrDiff {
		if d != 100 {
			t.Errorf("Expected difference 100, got %v", d)
		}
	}
}

func TestRejectSegments(t *testing.T) {
	peaks := make([]int, 11)
	for i := range peaks {
		peaks[i] = i * 100
	}
	// Four short outliers inside the first 10-beat chunk
	rr := []float64{900, 240, 900, 240, 900, 240, 900, 240, 900, 900}

	w := &working{peaks: peaks, rr: rr}
	w.validatePeaks(true, 3)

	if len(w.rejectedSegments) != 1 {
		t.Fatalf("Expected 1 rejected segment, got %v", w.rejectedSegments)
	}
	seg := w.rejectedSegments[0]
	if seg[0] != peaks[0] || seg[1] != peaks[10] {
		t.Errorf("Expected segment [%d %d], got %v", peaks[0], peaks[10], seg)
	}

	// The whole chunk is zeroed, so no interval has two accepted endpoints
	if len(w.rrAccepted) != 0 {
		t.Errorf("Expected no accepted RR intervals, got %v", w.rrAccepted)
	}
}

func TestFitPeaksFlatSignal(t *testing.T) {
	sig := make([]float64, 1000)
	rolMean := make([]float64, 1000)
	for i := range sig {
		sig[i] = 512
		rolMean[i] = 512
	}

	_, _, err := fitPeaks(sig, rolMean, 100, 40, 180)
	if err != ErrNoPeakFit {
		t.Fatalf("Expected ErrNoPeakFit, got %v", err)
	}
}

func TestFitPeaksRegularRhythm(t *testing.T) {
	sig, fs := syntheticHeartSignal(30)
	rolMean := rollingMeanFor(sig, fs)

	perc, peaks, err := fitPeaks(sig, rolMean, fs, 40, 180)
	if err != nil {
		t.Fatalf("fitPeaks failed: %v", err)
	}
	if perc <= 0 {
		t.Errorf("Expected a positive threshold percentage, got %v", perc)
	}

	// 30 s of alternating 0.95/1.05 s beats, first at 1 s
	if len(peaks) < 27 || len(peaks) > 31 {
		t.Errorf("Expected about 29 peaks, got %d", len(peaks))
	}

	bpm := float64(len(peaks)) / (float64(len(sig)) / fs) * 60
	if math.Abs(bpm-60) > 6 {
		t.Errorf("Expected about 60 BPM, got %v", bpm)
	}
}
