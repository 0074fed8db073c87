package analysis

import (
	"errors"
	"math"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/signal"
)

// ErrNoPeakFit indicates no detection threshold produced a plausible
// heart rate. Usually the recording is too noisy or too short.
var ErrNoPeakFit = errors.New("analysis: no peak detection threshold fit the signal")

// Candidate rolling-mean raise percentages swept during threshold fitting
var maPercLadder = []float64{5, 10, 15, 20, 25, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120, 150, 200, 300}

// working holds intermediate pipeline state for a single run
type working struct {
	signal     []float64
	sampleRate float64

	peaks  []int
	rr     []float64
	binary []int

	accepted         []int
	rejected         []int
	rejectedSegments [][2]int

	rrAccepted []float64
	rrDiff     []float64
	rrSqDiff   []float64
}

// detectPeaks marks heartbeats as the maxima of contiguous regions where
// the signal exceeds the rolling mean raised by maPerc percent
func detectPeaks(sig, rolMean []float64, maPerc float64) []int {
	var peaks []int

	regionStart := -1
	bestIdx := -1
	bestVal := math.Inf(-1)

	for i, v := range sig {
		threshold := rolMean[i] + (rolMean[i]/100)*maPerc
		if v > threshold {
			if regionStart < 0 {
				regionStart = i
				bestIdx = i
				bestVal = v
			} else if v > bestVal {
				bestIdx = i
				bestVal = v
			}
			continue
		}
		if regionStart >= 0 {
			peaks = append(peaks, bestIdx)
			regionStart = -1
			bestVal = math.Inf(-1)
		}
	}
	if regionStart >= 0 {
		peaks = append(peaks, bestIdx)
	}

	return peaks
}

// rrIntervals converts peak positions into RR intervals in milliseconds.
// A first peak landing within 150 ms of the signal start is dropped: the
// recording may begin mid-beat, just after an undetected peak.
func rrIntervals(peaks []int, sampleRate float64) ([]int, []float64) {
	if len(peaks) > 0 && float64(peaks[0]) <= (sampleRate/1000.0)*150 {
		peaks = peaks[1:]
	}

	if len(peaks) < 2 {
		return peaks, nil
	}

	rr := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		rr[i-1] = float64(peaks[i]-peaks[i-1]) / sampleRate * 1000.0
	}
	return peaks, rr
}

// fitPeaks sweeps the threshold ladder and keeps the candidate with the
// lowest RR standard deviation among those yielding a plausible BPM.
// Thresholding avoids non-linear transforms that would shift peak
// positions in time.
func fitPeaks(sig, rolMean []float64, sampleRate, bpmMin, bpmMax float64) (float64, []int, error) {
	bestPerc := 0.0
	bestRRSD := math.Inf(1)
	found := false

	for _, perc := range maPercLadder {
		peaks := detectPeaks(sig, rolMean, perc)
		peaks, rr := rrIntervals(peaks, sampleRate)

		rrsd := math.Inf(1)
		if len(rr) > 0 {
			rrsd = signal.Std(rr)
		}

		bpm := float64(len(peaks)) / (float64(len(sig)) / sampleRate) * 60

		if rrsd > 0.1 && bpm >= bpmMin && bpm <= bpmMax && rrsd < bestRRSD {
			bestRRSD = rrsd
			bestPerc = perc
			found = true
		}
	}

	if !found {
		return 0, nil, ErrNoPeakFit
	}

	return bestPerc, detectPeaks(sig, rolMean, bestPerc), nil
}

// validatePeaks rejects beats whose RR interval deviates from the mean RR
// by more than 30%, clamped to at least 300 ms. The first peak is always
// kept. With segmentwise rejection enabled, any 10-beat window with more
// than maxRejects rejected beats is zeroed out entirely.
func (w *working) validatePeaks(segmentwise bool, maxRejects int) {
	if len(w.peaks) == 0 {
		return
	}

	meanRR := signal.Mean(w.rr)
	spread := 0.3 * meanRR
	if spread <= 300 {
		spread = 300
	}
	lower := meanRR - spread
	upper := meanRR + spread

	w.binary = make([]int, len(w.peaks))
	w.binary[0] = 1
	w.accepted = []int{w.peaks[0]}
	w.rejected = nil

	for i, rr := range w.rr {
		peak := w.peaks[i+1]
		if rr > lower && rr < upper {
			w.binary[i+1] = 1
			w.accepted = append(w.accepted, peak)
		} else {
			w.rejected = append(w.rejected, peak)
		}
	}

	if segmentwise {
		w.rejectSegments(maxRejects)
	}

	w.updateRR()
}

// rejectSegments checks the beat quality in chunks of 10 beats and zeroes
// out a whole chunk when it holds more than maxRejects rejected beats
func (w *working) rejectSegments(maxRejects int) {
	w.rejectedSegments = nil

	for idx := 0; idx+10 <= len(w.binary); idx += 10 {
		rejects := 0
		for _, b := range w.binary[idx : idx+10] {
			if b == 0 {
				rejects++
			}
		}
		if rejects <= maxRejects {
			continue
		}

		for i := idx; i < idx+10; i++ {
			w.binary[i] = 0
		}

		end := len(w.peaks) - 1
		if idx+10 < len(w.peaks) {
			end = idx + 10
		}
		w.rejectedSegments = append(w.rejectedSegments, [2]int{w.peaks[idx], w.peaks[end]})
	}
}

// updateRR recomputes the accepted RR list and its differences, keeping
// only intervals whose both endpoint beats were accepted
func (w *working) updateRR() {
	w.rrAccepted = nil
	w.rrDiff = nil
	w.rrSqDiff = nil

	mask := make([]bool, len(w.rr))
	for i := range w.rr {
		ok := w.binary[i] == 1 && w.binary[i+1] == 1
		mask[i] = ok
		if ok {
			w.rrAccepted = append(w.rrAccepted, w.rr[i])
		}
	}

	for i := 1; i < len(w.rr); i++ {
		if mask[i-1] && mask[i] {
			d := math.Abs(w.rr[i] - w.rr[i-1])
			w.rrDiff = append(w.rrDiff, d)
			w.rrSqDiff = append(w.rrSqDiff, d*d)
		}
	}
}
