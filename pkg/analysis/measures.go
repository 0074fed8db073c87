package analysis

import (
	"errors"
	"math"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/signal"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// ErrTooFewBeats indicates too few accepted beats remain for
// frequency-domain analysis
var ErrTooFewBeats = errors.New("analysis: too few accepted beats for frequency analysis")

// Frequency bands for spectral HRV measures, in Hz
const (
	lfLow  = 0.04
	lfHigh = 0.15
	hfLow  = 0.16
	hfHigh = 0.5
)

// welchSegmentLen caps the Welch segment length for RR spectra resampled
// at 1 kHz
const welchSegmentLen = 100000

// timeDomainMeasures computes the time-domain HRV measures over the
// accepted RR intervals
func (w *working) timeDomainMeasures() types.Measures {
	m := types.Measures{
		BPM:   60000 / signal.Mean(w.rrAccepted),
		IBI:   signal.Mean(w.rrAccepted),
		SDNN:  signal.Std(w.rrAccepted),
		SDSD:  signal.Std(w.rrDiff),
		MADRR: signal.MAD(w.rrAccepted),
	}

	for _, d := range w.rrDiff {
		if d > 20 {
			m.NN20++
		}
		if d > 50 {
			m.NN50++
		}
	}

	if len(w.rrDiff) > 0 {
		var sumSq float64
		for _, d := range w.rrSqDiff {
			sumSq += d
		}
		m.RMSSD = math.Sqrt(sumSq / float64(len(w.rrSqDiff)))
		m.PNN20 = float64(m.NN20) / float64(len(w.rrDiff))
		m.PNN50 = float64(m.NN50) / float64(len(w.rrDiff))
	} else {
		m.RMSSD = math.NaN()
		m.PNN20 = math.NaN()
		m.PNN50 = math.NaN()
	}

	return m
}

// frequencyMeasures computes the LF and HF band powers of the RR series.
// The accepted RR intervals are resampled to 1 kHz with a cubic spline and
// fed through a Welch PSD estimate.
func (w *working) frequencyMeasures() (lf, hf float64, err error) {
	if len(w.rrAccepted) < 4 {
		return 0, 0, ErrTooFewBeats
	}

	// Cumulative beat times in ms form the x axis
	rrX := make([]float64, len(w.rrAccepted))
	var pointer float64
	for i, rr := range w.rrAccepted {
		pointer += rr
		rrX[i] = pointer
	}

	spline, err := signal.NewCubicSpline(rrX, w.rrAccepted)
	if err != nil {
		return 0, 0, err
	}

	n := int(rrX[len(rrX)-1])
	if n < 2 {
		return 0, 0, ErrTooFewBeats
	}
	resampled := spline.Evaluate(signal.Linspace(rrX[0], rrX[len(rrX)-1], n))

	freqs, psd := signal.Welch(resampled, 1000.0, welchSegmentLen)
	if len(freqs) == 0 {
		return 0, 0, ErrTooFewBeats
	}

	lf = signal.BandPower(freqs, psd, lfLow, lfHigh)
	hf = signal.BandPower(freqs, psd, hfLow, hfHigh)
	return lf, hf, nil
}

// breathingRate estimates the breathing rate in Hz from the RR series:
// respiration modulates RR intervals, so breathing shows up as slow peaks
// in the upsampled RR signal. NaN when no estimate is possible.
func (w *working) breathingRate() float64 {
	if len(w.rrAccepted) < 2 {
		return math.NaN()
	}

	n := len(w.rrAccepted)
	x := signal.Linspace(0, float64(n), n)
	xNew := signal.Linspace(0, float64(n), n*10)

	spline, err := signal.NewCubicSpline(x, w.rrAccepted)
	if err != nil {
		return math.NaN()
	}
	breathing := spline.Evaluate(xNew)

	rolMean := signal.RollingMean(breathing, 0.75, 100.0)
	peaks := detectPeaks(breathing, rolMean, 1)

	if len(peaks) <= 1 {
		return math.NaN()
	}

	signalSeconds := float64(len(w.signal)) / w.sampleRate
	return float64(len(peaks)) / signalSeconds
}
