package analysis

import (
	"fmt"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/signal"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// Options configures an analysis run
type Options struct {
	// WindowSeconds is the rolling-mean window used for peak detection
	WindowSeconds float64
	// BPMMin and BPMMax bound the heart rates considered plausible when
	// fitting the detection threshold
	BPMMin float64
	BPMMax float64
	// InterpolateClipping repairs segments clipped against the ADC ceiling
	// before detection
	InterpolateClipping bool
	// ClippingThreshold is the level above which samples count as clipped.
	// Keep it a few points below the ADC full-scale value.
	ClippingThreshold float64
	// ScaleBeforeClipping rescales the signal to the ADC range before
	// clipping detection
	ScaleBeforeClipping bool
	// HampelCorrect enables peak enhancement plus Hampel-filter noise
	// suppression. Expensive; rarely needed.
	HampelCorrect bool
	// CalcFrequency enables the frequency-domain measures
	CalcFrequency bool
	// RejectSegmentwise zeroes out 10-beat windows with more than
	// MaxRejectsPerSegment rejected beats
	RejectSegmentwise    bool
	MaxRejectsPerSegment int
}

// DefaultOptions returns the standard analysis configuration
func DefaultOptions() Options {
	return Options{
		WindowSeconds:        0.75,
		BPMMin:               40,
		BPMMax:               180,
		InterpolateClipping:  false,
		ClippingThreshold:    1020,
		HampelCorrect:        false,
		CalcFrequency:        false,
		RejectSegmentwise:    false,
		MaxRejectsPerSegment: 3,
	}
}

// Result holds the output of an analysis run
type Result struct {
	SampleRate float64
	// Signal is the preprocessed signal the detection ran on
	Signal []float64
	// BestFit is the rolling-mean raise percentage chosen by the fit
	BestFit float64
	// Peaks are all detected beat positions; AcceptedPeaks and
	// RejectedPeaks partition them after RR validation
	Peaks         []int
	AcceptedPeaks []int
	RejectedPeaks []int
	// RejectedSegments are (start, end) sample positions of 10-beat
	// windows discarded by segmentwise rejection
	RejectedSegments [][2]int
	// RR holds the raw beat-to-beat intervals in ms, RRAccepted those
	// that survived validation
	RR         []float64
	RRAccepted []float64

	Measures types.Measures
}

// Analyzer runs the heart-rate analysis pipeline
type Analyzer struct {
	opts Options
}

// NewAnalyzer creates an analyzer with the given options
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

// Run analyzes a voltage signal sampled at sampleRate Hz
func (a *Analyzer) Run(sig []float64, sampleRate float64) (*Result, error) {
	if len(sig) == 0 {
		return nil, fmt.Errorf("analysis: empty signal")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("analysis: invalid sample rate %v", sampleRate)
	}

	data := append([]float64(nil), sig...)

	if a.opts.InterpolateClipping {
		if a.opts.ScaleBeforeClipping {
			data = signal.Scale(data, signal.ADCRange)
		}
		data = signal.InterpolateClipping(data, sampleRate, a.opts.ClippingThreshold)
	}

	if a.opts.HampelCorrect {
		data = signal.EnhancePeaks(data, 2)
		data = signal.HampelCorrect(data, sampleRate)
	}

	rolMean := signal.RollingMean(data, a.opts.WindowSeconds, sampleRate)

	bestPerc, peaks, err := fitPeaks(data, rolMean, sampleRate, a.opts.BPMMin, a.opts.BPMMax)
	if err != nil {
		return nil, err
	}

	w := &working{
		signal:     data,
		sampleRate: sampleRate,
	}
	w.peaks, w.rr = rrIntervals(peaks, sampleRate)
	w.validatePeaks(a.opts.RejectSegmentwise, a.opts.MaxRejectsPerSegment)

	measures := w.timeDomainMeasures()
	measures.BreathingRate = w.breathingRate()

	if a.opts.CalcFrequency {
		lf, hf, err := w.frequencyMeasures()
		if err != nil {
			return nil, err
		}
		measures.LF = lf
		measures.HF = hf
		measures.LFHF = lf / hf
	}

	return &Result{
		SampleRate:       sampleRate,
		Signal:           data,
		BestFit:          bestPerc,
		Peaks:            w.peaks,
		AcceptedPeaks:    w.accepted,
		RejectedPeaks:    w.rejected,
		RejectedSegments: w.rejectedSegments,
		RR:               w.rr,
		RRAccepted:       w.rrAccepted,
		Measures:         measures,
	}, nil
}

// AnalyzeRecording runs the pipeline on a loaded recording
func (a *Analyzer) AnalyzeRecording(rec *types.Recording) (*Result, error) {
	res, err := a.Run(rec.Voltages(), rec.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze recording %s: %w", rec.ID, err)
	}
	return res, nil
}
