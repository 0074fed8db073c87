package signal

import (
	"fmt"
	"math"
)

// biquad is a single second-order IIR filter section
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

func (s biquad) apply(data []float64) []float64 {
	out := make([]float64, len(data))
	var x1, x2, y1, y2 float64
	for i, x := range data {
		y := s.b0*x + s.b1*x1 + s.b2*x2 - s.a1*y1 - s.a2*y2
		x2, x1 = x1, x
		y2, y1 = y1, y
		out[i] = y
	}
	return out
}

// butterworthSections computes the cascaded biquad sections of a Butterworth
// low-pass filter via the bilinear transform
func butterworthSections(cutoff, sampleRate float64, order int) ([]biquad, error) {
	nyquist := 0.5 * sampleRate
	if cutoff <= 0 || cutoff >= nyquist {
		return nil, fmt.Errorf("cutoff %.3f Hz out of range (0, %.3f)", cutoff, nyquist)
	}
	if order < 1 {
		return nil, fmt.Errorf("filter order must be at least 1, got %d", order)
	}

	// Prewarped analog cutoff
	k := math.Tan(math.Pi * cutoff / sampleRate)
	k2 := k * k

	var sections []biquad

	// Conjugate pole pairs
	for j := 0; j < order/2; j++ {
		// Pole angle from the negative real axis
		theta := float64(2*j+1) * math.Pi / float64(2*order)
		d := 2 * math.Sin(theta) * k

		norm := 1 / (1 + d + k2)
		sections = append(sections, biquad{
			b0: k2 * norm,
			b1: 2 * k2 * norm,
			b2: k2 * norm,
			a1: 2 * (k2 - 1) * norm,
			a2: (1 - d + k2) * norm,
		})
	}

	// Odd orders add a single real pole
	if order%2 == 1 {
		norm := 1 / (k + 1)
		sections = append(sections, biquad{
			b0: k * norm,
			b1: k * norm,
			a1: (k - 1) * norm,
		})
	}

	return sections, nil
}

// LowPass applies a Butterworth low-pass filter of the given order
func LowPass(data []float64, cutoff, sampleRate float64, order int) ([]float64, error) {
	sections, err := butterworthSections(cutoff, sampleRate, order)
	if err != nil {
		return nil, err
	}

	out := data
	for _, s := range sections {
		out = s.apply(out)
	}
	return out, nil
}

// FiltFilt applies a Butterworth low-pass filter forward and backward,
// cancelling the filter's phase delay. Edge transients are reduced by
// odd-reflection padding before filtering.
func FiltFilt(data []float64, cutoff, sampleRate float64, order int) ([]float64, error) {
	sections, err := butterworthSections(cutoff, sampleRate, order)
	if err != nil {
		return nil, err
	}

	padlen := 3 * (order + 1)
	if padlen >= len(data) {
		padlen = len(data) - 1
	}
	if padlen < 0 {
		padlen = 0
	}

	padded := reflectPad(data, padlen)

	for _, s := range sections {
		padded = s.apply(padded)
	}
	reverse(padded)
	for _, s := range sections {
		padded = s.apply(padded)
	}
	reverse(padded)

	return padded[padlen : len(padded)-padlen], nil
}

// reflectPad extends data by n points on each side using odd reflection
// about the end values
func reflectPad(data []float64, n int) []float64 {
	out := make([]float64, 0, len(data)+2*n)
	for i := n; i >= 1; i-- {
		out = append(out, 2*data[0]-data[i])
	}
	out = append(out, data...)
	last := len(data) - 1
	for i := 1; i <= n; i++ {
		out = append(out, 2*data[last]-data[last-i])
	}
	return out
}

func reverse(data []float64) {
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}
