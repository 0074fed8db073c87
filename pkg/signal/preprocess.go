// Package signal provides the numeric primitives used by the heart-rate
// analysis pipeline: scaling, smoothing, filtering, clipping repair and
// spectral estimation.
package signal

import (
	"math"
	"sort"
)

// ADCRange is the full-scale value of the sensor's 10-bit ADC
const ADCRange = 1024.0

// Scale rescales data linearly into [0, upper]
func Scale(data []float64, upper float64) []float64 {
	if len(data) == 0 {
		return nil
	}

	lo, hi := Min(data), Max(data)
	span := hi - lo

	out := make([]float64, len(data))
	if span == 0 {
		return out
	}
	for i, v := range data {
		out[i] = upper * ((v - lo) / span)
	}
	return out
}

// EnhancePeaks accentuates the highest peaks by repeatedly squaring the
// signal and rescaling to the ADC range. Improves the signal-to-noise
// ratio on weak recordings; denoise first.
func EnhancePeaks(data []float64, iterations int) []float64 {
	out := Scale(data, ADCRange)
	for i := 0; i < iterations; i++ {
		for j, v := range out {
			out[j] = v * v
		}
		out = Scale(out, ADCRange)
	}
	return out
}

// FlipSignal mirrors a raw signal with negative peaks around its mean,
// recovering a normal ECG orientation from inverted sensor output
func FlipSignal(data []float64, enhance bool) []float64 {
	m := Mean(data)
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = (m - v) + m
	}
	if enhance {
		out = EnhancePeaks(out, 2)
	}
	return out
}

// RollingMean computes the rolling mean of data over a window expressed in
// seconds. The result has the same length as the input: both ends are padded
// with the global mean where the window does not fit.
func RollingMean(data []float64, windowSeconds, sampleRate float64) []float64 {
	window := int(windowSeconds * sampleRate)
	if window < 1 {
		window = 1
	}
	if window > len(data) {
		window = len(data)
	}

	avg := Mean(data)
	out := make([]float64, len(data))

	// Running-sum rolling mean over full windows
	n := len(data) - window + 1
	var sum float64
	for i := 0; i < window; i++ {
		sum += data[i]
	}
	core := make([]float64, n)
	core[0] = sum / float64(window)
	for i := 1; i < n; i++ {
		sum += data[i+window-1] - data[i-1]
		core[i] = sum / float64(window)
	}

	// Pad both ends with the global mean
	pad := (len(data) - n) / 2
	for i := 0; i < pad; i++ {
		out[i] = avg
	}
	copy(out[pad:], core)
	for i := pad + n; i < len(out); i++ {
		out[i] = avg
	}

	return out
}

// Mean returns the arithmetic mean of data, NaN for empty input
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Std returns the population standard deviation of data
func Std(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	m := Mean(data)
	var sum float64
	for _, v := range data {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(data)))
}

// Min returns the smallest value in data, NaN for empty input
func Min(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value in data, NaN for empty input
func Max(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Median returns the median of data
func Median(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// MAD returns the median absolute deviation of data
func MAD(data []float64) float64 {
	med := Median(data)
	dev := make([]float64, len(data))
	for i, v := range data {
		dev[i] = math.Abs(v - med)
	}
	return Median(dev)
}

// HampelFilter suppresses outliers: each point more than 3 MAD above the
// median of its surrounding window is replaced by that median. The window
// spans filtSize points total (filtSize/2 on each side).
func HampelFilter(data []float64, filtSize int) []float64 {
	out := make([]float64, len(data))
	copy(out, data)

	half := filtSize / 2
	if half < 1 {
		return out
	}

	for i := half; i < len(data)-half-1; i++ {
		window := out[i-half : i+half]
		mad := MAD(window)
		med := Median(window)
		if out[i] > med+3*mad {
			out[i] = med
		}
	}
	return out
}

// HampelCorrect returns the difference between data and a large windowed
// Hampel filter (window of one second). Strong noise suppression, but
// relatively expensive to compute.
func HampelCorrect(data []float64, sampleRate float64) []float64 {
	filtered := HampelFilter(data, int(sampleRate))
	out := make([]float64, len(data))
	for i := range data {
		out[i] = data[i] - filtered[i]
	}
	return out
}
