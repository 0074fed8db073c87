package signal

import (
	"math"
	"math/cmplx"
)

// FFT computes the in-place radix-2 Cooley-Tukey FFT of x.
// The length of x must be a power of two.
func FFT(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	// Butterflies
	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wl := cmplx.Exp(complex(0, angle))
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			for j := 0; j < length/2; j++ {
				u := x[i+j]
				v := x[i+j+length/2] * w
				x[i+j] = u + v
				x[i+j+length/2] = u - v
				w *= wl
			}
		}
	}
}

// NextPow2 returns the smallest power of two >= n
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// HannWindow returns an n-point Hann window
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// Welch estimates the one-sided power spectral density of data using
// Welch's method: Hann-windowed segments of nperseg points with 50%
// overlap, mean-detrended, averaged in the frequency domain. nperseg is
// clamped to the data length. Returns the frequency bins and the PSD.
func Welch(data []float64, fs float64, nperseg int) (freqs, psd []float64) {
	if len(data) == 0 {
		return nil, nil
	}
	if nperseg > len(data) {
		nperseg = len(data)
	}
	if nperseg < 2 {
		nperseg = 2
	}

	window := HannWindow(nperseg)
	var windowPower float64
	for _, w := range window {
		windowPower += w * w
	}

	nfft := NextPow2(nperseg)
	half := nfft/2 + 1
	step := nperseg / 2
	if step < 1 {
		step = 1
	}

	acc := make([]float64, half)
	segments := 0

	for start := 0; start+nperseg <= len(data); start += step {
		seg := data[start : start+nperseg]

		// Detrend by the segment mean, apply the window, zero-pad to nfft
		m := Mean(seg)
		buf := make([]complex128, nfft)
		for i, v := range seg {
			buf[i] = complex((v-m)*window[i], 0)
		}

		FFT(buf)
		for k := 0; k < half; k++ {
			acc[k] += cmplx.Abs(buf[k]) * cmplx.Abs(buf[k])
		}
		segments++
	}

	if segments == 0 {
		return nil, nil
	}

	scale := 1.0 / (fs * windowPower * float64(segments))
	freqs = make([]float64, half)
	psd = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) * fs / float64(nfft)
		psd[k] = acc[k] * scale
		// One-sided spectrum doubles everything except DC and Nyquist
		if k > 0 && k < half-1 {
			psd[k] *= 2
		}
	}

	return freqs, psd
}

// BandPower integrates the PSD over [lo, hi] (inclusive) by the
// trapezoidal rule over the selected bins
func BandPower(freqs, psd []float64, lo, hi float64) float64 {
	var band []float64
	for i, f := range freqs {
		if f >= lo && f <= hi {
			band = append(band, math.Abs(psd[i]))
		}
	}

	var power float64
	for i := 1; i < len(band); i++ {
		power += (band[i-1] + band[i]) / 2
	}
	return power
}
