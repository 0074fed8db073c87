package signal

// ClipSegment marks a run of samples clipped against the ADC ceiling.
// Start is inclusive, End exclusive.
type ClipSegment struct {
	Start int
	End   int
}

// MarkClipping finds contiguous runs of samples above threshold. The
// threshold should sit a few points below the sensor's full-scale value to
// absorb data-line noise.
func MarkClipping(data []float64, threshold float64) []ClipSegment {
	var segments []ClipSegment
	start := -1

	for i, v := range data {
		if v > threshold {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			segments = append(segments, ClipSegment{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		segments = append(segments, ClipSegment{Start: start, End: len(data)})
	}

	return segments
}

// InterpolateClipping patches clipped segments with a cubic spline fitted
// over 100 ms of signal on each side of the segment. Segments without
// enough leading or trailing context are left untouched. Returns a new
// slice; the input is not modified.
func InterpolateClipping(data []float64, sampleRate, threshold float64) []float64 {
	out := make([]float64, len(data))
	copy(out, data)

	context := int(0.1 * sampleRate)
	if context < 2 {
		context = 2
	}

	for _, seg := range MarkClipping(data, threshold) {
		if seg.Start < context || seg.End+context > len(data) {
			// Cannot fit a spline without signal on both sides
			continue
		}

		// Knots: the 100 ms windows before and after the clipped run
		n := 2 * context
		xs := make([]float64, 0, n)
		ys := make([]float64, 0, n)
		for x := seg.Start - context; x < seg.Start; x++ {
			xs = append(xs, float64(x))
			ys = append(ys, data[x])
		}
		for x := seg.End; x < seg.End+context; x++ {
			xs = append(xs, float64(x))
			ys = append(ys, data[x])
		}

		spline, err := NewCubicSpline(xs, ys)
		if err != nil {
			continue
		}

		for x := seg.Start; x < seg.End; x++ {
			out[x] = spline.At(float64(x))
		}
	}

	return out
}
