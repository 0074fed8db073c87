package recording

import "math"

// SampleRateFromTimestamps derives the sampling rate in Hz from a series of
// millisecond timestamps as floor(1000 / mean(successive differences)).
// The sensor clock drifts slightly, so the rate is averaged over the whole
// recording and floored to a whole Hz.
func SampleRateFromTimestamps(timestamps []int64) (float64, error) {
	if len(timestamps) < 2 {
		return 0, ErrTooShort
	}

	var sum int64
	for i := 1; i < len(timestamps); i++ {
		sum += timestamps[i] - timestamps[i-1]
	}

	mean := float64(sum) / float64(len(timestamps)-1)
	if mean <= 0 {
		return 0, ErrTooShort
	}

	return math.Floor(1000.0 / mean), nil
}

// SampleRateMSTimer estimates the sampling rate from the span of a
// millisecond timer: count / elapsed * 1000
func SampleRateMSTimer(timestamps []int64) (float64, error) {
	if len(timestamps) < 2 {
		return 0, ErrTooShort
	}

	elapsed := timestamps[len(timestamps)-1] - timestamps[0]
	if elapsed <= 0 {
		return 0, ErrTooShort
	}

	return float64(len(timestamps)) / float64(elapsed) * 1000.0, nil
}
