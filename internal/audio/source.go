package audio

import "math"

// Source is a capture device abstraction. Implementations accumulate mono
// float32 samples at the pipeline's target sample rate; the pipeline's
// producer periodically snapshots and clears the buffer.
type Source interface {
	// Start begins capturing. Returns an error if the device cannot be acquired.
	Start() error
	// Stop ends capturing. Safe to call on a stopped source.
	Stop()
	// GetAndClearBuffer atomically returns the samples accumulated since the
	// last call and resets the buffer. Returns nil when nothing accumulated.
	GetAndClearBuffer() []float32
}

// RMS computes the root-mean-square energy of a sample buffer. Used by the
// producer to filter silence before it reaches the recognition stage.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
