package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"

	"github.com/okorolev/tolmach/pkg/logger"
)

// WAVFileSource replays a WAV file as if it were a live capture device,
// releasing samples at real-time pace. Used for development and soak testing
// without a sound card. The file must be mono at the pipeline's sample rate.
type WAVFileSource struct {
	path       string
	sampleRate int
	loop       bool
	logger     *logger.Logger

	mu       sync.Mutex
	samples  []float32
	pos      int
	lastRead time.Time
	running  bool
}

// NewWAVFileSource creates a replay source for the given file. With loop set,
// playback restarts from the beginning once the file is exhausted.
func NewWAVFileSource(path string, sampleRate int, loop bool, log *logger.Logger) *WAVFileSource {
	return &WAVFileSource{
		path:       path,
		sampleRate: sampleRate,
		loop:       loop,
		logger:     log.Named("wav-source"),
	}
}

// Start decodes the file and starts the replay clock
func (s *WAVFileSource) Start() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("failed to decode wav file: %w", err)
	}
	if dec.NumChans != 1 {
		return fmt.Errorf("wav file must be mono, got %d channels", dec.NumChans)
	}
	if int(dec.SampleRate) != s.sampleRate {
		return fmt.Errorf("wav file sample rate %d does not match pipeline rate %d", dec.SampleRate, s.sampleRate)
	}

	// Normalize integer PCM to [-1, 1]
	scale := float32(1.0)
	switch dec.BitDepth {
	case 8:
		scale = 1.0 / float32(1<<7)
	case 16:
		scale = 1.0 / float32(1<<15)
	case 24:
		scale = 1.0 / float32(1<<23)
	case 32:
		scale = 1.0 / float32(1<<31)
	}
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) * scale
	}

	s.mu.Lock()
	s.samples = samples
	s.pos = 0
	s.lastRead = time.Now()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Replaying WAV file as capture source",
		logger.String("path", s.path),
		logger.Float64("duration_sec", float64(len(samples))/float64(s.sampleRate)),
		logger.Bool("loop", s.loop))

	return nil
}

// Stop halts the replay clock
func (s *WAVFileSource) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// GetAndClearBuffer returns the slice of samples that "played" since the last
// call, bounded by real time so a 4s capture interval yields ~4s of audio.
func (s *WAVFileSource) GetAndClearBuffer() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || len(s.samples) == 0 {
		return nil
	}

	now := time.Now()
	elapsed := now.Sub(s.lastRead)
	s.lastRead = now

	n := int(elapsed.Seconds() * float64(s.sampleRate))
	if n <= 0 {
		return nil
	}

	out := make([]float32, 0, n)
	for n > 0 {
		remaining := len(s.samples) - s.pos
		if remaining <= 0 {
			if !s.loop {
				break
			}
			s.pos = 0
			remaining = len(s.samples)
		}
		take := n
		if take > remaining {
			take = remaining
		}
		out = append(out, s.samples[s.pos:s.pos+take]...)
		s.pos += take
		n -= take
		if !s.loop && s.pos >= len(s.samples) {
			break
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

var _ Source = (*WAVFileSource)(nil)
