package pipeline

import (
	"time"

	"github.com/okorolev/tolmach/internal/recognition"
	"github.com/okorolev/tolmach/internal/translation"
)

// AudioChunk is one capture interval's worth of mono samples. Immutable once
// enqueued.
type AudioChunk struct {
	Samples    []float32
	CapturedAt time.Time
}

// Duration returns the chunk length at the given sample rate
func (c AudioChunk) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(sampleRate) * float64(time.Second))
}

// Item is the pipeline's terminal entity: one transcript segment with its
// translation, if translation succeeded. Translation is nil exactly when the
// translation failed or the detected language was unrecognized; the transcript
// is still delivered.
type Item struct {
	Transcript  recognition.TranscriptSegment `json:"transcript"`
	Translation *translation.Result           `json:"translation,omitempty"`
	CreatedAt   time.Time                     `json:"created_at"`
}

// Sink receives completed items, one call per item, on the translation
// worker's goroutine. A slow sink therefore throttles the translation stage
// but not capture or recognition.
type Sink interface {
	Deliver(item Item)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(item Item)

// Deliver implements Sink
func (f SinkFunc) Deliver(item Item) {
	f(item)
}
