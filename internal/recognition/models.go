package recognition

import (
	"context"
	"time"
)

// Language tags the pipeline recognizes. Anything else is passed through
// untranslated.
const (
	LangRussian = "ru"
	LangEnglish = "en"
)

// TranscriptSegment represents a single transcribed span of speech within one
// audio chunk. A chunk can yield zero or more segments depending on the
// engine's voice-activity filtering.
type TranscriptSegment struct {
	Text           string        `json:"text"`
	Language       string        `json:"language"`
	Confidence     float64       `json:"confidence"` // language detection confidence, 0..1
	Start          time.Duration `json:"start"`      // offset within the chunk
	End            time.Duration `json:"end"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// IsRussian reports whether the segment was detected as Russian
func (s TranscriptSegment) IsRussian() bool {
	return s.Language == LangRussian
}

// Engine transcribes audio chunks into ordered transcript segments. An empty
// result means the chunk contained no detected speech; that is not an error.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32) ([]TranscriptSegment, error)
}
