package pipeline

import (
	"sync"
	"time"
)

// Stats collects pipeline counters under a single lock. Workers increment,
// the coordinator and the API read snapshots.
type Stats struct {
	mu sync.Mutex

	captured             int64
	transcribed          int64
	translationAttempted int64
	translated           int64
	dropped              int64

	recognitionTime time.Duration
	translationTime time.Duration
}

// Snapshot is an immutable copy of the counters plus derived metrics
type Snapshot struct {
	ChunksCaptured       int64         `json:"chunks_captured"`
	ChunksTranscribed    int64         `json:"chunks_transcribed"`
	TranslationAttempted int64         `json:"translation_attempted"`
	ChunksTranslated     int64         `json:"chunks_translated"`
	ChunksDropped        int64         `json:"chunks_dropped"`
	RecognitionTime      time.Duration `json:"recognition_time"`
	TranslationTime      time.Duration `json:"translation_time"`
	AvgRecognitionTime   time.Duration `json:"avg_recognition_time"`
	AvgTranslationTime   time.Duration `json:"avg_translation_time"`
	Coverage             float64       `json:"coverage"`
}

// NewStats creates a new stats collector
func NewStats() *Stats {
	return &Stats{}
}

// IncCaptured counts a chunk admitted by the producer
func (s *Stats) IncCaptured() {
	s.mu.Lock()
	s.captured++
	s.mu.Unlock()
}

// IncTranscribed counts a chunk that went through recognition, attributing
// the chunk's processing duration when it produced at least one segment
func (s *Stats) IncTranscribed(elapsed time.Duration) {
	s.mu.Lock()
	s.transcribed++
	s.recognitionTime += elapsed
	s.mu.Unlock()
}

// IncTranslationAttempted counts a segment the translation stage picked up
func (s *Stats) IncTranslationAttempted() {
	s.mu.Lock()
	s.translationAttempted++
	s.mu.Unlock()
}

// IncTranslated counts a successful translation and its duration
func (s *Stats) IncTranslated(elapsed time.Duration) {
	s.mu.Lock()
	s.translated++
	s.translationTime += elapsed
	s.mu.Unlock()
}

// IncDropped counts a queue eviction, from either hop
func (s *Stats) IncDropped() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Snapshot returns an atomic copy of the counters with derived metrics.
// Coverage is transcribed/captured, 0 when nothing was captured yet.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ChunksCaptured:       s.captured,
		ChunksTranscribed:    s.transcribed,
		TranslationAttempted: s.translationAttempted,
		ChunksTranslated:     s.translated,
		ChunksDropped:        s.dropped,
		RecognitionTime:      s.recognitionTime,
		TranslationTime:      s.translationTime,
	}
	if s.transcribed > 0 {
		snap.AvgRecognitionTime = s.recognitionTime / time.Duration(s.transcribed)
	}
	if s.translated > 0 {
		snap.AvgTranslationTime = s.translationTime / time.Duration(s.translated)
	}
	if s.captured > 0 {
		snap.Coverage = float64(s.transcribed) / float64(s.captured)
	}
	return snap
}
