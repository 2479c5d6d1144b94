package pipeline

import (
	"testing"
	"time"
)

func TestStatsEmptySnapshot(t *testing.T) {
	s := NewStats()
	snap := s.Snapshot()

	if snap.Coverage != 0 {
		t.Errorf("Coverage with nothing captured = %v, want 0", snap.Coverage)
	}
	if snap.AvgRecognitionTime != 0 || snap.AvgTranslationTime != 0 {
		t.Error("averages should be 0 with no samples")
	}
}

func TestStatsCoverageBounds(t *testing.T) {
	s := NewStats()

	for i := 0; i < 10; i++ {
		s.IncCaptured()
	}
	for i := 0; i < 7; i++ {
		s.IncTranscribed(100 * time.Millisecond)
	}

	snap := s.Snapshot()
	if snap.Coverage < 0 || snap.Coverage > 1 {
		t.Fatalf("Coverage = %v, want within [0, 1]", snap.Coverage)
	}
	if snap.Coverage != 0.7 {
		t.Errorf("Coverage = %v, want 0.7", snap.Coverage)
	}
}

func TestStatsAverages(t *testing.T) {
	s := NewStats()

	s.IncTranscribed(2 * time.Second)
	s.IncTranscribed(4 * time.Second)
	s.IncTranslated(1 * time.Second)
	s.IncTranslated(3 * time.Second)
	s.IncTranslationAttempted()
	s.IncTranslationAttempted()
	s.IncTranslationAttempted()

	snap := s.Snapshot()
	if snap.AvgRecognitionTime != 3*time.Second {
		t.Errorf("AvgRecognitionTime = %v, want 3s", snap.AvgRecognitionTime)
	}
	if snap.AvgTranslationTime != 2*time.Second {
		t.Errorf("AvgTranslationTime = %v, want 2s", snap.AvgTranslationTime)
	}
	if snap.TranslationAttempted != 3 {
		t.Errorf("TranslationAttempted = %d, want 3", snap.TranslationAttempted)
	}
	if snap.ChunksTranslated != 2 {
		t.Errorf("ChunksTranslated = %d, want 2", snap.ChunksTranslated)
	}
}

func TestStatsSnapshotIsCopy(t *testing.T) {
	s := NewStats()
	s.IncCaptured()

	snap := s.Snapshot()
	s.IncCaptured()

	if snap.ChunksCaptured != 1 {
		t.Errorf("snapshot mutated after the fact: captured = %d, want 1", snap.ChunksCaptured)
	}
}
