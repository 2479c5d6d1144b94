package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/okorolev/tolmach/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:        baseURL,
		Model:          "distil-large-v3",
		SampleRate:     16000,
		TimeoutSeconds: 5,
	}, testLogger(t))
}

func TestTranscribeParsesSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("request is not multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "distil-large-v3" {
			t.Errorf("model = %q, want distil-large-v3", got)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q, want verbose_json", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "chunk.wav" {
			t.Errorf("filename = %q, want chunk.wav", header.Filename)
		}

		// The uploaded chunk must be a WAV a real server would accept
		payload, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("failed to read file part: %v", err)
		}
		dec := wav.NewDecoder(bytes.NewReader(payload))
		buf, err := dec.FullPCMBuffer()
		if err != nil {
			t.Fatalf("uploaded chunk is not a decodable wav: %v", err)
		}
		if dec.BitDepth != 16 || dec.NumChans != 1 || dec.SampleRate != 16000 {
			t.Errorf("uploaded chunk format = %d-bit %dch %dHz, want 16-bit 1ch 16000Hz",
				dec.BitDepth, dec.NumChans, dec.SampleRate)
		}
		if len(buf.Data) != 16000 {
			t.Errorf("uploaded chunk has %d samples, want 16000", len(buf.Data))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"language":             "ru",
			"language_probability": 0.97,
			"duration":             4.0,
			"segments": []map[string]interface{}{
				{"start": 0.0, "end": 1.8, "text": " Привет "},
				{"start": 2.0, "end": 3.5, "text": "Как дела?"},
				{"start": 3.6, "end": 3.7, "text": "   "},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	segments, err := client.Transcribe(context.Background(), make([]float32, 16000))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	// Whitespace-only segments are dropped
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Text != "Привет" {
		t.Errorf("segment 0 text = %q, want %q", segments[0].Text, "Привет")
	}
	if segments[0].Language != "ru" {
		t.Errorf("segment 0 language = %q, want ru", segments[0].Language)
	}
	if segments[0].Confidence != 0.97 {
		t.Errorf("segment 0 confidence = %v, want 0.97", segments[0].Confidence)
	}
	if segments[0].End != 1800*time.Millisecond {
		t.Errorf("segment 0 end = %v, want 1.8s", segments[0].End)
	}
	if segments[1].Text != "Как дела?" {
		t.Errorf("segment 1 text = %q, want %q", segments[1].Text, "Как дела?")
	}
	if segments[0].ProcessingTime <= 0 {
		t.Error("processing time not recorded")
	}
}

func TestTranscribeEmptyChunk(t *testing.T) {
	client := newTestClient(t, "http://localhost:1")
	segments, err := client.Transcribe(context.Background(), nil)
	if err != nil {
		t.Fatalf("Transcribe on empty chunk failed: %v", err)
	}
	if segments != nil {
		t.Errorf("got %d segments for empty chunk, want none", len(segments))
	}
}

func TestTranscribeNoSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"language":             "en",
			"language_probability": 0.4,
			"duration":             4.0,
			"segments":             []interface{}{},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	segments, err := client.Transcribe(context.Background(), make([]float32, 16000))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("got %d segments, want 0 for a chunk with no speech", len(segments))
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if _, err := client.Transcribe(context.Background(), make([]float32, 16000)); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}
