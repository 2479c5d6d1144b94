package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/okorolev/tolmach/internal/audio"
	"github.com/okorolev/tolmach/pkg/logger"
)

// Config represents the recognition engine configuration
type Config struct {
	BaseURL        string
	Model          string
	SampleRate     int
	TimeoutSeconds int
}

// Client transcribes audio against a local whisper server exposing the
// OpenAI-compatible /v1/audio/transcriptions endpoint (faster-whisper-server,
// speaches, LocalAI). Chunks are uploaded as 16-bit PCM WAV and the
// verbose_json response carries per-request language detection.
type Client struct {
	baseURL    string
	model      string
	sampleRate int
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new recognition client
func NewClient(cfg Config, log *logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		sampleRate: cfg.SampleRate,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("whisper"),
	}
}

// verboseResponse is the verbose_json transcription response
type verboseResponse struct {
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	Duration            float64 `json:"duration"`
	Segments            []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads one audio chunk and returns the ordered transcript
// segments the engine detected in it. The engine's own VAD decides how many
// utterances a chunk contains; zero segments is a normal outcome.
func (c *Client) Transcribe(ctx context.Context, samples []float32) ([]TranscriptSegment, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to write response_format field: %w", err)
	}

	fw, err := mw.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(audio.EncodePCM16(samples, c.sampleRate)); err != nil {
		return nil, fmt.Errorf("failed to write wav payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := c.baseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(b))
	}

	var parsed verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}
	elapsed := time.Since(start)

	segments := make([]TranscriptSegment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, TranscriptSegment{
			Text:           text,
			Language:       parsed.Language,
			Confidence:     parsed.LanguageProbability,
			Start:          time.Duration(seg.Start * float64(time.Second)),
			End:            time.Duration(seg.End * float64(time.Second)),
			ProcessingTime: elapsed,
		})
	}

	c.logger.Debug("Transcribed audio chunk",
		logger.Int("samples", len(samples)),
		logger.Int("segments", len(segments)),
		logger.String("language", parsed.Language),
		logger.Duration("elapsed", elapsed))

	return segments, nil
}

var _ Engine = (*Client)(nil)
