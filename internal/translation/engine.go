package translation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/okorolev/tolmach/pkg/logger"
)

// Config represents the translation engine configuration
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
	Temperature    float64
	MaxTokens      int
}

// System prompts tuned for medical interpretation. The model sees only the
// raw transcript text as user input.
const (
	promptRUtoEN = "You are a professional medical interpreter translating Russian to English. Rules:\n" +
		"1. Translate accurately, preserving medical meaning.\n" +
		"2. For Russian drug names, add the US equivalent in parentheses if you know it. Example: Энап (Vasotec/enalapril).\n" +
		"3. For false friends, translate the CORRECT meaning. Example: ангина = tonsillitis, NOT angina pectoris.\n" +
		"4. Keep the translation natural and professional.\n" +
		"5. Output ONLY the English translation. No explanations, no notes, no preamble."

	promptENtoRU = "You are a professional medical interpreter translating English to Russian. Rules:\n" +
		"1. Translate accurately, preserving medical meaning.\n" +
		"2. For US drug names, add the Russian equivalent in parentheses if you know it. Example: Augmentin (Амоксиклав).\n" +
		"3. Use standard Russian medical terminology.\n" +
		"4. Keep the translation natural and professional.\n" +
		"5. Output ONLY the Russian translation. No explanations, no notes, no preamble."
)

// LLMEngine translates between Russian and English using a local LLM served
// through an OpenAI-compatible chat completions endpoint (Ollama's /v1).
type LLMEngine struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *logger.Logger
}

// NewLLMEngine creates a new translation engine
func NewLLMEngine(cfg Config, log *logger.Logger) *LLMEngine {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := openai.NewClient(
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	return &LLMEngine{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		logger:      log.Named("translator"),
	}
}

// Translate converts text between the two supported languages. The direction
// is decided by the detected source language tag.
func (e *LLMEngine) Translate(ctx context.Context, text, sourceLang string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	var systemPrompt, targetLang string
	switch sourceLang {
	case "ru":
		systemPrompt = promptRUtoEN
		targetLang = "en"
	case "en":
		systemPrompt = promptENtoRU
		targetLang = "ru"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, sourceLang)
	}

	start := time.Now()
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(e.temperature),
		MaxTokens:   openai.Int(int64(e.maxTokens)),
	})
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	translated := cleanOutput(resp.Choices[0].Message.Content)
	if translated == "" {
		return nil, fmt.Errorf("chat completion returned empty translation")
	}

	result := &Result{
		SourceText:     text,
		TranslatedText: translated,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		ProcessingTime: elapsed,
		Model:          e.model,
	}

	e.logger.Debug("Translated segment",
		logger.String("direction", result.Direction()),
		logger.Duration("elapsed", elapsed),
		logger.Int("source_chars", len(text)))

	return result, nil
}

// WarmUp issues a short throwaway translation so the model is resident in
// memory before real traffic arrives. The first request against a cold Ollama
// instance can take tens of seconds.
func (e *LLMEngine) WarmUp(ctx context.Context) error {
	e.logger.Info("Warming up translation model", logger.String("model", e.model))

	start := time.Now()
	_, err := e.Translate(ctx, "Здравствуйте", "ru")
	if err != nil {
		return fmt.Errorf("warm-up request failed: %w", err)
	}

	e.logger.Info("Warm-up complete", logger.Duration("elapsed", time.Since(start)))
	return nil
}

// cleanOutput strips artifacts the model adds despite instructions: wrapping
// quotes and "Translation:" style preambles.
func cleanOutput(text string) string {
	text = strings.TrimSpace(text)

	if len(text) >= 2 {
		if (text[0] == '"' && text[len(text)-1] == '"') ||
			(text[0] == '\'' && text[len(text)-1] == '\'') {
			text = text[1 : len(text)-1]
		}
	}

	preambles := []string{
		"Here is the translation:",
		"Here's the translation:",
		"Translation:",
		"Перевод:",
		"Вот перевод:",
	}
	for _, p := range preambles {
		if len(text) >= len(p) && strings.EqualFold(text[:len(p)], p) {
			text = text[len(p):]
			break
		}
	}

	return strings.TrimSpace(text)
}

var _ Engine = (*LLMEngine)(nil)
