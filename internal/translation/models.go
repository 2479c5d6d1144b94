package translation

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUnsupportedLanguage is returned when a transcript's detected language is
// neither of the two supported source tags. The pipeline treats this as
// "skip translation", not as a failure.
var ErrUnsupportedLanguage = errors.New("unsupported source language")

// Result represents a completed translation
type Result struct {
	SourceText     string        `json:"source_text"`
	TranslatedText string        `json:"translated_text"`
	SourceLang     string        `json:"source_lang"`
	TargetLang     string        `json:"target_lang"`
	ProcessingTime time.Duration `json:"processing_time"`
	Model          string        `json:"model"`
}

// Direction returns a human-readable translation direction, e.g. "RU -> EN"
func (r Result) Direction() string {
	return strings.ToUpper(r.SourceLang) + " -> " + strings.ToUpper(r.TargetLang)
}

// Engine translates text between the two supported languages. WarmUp issues a
// throwaway request so the first real segment does not pay the model's
// cold-start cost.
type Engine interface {
	Translate(ctx context.Context, text, sourceLang string) (*Result, error)
	WarmUp(ctx context.Context) error
}
