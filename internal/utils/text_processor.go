package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

var (
	// ErrEmptyURL is returned when no URL was submitted
	ErrEmptyURL = errors.New("URL is required")
	// ErrURLTooLong is returned when a submitted URL exceeds the configured limit
	ErrURLTooLong = errors.New("URL exceeds maximum length")
)

// TextProcessor provides utilities for handling submitted URL text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// ValidateInput checks a submitted URL before it enters the pipeline. The URL
// itself is never modified: identity is the exact submitted string.
func (tp *TextProcessor) ValidateInput(raw string, maxLength int) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyURL
	}
	if maxLength > 0 && len(raw) > maxLength {
		tp.logger.Debug("Rejected oversized URL",
			zap.Int("length", len(raw)),
			zap.Int("max_length", maxLength))
		return fmt.Errorf("%w (%d > %d bytes)", ErrURLTooLong, len(raw), maxLength)
	}
	return nil
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	// If no limit or text is already within limits, return as is
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	// First truncate to the byte limit
	truncated := text[:maxSize]

	// Ensure the truncated text ends with a valid UTF-8 sequence
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	return truncated + "..."
}

// SanitizeUTF8 drops invalid UTF-8 bytes so the text can be logged or printed safely
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "")
}

// Display prepares a URL for logs and terminal output
func (tp *TextProcessor) Display(raw string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(raw, maxSize))
}
