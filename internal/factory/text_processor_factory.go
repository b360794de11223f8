package factory

import (
	"github.com/mikey/url-verifier/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the URL input processor shared by the HTTP and
// CLI frontends. The processor validates submitted URLs and sanitizes them for
// display and logging; it never rewrites the URL used as the cache key.
type TextProcessorFactory struct {
	logger *zap.Logger
}

// NewTextProcessorFactory creates a factory whose processors log under "input"
func NewTextProcessorFactory(logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		logger: logger.Named("input"),
	}
}

// CreateTextProcessor returns a processor for submitted URL text
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}
