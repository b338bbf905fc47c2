// Package vision sends device-label photos to a vision-capable model and
// returns its free-text answer. The answer is expected, but not guaranteed,
// to contain a JSON array of per-item records; decoding it is the extraction
// parser's job, not ours.
package vision

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"stocktake/internal/config"
)

// Analyzer turns one image into the model's free-text description of the
// items on it.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, clientName string) (string, error)
}

// NewAnalyzer builds the configured provider's client.
func NewAnalyzer(ctx context.Context, cfg config.VisionConfig, log *zap.Logger) (Analyzer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIClient(cfg, log), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
}
