// Package sentiment scores review text for the classification pipeline.
//
// The Scorer interface keeps the pipeline independent of any particular
// model; the shipped implementation delegates to a chat model and parses
// its JSON verdict leniently.
package sentiment

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/critiq-ai/critiq/llm"
	"github.com/critiq-ai/critiq/log"
)

// Label is the coarse sentiment class of a review.
type Label string

const (
	Positive Label = "Positive"
	Negative Label = "Negative"
	Neutral  Label = "Neutral"
)

// Signal is the per-review sentiment verdict.
type Signal struct {
	// Label is the coarse class.
	Label Label `json:"label"`

	// Confidence is the scorer's confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Polarity is the signed strength in [-1, 1]; zero for neutral.
	Polarity float64 `json:"polarity"`
}

// NeutralSignal is the fallback when scoring fails.
func NeutralSignal() Signal {
	return Signal{Label: Neutral, Confidence: 0, Polarity: 0}
}

// Scorer analyzes review text.
type Scorer interface {
	Analyze(ctx context.Context, text string) (Signal, error)
}

const scorerPrompt = `Analyze the sentiment of the following customer review.

Review: %q

Respond with only a JSON object:
{"label": "Positive"|"Negative"|"Neutral", "confidence": <0..1>, "polarity": <-1..1>}

Polarity is signed strength: strongly negative reviews approach -1,
strongly positive approach +1, neutral is 0.`

// LLMScorer asks a chat model for the sentiment verdict.
type LLMScorer struct {
	model  llms.Model
	logger log.Logger
}

var _ Scorer = (*LLMScorer)(nil)

// NewLLMScorer creates a scorer over a chat model.
func NewLLMScorer(model llms.Model, logger log.Logger) *LLMScorer {
	if logger == nil {
		logger = log.NopLogger{}
	}
	return &LLMScorer{model: model, logger: logger}
}

// Analyze scores one review. Model transport errors are returned; a model
// that answers but cannot be parsed degrades to a neutral signal so one
// chatty response does not sink a whole batch.
func (s *LLMScorer) Analyze(ctx context.Context, text string) (Signal, error) {
	resp, err := s.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(scorerPrompt, text)),
	})
	if err != nil {
		return NeutralSignal(), fmt.Errorf("sentiment model call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return NeutralSignal(), fmt.Errorf("sentiment model call: empty response")
	}

	var sig Signal
	if err := llm.DecodeJSON(resp.Choices[0].Content, &sig); err != nil {
		s.logger.Warn("sentiment: unparseable verdict, defaulting to neutral: %q", resp.Choices[0].Content)
		return NeutralSignal(), nil
	}

	return clamp(sig), nil
}

// clamp forces the signal into its documented ranges and repairs a
// missing or unknown label from the polarity sign.
func clamp(sig Signal) Signal {
	if sig.Polarity > 1 {
		sig.Polarity = 1
	} else if sig.Polarity < -1 {
		sig.Polarity = -1
	}

	if sig.Confidence > 1 {
		sig.Confidence = 1
	} else if sig.Confidence < 0 {
		sig.Confidence = 0
	}

	switch sig.Label {
	case Positive, Negative, Neutral:
	default:
		switch {
		case sig.Polarity > 0:
			sig.Label = Positive
		case sig.Polarity < 0:
			sig.Label = Negative
		default:
			sig.Label = Neutral
		}
	}

	return sig
}
