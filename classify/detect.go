package classify

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/critiq-ai/critiq/llm"
	"github.com/critiq-ai/critiq/log"
	"github.com/critiq-ai/critiq/reviews"
	"github.com/critiq-ai/critiq/severity"
)

// Detector extracts issues from a review.
type Detector interface {
	Detect(ctx context.Context, review reviews.RawReview) ([]DetectedIssue, error)
}

const detectPrompt = `You are a review analyst for a customer-facing product.
Identify every distinct problem the following review describes.

Review (rating %d/5) by %s:
%q

Respond with only a JSON array. Each element:
{"error_summary": "<max 140 chars>", "categories": ["<label>", ...],
 "severity": "Critical"|"Major"|"Minor"|"Suggestion"|"None",
 "rationale": "<one sentence>"}

Return [] if the review reports no problems.`

// LLMDetector asks a chat model to extract issues.
type LLMDetector struct {
	model  llms.Model
	logger log.Logger
}

var _ Detector = (*LLMDetector)(nil)

// NewLLMDetector creates a detector over a chat model.
func NewLLMDetector(model llms.Model, logger log.Logger) *LLMDetector {
	if logger == nil {
		logger = log.NopLogger{}
	}
	return &LLMDetector{model: model, logger: logger}
}

// Detect extracts issues from one review. Output is constrained on the
// way in: summaries are truncated to SummaryMaxLen, empty category lists
// become ["Other"], and severity labels outside the known five are
// coerced to None so downstream normalization sees only valid input.
func (d *LLMDetector) Detect(ctx context.Context, review reviews.RawReview) ([]DetectedIssue, error) {
	prompt := fmt.Sprintf(detectPrompt, review.Rating, review.ReviewerName, review.Text)

	resp, err := d.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("detect model call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("detect model call: empty response")
	}

	issues, err := decodeIssues(resp.Choices[0].Content)
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", review.ID, err)
	}

	for i := range issues {
		issues[i] = d.constrain(review.ID, issues[i])
	}
	return issues, nil
}

// decodeIssues accepts either a bare JSON array or an object wrapping it
// under an "errors" key.
func decodeIssues(content string) ([]DetectedIssue, error) {
	var issues []DetectedIssue
	if err := llm.DecodeJSON(content, &issues); err == nil {
		return issues, nil
	}

	var envelope struct {
		Errors []DetectedIssue `json:"errors"`
	}
	if err := llm.DecodeJSON(content, &envelope); err == nil && envelope.Errors != nil {
		return envelope.Errors, nil
	}

	return nil, llm.ErrUnparseable
}

func (d *LLMDetector) constrain(reviewID string, issue DetectedIssue) DetectedIssue {
	if runes := []rune(issue.Summary); len(runes) > SummaryMaxLen {
		issue.Summary = string(runes[:SummaryMaxLen])
	}
	if len(issue.Categories) == 0 {
		issue.Categories = []string{"Other"}
	}
	if !issue.Severity.Known() {
		d.logger.Warn("detect %s: unknown severity %q, using None", reviewID, issue.Severity)
		issue.Severity = severity.None
	}
	return issue
}
