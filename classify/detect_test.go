package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/critiq-ai/critiq/reviews"
	"github.com/critiq-ai/critiq/severity"
)

type fakeModel struct {
	response string
	err      error

	lastPrompt string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(messages) > 0 {
		for _, part := range messages[len(messages)-1].Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.lastPrompt = text.Text
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLLMDetector_Detect(t *testing.T) {
	model := &fakeModel{response: `[
		{"error_summary": "app crashes on save", "categories": ["App Stability"],
		 "severity": "Major", "rationale": "blocks claim submission"}
	]`}
	d := NewLLMDetector(model, nil)

	review := reviews.RawReview{ID: "REV-0001", Text: "it crashes every time I save", Rating: 1, ReviewerName: "J. Doe"}
	issues, err := d.Detect(context.Background(), review)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	assert.Equal(t, "app crashes on save", issues[0].Summary)
	assert.Equal(t, []string{"App Stability"}, issues[0].Categories)
	assert.Equal(t, severity.Major, issues[0].Severity)
	assert.Contains(t, model.lastPrompt, "it crashes every time I save")
}

func TestLLMDetector_EnvelopeAndFences(t *testing.T) {
	model := &fakeModel{response: "```json\n" +
		`{"errors": [{"error_summary": "slow refunds", "categories": ["Refunds"], "severity": "Minor", "rationale": "takes weeks"}]}` +
		"\n```"}
	d := NewLLMDetector(model, nil)

	issues, err := d.Detect(context.Background(), reviews.RawReview{ID: "REV-0002"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "slow refunds", issues[0].Summary)
}

func TestLLMDetector_ConstrainsOutput(t *testing.T) {
	long := strings.Repeat("x", SummaryMaxLen+25)
	model := &fakeModel{response: `[
		{"error_summary": "` + long + `", "categories": [], "severity": "Blocker", "rationale": ""}
	]`}
	d := NewLLMDetector(model, nil)

	issues, err := d.Detect(context.Background(), reviews.RawReview{ID: "REV-0003"})
	require.NoError(t, err)
	require.Len(t, issues, 1)

	assert.Len(t, issues[0].Summary, SummaryMaxLen)
	assert.Equal(t, []string{"Other"}, issues[0].Categories)
	assert.Equal(t, severity.None, issues[0].Severity)
}

func TestLLMDetector_NoIssues(t *testing.T) {
	d := NewLLMDetector(&fakeModel{response: "[]"}, nil)

	issues, err := d.Detect(context.Background(), reviews.RawReview{ID: "REV-0004"})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLLMDetector_Errors(t *testing.T) {
	d := NewLLMDetector(&fakeModel{err: errors.New("rate limited")}, nil)
	_, err := d.Detect(context.Background(), reviews.RawReview{ID: "REV-0005"})
	assert.Error(t, err)

	d = NewLLMDetector(&fakeModel{response: "the review mentions a crash"}, nil)
	_, err = d.Detect(context.Background(), reviews.RawReview{ID: "REV-0006"})
	assert.Error(t, err)
}
