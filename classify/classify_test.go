package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiq-ai/critiq/reviews"
	"github.com/critiq-ai/critiq/sentiment"
	"github.com/critiq-ai/critiq/severity"
)

func TestHashIssue(t *testing.T) {
	h := HashIssue("REV-0001", "crash on save")

	assert.Len(t, h, 16)
	assert.Equal(t, h, HashIssue("REV-0001", "crash on save"))
	assert.NotEqual(t, h, HashIssue("REV-0002", "crash on save"))
	assert.NotEqual(t, h, HashIssue("REV-0001", "crash on load"))
}

func TestEnrich_NormalizesSeverity(t *testing.T) {
	review := reviews.RawReview{ID: "REV-0001", Rating: 5}
	detected := []DetectedIssue{
		{Summary: "app crashes on save", Severity: severity.Major},
	}
	sig := sentiment.Signal{Label: sentiment.Negative, Confidence: 0.95, Polarity: -0.9}

	out := Enrich(review, detected, sig)
	require.Len(t, out, 1)

	assert.Equal(t, severity.Critical, out[0].FinalSeverity)
	assert.True(t, out[0].SentimentInfluenced)
	assert.Equal(t, severity.Major, out[0].Issue.Severity)
	assert.Equal(t, sig, out[0].Sentiment)
	assert.Equal(t, HashIssue("REV-0001", "app crashes on save"), out[0].Hash)
}

func TestEnrich_DeduplicatesByHash(t *testing.T) {
	review := reviews.RawReview{ID: "REV-0001", Rating: 3}
	detected := []DetectedIssue{
		{Summary: "slow claims process", Severity: severity.Minor, Rationale: "first"},
		{Summary: "rude support agent", Severity: severity.Major},
		{Summary: "slow claims process", Severity: severity.Major, Rationale: "second"},
	}

	out := Enrich(review, detected, sentiment.NeutralSignal())
	require.Len(t, out, 2)

	// The duplicate keeps its first position but the last enrichment wins.
	assert.Equal(t, "slow claims process", out[0].Issue.Summary)
	assert.Equal(t, "second", out[0].Issue.Rationale)
	assert.Equal(t, severity.Major, out[0].FinalSeverity)
	assert.Equal(t, "rude support agent", out[1].Issue.Summary)
}

func TestEnrich_NeutralSentimentPassthrough(t *testing.T) {
	review := reviews.RawReview{ID: "REV-0009", Rating: 3}
	detected := []DetectedIssue{
		{Summary: "typo in onboarding email", Severity: severity.Minor},
	}

	out := Enrich(review, detected, sentiment.NeutralSignal())
	require.Len(t, out, 1)
	assert.Equal(t, severity.Minor, out[0].FinalSeverity)
	assert.False(t, out[0].SentimentInfluenced)
}

func TestEnrich_Empty(t *testing.T) {
	out := Enrich(reviews.RawReview{ID: "REV-0001"}, nil, sentiment.NeutralSignal())
	assert.Empty(t, out)
}
