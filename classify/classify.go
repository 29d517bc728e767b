// Package classify turns raw customer reviews into enriched, deduplicated
// issue records.
//
// Detection (which problems a review describes, and how severe the model
// thinks each is) is delegated to a chat model. Everything after that is
// deterministic: sentiment-aware severity normalization, content hashing
// for idempotent re-processing, and batch deduplication.
package classify

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/critiq-ai/critiq/reviews"
	"github.com/critiq-ai/critiq/sentiment"
	"github.com/critiq-ai/critiq/severity"
)

// SummaryMaxLen caps an issue summary's length.
const SummaryMaxLen = 140

// DetectedIssue is one problem the model found in a review.
type DetectedIssue struct {
	// Summary is a short free-text description, at most SummaryMaxLen
	// characters.
	Summary string `json:"error_summary"`

	// Categories holds one or more free-text category labels.
	Categories []string `json:"categories"`

	// Severity is the model-assigned raw severity.
	Severity severity.Severity `json:"severity"`

	// Rationale explains the model's severity choice.
	Rationale string `json:"rationale"`
}

// EnrichedIssue is a detected issue after severity normalization.
type EnrichedIssue struct {
	ReviewID            string            `json:"review_id"`
	Issue               DetectedIssue     `json:"issue"`
	FinalSeverity       severity.Severity `json:"final_severity"`
	Hash                string            `json:"hash"`
	Sentiment           sentiment.Signal  `json:"sentiment"`
	SentimentInfluenced bool              `json:"sentiment_influenced"`
}

// HashIssue computes the deduplication key for a (review, issue) pair:
// the first 16 hex characters of sha256(reviewID + "|" + summary).
// Re-processing the same pair always lands on the same key.
func HashIssue(reviewID, summary string) string {
	sum := sha256.Sum256([]byte(reviewID + "|" + summary))
	return hex.EncodeToString(sum[:])[:16]
}

// Enrich normalizes each detected issue against the review's sentiment and
// rating, then deduplicates by content hash. Duplicates keep their first
// position in the batch but the last-seen enrichment wins.
func Enrich(review reviews.RawReview, detected []DetectedIssue, sig sentiment.Signal) []EnrichedIssue {
	order := make([]string, 0, len(detected))
	byHash := make(map[string]EnrichedIssue, len(detected))

	for _, issue := range detected {
		final, influenced := severity.Normalize(issue.Severity, sig.Polarity, review.Rating)

		enriched := EnrichedIssue{
			ReviewID:            review.ID,
			Issue:               issue,
			FinalSeverity:       final,
			Hash:                HashIssue(review.ID, issue.Summary),
			Sentiment:           sig,
			SentimentInfluenced: influenced,
		}

		if _, seen := byHash[enriched.Hash]; !seen {
			order = append(order, enriched.Hash)
		}
		byHash[enriched.Hash] = enriched
	}

	out := make([]EnrichedIssue, 0, len(order))
	for _, h := range order {
		out = append(out, byHash[h])
	}
	return out
}
