// Package reviews persists raw customer reviews and the issues detected
// in them.
//
// Reviews carry a processed flag so the classification pipeline can be
// re-run safely: only unprocessed rows are picked up, and issue records
// are keyed by a unique content hash, making repeated runs idempotent.
package reviews

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// IDPattern matches well-formed review identifiers (REV-0001, REV-0042...).
var IDPattern = regexp.MustCompile(`^REV-[0-9]+$`)

// FormatID renders a sequence number as a zero-padded review ID.
func FormatID(n int) string {
	return fmt.Sprintf("REV-%04d", n)
}

// ParseID extracts the sequence number from a review ID.
func ParseID(id string) (int, error) {
	if !IDPattern.MatchString(id) {
		return 0, fmt.Errorf("malformed review id %q", id)
	}
	return strconv.Atoi(id[len("REV-"):])
}

// RawReview is one customer review as stored.
type RawReview struct {
	ID           string    `json:"review_id"`
	Text         string    `json:"review"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Date         time.Time `json:"date"`
	ReviewerName string    `json:"reviewer_name"`
	Rating       int       `json:"rating"`
	Processed    bool      `json:"processed"`
}

// IssueRecord is the persisted form of an enriched issue.
type IssueRecord struct {
	ReviewID            string   `json:"review_id"`
	Summary             string   `json:"error_summary"`
	Categories          []string `json:"categories"`
	Severity            string   `json:"criticality"`
	Rationale           string   `json:"rationale"`
	Hash                string   `json:"error_hash"`
	SentimentLabel      string   `json:"sentiment_label"`
	SentimentPolarity   float64  `json:"sentiment_polarity"`
	SentimentInfluenced bool     `json:"sentiment_influenced"`
}

// Stats summarizes batch progress.
type Stats struct {
	Total       int `json:"total"`
	Processed   int `json:"processed"`
	Unprocessed int `json:"unprocessed"`
}
