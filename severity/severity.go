// Package severity implements the sentiment-aware criticality normalization
// rules applied to detected review issues.
package severity

// Severity is the criticality label assigned to a detected issue.
type Severity string

const (
	Critical   Severity = "Critical"
	Major      Severity = "Major"
	Minor      Severity = "Minor"
	Suggestion Severity = "Suggestion"
	None       Severity = "None"
)

// Known reports whether s is one of the five recognized labels.
func (s Severity) Known() bool {
	switch s {
	case Critical, Major, Minor, Suggestion, None:
		return true
	}
	return false
}

// Normalize computes the final severity for an issue from its raw
// LLM-assigned severity, the review's sentiment polarity in [-1, 1] and the
// customer rating in [1, 5].
//
// The returned bool reports whether sentiment or rating changed the label.
// Normalize is a pure function and never fails: an unrecognized raw label
// passes through unchanged with influenced=false.
//
// The rating rule deliberately checks the raw severity rather than the
// intermediate result, so a Minor issue escalated to Major by strong
// negative polarity is not escalated again to Critical by a 1-2 star
// rating within the same call.
func Normalize(raw Severity, polarity float64, rating int) (Severity, bool) {
	final := raw
	influenced := false

	// Strong negative sentiment escalation.
	if polarity < -0.85 && raw == Major {
		final = Critical
		influenced = true
	} else if polarity < -0.70 && raw == Minor {
		final = Major
		influenced = true
	}

	// Low rating escalation: 1-2 stars with a Major issue.
	if rating <= 2 && raw == Major {
		final = Critical
		influenced = true
	}

	// Strong positive sentiment downgrade for minor complaints.
	if polarity > 0.85 && raw == Minor {
		final = Suggestion
		influenced = true
	}

	return final, influenced
}
