package reviews

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a review ID does not exist.
var ErrNotFound = errors.New("review not found")

// Store is the relational persistence collaborator for the classification
// pipeline.
type Store interface {
	// Insert adds a review. An empty ID is assigned the next REV-####.
	Insert(ctx context.Context, review *RawReview) error

	// LoadUnprocessed returns up to limit reviews with processed=false,
	// oldest first.
	LoadUnprocessed(ctx context.Context, limit int) ([]RawReview, error)

	// LoadByIDs returns the named reviews. A missing ID yields an error
	// wrapping ErrNotFound.
	LoadByIDs(ctx context.Context, ids []string) ([]RawReview, error)

	// MarkProcessed flips the processed flag for the given reviews.
	MarkProcessed(ctx context.Context, ids []string) error

	// SaveIssue upserts an issue record keyed by its content hash.
	SaveIssue(ctx context.Context, issue *IssueRecord) error

	// NextID returns the next unused review ID in sequence.
	NextID(ctx context.Context) (string, error)

	// Stats reports processed/unprocessed counts.
	Stats(ctx context.Context) (Stats, error)
}
