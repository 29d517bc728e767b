package reviews

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool DBPool
}

var _ Store = (*PostgresStore)(nil)

// PostgresOptions configuration for Postgres connection.
type PostgresOptions struct {
	ConnString string
}

// NewPostgresStore creates a new Postgres review store.
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool creates a store with an existing pool.
// Useful for testing with mocks.
func NewPostgresStoreWithPool(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InitSchema creates the review tables if they don't exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS raw_reviews (
			review_id VARCHAR(20) PRIMARY KEY,
			review TEXT NOT NULL,
			username VARCHAR(100),
			email VARCHAR(255) NOT NULL,
			date TIMESTAMPTZ,
			reviewer_name VARCHAR(100),
			rating INTEGER CHECK (rating >= 1 AND rating <= 5),
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			processed BOOLEAN DEFAULT FALSE
		);
		CREATE TABLE IF NOT EXISTS detected_errors (
			id SERIAL PRIMARY KEY,
			review_id VARCHAR(20) REFERENCES raw_reviews(review_id) ON DELETE CASCADE,
			error_summary TEXT NOT NULL,
			categories TEXT,
			criticality VARCHAR(20),
			rationale TEXT,
			error_hash VARCHAR(64) UNIQUE,
			sentiment_label VARCHAR(20),
			sentiment_polarity DOUBLE PRECISION,
			sentiment_influenced BOOLEAN DEFAULT FALSE,
			detected_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_raw_reviews_processed ON raw_reviews (processed);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Insert adds a review, assigning the next REV-#### when the ID is empty.
func (s *PostgresStore) Insert(ctx context.Context, review *RawReview) error {
	if review.ID == "" {
		id, err := s.NextID(ctx)
		if err != nil {
			return err
		}
		review.ID = id
	}

	query := `
		INSERT INTO raw_reviews (review_id, review, username, email, date, reviewer_name, rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (review_id) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query,
		review.ID,
		review.Text,
		review.Username,
		review.Email,
		review.Date,
		review.ReviewerName,
		review.Rating,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

const reviewColumns = "review_id, review, username, email, date, reviewer_name, rating, processed"

// LoadUnprocessed returns up to limit unprocessed reviews, oldest first.
func (s *PostgresStore) LoadUnprocessed(ctx context.Context, limit int) ([]RawReview, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM raw_reviews
		WHERE processed = FALSE
		ORDER BY created_at ASC
		LIMIT $1
	`, reviewColumns)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load unprocessed reviews: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// LoadByIDs returns the named reviews.
func (s *PostgresStore) LoadByIDs(ctx context.Context, ids []string) ([]RawReview, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM raw_reviews
		WHERE review_id = ANY($1)
		ORDER BY review_id ASC
	`, reviewColumns)

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	defer rows.Close()

	loaded, err := scanReviews(rows)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(loaded))
	for _, r := range loaded {
		found[r.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, fmt.Errorf("review %s: %w", id, ErrNotFound)
		}
	}
	return loaded, nil
}

func scanReviews(rows pgx.Rows) ([]RawReview, error) {
	var out []RawReview
	for rows.Next() {
		var r RawReview
		if err := rows.Scan(&r.ID, &r.Text, &r.Username, &r.Email, &r.Date, &r.ReviewerName, &r.Rating, &r.Processed); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review rows: %w", err)
	}
	return out, nil
}

// MarkProcessed flips the processed flag for the given reviews.
func (s *PostgresStore) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE raw_reviews SET processed = TRUE WHERE review_id = ANY($1)`
	if _, err := s.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to mark reviews processed: %w", err)
	}
	return nil
}

// SaveIssue upserts an issue record keyed by its content hash, so
// re-processing the same (review, issue) pair updates in place.
func (s *PostgresStore) SaveIssue(ctx context.Context, issue *IssueRecord) error {
	query := `
		INSERT INTO detected_errors
			(review_id, error_summary, categories, criticality, rationale, error_hash,
			 sentiment_label, sentiment_polarity, sentiment_influenced)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (error_hash) DO UPDATE SET
			categories = EXCLUDED.categories,
			criticality = EXCLUDED.criticality,
			rationale = EXCLUDED.rationale,
			sentiment_label = EXCLUDED.sentiment_label,
			sentiment_polarity = EXCLUDED.sentiment_polarity,
			sentiment_influenced = EXCLUDED.sentiment_influenced
	`
	_, err := s.pool.Exec(ctx, query,
		issue.ReviewID,
		issue.Summary,
		strings.Join(issue.Categories, ", "),
		issue.Severity,
		issue.Rationale,
		issue.Hash,
		issue.SentimentLabel,
		issue.SentimentPolarity,
		issue.SentimentInfluenced,
	)
	if err != nil {
		return fmt.Errorf("failed to save issue: %w", err)
	}
	return nil
}

// NextID returns the next unused review ID in the REV-#### sequence.
func (s *PostgresStore) NextID(ctx context.Context) (string, error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(review_id FROM 5) AS INTEGER)), 0)
		FROM raw_reviews
		WHERE review_id ~ '^REV-[0-9]+$'
	`

	var max int
	if err := s.pool.QueryRow(ctx, query).Scan(&max); err != nil {
		return "", fmt.Errorf("failed to compute next review id: %w", err)
	}
	return FormatID(max + 1), nil
}

// Stats reports processed/unprocessed counts.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE processed) FROM raw_reviews
	`

	var stats Stats
	if err := s.pool.QueryRow(ctx, query).Scan(&stats.Total, &stats.Processed); err != nil {
		return Stats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	stats.Unprocessed = stats.Total - stats.Processed
	return stats, nil
}
