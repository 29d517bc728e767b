package classify

import (
	"context"
	"fmt"

	"github.com/critiq-ai/critiq/category"
	"github.com/critiq-ai/critiq/log"
	"github.com/critiq-ai/critiq/reviews"
	"github.com/critiq-ai/critiq/sentiment"
)

// DefaultBatchSize is how many unprocessed reviews one pipeline run takes.
const DefaultBatchSize = 50

// Pipeline runs the full classification pass over stored reviews:
// detect, score sentiment, normalize, persist.
type Pipeline struct {
	store      reviews.Store
	detector   Detector
	scorer     sentiment.Scorer
	categories *category.Normalizer
	logger     log.Logger
	batchSize  int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCategoryNormalizer merges near-duplicate category labels before
// issues are persisted.
func WithCategoryNormalizer(n *category.Normalizer) PipelineOption {
	return func(p *Pipeline) { p.categories = n }
}

// WithBatchSize overrides how many reviews one run processes.
func WithBatchSize(size int) PipelineOption {
	return func(p *Pipeline) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(logger log.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline wires the classification pipeline.
func NewPipeline(store reviews.Store, detector Detector, scorer sentiment.Scorer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:     store,
		detector:  detector,
		scorer:    scorer,
		logger:    log.NopLogger{},
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result summarizes one pipeline run.
type Result struct {
	// Processed lists the review IDs that completed the full pass.
	Processed []string

	// Failed lists the review IDs skipped because a step errored. They
	// stay unprocessed and are retried on the next run.
	Failed []string

	// Issues holds every enriched issue persisted this run.
	Issues []EnrichedIssue
}

// Run processes one batch of unprocessed reviews. A failing review is
// logged and left unprocessed; it never aborts the batch. Only storage
// errors on the batch itself (loading, marking processed) are returned.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	batch, err := p.store.LoadUnprocessed(ctx, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	result := &Result{}
	if len(batch) == 0 {
		p.logger.Info("pipeline: no unprocessed reviews")
		return result, nil
	}
	p.logger.Info("pipeline: processing %d reviews", len(batch))

	for _, review := range batch {
		issues, err := p.processReview(ctx, review)
		if err != nil {
			p.logger.Error("pipeline: review %s failed: %v", review.ID, err)
			result.Failed = append(result.Failed, review.ID)
			continue
		}
		result.Processed = append(result.Processed, review.ID)
		result.Issues = append(result.Issues, issues...)
	}

	if err := p.store.MarkProcessed(ctx, result.Processed); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	p.logger.Info("pipeline: done, %d processed, %d failed, %d issues",
		len(result.Processed), len(result.Failed), len(result.Issues))
	return result, nil
}

// ProcessIDs runs the pass over specific reviews regardless of their
// processed flag. Used for targeted re-classification.
func (p *Pipeline) ProcessIDs(ctx context.Context, ids []string) (*Result, error) {
	batch, err := p.store.LoadByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	result := &Result{}
	for _, review := range batch {
		issues, err := p.processReview(ctx, review)
		if err != nil {
			p.logger.Error("pipeline: review %s failed: %v", review.ID, err)
			result.Failed = append(result.Failed, review.ID)
			continue
		}
		result.Processed = append(result.Processed, review.ID)
		result.Issues = append(result.Issues, issues...)
	}

	if err := p.store.MarkProcessed(ctx, result.Processed); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return result, nil
}

func (p *Pipeline) processReview(ctx context.Context, review reviews.RawReview) ([]EnrichedIssue, error) {
	detected, err := p.detector.Detect(ctx, review)
	if err != nil {
		return nil, err
	}
	if len(detected) == 0 {
		p.logger.Debug("pipeline: review %s reports no issues", review.ID)
		return nil, nil
	}

	sig, err := p.scorer.Analyze(ctx, review.Text)
	if err != nil {
		p.logger.Warn("pipeline: sentiment for %s failed, using neutral: %v", review.ID, err)
		sig = sentiment.NeutralSignal()
	}

	if p.categories != nil {
		for i := range detected {
			merged, err := p.categories.NormalizeAll(ctx, detected[i].Categories)
			if err != nil {
				p.logger.Warn("pipeline: category merge for %s failed, keeping raw labels: %v", review.ID, err)
				break
			}
			detected[i].Categories = merged
		}
	}

	enriched := Enrich(review, detected, sig)
	for i := range enriched {
		if err := p.store.SaveIssue(ctx, recordOf(&enriched[i])); err != nil {
			return nil, err
		}
	}
	return enriched, nil
}

func recordOf(issue *EnrichedIssue) *reviews.IssueRecord {
	return &reviews.IssueRecord{
		ReviewID:            issue.ReviewID,
		Summary:             issue.Issue.Summary,
		Categories:          issue.Issue.Categories,
		Severity:            string(issue.FinalSeverity),
		Rationale:           issue.Issue.Rationale,
		Hash:                issue.Hash,
		SentimentLabel:      string(issue.Sentiment.Label),
		SentimentPolarity:   issue.Sentiment.Polarity,
		SentimentInfluenced: issue.SentimentInfluenced,
	}
}
