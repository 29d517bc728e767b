package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/critiq-ai/critiq/category"
	"github.com/critiq-ai/critiq/classify"
	"github.com/critiq-ai/critiq/config"
	"github.com/critiq-ai/critiq/llm"
	"github.com/critiq-ai/critiq/reviews"
	"github.com/critiq-ai/critiq/sentiment"
)

var classifyIDs []string

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Run the review classification pipeline",
	Long: `Load unprocessed reviews, detect the issues they describe, score
sentiment, normalize severity and categories, and persist the results.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return classifyRun(cmd)
	},
}

func init() {
	classifyCmd.Flags().StringSliceVar(&classifyIDs, "ids", nil, "Re-classify specific review IDs instead of the unprocessed batch")
	rootCmd.AddCommand(classifyCmd)
}

var (
	severityStyles = map[string]lipgloss.Style{
		"Critical":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		"Major":      lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		"Minor":      lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"Suggestion": lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"None":       lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func classifyRun(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()
	ctx := cmd.Context()

	store, err := reviews.NewPostgresStore(ctx, reviews.PostgresOptions{ConnString: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		return err
	}

	model, err := llm.NewOpenAI(llm.WithModel(cfg.Model))
	if err != nil {
		return err
	}

	embedderLLM, err := openai.New()
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embedderLLM)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}

	categoryOpts := []category.Option{category.WithThreshold(cfg.CategoryThreshold)}
	if cfg.CategoryCache != "" {
		categoryOpts = append(categoryOpts, category.WithCacheFile(cfg.CategoryCache))
	}

	pipeline := classify.NewPipeline(
		store,
		classify.NewLLMDetector(model, logger),
		sentiment.NewLLMScorer(model, logger),
		classify.WithCategoryNormalizer(category.New(embedder, categoryOpts...)),
		classify.WithBatchSize(cfg.BatchSize),
		classify.WithPipelineLogger(logger),
	)

	var result *classify.Result
	if len(classifyIDs) > 0 {
		result, err = pipeline.ProcessIDs(ctx, classifyIDs)
	} else {
		result, err = pipeline.Run(ctx)
	}
	if err != nil {
		return err
	}

	for _, issue := range result.Issues {
		style, ok := severityStyles[string(issue.FinalSeverity)]
		if !ok {
			style = dimStyle
		}
		fmt.Printf("%s  %s  %s\n",
			dimStyle.Render(issue.ReviewID),
			style.Render(fmt.Sprintf("%-10s", issue.FinalSeverity)),
			issue.Issue.Summary,
		)
	}

	fmt.Printf("\n%d processed, %d failed, %d issues\n",
		len(result.Processed), len(result.Failed), len(result.Issues))
	return nil
}
