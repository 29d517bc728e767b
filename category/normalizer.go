// Package category keeps review category labels semantically consistent.
//
// Detection models drift: one run labels an issue "Claim Delay", the next
// "Lengthy claim process". The Normalizer maps such near-duplicates onto
// one canonical label by embedding similarity, so dashboards and queries
// aggregate correctly across runs.
package category

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
)

// DefaultThreshold is the cosine similarity above which two category
// labels are considered the same.
const DefaultThreshold = 0.75

type entry struct {
	Embedding []float32 `json:"embedding"`
	Variants  []string  `json:"variants"`
}

// Normalizer maps free-text category labels to canonical names.
type Normalizer struct {
	embedder  embeddings.Embedder
	threshold float64
	cachePath string

	mu         sync.Mutex
	categories map[string]*entry
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithThreshold overrides the similarity threshold.
func WithThreshold(threshold float64) Option {
	return func(n *Normalizer) {
		if threshold > 0 && threshold <= 1 {
			n.threshold = threshold
		}
	}
}

// WithCacheFile persists learned mappings to path, reloading them on
// construction.
func WithCacheFile(path string) Option {
	return func(n *Normalizer) { n.cachePath = path }
}

// New creates a Normalizer over an embedder.
func New(embedder embeddings.Embedder, opts ...Option) *Normalizer {
	n := &Normalizer{
		embedder:   embedder,
		threshold:  DefaultThreshold,
		categories: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.cachePath != "" {
		n.loadCache()
	}
	return n
}

// Normalize maps one label to its canonical form. Exact and known-variant
// matches are resolved without an embedding call; otherwise the label is
// embedded and merged into the closest canonical category at or above the
// threshold, or becomes a new canonical category itself.
func (n *Normalizer) Normalize(ctx context.Context, label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "Other", nil
	}

	n.mu.Lock()
	if canonical, ok := n.lookupLocked(label); ok {
		n.mu.Unlock()
		return canonical, nil
	}
	n.mu.Unlock()

	embedding, err := n.embedder.EmbedQuery(ctx, label)
	if err != nil {
		return "", fmt.Errorf("embed category %q: %w", label, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	// Re-check under the lock; a concurrent caller may have added it.
	if canonical, ok := n.lookupLocked(label); ok {
		return canonical, nil
	}

	if best, sim := n.closestLocked(embedding); best != "" && sim >= n.threshold {
		n.categories[best].Variants = append(n.categories[best].Variants, label)
		n.saveCacheLocked()
		return best, nil
	}

	n.categories[label] = &entry{Embedding: embedding}
	n.saveCacheLocked()
	return label, nil
}

// NormalizeAll maps a label list to canonical form, deduplicated in input
// order. Empty input resolves to ["Other"].
func (n *Normalizer) NormalizeAll(ctx context.Context, labels []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	for _, label := range labels {
		canonical, err := n.Normalize(ctx, label)
		if err != nil {
			return nil, err
		}
		if !seen[canonical] {
			out = append(out, canonical)
			seen[canonical] = true
		}
	}

	if len(out) == 0 {
		out = []string{"Other"}
	}
	return out, nil
}

// Categories lists the canonical names, sorted.
func (n *Normalizer) Categories() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	names := make([]string, 0, len(n.categories))
	for name := range n.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variants returns the recorded variants of a canonical name.
func (n *Normalizer) Variants(canonical string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if e, ok := n.categories[canonical]; ok {
		return append([]string(nil), e.Variants...)
	}
	return nil
}

func (n *Normalizer) lookupLocked(label string) (string, bool) {
	lower := strings.ToLower(label)
	for canonical, e := range n.categories {
		if strings.ToLower(canonical) == lower {
			return canonical, true
		}
		for _, v := range e.Variants {
			if strings.ToLower(v) == lower {
				return canonical, true
			}
		}
	}
	return "", false
}

func (n *Normalizer) closestLocked(embedding []float32) (string, float64) {
	best := ""
	bestSim := 0.0
	for canonical, e := range n.categories {
		sim := cosineSimilarity(embedding, e.Embedding)
		if sim > bestSim {
			bestSim = sim
			best = canonical
		}
	}
	return best, bestSim
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (n *Normalizer) loadCache() {
	data, err := os.ReadFile(n.cachePath)
	if err != nil {
		return
	}
	var categories map[string]*entry
	if err := json.Unmarshal(data, &categories); err != nil {
		return
	}
	n.categories = categories
}

func (n *Normalizer) saveCacheLocked() {
	if n.cachePath == "" {
		return
	}
	data, err := json.MarshalIndent(n.categories, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(n.cachePath, data, 0o644)
}
