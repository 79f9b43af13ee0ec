package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Index answers exact nearest-neighbor queries over the trusted-source
// corpus. The corpus scales here do not require approximate search; every
// stored embedding is compared against the query.
type Index struct {
	sources SourceRepository
	logger  *slog.Logger
}

// NewIndex creates an Index backed by the given source repository.
func NewIndex(sources SourceRepository, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		sources: sources,
		logger:  logger,
	}
}

// Search returns up to k sources ordered by descending cosine similarity to
// the query embedding. Results below minSimilarity are excluded before
// truncation. Stored vectors with a mismatched dimension are skipped; ties
// keep insertion order (stable sort).
func (ix *Index) Search(ctx context.Context, embedding []float64, k int, minSimilarity float64) ([]Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}
	if k <= 0 {
		return nil, nil
	}

	sources, err := ix.sources.ListWithEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpus sources: %w", err)
	}

	matches := make([]Match, 0, len(sources))
	for _, src := range sources {
		if len(src.Embedding) != len(embedding) {
			ix.logger.Debug("skipping source with mismatched embedding",
				slog.String("source_id", src.ID),
				slog.Int("got_dimensions", len(src.Embedding)),
				slog.Int("want_dimensions", len(embedding)))
			continue
		}

		sim := CosineSimilarity(embedding, src.Embedding)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, Match{Source: src, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
