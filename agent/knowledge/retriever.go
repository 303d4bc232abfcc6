package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/Toni872/script9-sub002/agent/contract"
)

const (
	// DefaultThreshold is the minimum cosine similarity a document must
	// reach to be considered relevant.
	DefaultThreshold = 0.5

	// DefaultLimit caps how many documents a single search returns.
	DefaultLimit = 5
)

// VectorSearcher is the store-side similarity operation the retriever
// depends on. Defined here, on the consumer side, so tests can substitute
// a deterministic fake.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Result, error)
}

type searchConfig struct {
	threshold float64
	limit     int
}

type SearchOption func(*searchConfig)

// WithThreshold overrides the similarity threshold. Values outside (0, 1]
// are ignored.
func WithThreshold(threshold float64) SearchOption {
	return func(cfg *searchConfig) {
		if threshold > 0 && threshold <= 1 {
			cfg.threshold = threshold
		}
	}
}

// WithLimit overrides the result cap. Non-positive values are ignored.
func WithLimit(limit int) SearchOption {
	return func(cfg *searchConfig) {
		if limit > 0 {
			cfg.limit = limit
		}
	}
}

// Retriever turns a free-text query into ranked relevant documents: embed
// the query, then run a thresholded similarity search against the store.
// Embedding and store failures propagate to the caller; the tool dispatcher
// is responsible for converting them into model-consumable envelopes.
type Retriever struct {
	embedder contractx.Embedder
	store    VectorSearcher
}

func NewRetriever(embedder contractx.Embedder, store VectorSearcher) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", contractx.ErrValidation)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: vector searcher is required", contractx.ErrValidation)
	}
	return &Retriever{embedder: embedder, store: store}, nil
}

func (r *Retriever) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: query is empty", contractx.ErrValidation)
	}

	cfg := searchConfig{
		threshold: DefaultThreshold,
		limit:     DefaultLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	embedding, err := r.embedder.Embed(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.Search(ctx, embedding, cfg.threshold, cfg.limit)
	if err != nil {
		return nil, fmt.Errorf("search store: %w", err)
	}

	log.Debug().
		Str("query", trimmed).
		Float64("threshold", cfg.threshold).
		Int("limit", cfg.limit).
		Int("matches", len(results)).
		Msg("knowledge search")

	return results, nil
}
