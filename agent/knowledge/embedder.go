package knowledge

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v2"

	contractx "github.com/Toni872/script9-sub002/agent/contract"
)

type EmbedderConfig struct {
	Model      string `envconfig:"MODEL" split_words:"true" default:"text-embedding-3-small"`
	Dimensions int    `envconfig:"DIMENSIONS" split_words:"true" default:"1536"`
}

var _ contractx.Embedder = (*OpenAIEmbedder)(nil)

// OpenAIEmbedder converts text into fixed-dimension vectors through the
// OpenAI embeddings endpoint. The model and dimension are fixed at
// construction so that ingestion-time and query-time vectors stay
// comparable.
type OpenAIEmbedder struct {
	client     *openaisdk.Client
	model      string
	dimensions int
}

func NewOpenAIEmbedder(client *openaisdk.Client, cfg EmbedderConfig) (*OpenAIEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", contractx.ErrValidation)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be > 0", contractx.ErrValidation)
	}

	return &OpenAIEmbedder{
		client:     client,
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: text to embed is empty", contractx.ErrValidation)
	}

	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(e.model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{trimmed},
		},
		Dimensions: openaisdk.Int(int64(e.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embed request: %v", contractx.ErrRetrieval, err)
	}
	if resp == nil || len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", contractx.ErrRetrieval)
	}

	raw := resp.Data[0].Embedding
	if len(raw) != e.dimensions {
		return nil, fmt.Errorf("%w: embedding dimension mismatch: got %d, want %d", contractx.ErrRetrieval, len(raw), e.dimensions)
	}

	embedding := make([]float32, len(raw))
	for i, v := range raw {
		embedding[i] = float32(v)
	}
	return embedding, nil
}
