package contract

import (
	"context"

	"github.com/openai/openai-go/v2"
)

// ChatModel is the narrow surface of the language-model service the
// orchestrator depends on: one completion per call, tool schema attached,
// automatic tool choice. Implementations live in pkg/openrouter; tests use
// deterministic fakes.
type ChatModel interface {
	Complete(
		ctx context.Context,
		messages []openai.ChatCompletionMessageParamUnion,
		tools []openai.ChatCompletionToolUnionParam,
	) (*openai.ChatCompletionMessage, error)
}

// Embedder converts text into a fixed-dimension vector. The same embedding
// model must be used at ingestion and at query time, or similarity scores
// are meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
