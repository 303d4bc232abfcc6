package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	contractx "github.com/Toni872/script9-sub002/agent/contract"
)

type documentModel struct {
	bun.BaseModel `bun:"table:knowledge_documents,alias:kd"`

	ID        string          `bun:"id,pk"`
	Content   string          `bun:"content,notnull"`
	Metadata  map[string]any  `bun:"metadata,type:jsonb"`
	Embedding pgvector.Vector `bun:"embedding,type:vector(1536),notnull"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type searchRow struct {
	ID         string         `bun:"id"`
	Content    string         `bun:"content"`
	Metadata   map[string]any `bun:"metadata"`
	Similarity float64        `bun:"similarity"`
}

// Store persists knowledge documents in Postgres and answers cosine
// similarity queries over the pgvector embedding column.
//
// Equal similarity scores are broken by ascending document id so that
// repeated queries return a stable ordering.
type Store struct {
	db       *bun.DB
	embedder contractx.Embedder
}

func NewStore(db *bun.DB, embedder contractx.Embedder) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database handle is required", contractx.ErrValidation)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", contractx.ErrValidation)
	}
	return &Store{db: db, embedder: embedder}, nil
}

// Search returns documents whose cosine similarity to the query embedding
// meets the threshold, ordered by similarity descending and capped at limit.
func (s *Store) Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Result, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", contractx.ErrValidation)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be > 0", contractx.ErrValidation)
	}

	vec := pgvector.NewVector(embedding)
	var rows []searchRow
	err := s.db.NewRaw(
		`SELECT id, content, metadata, 1 - (embedding <=> ?) AS similarity
		 FROM knowledge_documents
		 WHERE 1 - (embedding <=> ?) >= ?
		 ORDER BY similarity DESC, id ASC
		 LIMIT ?`,
		vec, vec, threshold, limit,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity query: %v", contractx.ErrRetrieval, err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Document: Document{
				ID:       row.ID,
				Content:  row.Content,
				Metadata: row.Metadata,
			},
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

// Add embeds the document content and upserts it. This is the
// administrative ingestion path; the conversational core only reads.
func (s *Store) Add(ctx context.Context, doc Document) error {
	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return fmt.Errorf("%w: document content is empty", contractx.ErrValidation)
	}

	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}

	id := strings.TrimSpace(doc.ID)
	if id == "" {
		id = uuid.NewString()
	}

	row := documentModel{
		ID:        id,
		Content:   content,
		Metadata:  doc.Metadata,
		Embedding: pgvector.NewVector(embedding),
	}

	_, err = s.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("metadata = EXCLUDED.metadata").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: upsert document id=%s: %v", contractx.ErrPersistence, id, err)
	}

	return nil
}
