package knowledge

// Document is one unit of indexed knowledge: content plus free-form
// metadata. The embedding is produced at ingestion time and must come from
// the same embedding model used for query embedding.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result pairs a matched document with its cosine similarity score.
type Result struct {
	Document   Document `json:"document"`
	Similarity float64  `json:"similarity"`
}
