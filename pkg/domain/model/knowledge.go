package model

import (
	"strings"
	"time"

	"github.com/stratospay/delphi/pkg/domain/types"
)

// EmbeddingDimension is the dimension of the embedding vector.
// Gemini text-embedding-004 uses 768 dimensions.
const EmbeddingDimension = 768

// KnowledgeEntry is one question-answer record in the knowledge store.
// The embedding is computed lazily and cached back onto the entry.
type KnowledgeEntry struct {
	ID         types.EntryID
	OrgID      types.OrgID
	Category   types.Category
	Question   string
	Answer     string
	Keywords   []string
	Embedding  []float32
	UsageCount int64
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Document returns the searchable text of the entry (question + answer)
func (k *KnowledgeEntry) Document() string {
	return k.Question + "\n" + k.Answer
}

// Clone returns a deep copy of the entry
func (k *KnowledgeEntry) Clone() *KnowledgeEntry {
	copied := &KnowledgeEntry{
		ID:         k.ID,
		OrgID:      k.OrgID,
		Category:   k.Category,
		Question:   k.Question,
		Answer:     k.Answer,
		UsageCount: k.UsageCount,
		IsActive:   k.IsActive,
		CreatedAt:  k.CreatedAt,
		UpdatedAt:  k.UpdatedAt,
	}
	if k.Keywords != nil {
		copied.Keywords = make([]string, len(k.Keywords))
		copy(copied.Keywords, k.Keywords)
	}
	if k.Embedding != nil {
		copied.Embedding = make([]float32, len(k.Embedding))
		copy(copied.Embedding, k.Embedding)
	}
	return copied
}

// SearchResult is one ranked hit produced by the retrieval engine.
// Results are produced fresh per query and never cached.
type SearchResult struct {
	EntryID   types.EntryID
	Question  string
	Answer    string
	Category  types.Category
	Score     float64
	MatchType types.MatchType
}

// ContextBlock renders search results as a "relevant information" block
// to prepend to a model prompt. Returns an empty string for no results.
func ContextBlock(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Relevant information from the knowledge base:\n")
	for _, r := range results {
		sb.WriteString("- Q: ")
		sb.WriteString(r.Question)
		sb.WriteString("\n  A: ")
		sb.WriteString(r.Answer)
		sb.WriteString("\n")
	}
	return sb.String()
}
