package retrieval

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/domain/interfaces"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/service/embedding"
	"github.com/stratospay/delphi/pkg/utils/async"
	"github.com/stratospay/delphi/pkg/utils/logging"
)

// Service is the hybrid retrieval engine: lexical BM25 and vector similarity
// over knowledge entries, fused with Reciprocal Rank Fusion and re-ranked by
// exact overlap.
type Service struct {
	repo     interfaces.Repository
	embedder *embedding.Service
	synonyms *SynonymTable
}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithSynonyms replaces the default synonym table
func WithSynonyms(table *SynonymTable) Option {
	return func(s *Service) {
		s.synonyms = table
	}
}

// New creates a retrieval service
func New(repo interfaces.Repository, embedder *embedding.Service, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, goerr.New("repository is required")
	}
	if embedder == nil {
		return nil, goerr.New("embedding service is required")
	}

	s := &Service{
		repo:     repo,
		embedder: embedder,
		synonyms: NewSynonymTable(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search runs the hybrid retrieval pipeline and returns at most limit
// results ordered by descending score. Partial path failures degrade to the
// surviving path; total failure yields an empty result set, never an error
// that would block the caller.
func (s *Service) Search(ctx context.Context, query string, scope model.Scope, limit int, category types.Category) ([]model.SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := scope.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid tenant scope")
	}

	logger := logging.From(ctx)

	entries, err := s.repo.Knowledge().List(ctx, scope.OrgID, interfaces.ListKnowledgeOptions{
		Category:   category,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list knowledge entries", goerr.V("orgID", scope.OrgID))
	}
	if len(entries) == 0 {
		return nil, nil
	}

	vectorRanked := s.vectorPath(ctx, query, entries, limit*2)
	keywordRanked := s.keywordPath(s.synonyms.Expand(query), entries, limit*2)

	if len(vectorRanked) == 0 && len(keywordRanked) == 0 {
		return nil, nil
	}

	results := rerank(query, fuse(vectorRanked, keywordRanked))
	if len(results) > limit {
		results = results[:limit]
	}

	// Usage counting is best-effort; a failed increment never fails the search
	for _, r := range results {
		entryID := r.EntryID
		async.Dispatch(ctx, func(ctx context.Context) error {
			if err := s.repo.Knowledge().IncrementUsage(ctx, scope.OrgID, entryID); err != nil {
				logger.Warn("failed to increment knowledge usage", "entryID", entryID, "error", err.Error())
			}
			return nil
		})
	}

	return results, nil
}

// vectorPath ranks entries by cosine similarity against the query embedding.
// Entries without a stored embedding are compared via the deterministic
// term-hash fallback; a backfill of the real embedding is dispatched
// asynchronously so the next search can use it.
func (s *Service) vectorPath(ctx context.Context, query string, entries []*model.KnowledgeEntry, keep int) []rankedEntry {
	logger := logging.From(ctx)

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("query embedding failed, degrading to keyword-only search", "error", err.Error())
		return nil
	}

	ranked := make([]rankedEntry, 0, len(entries))
	for _, e := range entries {
		entryVec := e.Embedding
		if len(entryVec) == 0 {
			entryVec = s.embedder.Fallback(e.Document())
			s.backfillEmbedding(ctx, e)
		}
		ranked = append(ranked, rankedEntry{
			entry: e,
			score: CosineSimilarity(queryVec, entryVec),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > keep {
		ranked = ranked[:keep]
	}
	return ranked
}

// keywordPath ranks entries by BM25 over the expanded query against the
// question + answer text, keeping only positive scores.
func (s *Service) keywordPath(expandedQuery string, entries []*model.KnowledgeEntry, keep int) []rankedEntry {
	documents := make([]string, len(entries))
	for i, e := range entries {
		documents[i] = e.Document()
	}
	corpus := newBM25Corpus(documents)
	queryTerms := tokenize(expandedQuery)

	var ranked []rankedEntry
	for i, e := range entries {
		score := corpus.score(i, queryTerms)
		if score > 0 {
			ranked = append(ranked, rankedEntry{entry: e, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > keep {
		ranked = ranked[:keep]
	}
	return ranked
}

// backfillEmbedding computes and stores the real embedding for an entry that
// does not have one yet. Fire-and-forget; the current search keeps using the
// fallback vector.
func (s *Service) backfillEmbedding(ctx context.Context, e *model.KnowledgeEntry) {
	if !s.embedder.HasProvider() {
		// Fallback vectors are recomputed per query; storing them would
		// shadow real embeddings once a provider is configured.
		return
	}

	orgID := e.OrgID
	entryID := e.ID
	text := e.Document()

	async.Dispatch(ctx, func(ctx context.Context) error {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return goerr.Wrap(err, "failed to backfill embedding", goerr.V("entryID", entryID))
		}
		if err := s.repo.Knowledge().SaveEmbedding(ctx, orgID, entryID, vec); err != nil {
			return goerr.Wrap(err, "failed to save backfilled embedding", goerr.V("entryID", entryID))
		}
		return nil
	})
}
