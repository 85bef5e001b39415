package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/domain/interfaces"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

type knowledgeRepository struct {
	mu      sync.RWMutex
	entries map[types.OrgID]map[types.EntryID]*model.KnowledgeEntry
}

func newKnowledgeRepository() *knowledgeRepository {
	return &knowledgeRepository{
		entries: make(map[types.OrgID]map[types.EntryID]*model.KnowledgeEntry),
	}
}

func (r *knowledgeRepository) orgEntries(orgID types.OrgID) map[types.EntryID]*model.KnowledgeEntry {
	m, ok := r.entries[orgID]
	if !ok {
		m = make(map[types.EntryID]*model.KnowledgeEntry)
		r.entries[orgID] = m
	}
	return m
}

func (r *knowledgeRepository) Upsert(ctx context.Context, entry *model.KnowledgeEntry) (*model.KnowledgeEntry, error) {
	if err := entry.OrgID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid organization ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	saved := entry.Clone()
	if saved.ID == "" {
		saved.ID = types.NewEntryID()
		saved.CreatedAt = now
	} else if existing, ok := r.orgEntries(entry.OrgID)[saved.ID]; ok {
		saved.CreatedAt = existing.CreatedAt
		saved.UsageCount = existing.UsageCount
	} else {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now

	r.orgEntries(entry.OrgID)[saved.ID] = saved
	return saved.Clone(), nil
}

func (r *knowledgeRepository) Get(ctx context.Context, orgID types.OrgID, id types.EntryID) (*model.KnowledgeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[orgID][id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "knowledge entry not found", goerr.V("id", id))
	}
	return entry.Clone(), nil
}

func (r *knowledgeRepository) List(ctx context.Context, orgID types.OrgID, opts interfaces.ListKnowledgeOptions) ([]*model.KnowledgeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.KnowledgeEntry
	for _, e := range r.entries[orgID] {
		if opts.ActiveOnly && !e.IsActive {
			continue
		}
		if opts.Category != "" && e.Category != opts.Category {
			continue
		}
		result = append(result, e.Clone())
	}
	return result, nil
}

func (r *knowledgeRepository) IncrementUsage(ctx context.Context, orgID types.OrgID, id types.EntryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[orgID][id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "knowledge entry not found", goerr.V("id", id))
	}
	entry.UsageCount++
	return nil
}

func (r *knowledgeRepository) SaveEmbedding(ctx context.Context, orgID types.OrgID, id types.EntryID, embedding []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[orgID][id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "knowledge entry not found", goerr.V("id", id))
	}
	entry.Embedding = make([]float32, len(embedding))
	copy(entry.Embedding, embedding)
	entry.UpdatedAt = time.Now().UTC()
	return nil
}
