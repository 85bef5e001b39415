package interfaces

import (
	"context"

	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

// ListKnowledgeOptions filters knowledge entry listing
type ListKnowledgeOptions struct {
	Category   types.Category
	ActiveOnly bool
}

// KnowledgeRepository defines the interface for knowledge entry persistence
type KnowledgeRepository interface {
	// Upsert creates or replaces a knowledge entry
	Upsert(ctx context.Context, entry *model.KnowledgeEntry) (*model.KnowledgeEntry, error)

	// Get retrieves a knowledge entry by ID
	Get(ctx context.Context, orgID types.OrgID, id types.EntryID) (*model.KnowledgeEntry, error)

	// List retrieves knowledge entries for an organization with optional filters
	List(ctx context.Context, orgID types.OrgID, opts ListKnowledgeOptions) ([]*model.KnowledgeEntry, error)

	// IncrementUsage bumps the usage counter of an entry
	IncrementUsage(ctx context.Context, orgID types.OrgID, id types.EntryID) error

	// SaveEmbedding stores a lazily computed embedding back onto an entry
	SaveEmbedding(ctx context.Context, orgID types.OrgID, id types.EntryID, embedding []float32) error
}
