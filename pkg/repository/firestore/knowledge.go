package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/domain/interfaces"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// knowledgeDoc is the Firestore document representation of model.KnowledgeEntry.
// Embedding is stored as firestore.Vector32.
type knowledgeDoc struct {
	ID         types.EntryID      `firestore:"ID"`
	OrgID      types.OrgID        `firestore:"OrgID"`
	Category   types.Category     `firestore:"Category"`
	Question   string             `firestore:"Question"`
	Answer     string             `firestore:"Answer"`
	Keywords   []string           `firestore:"Keywords,omitempty"`
	Embedding  firestore.Vector32 `firestore:"Embedding,omitempty"`
	UsageCount int64              `firestore:"UsageCount"`
	IsActive   bool               `firestore:"IsActive"`
	CreatedAt  time.Time          `firestore:"CreatedAt"`
	UpdatedAt  time.Time          `firestore:"UpdatedAt"`
}

func toKnowledgeDoc(k *model.KnowledgeEntry) *knowledgeDoc {
	doc := &knowledgeDoc{
		ID:         k.ID,
		OrgID:      k.OrgID,
		Category:   k.Category,
		Question:   k.Question,
		Answer:     k.Answer,
		Keywords:   k.Keywords,
		UsageCount: k.UsageCount,
		IsActive:   k.IsActive,
		CreatedAt:  k.CreatedAt,
		UpdatedAt:  k.UpdatedAt,
	}
	if len(k.Embedding) > 0 {
		doc.Embedding = firestore.Vector32(k.Embedding)
	}
	return doc
}

func fromKnowledgeDoc(d *knowledgeDoc) *model.KnowledgeEntry {
	k := &model.KnowledgeEntry{
		ID:         d.ID,
		OrgID:      d.OrgID,
		Category:   d.Category,
		Question:   d.Question,
		Answer:     d.Answer,
		Keywords:   d.Keywords,
		UsageCount: d.UsageCount,
		IsActive:   d.IsActive,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if len(d.Embedding) > 0 {
		k.Embedding = []float32(d.Embedding)
	}
	return k
}

func docToKnowledge(doc *firestore.DocumentSnapshot) (*model.KnowledgeEntry, error) {
	var d knowledgeDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return fromKnowledgeDoc(&d), nil
}

type knowledgeRepository struct {
	client *firestore.Client
}

func newKnowledgeRepository(client *firestore.Client) *knowledgeRepository {
	return &knowledgeRepository{client: client}
}

func (r *knowledgeRepository) collection(orgID types.OrgID) *firestore.CollectionRef {
	return r.client.Collection("orgs").Doc(string(orgID)).Collection("knowledge")
}

func (r *knowledgeRepository) Upsert(ctx context.Context, entry *model.KnowledgeEntry) (*model.KnowledgeEntry, error) {
	if err := entry.OrgID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid organization ID")
	}

	now := time.Now().UTC()
	saved := entry.Clone()
	if saved.ID == "" {
		saved.ID = types.NewEntryID()
		saved.CreatedAt = now
		saved.UpdatedAt = now

		docRef := r.collection(saved.OrgID).Doc(string(saved.ID))
		if _, err := docRef.Set(ctx, toKnowledgeDoc(saved)); err != nil {
			return nil, goerr.Wrap(err, "failed to create knowledge entry", goerr.V("id", saved.ID))
		}
		return saved, nil
	}

	// Replacing an existing entry keeps its CreatedAt and UsageCount
	docRef := r.collection(saved.OrgID).Doc(string(saved.ID))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		saved.CreatedAt = now
		doc, err := tx.Get(docRef)
		if err == nil {
			var existing knowledgeDoc
			if err := doc.DataTo(&existing); err != nil {
				return err
			}
			saved.CreatedAt = existing.CreatedAt
			saved.UsageCount = existing.UsageCount
		} else if status.Code(err) != codes.NotFound {
			return err
		}
		saved.UpdatedAt = now
		return tx.Set(docRef, toKnowledgeDoc(saved))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert knowledge entry", goerr.V("id", saved.ID))
	}

	return saved, nil
}

func (r *knowledgeRepository) Get(ctx context.Context, orgID types.OrgID, id types.EntryID) (*model.KnowledgeEntry, error) {
	doc, err := r.collection(orgID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "knowledge entry not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get knowledge entry", goerr.V("id", id))
	}

	k, err := docToKnowledge(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal knowledge entry", goerr.V("id", id))
	}
	return k, nil
}

func (r *knowledgeRepository) List(ctx context.Context, orgID types.OrgID, opts interfaces.ListKnowledgeOptions) ([]*model.KnowledgeEntry, error) {
	q := r.collection(orgID).Query
	if opts.ActiveOnly {
		q = q.Where("IsActive", "==", true)
	}
	if opts.Category != "" {
		q = q.Where("Category", "==", string(opts.Category))
	}

	var result []*model.KnowledgeEntry
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate knowledge entries", goerr.V("orgID", orgID))
		}
		k, err := docToKnowledge(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal knowledge entry")
		}
		result = append(result, k)
	}
	return result, nil
}

func (r *knowledgeRepository) IncrementUsage(ctx context.Context, orgID types.OrgID, id types.EntryID) error {
	docRef := r.collection(orgID).Doc(string(id))
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "UsageCount", Value: firestore.Increment(1)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "knowledge entry not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to increment usage count", goerr.V("id", id))
	}
	return nil
}

func (r *knowledgeRepository) SaveEmbedding(ctx context.Context, orgID types.OrgID, id types.EntryID, embedding []float32) error {
	docRef := r.collection(orgID).Doc(string(id))
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "Embedding", Value: firestore.Vector32(embedding)},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "knowledge entry not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to save embedding", goerr.V("id", id))
	}
	return nil
}
