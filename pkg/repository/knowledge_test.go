package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stratospay/delphi/pkg/domain/interfaces"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/repository/firestore"
	"github.com/stratospay/delphi/pkg/repository/memory"
)

func testOrgID(t *testing.T) types.OrgID {
	t.Helper()
	return types.OrgID(fmt.Sprintf("org-%d", time.Now().UnixNano()))
}

func runKnowledgeRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Upsert assigns ID and timestamps to a new entry", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := testOrgID(t)

		created, err := repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    orgID,
			Category: "residuals",
			Question: "When are residual payouts sent?",
			Answer:   "Residuals are paid on the 15th of each month.",
			Keywords: []string{"residual", "payout", "schedule"},
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to upsert knowledge entry: %v", err)
		}

		if created.ID == "" {
			t.Error("expected entry ID to be assigned")
		}
		if created.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}
		if created.UpdatedAt.IsZero() {
			t.Error("expected UpdatedAt to be set")
		}
		if time.Since(created.CreatedAt) > time.Second {
			t.Errorf("CreatedAt time diff too large: %v", time.Since(created.CreatedAt))
		}

		retrieved, err := repo.Knowledge().Get(ctx, orgID, created.ID)
		if err != nil {
			t.Fatalf("failed to get knowledge entry: %v", err)
		}
		if retrieved.Question != created.Question {
			t.Errorf("expected Question=%s, got %s", created.Question, retrieved.Question)
		}
		if retrieved.Answer != created.Answer {
			t.Errorf("expected Answer=%s, got %s", created.Answer, retrieved.Answer)
		}
		if retrieved.Category != created.Category {
			t.Errorf("expected Category=%s, got %s", created.Category, retrieved.Category)
		}
		if len(retrieved.Keywords) != 3 {
			t.Errorf("expected 3 keywords, got %d", len(retrieved.Keywords))
		}
		if !retrieved.IsActive {
			t.Error("expected entry to be active")
		}
	})

	t.Run("Upsert rejects invalid organization ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    "Bad Org!",
			Question: "q",
			Answer:   "a",
		})
		if err == nil {
			t.Error("expected error for invalid organization ID")
		}
	})

	t.Run("Upsert preserves CreatedAt and UsageCount on update", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := testOrgID(t)

		created, err := repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    orgID,
			Question: "What is the interchange rate?",
			Answer:   "It depends on the card brand and category.",
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to upsert knowledge entry: %v", err)
		}

		if err := repo.Knowledge().IncrementUsage(ctx, orgID, created.ID); err != nil {
			t.Fatalf("failed to increment usage: %v", err)
		}

		updated, err := repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			ID:       created.ID,
			OrgID:    orgID,
			Question: "What is the interchange rate?",
			Answer:   "Interchange varies by card brand, category and entry mode.",
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to update knowledge entry: %v", err)
		}

		if !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("expected CreatedAt to be preserved, got %v (was %v)", updated.CreatedAt, created.CreatedAt)
		}
		if updated.UsageCount != 1 {
			t.Errorf("expected UsageCount=1 to be preserved, got %d", updated.UsageCount)
		}
		if updated.Answer == created.Answer {
			t.Error("expected answer to be replaced")
		}
	})

	t.Run("Get returns error for non-existent entry", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Knowledge().Get(ctx, testOrgID(t), "non-existent-id")
		if err == nil {
			t.Error("expected error for non-existent entry")
		}
		if !errors.Is(err, interfaces.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List returns entries for the organization only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := testOrgID(t)
		otherOrgID := types.OrgID(fmt.Sprintf("other-%d", time.Now().UnixNano()))

		k1, err := repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    orgID,
			Category: "fees",
			Question: "What is a basis point?",
			Answer:   "One hundredth of a percent.",
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to upsert entry 1: %v", err)
		}

		k2, err := repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    orgID,
			Category: "residuals",
			Question: "How is my residual split applied?",
			Answer:   "Your split percentage is applied to the gross residual.",
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to upsert entry 2: %v", err)
		}

		_, err = repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    otherOrgID,
			Category: "fees",
			Question: "What is a chargeback fee?",
			Answer:   "A fixed fee charged per dispute.",
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to upsert entry for other org: %v", err)
		}

		entries, err := repo.Knowledge().List(ctx, orgID, interfaces.ListKnowledgeOptions{})
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("expected 2 entries, got %d", len(entries))
		}

		foundK1 := false
		foundK2 := false
		for _, e := range entries {
			if e.ID == k1.ID {
				foundK1 = true
			}
			if e.ID == k2.ID {
				foundK2 = true
			}
		}
		if !foundK1 {
			t.Error("entry 1 not found in list")
		}
		if !foundK2 {
			t.Error("entry 2 not found in list")
		}
	})

	t.Run("List filters by category and active flag", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := testOrgID(t)

		active, err := repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    orgID,
			Category: "fees",
			Question: "What is the monthly minimum fee?",
			Answer:   "A floor applied when processing fees fall short.",
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to upsert active entry: %v", err)
		}

		_, err = repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    orgID,
			Category: "fees",
			Question: "Deprecated fee question",
			Answer:   "Deprecated answer.",
			IsActive: false,
		})
		if err != nil {
			t.Fatalf("failed to upsert inactive entry: %v", err)
		}

		_, err = repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    orgID,
			Category: "residuals",
			Question: "When do residual reports post?",
			Answer:   "By the 10th of each month.",
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to upsert other category entry: %v", err)
		}

		entries, err := repo.Knowledge().List(ctx, orgID, interfaces.ListKnowledgeOptions{
			Category:   "fees",
			ActiveOnly: true,
		})
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].ID != active.ID {
			t.Errorf("expected entry %s, got %s", active.ID, entries[0].ID)
		}
	})

	t.Run("List returns empty for unknown organization", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		entries, err := repo.Knowledge().List(ctx, testOrgID(t), interfaces.ListKnowledgeOptions{})
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected 0 entries, got %d", len(entries))
		}
	})

	t.Run("IncrementUsage accumulates across calls", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := testOrgID(t)

		created, err := repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    orgID,
			Question: "How do I order terminal paper?",
			Answer:   "Through the supplies portal.",
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to upsert entry: %v", err)
		}

		for i := 0; i < 3; i++ {
			if err := repo.Knowledge().IncrementUsage(ctx, orgID, created.ID); err != nil {
				t.Fatalf("failed to increment usage: %v", err)
			}
		}

		retrieved, err := repo.Knowledge().Get(ctx, orgID, created.ID)
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if retrieved.UsageCount != 3 {
			t.Errorf("expected UsageCount=3, got %d", retrieved.UsageCount)
		}
	})

	t.Run("IncrementUsage returns error for non-existent entry", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.Knowledge().IncrementUsage(ctx, testOrgID(t), "non-existent-id")
		if err == nil {
			t.Error("expected error for non-existent entry")
		}
		if !errors.Is(err, interfaces.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveEmbedding stores the vector on the entry", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := testOrgID(t)

		created, err := repo.Knowledge().Upsert(ctx, &model.KnowledgeEntry{
			OrgID:    orgID,
			Question: "What does PCI compliance require?",
			Answer:   "An annual SAQ and quarterly scans for most merchants.",
			IsActive: true,
		})
		if err != nil {
			t.Fatalf("failed to upsert entry: %v", err)
		}

		embedding := make([]float32, model.EmbeddingDimension)
		for i := range embedding {
			embedding[i] = float32(i) / float32(model.EmbeddingDimension)
		}
		if err := repo.Knowledge().SaveEmbedding(ctx, orgID, created.ID, embedding); err != nil {
			t.Fatalf("failed to save embedding: %v", err)
		}

		retrieved, err := repo.Knowledge().Get(ctx, orgID, created.ID)
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if len(retrieved.Embedding) != model.EmbeddingDimension {
			t.Fatalf("expected embedding length=%d, got %d", model.EmbeddingDimension, len(retrieved.Embedding))
		}
		expectedLast := float32(model.EmbeddingDimension-1) / float32(model.EmbeddingDimension)
		if retrieved.Embedding[model.EmbeddingDimension-1] != expectedLast {
			t.Errorf("expected last embedding value=%f, got %f", expectedLast, retrieved.Embedding[model.EmbeddingDimension-1])
		}
	})
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	repo, err := firestore.New(ctx, projectID, databaseID)
	if err != nil {
		t.Fatalf("failed to create firestore repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close firestore repository: %v", err)
		}
	})
	return repo
}

func TestMemoryKnowledgeRepository(t *testing.T) {
	runKnowledgeRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestFirestoreKnowledgeRepository(t *testing.T) {
	runKnowledgeRepositoryTest(t, newFirestoreRepository)
}
