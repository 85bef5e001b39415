package retrieval_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/repository/memory"
	"github.com/stratospay/delphi/pkg/service/embedding"
	"github.com/stratospay/delphi/pkg/service/retrieval"
)

var testScope = model.Scope{OrgID: "acme-partners", UserID: "user-1"}

func newSearchEnv(t *testing.T) (*memory.Memory, *retrieval.Service) {
	t.Helper()
	repo := memory.New()
	svc := gt.R1(retrieval.New(repo, embedding.New(nil))).NoError(t)
	return repo, svc
}

func seedEntry(t *testing.T, repo *memory.Memory, orgID types.OrgID, category types.Category, question, answer string, keywords ...string) *model.KnowledgeEntry {
	t.Helper()
	entry := gt.R1(repo.Knowledge().Upsert(context.Background(), &model.KnowledgeEntry{
		OrgID:    orgID,
		Category: category,
		Question: question,
		Answer:   answer,
		Keywords: keywords,
		IsActive: true,
	})).NoError(t)
	return entry
}

func seedKnowledgeBase(t *testing.T, repo *memory.Memory) {
	t.Helper()
	seedEntry(t, repo, testScope.OrgID, "residuals",
		"How are residual payouts calculated?",
		"Gross residual is processing volume times margin, split by your share percentage.",
		"residual", "payout")
	seedEntry(t, repo, testScope.OrgID, "chargebacks",
		"How do I respond to a chargeback?",
		"Submit compelling evidence through the dispute portal within the response window.",
		"chargeback", "dispute")
	seedEntry(t, repo, testScope.OrgID, "equipment",
		"How do I order terminal paper?",
		"Order supplies through the equipment portal; delivery takes two business days.",
		"terminal", "supplies")
}

func TestSearch(t *testing.T) {
	t.Run("relevant entry ranks first", func(t *testing.T) {
		repo, svc := newSearchEnv(t)
		seedKnowledgeBase(t, repo)

		results := gt.R1(svc.Search(context.Background(), "how are residual payouts calculated", testScope, 3, "")).NoError(t)
		gt.Number(t, len(results)).Greater(0)
		gt.Value(t, results[0].Question).Equal("How are residual payouts calculated?")
	})

	t.Run("limit bounds the result count", func(t *testing.T) {
		repo, svc := newSearchEnv(t)
		seedKnowledgeBase(t, repo)

		results := gt.R1(svc.Search(context.Background(), "portal", testScope, 1, "")).NoError(t)
		gt.Number(t, len(results)).LessOrEqual(1)
	})

	t.Run("results are ordered by descending score", func(t *testing.T) {
		repo, svc := newSearchEnv(t)
		seedKnowledgeBase(t, repo)

		results := gt.R1(svc.Search(context.Background(), "chargeback dispute portal", testScope, 3, "")).NoError(t)
		for i := 1; i < len(results); i++ {
			gt.Number(t, results[i-1].Score).GreaterOrEqual(results[i].Score)
		}
	})

	t.Run("category filter excludes other categories", func(t *testing.T) {
		repo, svc := newSearchEnv(t)
		seedKnowledgeBase(t, repo)

		results := gt.R1(svc.Search(context.Background(), "portal", testScope, 3, "chargebacks")).NoError(t)
		for _, r := range results {
			gt.Value(t, r.Category).Equal(types.Category("chargebacks"))
		}
	})

	t.Run("synonym expansion bridges vocabulary", func(t *testing.T) {
		repo, svc := newSearchEnv(t)
		seedEntry(t, repo, testScope.OrgID, "fees",
			"What does 25 basis points mean on my statement?",
			"Basis points express rate: 25 basis points is 0.25 percent of volume.")

		results := gt.R1(svc.Search(context.Background(), "what is 25 bps", testScope, 3, "")).NoError(t)
		gt.Number(t, len(results)).Greater(0)
	})

	t.Run("inactive entries are never returned", func(t *testing.T) {
		repo, svc := newSearchEnv(t)
		inactive := gt.R1(repo.Knowledge().Upsert(context.Background(), &model.KnowledgeEntry{
			OrgID:    testScope.OrgID,
			Question: "Retired question about residual payouts",
			Answer:   "Retired answer.",
			IsActive: false,
		})).NoError(t)

		results := gt.R1(svc.Search(context.Background(), "residual payouts", testScope, 3, "")).NoError(t)
		for _, r := range results {
			gt.Value(t, r.EntryID).NotEqual(inactive.ID)
		}
	})

	t.Run("tenants never see each other's entries", func(t *testing.T) {
		repo, svc := newSearchEnv(t)
		seedEntry(t, repo, "other-org", "residuals",
			"How are residual payouts calculated?",
			"Other tenant answer.")

		results := gt.R1(svc.Search(context.Background(), "residual payouts", testScope, 3, "")).NoError(t)
		gt.Array(t, results).Length(0)
	})

	t.Run("zero limit returns nothing", func(t *testing.T) {
		repo, svc := newSearchEnv(t)
		seedKnowledgeBase(t, repo)

		results := gt.R1(svc.Search(context.Background(), "residual", testScope, 0, "")).NoError(t)
		gt.Array(t, results).Length(0)
	})

	t.Run("invalid scope is rejected", func(t *testing.T) {
		_, svc := newSearchEnv(t)

		_, err := svc.Search(context.Background(), "residual", model.Scope{OrgID: "Bad Org!"}, 3, "")
		gt.Error(t, err)
	})

	t.Run("returned entries get their usage counted", func(t *testing.T) {
		repo, svc := newSearchEnv(t)
		seedKnowledgeBase(t, repo)

		results := gt.R1(svc.Search(context.Background(), "residual payouts", testScope, 1, "")).NoError(t)
		gt.Number(t, len(results)).Greater(0)
		entryID := results[0].EntryID

		// Usage counting is dispatched asynchronously
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			entry := gt.R1(repo.Knowledge().Get(context.Background(), testScope.OrgID, entryID)).NoError(t)
			if entry.UsageCount > 0 {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Error("usage count was never incremented")
	})
}

func TestSearchDeterminism(t *testing.T) {
	repo, svc := newSearchEnv(t)
	seedKnowledgeBase(t, repo)

	first := gt.R1(svc.Search(context.Background(), "chargeback dispute", testScope, 3, "")).NoError(t)
	for i := 0; i < 5; i++ {
		again := gt.R1(svc.Search(context.Background(), "chargeback dispute", testScope, 3, "")).NoError(t)
		gt.Array(t, again).Length(len(first))
		for j := range again {
			gt.Value(t, again[j].EntryID).Equal(first[j].EntryID)
		}
	}
}
