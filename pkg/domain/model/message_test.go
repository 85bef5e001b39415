package model_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

func TestEstimateTokens(t *testing.T) {
	gt.Value(t, model.EstimateTokens("")).Equal(0)
	gt.Value(t, model.EstimateTokens("abcd")).Equal(1)
	gt.Value(t, model.EstimateTokens("abcde")).Equal(2)
	gt.Value(t, model.EstimateTokens(strings.Repeat("x", 100))).Equal(25)
	gt.Value(t, model.EstimateTokens(strings.Repeat("x", 101))).Equal(26)
}

func TestMessageValidate(t *testing.T) {
	t.Run("user message is valid", func(t *testing.T) {
		msg := model.NewUserMessage("hello")
		gt.NoError(t, msg.Validate())
	})

	t.Run("tool message requires a call ID", func(t *testing.T) {
		msg := model.Message{Role: types.RoleTool, Content: "result"}
		gt.Error(t, msg.Validate())

		msg = model.NewToolMessage("lookup", "call-1", "result")
		gt.NoError(t, msg.Validate())
	})

	t.Run("unknown role is invalid", func(t *testing.T) {
		msg := model.Message{Role: "moderator", Content: "x"}
		gt.Error(t, msg.Validate())
	})
}

func TestContextBlock(t *testing.T) {
	t.Run("empty results render nothing", func(t *testing.T) {
		gt.Value(t, model.ContextBlock(nil)).Equal("")
	})

	t.Run("results render as question and answer pairs", func(t *testing.T) {
		block := model.ContextBlock([]model.SearchResult{
			{Question: "When are residuals paid?", Answer: "On the 15th."},
			{Question: "What is a chargeback?", Answer: "A forced reversal."},
		})
		gt.Value(t, strings.Contains(block, "When are residuals paid?")).Equal(true)
		gt.Value(t, strings.Contains(block, "On the 15th.")).Equal(true)
		gt.Value(t, strings.Contains(block, "What is a chargeback?")).Equal(true)
	})
}

func TestKnowledgeEntryClone(t *testing.T) {
	entry := &model.KnowledgeEntry{
		ID:        "e1",
		OrgID:     "acme-partners",
		Question:  "q",
		Answer:    "a",
		Keywords:  []string{"residual"},
		Embedding: []float32{0.1, 0.2},
	}

	clone := entry.Clone()
	clone.Keywords[0] = "changed"
	clone.Embedding[0] = 9

	gt.Value(t, entry.Keywords[0]).Equal("residual")
	gt.Value(t, entry.Embedding[0]).Equal(float32(0.1))
}
