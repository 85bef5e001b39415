package core

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/stratospay/delphi/pkg/agent/tool"
	"github.com/stratospay/delphi/pkg/domain/interfaces"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/service/retrieval"
)

// searchKnowledgeTool runs the hybrid (keyword + vector) knowledge search
// within the caller's tenant
type searchKnowledgeTool struct {
	search *retrieval.Service
	scope  model.Scope
}

func (t *searchKnowledgeTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "core__search_knowledge",
		Description: "Search the tenant knowledge base for entries relevant to a query, combining keyword and semantic matching",
		Parameters: map[string]*gollem.Parameter{
			"query": {
				Type:        gollem.TypeString,
				Description: "Search query text",
				Required:    true,
			},
			"category": {
				Type:        gollem.TypeString,
				Description: "Optional category to restrict the search to (e.g. residuals, chargebacks)",
				Required:    false,
			},
			"limit": {
				Type:        gollem.TypeInteger,
				Description: "Maximum number of results to return (default: 5)",
				Required:    false,
			},
		},
	}
}

func (t *searchKnowledgeTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	tool.Update(ctx, fmt.Sprintf("Searching knowledge: %s", query))

	limit := 5
	if v, err := extractInt64(args, "limit"); err == nil && v > 0 {
		limit = int(v)
	}
	category, _ := args["category"].(string)

	results, err := t.search.Search(ctx, query, t.scope, limit, types.Category(category))
	if err != nil {
		return nil, goerr.Wrap(err, "knowledge search failed", goerr.V("query", query))
	}

	items := make([]map[string]any, len(results))
	for i, r := range results {
		items[i] = map[string]any{
			"id":         string(r.EntryID),
			"question":   r.Question,
			"answer":     r.Answer,
			"category":   string(r.Category),
			"score":      r.Score,
			"match_type": string(r.MatchType),
		}
	}
	return map[string]any{"entries": items}, nil
}

// getKnowledgeTool retrieves one knowledge entry by ID within the tenant
type getKnowledgeTool struct {
	repo  interfaces.Repository
	scope model.Scope
}

func (t *getKnowledgeTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "core__get_knowledge",
		Description: "Get the full question and answer of a knowledge entry by its ID",
		Parameters: map[string]*gollem.Parameter{
			"entry_id": {
				Type:        gollem.TypeString,
				Description: "The ID of the knowledge entry to retrieve",
				Required:    true,
			},
		},
	}
}

func (t *getKnowledgeTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	entryID, _ := args["entry_id"].(string)
	if entryID == "" {
		return nil, fmt.Errorf("entry_id is required")
	}

	tool.Update(ctx, fmt.Sprintf("Getting knowledge %s...", entryID))

	e, err := t.repo.Knowledge().Get(ctx, t.scope.OrgID, types.EntryID(entryID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get knowledge entry",
			goerr.V("orgID", t.scope.OrgID),
			goerr.V("entryID", entryID),
		)
	}

	return map[string]any{
		"id":          string(e.ID),
		"category":    string(e.Category),
		"question":    e.Question,
		"answer":      e.Answer,
		"keywords":    e.Keywords,
		"usage_count": e.UsageCount,
		"updated_at":  e.UpdatedAt.String(),
	}, nil
}
