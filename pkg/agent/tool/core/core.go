package core

import (
	"fmt"

	"github.com/m-mizutani/gollem"
	"github.com/stratospay/delphi/pkg/domain/interfaces"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/service/retrieval"
)

// New builds the core tool set for agent queries: knowledge search and
// retrieval scoped to the caller's tenant, merchant account lookup, and the
// residual/fee calculators. The directory may be nil when no merchant backend
// is configured; the lookup tool is then omitted.
func New(repo interfaces.Repository, search *retrieval.Service, scope model.Scope, directory MerchantDirectory) []gollem.Tool {
	tools := []gollem.Tool{
		&searchKnowledgeTool{search: search, scope: scope},
		&getKnowledgeTool{repo: repo, scope: scope},
		&residualCalcTool{},
		&feeCalcTool{},
	}
	if directory != nil {
		tools = append(tools, &merchantLookupTool{directory: directory, scope: scope})
	}
	return tools
}

// extractInt64 extracts an int64 value from args map, accepting int, int64, or float64
func extractInt64(args map[string]any, key string) (int64, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%s must be an integer, got %T", key, v)
	}
}

// extractFloat64 extracts a float64 value from args map, accepting int, int64, or float64
func extractFloat64(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}
