package core

import (
	"context"
	"fmt"
	"math"

	"github.com/m-mizutani/gollem"
	"github.com/stratospay/delphi/pkg/agent/tool"
)

// bpsDivisor converts basis points to a rate: 1 bps = 0.0001
const bpsDivisor = 10000.0

// residualCalcTool computes a monthly residual payout from processing volume,
// margin in basis points, and the agent's revenue split
type residualCalcTool struct{}

func (t *residualCalcTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "core__calc_residual",
		Description: "Calculate a monthly residual payout from processing volume, margin in basis points, and revenue split percentage",
		Parameters: map[string]*gollem.Parameter{
			"volume": {
				Type:        gollem.TypeNumber,
				Description: "Monthly processing volume in dollars",
				Required:    true,
			},
			"margin_bps": {
				Type:        gollem.TypeNumber,
				Description: "Margin over cost in basis points",
				Required:    true,
			},
			"split_percent": {
				Type:        gollem.TypeNumber,
				Description: "Agent revenue split as a percentage (default: 100)",
				Required:    false,
			},
		},
	}
}

func (t *residualCalcTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	volume, err := extractFloat64(args, "volume")
	if err != nil {
		return nil, err
	}
	marginBps, err := extractFloat64(args, "margin_bps")
	if err != nil {
		return nil, err
	}
	if volume < 0 || marginBps < 0 {
		return nil, fmt.Errorf("volume and margin_bps must be non-negative")
	}

	split := 100.0
	if v, err := extractFloat64(args, "split_percent"); err == nil {
		if v <= 0 || v > 100 {
			return nil, fmt.Errorf("split_percent must be in (0, 100], got %v", v)
		}
		split = v
	}

	tool.Update(ctx, "Calculating residual...")

	gross := volume * marginBps / bpsDivisor
	payout := gross * split / 100.0

	return map[string]any{
		"gross_residual": roundCents(gross),
		"agent_payout":   roundCents(payout),
		"volume":         volume,
		"margin_bps":     marginBps,
		"split_percent":  split,
	}, nil
}

// feeCalcTool computes the effective processing rate of a merchant from total
// fees and volume, expressed in both percent and basis points
type feeCalcTool struct{}

func (t *feeCalcTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "core__calc_effective_rate",
		Description: "Calculate a merchant's effective processing rate (percent and basis points) from total fees and processing volume",
		Parameters: map[string]*gollem.Parameter{
			"total_fees": {
				Type:        gollem.TypeNumber,
				Description: "Total fees charged in dollars",
				Required:    true,
			},
			"volume": {
				Type:        gollem.TypeNumber,
				Description: "Processing volume in dollars for the same period",
				Required:    true,
			},
		},
	}
}

func (t *feeCalcTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	fees, err := extractFloat64(args, "total_fees")
	if err != nil {
		return nil, err
	}
	volume, err := extractFloat64(args, "volume")
	if err != nil {
		return nil, err
	}
	if volume <= 0 {
		return nil, fmt.Errorf("volume must be positive, got %v", volume)
	}
	if fees < 0 {
		return nil, fmt.Errorf("total_fees must be non-negative, got %v", fees)
	}

	tool.Update(ctx, "Calculating effective rate...")

	rate := fees / volume

	return map[string]any{
		"effective_rate_percent": math.Round(rate*100*10000) / 10000,
		"effective_rate_bps":     math.Round(rate * bpsDivisor),
		"total_fees":             fees,
		"volume":                 volume,
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
