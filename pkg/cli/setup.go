package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/agent/tool/core"
	"github.com/stratospay/delphi/pkg/cli/config"
	"github.com/stratospay/delphi/pkg/domain/interfaces"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/service/embedding"
	"github.com/stratospay/delphi/pkg/service/gateway"
	"github.com/stratospay/delphi/pkg/service/recall"
	"github.com/stratospay/delphi/pkg/service/retrieval"
	"github.com/stratospay/delphi/pkg/usecase"
)

// buildUseCases assembles the service stack shared by serve and ask
func buildUseCases(ctx context.Context, appCfg *config.AppConfig, repo interfaces.Repository, providers []gateway.Provider) (*usecase.UseCases, error) {
	gwOpts := []gateway.Option{}
	if appCfg.Persona != "" {
		gwOpts = append(gwOpts, gateway.WithPersona(appCfg.Persona))
	}
	if orders := appCfg.TenantOrders(); orders != nil {
		gwOpts = append(gwOpts, gateway.WithTenantOrders(orders))
	}
	gw := gateway.New(providers, gwOpts...)

	embedder := embedding.New(gw.Primary())

	search, err := retrieval.New(repo, embedder,
		retrieval.WithSynonyms(retrieval.NewSynonymTable(appCfg.Synonyms)),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build retrieval service")
	}

	recallOpts := []recall.Option{}
	if len(appCfg.Keywords) > 0 {
		recallOpts = append(recallOpts, recall.WithDomainKeywords(appCfg.Keywords))
	}
	memory, err := recall.New(repo, recallOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build conversation memory service")
	}

	ucOpts := []usecase.Option{}
	if appCfg.ContextLimit > 0 {
		ucOpts = append(ucOpts, usecase.WithContextLimit(appCfg.ContextLimit))
	}
	if appCfg.MemoryBudget > 0 {
		ucOpts = append(ucOpts, usecase.WithMemoryBudget(appCfg.MemoryBudget))
	}
	if len(appCfg.Merchants) > 0 {
		directory := core.NewStaticDirectory()
		for _, m := range appCfg.Merchants {
			directory.Put(types.OrgID(m.OrgID), m.MerchantID, map[string]any{
				"merchant_id":    m.MerchantID,
				"name":           m.Name,
				"monthly_volume": m.MonthlyVolume,
				"pricing_bps":    m.PricingBps,
				"status":         m.Status,
			})
		}
		ucOpts = append(ucOpts, usecase.WithMerchantDirectory(directory))
	}

	return usecase.New(repo, gw, search, memory, ucOpts...), nil
}
