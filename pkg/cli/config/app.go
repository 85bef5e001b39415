package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// AppConfig is the TOML application configuration: assistant persona, tuning
// knobs, tenant overrides, and the seed merchant directory.
type AppConfig struct {
	Persona      string              `toml:"persona"`
	ContextLimit int                 `toml:"context_limit"`
	MemoryBudget int                 `toml:"memory_budget"`
	Synonyms     map[string][]string `toml:"synonyms"`
	Keywords     map[string]float64  `toml:"keywords"`
	Tenants      []Tenant            `toml:"tenant"`
	Merchants    []Merchant          `toml:"merchant"`

	path string
}

// Tenant is a per-organization provider ordering override
type Tenant struct {
	OrgID     string   `toml:"org_id"`
	Providers []string `toml:"providers"`
}

// Merchant is one seed record for the merchant lookup directory
type Merchant struct {
	OrgID         string  `toml:"org_id"`
	MerchantID    string  `toml:"merchant_id"`
	Name          string  `toml:"name"`
	MonthlyVolume float64 `toml:"monthly_volume"`
	PricingBps    float64 `toml:"pricing_bps"`
	Status        string  `toml:"status"`
}

// Flags returns CLI flags for app configuration
func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML application configuration",
			Sources:     cli.EnvVars("DELPHI_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Load reads and validates the TOML file when a path is configured. Without
// a path the zero-value config is used.
func (a *AppConfig) Load() error {
	if a.path == "" {
		return nil
	}

	raw, err := os.ReadFile(a.path)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", a.path))
	}
	if err := toml.Unmarshal(raw, a); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", a.path))
	}
	return a.Validate()
}

// Validate checks the loaded configuration
func (a *AppConfig) Validate() error {
	seen := make(map[string]bool)
	for _, t := range a.Tenants {
		if err := types.OrgID(t.OrgID).Validate(); err != nil {
			return goerr.Wrap(err, "invalid tenant org_id", goerr.V("org_id", t.OrgID))
		}
		if seen[t.OrgID] {
			return goerr.New("duplicate tenant org_id", goerr.V("org_id", t.OrgID))
		}
		seen[t.OrgID] = true
	}

	for _, m := range a.Merchants {
		if err := types.OrgID(m.OrgID).Validate(); err != nil {
			return goerr.Wrap(err, "invalid merchant org_id", goerr.V("org_id", m.OrgID))
		}
		if m.MerchantID == "" {
			return goerr.New("merchant_id is required", goerr.V("org_id", m.OrgID))
		}
	}

	for word, weight := range a.Keywords {
		if word == "" || weight <= 0 {
			return goerr.New("keyword weights must be positive", goerr.V("keyword", word))
		}
	}
	return nil
}

// TenantOrders returns the per-tenant provider orderings keyed by org ID
func (a *AppConfig) TenantOrders() map[types.OrgID][]string {
	if len(a.Tenants) == 0 {
		return nil
	}
	orders := make(map[types.OrgID][]string, len(a.Tenants))
	for _, t := range a.Tenants {
		orders[types.OrgID(t.OrgID)] = t.Providers
	}
	return orders
}
