package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/stratospay/delphi/pkg/agent/tool"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

// MerchantDirectory resolves merchant accounts for the lookup tool. The
// production backend is external to this service; tests and the local setup
// use StaticDirectory.
type MerchantDirectory interface {
	Lookup(ctx context.Context, orgID types.OrgID, merchantID string) (map[string]any, error)
}

// StaticDirectory is an in-memory MerchantDirectory backed by a fixed record
// set, keyed by org then merchant ID.
type StaticDirectory struct {
	mu      sync.RWMutex
	records map[types.OrgID]map[string]map[string]any
}

// NewStaticDirectory creates an empty static merchant directory
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		records: make(map[types.OrgID]map[string]map[string]any),
	}
}

// Put registers a merchant record under an org
func (d *StaticDirectory) Put(orgID types.OrgID, merchantID string, record map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.records[orgID] == nil {
		d.records[orgID] = make(map[string]map[string]any)
	}
	d.records[orgID][merchantID] = record
}

// Lookup implements MerchantDirectory
func (d *StaticDirectory) Lookup(_ context.Context, orgID types.OrgID, merchantID string) (map[string]any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	record, ok := d.records[orgID][merchantID]
	if !ok {
		return nil, goerr.New("merchant not found",
			goerr.V("orgID", orgID),
			goerr.V("merchantID", merchantID),
		)
	}
	return record, nil
}

// merchantLookupTool fetches a merchant account record from the directory
// backend, scoped to the caller's tenant
type merchantLookupTool struct {
	directory MerchantDirectory
	scope     model.Scope
}

func (t *merchantLookupTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "core__lookup_merchant",
		Description: "Look up a merchant account by its merchant ID and return its profile (processing volume, pricing, status)",
		Parameters: map[string]*gollem.Parameter{
			"merchant_id": {
				Type:        gollem.TypeString,
				Description: "The merchant ID to look up",
				Required:    true,
			},
		},
	}
}

func (t *merchantLookupTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	merchantID, _ := args["merchant_id"].(string)
	if merchantID == "" {
		return nil, fmt.Errorf("merchant_id is required")
	}

	tool.Update(ctx, fmt.Sprintf("Looking up merchant %s...", merchantID))

	record, err := t.directory.Lookup(ctx, t.scope.OrgID, merchantID)
	if err != nil {
		return nil, goerr.Wrap(err, "merchant lookup failed", goerr.V("merchantID", merchantID))
	}
	return record, nil
}
