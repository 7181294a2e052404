package service

import (
	"context"
	"time"

	"github.com/jmerrifield20/ProvenanceLedger/internal/chain"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"go.uber.org/zap"
)

// DemoAssetID is the id of the demonstration asset written by SeedDemo.
const DemoAssetID = "ASSET-8821-WAGYU"

type seedStep struct {
	role   ledger.Role
	fn     string
	inputs map[string]string
}

var demoSteps = []seedStep{
	{ledger.RoleSupplier, ledger.FuncCreateAsset, map[string]string{
		"id":          DemoAssetID,
		"name":        "Premium A5 Wagyu",
		"category":    "Meat",
		"origin":      "Kobe, Hyogo, Japan",
		"harvestDate": "2023-10-25",
	}},
	{ledger.RoleProcessor, ledger.FuncProcessAsset, map[string]string{
		"id":          DemoAssetID,
		"packageId":   "PKG-JP-992",
		"processTemp": "-2°C",
	}},
	{ledger.RoleLogistics, ledger.FuncTransportAsset, map[string]string{
		"id":            DemoAssetID,
		"logisticsId":   "LOG-DHL-221",
		"transportTemp": "-4°C",
	}},
	{ledger.RoleRetailer, ledger.FuncReceiveAsset, map[string]string{
		"id":           DemoAssetID,
		"retailerName": "Ginza Gourmet Market",
		"shelfLife":    "2023-11-15",
	}},
}

// SeedDemo writes a complete four-block demonstration chain when the store is
// empty, so a fresh ledger is immediately queryable. It reports whether it
// seeded; a store holding any entry is left untouched.
//
// Submissions through this service wait while it runs. Another process writing
// to the same backend is not excluded, so daemons seed before serving.
func (s *LedgerService) SeedDemo(ctx context.Context) (bool, error) {
	s.writes.Lock()
	defer s.writes.Unlock()

	n, err := s.store.Len(ctx)
	if err != nil {
		return false, ledger.Persistence("count entries", err)
	}
	if n > 0 {
		return false, nil
	}

	// Blocks are one day apart and end three days before now.
	base := s.clock().Add(-6 * 24 * time.Hour).UnixMilli()
	const day = int64(24 * time.Hour / time.Millisecond)

	history := make([]ledger.Block, 0, len(demoSteps))
	prevHash := chain.GenesisHash
	for i, st := range demoSteps {
		blk, err := s.builder.Build(st.role, st.fn, st.inputs, prevHash, base+int64(i)*day)
		if err != nil {
			return false, ledger.Persistence("build block", err)
		}
		history = append(history, blk)
		prevHash = blk.CurrentHash
	}

	asset, err := s.engine.Replay(history)
	if err != nil {
		return false, err
	}
	if err := s.store.Put(ctx, ledger.Entry{Asset: asset, History: history}); err != nil {
		return false, ledger.Persistence("commit entry", err)
	}

	s.logger.Info("seeded demonstration asset",
		zap.String("asset_id", DemoAssetID),
		zap.Int("blocks", len(history)),
	)
	return true, nil
}
