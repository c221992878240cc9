package state

import (
	"math/big"
	"testing"
	"time"

	"lendpool/native/lending"
	"lendpool/storage"
)

func newTestManager(t *testing.T) (*Manager, storage.Database) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	return NewManager(db), db
}

func TestAssetRoundTrip(t *testing.T) {
	manager, _ := newTestManager(t)

	cfg := &lending.AssetConfig{
		Asset:                   "USDC",
		Active:                  true,
		CollateralFactorBps:     8000,
		LiquidationThresholdBps: 8500,
		LiquidationBonusBps:     500,
		ReserveFactorBps:        1000,
		TotalSupplied:           big.NewInt(1_000_000),
		TotalBorrowed:           big.NewInt(250_000),
		TotalReserves:           big.NewInt(42),
	}
	if err := manager.PutAsset(cfg); err != nil {
		t.Fatalf("put asset: %v", err)
	}
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, ok, err := manager.GetAsset("USDC")
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if !ok {
		t.Fatal("expected asset to exist")
	}
	if got.LiquidationThresholdBps != 8500 {
		t.Fatalf("unexpected threshold: %d", got.LiquidationThresholdBps)
	}
	if got.TotalSupplied.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("unexpected total supplied: %s", got.TotalSupplied)
	}

	index, err := manager.ListAssets()
	if err != nil {
		t.Fatalf("list assets: %v", err)
	}
	if len(index) != 1 || index[0] != "USDC" {
		t.Fatalf("unexpected index: %v", index)
	}
}

func TestAssetIndexIsSortedAndDeduplicated(t *testing.T) {
	manager, _ := newTestManager(t)

	for _, asset := range []string{"ZNHB", "ATOM", "USDC", "ATOM"} {
		cfg := &lending.AssetConfig{Asset: asset}
		cfg.EnsureDefaults()
		if err := manager.PutAsset(cfg); err != nil {
			t.Fatalf("put %s: %v", asset, err)
		}
	}
	index, err := manager.ListAssets()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"ATOM", "USDC", "ZNHB"}
	if len(index) != len(want) {
		t.Fatalf("unexpected index: %v", index)
	}
	for i := range want {
		if index[i] != want[i] {
			t.Fatalf("index[%d] = %s, want %s", i, index[i], want[i])
		}
	}
}

func TestStagedWritesInvisibleUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	writer := NewManager(db)
	reader := NewManager(db)

	pos := &lending.SupplyPosition{
		User:           "alice",
		Asset:          "USDC",
		Amount:         big.NewInt(500),
		InterestEarned: big.NewInt(0),
		LastUpdateTime: time.Unix(1_700_000_000, 0).UTC(),
	}
	if err := writer.PutSupply(pos); err != nil {
		t.Fatalf("put supply: %v", err)
	}

	// Staged in the writer's overlay only.
	if _, ok, err := reader.GetSupply("USDC", "alice"); err != nil || ok {
		t.Fatalf("reader sees uncommitted write: ok=%v err=%v", ok, err)
	}
	if got, ok, err := writer.GetSupply("USDC", "alice"); err != nil || !ok || got.Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("writer does not see own staged write: ok=%v err=%v", ok, err)
	}

	if err := writer.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, ok, err := reader.GetSupply("USDC", "alice")
	if err != nil || !ok {
		t.Fatalf("committed supply missing: ok=%v err=%v", ok, err)
	}
	if !got.LastUpdateTime.Equal(pos.LastUpdateTime) {
		t.Fatalf("timestamp mismatch: %s", got.LastUpdateTime)
	}
}

func TestDiscardDropsStagedWrites(t *testing.T) {
	manager, _ := newTestManager(t)

	acc, err := manager.GetAccount("bob")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	acc.SetBalance("USDC", big.NewInt(999))
	if err := manager.PutAccount("bob", acc); err != nil {
		t.Fatalf("put account: %v", err)
	}
	manager.Discard()

	fresh, err := manager.GetAccount("bob")
	if err != nil {
		t.Fatalf("get account after discard: %v", err)
	}
	if fresh.BalanceOf("USDC").Sign() != 0 {
		t.Fatalf("discarded balance survived: %s", fresh.BalanceOf("USDC"))
	}
}

func TestMissingRecordsReturnDefaults(t *testing.T) {
	manager, _ := newTestManager(t)

	if _, ok, err := manager.GetBorrow("USDC", "nobody"); err != nil || ok {
		t.Fatalf("expected missing borrow: ok=%v err=%v", ok, err)
	}
	list, err := manager.GetAssetList("nobody")
	if err != nil {
		t.Fatalf("get asset list: %v", err)
	}
	if len(list.Supplied) != 0 || len(list.Borrowed) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
	acc, err := manager.GetAccount("nobody")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acc.BalanceOf("USDC").Sign() != 0 {
		t.Fatal("expected zero balance for fresh account")
	}
}

func TestBorrowRoundTripPreservesCollateral(t *testing.T) {
	manager, _ := newTestManager(t)

	pos := &lending.BorrowPosition{
		User:             "carol",
		Asset:            "USDC",
		Principal:        big.NewInt(100),
		InterestAccrued:  big.NewInt(3),
		LastUpdateTime:   time.Unix(1_700_000_000, 0).UTC(),
		CollateralAsset:  "ZNHB",
		CollateralAmount: big.NewInt(200),
	}
	if err := manager.PutBorrow(pos); err != nil {
		t.Fatalf("put borrow: %v", err)
	}
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, ok, err := manager.GetBorrow("USDC", "carol")
	if err != nil || !ok {
		t.Fatalf("get borrow: ok=%v err=%v", ok, err)
	}
	if got.CollateralAsset != "ZNHB" || got.CollateralAmount.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("collateral mismatch: %s %s", got.CollateralAsset, got.CollateralAmount)
	}
	if got.Debt().Cmp(big.NewInt(103)) != 0 {
		t.Fatalf("debt mismatch: %s", got.Debt())
	}
}
