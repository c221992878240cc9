package lending

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestGetMarketSnapshot(t *testing.T) {
	h := newTestHarness(t)
	h.oracle.rates[usdc] = 1000
	h.seedSupply(t, alice, usdc, 1_000_000, 0)
	h.state.assets[usdc].TotalBorrowed = big.NewInt(250_000)

	market, err := h.engine.GetMarket(usdc)
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if market.BorrowRateBps != 1000 {
		t.Fatalf("borrow rate = %d", market.BorrowRateBps)
	}
	if market.UtilizationBps != 2500 {
		t.Fatalf("utilization = %d, want 2500", market.UtilizationBps)
	}
	// 1000 * 0.25 * 0.9
	if market.SupplyRateBps != 225 {
		t.Fatalf("supply rate = %d, want 225", market.SupplyRateBps)
	}
	if market.AvailableLiquid.Cmp(big.NewInt(750_000)) != 0 {
		t.Fatalf("available = %s, want 750000", market.AvailableLiquid)
	}
	if !market.RateIsFresh {
		t.Fatal("expected fresh rate")
	}

	if _, err := h.engine.GetMarket(atom); !errors.Is(err, ErrAssetNotActive) {
		t.Fatalf("unknown market: got %v, want ErrAssetNotActive", err)
	}
}

func TestListMarkets(t *testing.T) {
	h := newTestHarness(t)
	markets, err := h.engine.ListMarkets()
	if err != nil {
		t.Fatalf("list markets: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(markets))
	}
	seen := map[string]bool{}
	for _, m := range markets {
		seen[m.Config.Asset] = true
	}
	if !seen[usdc] || !seen[znhb] {
		t.Fatalf("unexpected market set: %v", seen)
	}
}

func TestGetSupplyPositionProjectsWithoutMutating(t *testing.T) {
	h := newTestHarness(t)
	h.oracle.rates[usdc] = 1000
	h.seedSupply(t, alice, usdc, 1_000_000, 0)
	h.state.assets[usdc].TotalBorrowed = big.NewInt(500_000)

	h.advance(time.Duration(SecondsPerYear) * time.Second)
	pos, err := h.engine.GetSupplyPosition(alice, usdc)
	if err != nil {
		t.Fatalf("get supply position: %v", err)
	}
	// One year at 1000 * 0.5 * 0.9 = 450 bps.
	if pos.InterestEarned.Cmp(big.NewInt(45_000)) != 0 {
		t.Fatalf("projected interest = %s, want 45000", pos.InterestEarned)
	}
	stored := h.state.supplies[posKey(usdc, alice)]
	if stored.InterestEarned.Sign() != 0 {
		t.Fatalf("query mutated stored position: %s", stored.InterestEarned)
	}
}

func TestGetBorrowPositionMissingIsZeroed(t *testing.T) {
	h := newTestHarness(t)
	pos, err := h.engine.GetBorrowPosition(bob, usdc)
	if err != nil {
		t.Fatalf("get borrow position: %v", err)
	}
	if pos.Principal.Sign() != 0 || pos.InterestAccrued.Sign() != 0 || pos.CollateralAmount.Sign() != 0 {
		t.Fatalf("expected zeroed position, got %+v", pos)
	}
}

func TestHealthFactorNoDebt(t *testing.T) {
	h := newTestHarness(t)
	h.seedSupply(t, alice, usdc, 1000, 0)

	health, err := h.engine.GetHealthFactor(alice)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if health.Cmp(MaxHealthFactor) != 0 {
		t.Fatalf("expected MaxHealthFactor, got %s", health)
	}
}

func TestUserAccountDataAggregates(t *testing.T) {
	h := newTestHarness(t)
	h.seedSupply(t, bob, usdc, 1000, 0)
	h.seedBorrow(t, bob, usdc, 500, 0, znhb, 900)

	data, err := h.engine.GetUserAccountData(bob)
	if err != nil {
		t.Fatalf("account data: %v", err)
	}
	// seedBorrow grows the pool book but bob's own supplied value is the
	// 1000 deposit.
	if data.TotalSupplied.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("total supplied = %s, want 1000", data.TotalSupplied)
	}
	if data.TotalBorrowed.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("total borrowed = %s, want 500", data.TotalBorrowed)
	}
	// 1000 * 0.85 / 500
	want := big.NewRat(17, 10)
	if data.HealthFactor.Cmp(want) != 0 {
		t.Fatalf("health factor = %s, want 1.7", data.HealthFactor)
	}
	if data.HealthFactorString != "1.7000" {
		t.Fatalf("health factor string = %q", data.HealthFactorString)
	}
}

func TestSupplyAndUtilizationRateQueries(t *testing.T) {
	h := newTestHarness(t)
	h.oracle.rates[usdc] = 1000
	h.seedSupply(t, alice, usdc, 1_000_000, 0)
	h.state.assets[usdc].TotalBorrowed = big.NewInt(500_000)

	util, err := h.engine.GetUtilizationRate(usdc)
	if err != nil {
		t.Fatalf("utilization: %v", err)
	}
	if util != 5000 {
		t.Fatalf("utilization = %d, want 5000", util)
	}
	rate, err := h.engine.GetSupplyRate(usdc)
	if err != nil {
		t.Fatalf("supply rate: %v", err)
	}
	if rate != 450 {
		t.Fatalf("supply rate = %d, want 450", rate)
	}
	if got := h.engine.GetBorrowRate(usdc); got != 1000 {
		t.Fatalf("borrow rate = %d, want 1000", got)
	}
}
