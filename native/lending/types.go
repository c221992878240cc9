package lending

import (
	"math/big"
	"time"
)

// AssetConfig holds the governance controlled risk parameters and the running
// pool totals for one supported asset. Totals are pool-owned counters and
// survive reconfiguration.
type AssetConfig struct {
	Asset  string `json:"asset"`
	Active bool   `json:"active"`
	// CollateralFactorBps caps how much borrowing power a unit of this asset
	// grants when pledged as collateral.
	CollateralFactorBps uint64 `json:"collateralFactorBps"`
	// LiquidationThresholdBps is the ratio where positions collateralised by
	// this asset become eligible for liquidation.
	LiquidationThresholdBps uint64 `json:"liquidationThresholdBps"`
	// LiquidationBonusBps is the extra collateral awarded to liquidators.
	LiquidationBonusBps uint64 `json:"liquidationBonusBps"`
	// ReserveFactorBps is the share of borrow interest retained as protocol
	// reserves instead of accruing to suppliers.
	ReserveFactorBps uint64 `json:"reserveFactorBps"`

	TotalSupplied *big.Int `json:"totalSupplied"`
	TotalBorrowed *big.Int `json:"totalBorrowed"`
	TotalReserves *big.Int `json:"totalReserves"`
}

// EnsureDefaults populates nil totals so decoded configs are safe to mutate.
func (c *AssetConfig) EnsureDefaults() {
	if c.TotalSupplied == nil {
		c.TotalSupplied = big.NewInt(0)
	}
	if c.TotalBorrowed == nil {
		c.TotalBorrowed = big.NewInt(0)
	}
	if c.TotalReserves == nil {
		c.TotalReserves = big.NewInt(0)
	}
}

// Clone returns a deep copy of the asset config.
func (c *AssetConfig) Clone() *AssetConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.TotalSupplied != nil {
		clone.TotalSupplied = new(big.Int).Set(c.TotalSupplied)
	}
	if c.TotalBorrowed != nil {
		clone.TotalBorrowed = new(big.Int).Set(c.TotalBorrowed)
	}
	if c.TotalReserves != nil {
		clone.TotalReserves = new(big.Int).Set(c.TotalReserves)
	}
	return &clone
}

// SupplyPosition records one user's deposit in one asset. Interest earned is
// tracked separately from principal and paid out when the position is fully
// withdrawn.
type SupplyPosition struct {
	User           string    `json:"user"`
	Asset          string    `json:"asset"`
	Amount         *big.Int  `json:"amount"`
	InterestEarned *big.Int  `json:"interestEarned"`
	LastUpdateTime time.Time `json:"lastUpdateTime"`
}

func (p *SupplyPosition) EnsureDefaults() {
	if p.Amount == nil {
		p.Amount = big.NewInt(0)
	}
	if p.InterestEarned == nil {
		p.InterestEarned = big.NewInt(0)
	}
}

// Clone returns a deep copy of the supply position.
func (p *SupplyPosition) Clone() *SupplyPosition {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	}
	if p.InterestEarned != nil {
		clone.InterestEarned = new(big.Int).Set(p.InterestEarned)
	}
	return &clone
}

// BorrowPosition records one user's open borrow in one asset together with
// the collateral pledged against it. A user holds at most one open borrow per
// borrowed asset; repeated borrows accumulate principal and collateral.
type BorrowPosition struct {
	User             string    `json:"user"`
	Asset            string    `json:"asset"`
	Principal        *big.Int  `json:"principal"`
	InterestAccrued  *big.Int  `json:"interestAccrued"`
	LastUpdateTime   time.Time `json:"lastUpdateTime"`
	CollateralAsset  string    `json:"collateralAsset"`
	CollateralAmount *big.Int  `json:"collateralAmount"`
}

func (p *BorrowPosition) EnsureDefaults() {
	if p.Principal == nil {
		p.Principal = big.NewInt(0)
	}
	if p.InterestAccrued == nil {
		p.InterestAccrued = big.NewInt(0)
	}
	if p.CollateralAmount == nil {
		p.CollateralAmount = big.NewInt(0)
	}
}

// Debt returns principal plus accrued interest.
func (p *BorrowPosition) Debt() *big.Int {
	if p == nil {
		return big.NewInt(0)
	}
	p.EnsureDefaults()
	return new(big.Int).Add(p.Principal, p.InterestAccrued)
}

// Settled reports whether the borrow is fully repaid.
func (p *BorrowPosition) Settled() bool {
	if p == nil {
		return true
	}
	p.EnsureDefaults()
	return p.Principal.Sign() == 0 && p.InterestAccrued.Sign() == 0
}

// Clone returns a deep copy of the borrow position.
func (p *BorrowPosition) Clone() *BorrowPosition {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Principal != nil {
		clone.Principal = new(big.Int).Set(p.Principal)
	}
	if p.InterestAccrued != nil {
		clone.InterestAccrued = new(big.Int).Set(p.InterestAccrued)
	}
	if p.CollateralAmount != nil {
		clone.CollateralAmount = new(big.Int).Set(p.CollateralAmount)
	}
	return &clone
}

// AssetList tracks which assets a user currently has open supply or borrow
// positions in. Entries are pruned on full withdrawal or full repayment so
// aggregation never walks dead positions.
type AssetList struct {
	Supplied []string `json:"supplied"`
	Borrowed []string `json:"borrowed"`
}

func containsAsset(list []string, asset string) bool {
	for _, entry := range list {
		if entry == asset {
			return true
		}
	}
	return false
}

func addAsset(list []string, asset string) []string {
	if containsAsset(list, asset) {
		return list
	}
	return append(list, asset)
}

func removeAsset(list []string, asset string) []string {
	out := list[:0]
	for _, entry := range list {
		if entry != asset {
			out = append(out, entry)
		}
	}
	return out
}
