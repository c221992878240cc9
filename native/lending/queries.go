package lending

import (
	"math/big"
	"strings"

	"lendpool/core/types"
)

// The query surface never mutates state: accrual is projected with the
// read-only ledger variants so UIs and indexers can display current balances
// between touches.

// Market is the externally visible snapshot of one asset's pool.
type Market struct {
	Config          *AssetConfig `json:"config"`
	BorrowRateBps   uint64       `json:"borrowRateBps"`
	SupplyRateBps   uint64       `json:"supplyRateBps"`
	UtilizationBps  uint64       `json:"utilizationBps"`
	RateIsFresh     bool         `json:"rateIsFresh"`
	AvailableLiquid *big.Int     `json:"availableLiquidity"`
}

// AccountData aggregates a user's positions across all assets, valued
// through the price feed.
type AccountData struct {
	User          string   `json:"user"`
	TotalSupplied *big.Int `json:"totalSupplied"`
	TotalBorrowed *big.Int `json:"totalBorrowed"`
	HealthFactor  *big.Rat `json:"-"`
	// HealthFactorString carries the decimal rendering for JSON consumers.
	HealthFactorString string `json:"healthFactor"`
}

// GetMarket returns the pool snapshot for one asset.
func (e *Engine) GetMarket(asset string) (*Market, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.marketLocked(strings.TrimSpace(asset))
}

// ListMarkets returns snapshots for every configured asset.
func (e *Engine) ListMarkets() ([]*Market, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	assets, err := e.state.ListAssets()
	if err != nil {
		return nil, err
	}
	markets := make([]*Market, 0, len(assets))
	for _, asset := range assets {
		market, err := e.marketLocked(asset)
		if err != nil {
			return nil, err
		}
		markets = append(markets, market)
	}
	return markets, nil
}

func (e *Engine) marketLocked(asset string) (*Market, error) {
	cfg, err := e.loadAsset(asset)
	if err != nil {
		return nil, err
	}
	util := utilizationBps(cfg.TotalBorrowed, cfg.TotalSupplied)
	borrowRate := e.borrowRate(asset)
	available := new(big.Int).Sub(cfg.TotalSupplied, cfg.TotalBorrowed)
	if available.Sign() < 0 {
		available = big.NewInt(0)
	}
	return &Market{
		Config:          cfg,
		BorrowRateBps:   borrowRate,
		SupplyRateBps:   supplyRateBps(borrowRate, util, cfg.ReserveFactorBps),
		UtilizationBps:  util,
		RateIsFresh:     e.oracleFresh(asset),
		AvailableLiquid: available,
	}, nil
}

// GetBorrowRate returns the oracle borrow rate in basis points.
func (e *Engine) GetBorrowRate(asset string) uint64 {
	if e == nil {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.borrowRate(strings.TrimSpace(asset))
}

// GetSupplyRate returns the utilization-scaled supplier rate in basis points.
func (e *Engine) GetSupplyRate(asset string) (uint64, error) {
	market, err := e.GetMarket(asset)
	if err != nil {
		return 0, err
	}
	return market.SupplyRateBps, nil
}

// GetUtilizationRate returns totalBorrowed/totalSupplied in basis points.
func (e *Engine) GetUtilizationRate(asset string) (uint64, error) {
	market, err := e.GetMarket(asset)
	if err != nil {
		return 0, err
	}
	return market.UtilizationBps, nil
}

// GetSupplyPosition returns the stored position with accrual projected to
// now, without committing it.
func (e *Engine) GetSupplyPosition(user, asset string) (*SupplyPosition, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	user, asset = strings.TrimSpace(user), strings.TrimSpace(asset)
	cfg, err := e.loadAsset(asset)
	if err != nil {
		return nil, err
	}
	pos, found, err := e.state.GetSupply(asset, user)
	if err != nil {
		return nil, err
	}
	if !found {
		return &SupplyPosition{User: user, Asset: asset, Amount: big.NewInt(0), InterestEarned: big.NewInt(0)}, nil
	}
	util := utilizationBps(cfg.TotalBorrowed, cfg.TotalSupplied)
	rate := supplyRateBps(e.borrowRate(asset), util, cfg.ReserveFactorBps)
	amount, interest := projectSupply(pos, rate, e.now())
	projected := pos.Clone()
	projected.Amount = amount
	projected.InterestEarned = interest
	return projected, nil
}

// GetBorrowPosition returns the stored borrow with accrual projected to now,
// without committing it.
func (e *Engine) GetBorrowPosition(user, asset string) (*BorrowPosition, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	user, asset = strings.TrimSpace(user), strings.TrimSpace(asset)
	pos, found, err := e.state.GetBorrow(asset, user)
	if err != nil {
		return nil, err
	}
	if !found {
		return &BorrowPosition{User: user, Asset: asset, Principal: big.NewInt(0), InterestAccrued: big.NewInt(0), CollateralAmount: big.NewInt(0)}, nil
	}
	principal, interest := projectBorrow(pos, e.borrowRate(asset), e.now())
	projected := pos.Clone()
	projected.Principal = principal
	projected.InterestAccrued = interest
	return projected, nil
}

// GetAccount returns the ledger balances held by an identity.
func (e *Engine) GetAccount(addr string) (*types.Account, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.GetAccount(strings.TrimSpace(addr))
}

// GetHealthFactor computes risk-adjusted collateral over total debt across
// all of the user's positions. Accounts with zero debt report
// MaxHealthFactor.
func (e *Engine) GetHealthFactor(user string) (*big.Rat, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, _, health, err := e.accountDataLocked(strings.TrimSpace(user))
	return health, err
}

// GetUserAccountData aggregates supplied value, borrowed value and health
// factor for a user.
func (e *Engine) GetUserAccountData(user string) (*AccountData, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	user = strings.TrimSpace(user)
	supplied, borrowed, health, err := e.accountDataLocked(user)
	if err != nil {
		return nil, err
	}
	return &AccountData{
		User:               user,
		TotalSupplied:      supplied,
		TotalBorrowed:      borrowed,
		HealthFactor:       health,
		HealthFactorString: health.FloatString(4),
	}, nil
}

func (e *Engine) accountDataLocked(user string) (*big.Int, *big.Int, *big.Rat, error) {
	list, err := e.state.GetAssetList(user)
	if err != nil {
		return nil, nil, nil, err
	}
	now := e.now()

	adjustedCollateral := new(big.Rat)
	suppliedValue := new(big.Rat)
	for _, asset := range list.Supplied {
		cfg, err := e.loadAsset(asset)
		if err != nil {
			return nil, nil, nil, err
		}
		pos, found, err := e.state.GetSupply(asset, user)
		if err != nil {
			return nil, nil, nil, err
		}
		if !found {
			continue
		}
		util := utilizationBps(cfg.TotalBorrowed, cfg.TotalSupplied)
		rate := supplyRateBps(e.borrowRate(asset), util, cfg.ReserveFactorBps)
		amount, _ := projectSupply(pos, rate, now)
		value, err := e.value(asset, amount)
		if err != nil {
			return nil, nil, nil, err
		}
		suppliedValue.Add(suppliedValue, value)
		adjustedCollateral.Add(adjustedCollateral, mulBps(value, cfg.LiquidationThresholdBps))
	}

	debtValue := new(big.Rat)
	for _, asset := range list.Borrowed {
		pos, found, err := e.state.GetBorrow(asset, user)
		if err != nil {
			return nil, nil, nil, err
		}
		if !found || pos.Settled() {
			continue
		}
		principal, interest := projectBorrow(pos, e.borrowRate(asset), now)
		value, err := e.value(asset, new(big.Int).Add(principal, interest))
		if err != nil {
			return nil, nil, nil, err
		}
		debtValue.Add(debtValue, value)
	}

	health := new(big.Rat).Set(MaxHealthFactor)
	if debtValue.Sign() > 0 {
		health = new(big.Rat).Quo(adjustedCollateral, debtValue)
	}
	return ratFloor(suppliedValue), ratFloor(debtValue), health, nil
}

func ratFloor(r *big.Rat) *big.Int {
	return new(big.Int).Quo(r.Num(), r.Denom())
}
