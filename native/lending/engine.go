package lending

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"lendpool/core/types"
	nativecommon "lendpool/native/common"
)

const moduleName = "lending"

// DefaultMinCollateralRatioBps is the 150% minimum collateral ratio enforced
// when opening or extending a borrow.
const DefaultMinCollateralRatioBps = 15_000

// MaxHealthFactor is the sentinel returned for accounts with zero debt.
var MaxHealthFactor = new(big.Rat).SetInt64(math.MaxInt64)

// engineState is the persistence surface the engine drives. Every mutating
// operation stages writes through it and either commits them as a unit or
// discards them, so a failed invariant check leaves no observable side
// effect.
type engineState interface {
	GetAsset(asset string) (*AssetConfig, bool, error)
	PutAsset(cfg *AssetConfig) error
	ListAssets() ([]string, error)
	GetSupply(asset, user string) (*SupplyPosition, bool, error)
	PutSupply(pos *SupplyPosition) error
	GetBorrow(asset, user string) (*BorrowPosition, bool, error)
	PutBorrow(pos *BorrowPosition) error
	GetAssetList(user string) (*AssetList, error)
	PutAssetList(user string, list *AssetList) error
	GetAccount(addr string) (*types.Account, error)
	PutAccount(addr string, acc *types.Account) error
	Commit() error
	Discard()
}

// RateSource is the oracle surface the engine reads on every interest
// computation. Rates are basis points; unconfigured assets report zero.
type RateSource interface {
	GetRate(asset string) (rateBps uint64, lastUpdated time.Time, volatility uint64)
	IsFresh(asset string) bool
}

// PriceFeed values an asset in the pool's common denominator. The default
// feed prices every asset 1:1; production deployments substitute an external
// price oracle.
type PriceFeed interface {
	Price(asset string) (*big.Rat, error)
}

// FixedPriceFeed prices all assets at parity.
type FixedPriceFeed struct{}

func (FixedPriceFeed) Price(string) (*big.Rat, error) { return big.NewRat(1, 1), nil }

// Engine orchestrates the lending pool state transitions: supply, withdraw,
// borrow, repay and liquidate, plus the admin and query surfaces. A single
// writer lock serializes mutations; reads share the lock.
type Engine struct {
	mu                    sync.RWMutex
	state                 engineState
	oracle                RateSource
	prices                PriceFeed
	pauses                *nativecommon.Pauses
	admin                 string
	moduleAddress         string
	collateralAddress     string
	minCollateralRatioBps uint64
	requireFreshRate      bool
	now                   func() time.Time
	emit                  func(types.Event)
}

// NewEngine constructs an engine custodying pool liquidity under moduleAddr
// and pledged collateral under collateralAddr.
func NewEngine(moduleAddr, collateralAddr string) *Engine {
	return &Engine{
		moduleAddress:         strings.TrimSpace(moduleAddr),
		collateralAddress:     strings.TrimSpace(collateralAddr),
		prices:                FixedPriceFeed{},
		minCollateralRatioBps: DefaultMinCollateralRatioBps,
		requireFreshRate:      true,
		now:                   time.Now,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOracle wires the interest-rate feed.
func (e *Engine) SetOracle(src RateSource) { e.oracle = src }

// SetPriceFeed replaces the default 1:1 price feed.
func (e *Engine) SetPriceFeed(feed PriceFeed) {
	if feed != nil {
		e.prices = feed
	}
}

// SetPauses wires the pause switchboard consulted before every mutation.
func (e *Engine) SetPauses(p *nativecommon.Pauses) { e.pauses = p }

// SetAdmin configures the identity allowed to call admin operations.
func (e *Engine) SetAdmin(admin string) { e.admin = strings.TrimSpace(admin) }

// SetMinCollateralRatio overrides the minimum collateral ratio in basis
// points. Values below 100% are rejected.
func (e *Engine) SetMinCollateralRatio(bps uint64) error {
	if bps < MaxBps {
		return fmt.Errorf("%w: min collateral ratio %d below 100%%", ErrInvalidParameter, bps)
	}
	e.minCollateralRatioBps = bps
	return nil
}

// SetRequireFreshRate controls whether new borrows demand a fresh oracle
// rate. Accrual always proceeds on the last stored rate.
func (e *Engine) SetRequireFreshRate(require bool) { e.requireFreshRate = require }

// SetClock overrides the time source used for accrual.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// SetEmitter wires the event sink invoked after a successful commit.
func (e *Engine) SetEmitter(emit func(types.Event)) { e.emit = emit }

// finalize commits staged writes on success and discards them on failure,
// emitting buffered events only after a durable commit.
func (e *Engine) finalize(opErr error, events []types.Event) error {
	if opErr != nil {
		e.state.Discard()
		return opErr
	}
	if err := e.state.Commit(); err != nil {
		e.state.Discard()
		return err
	}
	if e.emit != nil {
		for _, evt := range events {
			e.emit(evt)
		}
	}
	return nil
}

// Supply deposits liquidity into the pool.
func (e *Engine) Supply(caller, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	caller, asset = strings.TrimSpace(caller), strings.TrimSpace(asset)
	if caller == "" || asset == "" {
		return fmt.Errorf("%w: caller and asset required", ErrInvalidParameter)
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	err := func() error {
		cfg, err := e.loadActiveAsset(asset)
		if err != nil {
			return err
		}
		pos, err := e.loadSupply(asset, caller)
		if err != nil {
			return err
		}
		now := e.now()
		e.accrueSupplyPosition(cfg, pos, now)

		if err := e.transfer(caller, e.moduleAddress, asset, amount); err != nil {
			return err
		}

		pos.Amount = new(big.Int).Add(pos.Amount, amount)
		cfg.TotalSupplied = new(big.Int).Add(cfg.TotalSupplied, amount)

		list, err := e.state.GetAssetList(caller)
		if err != nil {
			return err
		}
		list.Supplied = addAsset(list.Supplied, asset)

		if err := e.state.PutSupply(pos); err != nil {
			return err
		}
		if err := e.state.PutAsset(cfg); err != nil {
			return err
		}
		return e.state.PutAssetList(caller, list)
	}()
	return e.finalize(err, []types.Event{supplyEvent(caller, asset, amount)})
}

// Withdraw redeems supplied liquidity. A withdrawal that empties the position
// also pays out accrued interest; withdrawals that would leave the caller's
// open borrows uncovered are rejected whole.
func (e *Engine) Withdraw(caller, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	caller, asset = strings.TrimSpace(caller), strings.TrimSpace(asset)
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	var interestPaid *big.Int
	err := func() error {
		cfg, err := e.loadAsset(asset)
		if err != nil {
			return err
		}
		pos, found, err := e.state.GetSupply(asset, caller)
		if err != nil {
			return err
		}
		if !found {
			return ErrInsufficientBalance
		}
		pos.EnsureDefaults()
		now := e.now()
		e.accrueSupplyPosition(cfg, pos, now)

		if pos.Amount.Cmp(amount) < 0 {
			return ErrInsufficientBalance
		}

		remaining := new(big.Int).Sub(pos.Amount, amount)
		if err := e.checkWithdrawHealth(caller, asset, cfg, remaining, now); err != nil {
			return err
		}

		payout := new(big.Int).Set(amount)
		interestPaid = big.NewInt(0)
		fullExit := remaining.Sign() == 0
		if fullExit && pos.InterestEarned.Sign() > 0 {
			interestPaid = new(big.Int).Set(pos.InterestEarned)
			payout.Add(payout, interestPaid)
		}

		moduleAcc, err := e.state.GetAccount(e.moduleAddress)
		if err != nil {
			return err
		}
		if moduleAcc.BalanceOf(asset).Cmp(payout) < 0 {
			return ErrInsufficientLiquidity
		}
		if err := e.transfer(e.moduleAddress, caller, asset, payout); err != nil {
			return err
		}

		pos.Amount = remaining
		if fullExit {
			pos.InterestEarned = big.NewInt(0)
		}
		cfg.TotalSupplied = new(big.Int).Sub(cfg.TotalSupplied, amount)

		if fullExit {
			list, err := e.state.GetAssetList(caller)
			if err != nil {
				return err
			}
			list.Supplied = removeAsset(list.Supplied, asset)
			if err := e.state.PutAssetList(caller, list); err != nil {
				return err
			}
		}

		if err := e.state.PutSupply(pos); err != nil {
			return err
		}
		return e.state.PutAsset(cfg)
	}()
	return e.finalize(err, []types.Event{withdrawEvent(caller, asset, amount, interestPaid)})
}

// Borrow opens or extends a borrow backed by pledged collateral. Collateral
// is staged into the vault before the sufficiency check and rolled back with
// the rest of the operation when the check fails.
func (e *Engine) Borrow(caller, asset string, amount *big.Int, collateralAsset string, collateralAmount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	caller = strings.TrimSpace(caller)
	asset = strings.TrimSpace(asset)
	collateralAsset = strings.TrimSpace(collateralAsset)
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if collateralAmount == nil {
		collateralAmount = big.NewInt(0)
	}
	if collateralAmount.Sign() < 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	err := func() error {
		cfg, err := e.loadActiveAsset(asset)
		if err != nil {
			return err
		}
		colCfg, err := e.loadActiveAsset(collateralAsset)
		if err != nil {
			return err
		}
		if e.requireFreshRate && !e.oracleFresh(asset) {
			return ErrStaleRate
		}

		available := new(big.Int).Sub(cfg.TotalSupplied, cfg.TotalBorrowed)
		if available.Cmp(amount) < 0 {
			return ErrInsufficientLiquidity
		}

		pos, found, err := e.state.GetBorrow(asset, caller)
		if err != nil {
			return err
		}
		if !found {
			pos = &BorrowPosition{User: caller, Asset: asset, CollateralAsset: collateralAsset}
		}
		pos.EnsureDefaults()
		if pos.CollateralAsset != collateralAsset {
			if !pos.Settled() || pos.CollateralAmount.Sign() > 0 {
				return ErrCollateralMismatch
			}
			pos.CollateralAsset = collateralAsset
		}

		now := e.now()
		e.accrueBorrowPosition(cfg, pos, now)

		if collateralAmount.Sign() > 0 {
			if err := e.transfer(caller, e.collateralAddress, collateralAsset, collateralAmount); err != nil {
				return err
			}
			pos.CollateralAmount = new(big.Int).Add(pos.CollateralAmount, collateralAmount)
		}

		collateralValue, err := e.value(collateralAsset, pos.CollateralAmount)
		if err != nil {
			return err
		}
		adjusted := mulBps(collateralValue, colCfg.CollateralFactorBps)
		newDebt := new(big.Int).Add(pos.Debt(), amount)
		debtValue, err := e.value(asset, newDebt)
		if err != nil {
			return err
		}
		required := mulBps(debtValue, e.minCollateralRatioBps)
		if adjusted.Cmp(required) < 0 {
			return ErrInsufficientCollateral
		}

		moduleAcc, err := e.state.GetAccount(e.moduleAddress)
		if err != nil {
			return err
		}
		if moduleAcc.BalanceOf(asset).Cmp(amount) < 0 {
			return ErrInsufficientLiquidity
		}
		if err := e.transfer(e.moduleAddress, caller, asset, amount); err != nil {
			return err
		}

		pos.Principal = new(big.Int).Add(pos.Principal, amount)
		pos.LastUpdateTime = now
		cfg.TotalBorrowed = new(big.Int).Add(cfg.TotalBorrowed, amount)

		list, err := e.state.GetAssetList(caller)
		if err != nil {
			return err
		}
		list.Borrowed = addAsset(list.Borrowed, asset)
		if err := e.state.PutAssetList(caller, list); err != nil {
			return err
		}

		if err := e.state.PutBorrow(pos); err != nil {
			return err
		}
		return e.state.PutAsset(cfg)
	}()

	events := []types.Event{borrowEvent(caller, asset, amount, collateralAsset, collateralAmount)}
	if collateralAmount.Sign() > 0 {
		events = append(events, collateralDepositedEvent(caller, collateralAsset, collateralAmount))
	}
	return e.finalize(err, events)
}

// Repay pays down an open borrow, interest before principal. Settling the
// borrow in full returns the entire pledged collateral in the same call.
func (e *Engine) Repay(caller, asset string, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	caller, asset = strings.TrimSpace(caller), strings.TrimSpace(asset)
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}

	var repaid *big.Int
	var events []types.Event
	err := func() error {
		cfg, err := e.loadAsset(asset)
		if err != nil {
			return err
		}
		pos, found, err := e.state.GetBorrow(asset, caller)
		if err != nil {
			return err
		}
		if !found || pos.Settled() {
			return ErrNoDebt
		}
		pos.EnsureDefaults()
		now := e.now()
		e.accrueBorrowPosition(cfg, pos, now)

		repaid = minBig(amount, pos.Debt())
		if err := e.transfer(caller, e.moduleAddress, asset, repaid); err != nil {
			return err
		}

		applyRepayment(pos, repaid)
		cfg.TotalBorrowed = new(big.Int).Sub(cfg.TotalBorrowed, repaid)
		events = append(events, repayEvent(caller, asset, repaid))

		if pos.Settled() {
			if pos.CollateralAmount.Sign() > 0 {
				returned := new(big.Int).Set(pos.CollateralAmount)
				if err := e.transfer(e.collateralAddress, caller, pos.CollateralAsset, returned); err != nil {
					return err
				}
				pos.CollateralAmount = big.NewInt(0)
				events = append(events, collateralWithdrawnEvent(caller, pos.CollateralAsset, returned))
			}
			list, err := e.state.GetAssetList(caller)
			if err != nil {
				return err
			}
			list.Borrowed = removeAsset(list.Borrowed, asset)
			if err := e.state.PutAssetList(caller, list); err != nil {
				return err
			}
		}

		if err := e.state.PutBorrow(pos); err != nil {
			return err
		}
		return e.state.PutAsset(cfg)
	}()
	if err := e.finalize(err, events); err != nil {
		return nil, err
	}
	return repaid, nil
}

// Liquidate lets a third party repay at most half of an unhealthy borrow in
// exchange for a bonus-bearing share of the collateral. The repaid amount
// and seized collateral are returned.
func (e *Engine) Liquidate(liquidator, borrower, asset string, repayAmount *big.Int) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, ErrNilState
	}
	liquidator = strings.TrimSpace(liquidator)
	borrower = strings.TrimSpace(borrower)
	asset = strings.TrimSpace(asset)
	if repayAmount == nil || repayAmount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}

	var actualRepay, seized *big.Int
	var events []types.Event
	err := func() error {
		cfg, err := e.loadAsset(asset)
		if err != nil {
			return err
		}
		pos, found, err := e.state.GetBorrow(asset, borrower)
		if err != nil {
			return err
		}
		if !found || pos.Settled() {
			return ErrNoDebt
		}
		pos.EnsureDefaults()
		colCfg, err := e.loadAsset(pos.CollateralAsset)
		if err != nil {
			return err
		}

		now := e.now()
		e.accrueBorrowPosition(cfg, pos, now)

		healthy, err := e.borrowHealthy(pos, colCfg)
		if err != nil {
			return err
		}
		if healthy {
			return ErrPositionHealthy
		}

		debt := pos.Debt()
		// Partial liquidation: at most half the debt per call. Dust debt
		// that would round the cap to zero may be closed in full.
		maxRepay := new(big.Int).Quo(debt, big.NewInt(2))
		if maxRepay.Sign() == 0 {
			maxRepay = debt
		}
		actualRepay = minBig(repayAmount, maxRepay)

		if err := e.transfer(liquidator, e.moduleAddress, asset, actualRepay); err != nil {
			return err
		}
		applyRepayment(pos, actualRepay)
		cfg.TotalBorrowed = new(big.Int).Sub(cfg.TotalBorrowed, actualRepay)

		seized, err = e.collateralToSeize(asset, pos.CollateralAsset, actualRepay, colCfg.LiquidationBonusBps)
		if err != nil {
			return err
		}
		if seized.Cmp(pos.CollateralAmount) > 0 {
			seized = new(big.Int).Set(pos.CollateralAmount)
		}
		if seized.Sign() > 0 {
			if err := e.transfer(e.collateralAddress, liquidator, pos.CollateralAsset, seized); err != nil {
				return err
			}
			pos.CollateralAmount = new(big.Int).Sub(pos.CollateralAmount, seized)
		}
		events = append(events, liquidationEvent(liquidator, borrower, asset, actualRepay, pos.CollateralAsset, seized))

		if pos.Settled() {
			if pos.CollateralAmount.Sign() > 0 {
				returned := new(big.Int).Set(pos.CollateralAmount)
				if err := e.transfer(e.collateralAddress, borrower, pos.CollateralAsset, returned); err != nil {
					return err
				}
				pos.CollateralAmount = big.NewInt(0)
				events = append(events, collateralWithdrawnEvent(borrower, pos.CollateralAsset, returned))
			}
			list, err := e.state.GetAssetList(borrower)
			if err != nil {
				return err
			}
			list.Borrowed = removeAsset(list.Borrowed, asset)
			if err := e.state.PutAssetList(borrower, list); err != nil {
				return err
			}
		}

		if err := e.state.PutBorrow(pos); err != nil {
			return err
		}
		return e.state.PutAsset(cfg)
	}()
	if err := e.finalize(err, events); err != nil {
		return nil, nil, err
	}
	return actualRepay, seized, nil
}

// --- internal helpers ---

func (e *Engine) loadAsset(asset string) (*AssetConfig, error) {
	cfg, found, err := e.state.GetAsset(asset)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotActive, asset)
	}
	cfg.EnsureDefaults()
	return cfg, nil
}

func (e *Engine) loadActiveAsset(asset string) (*AssetConfig, error) {
	cfg, err := e.loadAsset(asset)
	if err != nil {
		return nil, err
	}
	if !cfg.Active {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotActive, asset)
	}
	return cfg, nil
}

func (e *Engine) loadSupply(asset, user string) (*SupplyPosition, error) {
	pos, found, err := e.state.GetSupply(asset, user)
	if err != nil {
		return nil, err
	}
	if !found {
		pos = &SupplyPosition{User: user, Asset: asset}
	}
	pos.EnsureDefaults()
	return pos, nil
}

func (e *Engine) borrowRate(asset string) uint64 {
	if e.oracle == nil {
		return 0
	}
	rate, _, _ := e.oracle.GetRate(asset)
	return rate
}

func (e *Engine) oracleFresh(asset string) bool {
	return e.oracle != nil && e.oracle.IsFresh(asset)
}

// accrueSupplyPosition folds supplier interest at the utilization-scaled
// supply rate. Supply interest is bookkeeping against future payout and does
// not move pool totals.
func (e *Engine) accrueSupplyPosition(cfg *AssetConfig, pos *SupplyPosition, now time.Time) {
	util := utilizationBps(cfg.TotalBorrowed, cfg.TotalSupplied)
	rate := supplyRateBps(e.borrowRate(cfg.Asset), util, cfg.ReserveFactorBps)
	accrueSupply(pos, rate, now)
}

// accrueBorrowPosition folds borrower interest at the oracle rate. Newly
// accrued interest grows both pool totals in lockstep, with the reserve
// factor share carved out as protocol revenue.
func (e *Engine) accrueBorrowPosition(cfg *AssetConfig, pos *BorrowPosition, now time.Time) {
	interest := accrueBorrow(pos, e.borrowRate(cfg.Asset), now)
	if interest.Sign() == 0 {
		return
	}
	cfg.TotalBorrowed = new(big.Int).Add(cfg.TotalBorrowed, interest)
	cfg.TotalSupplied = new(big.Int).Add(cfg.TotalSupplied, interest)
	if reserve := bpsOf(interest, cfg.ReserveFactorBps); reserve.Sign() > 0 {
		cfg.TotalReserves = new(big.Int).Add(cfg.TotalReserves, reserve)
	}
}

// applyRepayment reduces a borrow interest-first.
func applyRepayment(pos *BorrowPosition, amount *big.Int) {
	fromInterest := minBig(amount, pos.InterestAccrued)
	pos.InterestAccrued = new(big.Int).Sub(pos.InterestAccrued, fromInterest)
	pos.Principal = new(big.Int).Sub(pos.Principal, new(big.Int).Sub(amount, fromInterest))
}

// transfer moves balance between ledger accounts inside the staged overlay.
func (e *Engine) transfer(from, to, asset string, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	balance := fromAcc.BalanceOf(asset)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.SetBalance(asset, new(big.Int).Sub(balance, amount))
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	toAcc.SetBalance(asset, new(big.Int).Add(toAcc.BalanceOf(asset), amount))
	return e.state.PutAccount(to, toAcc)
}

func (e *Engine) value(asset string, amount *big.Int) (*big.Rat, error) {
	price, err := e.prices.Price(asset)
	if err != nil {
		return nil, err
	}
	value := new(big.Rat).SetInt(amount)
	return value.Mul(value, price), nil
}

func mulBps(value *big.Rat, bps uint64) *big.Rat {
	return new(big.Rat).Mul(value, new(big.Rat).SetFrac(new(big.Int).SetUint64(bps), basisPoints))
}

// borrowHealthy reports whether a single borrow still clears its collateral
// asset's liquidation threshold.
func (e *Engine) borrowHealthy(pos *BorrowPosition, colCfg *AssetConfig) (bool, error) {
	debt := pos.Debt()
	if debt.Sign() == 0 {
		return true, nil
	}
	collateralValue, err := e.value(pos.CollateralAsset, pos.CollateralAmount)
	if err != nil {
		return false, err
	}
	debtValue, err := e.value(pos.Asset, debt)
	if err != nil {
		return false, err
	}
	return mulBps(collateralValue, colCfg.LiquidationThresholdBps).Cmp(debtValue) >= 0, nil
}

// collateralToSeize converts the repaid debt into collateral units with the
// liquidation bonus applied, flooring the result.
func (e *Engine) collateralToSeize(debtAsset, collateralAsset string, repaid *big.Int, bonusBps uint64) (*big.Int, error) {
	debtValue, err := e.value(debtAsset, repaid)
	if err != nil {
		return nil, err
	}
	seizeValue := mulBps(debtValue, MaxBps+bonusBps)
	colPrice, err := e.prices.Price(collateralAsset)
	if err != nil {
		return nil, err
	}
	if colPrice.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive price for %s", ErrInvalidParameter, collateralAsset)
	}
	units := new(big.Rat).Quo(seizeValue, colPrice)
	return new(big.Int).Quo(units.Num(), units.Denom()), nil
}

// checkWithdrawHealth rejects a withdrawal that would leave the caller's
// open borrows uncovered. Users with no debt may always withdraw.
func (e *Engine) checkWithdrawHealth(user, asset string, cfg *AssetConfig, remaining *big.Int, now time.Time) error {
	list, err := e.state.GetAssetList(user)
	if err != nil {
		return err
	}
	if len(list.Borrowed) == 0 {
		return nil
	}
	totalDebt := new(big.Rat)
	for _, borrowedAsset := range list.Borrowed {
		pos, found, err := e.state.GetBorrow(borrowedAsset, user)
		if err != nil {
			return err
		}
		if !found || pos.Settled() {
			continue
		}
		principal, interest := projectBorrow(pos, e.borrowRate(borrowedAsset), now)
		debtValue, err := e.value(borrowedAsset, new(big.Int).Add(principal, interest))
		if err != nil {
			return err
		}
		totalDebt.Add(totalDebt, debtValue)
	}
	if totalDebt.Sign() == 0 {
		return nil
	}
	remainingValue, err := e.value(asset, remaining)
	if err != nil {
		return err
	}
	if mulBps(remainingValue, cfg.CollateralFactorBps).Cmp(totalDebt) < 0 {
		return ErrWouldUndercollateralize
	}
	return nil
}
