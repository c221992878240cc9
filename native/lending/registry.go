package lending

import (
	"fmt"
	"math/big"
	"strings"

	"lendpool/core/types"
)

// Risk parameter ceilings enforced on configuration.
const (
	maxLiquidationBonusBps = 2_000
	maxReserveFactorBps    = 5_000
)

func (e *Engine) requireAdmin(caller string) error {
	if e.admin == "" || strings.TrimSpace(caller) != e.admin {
		return ErrUnauthorized
	}
	return nil
}

// ConfigureAsset creates or updates the risk parameters for an asset. Pool
// totals are running counters owned by the engine and survive
// reconfiguration. Admin only; permitted while paused so operators can fix a
// bad configuration.
func (e *Engine) ConfigureAsset(caller, asset string, collateralFactorBps, liquidationThresholdBps, liquidationBonusBps, reserveFactorBps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return fmt.Errorf("%w: asset identifier required", ErrInvalidParameter)
	}
	if liquidationThresholdBps > MaxBps {
		return fmt.Errorf("%w: liquidation threshold %d exceeds 100%%", ErrInvalidParameter, liquidationThresholdBps)
	}
	if collateralFactorBps > liquidationThresholdBps {
		return fmt.Errorf("%w: collateral factor %d above liquidation threshold %d", ErrInvalidParameter, collateralFactorBps, liquidationThresholdBps)
	}
	if liquidationBonusBps > maxLiquidationBonusBps {
		return fmt.Errorf("%w: liquidation bonus %d exceeds cap %d", ErrInvalidParameter, liquidationBonusBps, maxLiquidationBonusBps)
	}
	if reserveFactorBps > maxReserveFactorBps {
		return fmt.Errorf("%w: reserve factor %d exceeds cap %d", ErrInvalidParameter, reserveFactorBps, maxReserveFactorBps)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var configured *AssetConfig
	err := func() error {
		cfg, found, err := e.state.GetAsset(asset)
		if err != nil {
			return err
		}
		if !found {
			cfg = &AssetConfig{Asset: asset}
		}
		cfg.EnsureDefaults()
		cfg.Active = true
		cfg.CollateralFactorBps = collateralFactorBps
		cfg.LiquidationThresholdBps = liquidationThresholdBps
		cfg.LiquidationBonusBps = liquidationBonusBps
		cfg.ReserveFactorBps = reserveFactorBps
		configured = cfg
		return e.state.PutAsset(cfg)
	}()
	if err != nil {
		return e.finalize(err, nil)
	}
	return e.finalize(nil, []types.Event{assetConfiguredEvent(e.admin, configured)})
}

// SetAssetActive toggles an asset without touching its risk parameters or
// totals. Deactivated assets refuse new supply and borrows; withdrawals,
// repayments and liquidations keep working so funds are never trapped.
func (e *Engine) SetAssetActive(caller, asset string, active bool) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := func() error {
		cfg, err := e.loadAsset(strings.TrimSpace(asset))
		if err != nil {
			return err
		}
		cfg.Active = active
		return e.state.PutAsset(cfg)
	}()
	return e.finalize(err, nil)
}

// Pause halts every mutating pool operation.
func (e *Engine) Pause(caller string) error {
	return e.setPaused(caller, true)
}

// Unpause resumes mutating pool operations.
func (e *Engine) Unpause(caller string) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller string, paused bool) error {
	if e == nil {
		return ErrNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if e.pauses == nil {
		return fmt.Errorf("%w: pause switchboard not wired", ErrNilState)
	}
	e.pauses.Set(moduleName, paused)
	if e.emit != nil {
		e.emit(pauseChangedEvent(e.admin, paused))
	}
	return nil
}

// FundAccount credits a ledger account, standing in for the external token
// custody system bridging value into the pool. Admin only.
func (e *Engine) FundAccount(caller, addr, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	addr, asset = strings.TrimSpace(addr), strings.TrimSpace(asset)
	if addr == "" || asset == "" {
		return fmt.Errorf("%w: address and asset required", ErrInvalidParameter)
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := func() error {
		acc, err := e.state.GetAccount(addr)
		if err != nil {
			return err
		}
		acc.SetBalance(asset, new(big.Int).Add(acc.BalanceOf(asset), amount))
		return e.state.PutAccount(addr, acc)
	}()
	return e.finalize(err, nil)
}
