package lending

import (
	"math/big"

	"lendpool/core/types"
)

const (
	// EventTypeSupply is emitted when a supplier deposits liquidity.
	EventTypeSupply = "lending.supply"
	// EventTypeWithdraw is emitted when a supplier redeems liquidity.
	EventTypeWithdraw = "lending.withdraw"
	// EventTypeBorrow is emitted when a borrow is opened or topped up.
	EventTypeBorrow = "lending.borrow"
	// EventTypeRepay is emitted when outstanding debt is repaid.
	EventTypeRepay = "lending.repay"
	// EventTypeLiquidation is emitted when a liquidator closes part of an
	// unhealthy position.
	EventTypeLiquidation = "lending.liquidation"
	// EventTypeCollateralDeposited is emitted when collateral is locked.
	EventTypeCollateralDeposited = "lending.collateral.deposited"
	// EventTypeCollateralWithdrawn is emitted when collateral is released.
	EventTypeCollateralWithdrawn = "lending.collateral.withdrawn"
	// EventTypeAssetConfigured is emitted on admin asset configuration.
	EventTypeAssetConfigured = "lending.asset.configured"
	// EventTypePauseChanged is emitted when the pool is paused or resumed.
	EventTypePauseChanged = "lending.pause.changed"
)

func amountAttr(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func supplyEvent(user, asset string, amount *big.Int) types.Event {
	return types.Event{
		Type: EventTypeSupply,
		Attributes: map[string]string{
			"user":   user,
			"asset":  asset,
			"amount": amountAttr(amount),
		},
	}
}

func withdrawEvent(user, asset string, amount, interestPaid *big.Int) types.Event {
	return types.Event{
		Type: EventTypeWithdraw,
		Attributes: map[string]string{
			"user":         user,
			"asset":        asset,
			"amount":       amountAttr(amount),
			"interestPaid": amountAttr(interestPaid),
		},
	}
}

func borrowEvent(user, asset string, amount *big.Int, collateralAsset string, collateralAmount *big.Int) types.Event {
	return types.Event{
		Type: EventTypeBorrow,
		Attributes: map[string]string{
			"user":             user,
			"asset":            asset,
			"amount":           amountAttr(amount),
			"collateralAsset":  collateralAsset,
			"collateralAmount": amountAttr(collateralAmount),
		},
	}
}

func repayEvent(user, asset string, amount *big.Int) types.Event {
	return types.Event{
		Type: EventTypeRepay,
		Attributes: map[string]string{
			"user":   user,
			"asset":  asset,
			"amount": amountAttr(amount),
		},
	}
}

func liquidationEvent(liquidator, borrower, asset string, repaid *big.Int, collateralAsset string, seized *big.Int) types.Event {
	return types.Event{
		Type: EventTypeLiquidation,
		Attributes: map[string]string{
			"liquidator":      liquidator,
			"borrower":        borrower,
			"asset":           asset,
			"repaid":          amountAttr(repaid),
			"collateralAsset": collateralAsset,
			"seized":          amountAttr(seized),
		},
	}
}

func collateralDepositedEvent(user, asset string, amount *big.Int) types.Event {
	return types.Event{
		Type: EventTypeCollateralDeposited,
		Attributes: map[string]string{
			"user":   user,
			"asset":  asset,
			"amount": amountAttr(amount),
		},
	}
}

func collateralWithdrawnEvent(user, asset string, amount *big.Int) types.Event {
	return types.Event{
		Type: EventTypeCollateralWithdrawn,
		Attributes: map[string]string{
			"user":   user,
			"asset":  asset,
			"amount": amountAttr(amount),
		},
	}
}

func assetConfiguredEvent(admin string, cfg *AssetConfig) types.Event {
	return types.Event{
		Type: EventTypeAssetConfigured,
		Attributes: map[string]string{
			"admin":                   admin,
			"asset":                   cfg.Asset,
			"collateralFactorBps":     uintAttr(cfg.CollateralFactorBps),
			"liquidationThresholdBps": uintAttr(cfg.LiquidationThresholdBps),
			"liquidationBonusBps":     uintAttr(cfg.LiquidationBonusBps),
			"reserveFactorBps":        uintAttr(cfg.ReserveFactorBps),
		},
	}
}

func pauseChangedEvent(admin string, paused bool) types.Event {
	state := "active"
	if paused {
		state = "paused"
	}
	return types.Event{
		Type: EventTypePauseChanged,
		Attributes: map[string]string{
			"admin": admin,
			"state": state,
		},
	}
}

func uintAttr(v uint64) string {
	return new(big.Int).SetUint64(v).String()
}
