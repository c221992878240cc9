package lending

import "errors"

var (
	ErrNilState                = errors.New("lending engine: state not configured")
	ErrUnauthorized            = errors.New("lending engine: caller not authorized")
	ErrInvalidAmount           = errors.New("lending engine: amount must be positive")
	ErrInvalidParameter        = errors.New("lending engine: parameter out of bounds")
	ErrAssetNotActive          = errors.New("lending engine: asset not configured or inactive")
	ErrInsufficientBalance     = errors.New("lending engine: insufficient balance")
	ErrInsufficientLiquidity   = errors.New("lending engine: insufficient liquidity")
	ErrInsufficientCollateral  = errors.New("lending engine: collateral ratio below minimum")
	ErrWouldUndercollateralize = errors.New("lending engine: withdrawal would break borrower health")
	ErrPositionHealthy         = errors.New("lending engine: position not eligible for liquidation")
	ErrNoDebt                  = errors.New("lending engine: no outstanding debt")
	ErrStaleRate               = errors.New("lending engine: oracle rate older than freshness threshold")
	ErrCollateralMismatch      = errors.New("lending engine: open borrow uses a different collateral asset")
)
