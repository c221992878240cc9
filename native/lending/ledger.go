package lending

import (
	"math/big"
	"time"
)

// The account ledger applies the same lazy accrual discipline to both sides
// of the book: interest is computed and folded into the stored position only
// when the position is touched, using the elapsed wall-clock seconds since
// the last touch. Reads that want "current" balances without mutating state
// use the project* variants below.

func elapsedSeconds(last, now time.Time) uint64 {
	if last.IsZero() || !now.After(last) {
		return 0
	}
	return uint64(now.Unix() - last.Unix())
}

// accrueSupply folds pending supplier interest into the position and returns
// the newly accrued amount. Positions that were never touched, or that hold
// no principal, only bootstrap their clock; interest is never back-dated.
func accrueSupply(pos *SupplyPosition, rateBps uint64, now time.Time) *big.Int {
	if pos == nil {
		return big.NewInt(0)
	}
	pos.EnsureDefaults()
	if pos.LastUpdateTime.IsZero() || pos.Amount.Sign() == 0 {
		pos.LastUpdateTime = now
		return big.NewInt(0)
	}
	interest := linearInterest(pos.Amount, rateBps, elapsedSeconds(pos.LastUpdateTime, now))
	if interest.Sign() > 0 {
		pos.InterestEarned = new(big.Int).Add(pos.InterestEarned, interest)
	}
	pos.LastUpdateTime = now
	return interest
}

// accrueBorrow folds pending borrower interest into the position and returns
// the newly accrued amount. The caller routes the reserve-factor share of the
// returned interest into pool reserves.
func accrueBorrow(pos *BorrowPosition, rateBps uint64, now time.Time) *big.Int {
	if pos == nil {
		return big.NewInt(0)
	}
	pos.EnsureDefaults()
	if pos.LastUpdateTime.IsZero() || pos.Principal.Sign() == 0 {
		pos.LastUpdateTime = now
		return big.NewInt(0)
	}
	interest := linearInterest(pos.Principal, rateBps, elapsedSeconds(pos.LastUpdateTime, now))
	if interest.Sign() > 0 {
		pos.InterestAccrued = new(big.Int).Add(pos.InterestAccrued, interest)
	}
	pos.LastUpdateTime = now
	return interest
}

// projectSupply returns the current principal and interest the position would
// hold if accrual ran now, without committing anything.
func projectSupply(pos *SupplyPosition, rateBps uint64, now time.Time) (*big.Int, *big.Int) {
	if pos == nil {
		return big.NewInt(0), big.NewInt(0)
	}
	pos.EnsureDefaults()
	amount := new(big.Int).Set(pos.Amount)
	interest := new(big.Int).Set(pos.InterestEarned)
	if !pos.LastUpdateTime.IsZero() && pos.Amount.Sign() > 0 {
		interest.Add(interest, linearInterest(pos.Amount, rateBps, elapsedSeconds(pos.LastUpdateTime, now)))
	}
	return amount, interest
}

// projectBorrow returns the current principal and interest of a borrow as if
// accrual ran now, without committing anything.
func projectBorrow(pos *BorrowPosition, rateBps uint64, now time.Time) (*big.Int, *big.Int) {
	if pos == nil {
		return big.NewInt(0), big.NewInt(0)
	}
	pos.EnsureDefaults()
	principal := new(big.Int).Set(pos.Principal)
	interest := new(big.Int).Set(pos.InterestAccrued)
	if !pos.LastUpdateTime.IsZero() && pos.Principal.Sign() > 0 {
		interest.Add(interest, linearInterest(pos.Principal, rateBps, elapsedSeconds(pos.LastUpdateTime, now)))
	}
	return principal, interest
}
