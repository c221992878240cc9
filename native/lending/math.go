package lending

import "math/big"

var basisPoints = big.NewInt(10_000)

// SecondsPerYear uses a flat 365-day year; leap seconds and leap days are a
// deliberate simplification so accrual stays bit-exact across runtimes.
const SecondsPerYear = 31_536_000

// MaxBps is the full-scale basis point value (100%).
const MaxBps = 10_000

func bpsOf(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() == 0 || bps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return share.Quo(share, basisPoints)
}

// linearInterest computes simple (non-compounding) interest:
//
//	principal * rateBps * elapsedSeconds / (10000 * SecondsPerYear)
//
// The whole product is formed before dividing so truncation happens once.
func linearInterest(principal *big.Int, rateBps uint64, elapsedSeconds uint64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || rateBps == 0 || elapsedSeconds == 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(principal, new(big.Int).SetUint64(rateBps))
	interest.Mul(interest, new(big.Int).SetUint64(elapsedSeconds))
	denominator := new(big.Int).Mul(basisPoints, big.NewInt(SecondsPerYear))
	return interest.Quo(interest, denominator)
}

// utilizationBps returns totalBorrowed/totalSupplied scaled to basis points,
// zero when the pool holds no liquidity.
func utilizationBps(totalBorrowed, totalSupplied *big.Int) uint64 {
	if totalBorrowed == nil || totalBorrowed.Sign() <= 0 {
		return 0
	}
	if totalSupplied == nil || totalSupplied.Sign() <= 0 {
		return 0
	}
	util := new(big.Int).Mul(totalBorrowed, basisPoints)
	util.Quo(util, totalSupplied)
	if !util.IsUint64() {
		return MaxBps
	}
	if v := util.Uint64(); v < MaxBps {
		return v
	}
	return MaxBps
}

// supplyRateBps derives the supplier-side rate from the oracle borrow rate:
// borrowRate * utilization * (1 - reserveFactor), all in basis points.
func supplyRateBps(borrowRateBps, utilBps, reserveFactorBps uint64) uint64 {
	if borrowRateBps == 0 || utilBps == 0 {
		return 0
	}
	keep := uint64(MaxBps)
	if reserveFactorBps < keep {
		keep -= reserveFactorBps
	} else {
		return 0
	}
	rate := new(big.Int).SetUint64(borrowRateBps)
	rate.Mul(rate, new(big.Int).SetUint64(utilBps))
	rate.Mul(rate, new(big.Int).SetUint64(keep))
	rate.Quo(rate, basisPoints)
	rate.Quo(rate, basisPoints)
	return rate.Uint64()
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
