package domain

import "math/big"

var hundred = big.NewInt(100)

// ShareCost is the pre-sale price per share: goalAmount / totalShares, truncated.
func ShareCost(p Project) *big.Int {
	return perShare(orZero(p.GoalAmount), p.TotalShares)
}

// BuilderFeeAmount is the builder's cut of realized profit. Zero unless the sale
// amount exceeds the goal.
func BuilderFeeAmount(p Project) *big.Int {
	sale, goal := orZero(p.SaleAmount), orZero(p.GoalAmount)
	if sale.Cmp(goal) <= 0 {
		return new(big.Int)
	}
	fee := new(big.Int).Sub(sale, goal)
	fee.Mul(fee, new(big.Int).SetUint64(p.BuilderFee))
	return fee.Quo(fee, hundred)
}

// ShareValue is the redemption price per share. Before a sale it equals ShareCost;
// on a profitable sale the builder fee comes off the top; on a loss or break-even
// investors share the sale amount proportionally.
func ShareValue(p Project) *big.Int {
	sale := orZero(p.SaleAmount)
	if sale.Sign() == 0 {
		return ShareCost(p)
	}
	return perShare(new(big.Int).Sub(sale, BuilderFeeAmount(p)), p.TotalShares)
}

// PurchaseAmount is the native token value sent with buyShares for n shares.
func PurchaseAmount(p Project, n uint64) *big.Int {
	return new(big.Int).Mul(ShareCost(p), shares(n))
}

// InvestmentValue is what n shares are currently worth.
func InvestmentValue(p Project, n uint64) *big.Int {
	return new(big.Int).Mul(ShareValue(p), shares(n))
}

// InvestorProfitPercent is (shareValue - shareCost) * 100 / shareCost for a holding
// of n shares, truncated toward zero to a whole percent. The result does not depend
// on n except that holding no shares yields 0.
func InvestorProfitPercent(p Project, n uint64) float64 {
	cost := ShareCost(p)
	if n == 0 || cost.Sign() == 0 {
		return 0
	}
	pct := new(big.Int).Sub(ShareValue(p), cost)
	pct.Mul(pct, hundred)
	pct.Quo(pct, cost)
	f, _ := new(big.Float).SetInt(pct).Float64()
	return f
}

// perShare divides amount by total shares. A project without shares fails
// validation, so zero is returned rather than panicking on division.
func perShare(amount *big.Int, total uint64) *big.Int {
	if total == 0 {
		return new(big.Int)
	}
	return new(big.Int).Quo(amount, shares(total))
}

func shares(n uint64) *big.Int {
	return new(big.Int).SetUint64(n)
}
