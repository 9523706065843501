package domain

import "math/big"

// Investment pairs a project with the share balance an address holds in it.
// It is recomputed from the share ledger on every read.
type Investment struct {
	Project Project
	Shares  uint64
}

func (i Investment) Value() *big.Int {
	return InvestmentValue(i.Project, i.Shares)
}

func (i Investment) ProfitPercent() float64 {
	return InvestorProfitPercent(i.Project, i.Shares)
}
