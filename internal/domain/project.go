package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Project is an immutable snapshot of a HouseformManager project read from chain.
// Amounts are in the smallest token unit (18 decimals); timestamps are unix seconds,
// 0 meaning the lifecycle step has not happened yet.
type Project struct {
	ProjectID              uint64
	Builder                common.Address
	CurrentAmount          *big.Int
	GoalAmount             *big.Int
	SaleAmount             *big.Int
	ExpectedProfit         uint64
	BuilderFee             uint64
	CurrentShares          uint64
	TotalShares            uint64
	FundraisingDeadline    int64
	FundraisingCompletedOn int64
	BuildingStartedOn      int64
	BuildingCompletedOn    int64
}

// NewProject validates a snapshot against the invariants the manager contract
// guarantees and returns a copy with nil amounts normalized to zero.
func NewProject(p Project) (Project, error) {
	p.CurrentAmount = orZero(p.CurrentAmount)
	p.GoalAmount = orZero(p.GoalAmount)
	p.SaleAmount = orZero(p.SaleAmount)
	if err := p.Validate(); err != nil {
		return Project{}, err
	}
	return p, nil
}

// Validate reports the first broken invariant, wrapped in ErrInvalidProject.
func (p Project) Validate() error {
	switch {
	case p.TotalShares == 0:
		return invalid(p.ProjectID, "total shares must be positive")
	case p.GoalAmount == nil || p.GoalAmount.Sign() <= 0:
		return invalid(p.ProjectID, "goal amount must be positive")
	case p.CurrentAmount != nil && p.CurrentAmount.Sign() < 0,
		p.SaleAmount != nil && p.SaleAmount.Sign() < 0:
		return invalid(p.ProjectID, "amounts must not be negative")
	case p.FundraisingDeadline <= 0:
		return invalid(p.ProjectID, "fundraising deadline must be set")
	case p.CurrentShares > p.TotalShares:
		return invalid(p.ProjectID, "current shares exceed total shares")
	case p.ExpectedProfit > 100 || p.BuilderFee > 100:
		return invalid(p.ProjectID, "percentages must be between 0 and 100")
	case p.FundraisingCompletedOn < 0 || p.BuildingStartedOn < 0 || p.BuildingCompletedOn < 0:
		return invalid(p.ProjectID, "timestamps must not be negative")
	case p.BuildingStartedOn != 0 && p.FundraisingCompletedOn == 0:
		return invalid(p.ProjectID, "building started before fundraising completed")
	case p.BuildingCompletedOn != 0 && p.BuildingStartedOn == 0:
		return invalid(p.ProjectID, "building completed before it started")
	case p.SaleAmount != nil && p.SaleAmount.Sign() > 0 && p.BuildingCompletedOn == 0:
		return invalid(p.ProjectID, "sale amount set before building completed")
	}
	return nil
}

// RemainingShares is the number of shares still available to buy.
func (p Project) RemainingShares() uint64 {
	if p.CurrentShares >= p.TotalShares {
		return 0
	}
	return p.TotalShares - p.CurrentShares
}

// FundingProgressPercent is currentShares/totalShares as a percentage.
func (p Project) FundingProgressPercent() float64 {
	if p.TotalShares == 0 {
		return 0
	}
	return float64(p.CurrentShares) / float64(p.TotalShares) * 100
}

// IsBuilder reports whether addr created the project.
func (p Project) IsBuilder(addr common.Address) bool {
	return addr != (common.Address{}) && addr == p.Builder
}

func invalid(id uint64, reason string) error {
	return fmt.Errorf("%w: project %d: %s", ErrInvalidProject, id, reason)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
