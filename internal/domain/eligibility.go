package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Eligibility answers whether each write action is currently permitted for a caller.
// These are advisory: the manager contract re-validates every condition on execution.
type Eligibility struct {
	CanBuy              bool `json:"can_buy"`
	CanStartBuilding    bool `json:"can_start_building"`
	CanCompleteBuilding bool `json:"can_complete_building"`
	CanRedeemFee        bool `json:"can_redeem_fee"`
	CanRedeemShares     bool `json:"can_redeem_shares"`
}

// CanBuy is true only while fundraising is open.
func CanBuy(p Project, now time.Time) bool {
	return DeriveLifecycleState(p, now) == StateFundraising
}

func CanStartBuilding(p Project, caller common.Address, now time.Time) bool {
	return p.IsBuilder(caller) && DeriveLifecycleState(p, now) == StatePreparing
}

func CanCompleteBuilding(p Project, caller common.Address, now time.Time) bool {
	return p.IsBuilder(caller) && DeriveLifecycleState(p, now) == StateStarted
}

func CanRedeemFee(p Project, caller common.Address, now time.Time) bool {
	return p.IsBuilder(caller) && DeriveLifecycleState(p, now) == StateCompleted
}

// CanRedeemShares is open to any holder once the project is completed.
func CanRedeemShares(p Project, sharesHeld uint64, now time.Time) bool {
	return sharesHeld > 0 && DeriveLifecycleState(p, now) == StateCompleted
}

// EvaluateEligibility computes all five checks at once.
func EvaluateEligibility(p Project, caller common.Address, sharesHeld uint64, now time.Time) Eligibility {
	return Eligibility{
		CanBuy:              CanBuy(p, now),
		CanStartBuilding:    CanStartBuilding(p, caller, now),
		CanCompleteBuilding: CanCompleteBuilding(p, caller, now),
		CanRedeemFee:        CanRedeemFee(p, caller, now),
		CanRedeemShares:     CanRedeemShares(p, sharesHeld, now),
	}
}
