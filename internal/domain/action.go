package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Action names a write call on the manager or share contract.
type Action string

const (
	ActionCreateProject     Action = "createProject"
	ActionBuyShares         Action = "buyShares"
	ActionStartBuilding     Action = "startBuilding"
	ActionCompleteBuilding  Action = "completeBuilding"
	ActionRedeemFee         Action = "redeemFee"
	ActionRedeemShares      Action = "redeemShares"
	ActionSetApprovalForAll Action = "setApprovalForAll"
)

var actions = map[Action]bool{
	ActionCreateProject:     true,
	ActionBuyShares:         true,
	ActionStartBuilding:     true,
	ActionCompleteBuilding:  true,
	ActionRedeemFee:         true,
	ActionRedeemShares:      true,
	ActionSetApprovalForAll: true,
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !actions[a] {
		return "", ErrUnknownAction
	}
	return a, nil
}

// TargetsProject reports whether the action operates on an existing project.
func (a Action) TargetsProject() bool {
	return a != ActionCreateProject && a != ActionSetApprovalForAll
}

// Permitted applies the lifecycle gate for a project-scoped action.
// createProject and setApprovalForAll are not gated by any project.
func Permitted(a Action, p Project, caller common.Address, sharesHeld uint64, now time.Time) bool {
	switch a {
	case ActionBuyShares:
		return CanBuy(p, now)
	case ActionStartBuilding:
		return CanStartBuilding(p, caller, now)
	case ActionCompleteBuilding:
		return CanCompleteBuilding(p, caller, now)
	case ActionRedeemFee:
		return CanRedeemFee(p, caller, now)
	case ActionRedeemShares:
		return CanRedeemShares(p, sharesHeld, now)
	case ActionCreateProject, ActionSetApprovalForAll:
		return true
	}
	return false
}
