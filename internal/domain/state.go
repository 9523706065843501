package domain

import "time"

// LifecycleState is derived from the four lifecycle timestamps of a Project.
type LifecycleState string

const (
	StateFundraising LifecycleState = "fundraising"
	StateExpired     LifecycleState = "expired"
	StatePreparing   LifecycleState = "preparing"
	StateStarted     LifecycleState = "started"
	StateCompleted   LifecycleState = "completed"
)

// StateDisplay is the label and color tag shown for a state.
type StateDisplay struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var stateDisplays = map[LifecycleState]StateDisplay{
	StateFundraising: {Label: "Fundraising", Color: "blue"},
	StateExpired:     {Label: "Expired", Color: "red"},
	StatePreparing:   {Label: "Preparing", Color: "pink"},
	StateStarted:     {Label: "Started", Color: "purple"},
	StateCompleted:   {Label: "Completed", Color: "green"},
}

// DeriveLifecycleState inspects the lifecycle timestamps in fill order.
// The deadline only matters while fundraising has not completed.
func DeriveLifecycleState(p Project, now time.Time) LifecycleState {
	if p.FundraisingCompletedOn == 0 {
		if now.Unix() < p.FundraisingDeadline {
			return StateFundraising
		}
		return StateExpired
	}
	if p.BuildingStartedOn == 0 {
		return StatePreparing
	}
	if p.BuildingCompletedOn == 0 {
		return StateStarted
	}
	return StateCompleted
}

// Display returns the static label/color pair for s.
func (s LifecycleState) Display() StateDisplay {
	return stateDisplays[s]
}

// Valid reports whether s is one of the five lifecycle states.
func (s LifecycleState) Valid() bool {
	_, ok := stateDisplays[s]
	return ok
}
