package domain

// Action represents the type of lending action to be performed or simulated.
type Action int

const (
	// ActionSupply deposits collateral.
	ActionSupply Action = iota
	// ActionWithdraw removes collateral.
	ActionWithdraw
	// ActionBorrow draws debt against collateral.
	ActionBorrow
	// ActionRepay pays down debt.
	ActionRepay
)

// action string constants to avoid magic strings
const (
	actionStringSupply   = "supply"
	actionStringWithdraw = "withdraw"
	actionStringBorrow   = "borrow"
	actionStringRepay    = "repay"
)

// String returns the string representation.
func (a Action) String() string {
	switch a {
	case ActionSupply:
		return actionStringSupply
	case ActionWithdraw:
		return actionStringWithdraw
	case ActionBorrow:
		return actionStringBorrow
	case ActionRepay:
		return actionStringRepay
	}
	return "unknown"
}

// ParseAction maps an action name back to its Action value.
func ParseAction(s string) (Action, bool) {
	switch s {
	case actionStringSupply:
		return ActionSupply, true
	case actionStringWithdraw:
		return ActionWithdraw, true
	case actionStringBorrow:
		return ActionBorrow, true
	case actionStringRepay:
		return ActionRepay, true
	}
	return 0, false
}

// IsValid checks if the Action value is valid.
func (a Action) IsValid() bool {
	switch a {
	case ActionSupply, ActionWithdraw, ActionBorrow, ActionRepay:
		return true
	}
	return false
}

// TouchesDebt reports whether the action changes the debt side of the
// account rather than the collateral side.
func (a Action) TouchesDebt() bool {
	return a == ActionBorrow || a == ActionRepay
}
