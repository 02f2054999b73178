package domain

// Transition is a (from, to) edge of the booking state machine.
type Transition struct {
	From BookingStatus
	To   BookingStatus
}

// TransitionRule describes one allowed edge and what it takes to use it.
type TransitionRule struct {
	Transition
	Trigger        string
	RequiresReason bool
	// AdminOverride marks edges that exist only as an administrative override.
	AdminOverride bool
}

// BookingTransitions is the complete state machine. Any edge not listed here
// is rejected.
var BookingTransitions = []TransitionRule{
	{Transition: Transition{BookingStatusPending, BookingStatusConfirmed}, Trigger: "confirm"},
	{Transition: Transition{BookingStatusPending, BookingStatusCancelled}, Trigger: "cancel"},
	{Transition: Transition{BookingStatusConfirmed, BookingStatusInProgress}, Trigger: "pickup"},
	{Transition: Transition{BookingStatusConfirmed, BookingStatusCancelled}, Trigger: "cancel"},
	{Transition: Transition{BookingStatusInProgress, BookingStatusCompleted}, Trigger: "return"},
	{Transition: Transition{BookingStatusInProgress, BookingStatusCancelled}, Trigger: "override", RequiresReason: true, AdminOverride: true},
}

// LookupTransition returns the rule for from -> to.
func LookupTransition(from, to BookingStatus) (TransitionRule, bool) {
	for _, r := range BookingTransitions {
		if r.From == from && r.To == to {
			return r, true
		}
	}
	return TransitionRule{}, false
}

// CheckTransition validates a status change against the state machine only;
// actor permissions are checked separately.
func CheckTransition(from, to BookingStatus) (TransitionRule, error) {
	if !to.Valid() {
		return TransitionRule{}, NewValidationError("unknown target status " + string(to))
	}
	if from.IsTerminal() {
		return TransitionRule{}, NewTerminalStateError(from)
	}
	rule, ok := LookupTransition(from, to)
	if !ok {
		return TransitionRule{}, NewInvalidTransitionError(from, to)
	}
	return rule, nil
}
