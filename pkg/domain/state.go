package domain

// State is the outcome of a node run.
type State int

const (
	StateNotRun State = iota
	StateCancel
	StateComplete
	StateTimeout
	StateMaxInputsReached
)

var stateNames = map[State]string{
	StateNotRun:           "not_run",
	StateCancel:           "cancel",
	StateComplete:         "complete",
	StateTimeout:          "timeout",
	StateMaxInputsReached: "max_inputs_reached",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseState resolves the snake-case name of a state (as used in flow files).
// "max_attempts" is accepted as an alias of "max_inputs_reached".
func ParseState(name string) (State, bool) {
	if name == "max_attempts" {
		return StateMaxInputsReached, true
	}
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return StateNotRun, false
}

// IsTerminal reports whether the state ends a node attempt.
func (s State) IsTerminal() bool {
	return s != StateNotRun
}
