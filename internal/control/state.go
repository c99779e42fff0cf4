package control

// State is what the transport button currently offers.
type State int

const (
	// StatePlay means nothing is active; pressing starts or resumes.
	StatePlay State = iota
	// StateStop means playback is active; pressing halts it.
	StateStop
	// StatePending means a press is still settling; further presses are
	// refused.
	StatePending
)

// String returns the button label for the state.
func (s State) String() string {
	switch s {
	case StatePlay:
		return "play"
	case StateStop:
		return "stop"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// machine is the button state machine.
type machine struct {
	current     State
	transitions map[State][]State
}

func newMachine() *machine {
	return &machine{
		current: StatePlay,
		transitions: map[State][]State{
			StatePlay:    {StatePending, StateStop},
			StateStop:    {StatePending, StatePlay},
			StatePending: {StatePlay, StateStop},
		},
	}
}

// transition moves to the given state if allowed. Re-entering the current
// state is a no-op that reports success.
func (m *machine) transition(to State) bool {
	if m.current == to {
		return true
	}
	valid := false
	for _, s := range m.transitions[m.current] {
		if s == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}
	m.current = to
	return true
}
