package circuitbreaker

// State of the upstream circuit.
type State int

const (
	// StateClosed admits every call.
	StateClosed State = iota

	// StateOpen rejects calls with ErrCircuitOpen until the cooldown passes.
	StateOpen

	// StateHalfOpen admits probe calls; one failure reopens the circuit.
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state by name in JSON and log output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
