package delivery

// ConnState is the live connection state, owned exclusively by the LiveFeed
// run loop.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StatePolling
	StateExhausted
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StatePolling:
		return "polling"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// validTransitions encodes the state machine. Exhausted is terminal for
// automatic transitions; only a manual Connect leaves it.
var validTransitions = map[ConnState][]ConnState{
	StateDisconnected: {StateConnecting, StatePolling},
	StateConnecting:   {StateConnected, StateReconnecting, StateDisconnected, StateExhausted},
	StateConnected:    {StateReconnecting, StateDisconnected},
	StateReconnecting: {StateConnecting, StateDisconnected, StateExhausted},
	StatePolling:      {StateDisconnected},
	StateExhausted:    {StateConnecting, StateDisconnected},
}

func canTransition(from, to ConnState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
