package eventstream

// Status is reported to observers registered with OnStatusChange.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusError      Status = "error"
	StatusClosed     Status = "closed"
)

// State is the connection state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateErroring
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateErroring:
		return "erroring"
	default:
		return "unknown"
	}
}

// status maps a state to the value observers see.
func (s State) status() Status {
	switch s {
	case StateConnecting:
		return StatusConnecting
	case StateOpen:
		return StatusOpen
	case StateErroring:
		return StatusError
	default:
		return StatusClosed
	}
}

// Rebuild reasons. Each one names a transition that replaces the transport.
const (
	reasonConnect            = "connect"
	reasonSubscriptionChange = "subscription-change"
	reasonRetry              = "retry"
)
