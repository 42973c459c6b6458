package socket

// ShutdownState is the socket's half/full-close progression, per
// spec.md §4.9's state machine: Open -> SendShut -> SendReceiveShut ->
// Detaching -> Closed, or Open -> ReceiveShut -> SendReceiveShut ->
// Detaching -> Closed.
type ShutdownState int

const (
	StateOpen ShutdownState = iota
	StateSendShut
	StateReceiveShut
	StateSendReceiveShut
	StateDetaching
	StateClosed
)

// ShutdownDirection selects which half of the socket shutdown targets.
type ShutdownDirection int

const (
	ShutdownSend ShutdownDirection = iota
	ShutdownReceive
	ShutdownBoth
)

// ShutdownMode controls whether a pending send queue drains before
// the shutdown completes.
type ShutdownMode int

const (
	ShutdownGraceful ShutdownMode = iota
	ShutdownImmediate
)

// DetachState is the reactor-attachment half of close orchestration,
// per spec.md §4.9: Attached -> DetachRequested -> Detached. While
// DetachRequested, in-flight reactor events for this fd are dropped
// rather than delivered.
type DetachState int

const (
	Attached DetachState = iota
	DetachRequested
	Detached
)

// advanceShutdown applies one shutdown(dir) call to the current state
// and returns the resulting state.
func advanceShutdown(current ShutdownState, dir ShutdownDirection) ShutdownState {
	switch current {
	case StateOpen:
		switch dir {
		case ShutdownSend:
			return StateSendShut
		case ShutdownReceive:
			return StateReceiveShut
		default:
			return StateSendReceiveShut
		}
	case StateSendShut:
		if dir == ShutdownReceive || dir == ShutdownBoth {
			return StateSendReceiveShut
		}
		return StateSendShut
	case StateReceiveShut:
		if dir == ShutdownSend || dir == ShutdownBoth {
			return StateSendReceiveShut
		}
		return StateReceiveShut
	default:
		return current
	}
}
