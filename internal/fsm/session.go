package fsm

// Listening session states.
const (
	SessionIdle      State = "idle"
	SessionListening State = "listening"
	SessionStopping  State = "stopping"
	SessionError     State = "error"
)

const (
	SessionEventListen Event = "listen"
	SessionEventStop   Event = "stop"
	SessionEventDone   Event = "done"
	SessionEventFail   Event = "fail"
	SessionEventReset  Event = "reset"
)

// SessionTransition advances a listening session. Fail is accepted from
// every state.
func SessionTransition(current State, event Event) (State, error) {
	if event == SessionEventFail {
		return SessionError, nil
	}

	switch current {
	case SessionIdle:
		if event == SessionEventListen {
			return SessionListening, nil
		}
	case SessionListening:
		switch event {
		case SessionEventStop:
			return SessionStopping, nil
		case SessionEventDone:
			return SessionIdle, nil
		}
	case SessionStopping:
		if event == SessionEventDone {
			return SessionIdle, nil
		}
	case SessionError:
		if event == SessionEventReset {
			return SessionIdle, nil
		}
	default:
		return current, invalidTransition(current, event)
	}
	return current, invalidTransition(current, event)
}
