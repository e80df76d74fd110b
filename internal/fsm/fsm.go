// Package fsm holds the state machines of sound instances and listening
// sessions.
package fsm

import "fmt"

type State string

type Event string

// Sound instance states.
const (
	StateIdle      State = "idle"
	StateResolving State = "resolving"
	StatePlaying   State = "playing"
	StateHeld      State = "held"
	StateFading    State = "fading"
	StateStopped   State = "stopped"
)

const (
	EventResolve Event = "resolve"
	EventStart   Event = "start"
	EventDrop    Event = "drop"
	EventHold    Event = "hold"
	EventRelease Event = "release"
	EventFade    Event = "fade"
	EventFinish  Event = "finish"
)

// Transition advances a sound instance. Stopped is terminal.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventResolve:
			return StateResolving, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateResolving:
		switch event {
		case EventStart:
			return StatePlaying, nil
		case EventDrop:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePlaying:
		switch event {
		case EventHold:
			return StateHeld, nil
		case EventFade:
			return StateFading, nil
		case EventFinish:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateHeld:
		switch event {
		case EventRelease:
			return StatePlaying, nil
		case EventFade:
			return StateFading, nil
		case EventFinish:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFading:
		switch event {
		case EventFinish:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopped:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Audible reports whether an instance in state s may still produce sound.
func Audible(s State) bool {
	return s == StatePlaying || s == StateHeld || s == StateFading
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
