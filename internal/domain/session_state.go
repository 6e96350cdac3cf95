package domain

import "fmt"

type SessionState string

const (
	SessionInitializing SessionState = "initializing"
	SessionReady        SessionState = "ready"
	SessionClosing      SessionState = "closing"
	SessionClosed       SessionState = "closed"
	SessionFailed       SessionState = "failed"
)

var sessionTransitions = map[SessionState][]SessionState{
	SessionInitializing: {SessionReady, SessionFailed},
	SessionReady:        {SessionClosing, SessionFailed},
	SessionClosing:      {SessionClosed, SessionFailed},
}

func (s SessionState) Terminal() bool {
	return s == SessionClosed || s == SessionFailed
}

func (s SessionState) CanTransition(to SessionState) bool {
	for _, next := range sessionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns to, or an error when the lifecycle does not allow it.
func (s SessionState) Transition(to SessionState) (SessionState, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("session cannot move from %s to %s", s, to)
	}
	return to, nil
}
