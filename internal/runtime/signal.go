// Package runtime models the cyclic control actions (reload/restart/exit)
// as signals returned up the call stack, per spec §4.6/§9: "Cyclic control
// actions... are modelled as signals returned up the stack, not as calls
// back into the dispatcher; the event-loop owner interprets them between
// action sequences."
package runtime

import "github.com/michd/mmpd/internal/domain"

// Signal is emitted by a Control action and carried back to the event-loop
// owner. The zero value, SignalNone, means no control action fired this
// cycle.
type Signal int

const (
	SignalNone Signal = iota
	SignalReloadMacros
	SignalRestart
	SignalExit
)

// FromControlSignal maps a domain.ControlSignal (the config-level action
// payload) to the loop-level Signal the owner reacts to.
func FromControlSignal(cs domain.ControlSignal) Signal {
	switch cs {
	case domain.SignalReload:
		return SignalReloadMacros
	case domain.SignalRestart:
		return SignalRestart
	case domain.SignalExit:
		return SignalExit
	default:
		return SignalNone
	}
}

func (s Signal) String() string {
	switch s {
	case SignalReloadMacros:
		return "reload_macros"
	case SignalRestart:
		return "restart"
	case SignalExit:
		return "exit"
	default:
		return "none"
	}
}
