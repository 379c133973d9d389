package domain

import "github.com/michd/mmpd/internal/match"

// EventMatcherKind tags the (currently singleton) EventMatcher variant set.
type EventMatcherKind int

const (
	EventMatcherMidi EventMatcherKind = iota
)

// EventMatcher is a predicate on a parsed Message. Only Midi exists today
// (spec §3.3); Kind is kept so a future variant doesn't require reshaping
// every caller.
type EventMatcher struct {
	Kind        EventMatcherKind
	MessageType MessageType

	Channel  match.ValueMatch
	Key      match.ValueMatch
	Velocity match.ValueMatch
	Control  match.ValueMatch
	Value    match.ValueMatch
	Program  match.ValueMatch

	// Preconditions that only apply if this specific event matched (spec
	// §4.5.b: "Preconditions at the event level only apply if that
	// specific event matched").
	Preconditions []Precondition
}

// Matches reports whether msg satisfies this matcher: same MessageType and
// every field this matcher specifies matches the corresponding message
// field.
func (e EventMatcher) Matches(msg Message) bool {
	if msg.Type != e.MessageType {
		return false
	}
	if !e.Channel.Matches(uint32(msg.Channel)) {
		return false
	}
	switch e.MessageType {
	case NoteOn, NoteOff:
		return e.Key.Matches(uint32(msg.Key)) && e.Velocity.Matches(uint32(msg.Velocity))
	case PolyAftertouch:
		return e.Key.Matches(uint32(msg.Key)) && e.Value.Matches(uint32(msg.Value))
	case ControlChange:
		return e.Control.Matches(uint32(msg.Control)) && e.Value.Matches(uint32(msg.Value))
	case ProgramChange:
		return e.Program.Matches(uint32(msg.Program))
	case ChannelAftertouch:
		return e.Value.Matches(uint32(msg.Pressure))
	case PitchBendChange:
		return e.Value.Matches(uint32(msg.PitchBend))
	default:
		return false
	}
}

// ConditionKind tags a Precondition variant.
type ConditionKind string

const (
	ConditionNoteOn     ConditionKind = "note_on"
	ConditionControl    ConditionKind = "control"
	ConditionProgram    ConditionKind = "program"
	ConditionPitchBend  ConditionKind = "pitch_bend"
)

// StateQuery is the read-only view into derived MIDI state a Precondition
// needs; miditracker.Tracker implements it. Kept as an interface so domain
// has no dependency on miditracker.
type StateQuery interface {
	IsNoteOn(channel, key uint8) bool
	Control(channel, control uint8) (uint8, bool)
	Program(channel uint8) (uint8, bool)
	PitchBend(channel uint8) (uint16, bool)
}

// Precondition is a predicate over derived MIDI state, per spec §3.4.
type Precondition struct {
	Kind    ConditionKind
	Invert  bool
	Channel uint8 // exact, all kinds

	// note_on
	Key uint8 // exact

	// control
	Control      uint8 // exact
	ControlValue match.ValueMatch

	// program
	ProgramValue match.ValueMatch

	// pitch_bend
	PitchValue match.ValueMatch
}

// Satisfied evaluates the precondition against tracked state, applying
// Invert last -- but only when state was actually recorded. Absence of
// recorded state always evaluates to "not satisfied" and short-circuits
// before Invert is applied (spec §3.4: "absence beats inversion").
func (p Precondition) Satisfied(state StateQuery) bool {
	var known, matched bool
	switch p.Kind {
	case ConditionNoteOn:
		// note_on tracks presence only: there is no persisted "explicitly
		// off" state distinct from "never recorded", so the key being held
		// is the only known/matched state -- not held is absence, and
		// absence beats inversion same as the other condition kinds.
		held := state.IsNoteOn(p.Channel, p.Key)
		known = held
		matched = held
	case ConditionControl:
		v, ok := state.Control(p.Channel, p.Control)
		known = ok
		matched = ok && p.ControlValue.Matches(uint32(v))
	case ConditionProgram:
		v, ok := state.Program(p.Channel)
		known = ok
		matched = ok && p.ProgramValue.Matches(uint32(v))
	case ConditionPitchBend:
		v, ok := state.PitchBend(p.Channel)
		known = ok
		matched = ok && p.PitchValue.Matches(uint32(v))
	}
	if !known {
		return false
	}
	if p.Invert {
		return !matched
	}
	return matched
}

// WindowDescriptor is the focused-window snapshot the window-probe adapter
// returns, per spec §3.5.
type WindowDescriptor struct {
	WindowClass    string
	WindowName     string
	ExecutablePath string // empty if unknown
	HasExecutable  bool
}

// Scope is a predicate on the focused window plus the macros active when it
// holds, per spec §3.5.
type Scope struct {
	WindowClassMatch    *match.StringMatch
	WindowNameMatch     *match.StringMatch
	ExecutablePathMatch *match.StringMatch
	Macros              []Macro
}

// Matches reports whether every sub-matcher this scope specifies accepts
// the descriptor. A scope with no sub-matchers never reaches here: the
// parser rejects it (spec §3.5).
func (s Scope) Matches(w WindowDescriptor) bool {
	if s.WindowClassMatch != nil && !s.WindowClassMatch.Matches(w.WindowClass) {
		return false
	}
	if s.WindowNameMatch != nil && !s.WindowNameMatch.Matches(w.WindowName) {
		return false
	}
	if s.ExecutablePathMatch != nil {
		if !w.HasExecutable || !s.ExecutablePathMatch.Matches(w.ExecutablePath) {
			return false
		}
	}
	return true
}

// ActionKind tags an Action variant, per spec §3.6.
type ActionKind string

const (
	ActionKeySequence ActionKind = "key_sequence"
	ActionEnterText   ActionKind = "enter_text"
	ActionShell       ActionKind = "shell"
	ActionWait        ActionKind = "wait"
	ActionControl     ActionKind = "control"
)

// ControlSignal is the payload of an ActionControl action.
type ControlSignal string

const (
	SignalReload  ControlSignal = "reload"
	SignalRestart ControlSignal = "restart"
	SignalExit    ControlSignal = "exit"
)

// Action is one element of a Macro's ordered action list.
type Action struct {
	Kind ActionKind

	// key_sequence
	Sequence string
	Count    int
	DelayMicros int64

	// enter_text
	Text string
	// Count/DelayMicros shared with key_sequence

	// shell
	Command string
	Args    []string
	Env     map[string]string

	// wait
	WaitMicros int64

	// control
	Signal ControlSignal
}

// Macro bundles event matchers, preconditions and an ordered action list,
// per spec §3.7.
type Macro struct {
	MatchingEvents       []EventMatcher
	RequiredPreconditions []Precondition
	Actions              []Action
}

// Configuration is the immutable, fully evaluated configuration, per spec
// §3.8.
type Configuration struct {
	Version      int
	Scopes       []Scope
	GlobalMacros []Macro
}

// TotalMacros counts macros across every scope plus global_macros.
func (c *Configuration) TotalMacros() int {
	n := len(c.GlobalMacros)
	for _, s := range c.Scopes {
		n += len(s.Macros)
	}
	return n
}
