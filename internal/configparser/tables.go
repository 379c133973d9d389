package configparser

import (
	"github.com/michd/mmpd/internal/domain"
	"github.com/michd/mmpd/internal/match"
)

var channelBounds = match.Bounds{Min: 0, Max: 15}
var sevenBitBounds = match.Bounds{Min: 0, Max: 127}
var pitchBendBounds = match.Bounds{Min: 0, Max: 16383}

// eventFieldTable enumerates, per spec §6.2, which value-match fields a
// message_type permits and the bound each compiles against. "channel" is
// implicitly permitted (and always bounded 0-15) for every message type and
// is not repeated here.
var eventFieldTable = map[domain.MessageType]map[string]match.Bounds{
	domain.NoteOn:            {"key": sevenBitBounds, "velocity": sevenBitBounds},
	domain.NoteOff:           {"key": sevenBitBounds, "velocity": sevenBitBounds},
	domain.PolyAftertouch:    {"key": sevenBitBounds, "value": sevenBitBounds},
	domain.ControlChange:     {"control": sevenBitBounds, "value": sevenBitBounds},
	domain.ProgramChange:     {"program": sevenBitBounds},
	domain.ChannelAftertouch: {"value": sevenBitBounds},
	domain.PitchBendChange:   {"value": pitchBendBounds},
}

// messageTypeNames is the set of accepted message_type lowercase constants.
var messageTypeNames = map[string]domain.MessageType{
	"note_on":             domain.NoteOn,
	"note_off":            domain.NoteOff,
	"poly_aftertouch":     domain.PolyAftertouch,
	"control_change":      domain.ControlChange,
	"program_change":      domain.ProgramChange,
	"channel_aftertouch":  domain.ChannelAftertouch,
	"pitch_bend_change":   domain.PitchBendChange,
}

// conditionFieldTable enumerates, per spec §6.3, which fields a
// condition_type permits, and whether that field is an exact integer or a
// full value-match. "channel" is implicitly permitted (exact, 0-15) for
// every condition type.
type conditionFieldKind int

const (
	fieldExact conditionFieldKind = iota
	fieldValueMatch
)

type conditionField struct {
	kind   conditionFieldKind
	bounds match.Bounds
}

var conditionFieldTable = map[domain.ConditionKind]map[string]conditionField{
	domain.ConditionNoteOn: {
		"key": {kind: fieldExact, bounds: sevenBitBounds},
	},
	domain.ConditionControl: {
		"control": {kind: fieldExact, bounds: sevenBitBounds},
		"value":   {kind: fieldValueMatch, bounds: sevenBitBounds},
	},
	domain.ConditionProgram: {
		"program": {kind: fieldValueMatch, bounds: sevenBitBounds},
	},
	domain.ConditionPitchBend: {
		"value": {kind: fieldValueMatch, bounds: pitchBendBounds},
	},
}

var conditionTypeNames = map[string]domain.ConditionKind{
	"note_on":     domain.ConditionNoteOn,
	"control":     domain.ConditionControl,
	"program":     domain.ConditionProgram,
	"pitch_bend":  domain.ConditionPitchBend,
}

var actionTypeNames = map[string]domain.ActionKind{
	"key_sequence": domain.ActionKeySequence,
	"enter_text":   domain.ActionEnterText,
	"shell":        domain.ActionShell,
	"wait":         domain.ActionWait,
	"control":      domain.ActionControl,
}

var controlSignalNames = map[string]domain.ControlSignal{
	"reload":  domain.SignalReload,
	"restart": domain.SignalRestart,
	"exit":    domain.SignalExit,
}

// The *Strings maps below are the inverse of the *Names maps above, used by
// Marshal to re-derive the lowercase constants for canonical
// re-serialization (spec §8 round-trip laws).
var messageTypeStrings = invert(messageTypeNames)
var conditionTypeStrings = invert(conditionTypeNames)
var actionTypeStrings = invert(actionTypeNames)
var controlSignalStrings = invert(controlSignalNames)

func invert[K comparable, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
