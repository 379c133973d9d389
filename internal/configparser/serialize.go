package configparser

import (
	"github.com/michd/mmpd/internal/domain"
	"github.com/michd/mmpd/internal/match"
	"gopkg.in/yaml.v3"
)

// Marshal renders cfg back into the same configuration YAML Parse accepts.
// It always emits the full (never shorthand) form of every field, so the
// round-trip law in spec §8 holds: Parse(Marshal(cfg)) is equal to cfg, even
// though the bytes Marshal produces generally differ from whatever bytes
// were originally parsed.
func Marshal(cfg *domain.Configuration) ([]byte, error) {
	return yaml.Marshal(marshalConfig(cfg))
}

func marshalConfig(cfg *domain.Configuration) map[string]interface{} {
	out := map[string]interface{}{"version": cfg.Version}
	if len(cfg.Scopes) > 0 {
		scopes := make([]interface{}, len(cfg.Scopes))
		for i, s := range cfg.Scopes {
			scopes[i] = marshalScope(s)
		}
		out["scopes"] = scopes
	}
	if len(cfg.GlobalMacros) > 0 {
		out["global_macros"] = marshalMacros(cfg.GlobalMacros)
	}
	return out
}

func marshalScope(s domain.Scope) map[string]interface{} {
	out := map[string]interface{}{}
	if s.WindowClassMatch != nil {
		out["window_class"] = marshalStringMatch(*s.WindowClassMatch)
	}
	if s.WindowNameMatch != nil {
		out["window_name"] = marshalStringMatch(*s.WindowNameMatch)
	}
	if s.ExecutablePathMatch != nil {
		out["executable_path"] = marshalStringMatch(*s.ExecutablePathMatch)
	}
	if len(s.Macros) > 0 {
		out["macros"] = marshalMacros(s.Macros)
	}
	return out
}

func marshalMacros(macros []domain.Macro) []interface{} {
	out := make([]interface{}, len(macros))
	for i, m := range macros {
		out[i] = marshalMacro(m)
	}
	return out
}

func marshalMacro(m domain.Macro) map[string]interface{} {
	events := make([]interface{}, len(m.MatchingEvents))
	for i, e := range m.MatchingEvents {
		events[i] = marshalEventMatcher(e)
	}
	actions := make([]interface{}, len(m.Actions))
	for i, a := range m.Actions {
		actions[i] = marshalAction(a)
	}
	out := map[string]interface{}{
		"matching_events": events,
		"actions":         actions,
	}
	if len(m.RequiredPreconditions) > 0 {
		out["required_preconditions"] = marshalPreconditions(m.RequiredPreconditions)
	}
	return out
}

func marshalEventMatcher(e domain.EventMatcher) map[string]interface{} {
	out := map[string]interface{}{
		"type":         "midi",
		"message_type": messageTypeStrings[e.MessageType],
		"channel":      marshalValueMatch(e.Channel),
	}

	fields := eventFieldTable[e.MessageType]
	for key := range fields {
		switch key {
		case "key":
			out[key] = marshalValueMatch(e.Key)
		case "velocity":
			out[key] = marshalValueMatch(e.Velocity)
		case "control":
			out[key] = marshalValueMatch(e.Control)
		case "value":
			out[key] = marshalValueMatch(e.Value)
		case "program":
			out[key] = marshalValueMatch(e.Program)
		}
	}

	if len(e.Preconditions) > 0 {
		out["preconditions"] = marshalPreconditions(e.Preconditions)
	}
	return out
}

func marshalPreconditions(preconditions []domain.Precondition) []interface{} {
	out := make([]interface{}, len(preconditions))
	for i, p := range preconditions {
		out[i] = marshalPrecondition(p)
	}
	return out
}

func marshalPrecondition(p domain.Precondition) map[string]interface{} {
	out := map[string]interface{}{
		"type":           "midi",
		"condition_type": conditionTypeStrings[p.Kind],
		"channel":        p.Channel,
	}
	if p.Invert {
		out["invert"] = true
	}

	switch p.Kind {
	case domain.ConditionNoteOn:
		out["key"] = p.Key
	case domain.ConditionControl:
		out["control"] = p.Control
		out["value"] = marshalValueMatch(p.ControlValue)
	case domain.ConditionProgram:
		out["program"] = marshalValueMatch(p.ProgramValue)
	case domain.ConditionPitchBend:
		out["value"] = marshalValueMatch(p.PitchValue)
	}
	return out
}

// marshalValueMatch renders m in whichever raw shape match.Compile accepts
// back: a bare integer for KindSingle, a sequence of integers/range mappings
// for KindUnion and KindList, a {min,max} mapping for KindRange, and nil
// for KindAny, which the caller emits as a YAML null that Compile reads
// back as Any().
func marshalValueMatch(m match.ValueMatch) interface{} {
	switch m.Kind() {
	case match.KindAny:
		return nil
	case match.KindSingle:
		return m.SingleValue()
	case match.KindList:
		vals := m.ListValues()
		out := make([]interface{}, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return out
	case match.KindRange:
		return marshalRange(m)
	case match.KindUnion:
		members := m.UnionMembers()
		out := make([]interface{}, len(members))
		for i, e := range members {
			if e.Kind() == match.KindRange {
				out[i] = marshalRange(e)
			} else {
				out[i] = e.SingleValue()
			}
		}
		return out
	default:
		return nil
	}
}

func marshalRange(m match.ValueMatch) map[string]interface{} {
	out := map[string]interface{}{}
	min, max := m.RangeBounds()
	if min != nil {
		out["min"] = *min
	}
	if max != nil {
		out["max"] = *max
	}
	return out
}

func marshalStringMatch(m match.StringMatch) map[string]interface{} {
	switch m.Kind() {
	case match.StringIs:
		return map[string]interface{}{"is": m.Literal()}
	case match.StringContains:
		return map[string]interface{}{"contains": m.Literal()}
	case match.StringStartsWith:
		return map[string]interface{}{"starts_with": m.Literal()}
	case match.StringEndsWith:
		return map[string]interface{}{"ends_with": m.Literal()}
	case match.StringRegex:
		return map[string]interface{}{"regex": m.Pattern()}
	default:
		return map[string]interface{}{}
	}
}

func marshalAction(a domain.Action) map[string]interface{} {
	out := map[string]interface{}{"type": actionTypeStrings[a.Kind]}

	switch a.Kind {
	case domain.ActionKeySequence:
		out["data"] = map[string]interface{}{
			"sequence": a.Sequence,
			"count":    a.Count,
			"delay":    a.DelayMicros,
		}
	case domain.ActionEnterText:
		out["data"] = map[string]interface{}{
			"text":  a.Text,
			"count": a.Count,
			"delay": a.DelayMicros,
		}
	case domain.ActionShell:
		data := map[string]interface{}{"command": a.Command}
		if len(a.Args) > 0 {
			data["args"] = a.Args
		}
		if len(a.Env) > 0 {
			data["env"] = a.Env
		}
		out["data"] = data
	case domain.ActionWait:
		out["data"] = map[string]interface{}{"duration": a.WaitMicros}
	case domain.ActionControl:
		out["data"] = map[string]interface{}{"action": controlSignalStrings[a.Signal]}
	}
	return out
}
