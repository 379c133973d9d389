package configparser

import (
	"fmt"

	"github.com/michd/mmpd/internal/domain"
	"github.com/michd/mmpd/internal/match"
	"github.com/michd/mmpd/internal/rawconfig"
)

const defaultDelayMicros = 100

// Parse translates raw YAML source into a fully validated, immutable
// domain.Configuration, per spec §4.3. It either returns a configuration or
// an Errors describing every problem found; it never returns a partial
// configuration.
func Parse(source []byte) (*domain.Configuration, error) {
	if err := rawconfig.ValidateShape(source); err != nil {
		return nil, Errors{{Message: err.Error()}}
	}

	root, err := rawconfig.Parse(source)
	if err != nil {
		return nil, Errors{{Message: err.Error()}}
	}

	c := &collector{}
	cfg := parseRoot(c, root)
	if c.errs.HasAny() {
		return nil, c.errs
	}
	return cfg, nil
}

func parseRoot(c *collector, root *rawconfig.Node) *domain.Configuration {
	if !root.IsMapping() {
		c.add(root, "configuration root must be a mapping")
		return nil
	}

	versionNode, hasVersion := root.Child("version")
	if !hasVersion {
		c.add(root, "missing required field 'version'")
		return nil
	}
	version, err := versionNode.AsInt()
	if err != nil || version != 1 {
		c.add(versionNode, "version must equal 1")
		return nil
	}

	cfg := &domain.Configuration{Version: 1}

	if scopesNode, ok := root.Child("scopes"); ok {
		cfg.Scopes = parseScopes(c, scopesNode)
	}

	if globalNode, ok := root.Child("global_macros"); ok {
		cfg.GlobalMacros = parseMacros(c, globalNode)
	}

	// Whether zero total macros is fatal depends on context the parser
	// doesn't have: it's fatal on first load (spec §4.3) but a deliberate,
	// clean way to shut the daemon down via reload_macros (spec §7). The
	// caller (internal/app) decides, via domain.Configuration.TotalMacros.

	return cfg
}

func parseScopes(c *collector, node *rawconfig.Node) []domain.Scope {
	elems, err := node.AsSequence()
	if err != nil {
		c.addErr(node, err)
		return nil
	}

	scopes := make([]domain.Scope, 0, len(elems))
	for _, el := range elems {
		scopes = append(scopes, parseScope(c, el))
	}
	return scopes
}

func parseScope(c *collector, node *rawconfig.Node) domain.Scope {
	var scope domain.Scope

	if !node.IsMapping() {
		c.add(node, "scope must be a mapping")
		return scope
	}

	hasSubMatcher := false
	for _, key := range node.MapKeys() {
		switch key {
		case "window_class":
			child, _ := node.Child(key)
			sm, err := match.CompileString(child)
			if err != nil {
				c.addErr(child, err)
				continue
			}
			scope.WindowClassMatch = &sm
			hasSubMatcher = true
		case "window_name":
			child, _ := node.Child(key)
			sm, err := match.CompileString(child)
			if err != nil {
				c.addErr(child, err)
				continue
			}
			scope.WindowNameMatch = &sm
			hasSubMatcher = true
		case "executable_path":
			child, _ := node.Child(key)
			sm, err := match.CompileString(child)
			if err != nil {
				c.addErr(child, err)
				continue
			}
			scope.ExecutablePathMatch = &sm
			hasSubMatcher = true
		case "macros":
			// handled below, after the sub-matcher scan
		default:
			c.add(node, "unknown scope field %q", key)
		}
	}

	if !hasSubMatcher {
		c.add(node, "scope must declare at least one of window_class, window_name, executable_path")
	}

	if macrosNode, ok := node.Child("macros"); ok {
		scope.Macros = parseMacros(c, macrosNode)
	}

	return scope
}

func parseMacros(c *collector, node *rawconfig.Node) []domain.Macro {
	elems, err := node.AsSequence()
	if err != nil {
		c.addErr(node, err)
		return nil
	}

	macros := make([]domain.Macro, 0, len(elems))
	for _, el := range elems {
		macros = append(macros, parseMacro(c, el))
	}
	return macros
}

func parseMacro(c *collector, node *rawconfig.Node) domain.Macro {
	var macro domain.Macro

	if !node.IsMapping() {
		c.add(node, "macro must be a mapping")
		return macro
	}

	for _, key := range node.MapKeys() {
		switch key {
		case "matching_events", "required_preconditions", "actions":
			// handled below
		default:
			c.add(node, "unknown macro field %q", key)
		}
	}

	eventsNode, hasEvents := node.Child("matching_events")
	if !hasEvents {
		c.add(node, "macro requires non-empty matching_events")
	} else {
		elems, err := eventsNode.AsSequence()
		if err != nil {
			c.addErr(eventsNode, err)
		} else if len(elems) == 0 {
			c.add(eventsNode, "matching_events must not be empty")
		} else {
			for _, el := range elems {
				macro.MatchingEvents = append(macro.MatchingEvents, parseEventMatcher(c, el))
			}
		}
	}

	if preNode, ok := node.Child("required_preconditions"); ok {
		macro.RequiredPreconditions = parsePreconditions(c, preNode)
	}

	actionsNode, hasActions := node.Child("actions")
	if !hasActions {
		c.add(node, "macro requires non-empty actions")
	} else {
		elems, err := actionsNode.AsSequence()
		if err != nil {
			c.addErr(actionsNode, err)
		} else if len(elems) == 0 {
			c.add(actionsNode, "actions must not be empty")
		} else {
			for _, el := range elems {
				macro.Actions = append(macro.Actions, parseAction(c, el))
			}
		}
	}

	return macro
}

func parseEventMatcher(c *collector, node *rawconfig.Node) domain.EventMatcher {
	var em domain.EventMatcher

	if !node.IsMapping() {
		c.add(node, "event matcher must be a mapping")
		return em
	}

	typeNode, hasType := node.Child("type")
	if !hasType {
		c.add(node, "event matcher requires 'type'")
		return em
	}
	typeStr, err := typeNode.AsString()
	if err != nil {
		c.addErr(typeNode, err)
		return em
	}
	if typeStr != "midi" {
		c.add(typeNode, "unknown event matcher type %q", typeStr)
		return em
	}
	em.Kind = domain.EventMatcherMidi

	mtNode, hasMt := node.Child("message_type")
	if !hasMt {
		c.add(node, "midi event matcher requires 'message_type'")
		return em
	}
	mtStr, err := mtNode.AsString()
	if err != nil {
		c.addErr(mtNode, err)
		return em
	}
	messageType, ok := messageTypeNames[mtStr]
	if !ok {
		c.add(mtNode, "unknown message_type %q", mtStr)
		return em
	}
	em.MessageType = messageType

	fields := eventFieldTable[messageType]

	em.Channel = match.Any()
	em.Key = match.Any()
	em.Velocity = match.Any()
	em.Control = match.Any()
	em.Value = match.Any()
	em.Program = match.Any()

	for _, key := range node.MapKeys() {
		switch key {
		case "type", "message_type", "preconditions":
			continue
		case "channel":
			child, _ := node.Child(key)
			vm, err := match.Compile(child, channelBounds)
			if err != nil {
				c.addErr(child, err)
				continue
			}
			em.Channel = vm
		default:
			bounds, permitted := fields[key]
			if !permitted {
				c.add(node, "field %q is not permitted for message_type %q", key, mtStr)
				continue
			}
			child, _ := node.Child(key)
			vm, err := match.Compile(child, bounds)
			if err != nil {
				c.addErr(child, err)
				continue
			}
			assignEventField(&em, key, vm)
		}
	}

	if preNode, ok := node.Child("preconditions"); ok {
		em.Preconditions = parsePreconditions(c, preNode)
	}

	return em
}

func assignEventField(em *domain.EventMatcher, key string, vm match.ValueMatch) {
	switch key {
	case "key":
		em.Key = vm
	case "velocity":
		em.Velocity = vm
	case "control":
		em.Control = vm
	case "value":
		em.Value = vm
	case "program":
		em.Program = vm
	}
}

func parsePreconditions(c *collector, node *rawconfig.Node) []domain.Precondition {
	elems, err := node.AsSequence()
	if err != nil {
		c.addErr(node, err)
		return nil
	}
	preconditions := make([]domain.Precondition, 0, len(elems))
	for _, el := range elems {
		preconditions = append(preconditions, parsePrecondition(c, el))
	}
	return preconditions
}

func parsePrecondition(c *collector, node *rawconfig.Node) domain.Precondition {
	var p domain.Precondition

	if !node.IsMapping() {
		c.add(node, "precondition must be a mapping")
		return p
	}

	typeNode, hasType := node.Child("type")
	if !hasType {
		c.add(node, "precondition requires 'type'")
		return p
	}
	typeStr, err := typeNode.AsString()
	if err != nil {
		c.addErr(typeNode, err)
		return p
	}
	if typeStr != "midi" {
		c.add(typeNode, "unknown precondition type %q", typeStr)
		return p
	}

	ctNode, hasCt := node.Child("condition_type")
	if !hasCt {
		c.add(node, "midi precondition requires 'condition_type'")
		return p
	}
	ctStr, err := ctNode.AsString()
	if err != nil {
		c.addErr(ctNode, err)
		return p
	}
	kind, ok := conditionTypeNames[ctStr]
	if !ok {
		c.add(ctNode, "unknown condition_type %q", ctStr)
		return p
	}
	p.Kind = kind

	if invertNode, ok := node.Child("invert"); ok {
		inv, err := invertNode.AsBool()
		if err != nil {
			c.addErr(invertNode, err)
		} else {
			p.Invert = inv
		}
	}

	chanNode, hasChan := node.Child("channel")
	if !hasChan {
		c.add(node, "precondition requires 'channel'")
	} else {
		ch, err := exactUint8(chanNode, channelBounds)
		if err != nil {
			c.addErr(chanNode, err)
		} else {
			p.Channel = ch
		}
	}

	fields := conditionFieldTable[kind]

	for _, key := range node.MapKeys() {
		switch key {
		case "type", "condition_type", "invert", "channel":
			continue
		default:
			spec, permitted := fields[key]
			if !permitted {
				c.add(node, "field %q is not permitted for condition_type %q", key, ctStr)
				continue
			}
			child, _ := node.Child(key)
			switch spec.kind {
			case fieldExact:
				v, err := exactUint8(child, spec.bounds)
				if err != nil {
					c.addErr(child, err)
					continue
				}
				assignExactConditionField(&p, key, v)
			case fieldValueMatch:
				vm, err := match.Compile(child, spec.bounds)
				if err != nil {
					c.addErr(child, err)
					continue
				}
				assignValueMatchConditionField(&p, key, vm)
			}
		}
	}

	// Required fields per kind that weren't supplied compile to Any()/0,
	// which is wrong for "exact" fields like note_on.key -- catch that here
	// rather than silently matching key=0.
	for key := range fields {
		if _, present := node.Child(key); !present {
			c.add(node, "condition_type %q requires field %q", ctStr, key)
		}
	}

	return p
}

func exactUint8(node *rawconfig.Node, bounds match.Bounds) (uint8, error) {
	v, err := node.AsInt()
	if err != nil {
		return 0, err
	}
	if v < int64(bounds.Min) || v > int64(bounds.Max) {
		return 0, fmt.Errorf("%s: value %d out of range [%d,%d]", node.Location(), v, bounds.Min, bounds.Max)
	}
	return uint8(v), nil
}

func assignExactConditionField(p *domain.Precondition, key string, v uint8) {
	switch key {
	case "key":
		p.Key = v
	case "control":
		p.Control = v
	}
}

func assignValueMatchConditionField(p *domain.Precondition, key string, vm match.ValueMatch) {
	switch key {
	case "value":
		switch p.Kind {
		case domain.ConditionControl:
			p.ControlValue = vm
		case domain.ConditionPitchBend:
			p.PitchValue = vm
		}
	case "program":
		p.ProgramValue = vm
	}
}

func parseAction(c *collector, node *rawconfig.Node) domain.Action {
	var a domain.Action

	if !node.IsMapping() {
		c.add(node, "action must be a mapping")
		return a
	}

	for _, key := range node.MapKeys() {
		if key != "type" && key != "data" {
			c.add(node, "unknown action field %q", key)
		}
	}

	typeNode, hasType := node.Child("type")
	if !hasType {
		c.add(node, "action requires 'type'")
		return a
	}
	typeStr, err := typeNode.AsString()
	if err != nil {
		c.addErr(typeNode, err)
		return a
	}
	kind, ok := actionTypeNames[typeStr]
	if !ok {
		c.add(typeNode, "unknown action type %q", typeStr)
		return a
	}
	a.Kind = kind

	dataNode, hasData := node.Child("data")

	switch kind {
	case domain.ActionKeySequence:
		parseKeySequenceOrTextAction(c, node, dataNode, hasData, &a, true)
	case domain.ActionEnterText:
		parseKeySequenceOrTextAction(c, node, dataNode, hasData, &a, false)
	case domain.ActionShell:
		parseShellAction(c, node, dataNode, hasData, &a)
	case domain.ActionWait:
		parseWaitAction(c, node, dataNode, hasData, &a)
	case domain.ActionControl:
		parseControlAction(c, node, dataNode, hasData, &a)
	}

	return a
}

func parseKeySequenceOrTextAction(c *collector, actionNode, dataNode *rawconfig.Node, hasData bool, a *domain.Action, isKeySequence bool) {
	if !hasData {
		c.add(actionNode, "action requires 'data'")
		return
	}

	fieldName := "text"
	if isKeySequence {
		fieldName = "sequence"
	}

	// Shorthand: a scalar string expands to {sequence|text: data, count:1,
	// delay:100}.
	if s, ok := dataNode.IsScalarString(); ok {
		if isKeySequence {
			a.Sequence = s
		} else {
			a.Text = s
		}
		a.Count = 1
		a.DelayMicros = defaultDelayMicros
		return
	}

	if !dataNode.IsMapping() {
		c.add(dataNode, "data must be a string or a mapping")
		return
	}

	for _, key := range dataNode.MapKeys() {
		switch key {
		case fieldName, "count", "delay", "delay_ms":
		default:
			c.add(dataNode, "unknown field %q in %s action data", key, fieldName)
		}
	}

	valueNode, hasValue := dataNode.Child(fieldName)
	if !hasValue {
		c.add(dataNode, "data requires %q", fieldName)
	} else {
		s, err := valueNode.AsString()
		if err != nil {
			c.addErr(valueNode, err)
		} else if isKeySequence {
			a.Sequence = s
		} else {
			a.Text = s
		}
	}

	a.Count = 1
	if countNode, ok := dataNode.Child("count"); ok {
		v, err := countNode.AsInt()
		if err != nil {
			c.addErr(countNode, err)
		} else if v < 1 {
			c.add(countNode, "count must be >= 1")
		} else {
			a.Count = int(v)
		}
	}

	a.DelayMicros = resolveDelay(c, dataNode)
}

// resolveDelay implements spec §4.6: delay (µs) wins over delay_ms when
// both are present; default 100µs when neither is present.
func resolveDelay(c *collector, dataNode *rawconfig.Node) int64 {
	delayNode, hasDelay := dataNode.Child("delay")
	delayMsNode, hasDelayMs := dataNode.Child("delay_ms")

	if hasDelay {
		v, err := delayNode.AsInt()
		if err != nil {
			c.addErr(delayNode, err)
			return defaultDelayMicros
		}
		if v < 0 {
			c.add(delayNode, "delay must be >= 0")
			return defaultDelayMicros
		}
		return v
	}
	if hasDelayMs {
		v, err := delayMsNode.AsInt()
		if err != nil {
			c.addErr(delayMsNode, err)
			return defaultDelayMicros
		}
		if v < 0 {
			c.add(delayMsNode, "delay_ms must be >= 0")
			return defaultDelayMicros
		}
		return v * 1000
	}
	return defaultDelayMicros
}

func parseShellAction(c *collector, actionNode, dataNode *rawconfig.Node, hasData bool, a *domain.Action) {
	if !hasData {
		c.add(actionNode, "action requires 'data'")
		return
	}
	if !dataNode.IsMapping() {
		c.add(dataNode, "shell data must be a mapping")
		return
	}

	for _, key := range dataNode.MapKeys() {
		switch key {
		case "command", "args", "env":
		default:
			c.add(dataNode, "unknown field %q in shell action data", key)
		}
	}

	cmdNode, hasCmd := dataNode.Child("command")
	if !hasCmd {
		c.add(dataNode, "shell data requires 'command'")
	} else {
		cmd, err := cmdNode.AsString()
		if err != nil {
			c.addErr(cmdNode, err)
		} else if len(cmd) == 0 || cmd[0] != '/' {
			c.add(cmdNode, "shell command must be an absolute path, got %q", cmd)
		} else {
			a.Command = cmd
		}
	}

	if argsNode, ok := dataNode.Child("args"); ok {
		elems, err := argsNode.AsSequence()
		if err != nil {
			c.addErr(argsNode, err)
		} else {
			for _, el := range elems {
				s, err := el.AsString()
				if err != nil {
					c.addErr(el, err)
					continue
				}
				a.Args = append(a.Args, s)
			}
		}
	}

	if envNode, ok := dataNode.Child("env"); ok {
		m, err := envNode.AsMapping()
		if err != nil {
			c.addErr(envNode, err)
		} else {
			a.Env = make(map[string]string, len(m.Keys()))
			for _, key := range m.Keys() {
				child, _ := m.Get(key)
				s, err := child.AsString()
				if err != nil {
					c.addErr(child, err)
					continue
				}
				a.Env[key] = s
			}
		}
	}
}

func parseWaitAction(c *collector, actionNode, dataNode *rawconfig.Node, hasData bool, a *domain.Action) {
	if !hasData {
		c.add(actionNode, "action requires 'data'")
		return
	}

	// Shorthand: a scalar integer expands to {duration: data}.
	if v, ok := dataNode.IsScalarInt(); ok {
		a.WaitMicros = int64(v)
		return
	}

	if !dataNode.IsMapping() {
		c.add(dataNode, "wait data must be an integer or a mapping")
		return
	}

	for _, key := range dataNode.MapKeys() {
		switch key {
		case "duration", "duration_ms":
		default:
			c.add(dataNode, "unknown field %q in wait action data", key)
		}
	}

	durationNode, hasDuration := dataNode.Child("duration")
	durationMsNode, hasDurationMs := dataNode.Child("duration_ms")
	durationWasNegative := false

	if hasDuration {
		v, err := durationNode.AsInt()
		if err != nil {
			c.addErr(durationNode, err)
			return
		}
		if v >= 0 {
			a.WaitMicros = v
			return
		}
		// Negative duration is treated as absent; fall through to
		// duration_ms per spec §4.6/§8.
		durationWasNegative = true
	}

	if hasDurationMs {
		v, err := durationMsNode.AsInt()
		if err != nil {
			c.addErr(durationMsNode, err)
			return
		}
		if v < 0 {
			c.add(durationMsNode, "duration_ms must be >= 0")
			return
		}
		a.WaitMicros = v * 1000
		return
	}

	if !hasDuration || durationWasNegative {
		c.add(dataNode, "wait data requires 'duration' or 'duration_ms'")
	}
}

func parseControlAction(c *collector, actionNode, dataNode *rawconfig.Node, hasData bool, a *domain.Action) {
	if !hasData {
		c.add(actionNode, "action requires 'data'")
		return
	}

	// Shorthand: a scalar string expands to {action: data}.
	actionValueNode := dataNode
	if _, ok := dataNode.IsScalarString(); ok {
		// actionValueNode already points at the scalar.
	} else if dataNode.IsMapping() {
		for _, key := range dataNode.MapKeys() {
			if key != "action" {
				c.add(dataNode, "unknown field %q in control action data", key)
			}
		}
		child, ok := dataNode.Child("action")
		if !ok {
			c.add(dataNode, "control data requires 'action'")
			return
		}
		actionValueNode = child
	} else {
		c.add(dataNode, "control data must be a string or a mapping")
		return
	}

	s, err := actionValueNode.AsString()
	if err != nil {
		c.addErr(actionValueNode, err)
		return
	}
	signal, ok := controlSignalNames[s]
	if !ok {
		c.add(actionValueNode, "unknown control action %q", s)
		return
	}
	a.Signal = signal
}
