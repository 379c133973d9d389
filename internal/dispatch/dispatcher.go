package dispatch

import (
	"context"
	"strings"

	"github.com/michd/mmpd/internal/domain"
	"github.com/michd/mmpd/internal/miditracker"
	"github.com/michd/mmpd/internal/runtime"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Dispatcher is the per-message engine of spec §4.5: state update, window
// probe, scope selection, macro evaluation and action execution. A single
// Dispatcher instance is meant to be driven by exactly one goroutine
// draining the ingest queue, so that action sequences are serialized (spec
// §5 "Re-entrance").
type Dispatcher struct {
	log zerolog.Logger

	tracker *miditracker.Tracker

	window    WindowProbe
	keySynth  KeySynth
	textSynth TextSynth
	shell     ShellRunner
	sleeper   Sleeper
}

// New constructs a Dispatcher over the given adapters, sharing the single
// Tracker instance with anything else that needs read access to derived
// MIDI state (e.g. a future UI).
func New(log zerolog.Logger, tracker *miditracker.Tracker, window WindowProbe, keySynth KeySynth, textSynth TextSynth, shell ShellRunner, sleeper Sleeper) *Dispatcher {
	return &Dispatcher{
		log:       log.With().Str("module", "Dispatch").Logger(),
		tracker:   tracker,
		window:    window,
		keySynth:  keySynth,
		textSynth: textSynth,
		shell:     shell,
		sleeper:   sleeper,
	}
}

// Dispatch processes one incoming MIDI message against cfg, per spec §4.5.
// The caller is responsible for fetching cfg once per cycle (see
// internal/app.ConfigManager) so that a single cycle observes one
// consistent configuration even if reload_macros races with dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg *domain.Configuration, msg domain.Message) runtime.Signal {
	d.tracker.Update(msg)

	window, hasWindow, err := d.window.FocusedWindow(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("window probe failed; treating as no focused window")
		hasWindow = false
	}

	var matchingScopes []domain.Scope
	if hasWindow {
		matchingScopes = lo.Filter(cfg.Scopes, func(s domain.Scope, _ int) bool {
			return s.Matches(window)
		})
	}

	macros := make([]domain.Macro, 0, len(cfg.GlobalMacros))
	for _, s := range matchingScopes {
		macros = append(macros, s.Macros...)
	}
	macros = append(macros, cfg.GlobalMacros...)

	cycleSignal := runtime.SignalNone

	for i, macro := range macros {
		event, ok := firstMatchingEvent(macro, msg)
		if !ok {
			continue
		}
		if !preconditionsSatisfied(macro.RequiredPreconditions, d.tracker) {
			continue
		}
		if !preconditionsSatisfied(event.Preconditions, d.tracker) {
			continue
		}

		d.log.Debug().Int("macro", i).Msg("macro matched, executing actions")
		sig := d.executeActions(ctx, macro.Actions)

		if sig == runtime.SignalExit {
			return runtime.SignalExit
		}
		if sig != runtime.SignalNone && cycleSignal == runtime.SignalNone {
			cycleSignal = sig
		}
	}

	return cycleSignal
}

func firstMatchingEvent(macro domain.Macro, msg domain.Message) (domain.EventMatcher, bool) {
	for _, em := range macro.MatchingEvents {
		if em.Matches(msg) {
			return em, true
		}
	}
	return domain.EventMatcher{}, false
}

func preconditionsSatisfied(preconditions []domain.Precondition, state domain.StateQuery) bool {
	for _, p := range preconditions {
		if !p.Satisfied(state) {
			return false
		}
	}
	return true
}

// executeActions runs a macro's actions strictly in order (spec §4.6). A
// synthesizer/shell error logs and aborts the remaining actions of this
// macro only. A Control action either returns immediately (exit) or is
// remembered and execution continues (restart/reload_macros take effect
// "after the currently running action sequence finishes" -- i.e. after this
// loop returns).
func (d *Dispatcher) executeActions(ctx context.Context, actions []domain.Action) runtime.Signal {
	pending := runtime.SignalNone

	for _, a := range actions {
		switch a.Kind {
		case domain.ActionKeySequence:
			if err := d.runKeySequence(ctx, a); err != nil {
				d.log.Error().Err(err).Msg("key sequence synthesis failed, aborting remaining actions")
				return pending
			}
		case domain.ActionEnterText:
			if err := d.runEnterText(ctx, a); err != nil {
				d.log.Error().Err(err).Msg("text synthesis failed, aborting remaining actions")
				return pending
			}
		case domain.ActionShell:
			if err := d.shell.Spawn(a.Command, a.Args, a.Env); err != nil {
				d.log.Error().Err(err).Str("command", a.Command).Msg("failed to spawn shell action, aborting remaining actions")
				return pending
			}
		case domain.ActionWait:
			d.sleeper.Sleep(ctx, a.WaitMicros)
		case domain.ActionControl:
			sig := runtime.FromControlSignal(a.Signal)
			if sig == runtime.SignalExit {
				return runtime.SignalExit
			}
			pending = sig
		}
	}

	return pending
}

func (d *Dispatcher) runKeySequence(ctx context.Context, a domain.Action) error {
	chords := strings.Fields(a.Sequence)
	if len(chords) == 0 {
		return nil
	}

	first := true
	for rep := 0; rep < a.Count; rep++ {
		for _, chord := range chords {
			if !first {
				d.sleeper.Sleep(ctx, a.DelayMicros)
			}
			first = false
			if err := d.keySynth.SendChord(ctx, chord); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) runEnterText(ctx context.Context, a domain.Action) error {
	runes := []rune(a.Text)
	if len(runes) == 0 {
		return nil
	}

	first := true
	for rep := 0; rep < a.Count; rep++ {
		for _, r := range runes {
			if !first {
				d.sleeper.Sleep(ctx, a.DelayMicros)
			}
			first = false
			if err := d.textSynth.SendRune(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}
