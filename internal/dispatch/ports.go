// Package dispatch implements the per-message engine: state update, window
// probe, scope selection, macro evaluation, and action execution (spec
// §4.5). It depends only on small adapter interfaces for every
// side-effecting concern, per spec §9 Design Notes ("Side-effecting actions
// behind an interface... the core is deterministic given its adapters").
package dispatch

import (
	"context"

	"github.com/michd/mmpd/internal/domain"
)

// WindowProbe queries the currently focused window, spec §6.4. A zero
// descriptor with ok=false means "no window"; the dispatcher then only
// considers global macros.
type WindowProbe interface {
	FocusedWindow(ctx context.Context) (domain.WindowDescriptor, bool, error)
}

// KeySynth synthesizes a sequence of chords, spec §4.6 KeySequence. Each
// call synthesizes one chord (space-separated tokens already split by the
// caller); the adapter is responsible for interpreting '+'-joined keysym
// names within a chord.
type KeySynth interface {
	SendChord(ctx context.Context, chord string) error
}

// TextSynth synthesizes a single code point as a keypress, spec §4.6
// EnterText.
type TextSynth interface {
	SendRune(ctx context.Context, r rune) error
}

// ShellRunner spawns a detached subprocess, spec §4.6 Shell. The dispatcher
// never waits for completion or reads output.
type ShellRunner interface {
	Spawn(command string, args []string, env map[string]string) error
}

// Sleeper abstracts time.Sleep so tests can run Wait actions and
// inter-chord/inter-character delays without real elapsed time.
type Sleeper interface {
	Sleep(ctx context.Context, d int64 /* microseconds */)
}
