package dispatch

import (
	"context"
	"testing"

	"github.com/michd/mmpd/internal/domain"
	"github.com/michd/mmpd/internal/match"
	"github.com/michd/mmpd/internal/miditracker"
	"github.com/michd/mmpd/internal/runtime"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindowProbe struct {
	desc     domain.WindowDescriptor
	hasWin   bool
	err      error
}

func (f *fakeWindowProbe) FocusedWindow(context.Context) (domain.WindowDescriptor, bool, error) {
	return f.desc, f.hasWin, f.err
}

type recordingKeySynth struct{ chords []string }

func (r *recordingKeySynth) SendChord(_ context.Context, chord string) error {
	r.chords = append(r.chords, chord)
	return nil
}

type recordingTextSynth struct{ runes []rune }

func (r *recordingTextSynth) SendRune(_ context.Context, c rune) error {
	r.runes = append(r.runes, c)
	return nil
}

type recordingShell struct {
	commands []string
}

func (r *recordingShell) Spawn(command string, _ []string, _ map[string]string) error {
	r.commands = append(r.commands, command)
	return nil
}

type noopSleeper struct{}

func (noopSleeper) Sleep(context.Context, int64) {}

// testStringNode and testMappingNode are the minimal match.RawNode shapes
// needed to exercise match.CompileString without pulling in internal/
// rawconfig and its yaml.v3 dependency.
type testStringNode string

func (n testStringNode) IsNull() bool                        { return false }
func (n testStringNode) IsScalarInt() (uint32, bool)          { return 0, false }
func (n testStringNode) IsScalarString() (string, bool)       { return string(n), true }
func (n testStringNode) IsSequence() bool                     { return false }
func (n testStringNode) Sequence() ([]match.RawNode, error)   { return nil, nil }
func (n testStringNode) IsMapping() bool                      { return false }
func (n testStringNode) MapKeys() []string                    { return nil }
func (n testStringNode) MapGet(string) (match.RawNode, bool)  { return nil, false }
func (n testStringNode) Location() string                     { return "" }

type testMappingNode map[string]match.RawNode

func (n testMappingNode) IsNull() bool                       { return false }
func (n testMappingNode) IsScalarInt() (uint32, bool)         { return 0, false }
func (n testMappingNode) IsScalarString() (string, bool)      { return "", false }
func (n testMappingNode) IsSequence() bool                    { return false }
func (n testMappingNode) Sequence() ([]match.RawNode, error)  { return nil, nil }
func (n testMappingNode) IsMapping() bool                     { return true }
func (n testMappingNode) MapKeys() []string {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	return keys
}
func (n testMappingNode) MapGet(key string) (match.RawNode, bool) {
	v, ok := n[key]
	return v, ok
}
func (n testMappingNode) Location() string { return "" }

func newTestDispatcher(keySynth *recordingKeySynth, textSynth *recordingTextSynth, shell *recordingShell, window *fakeWindowProbe) (*Dispatcher, *miditracker.Tracker) {
	tracker := miditracker.New()
	d := New(zerolog.Nop(), tracker, window, keySynth, textSynth, shell, noopSleeper{})
	return d, tracker
}

func noteOnMatcher(channel, key uint32) domain.EventMatcher {
	return domain.EventMatcher{
		MessageType: domain.NoteOn,
		Channel:     match.Single(channel),
		Key:         match.Single(key),
		Velocity:    match.Any(),
	}
}

func TestDispatchRunsMatchingGlobalMacro(t *testing.T) {
	keySynth := &recordingKeySynth{}
	d, _ := newTestDispatcher(keySynth, &recordingTextSynth{}, &recordingShell{}, &fakeWindowProbe{})

	cfg := &domain.Configuration{
		GlobalMacros: []domain.Macro{
			{
				MatchingEvents: []domain.EventMatcher{noteOnMatcher(0, 60)},
				Actions: []domain.Action{
					{Kind: domain.ActionKeySequence, Sequence: "ctrl+t", Count: 1},
				},
			},
		},
	}

	sig := d.Dispatch(context.Background(), cfg, domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 100})

	assert.Equal(t, runtime.SignalNone, sig)
	assert.Equal(t, []string{"ctrl+t"}, keySynth.chords)
}

func TestDispatchVelocityRangeGate(t *testing.T) {
	keySynth := &recordingKeySynth{}
	d, _ := newTestDispatcher(keySynth, &recordingTextSynth{}, &recordingShell{}, &fakeWindowProbe{})

	minVelocity := uint32(64)
	matcher := domain.EventMatcher{
		MessageType: domain.NoteOn,
		Channel:     match.Any(),
		Key:         match.Single(60),
		Velocity:    match.Range(&minVelocity, nil),
	}
	cfg := &domain.Configuration{
		GlobalMacros: []domain.Macro{
			{
				MatchingEvents: []domain.EventMatcher{matcher},
				Actions:        []domain.Action{{Kind: domain.ActionKeySequence, Sequence: "a", Count: 1}},
			},
		},
	}

	sig := d.Dispatch(context.Background(), cfg, domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 10})
	assert.Equal(t, runtime.SignalNone, sig)
	assert.Empty(t, keySynth.chords)

	sig = d.Dispatch(context.Background(), cfg, domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 100})
	assert.Equal(t, runtime.SignalNone, sig)
	assert.Equal(t, []string{"a"}, keySynth.chords)
}

func TestDispatchPreconditionAbsenceBeatsInversion(t *testing.T) {
	keySynth := &recordingKeySynth{}
	d, _ := newTestDispatcher(keySynth, &recordingTextSynth{}, &recordingShell{}, &fakeWindowProbe{})

	// Invert=true on a note_on precondition for a note that was never
	// pressed: absence must NOT count as "not satisfied, inverted to
	// satisfied" -- spec says absence beats inversion, so it stays false.
	precondition := domain.Precondition{Kind: domain.ConditionNoteOn, Invert: true, Channel: 0, Key: 36}

	cfg := &domain.Configuration{
		GlobalMacros: []domain.Macro{
			{
				MatchingEvents:        []domain.EventMatcher{noteOnMatcher(0, 60)},
				RequiredPreconditions: []domain.Precondition{precondition},
				Actions:               []domain.Action{{Kind: domain.ActionKeySequence, Sequence: "a", Count: 1}},
			},
		},
	}

	sig := d.Dispatch(context.Background(), cfg, domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 100})
	assert.Equal(t, runtime.SignalNone, sig)
	assert.Empty(t, keySynth.chords)
}

func TestDispatchScopedMacroRequiresWindowMatch(t *testing.T) {
	keySynth := &recordingKeySynth{}
	window := &fakeWindowProbe{desc: domain.WindowDescriptor{WindowClass: "gedit"}, hasWin: true}
	d, _ := newTestDispatcher(keySynth, &recordingTextSynth{}, &recordingShell{}, window)

	classMatch, err := match.CompileString(testMappingNode{"is": testStringNode("gedit")})
	require.NoError(t, err)

	cfg := &domain.Configuration{
		Scopes: []domain.Scope{
			{
				WindowClassMatch: &classMatch,
				Macros: []domain.Macro{
					{
						MatchingEvents: []domain.EventMatcher{noteOnMatcher(0, 60)},
						Actions:        []domain.Action{{Kind: domain.ActionKeySequence, Sequence: "ctrl+s", Count: 1}},
					},
				},
			},
		},
	}

	sig := d.Dispatch(context.Background(), cfg, domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 100})
	assert.Equal(t, runtime.SignalNone, sig)
	assert.Equal(t, []string{"ctrl+s"}, keySynth.chords)
}

func TestDispatchExitStopsImmediately(t *testing.T) {
	keySynth := &recordingKeySynth{}
	d, _ := newTestDispatcher(keySynth, &recordingTextSynth{}, &recordingShell{}, &fakeWindowProbe{})

	cfg := &domain.Configuration{
		GlobalMacros: []domain.Macro{
			{
				MatchingEvents: []domain.EventMatcher{noteOnMatcher(0, 60)},
				Actions: []domain.Action{
					{Kind: domain.ActionControl, Signal: domain.SignalExit},
					{Kind: domain.ActionKeySequence, Sequence: "should-not-run", Count: 1},
				},
			},
		},
	}

	sig := d.Dispatch(context.Background(), cfg, domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 100})
	assert.Equal(t, runtime.SignalExit, sig)
	assert.Empty(t, keySynth.chords)
}

func TestDispatchReloadContinuesRemainingMacros(t *testing.T) {
	keySynth := &recordingKeySynth{}
	d, _ := newTestDispatcher(keySynth, &recordingTextSynth{}, &recordingShell{}, &fakeWindowProbe{})

	cfg := &domain.Configuration{
		GlobalMacros: []domain.Macro{
			{
				MatchingEvents: []domain.EventMatcher{noteOnMatcher(0, 60)},
				Actions: []domain.Action{
					{Kind: domain.ActionControl, Signal: domain.SignalReload},
					{Kind: domain.ActionKeySequence, Sequence: "first", Count: 1},
				},
			},
			{
				MatchingEvents: []domain.EventMatcher{noteOnMatcher(0, 60)},
				Actions: []domain.Action{
					{Kind: domain.ActionKeySequence, Sequence: "second", Count: 1},
				},
			},
		},
	}

	sig := d.Dispatch(context.Background(), cfg, domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 100})
	assert.Equal(t, runtime.SignalReloadMacros, sig)
	assert.Equal(t, []string{"first", "second"}, keySynth.chords)
}
