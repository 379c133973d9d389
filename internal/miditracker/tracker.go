// Package miditracker maintains derived MIDI state (held notes, last
// control/program/pitch-bend values) from the live message stream, per spec
// §4.4. It is written only by the dispatcher goroutine, directly after
// ingest and before matching, and read only by the dispatcher goroutine
// during precondition evaluation -- no locking is needed (spec §5 "Shared
// state").
package miditracker

import (
	"github.com/michd/mmpd/internal/domain"
	"github.com/samber/lo"
)

const channelCount = 16

type channelState struct {
	notesOn   map[uint8]struct{}
	controls  map[uint8]uint8
	program   uint8
	hasProgram bool
	pitchBend uint16
	hasPitchBend bool
}

func newChannelState() *channelState {
	return &channelState{
		notesOn:  make(map[uint8]struct{}),
		controls: make(map[uint8]uint8),
	}
}

// Tracker holds per-channel derived MIDI state for the life of the process.
// Entries are never aged out; they persist until the process restarts, per
// spec §4.4.
type Tracker struct {
	channels [channelCount]*channelState
}

// New returns an empty Tracker.
func New() *Tracker {
	t := &Tracker{}
	for i := range t.channels {
		t.channels[i] = newChannelState()
	}
	return t
}

// Update applies one parsed MIDI message to the tracker, per spec §4.4.
// Message variants other than note_on/note_off/control_change/
// program_change/pitch_bend_change do not alter state.
func (t *Tracker) Update(msg domain.Message) {
	if int(msg.Channel) >= channelCount {
		return
	}
	ch := t.channels[msg.Channel]

	switch msg.Type {
	case domain.NoteOn:
		if msg.Velocity > 0 {
			ch.notesOn[msg.Key] = struct{}{}
		} else {
			delete(ch.notesOn, msg.Key)
		}
	case domain.NoteOff:
		delete(ch.notesOn, msg.Key)
	case domain.ControlChange:
		ch.controls[msg.Control] = msg.Value
	case domain.ProgramChange:
		ch.program = msg.Program
		ch.hasProgram = true
	case domain.PitchBendChange:
		ch.pitchBend = msg.PitchBend
		ch.hasPitchBend = true
	}
}

// IsNoteOn reports whether key is currently held on channel.
func (t *Tracker) IsNoteOn(channel, key uint8) bool {
	if int(channel) >= channelCount {
		return false
	}
	_, ok := t.channels[channel].notesOn[key]
	return ok
}

// Control returns the last observed value for controller number control on
// channel, and whether one has been observed.
func (t *Tracker) Control(channel, control uint8) (uint8, bool) {
	if int(channel) >= channelCount {
		return 0, false
	}
	v, ok := t.channels[channel].controls[control]
	return v, ok
}

// Program returns the last observed program change on channel, and whether
// one has been observed.
func (t *Tracker) Program(channel uint8) (uint8, bool) {
	if int(channel) >= channelCount {
		return 0, false
	}
	ch := t.channels[channel]
	return ch.program, ch.hasProgram
}

// PitchBend returns the last observed pitch-bend value on channel, and
// whether one has been observed.
func (t *Tracker) PitchBend(channel uint8) (uint16, bool) {
	if int(channel) >= channelCount {
		return 0, false
	}
	ch := t.channels[channel]
	return ch.pitchBend, ch.hasPitchBend
}

// HeldNotes returns the sorted keys currently held on channel, mainly for
// diagnostics and tests.
func (t *Tracker) HeldNotes(channel uint8) []uint8 {
	if int(channel) >= channelCount {
		return nil
	}
	keys := lo.Keys(t.channels[channel].notesOn)
	return sortUint8(keys)
}

func sortUint8(in []uint8) []uint8 {
	out := append([]uint8(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
