package miditracker

import (
	"testing"

	"github.com/michd/mmpd/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNoteOnThenOff(t *testing.T) {
	tr := New()
	tr.Update(domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 100})
	assert.True(t, tr.IsNoteOn(0, 60))

	tr.Update(domain.Message{Type: domain.NoteOff, Channel: 0, Key: 60})
	assert.False(t, tr.IsNoteOn(0, 60))
}

func TestNoteOnZeroVelocityActsAsNoteOff(t *testing.T) {
	tr := New()
	tr.Update(domain.Message{Type: domain.NoteOn, Channel: 2, Key: 40, Velocity: 64})
	assert.True(t, tr.IsNoteOn(2, 40))

	tr.Update(domain.Message{Type: domain.NoteOn, Channel: 2, Key: 40, Velocity: 0})
	assert.False(t, tr.IsNoteOn(2, 40))
}

func TestControlAbsentUntilObserved(t *testing.T) {
	tr := New()
	_, ok := tr.Control(0, 7)
	assert.False(t, ok)

	tr.Update(domain.Message{Type: domain.ControlChange, Channel: 0, Control: 7, Value: 90})
	v, ok := tr.Control(0, 7)
	assert.True(t, ok)
	assert.EqualValues(t, 90, v)
}

func TestProgramAndPitchBendAbsence(t *testing.T) {
	tr := New()
	_, ok := tr.Program(1)
	assert.False(t, ok)
	_, ok = tr.PitchBend(1)
	assert.False(t, ok)

	tr.Update(domain.Message{Type: domain.ProgramChange, Channel: 1, Program: 5})
	p, ok := tr.Program(1)
	assert.True(t, ok)
	assert.EqualValues(t, 5, p)

	tr.Update(domain.Message{Type: domain.PitchBendChange, Channel: 1, PitchBend: 12000})
	pb, ok := tr.PitchBend(1)
	assert.True(t, ok)
	assert.EqualValues(t, 12000, pb)
}

func TestChannelsAreIndependent(t *testing.T) {
	tr := New()
	tr.Update(domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 10})
	assert.False(t, tr.IsNoteOn(1, 60))
}

func TestOutOfRangeChannelIsIgnored(t *testing.T) {
	tr := New()
	tr.Update(domain.Message{Type: domain.NoteOn, Channel: 16, Key: 60, Velocity: 10})
	assert.False(t, tr.IsNoteOn(16, 60))
}

func TestHeldNotesSorted(t *testing.T) {
	tr := New()
	tr.Update(domain.Message{Type: domain.NoteOn, Channel: 0, Key: 64, Velocity: 10})
	tr.Update(domain.Message{Type: domain.NoteOn, Channel: 0, Key: 60, Velocity: 10})
	tr.Update(domain.Message{Type: domain.NoteOn, Channel: 0, Key: 67, Velocity: 10})
	assert.Equal(t, []uint8{60, 64, 67}, tr.HeldNotes(0))
}
