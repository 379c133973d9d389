package dispatch

import (
	"fmt"

	"github.com/michd/mmpd/internal/domain"
	"github.com/rs/zerolog"
)

// Monitor formats every parsed MIDI message for human inspection, per spec
// §4.7. It shares the ingest path with Dispatcher but never consults scopes
// and never executes actions.
type Monitor struct {
	log zerolog.Logger
}

// NewMonitor returns a Monitor that writes through log, matching the
// teacher's module-tagged logger convention (src/midi/midiclient.go:
// log.With().Str("module", "Midi").Logger()).
func NewMonitor(log zerolog.Logger) *Monitor {
	return &Monitor{log: log.With().Str("module", "Monitor").Logger()}
}

// Observe prints msg in a stable, human-readable form.
func (m *Monitor) Observe(msg domain.Message) {
	m.log.Info().Msg(Format(msg))
}

// Format renders msg the same way regardless of caller, so monitor output
// is stable across runs (spec §8 testable properties implicitly require
// this for any golden-output test).
func Format(msg domain.Message) string {
	switch msg.Type {
	case domain.NoteOn:
		return fmt.Sprintf("note_on    ch=%-2d key=%-3d velocity=%-3d", msg.Channel, msg.Key, msg.Velocity)
	case domain.NoteOff:
		return fmt.Sprintf("note_off   ch=%-2d key=%-3d velocity=%-3d", msg.Channel, msg.Key, msg.Velocity)
	case domain.PolyAftertouch:
		return fmt.Sprintf("poly_at    ch=%-2d key=%-3d value=%-3d", msg.Channel, msg.Key, msg.Value)
	case domain.ControlChange:
		return fmt.Sprintf("cc         ch=%-2d control=%-3d value=%-3d", msg.Channel, msg.Control, msg.Value)
	case domain.ProgramChange:
		return fmt.Sprintf("program    ch=%-2d program=%-3d", msg.Channel, msg.Program)
	case domain.ChannelAftertouch:
		return fmt.Sprintf("chan_at    ch=%-2d pressure=%-3d", msg.Channel, msg.Pressure)
	case domain.PitchBendChange:
		return fmt.Sprintf("pitchbend  ch=%-2d value=%-5d", msg.Channel, msg.PitchBend)
	default:
		return "other"
	}
}
