// Package midiadapter is the external MIDI transport collaborator named in
// spec §1/§6: hardware enumeration and raw byte delivery via
// gitlab.com/gomidi/midi/v2, translated into domain.Message before handing
// off to the dispatcher or monitor. Grounded directly on the teacher's
// src/midi/midiclient.go (listDevices, List, MidiClient.Run).
package midiadapter

import (
	"fmt"

	"github.com/michd/mmpd/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	driver "gitlab.com/gomidi/midi/v2/drivers/portmididrv"
)

// ListDevices returns the names of all available MIDI input ports, mirroring
// the teacher's midi.listDevices/midi.List.
func ListDevices() ([]string, error) {
	drv, err := driver.New()
	if err != nil {
		return nil, fmt.Errorf("opening MIDI driver: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI input ports: %w", err)
	}

	names := make([]string, 0, len(ins))
	for _, port := range ins {
		names = append(names, port.String())
	}
	return names, nil
}

// List logs every available MIDI input port, for the list-midi-devices CLI
// subcommand (spec §6.5).
func List() error {
	l := log.With().Str("module", "Midi").Logger()
	names, err := ListDevices()
	if err != nil {
		return err
	}
	for _, name := range names {
		l.Info().Msgf("Found midi in device:\t%s", name)
	}
	return nil
}

// Source opens a named MIDI input port and delivers translated messages to
// a handler, until Close is called.
type Source struct {
	log  zerolog.Logger
	drv  *driver.Driver
	in   drivers.In
	stop func()
}

// Open finds and opens the input port named portName.
func Open(logger zerolog.Logger, portName string) (*Source, error) {
	drv, err := driver.New()
	if err != nil {
		return nil, fmt.Errorf("opening MIDI driver: %w", err)
	}

	in, err := midi.FindInPort(portName)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("finding MIDI in port %q: %w", portName, err)
	}

	if err := in.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("opening MIDI in port %q: %w", portName, err)
	}

	return &Source{
		log: logger.With().Str("module", "Midi").Str("port", portName).Logger(),
		drv: drv,
		in:  in,
	}, nil
}

// Listen registers handler to be called for every translated message until
// Close is called. Unrecognized message types are delivered as
// domain.Other; recognized channel messages that fail to decode are logged
// and dropped.
func (s *Source) Listen(handler func(domain.Message)) error {
	stop, err := midi.ListenTo(s.in, func(msg midi.Message, _ int32) {
		translated, ok := Translate(msg)
		if !ok {
			s.log.Debug().Msg("received unrecognized MIDI message")
			return
		}
		handler(translated)
	})
	if err != nil {
		return fmt.Errorf("listening to MIDI in port: %w", err)
	}
	s.stop = stop
	return nil
}

// Close releases the MIDI input handle, per spec §5 "Resource acquisition".
func (s *Source) Close() {
	if s.stop != nil {
		s.stop()
	}
	if s.in != nil {
		s.in.Close()
	}
	if s.drv != nil {
		s.drv.Close()
	}
}

// Translate converts a gomidi message into a domain.Message, per spec §3.1.
// Message types with no modelled fields (e.g. SysEx, clock, MTC) translate
// to domain.Other with ok true; ok is false only when a recognized channel
// message fails to decode.
func Translate(msg midi.Message) (domain.Message, bool) {
	switch msg.Type() {
	case midi.NoteOnMsg:
		var channel, key, velocity uint8
		if !msg.GetNoteOn(&channel, &key, &velocity) {
			return domain.Message{}, false
		}
		return domain.Message{Type: domain.NoteOn, Channel: channel, Key: key, Velocity: velocity}, true
	case midi.NoteOffMsg:
		var channel, key, velocity uint8
		if !msg.GetNoteOff(&channel, &key, &velocity) {
			return domain.Message{}, false
		}
		return domain.Message{Type: domain.NoteOff, Channel: channel, Key: key, Velocity: velocity}, true
	case midi.PolyAfterTouchMsg:
		var channel, key, value uint8
		if !msg.GetPolyAfterTouch(&channel, &key, &value) {
			return domain.Message{}, false
		}
		return domain.Message{Type: domain.PolyAftertouch, Channel: channel, Key: key, Value: value}, true
	case midi.ControlChangeMsg:
		var channel, control, value uint8
		if !msg.GetControlChange(&channel, &control, &value) {
			return domain.Message{}, false
		}
		return domain.Message{Type: domain.ControlChange, Channel: channel, Control: control, Value: value}, true
	case midi.ProgramChangeMsg:
		var channel, program uint8
		if !msg.GetProgramChange(&channel, &program) {
			return domain.Message{}, false
		}
		return domain.Message{Type: domain.ProgramChange, Channel: channel, Program: program}, true
	case midi.AfterTouchMsg:
		var channel, pressure uint8
		if !msg.GetAfterTouch(&channel, &pressure) {
			return domain.Message{}, false
		}
		return domain.Message{Type: domain.ChannelAftertouch, Channel: channel, Pressure: pressure}, true
	case midi.PitchBendMsg:
		var channel uint8
		var relative int16
		var absolute uint16
		if !msg.GetPitchBend(&channel, &relative, &absolute) {
			return domain.Message{}, false
		}
		return domain.Message{Type: domain.PitchBendChange, Channel: channel, PitchBend: absolute}, true
	default:
		return domain.Message{Type: domain.Other}, true
	}
}
