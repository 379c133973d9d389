package configparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinimalValidConfiguration(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
        key: 60
    actions:
      - type: key_sequence
        data: "ctrl+t"
`)
	cfg, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, cfg.GlobalMacros, 1)
	assert.Len(t, cfg.GlobalMacros[0].Actions, 1)
}

func TestParseRejectsEmptyMatchingEvents(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events: []
    actions:
      - type: key_sequence
        data: "a"
`)
	_, err := Parse(src)
	assert.Error(t, err)
}

func TestParseRejectsEmptyActions(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
    actions: []
`)
	_, err := Parse(src)
	assert.Error(t, err)
}

func TestParseAcceptsDocumentWithNoMacros(t *testing.T) {
	src := []byte(`
version: 1
`)
	_, err := Parse(src)
	assert.NoError(t, err)
}

func TestParseRejectsOutOfRangeChannel(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
        channel: 16
    actions:
      - type: key_sequence
        data: "a"
`)
	_, err := Parse(src)
	assert.Error(t, err)
}

func TestParseRejectsOutOfRangeKey(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
        key: 128
    actions:
      - type: key_sequence
        data: "a"
`)
	_, err := Parse(src)
	assert.Error(t, err)
}

func TestParseRejectsOutOfRangePitchBend(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: pitch_bend_change
        value: 16384
    actions:
      - type: key_sequence
        data: "a"
`)
	_, err := Parse(src)
	assert.Error(t, err)
}

func TestParseDelayWinsOverDelayMs(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
    actions:
      - type: key_sequence
        data:
          sequence: "a b"
          delay: 42
          delay_ms: 9999
`)
	cfg, err := Parse(src)
	require.NoError(t, err)
	assert.EqualValues(t, 42, cfg.GlobalMacros[0].Actions[0].DelayMicros)
}

func TestParseDurationWinsOverDurationMsUnlessNegative(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
    actions:
      - type: wait
        data:
          duration: -1
          duration_ms: 5
`)
	cfg, err := Parse(src)
	require.NoError(t, err)
	assert.EqualValues(t, 5000, cfg.GlobalMacros[0].Actions[0].WaitMicros)
}

func TestParseShorthandKeySequenceEquivalentToFullForm(t *testing.T) {
	shorthand := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
    actions:
      - type: key_sequence
        data: "ctrl+t"
`)
	full := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
    actions:
      - type: key_sequence
        data:
          sequence: "ctrl+t"
          count: 1
          delay: 100
`)
	cfgShort, err := Parse(shorthand)
	require.NoError(t, err)
	cfgFull, err := Parse(full)
	require.NoError(t, err)

	assert.Equal(t, cfgFull.GlobalMacros[0].Actions[0], cfgShort.GlobalMacros[0].Actions[0])
}

func TestParseScopeRequiresAtLeastOneSubMatcher(t *testing.T) {
	src := []byte(`
version: 1
scopes:
  - macros:
      - matching_events:
          - type: midi
            message_type: note_on
        actions:
          - type: key_sequence
            data: "a"
`)
	_, err := Parse(src)
	assert.Error(t, err)
}

func TestParseShellRequiresAbsolutePath(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
    actions:
      - type: shell
        data:
          command: "relative/path"
`)
	_, err := Parse(src)
	assert.Error(t, err)
}

func TestParseControlActionShorthand(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
    actions:
      - type: control
        data: "exit"
`)
	cfg, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "exit", string(cfg.GlobalMacros[0].Actions[0].Signal))
}

func TestParseNegativeDurationWithNoFallbackIsAnError(t *testing.T) {
	src := []byte(`
version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
    actions:
      - type: wait
        data:
          duration: -1
`)
	_, err := Parse(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait data requires 'duration' or 'duration_ms'")
}

func TestParseAllowsZeroMacros(t *testing.T) {
	// Whether a zero-macro configuration is acceptable is a question the
	// caller answers (fatal on first load, clean shutdown on reload_macros
	// success, spec §4.3/§7); Parse itself just reports what's there.
	src := []byte(`version: 1`)
	cfg, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.TotalMacros())
}

func TestMarshalThenParseRoundTrips(t *testing.T) {
	src := []byte(`
version: 1
scopes:
  - window_class:
      is: "firefox"
    macros:
      - matching_events:
          - type: midi
            message_type: control_change
            channel: 2
            control: 7
            value:
              min: 10
              max: 20
            preconditions:
              - type: midi
                condition_type: note_on
                channel: 0
                key: 36
                invert: true
        required_preconditions:
          - type: midi
            condition_type: pitch_bend
            channel: 3
            value: [1, 2, {min: 100, max: 200}]
        actions:
          - type: key_sequence
            data:
              sequence: "ctrl+t"
              count: 3
              delay: 50
          - type: shell
            data:
              command: "/usr/bin/true"
              args: ["-a", "-b"]
              env:
                FOO: "bar"
          - type: wait
            data: 250
          - type: control
            data:
              action: restart
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
        key: 60
    actions:
      - type: enter_text
        data: "hi"
`)
	original, err := Parse(src)
	require.NoError(t, err)

	serialized, err := Marshal(original)
	require.NoError(t, err)

	reparsed, err := Parse(serialized)
	require.NoError(t, err)

	assert.Equal(t, original, reparsed)
}
