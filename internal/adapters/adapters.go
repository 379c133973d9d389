// Package adapters provides the concrete, swappable implementations of the
// external collaborators spec §1/§6 name as out of core scope: the
// focused-window probe and the keystroke/text/shell executors. They shell
// out to xdotool/wmctrl, the same "open a handle to an external system"
// shape as the teacher's portmididrv.New()/drv.Close() driver boundary
// (src/midi/midiclient.go). None of this package is exercised by
// internal/dispatch directly -- it only sees the small interfaces in
// internal/dispatch/ports.go -- so tests substitute a Recorder instead.
package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/michd/mmpd/internal/domain"
	"github.com/rs/zerolog"
)

// XdotoolWindowProbe queries the focused window via `xdotool getactivewindow
// getwindowclassname getwindowname getwindowpid`, the one OS adapter spec §9
// Open Question (a) refers to.
type XdotoolWindowProbe struct {
	log zerolog.Logger
}

func NewXdotoolWindowProbe(log zerolog.Logger) *XdotoolWindowProbe {
	return &XdotoolWindowProbe{log: log.With().Str("module", "WindowProbe").Logger()}
}

func (p *XdotoolWindowProbe) FocusedWindow(ctx context.Context) (domain.WindowDescriptor, bool, error) {
	out, err := exec.CommandContext(ctx, "xdotool", "getactivewindow").CombinedOutput()
	if err != nil {
		return domain.WindowDescriptor{}, false, fmt.Errorf("xdotool getactivewindow: %w", err)
	}
	windowID := strings.TrimSpace(string(out))
	if windowID == "" {
		return domain.WindowDescriptor{}, false, nil
	}

	class, err := p.run(ctx, "getwindowclassname", windowID)
	if err != nil {
		return domain.WindowDescriptor{}, false, err
	}
	name, err := p.run(ctx, "getwindowname", windowID)
	if err != nil {
		return domain.WindowDescriptor{}, false, err
	}

	desc := domain.WindowDescriptor{WindowClass: class, WindowName: name}

	if pid, err := p.run(ctx, "getwindowpid", windowID); err == nil && pid != "" {
		if exePath, err := os.Readlink(fmt.Sprintf("/proc/%s/exe", pid)); err == nil {
			desc.ExecutablePath = exePath
			desc.HasExecutable = true
		}
	}

	return desc, true, nil
}

func (p *XdotoolWindowProbe) run(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "xdotool", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("xdotool %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// XdotoolKeySynth synthesizes chords via `xdotool key <chord>`. Chord syntax
// (+-joined X keysym names) is xdotool's own, so no translation is needed.
type XdotoolKeySynth struct{}

func (XdotoolKeySynth) SendChord(ctx context.Context, chord string) error {
	if err := exec.CommandContext(ctx, "xdotool", "key", chord).Run(); err != nil {
		return fmt.Errorf("xdotool key %s: %w", chord, err)
	}
	return nil
}

// XdotoolTextSynth synthesizes a single code point via `xdotool type`.
// Spec §4.6: "Escaping is the synthesizer's responsibility" -- xdotool type
// handles arbitrary UTF-8 text, no escaping needed here.
type XdotoolTextSynth struct{}

func (XdotoolTextSynth) SendRune(ctx context.Context, r rune) error {
	if err := exec.CommandContext(ctx, "xdotool", "type", "--", string(r)).Run(); err != nil {
		return fmt.Errorf("xdotool type %q: %w", r, err)
	}
	return nil
}

// OSShellRunner spawns a detached subprocess, merging env over (not
// replacing) the inherited environment, per spec §4.6.
type OSShellRunner struct{}

func (OSShellRunner) Spawn(command string, args []string, env map[string]string) error {
	cmd := exec.Command(command, args...)
	cmd.Env = mergeEnv(os.Environ(), env)
	// The dispatcher never waits for completion or reads output (spec
	// §4.6); Start, don't Run, and don't wire Stdout/Stderr.
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning %s: %w", command, err)
	}
	go cmd.Wait() // reap without blocking the dispatcher
	return nil
}

func mergeEnv(base []string, overrides map[string]string) []string {
	merged := append([]string(nil), base...)
	for k, v := range overrides {
		merged = append(merged, k+"="+v)
	}
	return merged
}

// RealSleeper sleeps for real, honoring context cancellation.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, micros int64) {
	if micros <= 0 {
		return
	}
	timer := time.NewTimer(time.Duration(micros) * time.Microsecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

