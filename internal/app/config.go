// Package app wires the core engine (internal/configparser, internal/
// dispatch, internal/miditracker) to its external collaborators
// (internal/midiadapter, internal/adapters) and the CLI, the way
// src/pulsekontrol.go wires the teacher's configuration/midi/pulseaudio/
// webui packages together.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/michd/mmpd/internal/domain"
	"github.com/rs/zerolog/log"
)

// defaultConfigYAML seeds a fresh install with one harmless global macro so
// the freshly written file satisfies "at least one macro" (spec §4.3) and
// gives the user something concrete to edit, the same way the teacher's
// GetDefaultConfig() seeds eight sliders and eight knobs.
const defaultConfigYAML = `version: 1
global_macros:
  - matching_events:
      - type: midi
        message_type: note_on
        key: 60
    actions:
      - type: key_sequence
        data: "ctrl+t"
`

// LoadSource finds and reads the configuration file, writing a fresh
// default if none exists, mirroring the teacher's
// configuration.Load() search-path-then-default-then-write shape
// (./config.yaml, then ~/.config/<app>/config.yaml).
func LoadSource(explicitPath string) (source []byte, path string, err error) {
	if explicitPath != "" {
		content, err := os.ReadFile(explicitPath)
		if err != nil {
			return nil, "", fmt.Errorf("reading configuration %s: %w", explicitPath, err)
		}
		return content, explicitPath, nil
	}

	homeDir, _ := os.UserHomeDir()
	defaultPath := filepath.Join(homeDir, ".config", "mmpd", "config.yaml")
	candidates := []string{"./config.yaml", defaultPath}

	for _, candidate := range candidates {
		content, err := os.ReadFile(candidate)
		if err == nil {
			return content, candidate, nil
		}
	}

	configDir := filepath.Join(homeDir, ".config", "mmpd")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, "", fmt.Errorf("creating configuration directory: %w", err)
	}
	if err := os.WriteFile(defaultPath, []byte(defaultConfigYAML), 0644); err != nil {
		return nil, "", fmt.Errorf("writing default configuration: %w", err)
	}
	log.Info().Str("path", defaultPath).Msg("Wrote default configuration")
	return []byte(defaultConfigYAML), defaultPath, nil
}

// ConfigManager holds the process-lifetime active configuration behind a
// pointer that is swapped atomically on reload_macros, per spec §3.8/§5
// ("reload_macros publishes a new configuration atomically between dispatch
// cycles"). Adapted from the teacher's ConfigManager (src/configuration/
// manager.go): same Subscribe/Notify pub-sub shape, narrowed to the one
// event this module needs to broadcast (config replaced) and with the
// debounced-disk-save half removed -- this module never writes derived
// runtime state back to disk (spec §1 Non-goals: no persistence).
type ConfigManager struct {
	current     atomicConfig
	path        string
	subscribers []func(*domain.Configuration)
}

// NewConfigManager creates a manager already holding cfg.
func NewConfigManager(cfg *domain.Configuration, path string) *ConfigManager {
	cm := &ConfigManager{path: path}
	cm.current.Store(cfg)
	return cm
}

// Get returns the currently active configuration. Safe to call
// concurrently with Replace.
func (cm *ConfigManager) Get() *domain.Configuration {
	return cm.current.Load()
}

// Path returns the configuration file path this manager was loaded from.
func (cm *ConfigManager) Path() string {
	return cm.path
}

// Replace atomically swaps in a new configuration and notifies subscribers.
func (cm *ConfigManager) Replace(cfg *domain.Configuration) {
	cm.current.Store(cfg)
	for _, fn := range cm.subscribers {
		fn(cfg)
	}
}

// Subscribe registers a callback invoked after every Replace, matching the
// teacher's ConfigManager.Subscribe shape (manager.go).
func (cm *ConfigManager) Subscribe(fn func(*domain.Configuration)) {
	cm.subscribers = append(cm.subscribers, fn)
}

// Reload re-reads the configuration from disk and, if it parses cleanly,
// replaces the active configuration. On parse failure the previous
// configuration is kept, per spec §7 ("on reload_macros, keeps the previous
// configuration and logs"). A successful parse with zero total macros is
// still a replace as far as Reload is concerned; the caller (runDispatchLoop)
// is the one that turns that specific outcome into a clean process exit.
func (cm *ConfigManager) Reload(parse func([]byte) (*domain.Configuration, error)) error {
	source, err := os.ReadFile(cm.path)
	if err != nil {
		return fmt.Errorf("re-reading configuration %s: %w", cm.path, err)
	}
	cfg, err := parse(source)
	if err != nil {
		return err
	}
	cm.Replace(cfg)
	return nil
}
