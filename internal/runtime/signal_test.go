package runtime

import (
	"testing"

	"github.com/michd/mmpd/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFromControlSignal(t *testing.T) {
	assert.Equal(t, SignalReloadMacros, FromControlSignal(domain.SignalReload))
	assert.Equal(t, SignalRestart, FromControlSignal(domain.SignalRestart))
	assert.Equal(t, SignalExit, FromControlSignal(domain.SignalExit))
	assert.Equal(t, SignalNone, FromControlSignal(domain.ControlSignal("bogus")))
}

func TestSignalString(t *testing.T) {
	assert.Equal(t, "reload_macros", SignalReloadMacros.String())
	assert.Equal(t, "restart", SignalRestart.String())
	assert.Equal(t, "exit", SignalExit.String())
	assert.Equal(t, "none", SignalNone.String())
}
