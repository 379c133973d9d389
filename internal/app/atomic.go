package app

import (
	"sync/atomic"

	"github.com/michd/mmpd/internal/domain"
)

// atomicConfig is a thin wrapper over atomic.Pointer so ConfigManager's
// field declaration stays readable.
type atomicConfig struct {
	p atomic.Pointer[domain.Configuration]
}

func (a *atomicConfig) Store(cfg *domain.Configuration) { a.p.Store(cfg) }
func (a *atomicConfig) Load() *domain.Configuration      { return a.p.Load() }
