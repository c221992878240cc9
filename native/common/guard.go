package common

import (
	"errors"
	"sync"
)

// ErrModulePaused is returned when a mutating operation hits a paused module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module's mutating flows are halted.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the module is administratively paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is a concurrency-safe pause switchboard implementing PauseView.
type Pauses struct {
	mu      sync.RWMutex
	modules map[string]bool
}

func NewPauses() *Pauses {
	return &Pauses{modules: make(map[string]bool)}
}

func (p *Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modules[module]
}

// Set toggles the pause flag for a module.
func (p *Pauses) Set(module string, paused bool) {
	if p == nil || module == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modules[module] = paused
}
