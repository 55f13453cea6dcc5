package client

import (
	"errors"
	"sync"
)

var (
	ErrLastTab  = errors.New("cannot remove the last tab")
	ErrTabIndex = errors.New("tab index out of range")
)

// Tabs is the ordered list of logical connections with a selected tab.
type Tabs struct {
	mu      sync.RWMutex
	tabs    []*Supervisor
	current int
	opts    []Option
}

// OpenTabs opens one supervisor per configuration, in order. An empty list
// opens a single tab with DefaultConnectionConfig.
func OpenTabs(cfgs []ConnectionConfig, opts ...Option) *Tabs {
	if len(cfgs) == 0 {
		cfgs = []ConnectionConfig{DefaultConnectionConfig()}
	}
	t := &Tabs{opts: opts}
	for _, cfg := range cfgs {
		t.tabs = append(t.tabs, NewSupervisor(cfg, opts...))
	}
	return t
}

// Add opens a new tab at the end and returns its index.
func (t *Tabs) Add(cfg ConnectionConfig) int {
	sup := NewSupervisor(cfg, t.opts...)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tabs = append(t.tabs, sup)
	return len(t.tabs) - 1
}

// Remove closes and removes tab i. The last remaining tab cannot be removed.
func (t *Tabs) Remove(i int) error {
	t.mu.Lock()
	if i < 0 || i >= len(t.tabs) {
		t.mu.Unlock()
		return ErrTabIndex
	}
	if len(t.tabs) == 1 {
		t.mu.Unlock()
		return ErrLastTab
	}
	sup := t.tabs[i]
	t.tabs = append(t.tabs[:i], t.tabs[i+1:]...)
	if t.current > i || t.current >= len(t.tabs) {
		t.current--
	}
	t.mu.Unlock()

	sup.Close()
	return nil
}

// Select makes tab i current.
func (t *Tabs) Select(i int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.tabs) {
		return ErrTabIndex
	}
	t.current = i
	return nil
}

// Current returns the selected tab and its index.
func (t *Tabs) Current() (int, *Supervisor) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, t.tabs[t.current]
}

// Len returns the number of tabs.
func (t *Tabs) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tabs)
}

// All returns the tabs in order.
func (t *Tabs) All() []*Supervisor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Supervisor(nil), t.tabs...)
}

// Configs returns every tab configuration in order, for persistence.
func (t *Tabs) Configs() []ConnectionConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cfgs := make([]ConnectionConfig, 0, len(t.tabs))
	for _, sup := range t.tabs {
		cfgs = append(cfgs, sup.Config())
	}
	return cfgs
}

// Close closes every tab's session.
func (t *Tabs) Close() {
	for _, sup := range t.All() {
		sup.Close()
	}
}
