package systemd

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeManager is an in-memory Manager for tests. Calls are recorded as
// "op name"; an entry in Errors under the same key makes that call fail.
type FakeManager struct {
	mu      sync.Mutex
	units   map[string][]byte
	enabled map[string]bool
	states  map[string]string
	next    map[string]time.Time
	calls   []string

	Errors map[string]error
}

var _ Manager = (*FakeManager)(nil)

func NewFakeManager() *FakeManager {
	return &FakeManager{
		units:   make(map[string][]byte),
		enabled: make(map[string]bool),
		states:  make(map[string]string),
		next:    make(map[string]time.Time),
		Errors:  make(map[string]error),
	}
}

func (f *FakeManager) record(op, name string) error {
	key := op + " " + name
	f.calls = append(f.calls, key)
	return f.Errors[key]
}

// Calls returns the recorded calls in order
func (f *FakeManager) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how often op was called for name
func (f *FakeManager) Count(op, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op+" "+name {
			n++
		}
	}
	return n
}

func (f *FakeManager) UnitFile(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.units[name]
	return data, ok
}

func (f *FakeManager) IsEnabled(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled[name]
}

func (f *FakeManager) SetState(name, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[name] = state
}

func (f *FakeManager) SetNextElapse(name string, t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next[name] = t
}

func (f *FakeManager) Define(ctx context.Context, u Unit) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("define", u.Name); err != nil {
		return false, err
	}
	data, err := u.Render()
	if err != nil {
		return false, err
	}
	if string(f.units[u.Name]) == string(data) {
		return false, nil
	}
	f.units[u.Name] = data
	return true, nil
}

func (f *FakeManager) IsDefined(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.units[name]
	return ok, nil
}

func (f *FakeManager) Enable(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("enable", name); err != nil {
		return err
	}
	if _, ok := f.units[name]; !ok {
		return fmt.Errorf("unit %s not found", name)
	}
	f.enabled[name] = true
	return nil
}

func (f *FakeManager) Disable(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("disable", name); err != nil {
		return err
	}
	delete(f.enabled, name)
	return nil
}

func (f *FakeManager) Start(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("start", name); err != nil {
		return err
	}
	if _, ok := f.units[name]; !ok {
		return fmt.Errorf("unit %s not found", name)
	}
	f.states[name] = StateActive
	return nil
}

func (f *FakeManager) Stop(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("stop", name); err != nil {
		return err
	}
	if f.states[name] == StateActive {
		f.states[name] = StateInactive
	}
	return nil
}

func (f *FakeManager) Restart(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("restart", name); err != nil {
		return err
	}
	if _, ok := f.units[name]; !ok {
		return fmt.Errorf("unit %s not found", name)
	}
	f.states[name] = StateActive
	return nil
}

func (f *FakeManager) ActiveState(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if state, ok := f.states[name]; ok {
		return state, nil
	}
	return StateInactive, nil
}

func (f *FakeManager) NextElapse(ctx context.Context, name string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next[name], nil
}
