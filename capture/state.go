package capture

import "sync"

// State is the capture enable flag. It is injected into the watcher at
// construction and mutated only through SetEnabled (driven by control
// messages), never by the watcher itself: extraction faults leave it
// untouched. No free-standing module state — multiple watchers get
// independent flags.
type State struct {
	mu      sync.Mutex
	enabled bool
}

// NewState creates a State. The pipeline starts idle unless enabled here.
func NewState(enabled bool) *State {
	return &State{enabled: enabled}
}

// Enabled reports whether capture is active.
func (s *State) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetEnabled flips the flag. enable → active, disable → idle; these are
// the only transitions.
func (s *State) SetEnabled(v bool) {
	s.mu.Lock()
	s.enabled = v
	s.mu.Unlock()
}
