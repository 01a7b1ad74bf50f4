package session

import (
	"errors"
	"fmt"
	"sync"
)

// Tab is the display step a user is looking at. It mirrors Status but is
// chosen independently among unlocked tabs.
type Tab string

const (
	TabInput        Tab = "input"
	TabConfirmation Tab = "confirmation"
	TabResults      Tab = "results"
)

// ErrTabLocked is returned when a tab beyond the session's status is selected.
var ErrTabLocked = errors.New("tab is locked")

var tabs = []Tab{TabInput, TabConfirmation, TabResults}

// Ordinal orders tabs: input=0, confirmation=1, results=2. Unknown values are -1.
func (t Tab) Ordinal() int {
	for i, tab := range tabs {
		if tab == t {
			return i
		}
	}
	return -1
}

// ParseTab maps a user-supplied name onto a Tab.
func ParseTab(name string) (Tab, bool) {
	t := Tab(name)
	return t, t.Ordinal() >= 0
}

// TabFor is the tab that follows a status: complete shows results,
// confirmation shows confirmation, anything else shows input.
func TabFor(status Status) Tab {
	switch status {
	case StatusComplete:
		return TabResults
	case StatusConfirmation:
		return TabConfirmation
	}
	return TabInput
}

// Unlocked lists the tabs reachable at status, in order.
func Unlocked(status Status) []Tab {
	n := status.Ordinal() + 1
	if n < 1 {
		n = 1
	}
	return append([]Tab(nil), tabs[:n]...)
}

// CanSelect reports whether t is unlocked at status.
func CanSelect(t Tab, status Status) bool {
	o := t.Ordinal()
	return o >= 0 && o <= status.Ordinal()
}

// Navigator tracks the display tab of every session. It is transient view
// state and never persisted.
type Navigator struct {
	mu   sync.Mutex
	tabs map[string]Tab
}

// NewNavigator creates an empty navigator.
func NewNavigator() *Navigator {
	return &Navigator{tabs: make(map[string]Tab)}
}

// Current returns the tab shown for a session, following its status when none
// has been chosen yet.
func (n *Navigator) Current(id string, status Status) Tab {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.tabs[id]; ok && CanSelect(t, status) {
		return t
	}
	return TabFor(status)
}

// Follow moves the session's tab to match its status. Called on (re)selection
// and after a step completes.
func (n *Navigator) Follow(id string, status Status) Tab {
	n.mu.Lock()
	defer n.mu.Unlock()

	t := TabFor(status)
	n.tabs[id] = t
	return t
}

// Select moves to t if it is unlocked. A locked tab leaves the current tab
// unchanged.
func (n *Navigator) Select(id string, t Tab, status Status) error {
	if t.Ordinal() < 0 {
		return fmt.Errorf("unknown tab %q", t)
	}
	if !CanSelect(t, status) {
		return fmt.Errorf("%w: %s requires status beyond %s", ErrTabLocked, t, status)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.tabs[id] = t
	return nil
}

// Forget drops the tab state of a deleted session.
func (n *Navigator) Forget(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.tabs, id)
}
