// Package dashboard holds the navigation state of the patient and hospital
// dashboard shells.
package dashboard

import (
	"errors"
	"sync"
)

// DefaultView is the tab every shell opens on.
const DefaultView = "profile"

// ErrUnknownView is returned when selecting a tab the shell does not have.
var ErrUnknownView = errors.New("dashboard: unknown view")

// NavItem is one tab.
type NavItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// Shell is a named set of tabs.
type Shell struct {
	Name  string
	Items []NavItem
}

// PatientShell is the patient dashboard.
func PatientShell() Shell {
	return Shell{Name: "patient", Items: []NavItem{
		{ID: "profile", Label: "Profile", Icon: "profile"},
		{ID: "hospitals", Label: "Hospitals", Icon: "hospitals"},
		{ID: "doctors", Label: "Doctors", Icon: "doctors"},
		{ID: "booking", Label: "Book Appointment", Icon: "booking"},
		{ID: "history", Label: "History & Notifications", Icon: "history"},
	}}
}

// HospitalShell is the hospital operator dashboard.
func HospitalShell() Shell {
	return Shell{Name: "hospital", Items: []NavItem{
		{ID: "profile", Label: "Profile", Icon: "profile"},
		{ID: "doctors", Label: "Doctors", Icon: "doctors"},
		{ID: "appointments", Label: "Appointments", Icon: "appointments"},
		{ID: "notifications", Label: "Notifications", Icon: "notifications"},
	}}
}

// Has reports whether view is one of the shell's tabs.
func (s Shell) Has(view string) bool {
	for _, item := range s.Items {
		if item.ID == view {
			return true
		}
	}
	return false
}

// Navigator remembers the active tab of each session.
type Navigator struct {
	shell  Shell
	mu     sync.Mutex
	active map[string]string
}

func NewNavigator(shell Shell) *Navigator {
	return &Navigator{shell: shell, active: make(map[string]string)}
}

func (n *Navigator) Shell() Shell { return n.shell }

// Active returns the session's tab, DefaultView when none was selected.
func (n *Navigator) Active(sessionID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if v, ok := n.active[sessionID]; ok {
		return v
	}
	return DefaultView
}

// Select switches the session's tab.
func (n *Navigator) Select(sessionID, view string) error {
	if !n.shell.Has(view) {
		return ErrUnknownView
	}
	n.mu.Lock()
	n.active[sessionID] = view
	n.mu.Unlock()
	return nil
}

// Forget drops the session's state.
func (n *Navigator) Forget(sessionID string) {
	n.mu.Lock()
	delete(n.active, sessionID)
	n.mu.Unlock()
}
