package booking

import (
	"context"
	"sync"
	"time"
)

// Drafts holds one wizard per session. Abandoned wizards are dropped by
// Discard or by the idle sweeper.
type Drafts struct {
	mu      sync.Mutex
	entries map[string]*draftEntry
	now     func() time.Time
}

type draftEntry struct {
	mu      sync.Mutex
	wizard  *Wizard
	touched time.Time
}

// NewDrafts creates an empty registry.
func NewDrafts() *Drafts {
	return &Drafts{entries: make(map[string]*draftEntry), now: time.Now}
}

// With runs fn with exclusive access to the session's wizard, creating it
// on first use.
func (d *Drafts) With(sessionID string, fn func(w *Wizard) error) error {
	d.mu.Lock()
	entry, ok := d.entries[sessionID]
	if !ok {
		entry = &draftEntry{wizard: NewWizard()}
		d.entries[sessionID] = entry
	}
	entry.touched = d.now()
	d.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.wizard)
}

// Discard drops the session's wizard without prompting.
func (d *Drafts) Discard(sessionID string) {
	d.mu.Lock()
	delete(d.entries, sessionID)
	d.mu.Unlock()
}

// Len returns the number of live wizards.
func (d *Drafts) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Sweep drops wizards untouched since cutoff.
func (d *Drafts) Sweep(cutoff time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	dropped := 0
	for id, entry := range d.entries {
		if entry.touched.Before(cutoff) {
			delete(d.entries, id)
			dropped++
		}
	}
	return dropped
}

// RunSweeper discards wizards idle longer than idle, checking every
// interval until ctx is done.
func (d *Drafts) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep(d.now().Add(-idle))
		}
	}
}
