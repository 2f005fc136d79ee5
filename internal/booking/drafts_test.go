package booking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftsArePerSession(t *testing.T) {
	d := NewDrafts()
	require.NoError(t, d.With("s-1", func(w *Wizard) error {
		return w.Apply(DraftPatch{Hospital: strptr("Lotus")})
	}))
	require.NoError(t, d.With("s-2", func(w *Wizard) error {
		assert.Equal(t, "", w.Draft().Hospital)
		return nil
	}))
	assert.Equal(t, 2, d.Len())

	d.Discard("s-1")
	require.NoError(t, d.With("s-1", func(w *Wizard) error {
		assert.Equal(t, Draft{}, w.Draft())
		return nil
	}))
}

func TestDraftsSweepDropsIdle(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	d := NewDrafts()
	d.now = func() time.Time { return now }
	require.NoError(t, d.With("old", func(*Wizard) error { return nil }))

	now = now.Add(time.Hour)
	require.NoError(t, d.With("fresh", func(*Wizard) error { return nil }))

	assert.Equal(t, 1, d.Sweep(now.Add(-30*time.Minute)))
	assert.Equal(t, 1, d.Len())
}

func TestDraftsSerialiseSameSession(t *testing.T) {
	d := NewDrafts()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.With("s-1", func(w *Wizard) error {
				w.StartWithDoctor("Lotus", "Dr. Kavya")
				w.Back()
				return nil
			})
		}()
	}
	wg.Wait()
	require.NoError(t, d.With("s-1", func(w *Wizard) error {
		assert.Equal(t, StepSelectHospital, w.Step())
		return nil
	}))
}
