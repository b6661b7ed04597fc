package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTo(t *testing.T) {
	sm := NewWithState("draft")
	sm.AddTransition("draft", "active")
	sm.AddTransition("active", "done")

	assert.NoError(t, sm.TransitionTo("active"))
	assert.Equal(t, "active", sm.Current())

	assert.Error(t, sm.TransitionTo("draft"))
	assert.NoError(t, sm.TransitionTo("done"))
}

func TestTerminalStateSealed(t *testing.T) {
	sm := NewWithState("active")
	sm.AddTransition("active", "done")

	assert.False(t, sm.IsTerminal())
	assert.NoError(t, sm.TransitionTo("done"))
	assert.True(t, sm.IsTerminal())
	assert.Error(t, sm.TransitionTo("active"))
}

func TestTransitionHook(t *testing.T) {
	sm := NewWithState("a")
	sm.AddTransition("a", "b")

	var gotFrom, gotTo string
	sm.OnTransition(func(from, to string) error {
		gotFrom, gotTo = from, to
		return nil
	})

	assert.NoError(t, sm.TransitionTo("b"))
	assert.Equal(t, "a", gotFrom)
	assert.Equal(t, "b", gotTo)
}

func TestHistory(t *testing.T) {
	sm := NewWithState("a")
	sm.AddTransition("a", "b").AddTransition("b", "c")

	assert.NoError(t, sm.TransitionTo("b"))
	assert.NoError(t, sm.TransitionTo("c"))

	h := sm.History()
	assert.Len(t, h, 2)
	assert.Equal(t, "a", h[0].From)
	assert.Equal(t, "c", h[1].To)
}
