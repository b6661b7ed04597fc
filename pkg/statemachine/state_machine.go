package statemachine

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// TransitionHook is triggered after a state transition occurs.
type TransitionHook[T comparable] func(from, to T) error

// TransitionRecord records a state transition in the FSM history.
type TransitionRecord[T comparable] struct {
	From      T
	To        T
	Timestamp time.Time
}

// StateMachine is a generic finite state machine. Transitions are validated
// against the declared transition table; states with no outgoing transitions
// are terminal and sealed. Safe for concurrent use.
type StateMachine[T comparable] struct {
	mu sync.RWMutex

	currentState T

	// from state -> valid next states
	validTransitions map[T][]T

	history      []TransitionRecord[T]
	onTransition []TransitionHook[T]
}

// NewWithState creates a StateMachine positioned at initialState.
func NewWithState[T comparable](initialState T) *StateMachine[T] {
	return &StateMachine[T]{
		currentState:     initialState,
		validTransitions: make(map[T][]T),
	}
}

// AddTransition declares valid transitions from a state.
func (sm *StateMachine[T]) AddTransition(from T, to ...T) *StateMachine[T] {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.validTransitions[from] = append(sm.validTransitions[from], to...)
	return sm
}

// OnTransition registers a hook fired after every successful transition.
func (sm *StateMachine[T]) OnTransition(hook TransitionHook[T]) *StateMachine[T] {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onTransition = append(sm.onTransition, hook)
	return sm
}

// Current returns the current state.
func (sm *StateMachine[T]) Current() T {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// CanTransition reports whether a transition to the given state is valid.
func (sm *StateMachine[T]) CanTransition(to T) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return slices.Contains(sm.validTransitions[sm.currentState], to)
}

// IsTerminal reports whether the current state has no outgoing transitions.
func (sm *StateMachine[T]) IsTerminal() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.validTransitions[sm.currentState]) == 0
}

// TransitionTo moves the machine to the given state, or fails when the
// transition is not declared.
func (sm *StateMachine[T]) TransitionTo(to T) error {
	sm.mu.Lock()
	from := sm.currentState
	if !slices.Contains(sm.validTransitions[from], to) {
		sm.mu.Unlock()
		return fmt.Errorf("invalid transition: %v -> %v", from, to)
	}
	sm.currentState = to
	sm.history = append(sm.history, TransitionRecord[T]{
		From:      from,
		To:        to,
		Timestamp: time.Now(),
	})
	hooks := slices.Clone(sm.onTransition)
	sm.mu.Unlock()

	for _, hook := range hooks {
		if err := hook(from, to); err != nil {
			return err
		}
	}
	return nil
}

// History returns a copy of the transition history.
func (sm *StateMachine[T]) History() []TransitionRecord[T] {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return slices.Clone(sm.history)
}
