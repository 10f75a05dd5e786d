package statemachine

import (
	"fmt"
	"time"

	"github.com/aretw0/balcao/pkg/domain"
)

// Guard is a predicate over context that must hold for a transition to
// be taken.
type Guard func(domain.Context) bool

// Action is a pure context rewrite executed when a transition is taken.
// It receives the pre-transition context and returns its replacement.
// Actions must not perform I/O.
type Action func(domain.Context) domain.Context

// Transition is a (from, to, trigger) rule, optionally guarded and
// optionally paired with a context-rewriting action.
type Transition struct {
	From    domain.ConversationState
	To      domain.ConversationState
	Trigger domain.Trigger
	Guard   Guard
	Action  Action
}

// StateDefinition describes one conversation state.
type StateDefinition struct {
	Description string

	// AllowedTransitions is the set of states this state may move to.
	// A transition whose target is not listed here is never taken.
	AllowedTransitions []domain.ConversationState

	// Terminal states restrict legal exits to their explicit allowed set.
	Terminal bool

	// InactivityTimeout is reminder/expiry policy metadata for outer
	// layers; the engine itself does not enforce it.
	InactivityTimeout time.Duration
}

type transitionKey struct {
	from    domain.ConversationState
	trigger domain.Trigger
}

// Machine is the pure decision component of the engine. The
// configuration is static: it is validated once at construction and
// never mutated afterwards, so a Machine is safe for concurrent use.
type Machine struct {
	defs        map[domain.ConversationState]StateDefinition
	transitions []Transition
	byKey       map[transitionKey][]int // indexes into transitions, declaration order
}

// Result is the outcome of a committed transition.
type Result struct {
	NewState domain.ConversationState
	Context  domain.Context
}

// New builds a Machine and validates the configuration. Every state
// referenced by a transition or by another state's allowed-transitions
// list must itself be defined; violations are configuration errors and
// fail fast.
func New(defs map[domain.ConversationState]StateDefinition, transitions []Transition) (*Machine, error) {
	m := &Machine{
		defs:        defs,
		transitions: transitions,
		byKey:       make(map[transitionKey][]int),
	}

	for state, def := range defs {
		for _, target := range def.AllowedTransitions {
			if _, ok := defs[target]; !ok {
				return nil, fmt.Errorf("state %q allows transition to undefined state %q", state, target)
			}
		}
	}

	for i, t := range transitions {
		if _, ok := defs[t.From]; !ok {
			return nil, fmt.Errorf("transition %q references undefined source state %q", t.Trigger, t.From)
		}
		if _, ok := defs[t.To]; !ok {
			return nil, fmt.Errorf("transition %q references undefined target state %q", t.Trigger, t.To)
		}
		key := transitionKey{from: t.From, trigger: t.Trigger}
		m.byKey[key] = append(m.byKey[key], i)
	}

	return m, nil
}

// Definition returns the definition for a state.
func (m *Machine) Definition(state domain.ConversationState) (StateDefinition, bool) {
	def, ok := m.defs[state]
	return def, ok
}

// IsTerminal reports whether the state is terminal.
func (m *Machine) IsTerminal(state domain.ConversationState) bool {
	return m.defs[state].Terminal
}

// HasCandidate reports whether any transition is declared for the
// (from, trigger) pair, regardless of guards. The orchestrator uses it
// to skip side effects for triggers the current state cannot accept.
func (m *Machine) HasCandidate(from domain.ConversationState, trigger domain.Trigger) bool {
	return len(m.byKey[transitionKey{from: from, trigger: trigger}]) > 0
}

// CanTransition reports whether moving from -> to on trigger is legal
// under the given context.
func (m *Machine) CanTransition(from, to domain.ConversationState, trigger domain.Trigger, ctx domain.Context) bool {
	for _, idx := range m.byKey[transitionKey{from: from, trigger: trigger}] {
		t := m.transitions[idx]
		if t.To != to {
			continue
		}
		if m.commitable(t, ctx) {
			return true
		}
	}
	return false
}

// ExecuteTransition looks up candidates by (from, trigger) in
// declaration order and commits to the first whose target is allowed by
// the source state and whose guard holds. The committed transition's
// action, if any, rewrites the context.
//
// No match returns an error wrapping domain.ErrNoTransition naming the
// state and trigger. This is expected and recoverable, not fatal.
func (m *Machine) ExecuteTransition(from domain.ConversationState, trigger domain.Trigger, ctx domain.Context) (Result, error) {
	for _, idx := range m.byKey[transitionKey{from: from, trigger: trigger}] {
		t := m.transitions[idx]
		if !m.commitable(t, ctx) {
			continue
		}

		next := ctx.Clone()
		if t.Action != nil {
			next = t.Action(next)
		}
		return Result{NewState: t.To, Context: next}, nil
	}

	return Result{}, fmt.Errorf("%w from state %q on trigger %q", domain.ErrNoTransition, from, trigger)
}

// commitable checks the allowed-transitions set and the guard.
func (m *Machine) commitable(t Transition, ctx domain.Context) bool {
	allowed := false
	for _, target := range m.defs[t.From].AllowedTransitions {
		if target == t.To {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	if t.Guard != nil && !t.Guard(ctx) {
		return false
	}
	return true
}
