package constraints

import (
	"fmt"
	"sync"

	"github.com/cuemby/graphdb/internal/gderrors"
	"github.com/cuemby/graphdb/pkg/values"
)

// Kind distinguishes the two constraint flavors spec §4.4 defines.
type Kind string

const (
	KindUnique    Kind = "unique"
	KindExistence Kind = "existence"
)

// Constraint identifies one (kind, label, prop) rule. Two constraints are
// identical iff all three fields match.
type Constraint struct {
	Kind  Kind
	Label string
	Prop  string
}

// Verdict is the result of Validate: either valid, or violated carrying a
// human-readable reason. Validate never blocks a mutation by itself — the
// caller (the facade) decides whether to escalate a Violated verdict.
type Verdict struct {
	Valid   bool
	Message string
}

func valid() Verdict              { return Verdict{Valid: true} }
func violated(msg string) Verdict { return Verdict{Valid: false, Message: msg} }

// LookupFunc resolves the ids currently carrying (label, prop) == v. The
// facade supplies one backed by its index manager's FindExact so this
// package never depends on pkg/index directly.
type LookupFunc func(label, prop string, v values.Value) []int64

// Manager is the constraint registry: a set of (kind, label, prop) rules
// plus the ability to validate a node snapshot against all rules that
// apply to its labels.
type Manager struct {
	mu          sync.RWMutex
	constraints map[Constraint]struct{}
}

// NewManager returns an empty constraint registry.
func NewManager() *Manager {
	return &Manager{constraints: make(map[Constraint]struct{})}
}

// Add registers c. It fails if an identical constraint already exists.
func (m *Manager) Add(c Constraint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.constraints[c]; exists {
		return gderrors.ConstraintViolation(c.Label, c.Prop, fmt.Sprintf("%s constraint already exists", c.Kind))
	}
	m.constraints[c] = struct{}{}
	return nil
}

// Drop removes c. It is not an error to drop a constraint that doesn't
// exist.
func (m *Manager) Drop(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.constraints, c)
}

// List returns every registered constraint, in no particular order.
func (m *Manager) List() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Constraint, 0, len(m.constraints))
	for c := range m.constraints {
		out = append(out, c)
	}
	return out
}

// Validate checks a node's (label, props) snapshot against every
// constraint touching any of its labels, excluding selfID from uniqueness
// collisions (so re-validating an unchanged node during an update never
// trips on itself). It returns the first violation found, or Valid.
func (m *Manager) Validate(selfID int64, labels []string, props values.Properties, lookup LookupFunc) Verdict {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, label := range labels {
		for c := range m.constraints {
			if c.Label != label {
				continue
			}
			switch c.Kind {
			case KindExistence:
				v, ok := props[c.Prop]
				if !ok || v.IsNull() {
					return violated(fmt.Sprintf("%s.%s is required", label, c.Prop))
				}
			case KindUnique:
				v, ok := props[c.Prop]
				if !ok {
					continue
				}
				for _, id := range lookup(label, c.Prop, v) {
					if id != selfID {
						return violated(fmt.Sprintf("%s.%s must be unique, value already used by node %d", label, c.Prop, id))
					}
				}
			}
		}
	}
	return valid()
}
