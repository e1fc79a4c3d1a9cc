// Package draw computes Secret Santa assignments.
//
// An assignment maps every giver to a receiver such that the mapping is a
// permutation of the givers with no fixed point (nobody gifts themselves).
// The engine performs no I/O; persistence is the caller's concern.
package draw

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// DefaultMaxAttempts bounds the reshuffle loop.
const DefaultMaxAttempts = 50

// Assignment maps giver identity to receiver identity.
type Assignment map[string]string

// Validate checks that a is a derangement of givers: every giver appears
// exactly once as a key and once as a value, and never maps to itself.
func (a Assignment) Validate(givers []string) error {
	if len(a) != len(givers) {
		return fmt.Errorf("assignment has %d entries, want %d", len(a), len(givers))
	}
	received := make(map[string]int, len(givers))
	for _, g := range givers {
		r, ok := a[g]
		if !ok {
			return fmt.Errorf("giver %q has no receiver", g)
		}
		if r == g {
			return fmt.Errorf("giver %q is assigned to themselves", g)
		}
		received[r]++
	}
	for _, g := range givers {
		if received[g] != 1 {
			return fmt.Errorf("user %q receives %d gifts, want 1", g, received[g])
		}
	}
	return nil
}

// Engine draws assignments from a single random source.
// It is safe for concurrent use.
type Engine struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	maxAttempts int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithSource replaces the random source, e.g. with a fixed sequence in tests.
func WithSource(src rand.Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.rnd = rand.New(src)
		}
	}
}

// New returns an Engine seeded from the clock.
func New(opts ...Option) *Engine {
	e := &Engine{
		// nolint:gosec // gift exchange, not cryptography
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewSeeded returns an Engine whose output is reproducible for a given seed.
func NewSeeded(seed int64, opts ...Option) *Engine {
	return New(append([]Option{WithSource(rand.NewSource(seed))}, opts...)...)
}

// Assign draws a receiver for every giver.
//
// givers must hold at least two distinct, non-empty identities; anything
// else is a *ValidationError. The giver at original index i receives the
// identity at index i of a uniform shuffle; candidates with a fixed point
// are rejected and reshuffled up to the attempt ceiling, after which
// ErrUnsatisfiable is returned.
func (e *Engine) Assign(givers []string) (Assignment, error) {
	if err := CheckGivers(givers); err != nil {
		return nil, err
	}

	if len(givers) == 2 {
		return Assignment{givers[0]: givers[1], givers[1]: givers[0]}, nil
	}

	shuffled := make([]string, len(givers))
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		copy(shuffled, givers)
		e.shuffle(shuffled)
		if hasFixedPoint(givers, shuffled) {
			continue
		}
		a := make(Assignment, len(givers))
		for i, g := range givers {
			a[g] = shuffled[i]
		}
		return a, nil
	}
	return nil, ErrUnsatisfiable
}

// shuffle is Fisher–Yates: for i from last down to 1 swap i with a uniform
// j in [0, i].
func (e *Engine) shuffle(s []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(s) - 1; i > 0; i-- {
		j := e.rnd.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// CheckGivers returns the *ValidationError Assign would return for givers,
// or nil. Callers use it to reject input before doing any work.
func CheckGivers(givers []string) error {
	if len(givers) < 2 {
		return &ValidationError{Err: ErrTooFewGivers}
	}
	seen := make(map[string]struct{}, len(givers))
	for _, g := range givers {
		if g == "" {
			return &ValidationError{Err: ErrEmptyGiver}
		}
		if _, dup := seen[g]; dup {
			return &ValidationError{Err: ErrDuplicateGiver, Giver: g}
		}
		seen[g] = struct{}{}
	}
	return nil
}

func hasFixedPoint(givers, shuffled []string) bool {
	for i := range givers {
		if givers[i] == shuffled[i] {
			return true
		}
	}
	return false
}
