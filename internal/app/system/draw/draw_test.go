package draw_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/secretsanta/internal/app/system/draw"
)

// scriptedSource makes Intn(n) return the scripted values in order, cycling.
// Each value must be below the n it is drawn against.
type scriptedSource struct {
	js []int64
	n  int
}

func (s *scriptedSource) Int63() int64 {
	j := s.js[s.n%len(s.js)]
	s.n++
	return j << 32
}

func (s *scriptedSource) Seed(int64) {}

func givers(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("u%d", i+1)
	}
	return out
}

func TestAssign_IsDerangement(t *testing.T) {
	eng := draw.NewSeeded(7)
	for n := 2; n <= 40; n++ {
		g := givers(n)
		for round := 0; round < 25; round++ {
			a, err := eng.Assign(g)
			if err != nil {
				t.Fatalf("n=%d round=%d: Assign failed: %v", n, round, err)
			}
			if err := a.Validate(g); err != nil {
				t.Fatalf("n=%d round=%d: invalid assignment: %v", n, round, err)
			}
		}
	}
}

func TestAssign_TwoGiversSwap(t *testing.T) {
	a, err := draw.New().Assign([]string{"u1", "u2"})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if a["u1"] != "u2" || a["u2"] != "u1" {
		t.Errorf("got %v, want u1->u2 and u2->u1", a)
	}
}

func TestAssign_ThreeGiversCoverage(t *testing.T) {
	g := []string{"u1", "u2", "u3"}
	a, err := draw.NewSeeded(1).Assign(g)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	keys := map[string]bool{}
	vals := map[string]bool{}
	for k, v := range a {
		keys[k] = true
		vals[v] = true
		if k == v {
			t.Errorf("%s draws themselves", k)
		}
	}
	for _, u := range g {
		if !keys[u] || !vals[u] {
			t.Errorf("%s missing as giver or receiver in %v", u, a)
		}
	}
}

func TestAssign_DeterministicWithSeed(t *testing.T) {
	g := givers(12)
	for seed := int64(0); seed < 10; seed++ {
		a1, err := draw.NewSeeded(seed).Assign(g)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		a2, err := draw.NewSeeded(seed).Assign(g)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		for k, v := range a1 {
			if a2[k] != v {
				t.Fatalf("seed %d: giver %s got %s then %s", seed, k, v, a2[k])
			}
		}
	}
}

func TestAssign_BothDerangementsOfThreeOccur(t *testing.T) {
	eng := draw.NewSeeded(99)
	g := []string{"a", "b", "c"}
	seen := map[string]int{}
	for i := 0; i < 500; i++ {
		a, err := eng.Assign(g)
		if err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		seen[a["a"]+a["b"]+a["c"]]++
	}
	// The only derangements of abc are bca and cab.
	if len(seen) != 2 || seen["bca"] == 0 || seen["cab"] == 0 {
		t.Errorf("unexpected distribution %v", seen)
	}
}

func TestAssign_RejectsDegenerateInput(t *testing.T) {
	tests := []struct {
		name   string
		givers []string
		want   error
	}{
		{"nil", nil, draw.ErrTooFewGivers},
		{"empty", []string{}, draw.ErrTooFewGivers},
		{"single", []string{"x"}, draw.ErrTooFewGivers},
		{"duplicate pair", []string{"a", "a"}, draw.ErrDuplicateGiver},
		{"duplicate later", []string{"a", "b", "c", "b"}, draw.ErrDuplicateGiver},
		{"empty identity", []string{"a", "", "c"}, draw.ErrEmptyGiver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := draw.New().Assign(tt.givers)
			if err == nil {
				t.Fatalf("expected error, got assignment %v", a)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !draw.IsValidation(err) {
				t.Errorf("expected a validation error, got %T", err)
			}
		})
	}
}

func TestAssign_Unsatisfiable(t *testing.T) {
	// j = i on every step leaves the list in its original order, so every
	// candidate has fixed points.
	src := &scriptedSource{js: []int64{2, 1}}
	eng := draw.New(draw.WithSource(src), draw.WithMaxAttempts(5))

	_, err := eng.Assign([]string{"a", "b", "c"})
	if !errors.Is(err, draw.ErrUnsatisfiable) {
		t.Fatalf("error = %v, want ErrUnsatisfiable", err)
	}
	if draw.IsValidation(err) {
		t.Error("unsatisfiable should not be reported as a validation error")
	}
	if src.n != 10 {
		t.Errorf("random draws = %d, want 10 (5 attempts x 2 swaps)", src.n)
	}
}

func TestAssign_RetriesUntilValid(t *testing.T) {
	// First attempt: identity (rejected). Second: j=0 twice gives bca.
	src := &scriptedSource{js: []int64{2, 1, 0, 0}}
	eng := draw.New(draw.WithSource(src))

	a, err := eng.Assign([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if a["a"] != "b" || a["b"] != "c" || a["c"] != "a" {
		t.Errorf("got %v, want a->b b->c c->a", a)
	}
}

func TestAssignment_Validate(t *testing.T) {
	g := []string{"a", "b", "c"}
	tests := []struct {
		name string
		a    draw.Assignment
		ok   bool
	}{
		{"valid cycle", draw.Assignment{"a": "b", "b": "c", "c": "a"}, true},
		{"self gift", draw.Assignment{"a": "a", "b": "c", "c": "b"}, false},
		{"double receiver", draw.Assignment{"a": "b", "b": "a", "c": "a"}, false},
		{"missing giver", draw.Assignment{"a": "b", "b": "a"}, false},
		{"foreign receiver", draw.Assignment{"a": "b", "b": "z", "c": "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate(g)
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
