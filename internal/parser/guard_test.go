package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tordrt/schemadsl/internal/lexer"
)

func TestGuardChecksDeadlineEveryInterval(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	checks := 0
	now := func() time.Time {
		checks++
		return base.Add(time.Hour)
	}

	g := newGuard(base, now)
	for i := 1; i < checkInterval; i++ {
		if err := g.tick(); err != nil {
			t.Fatalf("tick %d: unexpected error %v", i, err)
		}
	}
	if checks != 0 {
		t.Errorf("clock read %d times before the first interval, want 0", checks)
	}

	err := g.tick()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("tick %d: got %v, want ErrTimeout", checkInterval, err)
	}
	if again := g.tick(); again != err {
		t.Errorf("guard should keep returning the first error, got %v", again)
	}
}

func TestGuardWithoutDeadline(t *testing.T) {
	g := newGuard(time.Time{}, func() time.Time {
		t.Fatal("clock should not be read without a deadline")
		return time.Time{}
	})
	for i := 0; i < checkInterval*3; i++ {
		if err := g.tick(); err != nil {
			t.Fatalf("tick %d: unexpected error %v", i, err)
		}
	}
}

func TestLoopForcesProgress(t *testing.T) {
	tokens, _ := lexer.Tokenize("a b c d")
	p := New(tokens, Options{})

	iterations := 0
	err := p.loop("test", 100, func() (bool, error) {
		iterations++
		return p.isAtEnd(), nil
	})
	if err != nil {
		t.Fatalf("loop() error = %v", err)
	}
	// one forced advance per identifier, then the EOF iteration
	if iterations != 5 {
		t.Errorf("iterations = %d, want 5", iterations)
	}
}

func TestLoopReportsStuck(t *testing.T) {
	tokens, _ := lexer.Tokenize("a b")
	p := New(tokens, Options{})

	err := p.loop("test", 10, func() (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrStuck) {
		t.Fatalf("loop() error = %v, want ErrStuck", err)
	}
	if !strings.Contains(err.Error(), "test exceeded 10 iterations") {
		t.Errorf("error %q should name the loop and its ceiling", err)
	}
}

func TestParseTimesOut(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	now := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}

	src := strings.Repeat("Table t { id int name text }\n", 100)
	tokens, _ := lexer.Tokenize(src)

	s, _, err := Parse(tokens, Options{Deadline: base.Add(30 * time.Second), Now: now})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Parse() error = %v, want ErrTimeout", err)
	}
	if s != nil {
		t.Error("schema should be nil after a timeout")
	}

	s, diags, err := Parse(tokens, Options{})
	if err != nil || len(diags) != 0 {
		t.Fatalf("Parse() without deadline: err = %v, diags = %v", err, diags)
	}
	if len(s.Tables) != 100 {
		t.Errorf("got %d tables, want 100", len(s.Tables))
	}
}
