package parser

import (
	"errors"
	"fmt"
	"time"
)

// Loop ceilings
const (
	maxBodyIterations = 10000 // declaration bodies and the top-level loop
	maxListIterations = 100   // bracketed attribute and constraint lists

	// checkInterval is how many guarded operations pass between deadline checks.
	checkInterval = 100
)

var (
	// ErrTimeout is returned when parsing runs past the configured deadline.
	ErrTimeout = errors.New("parse timed out")
	// ErrStuck is returned when a grammar loop exceeds its iteration ceiling.
	ErrStuck = errors.New("parser stuck")
)

// guard counts parser operations and checks the deadline every checkInterval ticks.
// Once tripped it keeps returning the same error.
type guard struct {
	ops      int
	deadline time.Time
	now      func() time.Time
	err      error
}

func newGuard(deadline time.Time, now func() time.Time) *guard {
	if now == nil {
		now = time.Now
	}
	return &guard{deadline: deadline, now: now}
}

func (g *guard) tick() error {
	if g.err != nil {
		return g.err
	}
	g.ops++
	if g.ops%checkInterval == 0 && !g.deadline.IsZero() && g.now().After(g.deadline) {
		g.err = fmt.Errorf("%w after %d operations", ErrTimeout, g.ops)
	}
	return g.err
}

// loop runs body until it reports done or fails. Every iteration ticks the guard
// and counts against limit; an iteration that consumed no token is followed by a
// forced advance so the cursor always moves forward.
func (p *Parser) loop(what string, limit int, body func() (done bool, err error)) error {
	for i := 0; ; i++ {
		if i >= limit {
			return fmt.Errorf("%w: %s exceeded %d iterations at %s", ErrStuck, what, limit, p.peek().Pos)
		}
		if err := p.guard.tick(); err != nil {
			return err
		}

		start := p.current
		done, err := body()
		if err != nil || done {
			return err
		}
		if p.current == start {
			p.advance()
		}
	}
}
