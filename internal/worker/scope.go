package worker

import (
	"context"
	"fmt"

	"github.com/firefly-engineering/flatdeb/internal/errors"
	"github.com/firefly-engineering/flatdeb/internal/logging"
)

// Scope implements the reentrant Enter/Leave lifecycle shared by all
// workers: a depth counter plus a list of release actions run in reverse
// registration order when the depth drops back to zero.
//
// Cleanup policy: every release action runs, even after an earlier one
// failed. Each failure is logged, and all of them are wrapped in one
// CleanupFailed error that is joined after the body's own error, so the
// body's failure stays first and decides the exit code.
type Scope struct {
	name     string
	depth    int
	acquire  func(ctx context.Context) error
	releases []release
}

type release struct {
	name string
	fn   func(ctx context.Context) error
}

// NewScope returns a scope named name whose acquisition step is acquire.
// acquire may be nil.
func NewScope(name string, acquire func(ctx context.Context) error) Scope {
	return Scope{name: name, acquire: acquire}
}

// Depth returns the current nesting depth.
func (s *Scope) Depth() int {
	return s.depth
}

// Defer registers a release action to run when the scope closes.
func (s *Scope) Defer(name string, fn func(ctx context.Context) error) {
	s.releases = append(s.releases, release{name: name, fn: fn})
}

// Enter increments the depth, acquiring resources on the 0→1 transition.
//
// If acquisition fails the depth returns to zero, the release actions
// registered before the failure run, and an AcquisitionFailed error is
// returned. A panic during acquisition unwinds the same way and is then
// re-raised.
func (s *Scope) Enter(ctx context.Context) error {
	s.depth++
	if s.depth > 1 || s.acquire == nil {
		return nil
	}

	logging.Layer(s.name).Debug("acquiring")
	if err := s.acquireOrUnwind(ctx); err != nil {
		s.depth = 0
		return joinCleanup(errors.AcquisitionFailed(s.name, err), s.unwind(ctx))
	}
	return nil
}

// acquireOrUnwind runs the acquisition step. A panic in it closes the
// scope again, releasing whatever was registered so far, before it
// propagates.
func (s *Scope) acquireOrUnwind(ctx context.Context) error {
	defer func() {
		if p := recover(); p != nil {
			s.depth = 0
			_ = s.unwind(ctx)
			panic(p)
		}
	}()
	return s.acquire(ctx)
}

// Leave decrements the depth, releasing resources on the 1→0 transition.
// err is the outcome of the protected body and is always returned.
func (s *Scope) Leave(ctx context.Context, err error) error {
	if s.depth == 0 {
		return joinCleanup(err, fmt.Errorf("%s worker: leave without matching enter", s.name))
	}
	s.depth--
	if s.depth > 0 {
		return err
	}

	logging.Layer(s.name).Debug("releasing", "actions", len(s.releases))
	return joinCleanup(err, s.unwind(ctx))
}

// unwind runs and forgets every registered release action, last first.
// Actions run with a context that is never cancelled, so an interrupted
// build still cleans up after itself.
func (s *Scope) unwind(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	releases := s.releases
	s.releases = nil

	var failed []error
	for i := len(releases) - 1; i >= 0; i-- {
		r := releases[i]
		if err := r.run(ctx); err != nil {
			logging.ReleaseFailed(s.name, r.name, err)
			failed = append(failed, fmt.Errorf("%s: %w", r.name, err))
		}
	}

	if len(failed) == 0 {
		return nil
	}
	return errors.CleanupFailed(errors.Join(failed...))
}

func (r release) run(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.fn(ctx)
}
