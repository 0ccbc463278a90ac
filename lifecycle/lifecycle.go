// Package lifecycle lets a Class or Factory Functoid register a cleanup
// callback to run when the Locator that produced it is closed, without
// that Functoid needing to know anything about Locator itself. A
// Registrar is scoped to a single Locator rather than a whole process.
package lifecycle

import (
	"context"
	"sync"
)

// Cleanup releases a resource acquired while constructing some value.
type Cleanup func(context.Context) error

// Registrar collects Cleanups in registration order and releases them
// LIFO. A Registrar is meant to be requested as a dependency by any
// Class/Factory Functoid that acquires a resource (a DB handle, a file, a
// goroutine) needing an explicit release step; the Producer hands each
// produced Locator its own Registrar and wires Locator.Close to drain it.
type Registrar struct {
	mu       sync.Mutex
	cleanups []Cleanup
	closed   bool
}

// NewRegistrar returns an empty Registrar.
func NewRegistrar() *Registrar { return &Registrar{} }

// On registers c to run when Close is called. Calling On after Close has
// already run is a no-op: there is nothing left to drain it into.
func (r *Registrar) On(c Cleanup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.cleanups = append(r.cleanups, c)
}

// Close runs every registered Cleanup, most-recently-registered first,
// and returns the collected errors (nil entries are skipped). It is
// idempotent: calling Close twice runs the cleanups once.
func (r *Registrar) Close(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	cleanups := r.cleanups
	r.cleanups = nil
	r.mu.Unlock()

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
