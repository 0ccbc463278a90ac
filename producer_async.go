package stagedi

import (
	"context"

	"github.com/pkg/errors"
)

// produceAsync is the concurrent driver: any step whose
// dependencies are all already satisfied is started on its own goroutine;
// the driver fans results back in over a single channel and only ever
// writes to loc.instances/loc.sets itself, from the single driver
// goroutine, immediately after receiving a result and strictly before
// starting any step that depends on it. Workers never read those maps:
// each one gets a copy of them, taken by the driver when it starts the
// step, so no worker reads a map while the driver writes it.
func produceAsync(ctx context.Context, plan Plan, parent *Locator, logger BasicLogger) (*Locator, error) {
	loc := newLocator(parent)

	remaining := make(map[Key]*PlanStep, len(plan.Steps))
	for i := range plan.Steps {
		remaining[plan.Steps[i].Key] = &plan.Steps[i]
	}
	started := make(map[Key]bool, len(plan.Steps))

	type stepResult struct {
		key     Key
		val     any
		setVals []any
		err     error
	}
	// Buffered to the maximum number of steps that could ever be started:
	// every worker's send then completes immediately, even one still
	// running after the driver has already returned on some other step's
	// error, a stall, or ctx cancellation. Nothing blocks waiting for a
	// driver that has stopped reading.
	results := make(chan stepResult, len(plan.Steps))
	inFlight := 0

	ready := func(step *PlanStep) bool {
		for _, d := range step.Dependencies {
			if d == RegistrarKey() {
				continue
			}
			if _, ok := loc.instances[d]; ok {
				continue
			}
			if _, ok := loc.sets[d]; ok {
				continue
			}
			if loc.parent != nil && loc.parent.Has(d) {
				continue
			}
			return false
		}
		return true
	}

	start := func(step *PlanStep) {
		started[step.Key] = true
		inFlight++
		snap := &Locator{parent: loc.parent, instances: make(map[Key]any, len(loc.instances)), sets: make(map[Key][]any, len(loc.sets)), registrar: loc.registrar}
		for k, v := range loc.instances {
			snap.instances[k] = v
		}
		for k, v := range loc.sets {
			snap.sets[k] = v
		}
		go func() {
			if step.IsSet() {
				vals, err := constructSet(ctx, snap, *step, logger)
				results <- stepResult{key: step.Key, setVals: vals, err: err}
				return
			}
			v, err := constructStep(ctx, snap, step.Binding)
			results <- stepResult{key: step.Key, val: v, err: err}
		}()
	}

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "stagedi: producer canceled")
		}
		for k, step := range remaining {
			if !started[k] && ready(step) {
				start(step)
			}
		}
		if inFlight == 0 {
			return nil, errors.New("stagedi: producer stalled: remaining steps have unsatisfiable dependencies")
		}

		var res stepResult
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "stagedi: producer canceled")
		case res = <-results:
		}
		inFlight--
		if res.err != nil {
			return nil, wrapProducerFailure(res.key, res.err)
		}
		if remaining[res.key].IsSet() {
			loc.sets[res.key] = res.setVals
		} else {
			loc.instances[res.key] = res.val
		}
		delete(remaining, res.key)
	}
	return loc, nil
}
