// Package driver implements the outer CEGAR loop tying the forward
// engine, property checker and refinement engine together: grow the
// space, relabel it, and either conclude or refine and repeat — plus
// run statistics, cooperative cancellation and structured iteration
// tracing via logrus.
package driver

import (
	"context"
	"fmt"

	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/checker"
	"github.com/onderjan/machine-check-sub004/forward"
	"github.com/onderjan/machine-check-sub004/manip"
	"github.com/onderjan/machine-check-sub004/precision"
	"github.com/onderjan/machine-check-sub004/propprep"
	"github.com/onderjan/machine-check-sub004/refine"
	"github.com/onderjan/machine-check-sub004/statespace"
)

// PanicReporter is optionally implemented by a system's State type to
// let Verify report an inherent panic message in its Stats: a state
// that is known to panic regardless of further refinement.
type PanicReporter interface {
	PanicMessage() (message string, panics bool)
}

// Stats summarizes one Verify run.
type Stats struct {
	NumRefinements          int
	NumGeneratedStates      int
	NumGeneratedTransitions int
	NumFinalStates          int
	NumFinalTransitions     int
	InherentPanicMessage    string
}

// VerifyResult is Verify's outcome: a definite or Unknown verdict, a
// witness path for a False verdict, and run statistics.
type VerifyResult struct {
	Verdict bv.Truth
	Witness []statespace.NodeId
	Stats   Stats
}

// Verify runs the CEGAR loop against sys/registry/space for the
// property parsed from propertySrc, until a definite verdict is
// reached, refinement can no longer make progress, options'
// MaxIterations is hit, or ctx is canceled. An empty propertySrc means
// "verify the inherent property": no reachable state panics.
//
// Regardless of the property, discovering a state whose panic value is
// known nonzero ends verification immediately with an
// *InherentPanicError carrying the panic message and a witness path.
//
// totalWidth is the bit width of the system's combined precision
// vector — the same layout sys's recorded traces use for their leaf
// slots (see refine.Refine) and its Decay method uses for decay marks.
func Verify[State forward.ModelState[State]](
	ctx context.Context,
	space *statespace.Space[State],
	sys forward.System[State],
	registry *manip.Registry[State],
	propertySrc string,
	totalWidth bv.Width,
	opts ...Option,
) (VerifyResult, error) {
	options := defaultOptions()
	for _, o := range opts {
		o(options)
		if options.err != nil {
			return VerifyResult{}, options.err
		}
	}

	if propertySrc == "" {
		return verifyInherent(ctx, space, sys, totalWidth, options)
	}

	property, err := propprep.Prepare(propertySrc)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("driver: preparing property: %w", err)
	}

	prec := precision.New()
	fengine := forward.New(space, sys, prec, totalWidth)
	chk := checker.New(space, registry, property)
	rengine := refine.New(prec)
	rengine.UseDecay = options.useDecay
	lookup := func(id statespace.NodeId) precision.Coverer {
		if !space.Has(id) {
			return nil
		}
		return any(space.State(id)).(precision.Coverer)
	}

	stats := Stats{}
	log := options.logger.WithField("component", "driver")

	for iteration := 0; ; iteration++ {
		select {
		case <-ctx.Done():
			return VerifyResult{}, ctx.Err()
		default:
		}

		grow := fengine.Grow()
		stats.NumGeneratedStates += len(grow.NewNodes)
		stats.NumGeneratedTransitions += grow.NewTransitions
		if len(grow.Rewired) > 0 {
			chk.Focus.MakeWholeDirty()
		} else {
			chk.Focus.ExtendDirty(grow.NewNodes)
		}

		if node, msg, found := findInherentPanic(space, grow.NewNodes); found {
			stats.InherentPanicMessage = msg
			stats.NumFinalStates = space.Len()
			stats.NumFinalTransitions = stats.NumGeneratedTransitions
			witness := witnessTo(space, node)
			return VerifyResult{Verdict: bv.False3, Witness: witness, Stats: stats},
				&InherentPanicError{Message: msg, Witness: witness}
		}

		labels, err := chk.Recompute()
		if err != nil {
			return VerifyResult{}, fmt.Errorf("driver: labeling: %w", err)
		}
		conclusion := chk.Conclude(labels)

		log.WithFields(map[string]any{
			"iteration":   iteration,
			"states":      space.Len(),
			"verdict":     conclusion.Verdict,
			"refinements": stats.NumRefinements,
		}).Debug("cegar iteration")

		if conclusion.Verdict != bv.Unknown3 {
			stats.NumFinalStates = space.Len()
			stats.NumFinalTransitions = stats.NumGeneratedTransitions
			return VerifyResult{Verdict: conclusion.Verdict, Witness: conclusion.Witness, Stats: stats}, nil
		}

		if options.maxIterations > 0 && iteration >= options.maxIterations {
			stats.NumFinalStates = space.Len()
			stats.NumFinalTransitions = stats.NumGeneratedTransitions
			return VerifyResult{Verdict: bv.Unknown3, Stats: stats}, nil
		}

		changed := rengine.Apply(conclusion.Culprit.Path, fengine.Trace, totalWidth, options.importance, lookup)
		if !changed {
			stats.NumFinalStates = space.Len()
			stats.NumFinalTransitions = stats.NumGeneratedTransitions
			return VerifyResult{Verdict: bv.Unknown3, Stats: stats}, nil
		}
		stats.NumRefinements++
		fengine.Reopen(append([]statespace.NodeId{statespace.START}, conclusion.Culprit.Path...))

		reachable := space.ReachableFromStart()
		space.Retain(reachable)
		prec.Forget(reachable)
	}
}
