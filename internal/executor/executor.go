// Package executor drives the operation catalog against both loaded
// revisions. Each side's operation stream is strictly sequential, because
// later operations depend on state left by earlier ones; the two streams
// run concurrently with each other, touching disjoint key-spaces, and are
// joined into OutcomePairs one operation at a time.
package executor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/sajjad-MoBe/kvdiff/internal/catalog"
	"github.com/sajjad-MoBe/kvdiff/internal/telemetry"
	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

// DefaultTimeout bounds a single operation when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Executor runs catalogs against revision pairs.
type Executor struct {
	// Timeout bounds each operation; zero means DefaultTimeout.
	Timeout time.Duration
	// CaptureState dumps each side's key-space into every outcome, so
	// the comparator sees side effects as well as return values.
	CaptureState bool
	Metrics      *telemetry.Metrics
	Tracer       *telemetry.Tracer
	Logger       zerolog.Logger
}

// Run executes every spec in order against both handles and returns the
// ordered OutcomePairs. A per-operation error never aborts the run; a
// crash outcome ends it, preserving the pairs collected so far. The error
// return is reserved for harness-level failures and is nil today.
func (e *Executor) Run(ctx context.Context, specs []catalog.OperationSpec, baseSide, newSide Handle) ([]OutcomePair, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	baseCh := make(chan Outcome)
	newCh := make(chan Outcome)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		e.runSide(gctx, specs, baseSide, baseCh)
		return nil
	})
	g.Go(func() error {
		e.runSide(gctx, specs, newSide, newCh)
		return nil
	})

	pairs := make([]OutcomePair, 0, len(specs))
	for range specs {
		baseOut, okBase := <-baseCh
		newOut, okNew := <-newCh
		if !okBase || !okNew {
			break
		}
		pairs = append(pairs, OutcomePair{Base: baseOut, New: newOut})
		if baseOut.Crashed || newOut.Crashed {
			break
		}
	}

	// Unblock and drain whichever side is still producing.
	cancel()
	for range baseCh {
	}
	for range newCh {
	}
	_ = g.Wait()

	return pairs, nil
}

// runSide executes the catalog strictly in order against one handle,
// sending each outcome as it completes. It stops after a crash outcome or
// when the run context is cancelled.
func (e *Executor) runSide(ctx context.Context, specs []catalog.OperationSpec, h Handle, out chan<- Outcome) {
	defer close(out)
	for i := range specs {
		outcome := e.executeOne(ctx, h, &specs[i])
		select {
		case out <- outcome:
		case <-ctx.Done():
			return
		}
		if outcome.Crashed {
			return
		}
	}
}

type opResult struct {
	value   any
	err     error
	crashed bool
}

// executeOne runs a single operation with panic recovery and a timeout
// that is enforced even against a store implementation that ignores its
// context.
func (e *Executor) executeOne(ctx context.Context, h Handle, spec *catalog.OperationSpec) Outcome {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	spanCtx, span := e.Tracer.StartSpan(opCtx, "op."+string(spec.Method),
		attribute.String("side", h.Side),
		attribute.String("operation", spec.Name),
	)
	defer span.End()

	outcome := Outcome{Operation: spec}
	resultCh := make(chan opResult, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- opResult{err: kvdict.Recovered(r), crashed: true}
			}
		}()
		value, err := dispatch(spanCtx, h.Store, spec)
		resultCh <- opResult{value: value, err: err}
	}()

	select {
	case res := <-resultCh:
		outcome.WallTime = time.Since(start)
		switch {
		case res.crashed:
			outcome.Crashed = true
			outcome.ErrorKind = kvdict.KindCrash
			outcome.ErrorMessage = res.err.Error()
		case res.err != nil:
			outcome.ErrorKind = kvdict.KindOf(res.err)
			outcome.ErrorMessage = res.err.Error()
			// A crash-kind error means the revision process itself died,
			// not that the operation raised. Truncate like a panic.
			outcome.Crashed = outcome.ErrorKind == kvdict.KindCrash
		default:
			outcome.Value = kvdict.Normalize(res.value)
		}
	case <-opCtx.Done():
		outcome.WallTime = time.Since(start)
		outcome.ErrorKind = kvdict.KindTimeout
		outcome.ErrorMessage = "operation exceeded " + timeout.String()
	}

	if e.CaptureState && !outcome.Crashed && outcome.ErrorKind != kvdict.KindTimeout {
		e.captureState(ctx, h, &outcome)
	}

	if outcome.Raised() {
		e.Tracer.RecordError(spanCtx, kvdict.NewError(outcome.ErrorKind, outcome.ErrorMessage, nil))
	}
	e.Metrics.ObserveOperation(h.Side, string(spec.Method), result(&outcome), outcome.WallTime)
	e.Logger.Debug().
		Str("side", h.Side).
		Str("operation", spec.Name).
		Str("error_kind", string(outcome.ErrorKind)).
		Dur("wall_time", outcome.WallTime).
		Msg("operation executed")

	return outcome
}

// captureState snapshots the side's key-space after the operation and
// cross-checks it against the raw keys visible through the harness's own
// connection. A store whose ToMap disagrees with its raw key-space is
// itself a defect, recorded as an internal-kind outcome error.
func (e *Executor) captureState(ctx context.Context, h Handle, outcome *Outcome) {
	stateCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	state, err := h.Store.ToMap(stateCtx)
	if err != nil {
		outcome.ErrorKind = kvdict.KindInternal
		outcome.ErrorMessage = "state capture failed: " + err.Error()
		return
	}
	outcome.State = make(map[string]any, len(state))
	for k, v := range state {
		outcome.State[k] = kvdict.Normalize(v)
	}

	if h.RawKeys == nil {
		return
	}
	raw, err := h.RawKeys(stateCtx)
	if err != nil {
		outcome.ErrorKind = kvdict.KindInternal
		outcome.ErrorMessage = "raw key scan failed: " + err.Error()
		return
	}
	for _, k := range raw {
		if _, ok := outcome.State[k]; !ok {
			outcome.ErrorKind = kvdict.KindInternal
			outcome.ErrorMessage = "store state inconsistent: raw key " + k + " missing from dump"
			return
		}
	}
}

func result(o *Outcome) string {
	switch {
	case o.Crashed:
		return "crash"
	case o.ErrorKind == kvdict.KindTimeout:
		return "timeout"
	case o.Raised():
		return "error"
	default:
		return "ok"
	}
}
