// Package syncsafe turns an asynchronous, cancellable operation into a bounded synchronous call.
// The caller gets the operation's value when it completes within its budget, and the "unavailable"
// sentinel (false) on timeout, failure, panic or when the data it needs is not ready yet.
package syncsafe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DefaultBudget applies when a caller passes a non-positive budget.
const DefaultBudget = 2 * time.Second

// Module provides the Adapter.
var Module = fx.Provide(New)

// Params are the dependencies of the Adapter.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

// Adapter carries the logging and metrics shared by every bounded call.
type Adapter struct {
	logger *zap.SugaredLogger
	stats  tally.Scope
}

// New creates an Adapter.
func New(p Params) *Adapter {
	return &Adapter{
		logger: p.Logger.With("component", "syncsafe"),
		stats:  p.Stats.SubScope("syncsafe"),
	}
}

type result[T any] struct {
	value T
	err   error
}

// Run starts op in the background and waits at most budget for it. The second return value is
// false when no result is available; op's context is then cancelled, but Run does not wait for op
// to acknowledge it, and whatever op returns afterwards is discarded.
func Run[T any](a *Adapter, ctx context.Context, op func(ctx context.Context) (T, error), budget time.Duration, label string) (T, bool) {
	return RunWhen(a, ctx, nil, op, budget, label)
}

// RunWhen is Run guarded by a readiness check. When ready reports false, op is never started:
// any answer computed from uncommitted data would be stale before it is shown.
func RunWhen[T any](a *Adapter, ctx context.Context, ready func() bool, op func(ctx context.Context) (T, error), budget time.Duration, label string) (T, bool) {
	var zero T
	scope := a.stats.Tagged(map[string]string{"label": label})

	if ready != nil && !ready() {
		scope.Counter("not_ready").Inc(1)
		a.logger.Debugw("data not committed, skipping", "label", label)
		return zero, false
	}
	if budget <= 0 {
		budget = DefaultBudget
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var abandoned atomic.Bool
	done := make(chan result[T], 1)
	start := time.Now()

	go func() {
		var r result[T]
		defer func() {
			if p := recover(); p != nil {
				r = result[T]{err: fmt.Errorf("panic: %v", p)}
			}
			if abandoned.Load() {
				scope.Counter("late_results").Inc(1)
				a.logger.Debugw("discarding late result", "label", label, "elapsed", time.Since(start))
			}
			done <- r
		}()
		v, err := op(opCtx)
		r = result[T]{value: v, err: err}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case r := <-done:
		elapsed := time.Since(start)
		scope.Timer("latency").Record(elapsed)
		if r.err != nil {
			scope.Counter("failures").Inc(1)
			a.logger.Warnw("operation failed", "label", label, "elapsed", elapsed, zap.Error(r.err))
			return zero, false
		}
		return r.value, true

	case <-timer.C:
		abandoned.Store(true)
		scope.Counter("timeouts").Inc(1)
		a.logger.Debugw("operation timed out", "label", label, "elapsed", time.Since(start), "budget", budget)
		return zero, false

	case <-ctx.Done():
		abandoned.Store(true)
		scope.Counter("cancelled").Inc(1)
		a.logger.Debugw("operation abandoned by caller", "label", label, "elapsed", time.Since(start), zap.Error(ctx.Err()))
		return zero, false
	}
}
