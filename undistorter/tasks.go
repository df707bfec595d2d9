package undistorter

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/mvsprep/logging"
)

// skippedError marks a task that was skipped after logging why, e.g. for an unreadable image.
type skippedError struct {
	reason string
}

func (e *skippedError) Error() string { return e.reason }

func skip(reason string) error {
	return &skippedError{reason: reason}
}

// runTasks runs task(ctx, i) for i in [0, n) on at most workers goroutines and logs
// "<label> [k/n]" as tasks finish. Skipped tasks are logged, other task failures are collected and
// returned together; a failing task never stops the others. Cancelling ctx stops dispatching new
// tasks and returns ctx.Err().
func runTasks(
	ctx context.Context,
	logger logging.Logger,
	workers, n int,
	label string,
	task func(ctx context.Context, i int) error,
) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var (
		finished = atomic.NewInt64(0)
		mu       sync.Mutex
		errs     error
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			err := task(groupCtx, i)
			logger.Infof("%s [%d/%d]", label, finished.Inc(), n)
			var skipped *skippedError
			switch {
			case err == nil:
			case errors.As(err, &skipped):
				logger.Errorw("skipping task", "reason", skipped.reason)
			default:
				logger.Errorw("task failed", "error", err)
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errs
}
