// Package batch provides the generic sequential executor shared by every
// batch job: it applies one operation to each item of a model in stored
// order, under an inter-call delay and a rolling-window rate limit, and
// tolerates per-item failures without aborting the run.
package batch

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/contentlab/internal/types"
)

// DefaultRateWindow is the rolling window the rate limit applies to when the
// config does not name one.
const DefaultRateWindow = time.Minute

// Operation processes one item and returns its feedback line. Failures are
// reported as *ItemError (tolerated), *AbortError (stops the batch), or
// Skip(...) (item passed over without counting as processed).
type Operation func(ctx context.Context, item *types.Item) (string, error)

// Config controls the pacing of a batch run.
type Config struct {
	// Delay is the minimum wait between successive item operations.
	Delay time.Duration
	// RateLimit caps operations per RateWindow; zero disables the cap.
	// When both Delay and RateLimit apply, the effective wait between two
	// operations is the larger of the two.
	RateLimit int
	// RateWindow is the rolling window RateLimit applies to;
	// DefaultRateWindow when zero.
	RateWindow time.Duration
}

// Run applies op to every item in order, sequentially. Item-scoped failures
// become "Failed: " feedback lines and the batch continues; an abort-class
// error stops the run immediately and is returned alongside the partial
// result. Feedback line order always matches item order.
func Run(ctx context.Context, items []types.Item, cfg Config, op Operation) (*types.BatchResult, error) {
	result := &types.BatchResult{}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = DefaultRateWindow
		}
		limiter = rate.NewLimiter(rate.Every(window/time.Duration(cfg.RateLimit)), 1)
		// The first operation consumes the initial burst token; without
		// this every run would fit one extra operation into the window,
		// and the first inter-item wait would be the delay alone instead
		// of the larger of delay and window/limit.
		limiter.Allow()
	}

	for i := range items {
		line, err := op(ctx, &items[i])

		var skip *skipError
		if errors.As(err, &skip) {
			if skip.message != "" {
				result.Feedback = append(result.Feedback, skip.message)
			}
			continue
		}

		result.ItemsProcessed++
		result.LastProcessedItem = items[i].URL

		switch {
		case err == nil:
			if line != "" {
				result.Feedback = append(result.Feedback, line)
			}
		default:
			var itemErr *ItemError
			if errors.As(err, &itemErr) {
				result.Feedback = append(result.Feedback, "Failed: "+itemErr.Error())
				break
			}
			// Anything not item-scoped aborts the batch. The partial
			// result from items already processed is still returned.
			var abortErr *AbortError
			if !errors.As(err, &abortErr) {
				abortErr = &AbortError{Cause: err}
			}
			result.Feedback = append(result.Feedback, "Aborted: "+abortErr.Cause.Error())
			return result, abortErr
		}

		if i < len(items)-1 {
			if err := pause(ctx, cfg.Delay, limiter); err != nil {
				return result, &AbortError{Cause: err}
			}
		}
	}

	return result, nil
}

// pause waits the configured inter-call delay, then whatever additional time
// the rate limiter requires. Running the two sequentially yields the larger
// of the two waits, since limiter tokens keep accruing during the delay.
func pause(ctx context.Context, delay time.Duration, limiter *rate.Limiter) error {
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
