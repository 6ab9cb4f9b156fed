package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/contentlab/internal/types"
)

func testItems(urls ...string) []types.Item {
	items := make([]types.Item, len(urls))
	for i, u := range urls {
		items[i] = types.Item{URL: u}
	}
	return items
}

func TestRun_FeedbackMatchesItemOrder(t *testing.T) {
	items := testItems("a.com", "b.com", "c.com")

	result, err := Run(context.Background(), items, Config{}, func(_ context.Context, item *types.Item) (string, error) {
		return "ok: " + item.URL, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ok: a.com", "ok: b.com", "ok: c.com"}, result.Feedback)
	assert.Equal(t, 3, result.ItemsProcessed)
	assert.Equal(t, "c.com", result.LastProcessedItem)
}

func TestRun_ItemFailureDoesNotAbort(t *testing.T) {
	items := testItems("a.com", "b.com", "c.com")

	result, err := Run(context.Background(), items, Config{}, func(_ context.Context, item *types.Item) (string, error) {
		if item.URL == "b.com" {
			return "", &ItemError{URL: item.URL, Cause: errors.New("fetch timed out")}
		}
		return "ok: " + item.URL, nil
	})
	require.NoError(t, err)

	require.Len(t, result.Feedback, 3)
	assert.Equal(t, "ok: a.com", result.Feedback[0])
	assert.Contains(t, result.Feedback[1], "Failed: ")
	assert.Contains(t, result.Feedback[1], "b.com")
	assert.Equal(t, "ok: c.com", result.Feedback[2])

	// Failed attempts still count as processed.
	assert.Equal(t, 3, result.ItemsProcessed)
	assert.Equal(t, "c.com", result.LastProcessedItem)
}

func TestRun_AbortStopsImmediately(t *testing.T) {
	items := testItems("a.com", "b.com", "c.com")
	var invoked []string

	result, err := Run(context.Background(), items, Config{}, func(_ context.Context, item *types.Item) (string, error) {
		invoked = append(invoked, item.URL)
		if item.URL == "b.com" {
			return "", &AbortError{Cause: errors.New("authentication rejected")}
		}
		return "ok: " + item.URL, nil
	})

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, []string{"a.com", "b.com"}, invoked)

	// Partial result from already-processed items is still returned,
	// with a terminal abort line.
	require.Len(t, result.Feedback, 2)
	assert.Equal(t, "ok: a.com", result.Feedback[0])
	assert.Equal(t, "Aborted: authentication rejected", result.Feedback[1])
	assert.Equal(t, 2, result.ItemsProcessed)
}

func TestRun_UnclassifiedErrorAborts(t *testing.T) {
	items := testItems("a.com", "b.com")

	_, err := Run(context.Background(), items, Config{}, func(_ context.Context, _ *types.Item) (string, error) {
		return "", errors.New("something unexpected")
	})

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
}

func TestRun_SkippedItemsNotCounted(t *testing.T) {
	items := testItems("a.com", "b.com", "c.com")

	result, err := Run(context.Background(), items, Config{}, func(_ context.Context, item *types.Item) (string, error) {
		if item.URL == "b.com" {
			return "", Skip("")
		}
		return "ok: " + item.URL, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.ItemsProcessed)
	assert.Equal(t, []string{"ok: a.com", "ok: c.com"}, result.Feedback)
}

func TestRun_SkipWithMessageEmitsLine(t *testing.T) {
	items := testItems("a.com")

	result, err := Run(context.Background(), items, Config{}, func(_ context.Context, item *types.Item) (string, error) {
		return "", Skip(fmt.Sprintf("Skipped item: no base content for URL %s", item.URL))
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.ItemsProcessed)
	assert.Empty(t, result.LastProcessedItem)
	assert.Equal(t, []string{"Skipped item: no base content for URL a.com"}, result.Feedback)
}

func TestRun_DelayBetweenOperations(t *testing.T) {
	items := testItems("a.com", "b.com", "c.com")

	start := time.Now()
	_, err := Run(context.Background(), items, Config{Delay: 20 * time.Millisecond}, func(_ context.Context, _ *types.Item) (string, error) {
		return "", nil
	})
	require.NoError(t, err)

	// Two gaps between three items; no trailing wait after the last one.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRun_RateLimitEnforced(t *testing.T) {
	items := testItems("a.com", "b.com", "c.com")

	start := time.Now()
	cfg := Config{RateLimit: 10, RateWindow: 200 * time.Millisecond}
	_, err := Run(context.Background(), items, cfg, func(_ context.Context, _ *types.Item) (string, error) {
		return "", nil
	})
	require.NoError(t, err)

	// 10 ops per 200ms is one op per 20ms; two waits at minimum.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRun_RateLimitPacesFirstGap(t *testing.T) {
	items := testItems("a.com", "b.com")

	var times []time.Time
	cfg := Config{RateLimit: 10, RateWindow: 200 * time.Millisecond}
	_, err := Run(context.Background(), items, cfg, func(_ context.Context, _ *types.Item) (string, error) {
		times = append(times, time.Now())
		return "", nil
	})
	require.NoError(t, err)
	require.Len(t, times, 2)

	// The very first gap is already rate-limited; the limiter's initial
	// burst token belongs to the first operation, not to the wait after it.
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 20*time.Millisecond)
}

func TestRun_CancelledContextAborts(t *testing.T) {
	items := testItems("a.com", "b.com")

	ctx, cancel := context.WithCancel(context.Background())
	result, err := Run(ctx, items, Config{Delay: time.Hour}, func(_ context.Context, item *types.Item) (string, error) {
		cancel()
		return "ok: " + item.URL, nil
	})

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, 1, result.ItemsProcessed)
}

func TestRun_EmptyItemList(t *testing.T) {
	result, err := Run(context.Background(), nil, Config{}, func(_ context.Context, _ *types.Item) (string, error) {
		t.Fatal("operation must not be invoked for an empty batch")
		return "", nil
	})
	require.NoError(t, err)
	assert.Zero(t, result.ItemsProcessed)
	assert.Empty(t, result.Feedback)
}
