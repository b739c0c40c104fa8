package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/browser"
	"github.com/playpi/playpi/internal/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubOpener struct {
	opened atomic.Int64
	err    error
}

func (o *stubOpener) NewPage(ctx context.Context) (browser.Page, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.opened.Add(1)
	page := new(mocks.MockPage)
	page.On("Close").Return(nil)
	return page, nil
}

// stubRunner returns canned results with per-request delays and tracks the
// peak number of concurrent runs.
type stubRunner struct {
	mu      sync.Mutex
	active  int
	peak    int
	delays  map[string]time.Duration
	errs    map[string]error
	results map[string]*schemas.ExtractedResult
}

func (r *stubRunner) Run(ctx context.Context, page browser.Page, req schemas.Request) (*schemas.ExtractedResult, error) {
	r.mu.Lock()
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	delay := r.delays[req.ID]
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}
	if err := r.errs[req.ID]; err != nil {
		return nil, err
	}
	if res := r.results[req.ID]; res != nil {
		return res, nil
	}
	return &schemas.ExtractedResult{Answer: "answer for " + req.ID}, nil
}

func makeRequests(n int) []schemas.Request {
	reqs := make([]schemas.Request, n)
	for i := range reqs {
		reqs[i] = schemas.Request{ID: fmt.Sprintf("req-%d", i+1), Prompt: "p", Timeout: time.Minute}
	}
	return reqs
}

// Results come back in input order even when the middle request finishes
// first and the first finishes last.
func TestRunPreservesInputOrder(t *testing.T) {
	runner := &stubRunner{delays: map[string]time.Duration{
		"req-1": 60 * time.Millisecond,
		"req-2": 5 * time.Millisecond,
		"req-3": 30 * time.Millisecond,
	}}
	c := NewCoordinator(&stubOpener{}, runner, 3, zap.NewNop())

	outcomes := c.Run(context.Background(), makeRequests(3))

	require.Len(t, outcomes, 3)
	for i, want := range []string{"req-1", "req-2", "req-3"} {
		assert.Equal(t, want, outcomes[i].Request.ID)
		require.NoError(t, outcomes[i].Err)
		assert.Equal(t, "answer for "+want, outcomes[i].Result.Answer)
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	boom := errors.New("selector drift")
	runner := &stubRunner{errs: map[string]error{"req-2": boom}}
	c := NewCoordinator(&stubOpener{}, runner, 2, zap.NewNop())

	outcomes := c.Run(context.Background(), makeRequests(3))

	require.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.Nil(t, outcomes[1].Result)
	require.NoError(t, outcomes[2].Err)
}

func TestRunRespectsConcurrencyCap(t *testing.T) {
	runner := &stubRunner{delays: map[string]time.Duration{
		"req-1": 30 * time.Millisecond, "req-2": 30 * time.Millisecond,
		"req-3": 30 * time.Millisecond, "req-4": 30 * time.Millisecond,
		"req-5": 30 * time.Millisecond, "req-6": 30 * time.Millisecond,
	}}
	c := NewCoordinator(&stubOpener{}, runner, 2, zap.NewNop())

	c.Run(context.Background(), makeRequests(6))

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.LessOrEqual(t, runner.peak, 2)
	assert.Greater(t, runner.peak, 0)
}

func TestRunCancelAbortsOutstanding(t *testing.T) {
	runner := &stubRunner{delays: map[string]time.Duration{
		"req-1": time.Hour, "req-2": time.Hour, "req-3": time.Hour,
	}}
	c := NewCoordinator(&stubOpener{}, runner, 3, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan []Outcome, 1)
	go func() { done <- c.Run(ctx, makeRequests(3)) }()

	select {
	case outcomes := <-done:
		for _, o := range outcomes {
			assert.ErrorIs(t, o.Err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not unwind after cancellation")
	}
}

func TestRunTabOpenFailureIsPerItem(t *testing.T) {
	opener := &stubOpener{err: errors.New("browser gone")}
	c := NewCoordinator(opener, &stubRunner{}, 2, zap.NewNop())

	outcomes := c.Run(context.Background(), makeRequests(2))
	for _, o := range outcomes {
		var perr *schemas.ProviderError
		assert.ErrorAs(t, o.Err, &perr)
	}
}

func TestRunOpensOneTabPerRequest(t *testing.T) {
	opener := &stubOpener{}
	c := NewCoordinator(opener, &stubRunner{}, 3, zap.NewNop())

	c.Run(context.Background(), makeRequests(5))
	assert.Equal(t, int64(5), opener.opened.Load())
}
