package gemini

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestResolveFallsBackToSecondCandidate(t *testing.T) {
	target := Target{
		Name: "widget",
		Candidates: []schemas.Locator{
			schemas.CSS(".primary"),
			schemas.CSS(".fallback"),
			schemas.CSS(".never-reached"),
		},
	}
	page := new(mocks.MockPage)
	page.On("WaitVisible", mock.Anything, target.Candidates[0], mock.Anything).
		Return(schemas.NewNotFoundError("primary"))
	page.On("WaitVisible", mock.Anything, target.Candidates[1], mock.Anything).Return(nil)

	loc, err := resolve(context.Background(), page, target, 10*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, target.Candidates[1], loc)
	page.AssertNotCalled(t, "WaitVisible", mock.Anything, target.Candidates[2], mock.Anything)
}

func TestResolveExhaustionIsNotFound(t *testing.T) {
	target := Target{
		Name:       "ghost",
		Candidates: []schemas.Locator{schemas.CSS(".a"), schemas.CSS(".b")},
	}
	page := new(mocks.MockPage)
	page.On("WaitVisible", mock.Anything, mock.Anything, mock.Anything).
		Return(schemas.NewNotFoundError("candidate"))

	_, err := resolve(context.Background(), page, target, 10*time.Millisecond, zap.NewNop())
	var nf *schemas.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Error(), "ghost")
	page.AssertNumberOfCalls(t, "WaitVisible", 2)
}

func TestResolveBoundedByPerCandidateTimeouts(t *testing.T) {
	// Each candidate wait eats its own budget, never the outer one: with a
	// simulated full per-candidate wait the total stays near n*perCandidate.
	per := 20 * time.Millisecond
	target := Target{
		Name:       "slow",
		Candidates: []schemas.Locator{schemas.CSS(".a"), schemas.CSS(".b"), schemas.CSS(".c")},
	}
	page := new(mocks.MockPage)
	page.On("WaitVisible", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { time.Sleep(per) }).
		Return(schemas.NewNotFoundError("candidate"))

	start := time.Now()
	_, err := resolve(context.Background(), page, target, per, zap.NewNop())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 3*per+100*time.Millisecond)
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := new(mocks.MockPage)

	_, err := resolve(ctx, page, promptBox, time.Second, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
	page.AssertNotCalled(t, "WaitVisible", mock.Anything, mock.Anything, mock.Anything)
}
