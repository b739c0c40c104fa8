// Package batch runs multiple chat requests concurrently against one shared
// browser, each on its own tab, under a bounded concurrency cap.
package batch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/browser"
)

// Runner executes one request on one page. Satisfied by gemini.Sequencer.
type Runner interface {
	Run(ctx context.Context, page browser.Page, req schemas.Request) (*schemas.ExtractedResult, error)
}

// PageOpener hands out fresh tabs. Satisfied by browser.Manager.
type PageOpener interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

// Outcome is the per-item result of a batch run: either a result or that
// item's failure. One item failing never suppresses its siblings.
type Outcome struct {
	Request schemas.Request
	Result  *schemas.ExtractedResult
	Err     error
}

// Coordinator fans requests out over tabs with a semaphore cap. The cap
// exists because a browser animating many tabs at once starves all of them.
type Coordinator struct {
	opener PageOpener
	runner Runner
	sem    *semaphore.Weighted
	logger *zap.Logger
}

func NewCoordinator(opener PageOpener, runner Runner, maxConcurrent int, logger *zap.Logger) *Coordinator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Coordinator{
		opener: opener,
		runner: runner,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger: logger.Named("batch"),
	}
}

// Run executes all requests and returns one outcome per request, in input
// order regardless of completion order. Cancelling ctx aborts outstanding
// items; their outcomes carry the cancellation error.
func (c *Coordinator) Run(ctx context.Context, reqs []schemas.Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))
	for i, req := range reqs {
		outcomes[i].Request = req
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range reqs {
		g.Go(func() error {
			outcomes[i].Result, outcomes[i].Err = c.runOne(gctx, reqs[i])
			// Failures stay per-item; returning them would cancel siblings.
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (c *Coordinator) runOne(ctx context.Context, req schemas.Request) (*schemas.ExtractedResult, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	logger := c.logger.With(zap.String("request_id", req.ID))
	logger.Info("Starting batch item")

	page, err := c.opener.NewPage(ctx)
	if err != nil {
		return nil, schemas.NewProviderError("batch", "failed to open tab", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("Tab close failed", zap.Error(cerr))
		}
	}()

	res, err := c.runner.Run(ctx, page, req)
	if err != nil {
		logger.Warn("Batch item failed", zap.Error(err))
		return nil, err
	}
	logger.Info("Batch item completed")
	return res, nil
}
