// Package gemini drives one chat request through the Gemini web UI: wait for
// an authenticated page, type the prompt, toggle an optional tool, submit,
// detect completion, and hand the page to the extractor. The UI's markup is
// not a stable contract; every lookup goes through candidate chains and every
// wait carries an explicit budget.
package gemini

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/browser"
	"github.com/playpi/playpi/internal/config"
	"github.com/playpi/playpi/internal/extract"
)

// Sequencer runs requests against pages. It is stateless across requests and
// safe for concurrent use; each Run exclusively owns its page for the
// duration of the call.
type Sequencer struct {
	cfg        config.ProviderConfig
	navTimeout time.Duration
	logger     *zap.Logger
}

func NewSequencer(cfg *config.Config, logger *zap.Logger) *Sequencer {
	return &Sequencer{
		cfg:        cfg.Provider,
		navTimeout: cfg.Browser.NavigationTimeout,
		logger:     logger.Named("gemini"),
	}
}

// Run executes one request on the given page and returns the extracted
// result. All failures map onto the typed taxonomy in api/schemas; optional
// UI states (confirmation dialogs, toggle verification) log and continue
// instead of failing.
func (s *Sequencer) Run(ctx context.Context, page browser.Page, req schemas.Request) (*schemas.ExtractedResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	budget := req.Timeout
	if budget <= 0 {
		budget = s.cfg.DefaultTimeout
	}
	desc := descriptorFor(req.Mode)
	logger := s.logger.With(zap.String("request_id", req.ID), zap.String("mode", string(req.Mode)))

	logger.Info("Navigating to chat UI", zap.String("url", s.cfg.BaseURL))
	if err := page.Navigate(ctx, s.cfg.BaseURL, s.navTimeout); err != nil {
		return nil, schemas.NewProviderError("navigate", "failed to open chat UI", err)
	}

	if err := s.ensureAuthenticated(ctx, page, budget); err != nil {
		return nil, err
	}

	if desc.activateBeforePrompt && len(desc.labels) > 0 {
		if err := s.activateMode(ctx, page, desc, logger); err != nil {
			return nil, err
		}
	}

	if err := s.enterPrompt(ctx, page, req.Prompt, logger); err != nil {
		return nil, err
	}

	if !desc.activateBeforePrompt && len(desc.labels) > 0 {
		if err := s.activateMode(ctx, page, desc, logger); err != nil {
			return nil, err
		}
	}

	if err := s.submit(ctx, page, logger); err != nil {
		return nil, err
	}

	if desc.confirm {
		s.optional(logger, "confirmation dialog", func() error {
			return s.confirmResearch(ctx, page, logger)
		})
	}

	det := &detector{page: page, cfg: s.cfg, logger: logger}
	confidence, err := det.await(ctx, desc, budget)
	if err != nil {
		var terr *schemas.TimeoutError
		if desc.lenientTimeout && errors.As(err, &terr) {
			logger.Warn("Completion not confirmed within budget, attempting extraction anyway",
				zap.Duration("budget", budget))
			confidence = schemas.ConfidenceDegraded
		} else {
			return nil, err
		}
	}

	if desc.kind == extractReport {
		logger.Info("Waiting for final response to render")
		sleepCtx(ctx, s.cfg.RenderGrace)
	}

	res, err := s.extractResult(ctx, page, desc, req, logger)
	if err != nil {
		return nil, err
	}
	if res.Confidence == "" {
		res.Confidence = confidence
	}
	logger.Info("Request completed",
		zap.String("confidence", string(res.Confidence)),
		zap.Int("answer_chars", len(res.Answer)),
		zap.Int("sources", len(res.Sources)))
	return res, nil
}

// enterPrompt resolves the textbox, focuses it and fills the prompt verbatim.
func (s *Sequencer) enterPrompt(ctx context.Context, page browser.Page, prompt string, logger *zap.Logger) error {
	loc, err := resolve(ctx, page, promptBox, s.cfg.CandidateTimeout, logger)
	if err != nil {
		return schemas.NewProviderError("prompt entry", "prompt input not found", err)
	}
	if err := page.Click(ctx, loc); err != nil {
		return schemas.NewProviderError("prompt entry", "failed to focus prompt input", err)
	}
	if err := page.Fill(ctx, loc, prompt); err != nil {
		return schemas.NewProviderError("prompt entry", "failed to fill prompt", err)
	}
	logger.Debug("Prompt entered", zap.Int("chars", len(prompt)))
	return nil
}

// activateMode opens the tools menu and clicks the mode entry by label.
// Toggle verification is best effort: the deselect control proves the flip,
// but its absence only logs since the tool may already be selected.
func (s *Sequencer) activateMode(ctx context.Context, page browser.Page, desc descriptor, logger *zap.Logger) error {
	menuLoc, err := resolve(ctx, page, toolsMenu, s.cfg.CandidateTimeout, logger)
	if err != nil {
		return schemas.NewProviderError("mode activation", "tools menu not found", err)
	}
	if err := page.Click(ctx, menuLoc); err != nil {
		return schemas.NewProviderError("mode activation", "failed to open tools menu", err)
	}
	sleepCtx(ctx, s.cfg.MenuSettle)

	toggle := modeToggle(desc.labels)
	toggleLoc, err := resolve(ctx, page, toggle, s.cfg.CandidateTimeout, logger)
	if err != nil {
		return schemas.NewProviderError("mode activation", "mode entry not found in tools menu", err)
	}
	if err := page.Click(ctx, toggleLoc); err != nil {
		return schemas.NewProviderError("mode activation", "failed to click mode entry", err)
	}
	sleepCtx(ctx, s.cfg.MenuSettle)

	if desc.verifyLabel != "" {
		s.optional(logger, "mode toggle verification", func() error {
			deselect := schemas.CSS(`button[aria-label*="` + desc.verifyLabel + `"]`)
			n, err := page.Count(ctx, deselect)
			if err != nil {
				return err
			}
			if n == 0 {
				return schemas.NewNotFoundError("mode deselect control")
			}
			logger.Debug("Mode toggle verified", zap.String("label", desc.verifyLabel))
			return nil
		})
	}
	return nil
}

func (s *Sequencer) submit(ctx context.Context, page browser.Page, logger *zap.Logger) error {
	loc, err := resolve(ctx, page, sendButton, s.cfg.CandidateTimeout, logger)
	if err != nil {
		return schemas.NewProviderError("submit", "send button not found", err)
	}
	if err := page.Click(ctx, loc); err != nil {
		return schemas.NewProviderError("submit", "failed to click send button", err)
	}
	logger.Debug("Prompt submitted")
	return nil
}

// confirmResearch waits for the research confirmation dialog and accepts it.
// Some configurations never show the dialog, so not seeing it is success.
func (s *Sequencer) confirmResearch(ctx context.Context, page browser.Page, logger *zap.Logger) error {
	if err := page.WaitVisible(ctx, confirmWidget, s.cfg.ConfirmationWait); err != nil {
		logger.Debug("No confirmation dialog appeared, continuing")
		return nil
	}
	loc, err := resolve(ctx, page, confirmButton, s.cfg.CandidateTimeout, logger)
	if err != nil {
		return err
	}
	if err := page.Click(ctx, loc); err != nil {
		return err
	}
	logger.Debug("Research parameters confirmed")
	return nil
}

func (s *Sequencer) extractResult(ctx context.Context, page browser.Page, desc descriptor, req schemas.Request, logger *zap.Logger) (*schemas.ExtractedResult, error) {
	switch desc.kind {
	case extractImage:
		path, err := s.downloadImage(ctx, page, req, logger)
		if err != nil {
			return nil, err
		}
		return &schemas.ExtractedResult{ImagePath: path}, nil
	case extractReport:
		return extract.New(page, s.origin(), logger).Report(ctx)
	default:
		return extract.New(page, s.origin(), logger).Answer(ctx)
	}
}

// origin strips the base URL down to scheme://host for citation rewriting.
func (s *Sequencer) origin() string {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil || u.Host == "" {
		return s.cfg.BaseURL
	}
	return u.Scheme + "://" + u.Host
}

// optional runs a best-effort step: a failure is logged and swallowed because
// the step's absence is a valid UI state, not a bug to mask.
func (s *Sequencer) optional(logger *zap.Logger, step string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("Optional step did not complete", zap.String("step", step), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
