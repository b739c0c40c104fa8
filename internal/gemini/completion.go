package gemini

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/browser"
	"github.com/playpi/playpi/internal/config"
)

// detector decides when a server-side generation has finished. No single
// signal is trusted: indicator elements rot when the UI changes, so a
// content-stability fallback races them, and the winning signal is reported
// as the result's confidence.
type detector struct {
	page   browser.Page
	cfg    config.ProviderConfig
	logger *zap.Logger
}

var researchSteps = schemas.CSS(`[data-test-id="research-steps"] .research-step`)

var progressHints = []schemas.Locator{
	schemas.ByText("span", "Ready in"),
	schemas.ByText("span", "Done in"),
	schemas.ByText("span", "Klaar over"),
}

// await polls the completion signals until one fires or the budget elapses.
// Indicator hits return immediately; the content fallback needs the same
// snapshot on two consecutive polls before it counts, since a growing page
// is by definition still generating.
func (d *detector) await(ctx context.Context, desc descriptor, budget time.Duration) (schemas.Confidence, error) {
	poll := d.cfg.AskPollInterval
	if desc.deepPoll {
		poll = d.cfg.DeepPollInterval
	}

	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(poll), 1)
	start := time.Now()
	lastProgress := start
	prevSnapshot := ""

	d.logger.Info("Waiting for completion",
		zap.Duration("budget", budget), zap.Duration("poll", poll))

	for {
		if err := limiter.Wait(waitCtx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", schemas.NewTimeoutError("completion wait", budget, waitCtx.Err())
		}

		for _, ind := range desc.indicators {
			visible, err := d.page.IsVisible(waitCtx, ind)
			if err != nil {
				continue
			}
			if visible {
				d.logger.Info("Completion indicator detected",
					zap.String("locator", ind.Value),
					zap.Duration("elapsed", time.Since(start)))
				return schemas.ConfidenceIndicator, nil
			}
		}

		if desc.contentFallback {
			snapshot, ok := d.contentSnapshot(waitCtx, desc)
			if ok {
				if prevSnapshot != "" && snapshot == prevSnapshot {
					d.logger.Info("Content stable across consecutive polls, treating as complete",
						zap.Duration("elapsed", time.Since(start)))
					return schemas.ConfidenceContentStable, nil
				}
				prevSnapshot = snapshot
				// Fast-polling modes hold off a beat before the comparison
				// poll so a brief token pause does not read as stability.
				if !desc.deepPoll {
					sleepCtx(waitCtx, d.cfg.StabilityRecheck)
				}
			} else {
				prevSnapshot = ""
			}
		}

		if desc.deepPoll && time.Since(lastProgress) >= d.cfg.ProgressInterval {
			lastProgress = time.Now()
			d.reportProgress(waitCtx, time.Since(start))
		}
	}
}

// deepContentContainers scope the deep stability fallback to the response
// itself. The app shell alone clears any sane length threshold, so reading
// the whole page would make the minimum meaningless.
var deepContentContainers = []schemas.Locator{
	schemas.CSS(`[data-test-id="scroll-container"]`),
	schemas.XPath(`(//message-content[contains(@class,"model-response-text")])[last()]`),
}

// contentSnapshot reads the response body used for the stability fallback.
// Deep modes watch the report container and require a large minimum length;
// ask mode watches the latest answer bubble with a small one.
func (d *detector) contentSnapshot(ctx context.Context, desc descriptor) (string, bool) {
	if desc.deepPoll {
		for _, loc := range deepContentContainers {
			html, err := d.page.InnerHTML(ctx, loc)
			if err != nil || len(html) <= d.cfg.ResearchMinContentLength {
				continue
			}
			return html, true
		}
		return "", false
	}
	text, err := d.page.Text(ctx, schemas.XPath(`(//message-content)[last()]`))
	if err != nil || len(text) <= d.cfg.MinStableChars {
		return "", false
	}
	return text, true
}

// reportProgress logs research plan hints. Informational only: nothing here
// shortens or extends the completion budget.
func (d *detector) reportProgress(ctx context.Context, elapsed time.Duration) {
	d.logger.Info("Generation still in progress", zap.Duration("elapsed", elapsed.Round(time.Second)))

	if n, err := d.page.Count(ctx, researchSteps); err == nil && n > 0 {
		d.logger.Info("Research plan progress", zap.Int("steps", n))
	}
	for _, hint := range progressHints {
		text, err := d.page.Text(ctx, hint)
		if err == nil && text != "" {
			d.logger.Info("Status hint", zap.String("hint", text))
			return
		}
	}
}
